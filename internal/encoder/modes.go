package encoder

import (
	"context"

	"hdmictl/internal/display"
	"hdmictl/internal/edid"
	"hdmictl/internal/logging"
)

// ModeSource names the authority that produced a ModeSet.
type ModeSource string

const (
	// SourceDisplay means the modes were read from the display over DDC.
	SourceDisplay ModeSource = "display"
	// SourceEnvelope means the modes were synthesized from the envelope.
	SourceEnvelope ModeSource = "envelope"
)

// ModeSet is the result of one enumeration pass.
type ModeSet struct {
	Modes     []display.Mode
	Preferred *display.Mode
	// EDID holds the raw descriptor the modes came from, if any.
	EDID   []byte
	Source ModeSource
}

// Empty reports whether the set holds no modes.
func (s ModeSet) Empty() bool { return len(s.Modes) == 0 }

// Modes enumerates candidate modes. A DDC channel makes the display the only
// authority: an unreadable or unparsable EDID gives an empty set, never the
// synthesized one. Without a channel the modes come from the standard table
// bounded by the envelope, and the preferred mode is the envelope's preferred
// resolution.
func (e *Encoder) Modes(ctx context.Context) ModeSet {
	if e.channel == nil {
		return e.synthesizedModes()
	}
	return e.displayModes(ctx)
}

func (e *Encoder) displayModes(ctx context.Context) ModeSet {
	set := ModeSet{Source: SourceDisplay}
	logger := logging.WithContext(ctx, e.logger)

	probeCtx, cancel := e.probeContext(ctx)
	raw, err := e.channel.ReadEDID(probeCtx)
	cancel()
	if err != nil || len(raw) == 0 {
		logger.Debug("edid unavailable, no modes",
			logging.Error(err),
			logging.String(logging.FieldEventType, "edid_unavailable"),
		)
		return set
	}

	modes, err := e.parser.Parse(raw)
	if err != nil {
		logging.WarnEvent(logger, logging.EventEDIDInvalid, "edid could not be parsed",
			logging.Error(err),
			logging.Int("bytes", len(raw)),
		)
		return set
	}
	if id, err := edid.ReadIdentity(raw); err == nil {
		logger.Debug("edid read",
			logging.String("monitor", id.String()),
			logging.Int("modes", len(modes)),
		)
	}

	set.EDID = append([]byte(nil), raw...)
	set.Modes = modes
	for i := range set.Modes {
		if set.Modes[i].Preferred {
			preferred := set.Modes[i]
			set.Preferred = &preferred
			break
		}
	}
	return set
}

// synthesizedModes lists the standard timings inside the maximum. A preferred
// resolution outside the maximum is not offered, so the list stays bounded and
// carries no preferred mode.
func (e *Encoder) synthesizedModes() ModeSet {
	modes := display.StandardModes(e.env.MaxHorizontal, e.env.MaxVertical)
	if !e.env.PreferredFits() {
		return ModeSet{Modes: modes, Source: SourceEnvelope}
	}

	index := -1
	for i := range modes {
		if modes[i].Resolution(e.env.PreferredHorizontal, e.env.PreferredVertical) && !modes[i].Interlaced {
			index = i
			break
		}
	}
	if index < 0 {
		synthesized := display.Synthesize(e.env.PreferredHorizontal, e.env.PreferredVertical, 0)
		modes = append([]display.Mode{synthesized}, modes...)
		index = 0
	}
	modes[index].Preferred = true
	preferred := modes[index]

	return ModeSet{
		Modes:     modes,
		Preferred: &preferred,
		Source:    SourceEnvelope,
	}
}
