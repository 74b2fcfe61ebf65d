package encoder

import (
	"errors"
	"log/slog"

	"hdmictl/internal/ddc"
	"hdmictl/internal/logging"
	"hdmictl/internal/props"
)

type envelopeField struct {
	name   string
	def    uint32
	target func(*Envelope) *uint32
}

var envelopeFields = []envelopeField{
	{KeyMaxPixelClock, DefaultMaxPixelClockKHz, func(e *Envelope) *uint32 { return &e.MaxPixelClockKHz }},
	{KeyMaxHorizontal, DefaultMaxHorizontal, func(e *Envelope) *uint32 { return &e.MaxHorizontal }},
	{KeyMaxVertical, DefaultMaxVertical, func(e *Envelope) *uint32 { return &e.MaxVertical }},
	{KeyPreferredHorizontal, DefaultPreferredHorizontal, func(e *Envelope) *uint32 { return &e.PreferredHorizontal }},
	{KeyPreferredVertical, DefaultPreferredVertical, func(e *Envelope) *uint32 { return &e.PreferredVertical }},
}

// ResolveEnvelope reads the five envelope properties under prefix. Absent,
// malformed and zero values are replaced by their default; each substitution
// is logged with event_type=config_defaulted and recorded in Defaulted. It
// never fails.
func ResolveEnvelope(store props.Store, prefix string, logger *slog.Logger) Envelope {
	if logger == nil {
		logger = logging.NewNop()
	}
	var env Envelope
	for _, field := range envelopeFields {
		key := prefix + field.name
		value, err := lookupUint32(store, key)
		if err == nil && value == 0 {
			err = props.ErrMalformed
		}
		if err != nil {
			value = field.def
			env.defaulted = append(env.defaulted, key)
			logger.Info("no value for property, using default",
				logging.String("key", key),
				logging.Uint64("default", uint64(field.def)),
				logging.String("reason", defaultReason(err)),
				logging.String(logging.FieldEventType, logging.EventConfigDefaulted),
			)
		}
		*field.target(&env) = value
	}
	return env
}

func lookupUint32(store props.Store, key string) (uint32, error) {
	if store == nil {
		return 0, props.ErrAbsent
	}
	return store.Uint32(key)
}

func defaultReason(err error) string {
	switch {
	case errors.Is(err, props.ErrAbsent):
		return "absent"
	case errors.Is(err, props.ErrMalformed):
		return "malformed"
	default:
		return "unreadable"
	}
}

// ResolveChannel opens the DDC channel named by the i2c-edid reference. An
// absent reference yields nil silently. A reference that cannot be resolved
// or opened is logged with event_type=channel_unavailable and also yields
// nil, which switches the encoder to synthesized modes.
func ResolveChannel(store props.Store, prefix string, opener ddc.Opener, opts ddc.Options, logger *slog.Logger) ddc.Channel {
	if logger == nil {
		logger = logging.NewNop()
	}
	if store == nil {
		return nil
	}
	key := prefix + KeyChannel
	ref, err := store.Reference(key)
	if errors.Is(err, props.ErrAbsent) {
		logger.Debug("no ddc channel configured", logging.String("key", key))
		return nil
	}
	if err != nil {
		channelUnavailable(logger, key, "", err)
		return nil
	}
	if opener == nil {
		opener = ddc.Open
	}
	channel, err := opener(ref, opts)
	if err != nil {
		channelUnavailable(logger, key, ref, err)
		return nil
	}
	logger.Info("ddc channel attached",
		logging.String("key", key),
		logging.String(logging.FieldConnector, channel.Name()),
	)
	return channel
}

func channelUnavailable(logger *slog.Logger, key, ref string, err error) {
	logger.Info("ddc channel unavailable, using synthesized modes",
		logging.String("key", key),
		logging.String("reference", ref),
		logging.Error(err),
		logging.String(logging.FieldEventType, "channel_unavailable"),
		logging.String(logging.FieldErrorHint, "check the i2c adapter exists and i2c-dev is loaded"),
	)
}
