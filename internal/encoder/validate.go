package encoder

import (
	"fmt"

	"hdmictl/internal/display"
)

// Verdict is the outcome of validating one mode.
type Verdict int

const (
	Accept Verdict = iota
	BadMode
	ClockTooHigh
	ResolutionTooLarge
	InterlaceUnsupported
)

var verdictNames = map[Verdict]string{
	Accept:               "ok",
	BadMode:              "bad_mode",
	ClockTooHigh:         "clock_too_high",
	ResolutionTooLarge:   "resolution_too_large",
	InterlaceUnsupported: "interlace_unsupported",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// OK reports whether the mode was accepted.
func (v Verdict) OK() bool { return v == Accept }

// ParseVerdict is the inverse of String.
func ParseVerdict(value string) (Verdict, error) {
	for verdict, name := range verdictNames {
		if name == value {
			return verdict, nil
		}
	}
	return BadMode, fmt.Errorf("unknown verdict %q", value)
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Validate checks mode against env. Rules are evaluated in a fixed order and
// the first match wins: capacity limits (clock, then resolution) come before
// unsupported features (interlace, then double clock or stereo 3D).
func Validate(mode *display.Mode, env Envelope) Verdict {
	switch {
	case mode == nil:
		return BadMode
	case mode.PixelClockKHz > env.MaxPixelClockKHz:
		return ClockTooHigh
	case mode.Horizontal > env.MaxHorizontal || mode.Vertical > env.MaxVertical:
		return ResolutionTooLarge
	case mode.Interlaced:
		return InterlaceUnsupported
	case mode.DoubleClock || mode.Stereo3D:
		return BadMode
	default:
		return Accept
	}
}

// Validate lets an Envelope act as a Validator.
func (e Envelope) Validate(mode *display.Mode) Verdict {
	return Validate(mode, e)
}

// Validator decides whether a mode is usable.
type Validator interface {
	Validate(mode *display.Mode) Verdict
}

// Filter splits modes into the accepted ones, in input order, and a count of
// rejections per verdict.
func Filter(modes []display.Mode, v Validator) ([]display.Mode, map[Verdict]int) {
	accepted := make([]display.Mode, 0, len(modes))
	rejected := make(map[Verdict]int)
	for i := range modes {
		verdict := v.Validate(&modes[i])
		if verdict.OK() {
			accepted = append(accepted, modes[i])
			continue
		}
		rejected[verdict]++
	}
	return accepted, rejected
}
