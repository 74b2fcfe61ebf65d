package encoder

// Property names, relative to the configured prefix.
const (
	KeyChannel             = "i2c-edid"
	KeyMaxPixelClock       = "max-pclock"
	KeyMaxHorizontal       = "max-horz-res"
	KeyMaxVertical         = "max-vert-res"
	KeyPreferredHorizontal = "pref-horz-res"
	KeyPreferredVertical   = "pref-vert-res"
)

// Defaults applied when a property is absent or malformed.
const (
	DefaultPrefix              = "realdigital,"
	DefaultMaxPixelClockKHz    = 150000
	DefaultMaxHorizontal       = 1920
	DefaultMaxVertical         = 1080
	DefaultPreferredHorizontal = 1280
	DefaultPreferredVertical   = 720
)

// Envelope is the resolved set of limits that governs mode acceptance. It is
// a value; copies never share the defaulted list.
type Envelope struct {
	MaxPixelClockKHz    uint32
	MaxHorizontal       uint32
	MaxVertical         uint32
	PreferredHorizontal uint32
	PreferredVertical   uint32

	defaulted []string
}

// DefaultEnvelope returns the envelope used when the store holds nothing.
func DefaultEnvelope() Envelope {
	return Envelope{
		MaxPixelClockKHz:    DefaultMaxPixelClockKHz,
		MaxHorizontal:       DefaultMaxHorizontal,
		MaxVertical:         DefaultMaxVertical,
		PreferredHorizontal: DefaultPreferredHorizontal,
		PreferredVertical:   DefaultPreferredVertical,
	}
}

// Defaulted lists the fully-qualified keys that fell back to a default, in
// resolution order.
func (e Envelope) Defaulted() []string {
	return append([]string(nil), e.defaulted...)
}

// Equal compares the limits and ignores how they were obtained.
func (e Envelope) Equal(other Envelope) bool {
	return e.MaxPixelClockKHz == other.MaxPixelClockKHz &&
		e.MaxHorizontal == other.MaxHorizontal &&
		e.MaxVertical == other.MaxVertical &&
		e.PreferredHorizontal == other.PreferredHorizontal &&
		e.PreferredVertical == other.PreferredVertical
}

// PreferredFits reports whether the preferred resolution lies inside the maximum.
func (e Envelope) PreferredFits() bool {
	return e.PreferredHorizontal <= e.MaxHorizontal && e.PreferredVertical <= e.MaxVertical
}
