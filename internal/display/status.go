package display

// Status is the connector state reported by a detection pass.
type Status int

const (
	StatusUnknown Status = iota
	StatusConnected
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of String; unrecognised input maps to StatusUnknown.
func ParseStatus(value string) Status {
	switch value {
	case "connected":
		return StatusConnected
	case "disconnected":
		return StatusDisconnected
	default:
		return StatusUnknown
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}
