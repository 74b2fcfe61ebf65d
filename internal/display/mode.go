package display

import (
	"fmt"
	"strings"
)

// Mode describes one video timing as seen by the negotiation layer. Only the
// fields the validator inspects plus a few descriptive ones are carried.
type Mode struct {
	Name          string `json:"name"`
	PixelClockKHz uint32 `json:"pixel_clock_khz"`
	Horizontal    uint32 `json:"horizontal"`
	Vertical      uint32 `json:"vertical"`
	RefreshHz     uint32 `json:"refresh_hz,omitempty"`
	Interlaced    bool   `json:"interlaced,omitempty"`
	DoubleClock   bool   `json:"double_clock,omitempty"`
	Stereo3D      bool   `json:"stereo_3d,omitempty"`
	Preferred     bool   `json:"preferred,omitempty"`
}

// Resolution reports whether the mode has exactly the given active area.
func (m Mode) Resolution(h, v uint32) bool {
	return m.Horizontal == h && m.Vertical == v
}

// String renders the mode the way xrandr-style tools do, e.g. 1920x1080i@60.
func (m Mode) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx%d", m.Horizontal, m.Vertical)
	if m.Interlaced {
		b.WriteByte('i')
	}
	if m.RefreshHz > 0 {
		fmt.Fprintf(&b, "@%d", m.RefreshHz)
	}
	return b.String()
}

// ModeName returns the canonical "WxH" name used for Mode.Name.
func ModeName(h, v uint32, interlaced bool) string {
	if interlaced {
		return fmt.Sprintf("%dx%di", h, v)
	}
	return fmt.Sprintf("%dx%d", h, v)
}
