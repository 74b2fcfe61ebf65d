package pipeline

import (
	"encoding/hex"
	"time"

	"hdmictl/internal/display"
	"hdmictl/internal/encoder"
)

// Reasons recorded on snapshots.
const (
	ReasonStartup = "startup"
	ReasonHotplug = "hotplug"
	ReasonResume  = "resume"
	ReasonManual  = "manual"
)

// Snapshot is the published result of one re-evaluation pass.
type Snapshot struct {
	ID        string                  `json:"id"`
	Connector string                  `json:"connector"`
	Reason    string                  `json:"reason"`
	Status    display.Status          `json:"status"`
	Source    encoder.ModeSource      `json:"source,omitempty"`
	Modes     []display.Mode          `json:"modes"`
	Preferred *display.Mode           `json:"preferred,omitempty"`
	Rejected  map[encoder.Verdict]int `json:"rejected,omitempty"`
	EDID      string                  `json:"edid,omitempty"`
	At        time.Time               `json:"at"`
}

// RejectedTotal sums the rejection counts.
func (s Snapshot) RejectedTotal() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

// EDIDBytes decodes the hex-encoded EDID blob, if any.
func (s Snapshot) EDIDBytes() []byte {
	if s.EDID == "" {
		return nil
	}
	raw, err := hex.DecodeString(s.EDID)
	if err != nil {
		return nil
	}
	return raw
}
