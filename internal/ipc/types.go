package ipc

import (
	"time"

	"hdmictl/internal/encoder"
	"hdmictl/internal/pipeline"
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// EnvelopeView is the wire form of encoder.Envelope.
type EnvelopeView struct {
	MaxPixelClockKHz    uint32   `json:"max_pixel_clock_khz"`
	MaxHorizontal       uint32   `json:"max_horizontal"`
	MaxVertical         uint32   `json:"max_vertical"`
	PreferredHorizontal uint32   `json:"preferred_horizontal"`
	PreferredVertical   uint32   `json:"preferred_vertical"`
	Defaulted           []string `json:"defaulted,omitempty"`
}

// NewEnvelopeView converts an envelope for transport or JSON output.
func NewEnvelopeView(env encoder.Envelope) EnvelopeView {
	return EnvelopeView{
		MaxPixelClockKHz:    env.MaxPixelClockKHz,
		MaxHorizontal:       env.MaxHorizontal,
		MaxVertical:         env.MaxVertical,
		PreferredHorizontal: env.PreferredHorizontal,
		PreferredVertical:   env.PreferredVertical,
		Defaulted:           env.Defaulted(),
	}
}

// StatusResponse represents daemon and connector status.
type StatusResponse struct {
	Running     bool               `json:"running"`
	PID         int                `json:"pid"`
	Connector   string             `json:"connector"`
	Started     time.Time          `json:"started"`
	LastStatus  string             `json:"last_status"`
	Power       string             `json:"power"`
	HasChannel  bool               `json:"has_channel"`
	Envelope    EnvelopeView       `json:"envelope"`
	Monitors    map[string]bool    `json:"monitors"`
	LockPath    string             `json:"lock_path"`
	JournalPath string             `json:"journal_path,omitempty"`
	Latest      *pipeline.Snapshot `json:"latest,omitempty"`
}

// ReevaluateRequest asks the daemon for a re-evaluation pass.
type ReevaluateRequest struct {
	Reason string `json:"reason"`
}

// ReevaluateResponse carries the resulting snapshot.
type ReevaluateResponse struct {
	Snapshot pipeline.Snapshot `json:"snapshot"`
	// PublishError is set when a sink failed; the snapshot is still valid.
	PublishError string `json:"publish_error,omitempty"`
}

// PowerRequest forwards a DPMS level to the encoder.
type PowerRequest struct {
	Mode string `json:"mode"`
}

// PowerResponse echoes the accepted level.
type PowerResponse struct {
	Mode string `json:"mode"`
}
