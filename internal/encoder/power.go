package encoder

import (
	"context"
	"fmt"
	"strings"

	"hdmictl/internal/display"
	"hdmictl/internal/logging"
)

// PowerMode is a DPMS level.
type PowerMode int

const (
	PowerOn PowerMode = iota
	PowerStandby
	PowerSuspend
	PowerOff
)

func (p PowerMode) String() string {
	switch p {
	case PowerOn:
		return "on"
	case PowerStandby:
		return "standby"
	case PowerSuspend:
		return "suspend"
	case PowerOff:
		return "off"
	default:
		return fmt.Sprintf("power(%d)", int(p))
	}
}

// ParsePowerMode accepts the names printed by String.
func ParsePowerMode(value string) (PowerMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on":
		return PowerOn, nil
	case "standby":
		return PowerStandby, nil
	case "suspend":
		return PowerSuspend, nil
	case "off":
		return PowerOff, nil
	default:
		return PowerOn, fmt.Errorf("unknown power mode %q", value)
	}
}

// The encoder has no power domain of its own. The transitions below succeed
// without touching hardware because downstream orchestration calls them
// unconditionally.

// SetPower accepts any DPMS level, including unknown ones, and records it for
// diagnostics.
func (e *Encoder) SetPower(mode PowerMode) error {
	e.mu.Lock()
	e.power = mode
	e.mu.Unlock()
	e.logger.Debug("power transition accepted", logging.String("power", mode.String()))
	return nil
}

// PowerMode returns the last level passed to SetPower.
func (e *Encoder) PowerMode() PowerMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.power
}

// Save is accepted and inert.
func (e *Encoder) Save() error {
	e.logger.Debug("save accepted")
	return nil
}

// Restore is accepted and inert.
func (e *Encoder) Restore() error {
	e.logger.Debug("restore accepted")
	return nil
}

// Fixup accepts every adjusted mode unchanged.
func (e *Encoder) Fixup(*display.Mode) bool { return true }

// SetMode is accepted and inert; the encoder has no timing registers.
func (e *Encoder) SetMode(mode display.Mode) {
	e.logger.Debug("mode set accepted", logging.String("mode", mode.String()))
}

// Suspend has nothing to persist and sends no notification.
func (e *Encoder) Suspend(context.Context) error {
	return nil
}

// Resume asks the host to re-evaluate the connection exactly once so that a
// display changed while suspended is rediscovered.
func (e *Encoder) Resume(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.logger.Debug("resume, requesting re-evaluation", logging.String(logging.FieldEventType, "resume"))
	e.notifier.Hotplug(ctx, e)
	return nil
}
