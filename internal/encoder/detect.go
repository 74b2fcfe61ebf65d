package encoder

import (
	"context"

	"hdmictl/internal/display"
	"hdmictl/internal/logging"
)

// Detect reports the connector status. Without a DDC channel the status is
// always unknown. With one, a single presence probe decides: success means
// connected and any failure, including a timeout, means disconnected. Detect
// builds no mode list and sends no notification.
func (e *Encoder) Detect(ctx context.Context) display.Status {
	status := display.StatusUnknown
	if e.channel != nil {
		probeCtx, cancel := e.probeContext(ctx)
		err := e.channel.Probe(probeCtx)
		cancel()
		if err != nil {
			status = display.StatusDisconnected
			logging.WithContext(ctx, e.logger).Debug("ddc probe failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "probe_failed"),
			)
		} else {
			status = display.StatusConnected
		}
	}

	e.mu.Lock()
	e.lastStatus = status
	e.mu.Unlock()
	return status
}
