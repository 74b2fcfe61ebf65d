package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hdmictl/internal/display"
	"hdmictl/internal/encoder"
	"hdmictl/internal/logging"
)

// Sink receives published snapshots.
type Sink interface {
	Publish(ctx context.Context, snap Snapshot) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, snap Snapshot) error

func (f SinkFunc) Publish(ctx context.Context, snap Snapshot) error { return f(ctx, snap) }

// Pipeline serializes re-evaluation passes and fans their results out to sinks.
type Pipeline struct {
	logger *slog.Logger
	sinks  []Sink
	now    func() time.Time

	mu     sync.Mutex
	latest map[string]Snapshot
}

var _ encoder.Notifier = (*Pipeline)(nil)

// New creates a pipeline publishing to the given sinks. Nil sinks are skipped.
func New(logger *slog.Logger, sinks ...Sink) *Pipeline {
	live := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			live = append(live, sink)
		}
	}
	return &Pipeline{
		logger: logging.NewComponentLogger(logger, "pipeline"),
		sinks:  live,
		now:    time.Now,
		latest: make(map[string]Snapshot),
	}
}

// Hotplug implements encoder.Notifier.
func (p *Pipeline) Hotplug(ctx context.Context, enc encoder.Capabilities) {
	reason := ReasonHotplug
	if r, ok := ctx.Value(reasonKey{}).(string); ok && r != "" {
		reason = r
	}
	if _, err := p.Reevaluate(ctx, enc, reason); err != nil {
		logging.WarnEvent(p.logger, logging.EventPublishFailed, "snapshot publish failed",
			logging.Error(err),
			logging.String(logging.FieldConnector, enc.Name()),
		)
	}
}

type reasonKey struct{}

// WithReason tags ctx so a Hotplug triggered under it records reason instead
// of the generic hotplug reason.
func WithReason(ctx context.Context, reason string) context.Context {
	return context.WithValue(ctx, reasonKey{}, reason)
}

// Reevaluate runs one detect and enumerate pass against enc and publishes the
// snapshot. The returned error only reports sink failures; the snapshot is
// always valid.
func (p *Pipeline) Reevaluate(ctx context.Context, enc encoder.Capabilities, reason string) (Snapshot, error) {
	if enc == nil {
		return Snapshot{}, errors.New("reevaluate: nil encoder")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		ID:        uuid.NewString(),
		Connector: enc.Name(),
		Reason:    reason,
		At:        p.now().UTC(),
	}
	ctx = logging.WithCorrelationID(ctx, snap.ID)
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldConnector, snap.Connector))

	snap.Status = enc.Detect(ctx)
	if snap.Status == display.StatusDisconnected {
		snap.Modes = []display.Mode{}
	} else {
		set := enc.Modes(ctx)
		snap.Source = set.Source
		snap.Modes, snap.Rejected = encoder.Filter(set.Modes, enc)
		if set.Preferred != nil {
			verdict := enc.Validate(set.Preferred)
			if verdict.OK() {
				preferred := *set.Preferred
				snap.Preferred = &preferred
			}
			logger.Debug("preferred mode decision",
				logging.Decision("preferred_mode", verdict.String(), set.Preferred.String())...,
			)
		}
		if len(set.EDID) > 0 {
			snap.EDID = hex.EncodeToString(set.EDID)
		}
	}

	logger.Info("connector re-evaluated",
		logging.String("reason", reason),
		logging.String("status", snap.Status.String()),
		logging.String("source", string(snap.Source)),
		logging.Int("modes", len(snap.Modes)),
		logging.Int("rejected", snap.RejectedTotal()),
		logging.String(logging.FieldEventType, "reevaluated"),
	)
	for verdict, n := range snap.Rejected {
		logger.Debug("modes rejected",
			logging.String("verdict", verdict.String()),
			logging.Int("count", n),
		)
	}

	p.latest[snap.Connector] = snap

	var errs []error
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("publish snapshot %s: %w", snap.ID, err))
		}
	}
	return snap, errors.Join(errs...)
}

// Latest returns the most recent snapshot for connector.
func (p *Pipeline) Latest(connector string) (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap, ok := p.latest[connector]
	return snap, ok
}
