package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"hdmictl/internal/config"
	"hdmictl/internal/display"
	"hdmictl/internal/encoder"
	"hdmictl/internal/hotplug"
	"hdmictl/internal/logging"
	"hdmictl/internal/pipeline"
)

// Monitor is an event source the daemon starts and stops with itself.
type Monitor interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// Daemon owns one encoder and keeps its published mode list current.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	encoder  *encoder.Encoder
	pipeline *pipeline.Pipeline
	monitors map[string]Monitor

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	started time.Time
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Connector    string
	Started      time.Time
	LastStatus   display.Status
	Power        encoder.PowerMode
	Envelope     encoder.Envelope
	HasChannel   bool
	Latest       *pipeline.Snapshot
	Monitors     map[string]bool
	LockFilePath string
	JournalPath  string
}

// New constructs a daemon around an attached encoder and its pipeline. The
// hotplug and sleep monitors are created from cfg; the encoder must have been
// built with pipe as its notifier for resume to reach the pipeline.
func New(cfg *config.Config, enc *encoder.Encoder, pipe *pipeline.Pipeline, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || enc == nil || pipe == nil {
		return nil, errors.New("daemon requires config, encoder, and pipeline")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		encoder:  enc,
		pipeline: pipe,
		monitors: make(map[string]Monitor),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}

	if cfg.Hotplug.Udev {
		if m := hotplug.NewUdevMonitor(cfg.Hotplug.Subsystem, cfg.Hotplug.Device, d.onHotplug, logger); m != nil {
			d.monitors["udev"] = m
		}
	}
	if cfg.Hotplug.Logind {
		wrap := func(ctx context.Context) context.Context {
			return pipeline.WithReason(ctx, pipeline.ReasonResume)
		}
		if m := hotplug.NewSleepMonitor(enc, wrap, logger); m != nil {
			d.monitors["logind"] = m
		}
	}
	return d, nil
}

// SetMonitors replaces the event sources. It must be called before Start.
func (d *Daemon) SetMonitors(monitors map[string]Monitor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.monitors = make(map[string]Monitor, len(monitors))
	for name, m := range monitors {
		if m != nil {
			d.monitors[name] = m
		}
	}
}

// Start acquires the daemon lock, starts the monitors and publishes the
// initial snapshot.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another hdmictld instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	for name, m := range d.monitors {
		if err := m.Start(d.ctx); err != nil {
			for _, started := range d.monitors {
				started.Stop()
			}
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx, d.cancel = nil, nil
			return fmt.Errorf("start %s monitor: %w", name, err)
		}
	}

	d.started = time.Now()
	d.running.Store(true)
	d.logger.Info("hdmictl daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldConnector, d.encoder.Name()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)

	if _, err := d.pipeline.Reevaluate(d.ctx, d.encoder, pipeline.ReasonStartup); err != nil {
		logging.WarnEvent(d.logger, logging.EventPublishFailed, "initial snapshot not recorded", logging.Error(err))
	}
	return nil
}

// Stop stops the monitors and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}
	for _, m := range d.monitors {
		m.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
			logging.String(logging.FieldImpact, "the next start may report another instance"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("hdmictl daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the encoder.
func (d *Daemon) Close() error {
	d.Stop()
	return d.encoder.Close()
}

// Reevaluate runs a re-evaluation pass on request.
func (d *Daemon) Reevaluate(ctx context.Context, reason string) (pipeline.Snapshot, error) {
	if reason == "" {
		reason = pipeline.ReasonManual
	}
	return d.pipeline.Reevaluate(ctx, d.encoder, reason)
}

func (d *Daemon) onHotplug(ctx context.Context, device string) {
	d.logger.Debug("hotplug received", logging.String("device", device))
	d.pipeline.Hotplug(pipeline.WithReason(ctx, pipeline.ReasonHotplug), d.encoder)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	monitors := make(map[string]bool, len(d.monitors))
	for name, m := range d.monitors {
		monitors[name] = m.Running()
	}
	started := d.started
	d.mu.Unlock()

	status := Status{
		Running:      d.running.Load(),
		Connector:    d.encoder.Name(),
		Started:      started,
		LastStatus:   d.encoder.LastStatus(),
		Power:        d.encoder.PowerMode(),
		Envelope:     d.encoder.Envelope(),
		HasChannel:   d.encoder.HasChannel(),
		Monitors:     monitors,
		LockFilePath: d.lockPath,
	}
	if d.cfg.Journal.Enabled {
		status.JournalPath = d.cfg.JournalPath()
	}
	if snap, ok := d.pipeline.Latest(d.encoder.Name()); ok {
		status.Latest = &snap
	}
	return status
}

// SetPower forwards a DPMS request to the encoder.
func (d *Daemon) SetPower(mode encoder.PowerMode) error {
	return d.encoder.SetPower(mode)
}
