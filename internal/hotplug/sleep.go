package hotplug

import (
	"context"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"hdmictl/internal/logging"
)

const (
	logindInterface = "org.freedesktop.login1.Manager"
	logindPath      = dbus.ObjectPath("/org/freedesktop/login1")
	prepareForSleep = logindInterface + ".PrepareForSleep"
	sleepMatchRule  = "type='signal',interface='" + logindInterface + "',member='PrepareForSleep',path='" + string(logindPath) + "'"
)

// Sleeper is the part of an encoder the sleep monitor drives.
type Sleeper interface {
	Suspend(ctx context.Context) error
	Resume(ctx context.Context) error
}

// SleepMonitor forwards logind sleep transitions to a Sleeper.
type SleepMonitor struct {
	logger  *slog.Logger
	target  Sleeper
	connect func() (*dbus.Conn, error)
	// wrap decorates the context passed to Resume.
	wrap func(context.Context) context.Context

	mu      sync.Mutex
	conn    *dbus.Conn
	signals chan *dbus.Signal
	quit    chan struct{}
	running bool
}

// NewSleepMonitor creates a monitor for target. wrap, when non-nil, decorates
// the context handed to Resume. A nil target yields a nil monitor.
func NewSleepMonitor(target Sleeper, wrap func(context.Context) context.Context, logger *slog.Logger) *SleepMonitor {
	if target == nil {
		return nil
	}
	return &SleepMonitor{
		logger:  logging.NewComponentLogger(logger, "sleep-monitor"),
		target:  target,
		connect: dbus.ConnectSystemBus,
		wrap:    wrap,
	}
}

// Start subscribes to PrepareForSleep. An unreachable system bus is logged
// and not returned.
func (m *SleepMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn, err := m.connect()
	if err != nil {
		m.sleepUnavailable(err)
		return nil
	}
	if call := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, sleepMatchRule); call.Err != nil {
		_ = conn.Close()
		m.sleepUnavailable(call.Err)
		return nil
	}

	signals := make(chan *dbus.Signal, 4)
	conn.Signal(signals)

	m.conn = conn
	m.signals = signals
	m.quit = make(chan struct{})
	m.running = true

	go m.loop(ctx, signals, m.quit)

	m.logger.Info("sleep monitor started",
		logging.String(logging.FieldEventType, "sleep_monitor_started"),
	)
	return nil
}

func (m *SleepMonitor) sleepUnavailable(err error) {
	logging.WarnEvent(m.logger, logging.EventLogindUnavailable,
		"logind unavailable; resume will not trigger re-evaluation", logging.Error(err))
}

// Stop unsubscribes and closes the bus connection.
func (m *SleepMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	if m.conn != nil {
		m.conn.RemoveSignal(m.signals)
		_ = m.conn.Close()
		m.conn = nil
	}
	m.signals = nil
	m.running = false

	m.logger.Info("sleep monitor stopped",
		logging.String(logging.FieldEventType, "sleep_monitor_stopped"),
	)
}

// Running reports whether the monitor is subscribed.
func (m *SleepMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *SleepMonitor) loop(ctx context.Context, signals <-chan *dbus.Signal, quit <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			m.handleSignal(ctx, sig)
		}
	}
}

func (m *SleepMonitor) handleSignal(ctx context.Context, sig *dbus.Signal) {
	if sig == nil || sig.Name != prepareForSleep || sig.Path != logindPath {
		return
	}
	var entering bool
	if err := dbus.Store(sig.Body, &entering); err != nil {
		m.logger.Debug("malformed PrepareForSleep signal", logging.Error(err))
		return
	}

	if entering {
		m.logger.Info("system suspending", logging.String(logging.FieldEventType, "suspend"))
		if err := m.target.Suspend(ctx); err != nil {
			m.logger.Debug("suspend returned error", logging.Error(err))
		}
		return
	}

	m.logger.Info("system resumed", logging.String(logging.FieldEventType, "resume"))
	resumeCtx := ctx
	if m.wrap != nil {
		resumeCtx = m.wrap(ctx)
	}
	if err := m.target.Resume(resumeCtx); err != nil {
		logging.WarnEvent(m.logger, logging.EventResumeFailed, "resume failed", logging.Error(err))
	}
}
