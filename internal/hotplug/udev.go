package hotplug

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"hdmictl/internal/logging"
)

// Handler is invoked once per accepted hotplug event.
type Handler func(ctx context.Context, device string)

// UdevMonitor watches udev for display hotplug events.
type UdevMonitor struct {
	logger    *slog.Logger
	handler   Handler
	subsystem string
	device    string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewUdevMonitor creates a monitor for change events in subsystem. A non-empty
// device limits events to that DRM card (e.g. card0). A nil handler yields a
// nil monitor; all methods are safe on nil.
func NewUdevMonitor(subsystem, device string, handler Handler, logger *slog.Logger) *UdevMonitor {
	if handler == nil {
		return nil
	}
	subsystem = strings.TrimSpace(subsystem)
	if subsystem == "" {
		subsystem = "drm"
	}
	return &UdevMonitor{
		logger:    logging.NewComponentLogger(logger, "udev-monitor"),
		handler:   handler,
		subsystem: subsystem,
		device:    strings.TrimSpace(device),
	}
}

// Start begins listening. Failing to open the netlink socket is logged and
// not returned.
func (m *UdevMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnEvent(m.logger, logging.EventNetlinkConnectFailed,
			"failed to connect to netlink socket; hotplug events will not be seen", logging.Error(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("udev monitor started",
		logging.String(logging.FieldEventType, "udev_monitor_started"),
		logging.String("subsystem", m.subsystem),
		logging.String("device", m.device),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *UdevMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("udev monitor stopped",
		logging.String(logging.FieldEventType, "udev_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *UdevMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *UdevMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("udev monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "udev_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "hotplug events may be missed"),
			)
		}
	}
}

// buildMatcher accepts SUBSYSTEM=<subsystem>, HOTPLUG=1, ACTION=change.
func (m *UdevMonitor) buildMatcher() netlink.Matcher {
	action := "^change$"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "^" + m.subsystem + "$",
			"HOTPLUG":   "^1$",
		},
	})
	return rules
}

func (m *UdevMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	card := cardName(uevent)
	if m.device != "" && card != m.device {
		m.logger.Debug("ignoring hotplug for other card",
			logging.String("device", card),
			logging.String("configured_device", m.device),
		)
		return
	}

	m.logger.Info("display hotplug event",
		logging.String(logging.FieldEventType, "udev_hotplug"),
		logging.String("device", card),
		logging.String("action", string(uevent.Action)),
	)
	m.handler(ctx, card)
}

// cardName extracts the DRM card name from DEVNAME (dri/card0) or DEVPATH.
func cardName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return path.Base(devname)
	}
	if devpath := uevent.Env["DEVPATH"]; devpath != "" {
		return path.Base(devpath)
	}
	return path.Base(uevent.KObj)
}
