package daemon_test

import (
	"context"
	"testing"

	"hdmictl/internal/config"
	"hdmictl/internal/daemon"
	"hdmictl/internal/display"
	"hdmictl/internal/encoder"
	"hdmictl/internal/pipeline"
	"hdmictl/internal/props"
	"hdmictl/internal/testsupport"
)

type fakeMonitor struct {
	starts  int
	stops   int
	running bool
}

func (f *fakeMonitor) Start(context.Context) error { f.starts++; f.running = true; return nil }
func (f *fakeMonitor) Stop()                       { f.stops++; f.running = false }
func (f *fakeMonitor) Running() bool               { return f.running }

type countingSink struct {
	reasons []string
}

func (c *countingSink) Publish(_ context.Context, snap pipeline.Snapshot) error {
	c.reasons = append(c.reasons, snap.Reason)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t)
}

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *countingSink) {
	t.Helper()
	sink := &countingSink{}
	pipe := pipeline.New(nil, sink)
	enc, err := encoder.New(encoder.Options{Name: cfg.Encoder.Connector, Store: props.MapStore{}, Notifier: pipe})
	if err != nil {
		t.Fatalf("encoder.New: %v", err)
	}
	d, err := daemon.New(cfg, enc, pipe, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, sink
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error without dependencies")
	}
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	d, sink := newDaemon(t, cfg)
	monitor := &fakeMonitor{}
	d.SetMonitors(map[string]daemon.Monitor{"fake": monitor, "absent": nil})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if !status.Monitors["fake"] || len(status.Monitors) != 1 {
		t.Fatalf("unexpected monitors %v", status.Monitors)
	}
	if status.Latest == nil || status.Latest.Reason != pipeline.ReasonStartup {
		t.Fatalf("expected startup snapshot, got %+v", status.Latest)
	}
	if status.LastStatus != display.StatusUnknown {
		t.Fatalf("unexpected last status %v", status.LastStatus)
	}
	if len(sink.reasons) != 1 {
		t.Fatalf("expected one published snapshot, got %v", sink.reasons)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if monitor.stops != 1 {
		t.Fatalf("expected monitor stopped once, got %d", monitor.stops)
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testConfig(t)
	first, _ := newDaemon(t, cfg)
	second, _ := newDaemon(t, cfg)
	first.SetMonitors(nil)
	second.SetMonitors(nil)

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected lock contention error")
	}
	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestReevaluateOnRequest(t *testing.T) {
	cfg := testConfig(t)
	d, sink := newDaemon(t, cfg)

	snap, err := d.Reevaluate(context.Background(), "")
	if err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}
	if snap.Reason != pipeline.ReasonManual {
		t.Fatalf("expected manual reason, got %q", snap.Reason)
	}
	if len(snap.Modes) == 0 || snap.Preferred == nil {
		t.Fatalf("expected synthesized modes, got %+v", snap)
	}
	if len(sink.reasons) != 1 {
		t.Fatalf("expected one publish, got %v", sink.reasons)
	}
}
