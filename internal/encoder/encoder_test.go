package encoder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"hdmictl/internal/ddc"
	"hdmictl/internal/display"
	"hdmictl/internal/edid"
	"hdmictl/internal/encoder"
	"hdmictl/internal/props"
)

type fakeChannel struct {
	probeErr error
	edid     []byte
	readErr  error
	probes   int
	reads    int
	closed   int
}

func (f *fakeChannel) Name() string { return "fake-i2c" }

func (f *fakeChannel) Probe(ctx context.Context) error {
	f.probes++
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.probeErr
}

func (f *fakeChannel) ReadEDID(context.Context) ([]byte, error) {
	f.reads++
	return f.edid, f.readErr
}

func (f *fakeChannel) Close() error { f.closed++; return nil }

func openerFor(ch ddc.Channel) ddc.Opener {
	return func(string, ddc.Options) (ddc.Channel, error) { return ch, nil }
}

type recordingNotifier struct {
	calls []encoder.Capabilities
}

func (r *recordingNotifier) Hotplug(_ context.Context, enc encoder.Capabilities) {
	r.calls = append(r.calls, enc)
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func countEvents(entries []map[string]any, eventType string) int {
	n := 0
	for _, entry := range entries {
		if entry["event_type"] == eventType {
			n++
		}
	}
	return n
}

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := encoder.New(encoder.Options{}); !errors.Is(err, encoder.ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestEmptyStoreYieldsDefaultsWithFiveDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	enc, err := encoder.New(encoder.Options{Store: props.MapStore{}, Logger: newLogger(&buf)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer enc.Close()

	env := enc.Envelope()
	want := encoder.DefaultEnvelope()
	if !env.Equal(want) {
		t.Fatalf("envelope %+v, want %+v", env, want)
	}
	if env.MaxPixelClockKHz != 150000 || env.MaxHorizontal != 1920 || env.MaxVertical != 1080 ||
		env.PreferredHorizontal != 1280 || env.PreferredVertical != 720 {
		t.Fatalf("unexpected defaults %+v", env)
	}
	if got := len(env.Defaulted()); got != 5 {
		t.Fatalf("expected 5 defaulted keys, got %v", env.Defaulted())
	}
	if got := countEvents(logEntries(t, &buf), "config_defaulted"); got != 5 {
		t.Fatalf("expected 5 config_defaulted diagnostics, got %d", got)
	}
	if enc.HasChannel() {
		t.Fatal("expected no channel without reference")
	}
}

func TestResolveEnvelopeUsesStoreValues(t *testing.T) {
	store := props.MapStore{
		"acme,max-pclock":    int64(74250),
		"acme,max-horz-res":  int64(1280),
		"acme,max-vert-res":  "720",
		"acme,pref-horz-res": int64(0),
		"acme,pref-vert-res": "tall",
	}
	env := encoder.ResolveEnvelope(store, "acme,", nil)
	if env.MaxPixelClockKHz != 74250 || env.MaxHorizontal != 1280 || env.MaxVertical != 720 {
		t.Fatalf("store values not used: %+v", env)
	}
	if env.PreferredHorizontal != encoder.DefaultPreferredHorizontal || env.PreferredVertical != encoder.DefaultPreferredVertical {
		t.Fatalf("zero and malformed values must default: %+v", env)
	}
	got := env.Defaulted()
	if len(got) != 2 || got[0] != "acme,pref-horz-res" || got[1] != "acme,pref-vert-res" {
		t.Fatalf("unexpected defaulted keys %v", got)
	}
	got[0] = "mutated"
	if env.Defaulted()[0] != "acme,pref-horz-res" {
		t.Fatal("Defaulted must return a copy")
	}
}

func TestChannelUnavailableFallsBackToSynthesized(t *testing.T) {
	var buf bytes.Buffer
	store := props.MapStore{"realdigital,i2c-edid": "/dev/i2c-9"}
	opener := func(string, ddc.Options) (ddc.Channel, error) { return nil, ddc.ErrUnavailable }

	enc, err := encoder.New(encoder.Options{Store: store, Opener: opener, Logger: newLogger(&buf)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if enc.HasChannel() {
		t.Fatal("expected no channel")
	}
	if got := countEvents(logEntries(t, &buf), "channel_unavailable"); got != 1 {
		t.Fatalf("expected one channel_unavailable diagnostic, got %d", got)
	}
	if status := enc.Detect(context.Background()); status != display.StatusUnknown {
		t.Fatalf("expected unknown status, got %v", status)
	}
	if set := enc.Modes(context.Background()); set.Source != encoder.SourceEnvelope || set.Empty() {
		t.Fatalf("expected synthesized modes, got %+v", set)
	}
}

func TestSynthesizedModesBoundedWithPreferred(t *testing.T) {
	tests := []struct {
		name  string
		store props.MapStore
		maxH  uint32
		maxV  uint32
		prefH uint32
		prefV uint32
		// noPreferred marks a preferred resolution larger than the maximum.
		noPreferred bool
	}{
		{name: "defaults", store: props.MapStore{}, maxH: 1920, maxV: 1080, prefH: 1280, prefV: 720},
		{
			name:        "preferred wider than maximum",
			store:       props.MapStore{"realdigital,max-horz-res": int64(1024), "realdigital,max-vert-res": int64(768)},
			maxH:        1024,
			maxV:        768,
			noPreferred: true,
		},
		{
			name: "small panel",
			store: props.MapStore{
				"realdigital,max-horz-res":  int64(1024),
				"realdigital,max-vert-res":  int64(768),
				"realdigital,pref-horz-res": int64(800),
				"realdigital,pref-vert-res": int64(600),
			},
			maxH: 1024, maxV: 768, prefH: 800, prefV: 600,
		},
		{
			name: "preferred missing from table",
			store: props.MapStore{
				"realdigital,pref-horz-res": int64(1000),
				"realdigital,pref-vert-res": int64(700),
			},
			maxH: 1920, maxV: 1080, prefH: 1000, prefV: 700,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := encoder.New(encoder.Options{Store: tt.store})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			set := enc.Modes(context.Background())
			if set.Empty() {
				t.Fatal("expected synthesized modes")
			}
			if set.Source != encoder.SourceEnvelope {
				t.Fatalf("unexpected source %q", set.Source)
			}
			for _, mode := range set.Modes {
				if mode.Horizontal > tt.maxH || mode.Vertical > tt.maxV {
					t.Fatalf("mode %v exceeds %dx%d", mode, tt.maxH, tt.maxV)
				}
			}
			if tt.noPreferred {
				if set.Preferred != nil {
					t.Fatalf("expected no preferred mode, got %v", *set.Preferred)
				}
				for _, mode := range set.Modes {
					if mode.Preferred {
						t.Fatalf("mode %v flagged preferred", mode)
					}
				}
				return
			}
			if set.Preferred == nil {
				t.Fatal("expected preferred mode")
			}
			if !set.Preferred.Resolution(tt.prefH, tt.prefV) {
				t.Fatalf("preferred %v, want %dx%d", *set.Preferred, tt.prefH, tt.prefV)
			}
			preferredCount := 0
			for _, mode := range set.Modes {
				if mode.Preferred {
					preferredCount++
				}
			}
			if preferredCount != 1 {
				t.Fatalf("expected exactly one preferred entry, got %d", preferredCount)
			}
			if set.EDID != nil {
				t.Fatal("synthesized set must not carry edid")
			}
		})
	}
}

func TestProbeFailureMeansDisconnectedAndNoModes(t *testing.T) {
	ch := &fakeChannel{probeErr: ddc.ErrProbeFailed, readErr: ddc.ErrProbeFailed}
	enc, err := encoder.New(encoder.Options{
		Store:  props.MapStore{"realdigital,i2c-edid": "/dev/i2c-1"},
		Opener: openerFor(ch),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if status := enc.Detect(context.Background()); status != display.StatusDisconnected {
		t.Fatalf("expected disconnected, got %v", status)
	}
	if enc.LastStatus() != display.StatusDisconnected {
		t.Fatalf("diagnostic cache not updated: %v", enc.LastStatus())
	}
	set := enc.Modes(context.Background())
	if !set.Empty() || set.Preferred != nil {
		t.Fatalf("expected empty set without preferred, got %+v", set)
	}
	if set.Source != encoder.SourceDisplay {
		t.Fatalf("sources must not mix, got %q", set.Source)
	}
	if ch.probes != 1 || ch.reads != 1 {
		t.Fatalf("unexpected channel use: probes=%d reads=%d", ch.probes, ch.reads)
	}
}

func TestDetectTimeoutIsDisconnected(t *testing.T) {
	ch := &fakeChannel{}
	enc, err := encoder.New(encoder.Options{
		Store:  props.MapStore{"realdigital,i2c-edid": "/dev/i2c-1"},
		Opener: openerFor(ch),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if status := enc.Detect(ctx); status != display.StatusDisconnected {
		t.Fatalf("expected disconnected on expired context, got %v", status)
	}
	if status := enc.Detect(context.Background()); status != display.StatusConnected {
		t.Fatalf("expected connected, got %v", status)
	}
}

func TestDisplayModesComeFromParser(t *testing.T) {
	raw := []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}
	ch := &fakeChannel{edid: raw}
	parsed := []display.Mode{
		{Name: "1920x1080", PixelClockKHz: 148500, Horizontal: 1920, Vertical: 1080, RefreshHz: 60, Preferred: true},
		{Name: "1280x720", PixelClockKHz: 74250, Horizontal: 1280, Vertical: 720, RefreshHz: 60},
	}
	parser := edid.ParseFunc(func(got []byte) ([]display.Mode, error) {
		if !bytes.Equal(got, raw) {
			t.Fatalf("parser received %x", got)
		}
		return parsed, nil
	})
	enc, err := encoder.New(encoder.Options{
		Store: props.MapStore{
			"realdigital,i2c-edid":      "/dev/i2c-1",
			"realdigital,pref-horz-res": int64(640),
			"realdigital,pref-vert-res": int64(480),
		},
		Opener: openerFor(ch),
		Parser: parser,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	set := enc.Modes(context.Background())
	if set.Source != encoder.SourceDisplay {
		t.Fatalf("unexpected source %q", set.Source)
	}
	if len(set.Modes) != 2 {
		t.Fatalf("expected parsed modes verbatim, got %v", set.Modes)
	}
	if set.Preferred == nil || !set.Preferred.Resolution(1920, 1080) {
		t.Fatalf("display preferred mode must stand, got %v", set.Preferred)
	}
	if !bytes.Equal(set.EDID, raw) {
		t.Fatalf("edid blob not exposed: %x", set.EDID)
	}
}

func TestDisplayWithoutPreferredInjectsNone(t *testing.T) {
	ch := &fakeChannel{edid: []byte{1, 2, 3}}
	parser := edid.ParseFunc(func([]byte) ([]display.Mode, error) {
		return []display.Mode{{Horizontal: 1024, Vertical: 768, PixelClockKHz: 65000}}, nil
	})
	enc, err := encoder.New(encoder.Options{
		Store:  props.MapStore{"realdigital,i2c-edid": "/dev/i2c-1"},
		Opener: openerFor(ch),
		Parser: parser,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	set := enc.Modes(context.Background())
	if len(set.Modes) != 1 || set.Preferred != nil {
		t.Fatalf("expected one mode and no preferred, got %+v", set)
	}
}

func TestUnparsableEDIDGivesNoModes(t *testing.T) {
	var buf bytes.Buffer
	ch := &fakeChannel{edid: []byte{0xde, 0xad}}
	enc, err := encoder.New(encoder.Options{
		Store:  props.MapStore{"realdigital,i2c-edid": "/dev/i2c-1"},
		Opener: openerFor(ch),
		Logger: newLogger(&buf),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	set := enc.Modes(context.Background())
	if !set.Empty() || set.Preferred != nil || set.EDID != nil {
		t.Fatalf("expected empty set, got %+v", set)
	}
	if got := countEvents(logEntries(t, &buf), "edid_invalid"); got != 1 {
		t.Fatalf("expected edid_invalid warning, got %d", got)
	}
}

func TestResumeNotifiesExactlyOnceSuspendNever(t *testing.T) {
	notifier := &recordingNotifier{}
	enc, err := encoder.New(encoder.Options{Store: props.MapStore{}, Notifier: notifier})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := enc.Suspend(context.Background()); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if len(notifier.calls) != 0 {
		t.Fatalf("suspend must not notify, got %d calls", len(notifier.calls))
	}
	if err := enc.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("expected exactly one hotplug, got %d", len(notifier.calls))
	}
	if notifier.calls[0] != encoder.Capabilities(enc) {
		t.Fatal("hotplug must carry the resumed encoder")
	}
}

func TestPowerTransitionsAreInert(t *testing.T) {
	notifier := &recordingNotifier{}
	ch := &fakeChannel{}
	enc, err := encoder.New(encoder.Options{
		Store:    props.MapStore{"realdigital,i2c-edid": "/dev/i2c-1"},
		Opener:   openerFor(ch),
		Notifier: notifier,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, mode := range []encoder.PowerMode{encoder.PowerOff, encoder.PowerStandby, encoder.PowerSuspend, encoder.PowerOn, encoder.PowerMode(42)} {
		if err := enc.SetPower(mode); err != nil {
			t.Fatalf("SetPower(%v): %v", mode, err)
		}
	}
	if err := enc.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := enc.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	mode := display.Mode{Horizontal: 1280, Vertical: 720}
	if !enc.Fixup(&mode) {
		t.Fatal("Fixup must accept")
	}
	enc.SetMode(mode)
	if enc.PowerMode() != encoder.PowerMode(42) {
		t.Fatalf("power mode not recorded: %v", enc.PowerMode())
	}
	if len(notifier.calls) != 0 || ch.probes != 0 || ch.reads != 0 {
		t.Fatalf("power transitions must be inert: notifies=%d probes=%d reads=%d", len(notifier.calls), ch.probes, ch.reads)
	}
}

func TestCloseReleasesChannelOnce(t *testing.T) {
	ch := &fakeChannel{}
	enc, err := encoder.New(encoder.Options{
		Store:  props.MapStore{"realdigital,i2c-edid": "/dev/i2c-1"},
		Opener: openerFor(ch),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if ch.closed != 1 {
		t.Fatalf("expected channel closed once, got %d", ch.closed)
	}
}

func TestParsePowerMode(t *testing.T) {
	for _, name := range []string{"on", "standby", "suspend", "off"} {
		mode, err := encoder.ParsePowerMode(name)
		if err != nil {
			t.Fatalf("ParsePowerMode(%q): %v", name, err)
		}
		if mode.String() != name {
			t.Fatalf("round trip %q -> %q", name, mode.String())
		}
	}
	if _, err := encoder.ParsePowerMode("hibernate"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
