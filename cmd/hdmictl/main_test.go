package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hdmictl/internal/encoder"
	"hdmictl/internal/ipc"
	"hdmictl/internal/pipeline"
	"hdmictl/internal/testsupport"
)

func TestCLIEnvelopeReportsDefaults(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithProperties(map[string]any{
		"realdigital,max-pclock": int64(74250),
	}))

	stdout, _, err := env.run(t, "envelope")
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	requireContains(t, stdout, "realdigital,max-pclock")
	requireContains(t, stdout, "74250")
	requireContains(t, stdout, "configured")
	requireContains(t, stdout, "default")

	stdout, _, err = env.run(t, "envelope", "--json")
	if err != nil {
		t.Fatalf("envelope --json: %v", err)
	}
	var view ipc.EnvelopeView
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatalf("decode envelope: %v\n%s", err, stdout)
	}
	if view.MaxPixelClockKHz != 74250 || view.MaxHorizontal != encoder.DefaultMaxHorizontal {
		t.Fatalf("unexpected envelope %+v", view)
	}
	if len(view.Defaulted) != 4 {
		t.Fatalf("expected four defaulted keys, got %v", view.Defaulted)
	}
	for _, key := range view.Defaulted {
		if key == "realdigital,max-pclock" {
			t.Fatalf("configured key reported as defaulted: %v", view.Defaulted)
		}
	}
}

func TestCLIDetect(t *testing.T) {
	t.Run("no channel", func(t *testing.T) {
		env := setupCLITestEnv(t)
		stdout, _, err := env.run(t, "detect", "--json")
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		var result map[string]any
		if err := json.Unmarshal([]byte(stdout), &result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result["status"] != "unknown" || result["has_channel"] != false {
			t.Fatalf("unexpected detect result %v", result)
		}
	})

	t.Run("edid file", func(t *testing.T) {
		env := setupCLITestEnv(t, testsupport.WithEDIDFile(testsupport.EDID(testsupport.Timing1080p60)))
		stdout, _, err := env.run(t, "detect")
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		requireContains(t, stdout, "HDMI-A-1")
		requireContains(t, stdout, "Connected")
	})

	t.Run("empty edid file", func(t *testing.T) {
		env := setupCLITestEnv(t, testsupport.WithEDIDFile(nil))
		stdout, _, err := env.run(t, "detect")
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		requireContains(t, stdout, "Disconnected")
	})
}

func TestCLIModesFromDisplay(t *testing.T) {
	raw := testsupport.EDID(testsupport.Timing1080p60, testsupport.Timing720p60, testsupport.Timing1080i60)
	env := setupCLITestEnv(t, testsupport.WithEDIDFile(raw))

	stdout, _, err := env.run(t, "modes", "--json")
	if err != nil {
		t.Fatalf("modes: %v", err)
	}
	var result modesResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if result.Source != encoder.SourceDisplay {
		t.Fatalf("expected display source, got %q", result.Source)
	}
	if result.Identity == nil || result.Identity.Manufacturer != "RDG" {
		t.Fatalf("unexpected identity %+v", result.Identity)
	}
	if len(result.Modes) != 2 {
		t.Fatalf("expected interlaced mode filtered out, got %+v", result.Modes)
	}
	if result.Preferred == nil || !result.Preferred.Resolution(1920, 1080) {
		t.Fatalf("expected 1080p preferred, got %+v", result.Preferred)
	}
	if result.EDID != "" {
		t.Fatal("EDID should only be included with --edid")
	}

	stdout, _, err = env.run(t, "modes", "--all", "--edid")
	if err != nil {
		t.Fatalf("modes --all: %v", err)
	}
	requireContains(t, stdout, "3 modes from display EDID")
	requireContains(t, stdout, "Interlace Unsupported")
	requireContains(t, stdout, "EDID: 00ffffffffffff00")
}

func TestCLIModesSynthesized(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithProperties(map[string]any{
		"realdigital,max-horz-res": int64(1280),
		"realdigital,max-vert-res": int64(720),
	}))
	stdout, _, err := env.run(t, "modes", "--json")
	if err != nil {
		t.Fatalf("modes: %v", err)
	}
	var result modesResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Source != encoder.SourceEnvelope || len(result.Modes) == 0 {
		t.Fatalf("expected synthesized modes, got %+v", result)
	}
	for _, m := range result.Modes {
		if m.Horizontal > 1280 || m.Vertical > 720 {
			t.Fatalf("mode %s exceeds limits", m.Name)
		}
	}
	if result.Preferred == nil || !result.Preferred.Resolution(1280, 720) {
		t.Fatalf("expected 1280x720 preferred, got %+v", result.Preferred)
	}
}

func TestCLIValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, "validate", "--clock", "148500", "--width", "1920", "--height", "1080")
	if err != nil {
		t.Fatalf("validate accepted mode: %v", err)
	}
	requireContains(t, stdout, "1920x1080")
	requireContains(t, stdout, "Ok")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"clock", []string{"--clock", "165000", "--width", "1920", "--height", "1080"}, "clock_too_high"},
		{"resolution", []string{"--clock", "100000", "--width", "2560", "--height", "1080"}, "resolution_too_large"},
		{"interlace", []string{"--clock", "74250", "--width", "1920", "--height", "1080", "--interlaced"}, "interlace_unsupported"},
		{"stereo", []string{"--clock", "74250", "--width", "1280", "--height", "720", "--stereo"}, "bad_mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.run(t, append([]string{"validate"}, tt.args...)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected rejection %q, got %v", tt.want, err)
			}
		})
	}

	if _, _, err := env.run(t, "validate", "--width", "1920", "--height", "1080"); err == nil {
		t.Fatal("expected missing --clock to fail")
	}
}

func TestCLIHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, stdout, "No snapshots recorded yet")

	env.startDaemon(t)

	stdout, _, err = env.run(t, "history", "--json")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var snaps []pipeline.Snapshot
	if err := json.Unmarshal([]byte(stdout), &snaps); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if len(snaps) != 1 || snaps[0].Reason != pipeline.ReasonStartup {
		t.Fatalf("expected the startup snapshot, got %+v", snaps)
	}
}

func TestCLIDaemonCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	env.startDaemon(t)

	stdout, _, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, stdout, "Running")
	requireContains(t, stdout, "Connector HDMI-A-1")
	requireContains(t, stdout, "1920x1080 @ 150000 kHz")

	stdout, _, err = env.run(t, "reevaluate", "--json")
	if err != nil {
		t.Fatalf("reevaluate: %v", err)
	}
	var resp ipc.ReevaluateResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Snapshot.Reason != pipeline.ReasonManual || len(resp.Snapshot.Modes) == 0 {
		t.Fatalf("unexpected snapshot %+v", resp.Snapshot)
	}

	stdout, _, err = env.run(t, "power", "standby")
	if err != nil {
		t.Fatalf("power: %v", err)
	}
	requireContains(t, stdout, "standby")

	stdout, _, err = env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status ipc.StatusResponse
	if err := json.Unmarshal([]byte(stdout), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Power != "standby" || status.Latest == nil || status.Latest.ID != resp.Snapshot.ID {
		t.Fatalf("unexpected status %+v", status)
	}

	if _, _, err := env.run(t, "power", "hibernate"); err == nil {
		t.Fatal("expected unknown power level to fail")
	}
}

func TestCLIStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t, "status")
	if err == nil {
		t.Fatal("expected status to fail without a daemon")
	}
	requireContains(t, err.Error(), "hdmictl start")
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "hdmictl", "config.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	stdout, _, err = runCLI(t, []string{"config", "validate"}, "", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "Configuration valid")
	requireContains(t, stdout, `prefix "realdigital,"`)
	requireContains(t, stdout, "Limits: 150000 kHz, max 1920x1080, preferred 1280x720")
	requireContains(t, stdout, "Defaulted: realdigital,max-pclock")
}
