package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"hdmictl/internal/config"
	"hdmictl/internal/daemon"
	"hdmictl/internal/daemonrun"
	"hdmictl/internal/ipc"
	"hdmictl/internal/logging"
	"hdmictl/internal/pipeline"
	"hdmictl/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	socketPath string
}

// setupCLITestEnv writes a config file for the given properties. Unix socket
// paths are length-limited, so the socket lives in a short temp directory.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	sockDir, err := os.MkdirTemp("", "hdmictl-cli")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		socketPath: filepath.Join(sockDir, "d.sock"),
	}
}

// startDaemon runs a daemon with its control socket for the test's lifetime.
func (env *cliTestEnv) startDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	store := testsupport.MustOpenJournal(t, env.cfg)
	pipe := pipeline.New(logger, store)
	enc, err := daemonrun.NewEncoder(env.cfg, pipe, logger)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	d, err := daemon.New(env.cfg, enc, pipe, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, env.socketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping daemon CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})
	return d
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, env.socketPath, env.configPath)
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nstate_dir = %q\nlog_dir = %q\n\n", cfg.Paths.StateDir, cfg.Paths.LogDir)
	fmt.Fprintf(&b, "[encoder]\nconnector = %q\nprefix = %q\n\n", cfg.Encoder.Connector, cfg.Encoder.Prefix)
	fmt.Fprintf(&b, "[hotplug]\nudev = %t\nlogind = %t\n\n", cfg.Hotplug.Udev, cfg.Hotplug.Logind)
	fmt.Fprintf(&b, "[journal]\nenabled = %t\nhistory_limit = %d\n\n", cfg.Journal.Enabled, cfg.Journal.HistoryLimit)
	b.WriteString("[properties]\n")
	keys := make([]string, 0, len(cfg.Properties))
	for key := range cfg.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch v := cfg.Properties[key].(type) {
		case string:
			fmt.Fprintf(&b, "%q = %q\n", key, v)
		default:
			fmt.Fprintf(&b, "%q = %v\n", key, v)
		}
	}
	testsupport.WriteFile(t, path, []byte(b.String()))
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
