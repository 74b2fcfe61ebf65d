package testsupport

import (
	"path/filepath"
	"testing"

	"hdmictl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Event sources are disabled so tests never touch netlink or the system bus.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Hotplug.Udev = false
	cfgVal.Hotplug.Logind = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return builder.cfg
}

// WithProperties sets inline encoder properties on the test config.
func WithProperties(values map[string]any) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoder.PropertySource = config.PropertySourceTOML
		b.cfg.Properties = values
	}
}

// WithEDIDFile writes raw to a file under the test directory and points the
// encoder's i2c-edid reference at it.
func WithEDIDFile(raw []byte) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "edid")
		WriteFile(b.t, path, raw)
		if b.cfg.Properties == nil {
			b.cfg.Properties = map[string]any{}
		}
		b.cfg.Properties[b.cfg.Encoder.Prefix+"i2c-edid"] = path
	}
}

// WithoutJournal disables the snapshot journal.
func WithoutJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
