package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hdmictl/internal/props"
)

//go:embed sample_config.toml
var sampleConfig string

// Property sources understood by Encoder.PropertySource.
const (
	PropertySourceTOML       = "toml"
	PropertySourceDeviceTree = "devicetree"
)

// Paths contains state and log directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Encoder selects where the encoder's capability properties are read from.
type Encoder struct {
	// Connector names the output in logs, snapshots and the journal.
	Connector      string `toml:"connector"`
	Prefix         string `toml:"prefix"`
	PropertySource string `toml:"property_source"`
	DeviceTreeNode string `toml:"devicetree_node"`
	I2CDevices     string `toml:"i2c_devices"`
}

// DDC contains display data channel timing.
type DDC struct {
	// TimeoutMS is programmed into the i2c adapter for every transfer.
	TimeoutMS int `toml:"timeout_ms"`
	// ProbeBudgetMS bounds a whole detect or mode enumeration pass.
	ProbeBudgetMS int `toml:"probe_budget_ms"`
}

// Hotplug selects the event sources the daemon listens to.
type Hotplug struct {
	Udev      bool   `toml:"udev"`
	Logind    bool   `toml:"logind"`
	Subsystem string `toml:"subsystem"`
	// Device limits udev events to one DRM device (e.g. card0). Empty accepts all.
	Device string `toml:"device"`
}

// Journal contains configuration for the snapshot history database.
type Journal struct {
	Enabled      bool `toml:"enabled"`
	HistoryLimit int  `toml:"history_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for hdmictl.
//
// Configuration sections by subsystem:
//   - Paths: state directory (journal, lock) and log directory
//   - Encoder: property prefix and property source
//   - Properties: inline encoder properties when the source is "toml"
//   - DDC: adapter timeout and probe budget
//   - Hotplug: udev and logind event sources
//   - Journal: snapshot history
//   - Logging: log format and level
type Config struct {
	Paths      Paths          `toml:"paths"`
	Encoder    Encoder        `toml:"encoder"`
	Properties map[string]any `toml:"properties"`
	DDC        DDC            `toml:"ddc"`
	Hotplug    Hotplug        `toml:"hotplug"`
	Journal    Journal        `toml:"journal"`
	Logging    Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hdmictl/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hdmictl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PropertyStore returns the store the encoder resolves its envelope from.
func (c *Config) PropertyStore() props.Store {
	if c.Encoder.PropertySource == PropertySourceDeviceTree {
		return &props.DeviceTree{
			Node:       c.Encoder.DeviceTreeNode,
			I2CDevices: c.Encoder.I2CDevices,
		}
	}
	return props.FromTable(c.Properties, ",")
}

// DDCTimeout returns the per-transfer adapter timeout.
func (c *Config) DDCTimeout() time.Duration {
	return time.Duration(c.DDC.TimeoutMS) * time.Millisecond
}

// ProbeBudget returns the deadline applied to one detect or enumerate pass.
func (c *Config) ProbeBudget() time.Duration {
	return time.Duration(c.DDC.ProbeBudgetMS) * time.Millisecond
}

// JournalPath returns the snapshot history database location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "hdmictld.lock")
}

// SocketPath returns the daemon control socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "hdmictld.sock")
}

// PIDPath returns the file the daemon writes its process ID to.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "hdmictld.pid")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
