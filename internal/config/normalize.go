package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEncoder(); err != nil {
		return err
	}
	c.normalizeDDC()
	c.normalizeHotplug()
	c.normalizeJournal()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoder() error {
	c.Encoder.Connector = strings.TrimSpace(c.Encoder.Connector)
	if c.Encoder.Connector == "" {
		c.Encoder.Connector = defaultConnector
	}
	// An empty prefix is legal: it addresses unprefixed property names.
	c.Encoder.Prefix = strings.TrimSpace(c.Encoder.Prefix)

	c.Encoder.PropertySource = strings.ToLower(strings.TrimSpace(c.Encoder.PropertySource))
	if c.Encoder.PropertySource == "" {
		c.Encoder.PropertySource = defaultPropertySource
	}

	if value, ok := os.LookupEnv("HDMICTL_DEVICETREE_NODE"); ok && strings.TrimSpace(value) != "" {
		c.Encoder.DeviceTreeNode = strings.TrimSpace(value)
		c.Encoder.PropertySource = PropertySourceDeviceTree
	}
	if strings.TrimSpace(c.Encoder.DeviceTreeNode) == "" {
		c.Encoder.DeviceTreeNode = defaultDeviceTreeNode
	}
	var err error
	if c.Encoder.DeviceTreeNode, err = expandPath(c.Encoder.DeviceTreeNode); err != nil {
		return fmt.Errorf("encoder.devicetree_node: %w", err)
	}
	if strings.TrimSpace(c.Encoder.I2CDevices) == "" {
		c.Encoder.I2CDevices = defaultI2CDevices
	}
	if c.Properties == nil {
		c.Properties = map[string]any{}
	}
	return nil
}

func (c *Config) normalizeDDC() {
	if c.DDC.TimeoutMS <= 0 {
		c.DDC.TimeoutMS = defaultDDCTimeoutMS
	}
	if c.DDC.ProbeBudgetMS <= 0 {
		c.DDC.ProbeBudgetMS = defaultProbeBudgetMS
	}
}

func (c *Config) normalizeHotplug() {
	c.Hotplug.Subsystem = strings.TrimSpace(c.Hotplug.Subsystem)
	if c.Hotplug.Subsystem == "" {
		c.Hotplug.Subsystem = defaultDRMSubsystem
	}
	c.Hotplug.Device = strings.TrimSpace(c.Hotplug.Device)
}

func (c *Config) normalizeJournal() {
	if c.Journal.HistoryLimit <= 0 {
		c.Journal.HistoryLimit = defaultHistoryLimit
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("HDMICTL_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
