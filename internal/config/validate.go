package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateDDC(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEncoder() error {
	switch c.Encoder.PropertySource {
	case PropertySourceTOML:
	case PropertySourceDeviceTree:
		if strings.TrimSpace(c.Encoder.DeviceTreeNode) == "" {
			return errors.New("encoder.devicetree_node must be set when encoder.property_source is \"devicetree\"")
		}
	default:
		return fmt.Errorf("encoder.property_source: unsupported value %q (want %q or %q)",
			c.Encoder.PropertySource, PropertySourceTOML, PropertySourceDeviceTree)
	}
	if strings.ContainsAny(c.Encoder.Prefix, "/ ") {
		return fmt.Errorf("encoder.prefix %q must not contain spaces or slashes", c.Encoder.Prefix)
	}
	return nil
}

func (c *Config) validateDDC() error {
	if err := ensurePositiveMap(map[string]int{
		"ddc.timeout_ms":      c.DDC.TimeoutMS,
		"ddc.probe_budget_ms": c.DDC.ProbeBudgetMS,
	}); err != nil {
		return err
	}
	if c.DDC.ProbeBudgetMS < c.DDC.TimeoutMS {
		return errors.New("ddc.probe_budget_ms must be at least ddc.timeout_ms")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
