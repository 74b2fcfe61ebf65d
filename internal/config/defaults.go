package config

const (
	defaultStateDir       = "~/.local/share/hdmictl"
	defaultConnector      = "HDMI-A-1"
	defaultPropertyPrefix = "realdigital,"
	defaultPropertySource = PropertySourceTOML
	defaultDeviceTreeNode = "/proc/device-tree/hdmi"
	defaultI2CDevices     = "/sys/bus/i2c/devices"
	defaultDDCTimeoutMS   = 100
	defaultProbeBudgetMS  = 1000
	defaultDRMSubsystem   = "drm"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultHistoryLimit   = 20
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Encoder: Encoder{
			Connector:      defaultConnector,
			Prefix:         defaultPropertyPrefix,
			PropertySource: defaultPropertySource,
			DeviceTreeNode: defaultDeviceTreeNode,
			I2CDevices:     defaultI2CDevices,
		},
		DDC: DDC{
			TimeoutMS:     defaultDDCTimeoutMS,
			ProbeBudgetMS: defaultProbeBudgetMS,
		},
		Hotplug: Hotplug{
			Udev:      true,
			Logind:    true,
			Subsystem: defaultDRMSubsystem,
		},
		Journal: Journal{
			Enabled:      true,
			HistoryLimit: defaultHistoryLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
