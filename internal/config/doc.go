// Package config loads, normalizes, and validates hdmictl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HDMICTL_DEVICETREE_NODE. The Config type centralizes every knob the daemon
// and CLI need: where encoder properties come from, the display data channel
// timeout, hotplug event sources, state paths, and log output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a resolved property store, and clear validation errors.
package config
