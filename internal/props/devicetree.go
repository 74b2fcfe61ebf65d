package props

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultI2CDevices = "/sys/bus/i2c/devices"

// DeviceTree reads properties from a flattened device-tree node directory,
// one file per property.
type DeviceTree struct {
	Node string
	// I2CDevices is the sysfs directory scanned when resolving a phandle to an
	// i2c adapter. Defaults to /sys/bus/i2c/devices.
	I2CDevices string
	// DevDir is where adapter character devices live. Defaults to /dev.
	DevDir string
}

// NewDeviceTree returns a store rooted at the given node directory.
func NewDeviceTree(node string) *DeviceTree {
	return &DeviceTree{Node: node}
}

// Uint32 decodes the first big-endian cell of the property.
func (d *DeviceTree) Uint32(key string) (uint32, error) {
	data, err := d.read(key)
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, fmt.Errorf("%s: %w: %d bytes", key, ErrMalformed, len(data))
	}
	return binary.BigEndian.Uint32(data[:4]), nil
}

// Reference resolves a phandle property to the i2c adapter device bound to the
// referenced node. A property holding a NUL-terminated string is returned as-is,
// which lets overlays point straight at a device path.
func (d *DeviceTree) Reference(key string) (string, error) {
	data, err := d.read(key)
	if err != nil {
		return "", err
	}
	if len(data) == 4 {
		return d.resolvePhandle(binary.BigEndian.Uint32(data))
	}
	text := strings.TrimSpace(string(bytes.TrimRight(data, "\x00")))
	if text == "" {
		return "", fmt.Errorf("%s: %w", key, ErrMalformed)
	}
	return text, nil
}

func (d *DeviceTree) read(key string) ([]byte, error) {
	if strings.ContainsRune(key, '/') {
		return nil, fmt.Errorf("%s: %w: invalid property name", key, ErrMalformed)
	}
	data, err := os.ReadFile(filepath.Join(d.Node, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrAbsent)
		}
		return nil, fmt.Errorf("read property %s: %w", key, err)
	}
	return data, nil
}

func (d *DeviceTree) resolvePhandle(phandle uint32) (string, error) {
	root := d.I2CDevices
	if root == "" {
		root = defaultI2CDevices
	}
	devDir := d.DevDir
	if devDir == "" {
		devDir = "/dev"
	}

	adapters, err := filepath.Glob(filepath.Join(root, "i2c-*"))
	if err != nil {
		return "", fmt.Errorf("scan i2c adapters: %w", err)
	}
	for _, adapter := range adapters {
		data, err := os.ReadFile(filepath.Join(adapter, "of_node", "phandle"))
		if err != nil || len(data) < 4 {
			continue
		}
		if binary.BigEndian.Uint32(data[:4]) == phandle {
			return filepath.Join(devDir, filepath.Base(adapter)), nil
		}
	}
	return "", fmt.Errorf("phandle %#x: %w", phandle, ErrUnresolved)
}
