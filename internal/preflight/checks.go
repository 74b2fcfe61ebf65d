package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/pilebones/go-udev/netlink"
	"golang.org/x/sys/unix"

	"hdmictl/internal/config"
	"hdmictl/internal/ddc"
	"hdmictl/internal/encoder"
	"hdmictl/internal/journal"
	"hdmictl/internal/props"
)

const logindBusName = "org.freedesktop.login1"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckPropertySource verifies the configured property store can be read.
// The inline table always passes; a device-tree node must be a directory.
func CheckPropertySource(cfg *config.Config) Result {
	const name = "Encoder properties"
	if cfg.Encoder.PropertySource != config.PropertySourceDeviceTree {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("config table (%d entries)", len(cfg.Properties))}
	}
	node := cfg.Encoder.DeviceTreeNode
	info, err := os.Stat(node)
	switch {
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", node, err)}
	case !info.IsDir():
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", node)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("device tree %s", node)}
}

// CheckChannel opens the configured DDC channel and probes it once. A missing
// reference passes: the encoder synthesizes modes without one.
func CheckChannel(ctx context.Context, cfg *config.Config) Result {
	const name = "DDC channel"
	key := cfg.Encoder.Prefix + encoder.KeyChannel
	ref, err := cfg.PropertyStore().Reference(key)
	if errors.Is(err, props.ErrAbsent) {
		return Result{Name: name, Passed: true, Detail: "not configured (modes synthesized from limits)"}
	}
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", key, err)}
	}
	ch, err := ddc.Open(ref, ddc.Options{Timeout: cfg.DDCTimeout()})
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", ref, err)}
	}
	defer ch.Close()

	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeBudget())
	defer cancel()
	if err := ch.Probe(probeCtx); err != nil {
		// The adapter works; an absent display is not a configuration fault.
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (no display answering)", ref)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (display answering)", ref)}
}

// CheckJournal opens the snapshot journal and counts its rows.
func CheckJournal(ctx context.Context, path string) Result {
	const name = "Journal"
	store, err := journal.Open(path, 0)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()

	countCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := store.Count(countCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d snapshots)", path, count)}
}

// CheckUdev verifies a kernel uevent netlink socket can be bound.
func CheckUdev() Result {
	const name = "Hotplug events"
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("udev netlink (error: %v)", err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: "udev netlink available"}
}

// CheckLogind verifies systemd-logind is reachable on the system bus.
func CheckLogind() Result {
	const name = "Sleep events"
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("system bus (error: %v)", err)}
	}
	defer conn.Close()

	var owned bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, logindBusName).Store(&owned)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", logindBusName, err)}
	}
	if !owned {
		return Result{Name: name, Detail: fmt.Sprintf("%s not running", logindBusName)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s available", logindBusName)}
}
