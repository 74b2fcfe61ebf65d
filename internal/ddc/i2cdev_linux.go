//go:build linux

package ddc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// linux/i2c-dev.h
const (
	ioctlI2CTimeout = 0x0702
	ioctlI2CSlave   = 0x0703
)

type i2cDev struct {
	fd int
}

// OpenI2C opens an i2c-dev adapter such as /dev/i2c-1.
func OpenI2C(path string, opts Options) (Channel, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, path, err)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnavailable, path, err)
	}
	return newBusChannel(path, &i2cDev{fd: fd}, opts), nil
}

func (d *i2cDev) setAddress(addr uint16) error {
	if err := unix.IoctlSetInt(d.fd, ioctlI2CSlave, int(addr)); err != nil {
		return fmt.Errorf("select address %#x: %w", addr, err)
	}
	return nil
}

// setTimeout programs the adapter timeout, which the kernel counts in jiffies
// of 10ms.
func (d *i2cDev) setTimeout(timeout time.Duration) error {
	ticks := int(timeout / (10 * time.Millisecond))
	if ticks < 1 {
		ticks = 1
	}
	if err := unix.IoctlSetInt(d.fd, ioctlI2CTimeout, ticks); err != nil {
		return fmt.Errorf("set adapter timeout: %w", err)
	}
	return nil
}

func (d *i2cDev) write(p []byte) error {
	n, err := unix.Write(d.fd, p)
	if err != nil {
		return fmt.Errorf("i2c write: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("i2c write: %w", io.ErrShortWrite)
	}
	return nil
}

func (d *i2cDev) read(p []byte) error {
	n, err := unix.Read(d.fd, p)
	if err != nil {
		return fmt.Errorf("i2c read: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("i2c read: %w", io.ErrUnexpectedEOF)
	}
	return nil
}

func (d *i2cDev) close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	if err != nil && !errors.Is(err, unix.EBADF) {
		return err
	}
	return nil
}
