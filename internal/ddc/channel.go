package ddc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrUnavailable = errors.New("ddc channel unavailable")
	ErrProbeFailed = errors.New("ddc probe failed")
	ErrNoData      = errors.New("ddc returned no data")
)

const (
	edidAddress    = 0x50
	blockSize      = 128
	extensionsByte = 126
	// Blocks past the first extension need the E-DDC segment pointer, which
	// plain i2c-dev reads cannot hold across the stop condition.
	maxBlocks = 2

	DefaultTimeout = 100 * time.Millisecond
)

// Channel is an auxiliary link to the display.
type Channel interface {
	Name() string
	Probe(ctx context.Context) error
	ReadEDID(ctx context.Context) ([]byte, error)
	Close() error
}

// Options tune a channel at open time.
type Options struct {
	Timeout time.Duration
}

// Opener resolves a configured reference into an open channel.
type Opener func(ref string, opts Options) (Channel, error)

// bus is the raw transfer surface of an adapter.
type bus interface {
	setAddress(addr uint16) error
	setTimeout(d time.Duration) error
	write(p []byte) error
	read(p []byte) error
	close() error
}

type busChannel struct {
	name    string
	timeout time.Duration

	mu  sync.Mutex
	bus bus
}

func newBusChannel(name string, b bus, opts Options) *busChannel {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &busChannel{name: name, bus: b, timeout: timeout}
}

func (c *busChannel) Name() string { return c.name }

// Probe reads a single byte at offset zero. Any answer means a display is
// present.
func (c *busChannel) Probe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out [1]byte
	if err := c.readAt(ctx, 0, out[:]); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProbeFailed, c.name, err)
	}
	return nil
}

// ReadEDID returns the base block and, when advertised, the first extension.
func (c *busChannel) ReadEDID(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base := make([]byte, blockSize)
	if err := c.readAt(ctx, 0, base); err != nil {
		return nil, fmt.Errorf("%w: %s: read base block: %w", ErrProbeFailed, c.name, err)
	}
	if allSame(base) {
		return nil, fmt.Errorf("%s: %w", c.name, ErrNoData)
	}

	blocks := 1 + int(base[extensionsByte])
	if blocks > maxBlocks {
		blocks = maxBlocks
	}
	out := base
	for block := 1; block < blocks; block++ {
		ext := make([]byte, blockSize)
		if err := c.readAt(ctx, byte(block*blockSize), ext); err != nil {
			// A readable base block is still usable on its own.
			break
		}
		out = append(out, ext...)
	}
	return out, nil
}

func (c *busChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bus == nil {
		return nil
	}
	err := c.bus.close()
	c.bus = nil
	return err
}

func (c *busChannel) readAt(ctx context.Context, offset byte, p []byte) error {
	if c.bus == nil {
		return ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	if err := c.bus.setTimeout(timeout); err != nil {
		return err
	}
	if err := c.bus.setAddress(edidAddress); err != nil {
		return err
	}
	if err := c.bus.write([]byte{offset}); err != nil {
		return err
	}
	return c.bus.read(p)
}

func allSame(p []byte) bool {
	for _, b := range p[1:] {
		if b != p[0] {
			return false
		}
	}
	return true
}
