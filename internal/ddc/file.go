package ddc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// fileChannel serves EDID from a regular file: the DRM connector's sysfs edid
// attribute or a captured dump. The file is re-read on every call so a
// hotplug is observed without reopening.
type fileChannel struct {
	path string

	mu     sync.Mutex
	closed bool
}

// OpenFile opens a file-backed channel. An empty file reads as a
// disconnected display, matching the sysfs attribute.
func OpenFile(path string, _ Options) (Channel, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s: is a directory", ErrUnavailable, path)
	}
	return &fileChannel{path: path}, nil
}

// Open picks the transport for ref: regular files are read directly, anything
// else is treated as an i2c-dev adapter.
func Open(ref string, opts Options) (Channel, error) {
	if info, err := os.Stat(ref); err == nil && info.Mode().IsRegular() {
		return OpenFile(ref, opts)
	}
	return OpenI2C(ref, opts)
}

func (c *fileChannel) Name() string { return c.path }

func (c *fileChannel) Probe(ctx context.Context) error {
	if _, err := c.read(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProbeFailed, c.path, err)
	}
	return nil
}

func (c *fileChannel) ReadEDID(ctx context.Context) ([]byte, error) {
	data, err := c.read(ctx)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, fmt.Errorf("%s: %w", c.path, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrProbeFailed, c.path, err)
	}
	if len(data) > maxBlocks*blockSize {
		data = data[:maxBlocks*blockSize]
	}
	return data, nil
}

func (c *fileChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fileChannel) read(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	if len(data) < blockSize || allSame(data[:blockSize]) {
		return nil, ErrNoData
	}
	return data, nil
}
