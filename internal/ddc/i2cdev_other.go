//go:build !linux

package ddc

import "fmt"

// OpenI2C is only supported on Linux.
func OpenI2C(path string, _ Options) (Channel, error) {
	return nil, fmt.Errorf("%w: %s: i2c-dev requires linux", ErrUnavailable, path)
}
