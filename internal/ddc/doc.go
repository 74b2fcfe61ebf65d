// Package ddc talks to a connected display over its display data channel.
//
// Two transports exist. The Linux i2c-dev interface reads the EDID EEPROM at
// address 0x50 on the adapter wired to the HDMI connector. A regular file,
// such as the DRM connector's sysfs edid attribute or a captured dump, is
// read directly; Open picks between them.
// A Channel is not reentrant; callers share one per encoder and every
// operation takes the channel lock. Timeouts come from the adapter itself
// (I2C_TIMEOUT) and from the caller's context deadline; a timed out
// transfer is reported as ErrProbeFailed like any other failure.
package ddc
