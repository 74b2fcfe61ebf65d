// Package display holds the value types shared by the encoder, the EDID
// adapter, and the host pipeline: display modes, connector status, and the
// standard DMT timing table used when no display-reported modes exist.
package display
