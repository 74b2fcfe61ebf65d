// Package props exposes the hierarchical property stores the encoder reads its
// capability limits from.
//
// Two backends exist: an in-memory map (fed from the [properties] table of the
// TOML config) and a device-tree node directory as published under
// /proc/device-tree, where integer properties are big-endian cells and
// references are phandles. Both report absence and malformed values through
// the ErrAbsent and ErrMalformed sentinels so callers can apply defaults.
package props
