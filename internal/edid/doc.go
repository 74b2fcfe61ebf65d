// Package edid adapts raw capability descriptors read from a display into
// display.Mode values.
//
// Only what the negotiation layer needs is decoded: detailed timing
// descriptors from the base block and CEA-861 extensions, the established
// timings bitmap, the preferred-timing flag, and the vendor identity used for
// diagnostics. Anything else in the blob is ignored.
package edid
