package testsupport

// Detailed timing descriptors for common CEA modes.
var (
	Timing1080p60 = []byte{0x02, 0x3a, 0x80, 0x18, 0x71, 0x38, 0x2d, 0x40, 0x58, 0x2c, 0x45, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x1e}
	Timing1080i60 = []byte{0x01, 0x1d, 0x80, 0x18, 0x71, 0x1c, 0x16, 0x20, 0x58, 0x2c, 0x25, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x9e}
	Timing720p60  = []byte{0x01, 0x1d, 0x00, 0x72, 0x51, 0xd0, 0x1e, 0x20, 0x6e, 0x28, 0x55, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x1e}
)

// EDID builds a checksummed base block carrying up to four detailed timing
// descriptors. The first descriptor is the display's preferred timing.
func EDID(descriptors ...[]byte) []byte {
	block := make([]byte, 128)
	copy(block, []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00})
	// "RDG", product 0x1234, serial 42, 2019, EDID 1.4
	block[8], block[9] = 0x48, 0x87
	block[10], block[11] = 0x34, 0x12
	block[12] = 42
	block[17] = 29
	block[18], block[19] = 1, 4
	for i, d := range descriptors {
		if i == 4 {
			break
		}
		copy(block[54+i*18:], d)
	}
	var sum byte
	for _, b := range block[:127] {
		sum += b
	}
	block[127] = byte(0x100 - int(sum))
	return block
}
