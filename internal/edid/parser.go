package edid

import (
	"bytes"
	"errors"
	"fmt"

	"hdmictl/internal/display"
)

var (
	ErrTooShort      = errors.New("edid: shorter than one block")
	ErrInvalidHeader = errors.New("edid: invalid header")
	ErrChecksum      = errors.New("edid: checksum mismatch")
)

const (
	blockSize         = 128
	descriptorSize    = 18
	firstDescriptor   = 54
	descriptorCount   = 4
	ceaExtensionTag   = 0x02
	featureByte       = 24
	featurePreferred  = 0x02
	establishedOffset = 35
)

var header = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

// Parser turns a raw EDID blob into the modes it advertises.
type Parser interface {
	Parse(raw []byte) ([]display.Mode, error)
}

// ParseFunc adapts a plain function to Parser.
type ParseFunc func(raw []byte) ([]display.Mode, error)

func (f ParseFunc) Parse(raw []byte) ([]display.Mode, error) { return f(raw) }

// DescriptorParser decodes timing descriptors and established timings.
type DescriptorParser struct{}

// Parse validates the base block and returns the advertised modes in
// descriptor order. Extension blocks with a bad checksum are skipped.
func (DescriptorParser) Parse(raw []byte) ([]display.Mode, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	base := raw[:blockSize]

	var modes []display.Mode
	seen := map[display.Mode]struct{}{}
	add := func(m display.Mode) {
		key := m
		key.Preferred = false
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		modes = append(modes, m)
	}

	// From EDID 1.4 the first detailed timing is always the preferred one and
	// the feature bit is reused for continuous frequency. Older blocks flag it.
	preferredFirst := base[18] > 1 || base[19] >= 4 || base[featureByte]&featurePreferred != 0
	for i := 0; i < descriptorCount; i++ {
		off := firstDescriptor + i*descriptorSize
		mode, ok := decodeDetailed(base[off : off+descriptorSize])
		if !ok {
			continue
		}
		if i == 0 && preferredFirst {
			mode.Preferred = true
		}
		add(mode)
	}

	for _, mode := range established(base[establishedOffset : establishedOffset+3]) {
		add(mode)
	}

	for start := blockSize; start+blockSize <= len(raw); start += blockSize {
		ext := raw[start : start+blockSize]
		if ext[0] != ceaExtensionTag || checksum(ext) != 0 {
			continue
		}
		dtdStart := int(ext[2])
		if dtdStart < 4 {
			continue
		}
		for off := dtdStart; off+descriptorSize <= blockSize-1; off += descriptorSize {
			mode, ok := decodeDetailed(ext[off : off+descriptorSize])
			if !ok {
				break
			}
			add(mode)
		}
	}

	return modes, nil
}

// Validate checks the base block header and checksum.
func Validate(raw []byte) error {
	if len(raw) < blockSize {
		return ErrTooShort
	}
	if !bytes.Equal(raw[:len(header)], header) {
		return ErrInvalidHeader
	}
	if sum := checksum(raw[:blockSize]); sum != 0 {
		return fmt.Errorf("%w: residue %#02x", ErrChecksum, sum)
	}
	return nil
}

func checksum(block []byte) byte {
	var sum byte
	for _, b := range block {
		sum += b
	}
	return sum
}

func decodeDetailed(d []byte) (display.Mode, bool) {
	clock10k := uint32(d[0]) | uint32(d[1])<<8
	if clock10k == 0 {
		return display.Mode{}, false
	}
	hActive := uint32(d[2]) | uint32(d[4]&0xf0)<<4
	hBlank := uint32(d[3]) | uint32(d[4]&0x0f)<<8
	vActive := uint32(d[5]) | uint32(d[7]&0xf0)<<4
	vBlank := uint32(d[6]) | uint32(d[7]&0x0f)<<8
	if hActive == 0 || vActive == 0 {
		return display.Mode{}, false
	}

	flags := d[17]
	interlaced := flags&0x80 != 0
	stereo := flags&0x60 != 0

	clock := clock10k * 10
	var refresh uint32
	if total := (hActive + hBlank) * (vActive + vBlank); total > 0 {
		refresh = (clock*1000 + total/2) / total
	}
	if interlaced {
		vActive *= 2
	}

	return display.Mode{
		Name:          display.ModeName(hActive, vActive, interlaced),
		PixelClockKHz: clock,
		Horizontal:    hActive,
		Vertical:      vActive,
		RefreshHz:     refresh,
		Interlaced:    interlaced,
		Stereo3D:      stereo,
	}, true
}

type establishedTiming struct {
	byteIndex int
	bit       uint
	mode      display.Mode
}

var establishedTimings = []establishedTiming{
	{0, 5, display.Mode{Name: "640x480", PixelClockKHz: 25175, Horizontal: 640, Vertical: 480, RefreshHz: 60}},
	{0, 2, display.Mode{Name: "640x480", PixelClockKHz: 31500, Horizontal: 640, Vertical: 480, RefreshHz: 72}},
	{0, 1, display.Mode{Name: "800x600", PixelClockKHz: 36000, Horizontal: 800, Vertical: 600, RefreshHz: 56}},
	{0, 0, display.Mode{Name: "800x600", PixelClockKHz: 40000, Horizontal: 800, Vertical: 600, RefreshHz: 60}},
	{1, 7, display.Mode{Name: "800x600", PixelClockKHz: 50000, Horizontal: 800, Vertical: 600, RefreshHz: 72}},
	{1, 6, display.Mode{Name: "800x600", PixelClockKHz: 49500, Horizontal: 800, Vertical: 600, RefreshHz: 75}},
	{1, 4, display.Mode{Name: "1024x768i", PixelClockKHz: 44900, Horizontal: 1024, Vertical: 768, RefreshHz: 43, Interlaced: true}},
	{1, 3, display.Mode{Name: "1024x768", PixelClockKHz: 65000, Horizontal: 1024, Vertical: 768, RefreshHz: 60}},
	{1, 2, display.Mode{Name: "1024x768", PixelClockKHz: 75000, Horizontal: 1024, Vertical: 768, RefreshHz: 70}},
	{1, 1, display.Mode{Name: "1024x768", PixelClockKHz: 78750, Horizontal: 1024, Vertical: 768, RefreshHz: 75}},
	{1, 0, display.Mode{Name: "1280x1024", PixelClockKHz: 135000, Horizontal: 1280, Vertical: 1024, RefreshHz: 75}},
}

func established(bits []byte) []display.Mode {
	var modes []display.Mode
	for _, et := range establishedTimings {
		if bits[et.byteIndex]&(1<<et.bit) != 0 {
			modes = append(modes, et.mode)
		}
	}
	return modes
}
