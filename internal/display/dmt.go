package display

import "math"

type dmtEntry struct {
	clock      uint32
	h, v       uint32
	refresh    uint32
	interlaced bool
}

// VESA DMT timings, in the order the VESA table lists them.
var dmtModes = []dmtEntry{
	{31500, 640, 350, 85, false},
	{31500, 640, 400, 85, false},
	{35500, 720, 400, 85, false},
	{25175, 640, 480, 60, false},
	{31500, 640, 480, 72, false},
	{31500, 640, 480, 75, false},
	{36000, 640, 480, 85, false},
	{36000, 800, 600, 56, false},
	{40000, 800, 600, 60, false},
	{50000, 800, 600, 72, false},
	{49500, 800, 600, 75, false},
	{56250, 800, 600, 85, false},
	{73250, 800, 600, 120, false},
	{33750, 848, 480, 60, false},
	{44900, 1024, 768, 43, true},
	{65000, 1024, 768, 60, false},
	{75000, 1024, 768, 70, false},
	{78750, 1024, 768, 75, false},
	{94500, 1024, 768, 85, false},
	{108000, 1152, 864, 75, false},
	{74250, 1280, 720, 60, false},
	{68250, 1280, 768, 60, false},
	{79500, 1280, 768, 60, false},
	{102250, 1280, 768, 75, false},
	{71000, 1280, 800, 60, false},
	{83500, 1280, 800, 60, false},
	{106500, 1280, 800, 75, false},
	{108000, 1280, 960, 60, false},
	{148500, 1280, 960, 85, false},
	{108000, 1280, 1024, 60, false},
	{135000, 1280, 1024, 75, false},
	{157500, 1280, 1024, 85, false},
	{85500, 1360, 768, 60, false},
	{85500, 1366, 768, 60, false},
	{101000, 1400, 1050, 60, false},
	{121750, 1400, 1050, 60, false},
	{88750, 1440, 900, 60, false},
	{106500, 1440, 900, 60, false},
	{108000, 1600, 900, 60, false},
	{162000, 1600, 1200, 60, false},
	{119000, 1680, 1050, 60, false},
	{146250, 1680, 1050, 60, false},
	{204750, 1792, 1344, 60, false},
	{218250, 1856, 1392, 60, false},
	{148500, 1920, 1080, 60, false},
	{154000, 1920, 1200, 60, false},
	{193250, 1920, 1200, 60, false},
	{234000, 1920, 1440, 60, false},
	{241500, 2560, 1440, 60, false},
	{268500, 2560, 1600, 60, false},
	{348500, 2560, 1600, 60, false},
	{533250, 3840, 2160, 60, false},
}

// noEDIDMaxRefresh caps the synthesized list at ordinary desktop refresh rates.
const noEDIDMaxRefresh = 61

// StandardModes returns the DMT modes whose active area fits within maxH x maxV
// and whose refresh rate does not exceed 61 Hz. The order follows the table.
func StandardModes(maxH, maxV uint32) []Mode {
	modes := make([]Mode, 0, len(dmtModes))
	for _, entry := range dmtModes {
		if entry.h > maxH || entry.v > maxV {
			continue
		}
		if entry.refresh > noEDIDMaxRefresh {
			continue
		}
		modes = append(modes, entry.mode())
	}
	return modes
}

func (e dmtEntry) mode() Mode {
	return Mode{
		Name:          ModeName(e.h, e.v, e.interlaced),
		PixelClockKHz: e.clock,
		Horizontal:    e.h,
		Vertical:      e.v,
		RefreshHz:     e.refresh,
		Interlaced:    e.interlaced,
	}
}

// CVT reduced blanking constants.
const (
	cvtRBHBlank       = 160
	cvtRBMinVBlankUS  = 460.0
	cvtRBMinVBlankLns = 14
	cvtClockStepKHz   = 250
)

// Synthesize builds a progressive mode for an arbitrary active area using the
// CVT reduced-blanking formula. It is used when a requested resolution has no
// entry in the standard table. A zero refresh defaults to 60 Hz.
func Synthesize(h, v, refresh uint32) Mode {
	if refresh == 0 {
		refresh = 60
	}
	htotal := float64(h + cvtRBHBlank)
	var vblank uint32 = cvtRBMinVBlankLns
	if v > 0 {
		hperiod := (1e6/float64(refresh) - cvtRBMinVBlankUS) / float64(v)
		if hperiod > 0 {
			if lines := uint32(math.Ceil(cvtRBMinVBlankUS / hperiod)); lines > vblank {
				vblank = lines
			}
		}
	}
	vtotal := float64(v + vblank)
	clock := uint32(float64(refresh) * htotal * vtotal / 1000)
	clock -= clock % cvtClockStepKHz

	return Mode{
		Name:          ModeName(h, v, false),
		PixelClockKHz: clock,
		Horizontal:    h,
		Vertical:      v,
		RefreshHz:     refresh,
	}
}
