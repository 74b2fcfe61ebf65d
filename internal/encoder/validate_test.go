package encoder_test

import (
	"encoding/json"
	"testing"

	"hdmictl/internal/display"
	"hdmictl/internal/encoder"
)

func scenarioEnvelope() encoder.Envelope {
	return encoder.Envelope{
		MaxPixelClockKHz:    150000,
		MaxHorizontal:       1920,
		MaxVertical:         1080,
		PreferredHorizontal: 1280,
		PreferredVertical:   720,
	}
}

func TestValidateConcreteScenario(t *testing.T) {
	env := scenarioEnvelope()
	tests := []struct {
		name string
		mode display.Mode
		want encoder.Verdict
	}{
		{"1080p at 148.5 MHz", display.Mode{PixelClockKHz: 148500, Horizontal: 1920, Vertical: 1080}, encoder.Accept},
		{"1080p at 297 MHz", display.Mode{PixelClockKHz: 297000, Horizontal: 1920, Vertical: 1080}, encoder.ClockTooHigh},
		{"1080i at 74.25 MHz", display.Mode{PixelClockKHz: 74250, Horizontal: 1920, Vertical: 1080, Interlaced: true}, encoder.InterlaceUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encoder.Validate(&tt.mode, env); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestValidateNilIsBadMode(t *testing.T) {
	for _, env := range []encoder.Envelope{{}, scenarioEnvelope(), encoder.DefaultEnvelope()} {
		if got := encoder.Validate(nil, env); got != encoder.BadMode {
			t.Fatalf("got %v want bad_mode", got)
		}
	}
}

func TestValidateSingleViolations(t *testing.T) {
	env := scenarioEnvelope()
	base := display.Mode{PixelClockKHz: 74250, Horizontal: 1280, Vertical: 720}
	tests := []struct {
		name   string
		mutate func(*display.Mode)
		want   encoder.Verdict
	}{
		{"within limits", func(*display.Mode) {}, encoder.Accept},
		{"at limits", func(m *display.Mode) { m.PixelClockKHz, m.Horizontal, m.Vertical = 150000, 1920, 1080 }, encoder.Accept},
		{"clock", func(m *display.Mode) { m.PixelClockKHz = 150001 }, encoder.ClockTooHigh},
		{"width", func(m *display.Mode) { m.Horizontal = 1921 }, encoder.ResolutionTooLarge},
		{"height", func(m *display.Mode) { m.Vertical = 1081 }, encoder.ResolutionTooLarge},
		{"interlace", func(m *display.Mode) { m.Interlaced = true }, encoder.InterlaceUnsupported},
		{"double clock", func(m *display.Mode) { m.DoubleClock = true }, encoder.BadMode},
		{"stereo", func(m *display.Mode) { m.Stereo3D = true }, encoder.BadMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode := base
			tt.mutate(&mode)
			if got := encoder.Validate(&mode, env); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestValidatePriority(t *testing.T) {
	env := scenarioEnvelope()
	tests := []struct {
		name string
		mode display.Mode
		want encoder.Verdict
	}{
		{
			"clock beats resolution",
			display.Mode{PixelClockKHz: 533250, Horizontal: 3840, Vertical: 2160, Interlaced: true, DoubleClock: true},
			encoder.ClockTooHigh,
		},
		{
			"resolution beats interlace",
			display.Mode{PixelClockKHz: 74250, Horizontal: 2560, Vertical: 1440, Interlaced: true, Stereo3D: true},
			encoder.ResolutionTooLarge,
		},
		{
			"interlace beats double clock",
			display.Mode{PixelClockKHz: 13500, Horizontal: 720, Vertical: 480, Interlaced: true, DoubleClock: true},
			encoder.InterlaceUnsupported,
		},
		{
			"double clock and stereo share bad mode",
			display.Mode{PixelClockKHz: 13500, Horizontal: 720, Vertical: 480, DoubleClock: true, Stereo3D: true},
			encoder.BadMode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encoder.Validate(&tt.mode, env); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestFilterCountsRejections(t *testing.T) {
	modes := []display.Mode{
		{PixelClockKHz: 148500, Horizontal: 1920, Vertical: 1080},
		{PixelClockKHz: 594000, Horizontal: 3840, Vertical: 2160},
		{PixelClockKHz: 74250, Horizontal: 1920, Vertical: 1080, Interlaced: true},
		{PixelClockKHz: 74250, Horizontal: 1280, Vertical: 720},
		{PixelClockKHz: 241500, Horizontal: 2560, Vertical: 1440},
	}
	accepted, rejected := encoder.Filter(modes, scenarioEnvelope())
	if len(accepted) != 2 || !accepted[0].Resolution(1920, 1080) || !accepted[1].Resolution(1280, 720) {
		t.Fatalf("unexpected accepted modes %v", accepted)
	}
	if rejected[encoder.ClockTooHigh] != 2 || rejected[encoder.InterlaceUnsupported] != 1 {
		t.Fatalf("unexpected rejections %v", rejected)
	}
	if _, ok := rejected[encoder.Accept]; ok {
		t.Fatal("accepted modes must not be counted as rejections")
	}
}

func TestVerdictTextRoundTrip(t *testing.T) {
	in := map[encoder.Verdict]int{encoder.ClockTooHigh: 2, encoder.BadMode: 1}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"bad_mode":1,"clock_too_high":2}` {
		t.Fatalf("unexpected json %s", data)
	}
	var out map[encoder.Verdict]int
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out[encoder.ClockTooHigh] != 2 || out[encoder.BadMode] != 1 {
		t.Fatalf("round trip lost data: %v", out)
	}
	if _, err := encoder.ParseVerdict("nope"); err == nil {
		t.Fatal("expected error for unknown verdict")
	}
}
