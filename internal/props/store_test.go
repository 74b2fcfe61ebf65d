package props_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"hdmictl/internal/props"
)

func TestMapStoreUint32(t *testing.T) {
	store := props.MapStore{
		"int":      int64(150000),
		"string":   "1920",
		"hex":      "0x438",
		"negative": int64(-1),
		"huge":     int64(1) << 40,
		"text":     "wide",
		"float":    1.5,
	}

	tests := []struct {
		key     string
		want    uint32
		wantErr error
	}{
		{"int", 150000, nil},
		{"string", 1920, nil},
		{"hex", 1080, nil},
		{"negative", 0, props.ErrMalformed},
		{"huge", 0, props.ErrMalformed},
		{"text", 0, props.ErrMalformed},
		{"float", 0, props.ErrMalformed},
		{"missing", 0, props.ErrAbsent},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := store.Uint32(tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %d want %d", got, tt.want)
			}
		})
	}
}

func TestMapStoreReference(t *testing.T) {
	store := props.MapStore{"ref": " /dev/i2c-1 ", "bad": 7}
	got, err := store.Reference("ref")
	if err != nil || got != "/dev/i2c-1" {
		t.Fatalf("unexpected reference %q err=%v", got, err)
	}
	if _, err := store.Reference("bad"); !errors.Is(err, props.ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
	if _, err := store.Reference("none"); !errors.Is(err, props.ErrAbsent) {
		t.Fatalf("expected absent, got %v", err)
	}
}

func TestFromTableFlattensNestedTables(t *testing.T) {
	table := map[string]any{
		"realdigital":              map[string]any{"max-pclock": int64(74250)},
		"realdigital,max-horz-res": int64(1280),
	}
	store := props.FromTable(table, ",")
	if v, err := store.Uint32("realdigital,max-pclock"); err != nil || v != 74250 {
		t.Fatalf("nested key: got %d err=%v", v, err)
	}
	if v, err := store.Uint32("realdigital,max-horz-res"); err != nil || v != 1280 {
		t.Fatalf("flat key: got %d err=%v", v, err)
	}
}

func writeCell(t *testing.T, path string, value uint32) {
	t.Helper()
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, value)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDeviceTreeUint32(t *testing.T) {
	node := t.TempDir()
	writeCell(t, filepath.Join(node, "realdigital,max-pclock"), 148500)
	if err := os.WriteFile(filepath.Join(node, "realdigital,short"), []byte{1, 2}, 0o644); err != nil {
		t.Fatal(err)
	}

	store := props.NewDeviceTree(node)
	if v, err := store.Uint32("realdigital,max-pclock"); err != nil || v != 148500 {
		t.Fatalf("got %d err=%v", v, err)
	}
	if _, err := store.Uint32("realdigital,short"); !errors.Is(err, props.ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
	if _, err := store.Uint32("realdigital,max-vert-res"); !errors.Is(err, props.ErrAbsent) {
		t.Fatalf("expected absent, got %v", err)
	}
}

func TestDeviceTreeReferenceResolvesPhandle(t *testing.T) {
	node := t.TempDir()
	sys := t.TempDir()
	writeCell(t, filepath.Join(node, "realdigital,i2c-edid"), 0x2a)
	writeCell(t, filepath.Join(sys, "i2c-0", "of_node", "phandle"), 0x11)
	writeCell(t, filepath.Join(sys, "i2c-3", "of_node", "phandle"), 0x2a)

	store := &props.DeviceTree{Node: node, I2CDevices: sys, DevDir: "/dev"}
	ref, err := store.Reference("realdigital,i2c-edid")
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	if ref != "/dev/i2c-3" {
		t.Fatalf("unexpected adapter %q", ref)
	}
}

func TestDeviceTreeReferenceUnresolved(t *testing.T) {
	node := t.TempDir()
	writeCell(t, filepath.Join(node, "realdigital,i2c-edid"), 0x99)
	store := &props.DeviceTree{Node: node, I2CDevices: t.TempDir()}
	if _, err := store.Reference("realdigital,i2c-edid"); !errors.Is(err, props.ErrUnresolved) {
		t.Fatalf("expected unresolved, got %v", err)
	}
}

func TestDeviceTreeReferenceString(t *testing.T) {
	node := t.TempDir()
	if err := os.WriteFile(filepath.Join(node, "realdigital,i2c-edid"), []byte("/dev/i2c-7\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	ref, err := props.NewDeviceTree(node).Reference("realdigital,i2c-edid")
	if err != nil || ref != "/dev/i2c-7" {
		t.Fatalf("got %q err=%v", ref, err)
	}
}
