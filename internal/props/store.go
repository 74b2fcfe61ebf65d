package props

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrAbsent     = errors.New("property absent")
	ErrMalformed  = errors.New("property malformed")
	ErrUnresolved = errors.New("reference unresolved")
)

// Store is a read-only view of a hierarchical property namespace. Keys are
// fully qualified (vendor prefix included).
type Store interface {
	Uint32(key string) (uint32, error)
	Reference(key string) (string, error)
}

// MapStore is an in-memory Store. Values may be integers of any width, numeric
// strings, or strings for references.
type MapStore map[string]any

// Uint32 returns the value stored at key as an unsigned 32-bit integer.
func (m MapStore) Uint32(key string) (uint32, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%s: %w", key, ErrAbsent)
	}
	value, ok := toUint32(raw)
	if !ok {
		return 0, fmt.Errorf("%s: %w: %v", key, ErrMalformed, raw)
	}
	return value, nil
}

// Reference returns the string stored at key, typically a device path.
func (m MapStore) Reference(key string) (string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%s: %w", key, ErrAbsent)
	}
	ref, ok := raw.(string)
	if !ok || strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("%s: %w: %v", key, ErrMalformed, raw)
	}
	return strings.TrimSpace(ref), nil
}

// FromTable flattens a decoded TOML table into a MapStore. Nested tables join
// their keys with the separator, so {"realdigital": {"max-pclock": 1}} and
// {"realdigital,max-pclock": 1} address the same property when sep is ",".
func FromTable(table map[string]any, sep string) MapStore {
	out := MapStore{}
	flatten(out, "", sep, table)
	return out
}

func flatten(out MapStore, prefix, sep string, table map[string]any) {
	for key, value := range table {
		full := key
		if prefix != "" {
			full = prefix + sep + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(out, full, sep, nested)
			continue
		}
		out[full] = value
	}
}

func toUint32(raw any) (uint32, bool) {
	switch v := raw.(type) {
	case uint32:
		return v, true
	case int:
		return fitUint32(int64(v))
	case int64:
		return fitUint32(v)
	case int32:
		return fitUint32(int64(v))
	case uint64:
		if v > math.MaxUint32 {
			return 0, false
		}
		return uint32(v), true
	case uint:
		if uint64(v) > math.MaxUint32 {
			return 0, false
		}
		return uint32(v), true
	case float64:
		if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
			return 0, false
		}
		return uint32(v), true
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 0, 32)
		if err != nil {
			return 0, false
		}
		return uint32(parsed), true
	default:
		return 0, false
	}
}

func fitUint32(v int64) (uint32, bool) {
	if v < 0 || v > math.MaxUint32 {
		return 0, false
	}
	return uint32(v), true
}
