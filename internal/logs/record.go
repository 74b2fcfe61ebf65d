package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"hdmictl/internal/logging"
)

// Record is one decoded line of the JSON log file.
type Record struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	Connector string
	EventType string
	Fields    map[string]any
}

// reserved keys are rendered in the header rather than as fields.
var reserved = map[string]struct{}{
	"ts": {}, "level": {}, "msg": {}, "source": {},
	logging.FieldComponent: {}, logging.FieldConnector: {},
}

// ParseRecord decodes a JSON log line. Lines that are not JSON objects, such
// as output from an older console-format run, are rejected.
func ParseRecord(line string) (Record, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{}, false
	}
	rec := Record{Fields: map[string]any{}}
	if ts, ok := raw["ts"].(string); ok {
		rec.Time, _ = time.Parse(time.RFC3339Nano, ts)
	}
	rec.Level, _ = raw["level"].(string)
	rec.Message, _ = raw["msg"].(string)
	rec.Component, _ = raw[logging.FieldComponent].(string)
	rec.Connector, _ = raw[logging.FieldConnector].(string)
	rec.EventType, _ = raw[logging.FieldEventType].(string)
	for k, v := range raw {
		if _, skip := reserved[k]; skip {
			continue
		}
		rec.Fields[k] = v
	}
	return rec, true
}

// Filter selects records by minimum level, component and event type. Empty
// fields match everything.
type Filter struct {
	MinLevel  string
	Component string
	EventType string
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec Record) bool {
	if f.MinLevel != "" && levelRank(rec.Level) < levelRank(f.MinLevel) {
		return false
	}
	if f.Component != "" && !strings.EqualFold(rec.Component, f.Component) {
		return false
	}
	if f.EventType != "" && rec.EventType != f.EventType {
		return false
	}
	return true
}

// Format renders rec on one line in the console handler's header layout,
// followed by its fields in key order.
func (rec Record) Format() string {
	var b strings.Builder
	if ts := logging.FormatTimestamp(rec.Time); ts != "" {
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	b.WriteString(strings.ToUpper(rec.Level))
	if rec.Component != "" {
		fmt.Fprintf(&b, " [%s]", rec.Component)
	}
	if rec.Connector != "" {
		fmt.Fprintf(&b, " %s", rec.Connector)
	}
	fmt.Fprintf(&b, " - %s", rec.Message)

	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, rec.Fields[k])
	}
	return b.String()
}

func levelRank(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
