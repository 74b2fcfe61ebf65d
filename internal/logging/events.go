package logging

import "log/slog"

// Warning event types. Each carries a default operator hint and impact so
// every warning in the log says what to check and what was lost.
const (
	EventEDIDInvalid          = "edid_invalid"
	EventPreferredOutOfBounds = "preferred_out_of_bounds"
	EventPublishFailed        = "publish_failed"
	EventResumeFailed         = "resume_failed"
	EventPreflightFailed      = "preflight_failed"
	EventLogindUnavailable    = "logind_unavailable"
	EventNetlinkConnectFailed = "netlink_connect_failed"

	// EventConfigDefaulted is informational: a missing limit is expected on
	// boards that rely on the built-in envelope.
	EventConfigDefaulted = "config_defaulted"
)

type eventDefaults struct {
	hint   string
	impact string
}

var warningCatalog = map[string]eventDefaults{
	EventEDIDInvalid: {
		hint:   "dump the edid with `hdmictl modes --json` and check the header and checksum",
		impact: "no modes are published for this display",
	},
	EventPreferredOutOfBounds: {
		hint:   "lower pref-horz-res/pref-vert-res or raise the maximum",
		impact: "synthesized mode lists carry no preferred mode",
	},
	EventPublishFailed: {
		hint:   "check the journal database is writable with `hdmictl doctor`",
		impact: "history is missing this re-evaluation",
	},
	EventResumeFailed: {
		hint:   "run `hdmictl reevaluate` once the display is awake",
		impact: "the connector was not re-evaluated after resume",
	},
	EventPreflightFailed: {
		hint:   "run `hdmictl doctor` for details",
		impact: "the feature backed by this check stays disabled",
	},
	EventLogindUnavailable: {
		hint:   "check the system D-Bus socket and systemd-logind",
		impact: "mode lists may be stale after resume until the next hotplug",
	},
	EventNetlinkConnectFailed: {
		hint:   "ensure the daemon has permission to access netlink sockets",
		impact: "re-evaluation only on start, resume or manual request",
	},
}

// WarnEvent logs a warning tagged with eventType. error_hint and impact come
// from attrs when given, otherwise from the event's catalog entry.
func WarnEvent(logger *slog.Logger, eventType, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	defaults, known := warningCatalog[eventType]
	if !known {
		defaults = eventDefaults{hint: "check logs for details", impact: "operation completed with warnings"}
	}
	attrs = append(attrs, String(FieldEventType, eventType))
	if !hasAttr(attrs, FieldErrorHint) {
		attrs = append(attrs, String(FieldErrorHint, defaults.hint))
	}
	if !hasAttr(attrs, FieldImpact) {
		attrs = append(attrs, String(FieldImpact, defaults.impact))
	}
	logger.Warn(msg, Args(attrs...)...)
}

func hasAttr(attrs []Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}
