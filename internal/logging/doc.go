// Package logging assembles structured slog loggers and formatting helpers used
// across hdmictl.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so encoder and pipeline code can
// tag log lines with the connector and the correlation ID of the
// re-evaluation pass that produced them. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
