// Package main hosts the hdmictl CLI entrypoint and command graph.
//
// One-shot commands (detect, modes, validate, envelope) attach an encoder
// directly from configuration and release it on exit; history reads the
// snapshot journal; status, reevaluate and power talk to a running daemon
// over its control socket. The daemon runs in the foreground under
// `hdmictl daemon` or the hdmictld binary, or detached via start, stop and
// restart. logs and doctor help when it misbehaves.
//
// Keep this package lean: add behaviour to the internal packages first and
// surface it here as a command or flag.
package main
