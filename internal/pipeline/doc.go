// Package pipeline is the host side of capability negotiation.
//
// A Pipeline re-evaluates an encoder on request: it detects the connector,
// enumerates modes when a display may be present, prunes them with the
// encoder's validator, and publishes the result as a Snapshot to every
// registered Sink. It implements encoder.Notifier so that an encoder resume
// lands here.
package pipeline
