// Package daemon coordinates the long-running hdmictld process.
//
// It wires the encoder, the re-evaluation pipeline and the hotplug and sleep
// monitors into a single lifecycle, with flock-based locking to prevent
// multiple instances driving the same DDC channel. On start the daemon runs
// one re-evaluation so downstream consumers see the current mode list before
// the first hotplug arrives.
//
// Keep orchestration logic here: negotiation decisions belong in the encoder
// package and publishing in the pipeline package.
package daemon
