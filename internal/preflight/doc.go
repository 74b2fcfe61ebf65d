// Package preflight provides readiness checks for the kernel interfaces and
// filesystem paths hdmictl depends on.
//
// The CLI "hdmictl doctor" command runs every check; the daemon logs failed
// checks at startup without refusing to run, since each missing interface
// only disables one feature (hotplug events, resume notification, DDC
// reads or the journal).
package preflight
