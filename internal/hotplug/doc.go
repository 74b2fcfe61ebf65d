// Package hotplug turns system events into encoder re-evaluations.
//
// UdevMonitor listens on the udev netlink socket for DRM change events
// carrying HOTPLUG=1 and asks the host to re-evaluate the connector.
// SleepMonitor follows logind's PrepareForSleep signal on the system bus and
// drives encoder Suspend and Resume. Both degrade to a warning when their
// socket or bus is unavailable; the daemon keeps serving without them.
package hotplug
