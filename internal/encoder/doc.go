// Package encoder implements capability negotiation for the HDMI encoder.
//
// An Encoder owns the capability envelope resolved from the property store
// and, when one is configured, the DDC channel to the display. It answers
// three questions for the host pipeline: is a display connected (Detect),
// which modes exist (Modes), and whether a proposed mode fits the envelope
// (Validate). Power transitions are accepted and inert; Resume asks the host
// to re-evaluate the connection through its Notifier.
package encoder
