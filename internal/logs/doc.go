// Package logs reads the daemon's JSON log file for `hdmictl logs`.
//
// Last reads trailing lines backwards from the end of the file, ReadFrom and
// Follow pick up appended lines by offset. Record decodes one JSON line so the
// CLI can filter by level, component or event type and print it in the
// console layout.
package logs
