package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hdmictl/internal/display"
	"hdmictl/internal/encoder"
)

// statusKind is the severity shown in brackets on a status line.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	label  string
	colors text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed}},
}

const statusLabelWidth = 20

var titleCaser = cases.Title(language.Und)

// renderStatusLine renders "  Label:   [KIND] message", colored as a whole.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	badge := "[" + style.label + "]"
	if message != "" {
		badge += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", badge)
	if colorize {
		return style.colors.Sprint(line)
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	if colorize {
		blue := text.Colors{text.FgBlue, text.Bold}
		return []string{blue.Sprint(line), blue.Sprint(rule)}
	}
	return []string{line, rule}
}

func connectionKind(status display.Status) statusKind {
	switch status {
	case display.StatusConnected:
		return statusOK
	case display.StatusDisconnected:
		return statusWarn
	default:
		return statusInfo
	}
}

// verdictKind separates modes the encoder cannot drive at all from modes that
// only exceed the configured envelope.
func verdictKind(v encoder.Verdict) statusKind {
	switch v {
	case encoder.Accept:
		return statusOK
	case encoder.BadMode, encoder.InterlaceUnsupported:
		return statusError
	default:
		return statusWarn
	}
}

// humanize turns snake_case identifiers into title-cased words.
func humanize(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
