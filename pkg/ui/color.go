package ui

import (
	"os"

	"golang.org/x/term"
)

// Palette colors output only when enabled, so piped output stays plain text.
type Palette struct {
	Enabled bool
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (p Palette) paint(color, s string) string {
	if !p.Enabled {
		return s
	}
	return bold + color + s + reset
}

// Alert highlights spike headers.
func (p Palette) Alert(s string) string { return p.paint(alertRed, s) }

// Accent highlights section titles.
func (p Palette) Accent(s string) string { return p.paint(ember, s) }

// Dim de-emphasizes housekeeping messages.
func (p Palette) Dim(s string) string {
	if !p.Enabled {
		return s
	}
	return dimGray + s + reset
}
