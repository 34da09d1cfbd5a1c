package ui

import "strings"

const (
	reset       = "\033[0m"
	bold        = "\033[1m"
	beeYellow   = "\033[38;5;226m"
	honeyOrange = "\033[38;5;214m"
	mint        = "\033[38;5;121m"
	cobalt      = "\033[38;5;33m"
	deepIndigo  = "\033[38;5;61m"
	fuchsia     = "\033[38;5;177m"
	ember       = "\033[38;5;208m"
	alertRed    = "\033[38;5;196m"
	dimGray     = "\033[38;5;244m"
)

// Banner renders the spike-spy wordmark, colored only when the palette is enabled.
func (p Palette) Banner() string {
	var b strings.Builder
	code := func(c string) string {
		if !p.Enabled {
			return ""
		}
		return c
	}

	spikeLetters := [][]string{
		{" ██████╗ ", "██╔════╝ ", "╚█████╗  ", " ╚═══██╗ ", "██████╔╝ ", "╚═════╝  "},
		{"██████╗  ", "██╔══██╗ ", "██████╔╝ ", "██╔═══╝  ", "██║      ", "╚═╝      "},
		{"██╗", "██║", "██║", "██║", "██║", "╚═╝"},
		{"██╗  ██╗", "██║ ██╔╝", "█████╔╝ ", "██╔═██╗ ", "██║  ██╗", "╚═╝  ╚═╝"},
		{"███████╗", "██╔════╝", "█████╗  ", "██╔══╝  ", "███████╗", "╚══════╝"},
	}
	spikeGradient := []string{ember, honeyOrange, beeYellow, mint, cobalt, deepIndigo, fuchsia}
	spikeRows := make([]string, len(spikeLetters[0]))
	for i, letter := range spikeLetters {
		color := code(spikeGradient[i%len(spikeGradient)])
		for row := 0; row < len(letter); row++ {
			spikeRows[row] += color + letter[row] + "  "
		}
	}
	for _, line := range spikeRows {
		b.WriteString(code(bold) + line + code(reset) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(p.Accent("spike-spy") + "  •  CPU spike lens\n\n")

	return b.String()
}
