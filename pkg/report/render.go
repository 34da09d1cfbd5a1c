package report

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/srodi/spike-spy/pkg/ui"
)

// Render writes the spike header and, when any offender survived filtering, the offender table.
func Render(w io.Writer, s Spike, palette ui.Palette) error {
	var buf bytes.Buffer
	header := fmt.Sprintf("[CPU usage spike detected! ΔCPU=%.2f%%]", s.CPUDelta)
	buf.WriteString(palette.Alert(header))
	buf.WriteString("\n")

	if len(s.Offenders) > 0 {
		title := fmt.Sprintf("Top CPU offenders (over last %s):", FormatDuration(s.Window))
		buf.WriteString(palette.Accent(title))
		buf.WriteString("\n")

		tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  PID\tNAME\tΔCPU(%)\tMEM")
		for _, row := range s.Offenders {
			fmt.Fprintf(tw, "  %d\t%s\t%.2f\t%s\n", row.PID, row.Name, row.CPUDelta, FormatMemory(row.MemoryBytes))
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("flush offender table: %w", err)
		}
		buf.WriteString("\n")
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// RenderFrameUpdate announces a periodic baseline refresh.
func RenderFrameUpdate(w io.Writer, palette ui.Palette) error {
	_, err := fmt.Fprintln(w, palette.Dim("[Frame update]"))
	return err
}
