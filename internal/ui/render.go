package ui

import (
	"fmt"
	"strings"

	"github.com/bnema/wlseat/internal/display"
	"github.com/bnema/wlseat/internal/ipc"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderStatus renders a full status view. width bounds the output table;
// zero means unbounded.
func RenderStatus(st *ipc.Status, width int) string {
	if st == nil {
		return SubtleStyle.Render("no status")
	}

	var b strings.Builder

	seat := st.Seat
	if seat == "" {
		seat = "(unnamed seat)"
	}
	b.WriteString(TitleStyle.Render("wlseat") + " " + BoldStyle.Render(seat) +
		SubtleStyle.Render(fmt.Sprintf("  %s  %d events", st.Capabilities, st.Events)))
	b.WriteString("\n\n")

	b.WriteString(renderKeyboard(st))
	b.WriteString("\n\n")
	b.WriteString(renderPointer(st))
	b.WriteString("\n\n")
	b.WriteString(renderWindow(st))
	b.WriteString("\n\n")
	b.WriteString(RenderOutputs(st.Outputs, st.CurrentOutput, width))
	return b.String()
}

func renderKeyboard(st *ipc.Status) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Keyboard"))
	b.WriteString("  " + FormatFlag(st.KeyboardFocus, "focus"))
	b.WriteString("  " + SubtleStyle.Render("policy "+st.FocusPolicy))
	if st.Layout != "" {
		b.WriteString("  " + SubtleStyle.Render("layout "+st.Layout))
	}
	if st.RepeatRate > 0 {
		b.WriteString("  " + SubtleStyle.Render(fmt.Sprintf("repeat %d/s after %dms", st.RepeatRate, st.RepeatDelay)))
	}
	if st.Blocked {
		b.WriteString("  " + WarningStyle.Render("blocked"))
	}
	b.WriteString("\n")

	if len(st.Keys) == 0 {
		b.WriteString(SubtleStyle.Render("no keys pressed"))
	} else {
		for _, k := range st.Keys {
			b.WriteString(KeyChipStyle.Render(strings.TrimPrefix(k.Name, "KEY_")))
		}
	}
	if len(st.ModifierNames) > 0 {
		b.WriteString("  " + TextStyle.Render(strings.Join(st.ModifierNames, "+")))
	}
	return b.String()
}

func renderPointer(st *ipc.Status) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Pointer"))
	b.WriteString("  " + FormatFlag(st.Pointer.Focus, "focus"))
	b.WriteString("\n")
	b.WriteString(TextStyle.Render(fmt.Sprintf("%d,%d", st.Pointer.X, st.Pointer.Y)))
	b.WriteString("  " + FormatFlag(st.Pointer.Left, "left"))
	b.WriteString("  " + FormatFlag(st.Pointer.Middle, "middle"))
	b.WriteString("  " + FormatFlag(st.Pointer.Right, "right"))

	b.WriteString("\n")
	b.WriteString(SectionStyle.Render("Touch"))
	if len(st.Touches) == 0 {
		b.WriteString("  " + SubtleStyle.Render("none"))
	}
	for _, tp := range st.Touches {
		b.WriteString("  " + TextStyle.Render(fmt.Sprintf("#%d %d,%d", tp.ID, tp.X, tp.Y)))
	}
	return b.String()
}

func renderWindow(st *ipc.Status) string {
	w := st.Window
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Window"))
	b.WriteString("  " + TextStyle.Render(fmt.Sprintf("%dx%d scale %d", w.Width, w.Height, w.Scale)))
	b.WriteString("  " + FormatFlag(w.Activated, "activated"))
	b.WriteString("  " + FormatFlag(w.Maximized, "maximized"))
	b.WriteString("  " + FormatFlag(w.Fullscreen, "fullscreen"))
	if !w.Configured {
		b.WriteString("  " + SubtleStyle.Render("not configured"))
	}
	return b.String()
}

// RenderOutputs renders outputs as a table, marking current by name
func RenderOutputs(outputs []display.OutputInfo, current string, width int) string {
	if len(outputs) == 0 {
		return SectionStyle.Render("Outputs") + "  " + SubtleStyle.Render("none")
	}

	rows := make([][]string, 0, len(outputs))
	for _, o := range outputs {
		marker := ""
		if o.Name != "" && o.Name == current {
			marker = "◀"
		}
		dpi := "-"
		if d := o.DPI(); d > 0 {
			dpi = fmt.Sprintf("%.0f", d)
		}
		rows = append(rows, []string{
			o.Name,
			fmt.Sprintf("%dx%d@%.2f", o.Width, o.Height, o.RefreshHz()),
			fmt.Sprintf("%d,%d", o.X, o.Y),
			fmt.Sprintf("%d", o.Scale),
			dpi,
			strings.TrimSpace(o.Make + " " + o.Model),
			marker,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 1)
			case col == 6:
				return lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true).Padding(0, 1)
			default:
				return lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
			}
		}).
		Headers("NAME", "MODE", "POSITION", "SCALE", "DPI", "MODEL", "").
		Rows(rows...)
	if width > 0 {
		t = t.Width(width)
	}
	return SectionStyle.Render("Outputs") + "\n" + t.String()
}
