package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	renderer *lipgloss.Renderer

	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Code    lipgloss.Style
}

// NewStyles builds styles bound to r, so colour support follows the
// writer the renderer was created for.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		renderer: r,
		Header1:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2:  r.NewStyle().Bold(true),
		Bold:     r.NewStyle().Bold(true),
		Success:  r.NewStyle().Foreground(lipgloss.Color("10")),
		Error:    r.NewStyle().Foreground(lipgloss.Color("9")),
		Warning:  r.NewStyle().Foreground(lipgloss.Color("11")),
		Info:     r.NewStyle().Foreground(lipgloss.Color("14")),
		Muted:    r.NewStyle().Foreground(lipgloss.Color("8")),
		Code:     r.NewStyle().Foreground(lipgloss.Color("13")),
	}
}

// Swatch renders a two-cell block in the given "#rrggbb" colour. Writers
// without colour support get the bare block.
func (s *Styles) Swatch(hex string) string {
	return s.renderer.NewStyle().Foreground(lipgloss.Color(hex)).Render("██")
}

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown bullet with a bold key.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}

// Table renders rows under header. Text mode gets a light box table;
// markdown mode gets a markdown table.
func (r *Renderer) Table(header []string, rows [][]string) {
	writeTable(r.out, header, rows, r.EffectiveMode() == ModeMarkdown)
}

func writeTable(w io.Writer, header []string, rows [][]string, markdown bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		t.AppendRow(r)
	}

	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}
