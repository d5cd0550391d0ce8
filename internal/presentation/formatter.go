package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"})
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"})
	savedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"})
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatResults formats event results as JSON
func (f *Formatter) FormatResults(results []ResultDTO) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

// FormatAlgorithms prints one registered algorithm type per line
func (f *Formatter) FormatAlgorithms(types []string) error {
	for _, t := range types {
		if _, err := fmt.Fprintln(f.writer, t); err != nil {
			return err
		}
	}
	return nil
}

// FormatSummary renders results as styled tables, one block per event
func (f *Formatter) FormatSummary(results []ResultDTO) error {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, renderEvent(r))
	}
	_, err := fmt.Fprintln(f.writer, lipgloss.JoinVertical(lipgloss.Left, blocks...))
	return err
}

func renderEvent(r ResultDTO) string {
	lines := []string{headerStyle.Render(fmt.Sprintf("Event %d", r.Event))}
	if r.Error != "" {
		lines = append(lines, errorStyle.Render("  error: "+r.Error))
	}

	rows := [][]string{{"manager", "list", "objects", ""}}
	for _, m := range []struct {
		name string
		dto  ManagerDTO
	}{{"calo_hits", r.Hits}, {"tracks", r.Tracks}, {"clusters", r.Clusters}} {
		for _, l := range m.dto.Lists {
			mark := ""
			switch {
			case l.Name == m.dto.Current && l.Saved:
				mark = "current, saved"
			case l.Name == m.dto.Current:
				mark = "current"
			case l.Saved:
				mark = "saved"
			}
			rows = append(rows, []string{m.name, l.Name, fmt.Sprint(l.Objects), mark})
		}
	}
	if len(rows) > 1 {
		lines = append(lines, renderTable(rows, func(col int) lipgloss.Style {
			if col == 3 {
				return savedStyle
			}
			return lipgloss.NewStyle()
		}))
	}

	if len(r.Details) > 0 {
		rows = [][]string{{"cluster", "list", "hits", "tracks", "energy", "layers"}}
		for _, c := range r.Details {
			rows = append(rows, []string{
				c.Handle, c.List, fmt.Sprint(c.Hits), fmt.Sprint(c.Tracks),
				fmt.Sprintf("%.2f", c.Energy), fmt.Sprintf("%d-%d", c.InnerLayer, c.OuterLayer),
			})
		}
		lines = append(lines, renderTable(rows, func(int) lipgloss.Style { return lipgloss.NewStyle() }))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

// renderTable aligns rows into columns; the first row is the header.
func renderTable(rows [][]string, style func(col int) lipgloss.Style) string {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for r, row := range rows {
		b.WriteString("  ")
		for i, cell := range row {
			s := cellStyle.Width(widths[i] + 2)
			if r == 0 {
				s = s.Inherit(mutedStyle)
			} else {
				s = s.Inherit(style(i))
			}
			b.WriteString(s.Render(cell))
		}
		if r < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
