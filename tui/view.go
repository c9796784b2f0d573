package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/etnz/tastywatch"
)

const (
	outerMargin   = 2
	columnSpacing = 1
	cursorSymbol  = ">> "
)

var (
	docStyle      = lipgloss.NewStyle().Margin(outerMargin)
	tableStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder())
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Background(lipgloss.Color("4"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
)

func (m Model) View() string {
	if !m.ready {
		return ""
	}
	innerWidth := m.width - 2*outerMargin - 2
	innerHeight := m.height - 2*outerMargin - 2
	if innerWidth < 1 || innerHeight < 2 {
		return ""
	}
	bodyHeight := innerHeight - 1

	frame := tastywatch.BuildFrame(m.portfolio)
	selected, hasSelection := m.nav.Selected()

	// The cursor column exists only while something is selected; header and
	// unselected rows shift with it so the columns stay aligned.
	gutter := ""
	if hasSelection {
		gutter = strings.Repeat(" ", len(cursorSymbol))
	}

	lines := make([]string, 0, innerHeight)
	lines = append(lines, headerStyle.Render(pad(gutter+joinCells(tastywatch.Columns), innerWidth)))

	start := m.offset
	if last := len(frame.Rows) - bodyHeight; last >= 0 && start > last {
		start = last
	}
	if start < 0 {
		start = 0
	}
	for i := start; i < len(frame.Rows) && i < start+bodyHeight; i++ {
		if hasSelection && i == selected {
			lines = append(lines, selectedStyle.Render(pad(cursorSymbol+joinCells(frame.Rows[i]), innerWidth)))
			continue
		}
		lines = append(lines, pad(gutter+joinCells(frame.Rows[i]), innerWidth))
	}
	for len(lines) < innerHeight {
		lines = append(lines, pad("", innerWidth))
	}

	return docStyle.Render(tableStyle.Render(strings.Join(lines, "\n")))
}

// joinCells lays a row out on the fixed column grid, one space between
// columns.
func joinCells(cells [9]string) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(strings.Repeat(" ", columnSpacing))
		}
		b.WriteString(pad(cell, tastywatch.ColumnWidths[i]))
	}
	return b.String()
}

// pad cuts or right-pads s to exactly width cells.
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
