package tastywatch

// Navigation is the cursor over the flattened table. Group headers count one
// row each; leg rows count only while their group is open. The cash and
// total rows never take the cursor.
type Navigation struct {
	selected int // -1 while nothing is selected
	numLines int
}

// NewNavigation returns a cursor sized to the portfolio with nothing
// selected.
func NewNavigation(p *Portfolio) *Navigation {
	return &Navigation{selected: -1, numLines: p.NumLines()}
}

// Selected returns the selected row index, or ok=false while nothing is
// selected.
func (n *Navigation) Selected() (int, bool) {
	if n.selected < 0 {
		return 0, false
	}
	return n.selected, true
}

// NumLines returns the current selectable row count.
func (n *Navigation) NumLines() int { return n.numLines }

// Next moves the selection down one row, wrapping to the top. The first
// move selects row zero.
func (n *Navigation) Next() {
	if n.numLines == 0 {
		return
	}
	if n.selected < 0 || n.selected >= n.numLines-1 {
		n.selected = 0
		return
	}
	n.selected++
}

// Previous moves the selection up one row, wrapping to the bottom. The
// first move selects row zero.
func (n *Navigation) Previous() {
	if n.numLines == 0 {
		return
	}
	switch {
	case n.selected < 0:
		n.selected = 0
	case n.selected == 0:
		n.selected = n.numLines - 1
	default:
		n.selected--
	}
}

// ToggleGroup flips the expansion flag of the selected group header and
// recomputes the row count. With the cursor on a leg row or with nothing
// selected it does nothing.
func (n *Navigation) ToggleGroup(p *Portfolio) {
	if n.selected < 0 {
		return
	}
	i := 0
	for _, u := range p.Underlyings() {
		g := p.Group(u)
		if i == n.selected {
			g.Open = !g.Open
			break
		}
		i++
		if g.Open {
			i += g.Len()
		}
	}
	n.Sync(p)
}

// Sync recomputes the row count after any change to the grouping and keeps
// the selection in range: a cursor stranded past the last row is clamped
// back, and cleared when no rows remain.
func (n *Navigation) Sync(p *Portfolio) {
	n.numLines = p.NumLines()
	if n.selected >= n.numLines {
		n.selected = n.numLines - 1
	}
}
