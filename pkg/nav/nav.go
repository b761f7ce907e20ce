// Package nav holds the selection transitions for the list and detail panes.
// Every function is pure: it takes the visible IDs and a Selection and
// returns the next Selection.
package nav

import "slices"

// Pane identifies which pane has focus.
type Pane int

const (
	PaneList Pane = iota
	PaneDetail
)

func (p Pane) String() string {
	if p == PaneDetail {
		return "detail"
	}
	return "list"
}

// DefaultPageSize is the page step when none is configured.
const DefaultPageSize = 10

// Selection is the highlighted record plus focus and per-pane scroll.
// ID is empty when nothing is selected.
type Selection struct {
	ID           string
	Pane         Pane
	ListOffset   int
	DetailOffset int
}

// None reports whether nothing is selected.
func (s Selection) None() bool { return s.ID == "" }

// Index returns the row of the selected ID in ids, or -1.
func Index(ids []string, sel Selection) int {
	if sel.ID == "" {
		return -1
	}
	return slices.Index(ids, sel.ID)
}

func at(ids []string, sel Selection, i int) Selection {
	if len(ids) == 0 {
		sel.ID = ""
		sel.ListOffset = 0
		return sel
	}
	i = max(0, min(i, len(ids)-1))
	if ids[i] != sel.ID {
		sel.DetailOffset = 0
	}
	sel.ID = ids[i]
	return sel
}

// MoveBy moves delta rows, clamped at both ends. With no valid selection
// it lands on the first row.
func MoveBy(ids []string, sel Selection, delta int) Selection {
	i := Index(ids, sel)
	if i < 0 {
		return at(ids, sel, 0)
	}
	return at(ids, sel, i+delta)
}

// Page moves by pageSize rows in the direction of dir (negative is up).
func Page(ids []string, sel Selection, pageSize, dir int) Selection {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	switch {
	case dir < 0:
		return MoveBy(ids, sel, -pageSize)
	case dir > 0:
		return MoveBy(ids, sel, pageSize)
	}
	return sel
}

// First selects the first row.
func First(ids []string, sel Selection) Selection {
	return at(ids, sel, 0)
}

// Last selects the last row.
func Last(ids []string, sel Selection) Selection {
	return at(ids, sel, len(ids)-1)
}

// SwitchPane toggles focus between list and detail.
func SwitchPane(sel Selection) Selection {
	if sel.Pane == PaneList {
		sel.Pane = PaneDetail
	} else {
		sel.Pane = PaneList
	}
	return sel
}

// FocusPane sets focus explicitly.
func FocusPane(sel Selection, p Pane) Selection {
	sel.Pane = p
	return sel
}

// Revalidate carries sel across a rebuild from oldIDs to newIDs. A
// selection that vanished falls back to the nearest preceding row that
// survived, then to the first row, then to none.
func Revalidate(oldIDs, newIDs []string, sel Selection) Selection {
	if len(newIDs) == 0 {
		sel.ID = ""
		sel.ListOffset = 0
		sel.DetailOffset = 0
		return sel
	}
	if sel.ID != "" && slices.Contains(newIDs, sel.ID) {
		return sel
	}

	present := make(map[string]bool, len(newIDs))
	for _, id := range newIDs {
		present[id] = true
	}
	if old := slices.Index(oldIDs, sel.ID); old > 0 {
		for i := old - 1; i >= 0; i-- {
			if present[oldIDs[i]] {
				sel.ID = oldIDs[i]
				sel.DetailOffset = 0
				return sel
			}
		}
	}
	return at(newIDs, sel, 0)
}

// Clamp adjusts ListOffset so the selected row sits inside a viewport of
// the given height, and keeps the offset within the sequence.
func Clamp(ids []string, sel Selection, height int) Selection {
	if height <= 0 || len(ids) == 0 {
		sel.ListOffset = 0
		return sel
	}
	maxOffset := max(0, len(ids)-height)
	if i := Index(ids, sel); i >= 0 {
		if i < sel.ListOffset {
			sel.ListOffset = i
		}
		if i >= sel.ListOffset+height {
			sel.ListOffset = i - height + 1
		}
	}
	sel.ListOffset = max(0, min(sel.ListOffset, maxOffset))
	return sel
}

// SelectRow selects the row at screen position row within the list
// viewport. Clicks past the end are ignored.
func SelectRow(ids []string, sel Selection, row int) Selection {
	i := sel.ListOffset + row
	if row < 0 || i >= len(ids) {
		return sel
	}
	sel = at(ids, sel, i)
	sel.Pane = PaneList
	return sel
}

// Wheel applies a mouse wheel step. In the detail pane it scrolls the
// detail text; in the list it moves the selection.
func Wheel(ids []string, sel Selection, lines int) Selection {
	if sel.Pane == PaneDetail {
		sel.DetailOffset = max(0, sel.DetailOffset+lines)
		return sel
	}
	return MoveBy(ids, sel, lines)
}
