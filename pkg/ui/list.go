package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/bu/pkg/mutation"
	"github.com/vanderheijden86/bu/pkg/session"
	"github.com/vanderheijden86/bu/pkg/tree"
)

const (
	pendingGlyph = "⟳"
	cyclicGlyph  = "↺"
)

// rowParts are the plain-text pieces of one list row.
type rowParts struct {
	prefix   string
	expander string
	icon     string
	prio     string
	id       string
	title    string
	labels   string
	markers  string
}

func expanderFor(n tree.Node) string {
	switch {
	case !n.HasChildren:
		return "  "
	case n.Expanded || n.Forced:
		return "▾ "
	default:
		return "▸ "
	}
}

func partsFor(n tree.Node, showLabels bool, pending bool) rowParts {
	r := n.Record
	p := rowParts{
		prefix:   n.Prefix,
		expander: expanderFor(n),
		icon:     TypeIcon(r.Type, r.Status) + " ",
		prio:     fmt.Sprintf("P%d ", r.Priority),
		id:       r.ID + " ",
		title:    firstLine(r.Title),
	}
	if showLabels && len(r.Labels) > 0 {
		p.labels = " [" + strings.Join(r.Labels, ", ") + "]"
	}
	if pending {
		p.markers += " " + pendingGlyph
	}
	if n.Cyclic {
		p.markers += " " + cyclicGlyph
	}
	return p
}

// fit truncates the title, then the labels, so the row is at most width cells.
func (p *rowParts) fit(width int) {
	fixed := runewidth.StringWidth(p.prefix + p.expander + p.icon + p.prio + p.id + p.markers)
	room := width - fixed
	if room <= 0 {
		p.title, p.labels = "", ""
		total := fixed
		if total > width {
			p.id = truncate(p.id, max(0, runewidth.StringWidth(p.id)-(total-width)))
		}
		return
	}
	lw := runewidth.StringWidth(p.labels)
	tw := runewidth.StringWidth(p.title)
	if tw+lw <= room {
		return
	}
	if tw >= room {
		p.title = truncate(p.title, room)
		p.labels = ""
		return
	}
	p.labels = truncate(p.labels, room-tw)
}

func (p rowParts) plain() string {
	return p.prefix + p.expander + p.icon + p.prio + p.id + p.title + p.labels + p.markers
}

// renderRow draws one row padded to width.
func renderRow(th Theme, n tree.Node, selected, showLabels, pending bool, width int) string {
	p := partsFor(n, showLabels, pending)
	p.fit(width)

	if selected {
		return th.Selected.Render(padRight(p.plain(), width))
	}

	r := n.Record
	titleStyle := th.Base
	if n.Context || r.Status.IsClosed() {
		titleStyle = th.MutedText
	}
	if n.Match && !n.Context {
		titleStyle = titleStyle.Bold(true)
	}

	var b strings.Builder
	b.WriteString(th.MutedText.Render(p.prefix + p.expander))
	b.WriteString(th.Renderer.NewStyle().Foreground(th.StatusColor(r.Status)).Render(p.icon))
	b.WriteString(th.Renderer.NewStyle().Foreground(th.PriorityColor(r.Priority)).Render(p.prio))
	b.WriteString(th.MutedText.Render(p.id))
	b.WriteString(titleStyle.Render(p.title))
	if p.labels != "" {
		b.WriteString(th.AccentText.Render(p.labels))
	}
	if p.markers != "" {
		b.WriteString(th.PendingMarker.Render(p.markers))
	}

	used := runewidth.StringWidth(p.plain())
	if used < width {
		b.WriteString(strings.Repeat(" ", width-used))
	}
	return b.String()
}

// renderList draws the rows of s that fall inside the list viewport.
func renderList(s *session.State, th Theme, width, height int) string {
	if height <= 0 || width <= 0 {
		return ""
	}
	nodes := s.Visible()
	if len(nodes) == 0 {
		msg := "No records"
		switch {
		case !s.Loaded():
			msg = "Loading…"
		case s.Filter() != "":
			msg = fmt.Sprintf("No records match %q", s.Filter())
		}
		return th.MutedText.Render(truncate(msg, width))
	}

	sel := s.Selection()
	muts := s.Mutations()
	end := min(len(nodes), sel.ListOffset+height)
	lines := make([]string, 0, height)
	for i := sel.ListOffset; i < end; i++ {
		n := nodes[i]
		_, busy := muts.Pending(n.ID())
		lines = append(lines, renderRow(th, n, n.ID() == sel.ID, s.ShowLabels(), busy, width))
	}
	return strings.Join(lines, "\n")
}

// pendingSummary describes in-flight commands for the footer.
func pendingSummary(c *mutation.Coordinator) string {
	n := c.PendingCount()
	if n == 0 {
		return ""
	}
	if n == 1 {
		return pendingGlyph + " 1 command running"
	}
	return fmt.Sprintf("%s %d commands running", pendingGlyph, n)
}
