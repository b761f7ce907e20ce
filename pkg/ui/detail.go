package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/bu/pkg/debug"
	"github.com/vanderheijden86/bu/pkg/model"
)

// detailMarkdown builds the markdown body for the detail pane.
func detailMarkdown(r model.Record, idx *model.Index) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s %s\n\n", TypeIcon(r.Type, r.Status), r.Title)

	sb.WriteString("| ID | Status | Type | Priority |\n|---|---|---|---|\n")
	fmt.Fprintf(&sb, "| **%s** | %s | %s | P%d |\n\n", r.ID, r.Status, r.Type, r.Priority)

	if len(r.Labels) > 0 {
		fmt.Fprintf(&sb, "**Labels:** %s\n\n", strings.Join(r.Labels, ", "))
	}
	if r.Assignee != "" {
		fmt.Fprintf(&sb, "**Assignee:** @%s\n\n", r.Assignee)
	}
	if r.Parent != "" {
		parent := r.Parent
		if idx != nil {
			if p, ok := idx.Get(r.Parent); ok {
				parent = fmt.Sprintf("%s %s", p.ID, p.Title)
			}
		}
		fmt.Fprintf(&sb, "**Parent:** %s\n\n", parent)
	}
	if len(r.BlockedBy) > 0 {
		fmt.Fprintf(&sb, "**Blocked by:** %s\n\n", strings.Join(r.BlockedBy, ", "))
	}
	if idx != nil {
		if blocks := idx.Blocks(r.ID); len(blocks) > 0 {
			fmt.Fprintf(&sb, "**Blocks:** %s\n\n", strings.Join(blocks, ", "))
		}
	}
	if r.CloseReason != "" {
		fmt.Fprintf(&sb, "**Close reason:** %s\n\n", r.CloseReason)
	}

	if d := strings.TrimSpace(r.Description); d != "" {
		sb.WriteString("### Description\n\n")
		sb.WriteString(d + "\n\n")
	}

	if len(r.Comments) > 0 {
		fmt.Fprintf(&sb, "### Comments (%d)\n", len(r.Comments))
		for _, c := range r.Comments {
			fmt.Fprintf(&sb, "> **%s** (%s)\n>\n> %s\n\n",
				c.Author, FormatTimeRel(c.CreatedAt),
				strings.ReplaceAll(c.Text, "\n", "\n> "))
		}
	}

	var stamps []string
	if !r.CreatedAt.IsZero() {
		stamps = append(stamps, "created "+r.CreatedAt.Format(time.DateTime))
	}
	if !r.UpdatedAt.IsZero() {
		stamps = append(stamps, "updated "+FormatTimeRel(r.UpdatedAt))
	}
	if len(stamps) > 0 {
		sb.WriteString("---\n\n*" + strings.Join(stamps, " · ") + "*\n")
	}
	return sb.String()
}

type detailKey struct {
	id      string
	updated time.Time
	width   int
	style   string
	// comments catches comment additions that do not bump updated_at.
	comments int
}

// detailPane renders the selected record into a scrollable viewport.
// Rendering is cached until the record, width or theme changes.
type detailPane struct {
	vp       viewport.Model
	key      detailKey
	renderer *glamour.TermRenderer
	rStyle   string
	rWidth   int
}

func newDetailPane() detailPane {
	return detailPane{vp: viewport.New(0, 0)}
}

func (d *detailPane) setSize(w, h int) {
	d.vp.Width = max(0, w)
	d.vp.Height = max(0, h)
}

func (d *detailPane) markdown(style string, width int) *glamour.TermRenderer {
	if d.renderer != nil && d.rStyle == style && d.rWidth == width {
		return d.renderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		debug.Log("detail: glamour renderer for %q: %v", style, err)
		d.renderer = nil
		return nil
	}
	d.renderer, d.rStyle, d.rWidth = r, style, width
	return r
}

// update re-renders when the record changed and applies the scroll offset.
// It returns the offset actually used after clamping to the content.
func (d *detailPane) update(r *model.Record, idx *model.Index, style string, offset int) int {
	if r == nil {
		if d.key.id != "" {
			d.key = detailKey{}
			d.vp.SetContent("")
		}
		d.vp.SetYOffset(0)
		return 0
	}

	k := detailKey{id: r.ID, updated: r.UpdatedAt, width: d.vp.Width, style: style, comments: len(r.Comments)}
	if k != d.key {
		md := detailMarkdown(*r, idx)
		content := md
		if tr := d.markdown(style, max(20, d.vp.Width-2)); tr != nil {
			if out, err := tr.Render(md); err == nil {
				content = strings.TrimRight(out, "\n")
			} else {
				debug.Log("detail: render %s: %v", r.ID, err)
			}
		}
		d.vp.SetContent(content)
		d.key = k
	}

	d.vp.SetYOffset(offset)
	return d.vp.YOffset
}

func (d *detailPane) view() string {
	return d.vp.View()
}
