package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// renderHelp draws the key overlay from the key map.
func renderHelp(th Theme, keys KeyMap, width, height int) string {
	h := help.New()
	h.ShowAll = true
	h.Styles.FullKey = th.KeyHint
	h.Styles.FullDesc = th.KeyHintLabel
	h.Styles.FullSeparator = th.MutedText
	h.Width = max(0, width-8)

	var b strings.Builder
	b.WriteString(th.Header.Render("Keys"))
	b.WriteString("\n\n")
	b.WriteString(h.View(keys))
	b.WriteString("\n\n")
	b.WriteString(th.MutedText.Render("mouse: click selects · wheel scrolls · drag the divider to resize"))
	b.WriteString("\n")
	b.WriteString(th.MutedText.Italic(true).Render("press any key to close"))

	box := th.FocusedPanel.Padding(1, 2).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// shortHelp renders the footer hint line.
func shortHelp(th Theme, keys KeyMap, width int) string {
	h := help.New()
	h.Styles.ShortKey = th.KeyHint
	h.Styles.ShortDesc = th.KeyHintLabel
	h.Styles.ShortSeparator = th.MutedText
	h.Width = width
	return h.View(keys)
}
