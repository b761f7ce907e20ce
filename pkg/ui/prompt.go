package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// promptKind names what a submitted prompt does.
type promptKind int

const (
	promptFilter promptKind = iota
	promptClose
	promptReopen
	promptLabels
	promptComment
)

// Prompt is a single-line input shown in the footer.
type Prompt struct {
	kind   promptKind
	target string
	label  string
	input  textinput.Model

	submitted bool
	cancelled bool
}

func newPrompt(kind promptKind, target, label, value string) Prompt {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 500
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()
	return Prompt{kind: kind, target: target, label: label, input: ti}
}

// Update handles one key. enter submits and esc cancels.
func (p Prompt) Update(msg tea.Msg) (Prompt, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			p.submitted = true
			return p, nil
		case "esc":
			p.cancelled = true
			return p, nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

// Value returns the trimmed input.
func (p Prompt) Value() string { return strings.TrimSpace(p.input.Value()) }

// Raw returns the input as typed.
func (p Prompt) Raw() string { return p.input.Value() }

func (p *Prompt) setWidth(w int) { p.input.Width = max(10, w) }

func (p Prompt) View(th Theme) string {
	return th.Header.Render(p.label+" ") + p.input.View()
}

// ParseLabelDiff reads "+a -b c" into labels to add and remove. A bare
// word is an addition.
func ParseLabelDiff(s string) (add, remove []string, err error) {
	for _, tok := range strings.Fields(s) {
		switch {
		case strings.HasPrefix(tok, "-"):
			if l := strings.TrimPrefix(tok, "-"); l != "" {
				remove = append(remove, l)
				continue
			}
			return nil, nil, fmt.Errorf("empty label in %q", tok)
		case strings.HasPrefix(tok, "+"):
			if l := strings.TrimPrefix(tok, "+"); l != "" {
				add = append(add, l)
				continue
			}
			return nil, nil, fmt.Errorf("empty label in %q", tok)
		default:
			add = append(add, tok)
		}
	}
	for _, a := range add {
		for _, r := range remove {
			if a == r {
				return nil, nil, fmt.Errorf("label %q both added and removed", a)
			}
		}
	}
	return add, remove, nil
}
