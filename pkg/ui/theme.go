package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/bu/pkg/model"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and fallback
// otherwise.
func ThemeFg(hex string, fallback lipgloss.ANSIColor) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return fallback
	}
	return lipgloss.Color(hex)
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// Palette is the raw color set of a theme.
type Palette struct {
	Name          string
	Bg            lipgloss.TerminalColor
	Fg            lipgloss.TerminalColor
	Muted         lipgloss.TerminalColor
	Accent        lipgloss.TerminalColor
	Border        lipgloss.TerminalColor
	FocusedBorder lipgloss.TerminalColor
	SelectionBg   lipgloss.TerminalColor
	SelectionFg   lipgloss.TerminalColor

	Open       lipgloss.TerminalColor
	InProgress lipgloss.TerminalColor
	Blocked    lipgloss.TerminalColor
	Closed     lipgloss.TerminalColor

	PrioCritical lipgloss.TerminalColor
	PrioHigh     lipgloss.TerminalColor
	PrioMedium   lipgloss.TerminalColor
	PrioLow      lipgloss.TerminalColor

	// Markdown is the glamour standard style used for the detail pane.
	Markdown string
}

// Palettes lists the built-in themes; the first is the default.
func Palettes() []Palette {
	return []Palette{
		{
			// Neutral, green focus border, terminal background.
			Name:          "Lazygit",
			Bg:            lipgloss.NoColor{},
			Fg:            lipgloss.ANSIColor(15),
			Muted:         lipgloss.ANSIColor(7),
			Accent:        lipgloss.ANSIColor(6),
			Border:        lipgloss.ANSIColor(8),
			FocusedBorder: lipgloss.ANSIColor(2),
			SelectionBg:   lipgloss.ANSIColor(8),
			SelectionFg:   lipgloss.ANSIColor(14),
			Open:          lipgloss.ANSIColor(15),
			InProgress:    lipgloss.ANSIColor(6),
			Blocked:       lipgloss.ANSIColor(1),
			Closed:        lipgloss.ANSIColor(2),
			PrioCritical:  lipgloss.ANSIColor(1),
			PrioHigh:      lipgloss.ANSIColor(3),
			PrioMedium:    lipgloss.ANSIColor(15),
			PrioLow:       lipgloss.ANSIColor(7),
			Markdown:      "dark",
		},
		{
			Name:          "Tokyo Night",
			Bg:            ThemeBg("#1A1B26"),
			Fg:            ThemeFg("#A9B1D6", 15),
			Muted:         ThemeFg("#565F89", 8),
			Accent:        ThemeFg("#7AA2F7", 4),
			Border:        ThemeFg("#3B4261", 8),
			FocusedBorder: ThemeFg("#9ECE6A", 2),
			SelectionBg:   ThemeFg("#292E42", 8),
			SelectionFg:   ThemeFg("#C0CAF5", 15),
			Open:          ThemeFg("#A9B1D6", 15),
			InProgress:    ThemeFg("#7DCFFF", 6),
			Blocked:       ThemeFg("#F7768E", 1),
			Closed:        ThemeFg("#9ECE6A", 2),
			PrioCritical:  ThemeFg("#F7768E", 1),
			PrioHigh:      ThemeFg("#FF9E64", 3),
			PrioMedium:    ThemeFg("#E0AF68", 11),
			PrioLow:       ThemeFg("#9ECE6A", 2),
			Markdown:      "tokyo-night",
		},
		{
			Name:          "Dracula",
			Bg:            ThemeBg("#282A36"),
			Fg:            ThemeFg("#F8F8F2", 15),
			Muted:         ThemeFg("#6272A4", 8),
			Accent:        ThemeFg("#BD93F9", 5),
			Border:        ThemeFg("#44475A", 8),
			FocusedBorder: ThemeFg("#50FA7B", 2),
			SelectionBg:   ThemeFg("#44475A", 8),
			SelectionFg:   ThemeFg("#F8F8F2", 15),
			Open:          ThemeFg("#F8F8F2", 15),
			InProgress:    ThemeFg("#8BE9FD", 6),
			Blocked:       ThemeFg("#FF5555", 1),
			Closed:        ThemeFg("#50FA7B", 2),
			PrioCritical:  ThemeFg("#FF5555", 1),
			PrioHigh:      ThemeFg("#FFB86C", 3),
			PrioMedium:    ThemeFg("#F1FA8C", 11),
			PrioLow:       ThemeFg("#50FA7B", 2),
			Markdown:      "dracula",
		},
		{
			Name:          "Nord",
			Bg:            ThemeBg("#2E3440"),
			Fg:            ThemeFg("#D8DEE9", 15),
			Muted:         ThemeFg("#4C566A", 8),
			Accent:        ThemeFg("#88C0D0", 6),
			Border:        ThemeFg("#3B4252", 8),
			FocusedBorder: ThemeFg("#A3BE8C", 2),
			SelectionBg:   ThemeFg("#434C5E", 8),
			SelectionFg:   ThemeFg("#ECEFF4", 15),
			Open:          ThemeFg("#D8DEE9", 15),
			InProgress:    ThemeFg("#88C0D0", 6),
			Blocked:       ThemeFg("#BF616A", 1),
			Closed:        ThemeFg("#A3BE8C", 2),
			PrioCritical:  ThemeFg("#BF616A", 1),
			PrioHigh:      ThemeFg("#D08770", 3),
			PrioMedium:    ThemeFg("#EBCB8B", 11),
			PrioLow:       ThemeFg("#A3BE8C", 2),
			Markdown:      "dark",
		},
	}
}

// ThemeIndex returns the palette index for a configured name, matched
// case-insensitively with spaces and dashes ignored. Unknown names give 0.
func ThemeIndex(name string) int {
	norm := func(s string) string {
		s = strings.ToLower(s)
		return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
	}
	want := norm(name)
	for i, p := range Palettes() {
		if norm(p.Name) == want {
			return i
		}
	}
	return 0
}

// Theme is a palette with its styles built once for a renderer.
type Theme struct {
	Palette
	Renderer *lipgloss.Renderer

	Base          lipgloss.Style
	MutedText     lipgloss.Style
	AccentText    lipgloss.Style
	Selected      lipgloss.Style
	Header        lipgloss.Style
	Panel         lipgloss.Style
	FocusedPanel  lipgloss.Style
	PanelTitle    lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	Banner        lipgloss.Style
	KeyHint       lipgloss.Style
	KeyHintLabel  lipgloss.Style
	PendingMarker lipgloss.Style
}

// NewTheme builds the styles for p.
func NewTheme(r *lipgloss.Renderer, p Palette) Theme {
	t := Theme{Palette: p, Renderer: r}

	t.Base = r.NewStyle().Foreground(p.Fg)
	t.MutedText = r.NewStyle().Foreground(p.Muted)
	t.AccentText = r.NewStyle().Foreground(p.Accent)
	t.Selected = r.NewStyle().Background(p.SelectionBg).Foreground(p.SelectionFg).Bold(true)
	t.Header = r.NewStyle().Foreground(p.Accent).Bold(true)
	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border)
	t.FocusedPanel = t.Panel.BorderForeground(p.FocusedBorder)
	t.PanelTitle = r.NewStyle().Foreground(p.Fg).Bold(true)
	t.StatusInfo = r.NewStyle().Foreground(p.Closed).Bold(true)
	t.StatusError = r.NewStyle().Foreground(p.Blocked).Bold(true)
	t.Banner = r.NewStyle().Foreground(p.Blocked).Bold(true).Padding(0, 1)
	t.KeyHint = r.NewStyle().Foreground(p.Accent)
	t.KeyHintLabel = r.NewStyle().Foreground(p.Muted)
	t.PendingMarker = r.NewStyle().Foreground(p.PrioHigh).Bold(true)
	return t
}

// Themes builds every palette for r.
func Themes(r *lipgloss.Renderer) []Theme {
	ps := Palettes()
	out := make([]Theme, len(ps))
	for i, p := range ps {
		out[i] = NewTheme(r, p)
	}
	return out
}

// StatusColor returns the color for a status.
func (t Theme) StatusColor(s model.Status) lipgloss.TerminalColor {
	switch s {
	case model.StatusInProgress:
		return t.InProgress
	case model.StatusBlocked:
		return t.Blocked
	case model.StatusClosed:
		return t.Closed
	case model.StatusDeferred:
		return t.Muted
	default:
		return t.Open
	}
}

// PriorityColor returns the color for a priority level.
func (t Theme) PriorityColor(p int) lipgloss.TerminalColor {
	switch p {
	case 0:
		return t.PrioCritical
	case 1:
		return t.PrioHigh
	case 2:
		return t.PrioMedium
	default:
		return t.PrioLow
	}
}

// TypeIcon returns the glyph for a record: the shape names the type, the
// fill names the status.
func TypeIcon(typ model.RecordType, s model.Status) string {
	filled := s == model.StatusInProgress || s == model.StatusClosed
	switch typ {
	case model.TypeBug:
		if filled {
			return "●"
		}
		return "⊘"
	case model.TypeFeature:
		if filled {
			return "★"
		}
		return "☆"
	case model.TypeEpic:
		if filled {
			return "◆"
		}
		return "◇"
	case model.TypeChore:
		if filled {
			return "■"
		}
		return "□"
	default:
		if filled {
			return "▶"
		}
		return "▷"
	}
}

// TestTheme returns the default theme for tests.
func TestTheme() Theme {
	return NewTheme(lipgloss.NewRenderer(os.Stdout), Palettes()[0])
}
