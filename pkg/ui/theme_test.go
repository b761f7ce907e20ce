package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/bu/pkg/model"
)

func TestPalettes(t *testing.T) {
	ps := Palettes()
	if len(ps) != 4 {
		t.Fatalf("palettes = %d, want 4", len(ps))
	}
	seen := make(map[string]bool)
	for _, p := range ps {
		if p.Name == "" || p.Markdown == "" {
			t.Errorf("palette %+v missing name or markdown style", p.Name)
		}
		if seen[p.Name] {
			t.Errorf("duplicate palette %q", p.Name)
		}
		seen[p.Name] = true
	}
}

func TestThemeIndex(t *testing.T) {
	tests := map[string]int{
		"lazygit":     0,
		"Tokyo Night": 1,
		"tokyo-night": 1,
		"tokyo_night": 1,
		"DRACULA":     2,
		"nord":        3,
		"unknown":     0,
		"":            0,
	}
	for name, want := range tests {
		if got := ThemeIndex(name); got != want {
			t.Errorf("ThemeIndex(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestThemesBuildsAll(t *testing.T) {
	r := lipgloss.NewRenderer(nil)
	ts := Themes(r)
	if len(ts) != len(Palettes()) {
		t.Fatalf("themes = %d", len(ts))
	}
	for _, th := range ts {
		if th.Renderer != r {
			t.Errorf("%s: renderer mismatch", th.Name)
		}
	}
}

func TestStatusColor(t *testing.T) {
	th := TestTheme()
	tests := []struct {
		s    model.Status
		want lipgloss.TerminalColor
	}{
		{model.StatusOpen, th.Open},
		{model.StatusInProgress, th.InProgress},
		{model.StatusBlocked, th.Blocked},
		{model.StatusClosed, th.Closed},
		{model.StatusDeferred, th.Muted},
		{"", th.Open},
	}
	for _, tt := range tests {
		if got := th.StatusColor(tt.s); got != tt.want {
			t.Errorf("StatusColor(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestTypeIcon(t *testing.T) {
	tests := []struct {
		typ  model.RecordType
		s    model.Status
		want string
	}{
		{model.TypeBug, model.StatusOpen, "⊘"},
		{model.TypeBug, model.StatusClosed, "●"},
		{model.TypeFeature, model.StatusInProgress, "★"},
		{model.TypeEpic, model.StatusOpen, "◇"},
		{model.TypeChore, model.StatusClosed, "■"},
		{model.TypeTask, model.StatusOpen, "▷"},
		{"spike", model.StatusInProgress, "▶"},
	}
	for _, tt := range tests {
		if got := TypeIcon(tt.typ, tt.s); got != tt.want {
			t.Errorf("TypeIcon(%q, %q) = %q, want %q", tt.typ, tt.s, got, tt.want)
		}
	}
}
