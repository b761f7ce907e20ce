package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/bu/pkg/model"
)

func typeInto(m CreateModal, s string) CreateModal {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestCreateModalDefaults(t *testing.T) {
	m := NewCreateModal(TestTheme(), "")
	p := m.Payload()
	if p.Title != "" || p.Type != model.TypeTask || p.Priority != 2 || p.Parent != "" {
		t.Errorf("defaults = %+v", p)
	}
}

func TestCreateModalFields(t *testing.T) {
	m := NewCreateModal(TestTheme(), "bu-1")
	m = typeInto(m, "  Title here ")

	// Type: task -> bug
	m, _ = m.Update(keyMsg("tab"))
	m, _ = m.Update(keyMsg("right"))
	// Priority: P2 -> P1
	m, _ = m.Update(keyMsg("tab"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	// Description
	m, _ = m.Update(keyMsg("tab"))
	m = typeInto(m, "body")
	// Labels
	m, _ = m.Update(keyMsg("tab"))
	m = typeInto(m, "ui, ,backend,ui")

	p := m.Payload()
	if p.Title != "Title here" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Type != model.TypeBug {
		t.Errorf("type = %q", p.Type)
	}
	if p.Priority != 1 {
		t.Errorf("priority = %d", p.Priority)
	}
	if p.Description != "body" {
		t.Errorf("description = %q", p.Description)
	}
	if strings.Join(p.Labels, ",") != "backend,ui" {
		t.Errorf("labels = %v", p.Labels)
	}
	if p.Parent != "bu-1" {
		t.Errorf("parent = %q", p.Parent)
	}
}

func TestCreateModalShiftTabWraps(t *testing.T) {
	m := NewCreateModal(TestTheme(), "")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.focusedField != len(m.fields)-1 {
		t.Errorf("focused = %d, want last", m.focusedField)
	}
}

func TestCreateModalSubmitCancel(t *testing.T) {
	m := NewCreateModal(TestTheme(), "")
	m, _ = m.Update(keyMsg("ctrl+s"))
	if !m.IsSubmitRequested() {
		t.Error("ctrl+s should request submit")
	}
	m.SetError("title is required")
	if m.IsSubmitRequested() || m.Banner() != "title is required" {
		t.Error("SetError should clear submit and set banner")
	}
	m, _ = m.Update(keyMsg("esc"))
	if !m.IsCancelRequested() {
		t.Error("esc should request cancel")
	}
	m.Reopen()
	if m.IsCancelRequested() {
		t.Error("Reopen should clear cancel")
	}
}

func TestCreateModalView(t *testing.T) {
	m := NewCreateModal(TestTheme(), "bu-3")
	m.SetSize(100, 40)
	m.SetError("busy")
	view := m.View()
	for _, want := range []string{"New child of bu-3", "Title:", "Priority:", "busy", "Ctrl+S"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestParsePriority(t *testing.T) {
	tests := map[string]int{"P0": 0, "P4": 4, "P9": 9, "x": 2, "": 2, "Pz": 2}
	for in, want := range tests {
		if got := parsePriority(in); got != want {
			t.Errorf("parsePriority(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestEditModalPrefill(t *testing.T) {
	rec := model.Record{
		ID: "bu-5", Title: "Tidy", Type: "spike", Priority: 9,
		Description: "notes", Labels: []string{"a", "b"},
	}
	m := NewEditModal(TestTheme(), rec)
	if m.Editing() != "bu-5" {
		t.Fatalf("Editing = %q", m.Editing())
	}
	p := m.Payload()
	if p.Title != "Tidy" || p.Type != "spike" || p.Priority != model.MaxPriority || p.Description != "notes" {
		t.Errorf("payload = %+v", p)
	}
	if strings.Join(p.Labels, ",") != "a,b" || p.Parent != "" {
		t.Errorf("labels=%v parent=%q", p.Labels, p.Parent)
	}

	m.SetSize(100, 40)
	view := m.View()
	for _, want := range []string{"Edit bu-5", "Ctrl+S] Save"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "Parent:") {
		t.Error("edit form should not offer a parent")
	}
}
