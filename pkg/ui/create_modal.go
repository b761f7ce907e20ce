package ui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/bu/pkg/model"
	"github.com/vanderheijden86/bu/pkg/mutation"
)

// FieldType defines how a form field edits its value.
type FieldType int

const (
	FieldText FieldType = iota
	FieldTextArea
	FieldSelect
)

// FormField is one input in the create form.
type FormField struct {
	Label    string
	Key      string
	Type     FieldType
	Input    textinput.Model
	TextArea textarea.Model
	Options  []string
	Selected int
}

// CreateModal is the record form, used both for new records and for
// editing the selected one. It reports submit and cancel through flags
// the parent model checks after each Update.
type CreateModal struct {
	fields       []FormField
	focusedField int
	width        int
	height       int
	theme        Theme
	banner       string
	// editing is the ID of the record being edited, empty when creating.
	editing string

	submitRequested bool
	cancelRequested bool
}

// NewCreateModal returns an empty form. parent prefills the Parent field.
func NewCreateModal(theme Theme, parent string) CreateModal {
	fields := []FormField{
		makeTextField("Title", "title", ""),
		makeSelectField("Type", "type", string(model.TypeTask), typeOptions()),
		makeSelectField("Priority", "priority", "P2", priorityOptions()),
		makeTextAreaField("Description", "description", ""),
		makeTextField("Labels", "labels", ""),
		makeTextField("Parent", "parent", parent),
	}
	fields[0].Input.Focus()

	return CreateModal{fields: fields, theme: theme}
}

// NewEditModal returns the form prefilled from rec. It has no Parent field.
func NewEditModal(theme Theme, rec model.Record) CreateModal {
	typ := string(rec.Type)
	if typ == "" {
		typ = string(model.TypeTask)
	}
	types := typeOptions()
	if !slices.Contains(types, typ) {
		types = append(types, typ)
	}
	fields := []FormField{
		makeTextField("Title", "title", rec.Title),
		makeSelectField("Type", "type", typ, types),
		makeSelectField("Priority", "priority", fmt.Sprintf("P%d", min(max(rec.Priority, model.MinPriority), model.MaxPriority)), priorityOptions()),
		makeTextAreaField("Description", "description", rec.Description),
		makeTextField("Labels", "labels", strings.Join(rec.Labels, ", ")),
	}
	fields[0].Input.Focus()

	return CreateModal{fields: fields, theme: theme, editing: rec.ID}
}

// Editing returns the ID of the record being edited, or "".
func (m CreateModal) Editing() string { return m.editing }

func makeTextField(label, key, value string) FormField {
	ti := textinput.New()
	ti.SetValue(value)
	ti.CharLimit = 200
	ti.Width = 50
	return FormField{Label: label, Key: key, Type: FieldText, Input: ti}
}

func makeTextAreaField(label, key, value string) FormField {
	ta := textarea.New()
	ta.SetValue(value)
	ta.SetWidth(50)
	ta.SetHeight(4)
	ta.CharLimit = 5000
	ta.ShowLineNumbers = false
	return FormField{Label: label, Key: key, Type: FieldTextArea, TextArea: ta}
}

func makeSelectField(label, key, value string, options []string) FormField {
	selected := 0
	for i, opt := range options {
		if opt == value {
			selected = i
			break
		}
	}
	return FormField{Label: label, Key: key, Type: FieldSelect, Options: options, Selected: selected}
}

func priorityOptions() []string {
	out := make([]string, 0, model.MaxPriority-model.MinPriority+1)
	for p := model.MinPriority; p <= model.MaxPriority; p++ {
		out = append(out, fmt.Sprintf("P%d", p))
	}
	return out
}

func typeOptions() []string {
	out := make([]string, len(model.KnownTypes))
	for i, t := range model.KnownTypes {
		out[i] = string(t)
	}
	return out
}

// parsePriority converts "P2" to 2. Anything else is the default P2.
func parsePriority(s string) int {
	if len(s) > 1 && s[0] == 'P' {
		if val, err := strconv.Atoi(s[1:]); err == nil {
			return val
		}
	}
	return 2
}

// splitLabels parses a comma separated label list.
func splitLabels(s string) []string {
	return model.NormalizeLabels(strings.Split(s, ","))
}

// Update handles input for the form.
func (m CreateModal) Update(msg tea.Msg) (CreateModal, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+s":
		m.submitRequested = true
		return m, nil
	case "esc":
		m.cancelRequested = true
		return m, nil
	case "tab":
		m.focus((m.focusedField + 1) % len(m.fields))
		return m, nil
	case "shift+tab":
		m.focus((m.focusedField - 1 + len(m.fields)) % len(m.fields))
		return m, nil
	case "left", "right":
		if f := &m.fields[m.focusedField]; f.Type == FieldSelect {
			step := 1
			if key.String() == "left" {
				step = -1
			}
			f.Selected = (f.Selected + step + len(f.Options)) % len(f.Options)
			return m, nil
		}
	}

	var cmd tea.Cmd
	f := &m.fields[m.focusedField]
	switch f.Type {
	case FieldText:
		f.Input, cmd = f.Input.Update(msg)
	case FieldTextArea:
		f.TextArea, cmd = f.TextArea.Update(msg)
	}
	return m, cmd
}

func (m *CreateModal) focus(i int) {
	switch f := &m.fields[m.focusedField]; f.Type {
	case FieldText:
		f.Input.Blur()
	case FieldTextArea:
		f.TextArea.Blur()
	}
	m.focusedField = i
	switch f := &m.fields[i]; f.Type {
	case FieldText:
		f.Input.Focus()
	case FieldTextArea:
		f.TextArea.Focus()
	}
}

func (m CreateModal) value(key string) string {
	for _, f := range m.fields {
		if f.Key != key {
			continue
		}
		switch f.Type {
		case FieldText:
			return f.Input.Value()
		case FieldTextArea:
			return f.TextArea.Value()
		case FieldSelect:
			return f.Options[f.Selected]
		}
	}
	return ""
}

// Payload collects the entered values.
func (m CreateModal) Payload() mutation.Payload {
	return mutation.Payload{
		Title:       strings.TrimSpace(m.value("title")),
		Type:        model.RecordType(m.value("type")),
		Priority:    parsePriority(m.value("priority")),
		Description: strings.TrimSpace(m.value("description")),
		Labels:      splitLabels(m.value("labels")),
		Parent:      strings.TrimSpace(m.value("parent")),
	}
}

// SetError shows msg as a banner and clears the submit flag so the user
// can fix the input and resubmit.
func (m *CreateModal) SetError(msg string) {
	m.banner = msg
	m.submitRequested = false
}

// Banner returns the current error banner.
func (m CreateModal) Banner() string { return m.banner }

// Reopen clears the request flags, keeping the entered data.
func (m *CreateModal) Reopen() {
	m.submitRequested = false
	m.cancelRequested = false
}

// SetSize sets the area the modal is centered in.
func (m *CreateModal) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetTheme restyles the modal after a theme change.
func (m *CreateModal) SetTheme(t Theme) { m.theme = t }

func (m CreateModal) IsSubmitRequested() bool { return m.submitRequested }
func (m CreateModal) IsCancelRequested() bool { return m.cancelRequested }

// View renders the form.
func (m CreateModal) View() string {
	r := m.theme.Renderer
	boxWidth := max(60, min(m.width-10, 80))

	var content strings.Builder
	title := "New record"
	action := "Create"
	switch {
	case m.editing != "":
		title = "Edit " + m.editing
		action = "Save"
	case strings.TrimSpace(m.value("parent")) != "":
		title = "New child of " + strings.TrimSpace(m.value("parent"))
	}
	content.WriteString(m.theme.Header.Render(title))
	content.WriteString("\n\n")

	if m.banner != "" {
		content.WriteString(m.theme.StatusError.Render("✗ " + m.banner))
		content.WriteString("\n\n")
	}

	labelStyle := r.NewStyle().
		Foreground(m.theme.Muted).
		Width(12).
		Align(lipgloss.Right)
	focusedLabelStyle := labelStyle.
		Foreground(m.theme.Accent).
		Bold(true)

	for i, f := range m.fields {
		focused := i == m.focusedField
		if focused {
			content.WriteString(focusedLabelStyle.Render(f.Label + ":"))
		} else {
			content.WriteString(labelStyle.Render(f.Label + ":"))
		}
		content.WriteString(" ")

		switch f.Type {
		case FieldText:
			content.WriteString(f.Input.View())
		case FieldTextArea:
			lines := strings.Split(f.TextArea.View(), "\n")
			content.WriteString(strings.Join(lines, "\n"+strings.Repeat(" ", 13)))
		case FieldSelect:
			val := f.Options[f.Selected]
			if focused {
				content.WriteString(m.theme.AccentText.Render(fmt.Sprintf("< %s >", val)))
			} else {
				content.WriteString(val)
			}
		}
		content.WriteString("\n")
		if f.Type == FieldTextArea {
			content.WriteString("\n")
		}
	}

	content.WriteString("\n")
	instructions := "[Tab] Next field   [Ctrl+S] " + action + "   [Esc] Cancel"
	if m.fields[m.focusedField].Type == FieldSelect {
		instructions = "[←/→] Change   " + instructions
	}
	content.WriteString(m.theme.MutedText.Italic(true).Render(instructions))

	box := m.theme.FocusedPanel.
		Padding(1, 2).
		Width(boxWidth).
		Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
