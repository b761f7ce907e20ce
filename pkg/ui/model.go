package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/bu/internal/datasource"
	"github.com/vanderheijden86/bu/pkg/metrics"
	"github.com/vanderheijden86/bu/pkg/model"
	"github.com/vanderheijden86/bu/pkg/mutation"
	"github.com/vanderheijden86/bu/pkg/nav"
	"github.com/vanderheijden86/bu/pkg/session"
	"github.com/vanderheijden86/bu/pkg/watcher"
)

// wheelStep is how many rows one wheel notch moves.
const wheelStep = 3

// Options wires a Model to its collaborators.
type Options struct {
	State    *session.State
	Reader   datasource.Reader
	Executor mutation.Executor
	// Watcher is optional; nil disables file-change refreshes.
	Watcher *watcher.Watcher
	// RefreshInterval of zero disables the periodic timer.
	RefreshInterval time.Duration
	Themes          []Theme
	// TreeStatePath is where collapse state is saved. Empty disables saving.
	TreeStatePath string
	// Source labels the header, e.g. the beads directory.
	Source    string
	Logger    *slog.Logger
	Clipboard func(string) error
}

// Model is the Bubble Tea model for the dashboard. All state changes go
// through Update; reads and commands run as tea.Cmds.
type Model struct {
	state         *session.State
	reader        datasource.Reader
	executor      mutation.Executor
	watcher       *watcher.Watcher
	refresh       time.Duration
	themes        []Theme
	treeStatePath string
	source        string
	logger        *slog.Logger
	copyText      func(string) error

	keys   KeyMap
	width  int
	height int
	ready  bool

	detail detailPane

	showModal bool
	modal     CreateModal
	// forms holds submitted forms by ticket, restored if the command fails.
	forms map[uint64]CreateModal
	// selectAfter is a created ID to select once a refresh shows it.
	selectAfter string

	showPrompt bool
	prompt     Prompt

	showHelp bool

	statusMsg     string
	statusIsError bool
	statusSeq     int

	logLine  string
	logLevel slog.Level
	logSeq   int

	warnKey string

	tickGen  int
	reading  bool
	reread   bool
	dragging bool
}

// NewModel builds the dashboard model. Init starts the first read.
func NewModel(opts Options) Model {
	m := Model{
		state:         opts.State,
		reader:        opts.Reader,
		executor:      opts.Executor,
		watcher:       opts.Watcher,
		refresh:       opts.RefreshInterval,
		themes:        opts.Themes,
		treeStatePath: opts.TreeStatePath,
		source:        opts.Source,
		logger:        opts.Logger,
		copyText:      opts.Clipboard,
		keys:          DefaultKeyMap,
		detail:        newDetailPane(),
		forms:         make(map[uint64]CreateModal),
		reading:       true,
	}
	if m.state == nil {
		m.state = session.New(session.Options{})
	}
	if len(m.themes) == 0 {
		m.themes = []Theme{TestTheme()}
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.copyText == nil {
		m.copyText = clipboard.WriteAll
	}
	return m
}

// Init starts the first read, the refresh timer and the file watch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ReadSnapshotCmd(m.reader),
		TickCmd(m.refresh, m.tickGen),
		WatchFileCmd(m.watcher),
	)
}

// State exposes the session state, mainly for tests.
func (m Model) State() *session.State { return m.state }

func (m Model) theme() Theme {
	return m.themes[m.state.ThemeIndex()%len(m.themes)]
}

// requestRead starts a snapshot read unless one is in flight, in which
// case one more read is queued behind it.
func (m *Model) requestRead() tea.Cmd {
	if m.reading {
		m.reread = true
		return nil
	}
	m.reading = true
	return ReadSnapshotCmd(m.reader)
}

func (m *Model) readDone() tea.Cmd {
	m.reading = false
	if m.reread {
		m.reread = false
		return m.requestRead()
	}
	return nil
}

func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.statusMsg = msg
	m.statusIsError = isErr
	m.statusSeq++
	return fadeCmd(statusFadeDelay, statusFadeMsg{Seq: m.statusSeq})
}

func (m *Model) saveTreeState() {
	if m.treeStatePath == "" {
		return
	}
	if err := session.SaveTreeState(m.treeStatePath, m.state.Collapsed()); err != nil {
		m.logger.Warn("saving tree state failed", "path", m.treeStatePath, "err", err)
	}
}

// Update is the single dispatch point for input, timers and results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true

	case snapshotMsg:
		cmd = m.applySnapshot(msg.Snapshot)

	case snapshotErrMsg:
		m.state.SnapshotFailed(msg.Err)
		m.logger.Info("snapshot read failed", "err", msg.Err)
		cmd = m.readDone()

	case mutationResultMsg:
		cmd = m.handleResult(msg)

	case tickMsg:
		if msg.Gen != m.tickGen {
			break
		}
		cmd = tea.Batch(m.requestRead(), TickCmd(m.refresh, m.tickGen))

	case FileChangedMsg:
		cmd = tea.Batch(m.requestRead(), WatchFileCmd(m.watcher))

	case tea.ResumeMsg:
		cmd = m.requestRead()

	case statusFadeMsg:
		if msg.Seq == m.statusSeq {
			m.statusMsg = ""
			m.statusIsError = false
		}

	case logRecordMsg:
		m.logLine = msg.Summary
		m.logLevel = msg.Level
		m.logSeq++
		cmd = fadeCmd(logRecordFadeDelay, logRecordFadeMsg{Seq: m.logSeq})

	case logRecordFadeMsg:
		if msg.Seq == m.logSeq {
			m.logLine = ""
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		var quit bool
		m, cmd, quit = m.handleKey(msg)
		if quit {
			return m, cmd
		}

	default:
		if m.showModal {
			m.modal, cmd = m.modal.Update(msg)
		} else if m.showPrompt {
			m.prompt, cmd = m.prompt.Update(msg)
		}
	}

	m.sync()
	return m, cmd
}

func (m *Model) applySnapshot(snap model.Snapshot) tea.Cmd {
	rep := m.state.ApplySnapshot(snap)

	for _, t := range rep.Reconciled {
		m.logger.Debug("ticket settled by refresh", "seq", t.Seq, "command", t.Command.Describe())
		delete(m.forms, t.Seq)
	}
	m.state.Mutations().Prune()
	if m.selectAfter != "" {
		m.state.Select(m.selectAfter)
		m.selectAfter = ""
	}

	var parts []string
	for _, w := range rep.Warnings {
		parts = append(parts, w.Error())
	}
	if k := strings.Join(parts, "\n"); k != m.warnKey {
		m.warnKey = k
		if len(parts) > 0 {
			m.logger.Warn("data warnings in snapshot", "count", len(parts), "first", parts[0])
		}
	}
	return m.readDone()
}

func (m *Model) handleResult(msg mutationResultMsg) tea.Cmd {
	c := m.state.Mutations()
	t, ok := c.Resolve(msg.Seq, msg.Outcome)
	if !ok {
		m.logger.Debug("late mutation result dropped", "seq", msg.Seq, "ok", msg.Outcome.OK)
		return nil
	}
	defer c.Prune()
	form, hadForm := m.forms[t.Seq]
	delete(m.forms, t.Seq)

	if t.State == mutation.Failed {
		m.logger.Info("mutation failed", "command", t.Command.Describe(), "reason", t.Reason)
		if hadForm && !m.showModal {
			m.modal = form
			m.modal.Reopen()
			m.modal.SetError(t.Reason)
			m.modal.SetTheme(m.theme())
			m.modal.SetSize(m.width, max(0, m.height-1))
			m.showModal = true
			return nil
		}
		return m.setStatus(t.Command.Describe()+": "+firstLine(t.Reason), true)
	}

	text := t.Command.Describe()
	if t.IsCreate() && msg.Outcome.CreatedID != "" {
		text = "created " + msg.Outcome.CreatedID
		m.selectAfter = msg.Outcome.CreatedID
	}
	if msg.Outcome.Message != "" && !t.IsCreate() {
		text += " (" + firstLine(msg.Outcome.Message) + ")"
	}
	return tea.Batch(m.setStatus(text, false), m.requestRead())
}

// submit issues a ticket and returns the command that runs it.
func (m *Model) submit(t mutation.Ticket, err error) tea.Cmd {
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	return tea.Batch(ExecuteCmd(m.executor, t), m.setStatus(t.Command.Describe()+"…", false))
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.saveTreeState()
		return m, tea.Quit, true
	case "ctrl+z":
		return m, tea.Suspend, false
	}

	switch {
	case m.showHelp:
		m.showHelp = false
		return m, nil, false
	case m.showModal:
		return m.updateModal(msg)
	case m.showPrompt:
		return m.updatePrompt(msg)
	}

	rec, hasRec := m.state.Selected()
	c := m.state.Mutations()
	inDetail := m.state.Selection().Pane == nav.PaneDetail
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.saveTreeState()
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.Up):
		if inDetail {
			m.state.SetDetailOffset(m.state.Selection().DetailOffset - 1)
		} else {
			m.state.Move(-1)
		}
	case key.Matches(msg, m.keys.Down):
		if inDetail {
			m.state.SetDetailOffset(m.state.Selection().DetailOffset + 1)
		} else {
			m.state.Move(1)
		}
	case key.Matches(msg, m.keys.PageUp):
		if inDetail {
			m.state.SetDetailOffset(m.state.Selection().DetailOffset - max(1, m.detail.vp.Height))
		} else {
			m.state.Page(-1)
		}
	case key.Matches(msg, m.keys.PageDown):
		if inDetail {
			m.state.SetDetailOffset(m.state.Selection().DetailOffset + max(1, m.detail.vp.Height))
		} else {
			m.state.Page(1)
		}
	case key.Matches(msg, m.keys.Home):
		if inDetail {
			m.state.SetDetailOffset(0)
		} else {
			m.state.First()
		}
	case key.Matches(msg, m.keys.End):
		if inDetail {
			m.state.SetDetailOffset(m.detail.vp.TotalLineCount())
		} else {
			m.state.Last()
		}

	case key.Matches(msg, m.keys.FocusToggle):
		m.state.SwitchPane()
	case key.Matches(msg, m.keys.OpenDetail):
		m.state.Focus(nav.PaneDetail)
	case key.Matches(msg, m.keys.Back):
		switch {
		case inDetail:
			m.state.Focus(nav.PaneList)
		case msg.String() == "esc" && m.state.Filter() != "":
			m.state.SetFilter("")
		}

	case key.Matches(msg, m.keys.Toggle):
		if m.state.ToggleSelected() {
			m.saveTreeState()
		}

	case key.Matches(msg, m.keys.Filter):
		m.openPrompt(newPrompt(promptFilter, "", "/", m.state.Filter()))
	case key.Matches(msg, m.keys.ShowClosed):
		m.state.ToggleShowClosed()
	case key.Matches(msg, m.keys.ShowLabels):
		m.state.ToggleLabels()

	case key.Matches(msg, m.keys.CycleStatus):
		if !hasRec {
			break
		}
		cmd = m.submit(c.RequestStatusCycle(rec))
	case key.Matches(msg, m.keys.Close):
		if !hasRec {
			break
		}
		if rec.Status.IsClosed() {
			cmd = m.submit(c.RequestStatus(rec, model.StatusOpen, ""))
			break
		}
		m.openPrompt(newPrompt(promptClose, rec.ID, "Close "+rec.ID+" reason:", ""))
	case key.Matches(msg, m.keys.Defer):
		if !hasRec {
			break
		}
		switch rec.Status {
		case model.StatusOpen:
			cmd = m.submit(c.RequestStatus(rec, model.StatusDeferred, ""))
		case model.StatusDeferred:
			cmd = m.submit(c.RequestStatus(rec, model.StatusOpen, ""))
		default:
			cmd = m.setStatus("only open and deferred records can be deferred", true)
		}
	case key.Matches(msg, m.keys.Edit):
		if !hasRec {
			break
		}
		m.modal = NewEditModal(m.theme(), rec)
		m.modal.SetSize(m.width, max(0, m.height-1))
		m.showModal = true
	case key.Matches(msg, m.keys.Labels):
		if !hasRec {
			break
		}
		label := "Labels " + rec.ID + " (+add -remove):"
		if len(rec.Labels) > 0 {
			label = fmt.Sprintf("Labels %s [%s] (+add -remove):", rec.ID, strings.Join(rec.Labels, ", "))
		}
		m.openPrompt(newPrompt(promptLabels, rec.ID, label, ""))
	case key.Matches(msg, m.keys.Comment):
		if !hasRec {
			break
		}
		m.openPrompt(newPrompt(promptComment, rec.ID, "Comment on "+rec.ID+":", ""))

	case key.Matches(msg, m.keys.Create):
		m.openModal("")
	case key.Matches(msg, m.keys.CreateChild):
		if hasRec {
			m.openModal(rec.ID)
		} else {
			m.openModal("")
		}

	case key.Matches(msg, m.keys.Theme):
		m.state.CycleTheme(len(m.themes))
	case key.Matches(msg, m.keys.SplitShrink):
		m.state.ResizeSplit(-session.SplitStep)
	case key.Matches(msg, m.keys.SplitGrow):
		m.state.ResizeSplit(session.SplitStep)

	case key.Matches(msg, m.keys.Refresh):
		cmd = m.requestRead()
	case key.Matches(msg, m.keys.Copy):
		if !hasRec {
			break
		}
		if err := m.copyText(rec.ID); err != nil {
			cmd = m.setStatus("clipboard: "+err.Error(), true)
		} else {
			cmd = m.setStatus("copied "+rec.ID, false)
		}
	}
	return m, cmd, false
}

func (m *Model) openPrompt(p Prompt) {
	p.setWidth(m.width - 4 - len(p.label))
	m.prompt = p
	m.showPrompt = true
}

func (m *Model) openModal(parent string) {
	m.modal = NewCreateModal(m.theme(), parent)
	m.modal.SetSize(m.width, max(0, m.height-1))
	m.showModal = true
}

func (m Model) updateModal(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	var cmd tea.Cmd
	m.modal, cmd = m.modal.Update(msg)

	switch {
	case m.modal.IsCancelRequested():
		m.showModal = false
	case m.modal.IsSubmitRequested():
		t, err := m.submitForm()
		if err != nil {
			m.modal.SetError(err.Error())
			break
		}
		m.forms[t.Seq] = m.modal
		m.showModal = false
		cmd = tea.Batch(ExecuteCmd(m.executor, t), m.setStatus(t.Command.Describe()+"…", false))
	}
	return m, cmd, false
}

func (m Model) updatePrompt(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	p := m.prompt

	if p.kind == promptFilter {
		switch {
		case p.cancelled:
			m.state.SetFilter("")
			m.showPrompt = false
		case p.submitted:
			m.showPrompt = false
		default:
			m.state.SetFilter(p.Raw())
		}
		return m, cmd, false
	}

	if p.cancelled {
		m.showPrompt = false
		return m, nil, false
	}
	if !p.submitted {
		return m, cmd, false
	}
	m.showPrompt = false

	c := m.state.Mutations()
	switch p.kind {
	case promptClose:
		rec, ok := m.lookup(p.target)
		if !ok {
			return m, m.setStatus(p.target+" is gone", true), false
		}
		cmd = m.submit(c.RequestStatus(rec, model.StatusClosed, p.Value()))
	case promptLabels:
		add, remove, err := ParseLabelDiff(p.Value())
		if err != nil {
			return m, m.setStatus(err.Error(), true), false
		}
		cmd = m.submit(c.RequestSetLabels(p.target, add, remove))
	case promptComment:
		cmd = m.submit(c.RequestComment(p.target, p.Value()))
	}
	return m, cmd, false
}

// submitForm requests a create, or an edit when the form was opened on a
// record.
func (m Model) submitForm() (mutation.Ticket, error) {
	c := m.state.Mutations()
	id := m.modal.Editing()
	if id == "" {
		return c.RequestCreate(m.modal.Payload(), m.state.Index())
	}
	rec, ok := m.lookup(id)
	if !ok {
		return mutation.Ticket{}, fmt.Errorf("%w: %s is gone", model.ErrMutationRejected, id)
	}
	return c.RequestUpdate(rec, m.modal.Payload())
}

func (m Model) lookup(id string) (model.Record, bool) {
	idx := m.state.Index()
	if idx == nil {
		return model.Record{}, false
	}
	r, ok := idx.Get(id)
	if !ok {
		return model.Record{}, false
	}
	return *r, true
}

// layout is the geometry of the main screen.
type layout struct {
	headerH, bannerH, bodyTop, bodyH int
	listW, detailW                   int
}

func (m Model) layout() layout {
	var l layout
	l.headerH = 1
	if m.banner() != "" {
		l.bannerH = 1
	}
	l.bodyTop = l.headerH + l.bannerH
	l.bodyH = max(0, m.height-l.bodyTop-1)
	l.listW = m.width * m.state.SplitRatio() / 100
	l.detailW = max(0, m.width-l.listW)
	return l
}

// sync pushes the current geometry into the state and re-renders the
// detail pane for the selection.
func (m *Model) sync() {
	l := m.layout()
	m.state.SetViewport(max(0, l.bodyH-2))
	m.detail.setSize(l.detailW-2, l.bodyH-2)
	if m.showModal {
		m.modal.SetSize(m.width, max(0, m.height-1))
	}

	var rec *model.Record
	if r, ok := m.state.Selected(); ok {
		rec = &r
	}
	sel := m.state.Selection()
	off := m.detail.update(rec, m.state.Index(), m.theme().Markdown, sel.DetailOffset)
	if off != sel.DetailOffset {
		m.state.SetDetailOffset(off)
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.showModal || m.showHelp || m.showPrompt || m.width == 0 {
		return
	}
	l := m.layout()

	switch msg.Action {
	case tea.MouseActionRelease:
		m.dragging = false
		return
	case tea.MouseActionMotion:
		if m.dragging {
			m.state.SetSplitRatio(msg.X * 100 / m.width)
		}
		return
	}

	inBody := msg.Y >= l.bodyTop && msg.Y < l.bodyTop+l.bodyH
	if !inBody {
		return
	}
	overList := msg.X < l.listW

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		step := wheelStep
		if msg.Button == tea.MouseButtonWheelUp {
			step = -step
		}
		if overList {
			m.state.Focus(nav.PaneList)
		} else {
			m.state.Focus(nav.PaneDetail)
		}
		m.state.Wheel(step)

	case tea.MouseButtonLeft:
		if msg.X == l.listW-1 || msg.X == l.listW {
			m.dragging = true
			return
		}
		if !overList {
			m.state.Focus(nav.PaneDetail)
			return
		}
		row := msg.Y - l.bodyTop - 1
		if row >= 0 && row < l.bodyH-2 {
			m.state.SelectRow(row)
		}
	}
}

// banner is the one-line store error or warning summary.
func (m Model) banner() string {
	if err := m.state.StoreError(); err != nil {
		return "store unavailable: " + firstLine(err.Error()) + " (showing last good data)"
	}
	if ws := m.state.Warnings(); len(ws) > 0 {
		if len(ws) == 1 {
			return "⚠ " + ws[0].Error()
		}
		return fmt.Sprintf("⚠ %d data warnings: %s", len(ws), ws[0].Error())
	}
	return ""
}

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	defer metrics.Timer(metrics.UIRender)()
	th := m.theme()
	l := m.layout()
	footer := m.renderFooter(th)

	finalStyle := th.Renderer.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height)

	if m.showHelp {
		return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			renderHelp(th, m.keys, m.width, max(0, m.height-1)), footer))
	}
	if m.showModal {
		return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, m.modal.View(), footer))
	}

	sections := []string{m.renderHeader(th)}
	if b := m.banner(); b != "" {
		sections = append(sections, th.Banner.Render(truncate(b, max(0, m.width-2))))
	}
	sections = append(sections, m.renderBody(th, l), footer)
	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderHeader(th Theme) string {
	left := th.Header.Render("bu")
	if m.source != "" {
		left += " " + th.MutedText.Render(m.source)
	}
	left += "  " + th.Base.Render(m.state.Summary())
	if f := m.state.Filter(); f != "" {
		left += "  " + th.AccentText.Render("/"+f)
	}
	if m.state.ShowClosed() {
		left += "  " + th.MutedText.Render("+closed")
	}

	right := th.Name
	if t := m.state.LastRefresh(); !t.IsZero() {
		right += " · " + FormatTimeRel(t)
	}
	right = th.MutedText.Render(right)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return truncate(left, m.width)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderBody(th Theme, l layout) string {
	if l.bodyH < 3 || l.listW < 3 || l.detailW < 3 {
		return ""
	}
	innerH := l.bodyH - 2
	focus := m.state.Selection().Pane

	listStyle, detailStyle := th.FocusedPanel, th.Panel
	if focus == nav.PaneDetail {
		listStyle, detailStyle = th.Panel, th.FocusedPanel
	}

	list := listStyle.
		Width(l.listW - 2).
		Height(innerH).
		MaxHeight(l.bodyH).
		Render(renderList(m.state, th, l.listW-2, innerH))

	content := m.detail.view()
	if _, ok := m.state.Selected(); !ok {
		content = th.MutedText.Render("Nothing selected")
	}
	detail := detailStyle.
		Width(l.detailW - 2).
		Height(innerH).
		MaxHeight(l.bodyH).
		Render(content)

	return lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
}

func (m Model) renderFooter(th Theme) string {
	if m.showPrompt {
		return m.prompt.View(th)
	}

	if m.statusMsg != "" {
		if m.statusIsError {
			return th.StatusError.Render(truncate("✗ "+m.statusMsg, m.width))
		}
		return th.StatusInfo.Render(truncate("✓ "+m.statusMsg, m.width))
	}

	if m.logLine != "" {
		style := th.StatusInfo
		if m.logLevel >= slog.LevelError {
			style = th.StatusError
		} else if m.logLevel >= slog.LevelWarn {
			style = th.PendingMarker
		}
		return style.Render(truncate(m.logLine, m.width))
	}

	hints := shortHelp(th, m.keys, m.width)
	if p := pendingSummary(m.state.Mutations()); p != "" {
		hints = th.PendingMarker.Render(p) + "  " + hints
	}
	return truncateANSI(hints, m.width)
}

// truncateANSI cuts styled text to width cells.
func truncateANSI(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
