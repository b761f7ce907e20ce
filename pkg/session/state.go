// Package session owns the dashboard's application state: the current
// index and visible sequence, the selection, and the view settings that
// must survive reloads. The UI loop is its only caller.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/vanderheijden86/bu/pkg/analysis"
	"github.com/vanderheijden86/bu/pkg/metrics"
	"github.com/vanderheijden86/bu/pkg/model"
	"github.com/vanderheijden86/bu/pkg/mutation"
	"github.com/vanderheijden86/bu/pkg/nav"
	"github.com/vanderheijden86/bu/pkg/tree"
)

// Split ratio bounds, in percent of the width given to the list.
const (
	MinSplit     = 20
	MaxSplit     = 80
	DefaultSplit = 50
	SplitStep    = 5
)

// Options seeds a new State.
type Options struct {
	PageSize   int
	SplitRatio int
	ThemeIndex int
	ShowClosed bool
	ShowLabels bool
	Collapsed  map[string]bool
}

// State is the single mutable application state.
type State struct {
	index     *model.Index
	view      tree.Result
	ids       []string
	sel       nav.Selection
	collapsed map[string]bool

	filter     string
	showClosed bool
	showLabels bool
	themeIndex int
	splitRatio int
	pageSize   int
	viewport   int

	mutations *mutation.Coordinator
	warnings  []model.Warning
	storeErr  error
	refreshed time.Time
}

// New returns an empty state. The view stays empty until the first
// ApplySnapshot.
func New(opts Options) *State {
	s := &State{
		collapsed:  make(map[string]bool),
		showClosed: opts.ShowClosed,
		showLabels: opts.ShowLabels,
		themeIndex: opts.ThemeIndex,
		splitRatio: clampSplit(opts.SplitRatio),
		pageSize:   opts.PageSize,
		mutations:  mutation.NewCoordinator(),
	}
	if s.pageSize <= 0 {
		s.pageSize = nav.DefaultPageSize
	}
	for id, c := range opts.Collapsed {
		if c {
			s.collapsed[id] = true
		}
	}
	return s
}

func clampSplit(r int) int {
	if r == 0 {
		return DefaultSplit
	}
	return max(MinSplit, min(r, MaxSplit))
}

// rebuild recomputes the visible sequence and carries the selection over.
func (s *State) rebuild() {
	defer metrics.Timer(metrics.TreeBuild)()
	old := s.ids
	s.view = tree.Build(s.index, tree.Options{
		Filter:     s.filter,
		Collapsed:  s.collapsed,
		ShowClosed: s.showClosed,
	})
	s.ids = s.view.IDs()
	s.sel = nav.Revalidate(old, s.ids, s.sel)
	s.sel = nav.Clamp(s.ids, s.sel, s.viewport)
}

// Report describes what ApplySnapshot changed.
type Report struct {
	// Reconciled holds pending tickets the snapshot showed as done.
	Reconciled []mutation.Ticket
	// Warnings are data problems found in the snapshot.
	Warnings []model.Warning
	// Moved is true when the previous selection had to fall back.
	Moved bool
}

// ApplySnapshot installs a new snapshot while keeping the filter, collapse
// and show-closed settings. Applying the same snapshot twice is a no-op
// for the visible sequence and the selection.
func (s *State) ApplySnapshot(snap model.Snapshot) Report {
	prev := s.sel.ID
	s.index = model.NewIndex(snap)
	s.rebuild()

	rep := Report{
		Reconciled: s.mutations.Reconcile(s.index),
		Moved:      prev != "" && prev != s.sel.ID,
	}
	rep.Warnings = append(rep.Warnings, s.index.Warnings()...)
	rep.Warnings = append(rep.Warnings, cycleWarnings(s.index, s.view.Cyclic)...)

	s.warnings = rep.Warnings
	s.storeErr = nil
	s.refreshed = snap.TakenAt
	if s.refreshed.IsZero() {
		s.refreshed = time.Now()
	}
	return rep
}

func cycleWarnings(idx *model.Index, rerooted []string) []model.Warning {
	if len(rerooted) == 0 {
		return nil
	}
	loops := make(map[string][]string)
	for _, loop := range analysis.ParentCycles(idx) {
		for _, id := range loop {
			loops[id] = loop
		}
	}
	out := make([]model.Warning, 0, len(rerooted))
	for _, id := range rerooted {
		w := model.Warning{Kind: model.ErrCyclicParentage, ID: id}
		if loop, ok := loops[id]; ok {
			w.Detail = strings.Join(loop, " -> ") + " -> " + loop[0]
		} else if idx.SelfParented(id) {
			w.Detail = id + " -> " + id
		}
		out = append(out, w)
	}
	return out
}

// SnapshotFailed records a failed read. The previous data stays in place.
func (s *State) SnapshotFailed(err error) {
	s.storeErr = err
}

// StoreError returns the last read failure, or nil after a good read.
func (s *State) StoreError() error { return s.storeErr }

// LastRefresh is the timestamp of the applied snapshot.
func (s *State) LastRefresh() time.Time { return s.refreshed }

// Loaded reports whether any snapshot has been applied.
func (s *State) Loaded() bool { return s.index != nil }

// Index returns the current record index. It may be nil before the first load.
func (s *State) Index() *model.Index { return s.index }

// Visible returns the current visible sequence.
func (s *State) Visible() []tree.Node { return s.view.Nodes }

// VisibleIDs returns the IDs of the visible sequence.
func (s *State) VisibleIDs() []string { return s.ids }

// Selection returns the selection state.
func (s *State) Selection() nav.Selection { return s.sel }

// Cursor returns the selected row, or -1.
func (s *State) Cursor() int { return nav.Index(s.ids, s.sel) }

// Selected returns the selected record.
func (s *State) Selected() (model.Record, bool) {
	if s.index == nil || s.sel.ID == "" {
		return model.Record{}, false
	}
	r, ok := s.index.Get(s.sel.ID)
	if !ok {
		return model.Record{}, false
	}
	return *r, true
}

// SelectedNode returns the visible node for the selection.
func (s *State) SelectedNode() (tree.Node, bool) {
	i := s.Cursor()
	if i < 0 {
		return tree.Node{}, false
	}
	return s.view.Nodes[i], true
}

// Mutations exposes the coordinator for requests and busy markers.
func (s *State) Mutations() *mutation.Coordinator { return s.mutations }

// Warnings returns the warnings from the last applied snapshot.
func (s *State) Warnings() []model.Warning { return s.warnings }

// Filter returns the active filter text.
func (s *State) Filter() string { return s.filter }

// SetFilter changes the filter and rebuilds.
func (s *State) SetFilter(f string) {
	if f == s.filter {
		return
	}
	s.filter = f
	s.rebuild()
}

// ShowClosed reports whether closed records are listed.
func (s *State) ShowClosed() bool { return s.showClosed }

// ToggleShowClosed flips the closed toggle and rebuilds.
func (s *State) ToggleShowClosed() {
	s.showClosed = !s.showClosed
	s.rebuild()
}

// ShowLabels reports whether rows render labels.
func (s *State) ShowLabels() bool { return s.showLabels }

// ToggleLabels flips label rendering. No rebuild is needed.
func (s *State) ToggleLabels() { s.showLabels = !s.showLabels }

// Collapsed returns the collapse map. Callers must not modify it.
func (s *State) Collapsed() map[string]bool { return s.collapsed }

// ToggleExpand flips the collapse flag of id and rebuilds. It reports
// whether anything changed.
func (s *State) ToggleExpand(id string) bool {
	if id == "" || s.index == nil || !s.index.Has(id) {
		return false
	}
	if s.collapsed[id] {
		delete(s.collapsed, id)
	} else {
		s.collapsed[id] = true
	}
	s.rebuild()
	return true
}

// ToggleSelected toggles the selected node when it has children.
func (s *State) ToggleSelected() bool {
	n, ok := s.SelectedNode()
	if !ok || !n.HasChildren {
		return false
	}
	return s.ToggleExpand(n.ID())
}

// ThemeIndex is passed through to the renderer uninterpreted.
func (s *State) ThemeIndex() int { return s.themeIndex }

// CycleTheme advances the theme index modulo n.
func (s *State) CycleTheme(n int) {
	if n <= 0 {
		return
	}
	s.themeIndex = (s.themeIndex + 1) % n
}

// SplitRatio is the list pane's share of the width in percent.
func (s *State) SplitRatio() int { return s.splitRatio }

// SetSplitRatio sets the ratio, clamped to [MinSplit, MaxSplit].
func (s *State) SetSplitRatio(r int) { s.splitRatio = max(MinSplit, min(r, MaxSplit)) }

// ResizeSplit moves the ratio by delta percent.
func (s *State) ResizeSplit(delta int) { s.SetSplitRatio(s.splitRatio + delta) }

// PageSize is the step for page movement.
func (s *State) PageSize() int { return s.pageSize }

// SetViewport records the list viewport height and re-clamps scrolling.
func (s *State) SetViewport(h int) {
	s.viewport = max(0, h)
	s.sel = nav.Clamp(s.ids, s.sel, s.viewport)
}

// Viewport returns the list viewport height.
func (s *State) Viewport() int { return s.viewport }

func (s *State) setSel(sel nav.Selection) {
	s.sel = nav.Clamp(s.ids, sel, s.viewport)
}

// Move moves the selection by delta rows.
func (s *State) Move(delta int) { s.setSel(nav.MoveBy(s.ids, s.sel, delta)) }

// Page moves by one page; dir < 0 is up.
func (s *State) Page(dir int) { s.setSel(nav.Page(s.ids, s.sel, s.pageSize, dir)) }

// First selects the first row.
func (s *State) First() { s.setSel(nav.First(s.ids, s.sel)) }

// Last selects the last row.
func (s *State) Last() { s.setSel(nav.Last(s.ids, s.sel)) }

// SwitchPane toggles focus.
func (s *State) SwitchPane() { s.sel = nav.SwitchPane(s.sel) }

// Focus sets the focused pane.
func (s *State) Focus(p nav.Pane) { s.sel = nav.FocusPane(s.sel, p) }

// SelectRow handles a click on list row row (relative to the viewport top).
func (s *State) SelectRow(row int) { s.setSel(nav.SelectRow(s.ids, s.sel, row)) }

// Select jumps to id if it is visible.
func (s *State) Select(id string) bool {
	for _, v := range s.ids {
		if v == id {
			s.sel.ID = id
			s.setSel(s.sel)
			return true
		}
	}
	return false
}

// Wheel scrolls the focused pane.
func (s *State) Wheel(lines int) { s.setSel(nav.Wheel(s.ids, s.sel, lines)) }

// SetDetailOffset records the detail pane's scroll position.
func (s *State) SetDetailOffset(off int) { s.sel.DetailOffset = max(0, off) }

// Summary is a one-line count for the status bar.
func (s *State) Summary() string {
	if s.index == nil {
		return "loading"
	}
	return fmt.Sprintf("%d/%d", len(s.ids), s.index.Len())
}
