package session

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/vanderheijden86/bu/pkg/model"
	"github.com/vanderheijden86/bu/pkg/mutation"
	"github.com/vanderheijden86/bu/pkg/nav"
)

func snap(recs ...model.Record) model.Snapshot {
	return model.Snapshot{Records: recs, TakenAt: time.Unix(1700000000, 0)}
}

func abc() model.Snapshot {
	return snap(
		model.Record{ID: "A", Title: "Alpha", Priority: 0},
		model.Record{ID: "B", Title: "Beta", Priority: 1},
		model.Record{ID: "C", Title: "Gamma", Priority: 2},
	)
}

func TestApplySnapshotSelectsFirst(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(abc())
	if s.Selection().ID != "A" {
		t.Errorf("selection = %q, want A", s.Selection().ID)
	}
	if s.Summary() != "3/3" {
		t.Errorf("summary = %q", s.Summary())
	}
}

func TestApplySnapshotRemovedSelectionFallsBack(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(abc())
	s.Move(1)
	if s.Selection().ID != "B" {
		t.Fatalf("selection = %q", s.Selection().ID)
	}

	rep := s.ApplySnapshot(snap(
		model.Record{ID: "A", Title: "Alpha", Priority: 0},
		model.Record{ID: "C", Title: "Gamma", Priority: 2},
	))
	if got := s.VisibleIDs(); !slices.Equal(got, []string{"A", "C"}) {
		t.Fatalf("visible = %v", got)
	}
	if s.Selection().ID != "A" || !rep.Moved {
		t.Errorf("selection = %q moved=%v, want A", s.Selection().ID, rep.Moved)
	}
}

func TestApplySnapshotIdempotent(t *testing.T) {
	s := New(Options{})
	s.SetViewport(2)
	s.ApplySnapshot(abc())
	s.Last()
	s.SetFilter("a")

	ids := slices.Clone(s.VisibleIDs())
	sel := s.Selection()
	s.ApplySnapshot(abc())
	s.ApplySnapshot(abc())
	if !slices.Equal(ids, s.VisibleIDs()) || sel != s.Selection() {
		t.Errorf("reapply changed state: %v %+v -> %v %+v", ids, sel, s.VisibleIDs(), s.Selection())
	}
}

func TestSessionSettingsSurviveReload(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(snap(
		model.Record{ID: "P", Title: "Parent"},
		model.Record{ID: "K", Title: "Kid", Parent: "P"},
		model.Record{ID: "D", Title: "Done", Status: model.StatusClosed},
	))
	s.ToggleExpand("P")
	s.ToggleShowClosed()
	if got := s.VisibleIDs(); !slices.Equal(got, []string{"D", "P"}) {
		t.Fatalf("visible = %v", got)
	}

	s.ApplySnapshot(snap(
		model.Record{ID: "P", Title: "Parent"},
		model.Record{ID: "K", Title: "Kid", Parent: "P"},
		model.Record{ID: "K2", Title: "Kid two", Parent: "P"},
		model.Record{ID: "D", Title: "Done", Status: model.StatusClosed},
	))
	if got := s.VisibleIDs(); !slices.Equal(got, []string{"D", "P"}) {
		t.Errorf("after reload visible = %v", got)
	}
	if !s.Collapsed()["P"] || !s.ShowClosed() {
		t.Error("session settings lost")
	}
}

func TestToggleExpandKeepsSelection(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(snap(
		model.Record{ID: "P", Title: "Parent"},
		model.Record{ID: "K", Title: "Kid", Parent: "P"},
		model.Record{ID: "Z", Title: "Zed", Priority: 3},
	))
	s.Move(1)
	if s.Selection().ID != "K" {
		t.Fatalf("selection = %q", s.Selection().ID)
	}
	s.ToggleExpand("P")
	if s.Selection().ID != "P" {
		t.Errorf("collapsing parent of selection should select parent, got %q", s.Selection().ID)
	}
	if !s.ToggleSelected() || !slices.Equal(s.VisibleIDs(), []string{"P", "K", "Z"}) {
		t.Errorf("re-expand visible = %v", s.VisibleIDs())
	}
	if s.ToggleExpand("missing") {
		t.Error("toggling unknown id should be a no-op")
	}
}

func TestApplySnapshotReconcilesPending(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(abc())
	rec, _ := s.Selected()
	tk, err := s.Mutations().RequestStatusCycle(rec)
	if err != nil {
		t.Fatal(err)
	}

	rep := s.ApplySnapshot(snap(
		model.Record{ID: "A", Title: "Alpha", Status: model.StatusInProgress},
	))
	if len(rep.Reconciled) != 1 || rep.Reconciled[0].Seq != tk.Seq {
		t.Fatalf("reconciled = %+v", rep.Reconciled)
	}
	if _, busy := s.Mutations().Pending("A"); busy {
		t.Error("A still pending")
	}
	if _, ok := s.Mutations().Resolve(tk.Seq, mutation.Outcome{OK: true}); ok {
		t.Error("late result should be stale")
	}
}

func TestApplySnapshotWarnings(t *testing.T) {
	s := New(Options{})
	rep := s.ApplySnapshot(snap(
		model.Record{ID: "A", Title: "one"},
		model.Record{ID: "A", Title: "two"},
		model.Record{ID: "X", Parent: "Y"},
		model.Record{ID: "Y", Parent: "X"},
	))
	var dup, cyc int
	for _, w := range rep.Warnings {
		switch {
		case errors.Is(w, model.ErrDuplicateIdentifier):
			dup++
		case errors.Is(w, model.ErrCyclicParentage):
			cyc++
			if w.Detail != "X -> Y -> X" {
				t.Errorf("cycle detail = %q", w.Detail)
			}
		}
	}
	if dup != 1 || cyc != 1 {
		t.Errorf("warnings = %v", rep.Warnings)
	}
	if len(s.VisibleIDs()) != 3 {
		t.Errorf("visible = %v", s.VisibleIDs())
	}
}

func TestApplySnapshotSelfParentWarns(t *testing.T) {
	s := New(Options{})
	rep := s.ApplySnapshot(snap(
		model.Record{ID: "A", Title: "Alpha", Parent: "A"},
		model.Record{ID: "B", Title: "Beta"},
	))
	if got := s.VisibleIDs(); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("visible = %v", got)
	}
	var cyc []model.Warning
	for _, w := range rep.Warnings {
		if errors.Is(w, model.ErrCyclicParentage) {
			cyc = append(cyc, w)
		}
	}
	if len(cyc) != 1 || cyc[0].ID != "A" || cyc[0].Detail != "A -> A" {
		t.Fatalf("cycle warnings = %v, want one for A", cyc)
	}
	if n := s.Visible()[0]; !n.Cyclic {
		t.Errorf("A not flagged cyclic: %+v", n)
	}
}

func TestSnapshotFailedKeepsState(t *testing.T) {
	s := New(Options{})
	s.ApplySnapshot(abc())
	s.Move(2)
	s.SnapshotFailed(model.ErrStoreUnavailable)
	if !errors.Is(s.StoreError(), model.ErrStoreUnavailable) {
		t.Error("store error not recorded")
	}
	if s.Selection().ID != "C" || len(s.VisibleIDs()) != 3 {
		t.Error("failed read changed state")
	}
	s.ApplySnapshot(abc())
	if s.StoreError() != nil {
		t.Error("good read should clear the error")
	}
}

func TestSplitAndTheme(t *testing.T) {
	s := New(Options{SplitRatio: 90})
	if s.SplitRatio() != MaxSplit {
		t.Errorf("split = %d", s.SplitRatio())
	}
	s.ResizeSplit(-100)
	if s.SplitRatio() != MinSplit {
		t.Errorf("split = %d", s.SplitRatio())
	}
	if New(Options{}).SplitRatio() != DefaultSplit {
		t.Error("default split")
	}

	s.CycleTheme(3)
	s.CycleTheme(3)
	s.CycleTheme(3)
	if s.ThemeIndex() != 0 {
		t.Errorf("theme = %d", s.ThemeIndex())
	}
}

func TestNavigationClampsToViewport(t *testing.T) {
	var recs []model.Record
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		recs = append(recs, model.Record{ID: id, Title: id})
	}
	s := New(Options{PageSize: 3})
	s.SetViewport(3)
	s.ApplySnapshot(snap(recs...))

	s.Last()
	if sel := s.Selection(); sel.ID != "g" || sel.ListOffset != 4 {
		t.Errorf("Last = %+v", sel)
	}
	s.Page(-1)
	if sel := s.Selection(); sel.ID != "d" || sel.ListOffset != 3 {
		t.Errorf("Page up = %+v", sel)
	}
	s.SelectRow(0)
	if s.Selection().ID != "d" {
		t.Errorf("click row 0 = %q", s.Selection().ID)
	}
	s.Focus(nav.PaneDetail)
	s.Wheel(2)
	if sel := s.Selection(); sel.ID != "d" || sel.DetailOffset != 2 {
		t.Errorf("detail wheel = %+v", sel)
	}
}

func TestTreeStateRoundTrip(t *testing.T) {
	path := TreeStatePath(filepath.Join(t.TempDir(), "nested"))

	got, err := LoadTreeState(path)
	if err != nil || len(got) != 0 {
		t.Fatalf("missing file: %v %v", got, err)
	}
	if err := SaveTreeState(path, map[string]bool{"b": true, "a": true, "c": false}); err != nil {
		t.Fatal(err)
	}
	got, err = LoadTreeState(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got["a"] || !got["b"] {
		t.Errorf("loaded = %v", got)
	}
}
