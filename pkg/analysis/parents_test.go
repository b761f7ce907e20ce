package analysis

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/bu/pkg/model"
)

func idx(recs ...model.Record) *model.Index {
	return model.NewIndex(model.Snapshot{Records: recs})
}

func TestParentCyclesNone(t *testing.T) {
	i := idx(
		model.Record{ID: "a"},
		model.Record{ID: "b", Parent: "a"},
	)
	if got := ParentCycles(i); len(got) != 0 {
		t.Errorf("expected no cycles, got %v", got)
	}
	if got := ParentCycles(nil); got != nil {
		t.Errorf("nil index: %v", got)
	}
}

func TestParentCyclesOrdersFromSmallest(t *testing.T) {
	i := idx(
		model.Record{ID: "x", Parent: "z", Priority: 2},
		model.Record{ID: "y", Parent: "x", Priority: 1},
		model.Record{ID: "z", Parent: "y", Priority: 2},
		model.Record{ID: "tail", Parent: "x"},
		model.Record{ID: "p", Parent: "q", Priority: 0},
		model.Record{ID: "q", Parent: "p", Priority: 0},
	)
	got := ParentCycles(i)
	want := [][]string{{"p", "q"}, {"y", "x", "z"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParentCycles = %v, want %v", got, want)
	}
}

func TestAncestors(t *testing.T) {
	i := idx(
		model.Record{ID: "epic"},
		model.Record{ID: "story", Parent: "epic"},
		model.Record{ID: "task", Parent: "story"},
		model.Record{ID: "a", Parent: "b"},
		model.Record{ID: "b", Parent: "a"},
	)
	if got := Ancestors(i, "task"); !reflect.DeepEqual(got, []string{"epic", "story"}) {
		t.Errorf("Ancestors(task) = %v", got)
	}
	if got := Ancestors(i, "epic"); len(got) != 0 {
		t.Errorf("Ancestors(epic) = %v", got)
	}
	if got := Ancestors(i, "a"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Ancestors(a) = %v", got)
	}
}
