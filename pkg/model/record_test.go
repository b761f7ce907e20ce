package model

import (
	"errors"
	"reflect"
	"testing"
)

func TestNextStatusCycle(t *testing.T) {
	s := StatusOpen
	want := []Status{StatusInProgress, StatusClosed, StatusOpen}
	for i, w := range want {
		s = NextStatus(s)
		if s != w {
			t.Fatalf("step %d: got %q, want %q", i, s, w)
		}
	}
}

func TestNextStatusOutsideCycle(t *testing.T) {
	for _, s := range []Status{StatusBlocked, StatusDeferred, "weird", ""} {
		if got := NextStatus(s); got != StatusOpen {
			t.Errorf("NextStatus(%q) = %q, want open", s, got)
		}
	}
}

func TestNormalizeDerivesParentAndBlockers(t *testing.T) {
	r := Record{
		ID:     "bd-2",
		Labels: []string{" ui", "backend", "ui", ""},
		Dependencies: []Dependency{
			{IssueID: "bd-2", DependsOnID: "bd-1", Type: DepParentChild},
			{IssueID: "bd-2", DependsOnID: "bd-9", Type: DepBlocks},
			{IssueID: "bd-2", DependsOnID: "bd-9", Type: ""},
			{IssueID: "bd-2", DependsOnID: "bd-7", Type: DepRelated},
		},
	}
	r.Normalize()

	if r.Parent != "bd-1" {
		t.Errorf("Parent = %q, want bd-1", r.Parent)
	}
	if !reflect.DeepEqual(r.BlockedBy, []string{"bd-9"}) {
		t.Errorf("BlockedBy = %v", r.BlockedBy)
	}
	if !reflect.DeepEqual(r.Labels, []string{"backend", "ui"}) {
		t.Errorf("Labels = %v", r.Labels)
	}
	if !r.HasLabel("ui") || r.HasLabel("frontend") {
		t.Error("HasLabel mismatch")
	}

	// Idempotent.
	before := r
	r.Normalize()
	if !reflect.DeepEqual(before, r) {
		t.Error("Normalize is not idempotent")
	}
}

func TestNormalizeKeepsExplicitParent(t *testing.T) {
	r := Record{
		ID:     "bd-2",
		Parent: "bd-5",
		Dependencies: []Dependency{
			{DependsOnID: "bd-1", Type: DepParentChild},
		},
	}
	r.Normalize()
	if r.Parent != "bd-5" {
		t.Errorf("Parent = %q, want bd-5", r.Parent)
	}
}

func TestWarningUnwrap(t *testing.T) {
	w := Warning{Kind: ErrDuplicateIdentifier, ID: "bd-1"}
	if !errors.Is(w, ErrDuplicateIdentifier) {
		t.Error("warning should unwrap to its kind")
	}
	if w.Error() != "duplicate identifier: bd-1" {
		t.Errorf("Error() = %q", w.Error())
	}
}
