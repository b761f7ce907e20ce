package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/bu/pkg/model"
	"github.com/vanderheijden86/bu/pkg/session"
	"github.com/vanderheijden86/bu/pkg/testutil"
	"github.com/vanderheijden86/bu/pkg/tree"
)

func openRecords(n int) []model.Record {
	recs := make([]model.Record, n)
	for i := range recs {
		recs[i] = model.Record{ID: testutil.RecordID(i), Title: "Record", Status: model.StatusOpen, Priority: 2}
	}
	return recs
}

func TestPartsFor(t *testing.T) {
	rec := &model.Record{ID: "bu-7", Title: "Ship it\nsecond line", Type: model.TypeFeature, Status: model.StatusOpen, Priority: 1, Labels: []string{"a", "b"}}
	n := tree.Node{Record: rec, HasChildren: true, Expanded: true, Cyclic: true, Prefix: "├── "}

	p := partsFor(n, true, true)
	got := p.plain()
	for _, want := range []string{"├── ", "▾ ", "☆ ", "P1 ", "bu-7 ", "Ship it", " [a, b]", pendingGlyph, cyclicGlyph} {
		if !strings.Contains(got, want) {
			t.Errorf("row %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "second line") {
		t.Error("title should be cut at the first newline")
	}

	if p := partsFor(n, false, false); p.labels != "" || p.markers != " "+cyclicGlyph {
		t.Errorf("labels=%q markers=%q", p.labels, p.markers)
	}
}

func TestExpanderFor(t *testing.T) {
	rec := &model.Record{ID: "x"}
	tests := []struct {
		node tree.Node
		want string
	}{
		{tree.Node{Record: rec}, "  "},
		{tree.Node{Record: rec, HasChildren: true, Expanded: true}, "▾ "},
		{tree.Node{Record: rec, HasChildren: true}, "▸ "},
		{tree.Node{Record: rec, HasChildren: true, Forced: true}, "▾ "},
	}
	for _, tt := range tests {
		if got := expanderFor(tt.node); got != tt.want {
			t.Errorf("expanderFor(%+v) = %q, want %q", tt.node, got, tt.want)
		}
	}
}

func TestRowFitsWidth(t *testing.T) {
	rec := &model.Record{ID: "bu-1", Title: strings.Repeat("long title ", 10), Labels: []string{"backend"}}
	n := tree.Node{Record: rec}
	for _, w := range []int{10, 20, 40, 200} {
		p := partsFor(n, true, false)
		p.fit(w)
		if got := runewidth.StringWidth(p.plain()); got > w {
			t.Errorf("width %d: row is %d cells: %q", w, got, p.plain())
		}
	}
}

func TestRenderRowSelectedPads(t *testing.T) {
	th := TestTheme()
	rec := &model.Record{ID: "bu-1", Title: "Short"}
	row := renderRow(th, tree.Node{Record: rec}, true, false, false, 30)
	if !strings.Contains(row, "bu-1 Short") {
		t.Errorf("row = %q", row)
	}
}

func TestRenderListStates(t *testing.T) {
	th := TestTheme()
	s := session.New(session.Options{})
	if got := renderList(s, th, 40, 5); !strings.Contains(got, "Loading") {
		t.Errorf("before load: %q", got)
	}

	s.ApplySnapshot(testutil.Snapshot(openRecords(3)...))
	s.SetViewport(2)
	lines := strings.Split(renderList(s, th, 40, 2), "\n")
	if len(lines) != 2 {
		t.Errorf("rendered %d lines for a 2-row viewport", len(lines))
	}

	s.SetFilter("zzz")
	if got := renderList(s, th, 40, 5); !strings.Contains(got, "No records match") {
		t.Errorf("empty filter result: %q", got)
	}
}

func TestPendingSummary(t *testing.T) {
	s := session.New(session.Options{})
	s.ApplySnapshot(testutil.Snapshot(openRecords(2)...))
	c := s.Mutations()
	if got := pendingSummary(c); got != "" {
		t.Errorf("idle summary = %q", got)
	}
	rec, _ := s.Selected()
	if _, err := c.RequestStatusCycle(rec); err != nil {
		t.Fatal(err)
	}
	if got := pendingSummary(c); !strings.Contains(got, "1 command") {
		t.Errorf("summary = %q", got)
	}
}
