package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/bu/pkg/model"
	"github.com/vanderheijden86/bu/pkg/testutil"
)

func TestDetailMarkdown(t *testing.T) {
	recs := []model.Record{
		{ID: "bu-1", Title: "Parent epic", Type: model.TypeEpic, Status: model.StatusOpen},
		{
			ID: "bu-2", Title: "Child", Type: model.TypeBug, Status: model.StatusInProgress, Priority: 1,
			Parent: "bu-1", Labels: []string{"ui"}, Assignee: "sam",
			Description: "Steps to reproduce",
			Comments:    []model.Comment{{Author: "kim", Text: "seen it", CreatedAt: time.Now()}},
			CreatedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			ID: "bu-3", Title: "Waiting", Status: model.StatusOpen,
			Dependencies: []model.Dependency{{IssueID: "bu-3", DependsOnID: "bu-2", Type: model.DepBlocks}},
		},
	}
	idx := model.NewIndex(testutil.Snapshot(recs...))
	child, _ := idx.Get("bu-2")

	md := detailMarkdown(*child, idx)
	for _, want := range []string{
		"# ● Child", "**bu-2**", "in_progress", "P1",
		"**Labels:** ui", "@sam", "**Parent:** bu-1 Parent epic",
		"**Blocks:** bu-3", "Steps to reproduce", "Comments (1)", "**kim**", "seen it",
		"created 2025-03-01",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}

	waiting, _ := idx.Get("bu-3")
	if md := detailMarkdown(*waiting, idx); !strings.Contains(md, "**Blocked by:** bu-2") {
		t.Errorf("blocked-by missing:\n%s", md)
	}
}

func TestDetailPaneCachesAndClamps(t *testing.T) {
	d := newDetailPane()
	d.setSize(60, 5)
	rec := model.Record{ID: "bu-1", Title: "Short", Status: model.StatusOpen}

	if off := d.update(&rec, nil, "notty", 50); off >= 50 {
		t.Errorf("offset not clamped: %d", off)
	}
	key := d.key
	d.update(&rec, nil, "notty", 0)
	if d.key != key {
		t.Error("unchanged record re-rendered")
	}
	if !strings.Contains(d.view(), "Short") {
		t.Errorf("view = %q", d.view())
	}

	if off := d.update(nil, nil, "notty", 3); off != 0 {
		t.Errorf("nil record offset = %d", off)
	}
}
