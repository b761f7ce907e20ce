package datasource

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/bu/pkg/model"
)

var schema = []string{`
CREATE TABLE issues (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	priority INTEGER NOT NULL DEFAULT 2,
	issue_type TEXT NOT NULL DEFAULT 'task',
	description TEXT,
	labels TEXT,
	created_by TEXT,
	assignee TEXT,
	created_at TEXT,
	updated_at TEXT,
	closed_at TEXT,
	close_reason TEXT
)`, `
CREATE TABLE dependencies (
	issue_id TEXT NOT NULL,
	depends_on_id TEXT NOT NULL,
	type TEXT NOT NULL
)`, `
CREATE TABLE comments (
	issue_id TEXT NOT NULL,
	author TEXT,
	text TEXT,
	created_at TEXT
)`,
}

func createTestDB(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "beads.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := append(schema,
		`INSERT INTO issues (id, title, status, priority, issue_type, description, labels, created_at, updated_at)
		 VALUES ('bd-1', 'Epic', 'open', 1, 'epic', 'The epic', '["ui","backend"]', '2025-01-02T10:00:00Z', '2025-01-03T10:00:00Z')`,
		`INSERT INTO issues (id, title, status, priority, issue_type, closed_at, close_reason)
		 VALUES ('bd-2', 'Child', 'closed', 2, 'task', '2025-01-04T10:00:00Z', 'done')`,
		`INSERT INTO issues (id, title, status, priority, issue_type)
		 VALUES ('bd-3', 'Blocked', 'blocked', 0, 'bug')`,
		`INSERT INTO issues (id, title, status, priority, issue_type)
		 VALUES ('bd-4', 'Deleted', 'tombstone', 0, 'bug')`,
		`INSERT INTO dependencies VALUES ('bd-2', 'bd-1', 'parent-child')`,
		`INSERT INTO dependencies VALUES ('bd-3', 'bd-2', 'blocks')`,
		`INSERT INTO comments VALUES ('bd-1', 'ann', 'first!', '2025-01-05T10:00:00Z')`,
	)
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return path
}

func TestSQLiteReaderLoadRecords(t *testing.T) {
	path := createTestDB(t, t.TempDir())
	r, err := NewSQLiteReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	recs, err := r.LoadRecords(context.Background())
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records (tombstone skipped), got %d", len(recs))
	}

	byID := map[string]model.Record{}
	for _, rec := range recs {
		byID[rec.ID] = rec
	}
	epic := byID["bd-1"]
	if epic.Type != model.TypeEpic || epic.Description != "The epic" {
		t.Errorf("epic = %+v", epic)
	}
	if len(epic.Labels) != 2 || epic.Labels[0] != "backend" {
		t.Errorf("labels = %v", epic.Labels)
	}
	if epic.CreatedAt.IsZero() || len(epic.Comments) != 1 || epic.Comments[0].Author != "ann" {
		t.Errorf("epic times/comments = %v %+v", epic.CreatedAt, epic.Comments)
	}
	child := byID["bd-2"]
	if child.Parent != "bd-1" || child.ClosedAt == nil || child.CloseReason != "done" {
		t.Errorf("child = %+v", child)
	}
	if b := byID["bd-3"]; len(b.BlockedBy) != 1 || b.BlockedBy[0] != "bd-2" {
		t.Errorf("blocked = %+v", b)
	}
}

func TestSelectBestSource(t *testing.T) {
	now := time.Now()
	db := DataSource{Type: SourceTypeSQLite, Priority: PrioritySQLite, ModTime: now, Valid: true}
	jsonl := DataSource{Type: SourceTypeJSONL, Priority: PriorityJSONL, ModTime: now.Add(time.Second), Valid: true}

	best, err := SelectBestSource([]DataSource{jsonl, db})
	if err != nil || best.Type != SourceTypeSQLite {
		t.Errorf("slightly newer JSONL should not beat the database: %v %v", best, err)
	}

	jsonl.ModTime = now.Add(time.Minute)
	best, _ = SelectBestSource([]DataSource{db, jsonl})
	if best.Type != SourceTypeJSONL {
		t.Errorf("much newer JSONL should win, got %v", best)
	}

	db.Valid, jsonl.Valid = false, false
	if _, err := SelectBestSource([]DataSource{db, jsonl}); !errors.Is(err, ErrNoSources) {
		t.Errorf("err = %v", err)
	}
}

func TestStoreReadsJSONL(t *testing.T) {
	dir := t.TempDir()
	data := `{"id":"bd-1","title":"One","status":"open","priority":1}
{"id":"bd-2","title":"Two","status":"in_progress","priority":2,"parent":"bd-1"}
`
	if err := os.WriteFile(filepath.Join(dir, "issues.jsonl"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(dir)
	snap, err := s.ReadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap.Records) != 2 || snap.TakenAt.IsZero() || filepath.Base(snap.Source) != "issues.jsonl" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestStorePrefersDatabase(t *testing.T) {
	dir := t.TempDir()
	createTestDB(t, dir)
	old := time.Now().Add(-time.Hour)
	jsonlPath := filepath.Join(dir, "issues.jsonl")
	os.WriteFile(jsonlPath, []byte(`{"id":"j-1","title":"from jsonl"}`+"\n"), 0o644)
	os.Chtimes(jsonlPath, old, old)

	snap, err := NewStore(dir).ReadSnapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(snap.Source) != "beads.db" || len(snap.Records) != 3 {
		t.Errorf("source = %s, records = %d", snap.Source, len(snap.Records))
	}
}

func TestStoreUnavailable(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing"))
	_, err := s.ReadSnapshot(context.Background())
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}

	s = NewStore(t.TempDir(), WithPath(filepath.Join(t.TempDir(), "nope.db")))
	if _, err := s.ReadSnapshot(context.Background()); !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("explicit path err = %v", err)
	}
}

func TestParseJSONStringArray(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"null", 0},
		{"[]", 0},
		{`["a","b"]`, 2},
		{`[a, "b"`, 2},
	}
	for _, tt := range tests {
		if got := parseJSONStringArray(tt.in); len(got) != tt.want {
			t.Errorf("parseJSONStringArray(%q) = %v", tt.in, got)
		}
	}
}

func TestStoreWatchPaths(t *testing.T) {
	paths := NewStore("/tmp/b").WatchPaths()
	if len(paths) < 3 || paths[0] != "/tmp/b/beads.db" || paths[1] != "/tmp/b/beads.db-wal" || paths[2] != "/tmp/b/issues.jsonl" {
		t.Errorf("WatchPaths = %v", paths)
	}
	pinned := NewStore("/tmp/b", WithPath("/x/issues.jsonl")).WatchPaths()
	if len(pinned) != 1 || pinned[0] != "/x/issues.jsonl" {
		t.Errorf("pinned WatchPaths = %v", pinned)
	}
}
