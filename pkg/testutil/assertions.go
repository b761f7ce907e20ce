package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/vanderheijden86/bu/pkg/model"
)

// AssertRecordCount verifies the expected number of records.
func AssertRecordCount(t *testing.T, recs []model.Record, expected int) {
	t.Helper()
	if len(recs) != expected {
		t.Errorf("expected %d records, got %d", expected, len(recs))
	}
}

// AssertNoDuplicateIDs verifies all record IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, recs []model.Record) {
	t.Helper()
	seen := make(map[string]bool)
	for _, rec := range recs {
		if seen[rec.ID] {
			t.Errorf("duplicate record ID: %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}

// AssertParent verifies that child names parent.
func AssertParent(t *testing.T, recs []model.Record, childID, parentID string) {
	t.Helper()
	rec := FindRecord(recs, childID)
	if rec == nil {
		t.Errorf("record %s not found", childID)
		return
	}
	if rec.Parent != parentID {
		t.Errorf("parent of %s = %q, want %q", childID, rec.Parent, parentID)
	}
}

// AssertIDs compares two ID sequences, printing both on mismatch.
func AssertIDs(t *testing.T, got, want []string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("ids mismatch:\n got: %s\nwant: %s", strings.Join(got, " "), strings.Join(want, " "))
	}
}

// AssertStatusCounts verifies the distribution of statuses.
func AssertStatusCounts(t *testing.T, recs []model.Record, open, inProgress, blocked, closed int) {
	t.Helper()
	counts := CountByStatus(recs)
	if counts[model.StatusOpen] != open {
		t.Errorf("expected %d open, got %d", open, counts[model.StatusOpen])
	}
	if counts[model.StatusInProgress] != inProgress {
		t.Errorf("expected %d in_progress, got %d", inProgress, counts[model.StatusInProgress])
	}
	if counts[model.StatusBlocked] != blocked {
		t.Errorf("expected %d blocked, got %d", blocked, counts[model.StatusBlocked])
	}
	if counts[model.StatusClosed] != closed {
		t.Errorf("expected %d closed, got %d", closed, counts[model.StatusClosed])
	}
}

// TempDir helpers

// TempBeadsDir creates a temporary directory with a .beads subdirectory
// and returns the .beads path.
func TempBeadsDir(t *testing.T) string {
	t.Helper()

	beadsDir := filepath.Join(t.TempDir(), ".beads")
	if err := os.MkdirAll(beadsDir, 0755); err != nil {
		t.Fatalf("failed to create .beads dir: %v", err)
	}
	return beadsDir
}

// WriteIssuesFile writes records to issues.jsonl in beadsDir.
func WriteIssuesFile(t *testing.T, beadsDir string, recs []model.Record) string {
	t.Helper()

	path := filepath.Join(beadsDir, "issues.jsonl")
	WriteRecordsFile(t, path, recs)
	return path
}

// WriteRecordsFile writes records as JSONL to a custom path.
func WriteRecordsFile(t *testing.T, path string, recs []model.Record) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(ToJSONL(recs)), 0644); err != nil {
		t.Fatalf("failed to write records file: %v", err)
	}
}

// FindRecord returns the record with the given ID, or nil if not found.
func FindRecord(recs []model.Record, id string) *model.Record {
	for i := range recs {
		if recs[i].ID == id {
			return &recs[i]
		}
	}
	return nil
}

// CountByStatus returns a map of status -> count.
func CountByStatus(recs []model.Record) map[model.Status]int {
	counts := make(map[model.Status]int)
	for _, rec := range recs {
		counts[rec.Status]++
	}
	return counts
}

// GetIDs returns a slice of all record IDs.
func GetIDs(recs []model.Record) []string {
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids
}

// RecordID generates a standard test ID with the given index.
func RecordID(index int) string {
	return fmt.Sprintf("test-%d", index)
}
