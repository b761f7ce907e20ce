// Package datasource discovers the beads store on disk and reads full
// snapshots from it. A SQLite database is preferred over the JSONL export
// when both are present and comparably fresh.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vanderheijden86/bu/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database (beads.db)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSONL is a JSONL export in the beads directory
	SourceTypeJSONL SourceType = "jsonl"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityJSONL  = 50
)

// freshnessSlack is how much newer a JSONL file must be before it wins
// over the database. br writes the export shortly after the database.
const freshnessSlack = 2 * time.Second

// ErrNoSources is returned when discovery finds nothing readable.
var ErrNoSources = errors.New("no valid beads sources")

// DataSource represents a potential source of beads data
type DataSource struct {
	Type     SourceType
	Path     string
	Priority int
	ModTime  time.Time
	Size     int64
	// Valid and ValidationError are set by ValidateSource.
	Valid           bool
	ValidationError string
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), status)
}

// SourceFromPath describes an explicit file, typed by extension.
func SourceFromPath(path string) (DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("stat %s: %w", path, err)
	}
	src := DataSource{Path: path, ModTime: info.ModTime(), Size: info.Size()}
	if filepath.Ext(path) == ".jsonl" {
		src.Type, src.Priority = SourceTypeJSONL, PriorityJSONL
	} else {
		src.Type, src.Priority = SourceTypeSQLite, PrioritySQLite
	}
	return src, nil
}

// DiscoverSources lists the database and JSONL exports in beadsDir,
// freshest first.
func DiscoverSources(beadsDir string) ([]DataSource, error) {
	var sources []DataSource

	if dbPath, ok := loader.FindDBPath(beadsDir); ok {
		if src, err := SourceFromPath(dbPath); err == nil {
			sources = append(sources, src)
		}
	}

	entries, err := os.ReadDir(beadsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read beads directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !loader.IsJSONLCandidate(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		sources = append(sources, DataSource{
			Type:     SourceTypeJSONL,
			Path:     filepath.Join(beadsDir, e.Name()),
			Priority: PriorityJSONL,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
	return sources, nil
}

// ValidateSource checks that a source can be opened and is non-empty,
// recording the outcome on src.
func ValidateSource(src *DataSource) error {
	err := validate(*src)
	src.Valid = err == nil
	src.ValidationError = ""
	if err != nil {
		src.ValidationError = err.Error()
	}
	return err
}

func validate(src DataSource) error {
	info, err := os.Stat(src.Path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src.Path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", src.Path)
	}
	if src.Type == SourceTypeSQLite {
		r, err := NewSQLiteReader(src.Path)
		if err != nil {
			return err
		}
		defer r.Close()
		return r.Ping()
	}
	return nil
}

// SelectBestSource picks the valid source to read. The database wins
// unless a JSONL export is clearly newer.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var best *DataSource
	for i := range sources {
		s := &sources[i]
		if !s.Valid {
			continue
		}
		if best == nil || better(*s, *best) {
			best = s
		}
	}
	if best == nil {
		return DataSource{}, ErrNoSources
	}
	return *best, nil
}

func better(a, b DataSource) bool {
	if a.Priority == b.Priority {
		return a.ModTime.After(b.ModTime)
	}
	if a.Priority > b.Priority {
		return !b.ModTime.After(a.ModTime.Add(freshnessSlack))
	}
	return a.ModTime.After(b.ModTime.Add(freshnessSlack))
}
