package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/vanderheijden86/bu/pkg/model"
)

// BeadsDirEnvVar is the name of the environment variable for custom beads directory
const BeadsDirEnvVar = "BEADS_DIR"

// DBFileName is the SQLite database beads keeps next to its JSONL export.
const DBFileName = "beads.db"

// PreferredJSONLNames defines the priority order for looking up beads data files.
var PreferredJSONLNames = []string{"issues.jsonl", "beads.jsonl", "beads.base.jsonl"}

// ErrNoBeadsData is returned when a directory holds neither a database nor a JSONL file.
var ErrNoBeadsData = errors.New("no beads data found")

// GetBeadsDir returns the beads directory path, respecting BEADS_DIR env var.
// Otherwise it walks up from repoPath (or cwd if empty) looking for .beads,
// falling back to repoPath/.beads.
func GetBeadsDir(repoPath string) (string, error) {
	if envDir := os.Getenv(BeadsDirEnvVar); envDir != "" {
		return envDir, nil
	}

	if repoPath == "" {
		var err error
		repoPath, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
	}

	for dir := repoPath; ; {
		candidate := filepath.Join(dir, ".beads")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return filepath.Join(repoPath, ".beads"), nil
}

// FindDBPath returns the beads.db path in beadsDir if it exists.
func FindDBPath(beadsDir string) (string, bool) {
	path := filepath.Join(beadsDir, DBFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// IsJSONLCandidate reports whether name looks like a live beads export,
// as opposed to a backup or merge artifact.
func IsJSONLCandidate(name string) bool {
	if !strings.HasSuffix(name, ".jsonl") {
		return false
	}
	if strings.Contains(name, ".backup") ||
		strings.Contains(name, ".orig") ||
		strings.Contains(name, ".merge") ||
		name == "deletions.jsonl" {
		return false
	}
	// OURS/THEIRS sides during a git merge conflict.
	return !strings.HasPrefix(name, "beads.left") && !strings.HasPrefix(name, "beads.right")
}

// FindJSONLPath locates the beads JSONL file in the given directory.
// Prefers issues.jsonl over beads.jsonl, and non-empty files over empty ones.
func FindJSONLPath(beadsDir string) (string, error) {
	entries, err := os.ReadDir(beadsDir)
	if err != nil {
		return "", fmt.Errorf("failed to read beads directory: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		if !e.IsDir() && IsJSONLCandidate(e.Name()) {
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no JSONL file in %s", ErrNoBeadsData, beadsDir)
	}

	nonEmpty := func(name string) bool {
		info, err := os.Stat(filepath.Join(beadsDir, name))
		return err == nil && info.Size() > 0
	}
	for _, preferred := range PreferredJSONLNames {
		for _, name := range candidates {
			if name == preferred && nonEmpty(name) {
				return filepath.Join(beadsDir, name), nil
			}
		}
	}
	for _, name := range candidates {
		if nonEmpty(name) {
			return filepath.Join(beadsDir, name), nil
		}
	}
	return filepath.Join(beadsDir, candidates[0]), nil
}

// DefaultMaxBufferSize is the default buffer size for the reader (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures the behavior of ParseRecords.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings go to slog at warn level.
	WarningHandler func(string)

	// BufferSize sets the maximum line size (in bytes) to read at once.
	// Lines longer than this are skipped with a warning.
	// If 0, uses DefaultMaxBufferSize (10MB).
	BufferSize int
}

// LoadRecordsFromFile reads records from a JSONL file.
func LoadRecordsFromFile(path string, opts ParseOptions) ([]model.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNoBeadsData, path)
		}
		return nil, fmt.Errorf("failed to open issues file: %w", err)
	}
	defer file.Close()

	return ParseRecords(file, opts)
}

// ParseRecords parses JSONL content from a reader. Malformed or invalid
// lines are skipped with a warning; only stream errors are returned.
func ParseRecords(r io.Reader, opts ParseOptions) ([]model.Record, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)

	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) { slog.Warn("jsonl", "detail", msg) }
	}

	var records []model.Record
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading issues stream at line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var rec model.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		rec.Status = normalizeStatus(rec.Status)
		if err := validate(rec); err != nil {
			warn(fmt.Sprintf("skipping invalid issue on line %d: %v", lineNum, err))
			continue
		}
		rec.Normalize()
		records = append(records, rec)
	}
	return records, nil
}

func validate(r model.Record) error {
	if r.ID == "" {
		return fmt.Errorf("issue ID cannot be empty")
	}
	if r.Title == "" {
		return fmt.Errorf("issue title cannot be empty")
	}
	if r.Status == "tombstone" {
		return fmt.Errorf("issue %s is deleted", r.ID)
	}
	return nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}

func normalizeStatus(status model.Status) model.Status {
	trimmed := strings.TrimSpace(string(status))
	if trimmed == "" {
		return model.StatusOpen
	}
	return model.Status(strings.ToLower(trimmed))
}
