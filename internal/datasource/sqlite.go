package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/bu/pkg/model"
)

// SQLiteReader provides read access to a beads SQLite database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(path string) (*SQLiteReader, error) {
	// Read-only with a busy timeout so a concurrent br write does not fail the read.
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(4)

	for _, pragma := range []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	} {
		// Best effort.
		_, _ = db.Exec(pragma)
	}

	return &SQLiteReader{db: db, path: path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the issues table is readable.
func (r *SQLiteReader) Ping() error {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM issues").Scan(&n); err != nil {
		return fmt.Errorf("reading issues table: %w", err)
	}
	return nil
}

type depRow struct {
	issueID, dependsOn, typ string
}

// LoadRecords reads every issue with its dependencies and comments. The
// three tables are queried concurrently.
func (r *SQLiteReader) LoadRecords(ctx context.Context) ([]model.Record, error) {
	var (
		records  []model.Record
		deps     []depRow
		comments map[string][]model.Comment
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = r.loadIssues(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		deps, err = r.loadDependencies(ctx)
		return err
	})
	g.Go(func() error {
		// Older databases have no comments table.
		comments, _ = r.loadComments(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(records))
	for i := range records {
		pos[records[i].ID] = i
	}
	for _, d := range deps {
		i, ok := pos[d.issueID]
		if !ok {
			continue
		}
		records[i].Dependencies = append(records[i].Dependencies, model.Dependency{
			IssueID:     d.issueID,
			DependsOnID: d.dependsOn,
			Type:        model.DependencyType(d.typ),
		})
	}
	for i := range records {
		records[i].Comments = comments[records[i].ID]
		records[i].Normalize()
	}
	return records, nil
}

const issuesQuery = `
	SELECT
		id, title, status, priority, issue_type, description, labels,
		created_by, assignee, created_at, updated_at, closed_at, close_reason
	FROM issues`

const issuesQuerySimple = `
	SELECT id, title, status, priority, issue_type, description, created_at, updated_at
	FROM issues`

func (r *SQLiteReader) loadIssues(ctx context.Context) ([]model.Record, error) {
	rows, err := r.db.QueryContext(ctx, issuesQuery)
	if err != nil {
		// Try simpler query if some columns don't exist
		return r.loadIssuesSimple(ctx)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var rec model.Record
		var status, issueType string
		var description, labelsJSON, createdBy, assignee, closeReason sql.NullString
		var createdAt, updatedAt, closedAt sql.NullString

		if err := rows.Scan(
			&rec.ID, &rec.Title, &status, &rec.Priority, &issueType, &description, &labelsJSON,
			&createdBy, &assignee, &createdAt, &updatedAt, &closedAt, &closeReason,
		); err != nil {
			continue
		}
		if status == "tombstone" {
			continue
		}
		rec.Status = model.Status(status)
		rec.Type = model.RecordType(issueType)
		rec.Description = description.String
		rec.Labels = parseJSONStringArray(labelsJSON.String)
		rec.CreatedBy = createdBy.String
		rec.Assignee = assignee.String
		rec.CloseReason = closeReason.String
		rec.CreatedAt = parseTime(createdAt.String)
		rec.UpdatedAt = parseTime(updatedAt.String)
		if t := parseTime(closedAt.String); !t.IsZero() {
			rec.ClosedAt = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}
	return records, nil
}

// loadIssuesSimple is a fallback for databases with fewer columns
func (r *SQLiteReader) loadIssuesSimple(ctx context.Context) ([]model.Record, error) {
	rows, err := r.db.QueryContext(ctx, issuesQuerySimple)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var rec model.Record
		var status, issueType string
		var description, createdAt, updatedAt sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Title, &status, &rec.Priority, &issueType,
			&description, &createdAt, &updatedAt); err != nil {
			continue
		}
		if status == "tombstone" {
			continue
		}
		rec.Status = model.Status(status)
		rec.Type = model.RecordType(issueType)
		rec.Description = description.String
		rec.CreatedAt = parseTime(createdAt.String)
		rec.UpdatedAt = parseTime(updatedAt.String)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}
	return records, nil
}

func (r *SQLiteReader) loadDependencies(ctx context.Context) ([]depRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT issue_id, depends_on_id, type FROM dependencies`)
	if err != nil {
		// Some schemas name the column dependency_type.
		rows, err = r.db.QueryContext(ctx, `SELECT issue_id, depends_on_id, dependency_type FROM dependencies`)
		if err != nil {
			return nil, fmt.Errorf("reading dependencies: %w", err)
		}
	}
	defer rows.Close()

	var deps []depRow
	for rows.Next() {
		var d depRow
		var typ sql.NullString
		if err := rows.Scan(&d.issueID, &d.dependsOn, &typ); err != nil {
			continue
		}
		d.typ = typ.String
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

func (r *SQLiteReader) loadComments(ctx context.Context) (map[string][]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT issue_id, author, text, created_at FROM comments ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]model.Comment)
	for rows.Next() {
		var issueID string
		var author, text, createdAt sql.NullString
		if err := rows.Scan(&issueID, &author, &text, &createdAt); err != nil {
			continue
		}
		out[issueID] = append(out[issueID], model.Comment{
			Author:    author.String,
			Text:      text.String,
			CreatedAt: parseTime(createdAt.String),
		})
	}
	return out, rows.Err()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseJSONStringArray parses a JSON array of strings
func parseJSONStringArray(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "[]" {
		return nil
	}

	var result []string
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		// Fallback to simple parser for malformed JSON
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		for _, item := range strings.Split(s, ",") {
			item = strings.Trim(strings.TrimSpace(item), `"`)
			if item != "" {
				result = append(result, item)
			}
		}
	}
	return result
}
