package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Record is one bead as the dashboard sees it.
type Record struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Type         RecordType   `json:"issue_type"`
	Status       Status       `json:"status"`
	Priority     int          `json:"priority"`
	Labels       []string     `json:"labels,omitempty"`
	Parent       string       `json:"parent,omitempty"`
	Assignee     string       `json:"assignee,omitempty"`
	CreatedBy    string       `json:"created_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	ClosedAt     *time.Time   `json:"closed_at,omitempty"`
	CloseReason  string       `json:"close_reason,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	Comments     []Comment    `json:"comments,omitempty"`

	// BlockedBy lists the IDs this record waits on. Filled by Normalize.
	BlockedBy []string `json:"-"`
}

// Dependency is one edge as stored by beads.
type Dependency struct {
	IssueID     string         `json:"issue_id"`
	DependsOnID string         `json:"depends_on_id"`
	Type        DependencyType `json:"type"`
}

// DependencyType categorizes the relationship
type DependencyType string

const (
	DepBlocks      DependencyType = "blocks"
	DepRelated     DependencyType = "related"
	DepParentChild DependencyType = "parent-child"
)

// IsBlocking reports whether the edge blocks. Untyped legacy edges block.
func (d DependencyType) IsBlocking() bool {
	return d == "" || d == DepBlocks
}

// Comment is a note attached to a record.
type Comment struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Normalize derives Parent and BlockedBy from Dependencies and makes
// Labels a sorted set. It is idempotent.
func (r *Record) Normalize() {
	var blocked []string
	for _, d := range r.Dependencies {
		if d.IssueID != "" && d.IssueID != r.ID {
			continue
		}
		switch {
		case d.Type == DepParentChild:
			if r.Parent == "" {
				r.Parent = d.DependsOnID
			}
		case d.Type.IsBlocking():
			if d.DependsOnID != "" && !slices.Contains(blocked, d.DependsOnID) {
				blocked = append(blocked, d.DependsOnID)
			}
		}
	}
	r.BlockedBy = blocked
	r.Labels = NormalizeLabels(r.Labels)
}

// NormalizeLabels trims, drops empties and dedups, returning a sorted slice.
func NormalizeLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// HasLabel reports whether the record carries label l.
func (r Record) HasLabel(l string) bool {
	_, ok := slices.BinarySearch(r.Labels, l)
	return ok
}

// Less orders records by (priority, id).
func Less(a, b *Record) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.ID < b.ID
}

// Compare is the three-way form of Less, for slices.SortFunc.
func Compare(a, b *Record) int {
	if a.Priority != b.Priority {
		return a.Priority - b.Priority
	}
	return strings.Compare(a.ID, b.ID)
}

func (r Record) String() string {
	return fmt.Sprintf("%s [P%d %s] %s", r.ID, r.Priority, r.Status, r.Title)
}

// Status represents the current state of a record
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDeferred   Status = "deferred"
	StatusClosed     Status = "closed"
)

// IsValid returns true if the status is a recognized value
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusDeferred, StatusClosed:
		return true
	}
	return false
}

// IsClosed returns true if the status represents a closed state
func (s Status) IsClosed() bool {
	return s == StatusClosed
}

// NextStatus returns the successor in the open -> in_progress -> closed
// cycle. Statuses outside the cycle go back to open.
func NextStatus(s Status) Status {
	switch s {
	case StatusOpen:
		return StatusInProgress
	case StatusInProgress:
		return StatusClosed
	default:
		return StatusOpen
	}
}

// RecordType categorizes the kind of work
type RecordType string

const (
	TypeBug     RecordType = "bug"
	TypeFeature RecordType = "feature"
	TypeTask    RecordType = "task"
	TypeEpic    RecordType = "epic"
	TypeChore   RecordType = "chore"
)

// KnownTypes lists the standard types in menu order.
var KnownTypes = []RecordType{TypeTask, TypeBug, TypeFeature, TypeEpic, TypeChore}

// IsKnownType returns true for the standard types. Other non-empty types
// are displayed verbatim.
func (t RecordType) IsKnownType() bool {
	return slices.Contains(KnownTypes, t)
}

// Priority bounds.
const (
	MinPriority = 0
	MaxPriority = 4
)
