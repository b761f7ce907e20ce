package model

import (
	"slices"
	"time"
)

// Snapshot is one consistent read of the backing store. It is never
// mutated after the reader hands it over.
type Snapshot struct {
	Records []Record
	TakenAt time.Time
	Source  string
}

// Index is the lookup structure derived from one Snapshot.
type Index struct {
	byID     map[string]*Record
	children map[string][]*Record
	blocks   map[string][]string
	roots    []*Record
	order    []string
	selfLoop map[string]bool
	warnings []Warning
	takenAt  time.Time
}

// NewIndex builds the lookup maps for snap. When two records share an ID
// the later one wins and a DuplicateIdentifier warning is recorded. A
// record naming itself as parent is indexed as a root and remembered so
// the tree can flag it as a one-record loop.
func NewIndex(snap Snapshot) *Index {
	idx := &Index{
		byID:     make(map[string]*Record, len(snap.Records)),
		children: make(map[string][]*Record),
		blocks:   make(map[string][]string),
		selfLoop: make(map[string]bool),
		takenAt:  snap.TakenAt,
	}

	seen := make(map[string]int, len(snap.Records))
	for i := range snap.Records {
		id := snap.Records[i].ID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			idx.warnings = append(idx.warnings, Warning{Kind: ErrDuplicateIdentifier, ID: id})
		} else {
			idx.order = append(idx.order, id)
		}
		seen[id] = i
	}

	for _, id := range idx.order {
		rec := snap.Records[seen[id]]
		rec.Normalize()
		if rec.Parent == rec.ID {
			rec.Parent = ""
			idx.selfLoop[id] = true
		}
		idx.byID[id] = &rec
	}

	for _, id := range idx.order {
		rec := idx.byID[id]
		if _, ok := idx.byID[rec.Parent]; rec.Parent != "" && ok {
			idx.children[rec.Parent] = append(idx.children[rec.Parent], rec)
		} else {
			idx.roots = append(idx.roots, rec)
		}
		for _, b := range rec.BlockedBy {
			idx.blocks[b] = append(idx.blocks[b], rec.ID)
		}
	}

	for _, kids := range idx.children {
		slices.SortFunc(kids, Compare)
	}
	slices.SortFunc(idx.roots, Compare)
	for _, b := range idx.blocks {
		slices.Sort(b)
	}
	return idx
}

// Get returns the record with the given ID.
func (idx *Index) Get(id string) (*Record, bool) {
	r, ok := idx.byID[id]
	return r, ok
}

// Has reports whether id is present.
func (idx *Index) Has(id string) bool {
	_, ok := idx.byID[id]
	return ok
}

// Children returns the children of id ordered by (priority, id). The
// slice is shared; callers must not modify it.
func (idx *Index) Children(id string) []*Record {
	return idx.children[id]
}

// Roots returns records whose parent is absent or dangling, in sibling order.
func (idx *Index) Roots() []*Record {
	return idx.roots
}

// Blocks returns the IDs that wait on id.
func (idx *Index) Blocks(id string) []string {
	return idx.blocks[id]
}

// SelfParented reports whether id named itself as parent in the snapshot.
func (idx *Index) SelfParented(id string) bool {
	return idx.selfLoop[id]
}

// Len is the number of distinct records.
func (idx *Index) Len() int {
	return len(idx.byID)
}

// IDs returns every distinct ID in snapshot order.
func (idx *Index) IDs() []string {
	return idx.order
}

// Warnings returns problems found while indexing.
func (idx *Index) Warnings() []Warning {
	return idx.warnings
}

// TakenAt is the snapshot timestamp.
func (idx *Index) TakenAt() time.Time {
	return idx.takenAt
}
