// Package tree flattens a record index into the ordered, filtered,
// collapse-aware sequence the list pane displays.
package tree

import (
	"slices"
	"strings"

	"github.com/vanderheijden86/bu/pkg/model"
)

// Options carries the session state that shapes a rebuild.
type Options struct {
	// Filter is matched case-insensitively against titles as a plain
	// substring, whitespace included. Empty matches all.
	Filter string
	// Collapsed holds IDs the user collapsed. Absent means expanded.
	Collapsed map[string]bool
	// ShowClosed includes closed records that are not needed as context.
	ShowClosed bool
}

// Node is one row of the visible sequence.
type Node struct {
	Record *model.Record
	Depth  int

	// Expanded mirrors the collapse map, not whether children are shown.
	Expanded bool
	// Forced is set when a filter is showing children of a collapsed node.
	Forced bool
	// HasChildren reports whether expanding would show any rows.
	HasChildren bool
	// Match is true when the title matches the filter.
	Match bool
	// Context marks rows shown only so a descendant stays reachable.
	Context bool
	// Cyclic marks a record re-rooted because its parent chain loops.
	Cyclic bool
	// Last is true for the last visible sibling.
	Last bool
	// Prefix is the box-drawing guide for this row ("", "├── ", "│   └── ", ...).
	Prefix string
}

// ID returns the record ID.
func (n Node) ID() string { return n.Record.ID }

// Result is the output of Build.
type Result struct {
	Nodes []Node
	// Cyclic lists records that were re-rooted, one per loop.
	Cyclic []string
}

// IDs returns the visible IDs in order.
func (r Result) IDs() []string {
	out := make([]string, len(r.Nodes))
	for i := range r.Nodes {
		out[i] = r.Nodes[i].Record.ID
	}
	return out
}

// Position returns the row index of id, or -1.
func (r Result) Position(id string) int {
	for i := range r.Nodes {
		if r.Nodes[i].Record.ID == id {
			return i
		}
	}
	return -1
}

type item struct {
	rec    *model.Record
	kids   []*item
	self   bool
	keep   bool
	match  bool
	cyclic bool
}

type builder struct {
	idx       *model.Index
	opts      Options
	needle    string
	filtering bool
	items     map[string]*item
	out       []Node
}

// Build computes the visible sequence for idx. It runs in time linear in
// the number of records and terminates on any parent graph.
func Build(idx *model.Index, opts Options) Result {
	if idx == nil || idx.Len() == 0 {
		return Result{}
	}
	b := &builder{
		idx:    idx,
		opts:   opts,
		needle: strings.ToLower(opts.Filter),
		items:  make(map[string]*item, idx.Len()),
	}
	b.filtering = b.needle != ""

	var roots []*item
	var cyclic []string
	for _, r := range idx.Roots() {
		it := b.visit(r)
		if idx.SelfParented(r.ID) {
			it.cyclic = true
			cyclic = append(cyclic, r.ID)
		}
		roots = append(roots, it)
	}

	for _, id := range b.unreached() {
		if _, done := b.items[id]; done {
			continue
		}
		start, _ := idx.Get(id)
		head := b.loopHead(start)
		it := b.visit(head)
		it.cyclic = true
		cyclic = append(cyclic, head.ID)
		roots = append(roots, it)
	}
	if len(cyclic) > 0 {
		slices.SortStableFunc(roots, func(a, c *item) int { return model.Compare(a.rec, c.rec) })
		slices.Sort(cyclic)
	}

	kept := keptOf(roots)
	b.out = make([]Node, 0, len(b.items))
	for i, it := range kept {
		b.emit(it, 0, "", "", i == len(kept)-1)
	}
	return Result{Nodes: b.out, Cyclic: cyclic}
}

// visit walks the subtree under rec in post-order and decides which
// records survive the filter and closed rules.
func (b *builder) visit(rec *model.Record) *item {
	it := &item{rec: rec}
	b.items[rec.ID] = it
	it.match = !b.filtering || strings.Contains(strings.ToLower(rec.Title), b.needle)
	it.self = it.match && (b.opts.ShowClosed || !rec.Status.IsClosed())

	childKept := false
	for _, c := range b.idx.Children(rec.ID) {
		if _, seen := b.items[c.ID]; seen {
			continue
		}
		ci := b.visit(c)
		it.kids = append(it.kids, ci)
		childKept = childKept || ci.keep
	}
	it.keep = it.self || childKept
	return it
}

// unreached returns IDs not yet visited, ordered by (priority, id) so the
// choice of re-rooted records is deterministic.
func (b *builder) unreached() []string {
	if len(b.items) == b.idx.Len() {
		return nil
	}
	var recs []*model.Record
	for _, id := range b.idx.IDs() {
		if _, ok := b.items[id]; !ok {
			r, _ := b.idx.Get(id)
			recs = append(recs, r)
		}
	}
	slices.SortFunc(recs, model.Compare)
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

// loopHead follows parents from start until a record repeats, then returns
// the smallest (priority, id) record on that loop.
func (b *builder) loopHead(start *model.Record) *model.Record {
	onPath := make(map[string]bool)
	cur := start
	for !onPath[cur.ID] {
		onPath[cur.ID] = true
		next, ok := b.idx.Get(cur.Parent)
		if !ok {
			// Unreached records always have a present parent; stop defensively.
			return cur
		}
		cur = next
	}
	head := cur
	for r, _ := b.idx.Get(cur.Parent); r.ID != cur.ID; r, _ = b.idx.Get(r.Parent) {
		if model.Less(r, head) {
			head = r
		}
	}
	return head
}

func keptOf(items []*item) []*item {
	var out []*item
	for _, it := range items {
		if it.keep {
			out = append(out, it)
		}
	}
	return out
}

func (b *builder) emit(it *item, depth int, guide, branch string, last bool) {
	kids := keptOf(it.kids)
	expanded := !b.opts.Collapsed[it.rec.ID]
	forced := !expanded && b.filtering && len(kids) > 0

	b.out = append(b.out, Node{
		Record:      it.rec,
		Depth:       depth,
		Expanded:    expanded,
		Forced:      forced,
		HasChildren: len(kids) > 0,
		Match:       it.match,
		Context:     !it.self,
		Cyclic:      it.cyclic,
		Last:        last,
		Prefix:      guide + branch,
	})

	if !expanded && !forced {
		return
	}

	childGuide := guide
	if depth > 0 {
		if last {
			childGuide += "    "
		} else {
			childGuide += "│   "
		}
	}
	for i, k := range kids {
		isLast := i == len(kids)-1
		br := "├── "
		if isLast {
			br = "└── "
		}
		b.emit(k, depth+1, childGuide, br, isLast)
	}
}
