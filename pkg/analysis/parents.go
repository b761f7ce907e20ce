package analysis

import (
	"slices"

	"github.com/vanderheijden86/bu/pkg/metrics"
	"github.com/vanderheijden86/bu/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// parentGraph models parent-child links as child -> parent edges.
type parentGraph struct {
	g        *simple.DirectedGraph
	idToNode map[string]int64
	nodeToID map[int64]string
}

func newParentGraph(idx *model.Index) *parentGraph {
	pg := &parentGraph{
		g:        simple.NewDirectedGraph(),
		idToNode: make(map[string]int64, idx.Len()),
		nodeToID: make(map[int64]string, idx.Len()),
	}
	for _, id := range idx.IDs() {
		n := pg.g.NewNode()
		pg.g.AddNode(n)
		pg.idToNode[id] = n.ID()
		pg.nodeToID[n.ID()] = id
	}
	for _, id := range idx.IDs() {
		r, _ := idx.Get(id)
		v, ok := pg.idToNode[r.Parent]
		if !ok || r.Parent == id {
			continue
		}
		u := pg.idToNode[id]
		pg.g.SetEdge(pg.g.NewEdge(pg.g.Node(u), pg.g.Node(v)))
	}
	return pg
}

// ParentCycles returns every loop in the parent relation. Each loop starts
// at its smallest (priority, id) member and follows parent links; loops
// are ordered by that first member.
func ParentCycles(idx *model.Index) [][]string {
	if idx == nil || idx.Len() == 0 {
		return nil
	}
	defer metrics.Timer(metrics.CycleCheck)()
	pg := newParentGraph(idx)

	var loops [][]string
	for _, scc := range topo.TarjanSCC(pg.g) {
		// A record has one parent, so a strongly connected set larger than
		// one is exactly one loop.
		if len(scc) < 2 {
			continue
		}
		var head *model.Record
		for _, n := range scc {
			r, _ := idx.Get(pg.nodeToID[n.ID()])
			if head == nil || model.Less(r, head) {
				head = r
			}
		}
		loop := []string{head.ID}
		for r, _ := idx.Get(head.Parent); r.ID != head.ID; r, _ = idx.Get(r.Parent) {
			loop = append(loop, r.ID)
		}
		loops = append(loops, loop)
	}
	slices.SortFunc(loops, func(a, b []string) int {
		ra, _ := idx.Get(a[0])
		rb, _ := idx.Get(b[0])
		return model.Compare(ra, rb)
	})
	return loops
}

// Ancestors returns the parent chain of id from the root down, excluding
// id itself. The walk stops at a repeated record.
func Ancestors(idx *model.Index, id string) []string {
	if idx == nil {
		return nil
	}
	r, ok := idx.Get(id)
	if !ok {
		return nil
	}
	seen := map[string]bool{id: true}
	var chain []string
	for {
		p, ok := idx.Get(r.Parent)
		if !ok || seen[p.ID] {
			break
		}
		seen[p.ID] = true
		chain = append(chain, p.ID)
		r = p
	}
	slices.Reverse(chain)
	return chain
}
