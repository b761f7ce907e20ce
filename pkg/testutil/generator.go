// Package testutil provides fixture generators for record hierarchies.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/bu/pkg/model"
)

// Fixture is an abstract parent forest. Each edge is [child_idx, parent_idx].
type Fixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Edges       [][2]int   `json:"edges"`
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds optional metadata about the fixture.
type Properties struct {
	HasCycles     bool `json:"has_cycles,omitempty"`
	Roots         int  `json:"roots,omitempty"`
	ExpectedDepth int  `json:"expected_depth,omitempty"`
}

// GeneratorConfig controls record generation.
type GeneratorConfig struct {
	Seed          int64              // Random seed for determinism (0 = use current time)
	IDPrefix      string             // Prefix for record IDs (default: "TEST")
	BaseTime      time.Time          // Base time for timestamps (default: fixed time)
	IncludeLabels bool               // Generate random labels
	StatusMix     []model.Status     // Status distribution (nil = all open)
	TypeMix       []model.RecordType // Type distribution (nil = all task)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42,
		IDPrefix:  "TEST",
		BaseTime:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		StatusMix: []model.Status{model.StatusOpen},
		TypeMix:   []model.RecordType{model.TypeTask},
	}
}

// Generator creates fixtures with various shapes.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "TEST"
	}
	if len(cfg.StatusMix) == 0 {
		cfg.StatusMix = []model.Status{model.StatusOpen}
	}
	if len(cfg.TypeMix) == 0 {
		cfg.TypeMix = []model.RecordType{model.TypeTask}
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Shapes
// ============================================================================

// Chain creates n0 <- n1 <- ... <- n{size-1}: each node is the child of
// the one before it.
func (g *Generator) Chain(size int) Fixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i, i - 1})
		}
	}
	depth := size - 1
	if depth < 0 {
		depth = 0
	}
	return Fixture{
		Description: fmt.Sprintf("Chain of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: min(size, 1), ExpectedDepth: depth},
	}
}

// Star creates one root with the given number of direct children.
func (g *Generator) Star(spokes int) Fixture {
	nodes := []string{"hub"}
	var edges [][2]int
	for i := 0; i < spokes; i++ {
		nodes = append(nodes, fmt.Sprintf("s%d", i))
		edges = append(edges, [2]int{i + 1, 0})
	}
	depth := 0
	if spokes > 0 {
		depth = 1
	}
	return Fixture{
		Description: fmt.Sprintf("Star with %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: 1, ExpectedDepth: depth},
	}
}

// Tree creates a tree with given depth and branching factor.
func (g *Generator) Tree(depth, breadth int) Fixture {
	if depth < 1 {
		depth = 1
	}
	if breadth < 1 {
		breadth = 1
	}

	nodes := []string{"n0"}
	var edges [][2]int
	currentLevel := []int{0}
	for d := 0; d < depth; d++ {
		var nextLevel []int
		for _, parent := range currentLevel {
			for b := 0; b < breadth; b++ {
				child := len(nodes)
				nodes = append(nodes, fmt.Sprintf("n%d", child))
				edges = append(edges, [2]int{child, parent})
				nextLevel = append(nextLevel, child)
			}
		}
		currentLevel = nextLevel
	}

	return Fixture{
		Description: fmt.Sprintf("Tree with depth=%d, breadth=%d (%d nodes)", depth, breadth, len(nodes)),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: 1, ExpectedDepth: depth},
	}
}

// Disconnected creates several independent chains.
func (g *Generator) Disconnected(components, componentSize int) Fixture {
	var nodes []string
	var edges [][2]int
	for c := 0; c < components; c++ {
		start := len(nodes)
		for i := 0; i < componentSize; i++ {
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{start + i, start + i - 1})
			}
		}
	}
	return Fixture{
		Description: fmt.Sprintf("%d chains of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: components, ExpectedDepth: max(componentSize-1, 0)},
	}
}

// Cycle creates a parent loop n0 -> n1 -> ... -> n{size-1} -> n0.
func (g *Generator) Cycle(size int) Fixture {
	if size < 2 {
		size = 2
	}
	nodes := make([]string, size)
	edges := make([][2]int, size)
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		edges[i] = [2]int{i, (i + 1) % size}
	}
	return Fixture{
		Description: fmt.Sprintf("Parent loop of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{HasCycles: true},
	}
}

// SelfLoop creates a single node that names itself as parent.
func (g *Generator) SelfLoop() Fixture {
	return Fixture{
		Description: "Self-parented node",
		Nodes:       []string{"n0"},
		Edges:       [][2]int{{0, 0}},
		Properties:  Properties{HasCycles: true, Roots: 1},
	}
}

// RandomForest attaches each node to a random earlier node with
// probability density, so the result never loops.
func (g *Generator) RandomForest(size int, density float64) Fixture {
	nodes := make([]string, size)
	var edges [][2]int
	roots := 0
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 && g.rng.Float64() < density {
			edges = append(edges, [2]int{i, g.rng.Intn(i)})
		} else {
			roots++
		}
	}
	return Fixture{
		Description: fmt.Sprintf("Random forest of %d nodes (density=%.2f)", size, density),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: roots},
	}
}

// ============================================================================
// Conversion
// ============================================================================

// ID returns the record ID the generator assigns to a node name.
func (g *Generator) ID(node string) string {
	return fmt.Sprintf("%s-%s", g.cfg.IDPrefix, node)
}

// ToRecords converts a fixture to records. The last edge for a child wins.
func (g *Generator) ToRecords(f Fixture) []model.Record {
	parents := make(map[int]int)
	for _, e := range f.Edges {
		parents[e[0]] = e[1]
	}

	recs := make([]model.Record, len(f.Nodes))
	for i, name := range f.Nodes {
		ts := g.cfg.BaseTime.Add(time.Duration(i) * time.Hour)
		rec := model.Record{
			ID:        g.ID(name),
			Title:     fmt.Sprintf("Record %s", name),
			Status:    g.pickStatus(),
			Priority:  g.rng.Intn(model.MaxPriority + 1),
			Type:      g.pickType(),
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if g.cfg.IncludeLabels {
			rec.Labels = model.NormalizeLabels(g.pickLabels())
		}
		if p, ok := parents[i]; ok {
			rec.Parent = g.ID(f.Nodes[p])
		}
		recs[i] = rec
	}
	return recs
}

// ToJSONL converts records to JSONL format (one JSON object per line).
func ToJSONL(recs []model.Record) string {
	var sb strings.Builder
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Snapshot wraps records in a snapshot taken at a fixed time.
func Snapshot(recs ...model.Record) model.Snapshot {
	return model.Snapshot{
		Records: recs,
		TakenAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Source:  "fixture",
	}
}

func (g *Generator) pickStatus() model.Status {
	return g.cfg.StatusMix[g.rng.Intn(len(g.cfg.StatusMix))]
}

func (g *Generator) pickType() model.RecordType {
	return g.cfg.TypeMix[g.rng.Intn(len(g.cfg.TypeMix))]
}

var sampleLabels = []string{"backend", "frontend", "api", "database", "ui", "auth", "performance", "security", "docs", "testing"}

func (g *Generator) pickLabels() []string {
	count := g.rng.Intn(3) + 1
	labels := make([]string, 0, count)
	used := make(map[int]bool)
	for len(labels) < count {
		idx := g.rng.Intn(len(sampleLabels))
		if !used[idx] {
			used[idx] = true
			labels = append(labels, sampleLabels[idx])
		}
	}
	return labels
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickChain creates a chain with default settings.
func QuickChain(size int) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.Chain(size))
}

// QuickStar creates a star with default settings.
func QuickStar(spokes int) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.Star(spokes))
}

// QuickTree creates a tree with default settings.
func QuickTree(depth, breadth int) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.Tree(depth, breadth))
}

// QuickCycle creates a parent loop with default settings.
func QuickCycle(size int) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.Cycle(size))
}

// QuickRandom creates a random forest with default settings.
func QuickRandom(size int, density float64) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.RandomForest(size, density))
}

// Single returns one open record with no parent.
func Single() []model.Record {
	gen := NewDefault()
	return []model.Record{{
		ID:        gen.ID("single"),
		Title:     "Single Record",
		Status:    model.StatusOpen,
		Priority:  1,
		Type:      model.TypeTask,
		CreatedAt: gen.cfg.BaseTime,
		UpdatedAt: gen.cfg.BaseTime,
	}}
}
