package graph

import (
	"fmt"
	"iter"
)

// EdgeID indexes the edge arena of a LeveledGraph.
type EdgeID int32

const (
	NoNode int32  = -1
	NoEdge EdgeID = -1
)

// Edge is one record of the edge arena. A bidirectional road is a single
// record with both direction flags set.
type Edge struct {
	From, To      int32
	Distance      float64 // meters, summed for shortcuts
	Weight        float64 // cost used by contraction and queries
	Flags         Flags
	SkipNode      int32 // contracted node a shortcut bypasses, NoNode for roads
	OriginalEdges int32 // number of road edges represented
}

// IsShortcut reports whether the edge was created by contraction.
func (e *Edge) IsShortcut() bool { return e.SkipNode != NoNode }

// EdgeView is an edge seen from one of its endpoints.
type EdgeView struct {
	ID            EdgeID
	Base, Adj     int32
	Weight        float64
	Distance      float64
	Forward       bool // traversable Base -> Adj
	Backward      bool // traversable Adj -> Base
	SkipNode      int32
	OriginalEdges int32
}

func (v EdgeView) IsShortcut() bool { return v.SkipNode != NoNode }

// LeveledGraph is a mutable road graph annotated with contraction levels
// and shortcut edges. Level 0 means the node has not been contracted.
type LeveledGraph struct {
	lat, lon  []float64
	level     []int32
	adj       [][]EdgeID
	edges     []Edge
	maxLevel  int32
	shortcuts int
}

// NewLeveledGraph creates an empty graph with capacity hints.
func NewLeveledGraph(nodes, edges int) *LeveledGraph {
	return &LeveledGraph{
		lat:   make([]float64, 0, nodes),
		lon:   make([]float64, 0, nodes),
		level: make([]int32, 0, nodes),
		adj:   make([][]EdgeID, 0, nodes),
		edges: make([]Edge, 0, edges),
	}
}

// AddNode appends a node and returns its id.
func (g *LeveledGraph) AddNode(lat, lon float64) int32 {
	g.lat = append(g.lat, lat)
	g.lon = append(g.lon, lon)
	g.level = append(g.level, 0)
	g.adj = append(g.adj, nil)
	return int32(len(g.lat) - 1)
}

// EnsureNodes grows the graph to hold at least n nodes at (0, 0).
func (g *LeveledGraph) EnsureNodes(n int) {
	for len(g.lat) < n {
		g.AddNode(0, 0)
	}
}

func (g *LeveledGraph) NumNodes() int     { return len(g.lat) }
func (g *LeveledGraph) NumEdges() int     { return len(g.edges) }
func (g *LeveledGraph) NumShortcuts() int { return g.shortcuts }
func (g *LeveledGraph) MaxLevel() int32   { return g.maxLevel }

// Coord returns the coordinates of node n.
func (g *LeveledGraph) Coord(n int32) (lat, lon float64) {
	return g.lat[n], g.lon[n]
}

// AddEdge inserts a road edge between a and b. The weight starts out equal
// to the distance until PrepareEdges applies a weighting. Self-loops are
// dropped and return NoEdge.
func (g *LeveledGraph) AddEdge(a, b int32, distance float64, flags Flags) EdgeID {
	if a == b {
		return NoEdge
	}
	g.EnsureNodes(int(max(a, b)) + 1)
	return g.add(Edge{
		From:          a,
		To:            b,
		Distance:      distance,
		Weight:        distance,
		Flags:         flags,
		SkipNode:      NoNode,
		OriginalEdges: 1,
	})
}

// AddShortcut inserts a shortcut a -> b bypassing skip. The skip node must
// already carry a level.
func (g *LeveledGraph) AddShortcut(a, b int32, weight, distance float64, flags Flags, skip, originalEdges int32) (EdgeID, error) {
	if skip < 0 || int(skip) >= len(g.level) {
		return NoEdge, &GraphInvariantError{Node: skip, Level: -1, Reason: "shortcut skip node out of range"}
	}
	if g.level[skip] == 0 {
		return NoEdge, &GraphInvariantError{Node: skip, Level: 0, Reason: "shortcut skip node has no level"}
	}
	if a == b {
		return NoEdge, &GraphInvariantError{Node: a, Level: g.level[a], Reason: "shortcut is a self-loop"}
	}
	id := g.add(Edge{
		From:          a,
		To:            b,
		Weight:        weight,
		Distance:      distance,
		Flags:         flags.Directions(),
		SkipNode:      skip,
		OriginalEdges: originalEdges,
	})
	g.shortcuts++
	return id, nil
}

func (g *LeveledGraph) add(e Edge) EdgeID {
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, e)
	g.adj[e.From] = append(g.adj[e.From], id)
	g.adj[e.To] = append(g.adj[e.To], id)
	return id
}

// Edge returns a copy of the edge record.
func (g *LeveledGraph) Edge(id EdgeID) Edge { return g.edges[id] }

// Reroute points a shortcut at a new skip node after its weight was lowered.
func (g *LeveledGraph) Reroute(id EdgeID, weight, distance float64, skip, originalEdges int32) {
	e := &g.edges[id]
	e.Weight = weight
	e.Distance = distance
	e.SkipNode = skip
	e.OriginalEdges = originalEdges
}

// Level returns the contraction level of n (0 = uncontracted).
func (g *LeveledGraph) Level(n int32) int32 { return g.level[n] }

// SetLevel assigns the contraction level of n. A level is assigned once and
// must exceed every level assigned before it. Setting 0 on an uncontracted
// node is a no-op.
func (g *LeveledGraph) SetLevel(n, level int32) error {
	if n < 0 || int(n) >= len(g.level) {
		return &GraphInvariantError{Node: n, Level: level, Reason: "node out of range"}
	}
	if g.level[n] != 0 {
		return &GraphInvariantError{Node: n, Level: level,
			Reason: fmt.Sprintf("level already set to %d", g.level[n])}
	}
	if level < 0 {
		return &GraphInvariantError{Node: n, Level: level, Reason: "negative level"}
	}
	if level == 0 {
		return nil
	}
	if level <= g.maxLevel {
		return &GraphInvariantError{Node: n, Level: level,
			Reason: fmt.Sprintf("level not above previous level %d", g.maxLevel)}
	}
	g.level[n] = level
	g.maxLevel = level
	return nil
}

func (g *LeveledGraph) view(base int32, id EdgeID) EdgeView {
	e := &g.edges[id]
	v := EdgeView{
		ID:            id,
		Base:          base,
		Weight:        e.Weight,
		Distance:      e.Distance,
		SkipNode:      e.SkipNode,
		OriginalEdges: e.OriginalEdges,
	}
	if e.From == base {
		v.Adj = e.To
		v.Forward, v.Backward = e.Flags.Forward(), e.Flags.Backward()
	} else {
		v.Adj = e.From
		v.Forward, v.Backward = e.Flags.Backward(), e.Flags.Forward()
	}
	return v
}

// EdgesOf yields the edges touching node that pass filter.
func (g *LeveledGraph) EdgesOf(node int32, filter EdgeFilter) iter.Seq[EdgeView] {
	return func(yield func(EdgeView) bool) {
		for _, id := range g.adj[node] {
			v := g.view(node, id)
			if !filter.Accept(g, v) {
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Degree counts the edges touching node, a bidirectional edge once.
func (g *LeveledGraph) Degree(node int32) int { return len(g.adj[node]) }

// AllEdges yields every edge record with its id.
func (g *LeveledGraph) AllEdges() iter.Seq2[EdgeID, Edge] {
	return func(yield func(EdgeID, Edge) bool) {
		for i := range g.edges {
			if !yield(EdgeID(i), g.edges[i]) {
				return
			}
		}
	}
}

// PrepareEdges applies w to every road edge and resets its original edge
// count. After this only Weight is used for routing.
func (g *LeveledGraph) PrepareEdges(w Weighting) {
	for i := range g.edges {
		e := &g.edges[i]
		if e.IsShortcut() {
			continue
		}
		e.Weight = w.Weight(e.Distance, e.Flags)
		e.OriginalEdges = 1
	}
}

// Clone returns a deep copy.
func (g *LeveledGraph) Clone() *LeveledGraph {
	c := &LeveledGraph{
		lat:       append([]float64(nil), g.lat...),
		lon:       append([]float64(nil), g.lon...),
		level:     append([]int32(nil), g.level...),
		edges:     append([]Edge(nil), g.edges...),
		adj:       make([][]EdgeID, len(g.adj)),
		maxLevel:  g.maxLevel,
		shortcuts: g.shortcuts,
	}
	for i, a := range g.adj {
		c.adj[i] = append([]EdgeID(nil), a...)
	}
	return c
}

// Validate checks that every shortcut bypasses a contracted node with a
// level below both endpoints and that levels are unique.
func (g *LeveledGraph) Validate() error {
	seen := make(map[int32]int32)
	for n, l := range g.level {
		if l < 0 {
			return &GraphInvariantError{Node: int32(n), Level: l, Reason: "negative level"}
		}
		if l == 0 {
			continue
		}
		if other, ok := seen[l]; ok {
			return &GraphInvariantError{Node: int32(n), Level: l,
				Reason: fmt.Sprintf("level shared with node %d", other)}
		}
		seen[l] = int32(n)
	}
	for i := range g.edges {
		e := &g.edges[i]
		if e.From < 0 || int(e.From) >= len(g.level) || e.To < 0 || int(e.To) >= len(g.level) {
			return &GraphInvariantError{Node: e.From, Level: -1, Reason: fmt.Sprintf("edge %d endpoint out of range", i)}
		}
		if !e.IsShortcut() {
			continue
		}
		if e.SkipNode < 0 || int(e.SkipNode) >= len(g.level) {
			return &GraphInvariantError{Node: e.SkipNode, Level: -1, Reason: fmt.Sprintf("edge %d skip node out of range", i)}
		}
		sl := g.level[e.SkipNode]
		if sl == 0 {
			return &GraphInvariantError{Node: e.SkipNode, Level: 0, Reason: fmt.Sprintf("edge %d skips an uncontracted node", i)}
		}
		if fl, tl := g.level[e.From], g.level[e.To]; (fl != 0 && fl <= sl) || (tl != 0 && tl <= sl) {
			return &GraphInvariantError{Node: e.SkipNode, Level: sl, Reason: fmt.Sprintf("edge %d skips a node above its endpoints", i)}
		}
	}
	return nil
}
