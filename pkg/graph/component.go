package graph

import "github.com/RoaringBitmap/roaring/v2"

// UnionFind implements a disjoint-set data structure with path halving
// and union by rank.
type UnionFind struct {
	parent []int32
	rank   []byte
	size   []int32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int32, n)
	size := make([]int32, n)
	for i := range parent {
		parent[i] = int32(i)
		size[i] = 1
	}
	return &UnionFind{parent: parent, rank: make([]byte, n), size: size}
}

// Find returns the representative of the set containing x.
func (uf *UnionFind) Find(x int32) int32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y int32) bool {
	rx, ry := uf.Find(x), uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in x's set.
func (uf *UnionFind) Size(x int32) int { return int(uf.size[uf.Find(x)]) }

// LargestComponent returns the nodes of the largest weakly connected
// component. Ties go to the component containing the lowest node id.
func LargestComponent(g *LeveledGraph) *roaring.Bitmap {
	nodes := roaring.New()
	n := g.NumNodes()
	if n == 0 {
		return nodes
	}

	uf := NewUnionFind(n)
	for _, e := range g.AllEdges() {
		uf.Union(e.From, e.To)
	}

	best, bestSize := int32(0), 0
	for i := range int32(n) {
		if s := uf.Size(i); s > bestSize {
			best, bestSize = uf.Find(i), s
		}
	}
	for i := range int32(n) {
		if uf.Find(i) == best {
			nodes.Add(uint32(i))
		}
	}
	return nodes
}

// FilterToComponent returns a new uncontracted graph holding only the road
// edges whose endpoints are both in nodes. Node ids are renumbered densely
// in ascending order of their old id.
func FilterToComponent(g *LeveledGraph, nodes *roaring.Bitmap) *LeveledGraph {
	out := NewLeveledGraph(int(nodes.GetCardinality()), g.NumEdges())
	it := nodes.Iterator()
	for it.HasNext() {
		old := int32(it.Next())
		out.AddNode(g.lat[old], g.lon[old])
	}
	for _, e := range g.AllEdges() {
		if e.IsShortcut() || !nodes.Contains(uint32(e.From)) || !nodes.Contains(uint32(e.To)) {
			continue
		}
		// Rank counts members <= x, so the new id is Rank-1.
		a := int32(nodes.Rank(uint32(e.From)) - 1)
		b := int32(nodes.Rank(uint32(e.To)) - 1)
		id := out.AddEdge(a, b, e.Distance, e.Flags)
		if id != NoEdge {
			out.edges[id].Weight = e.Weight
		}
	}
	return out
}
