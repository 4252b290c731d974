package graph

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line builds 0 - 1 - 2 - 3 with bidirectional unit edges.
func line(t *testing.T) *LeveledGraph {
	t.Helper()
	g := NewLeveledGraph(4, 3)
	for i := range 4 {
		g.AddNode(0, float64(i))
	}
	g.AddEdge(0, 1, 1, FlagBoth)
	g.AddEdge(1, 2, 1, FlagBoth)
	g.AddEdge(2, 3, 1, FlagBoth)
	return g
}

func adjOf(g *LeveledGraph, n int32, f EdgeFilter) []int32 {
	var out []int32
	for v := range g.EdgesOf(n, f) {
		out = append(out, v.Adj)
	}
	slices.Sort(out)
	return out
}

func TestAddEdgeSelfLoop(t *testing.T) {
	g := NewLeveledGraph(0, 0)
	assert.Equal(t, NoEdge, g.AddEdge(3, 3, 5, FlagBoth))
	assert.Zero(t, g.NumEdges())
}

func TestAddEdgeGrowsNodes(t *testing.T) {
	g := NewLeveledGraph(0, 0)
	id := g.AddEdge(0, 4, 5, FlagForward)
	require.NotEqual(t, NoEdge, id)
	assert.Equal(t, 5, g.NumNodes())
	assert.Equal(t, 1, g.Degree(0))
	assert.Equal(t, 1, g.Degree(4))
	assert.Equal(t, []int32{4}, adjOf(g, 0, OutEdges))
	assert.Empty(t, adjOf(g, 4, OutEdges))
	assert.Equal(t, []int32{0}, adjOf(g, 4, InEdges))
}

func TestSetLevel(t *testing.T) {
	g := line(t)

	require.NoError(t, g.SetLevel(1, 0), "zero on an uncontracted node is a no-op")
	assert.Zero(t, g.Level(1))

	require.NoError(t, g.SetLevel(1, 1))
	require.NoError(t, g.SetLevel(2, 3))
	assert.Equal(t, int32(3), g.MaxLevel())

	tests := []struct {
		name  string
		node  int32
		level int32
	}{
		{"already set", 1, 4},
		{"zero on a contracted node", 2, 0},
		{"not above previous", 0, 2},
		{"equal to previous", 0, 3},
		{"negative", 0, -1},
		{"out of range", 9, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.SetLevel(tt.node, tt.level)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGraphInvariant)
			var gie *GraphInvariantError
			require.ErrorAs(t, err, &gie)
			assert.Equal(t, tt.node, gie.Node)
		})
	}
	assert.Equal(t, int32(3), g.MaxLevel())
}

func TestAddShortcut(t *testing.T) {
	g := line(t)

	_, err := g.AddShortcut(0, 2, 2, 2, FlagBoth, 1, 2)
	assert.ErrorIs(t, err, ErrGraphInvariant, "skip node without level")

	require.NoError(t, g.SetLevel(1, 1))
	_, err = g.AddShortcut(0, 0, 2, 2, FlagBoth, 1, 2)
	assert.ErrorIs(t, err, ErrGraphInvariant, "self-loop")

	id, err := g.AddShortcut(0, 2, 2, 2, NewFlags(80, true, true), 1, 2)
	require.NoError(t, err)
	e := g.Edge(id)
	assert.True(t, e.IsShortcut())
	assert.Equal(t, FlagBoth, e.Flags, "speed bits are dropped on shortcuts")
	assert.Equal(t, int32(2), e.OriginalEdges)
	assert.Equal(t, 1, g.NumShortcuts())
	assert.Equal(t, 4, g.NumEdges())
	require.NoError(t, g.Validate())
}

func TestEdgeViewDirections(t *testing.T) {
	g := NewLeveledGraph(0, 0)
	id := g.AddEdge(0, 1, 7, FlagForward)

	var fromA, fromB EdgeView
	for v := range g.EdgesOf(0, AnyEdge) {
		fromA = v
	}
	for v := range g.EdgesOf(1, AnyEdge) {
		fromB = v
	}
	assert.Equal(t, EdgeView{ID: id, Base: 0, Adj: 1, Weight: 7, Distance: 7, Forward: true, SkipNode: NoNode, OriginalEdges: 1}, fromA)
	assert.Equal(t, EdgeView{ID: id, Base: 1, Adj: 0, Weight: 7, Distance: 7, Backward: true, SkipNode: NoNode, OriginalEdges: 1}, fromB)
}

func TestFilters(t *testing.T) {
	g := line(t)
	g.AddEdge(1, 3, 4, FlagForward)
	require.NoError(t, g.SetLevel(2, 1))
	require.NoError(t, g.SetLevel(0, 2))

	assert.Equal(t, []int32{0, 2, 3}, adjOf(g, 1, AnyEdge))
	assert.Equal(t, []int32{0, 2, 3}, adjOf(g, 1, OutEdges))
	assert.Equal(t, []int32{0, 2}, adjOf(g, 1, InEdges))
	assert.Equal(t, []int32{3}, adjOf(g, 1, WitnessFilter(2)), "contracted 0 and 2 are excluded")
	assert.Empty(t, adjOf(g, 1, WitnessFilter(3)))

	// Node 2 has level 1: only neighbours at level >= 1 are upward.
	assert.Empty(t, adjOf(g, 2, UpwardOut))
	// Node 1 is uncontracted (level 0) so every neighbour is upward.
	assert.Equal(t, []int32{0, 2, 3}, adjOf(g, 1, UpwardOut))
	assert.Equal(t, []int32{0, 2}, adjOf(g, 1, UpwardIn))
}

func TestEdgesOfStopsEarly(t *testing.T) {
	g := line(t)
	var n int
	for range g.EdgesOf(1, AnyEdge) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestPrepareEdges(t *testing.T) {
	g := NewLeveledGraph(0, 0)
	road := g.AddEdge(0, 1, 1000, NewFlags(100, true, true))
	slow := g.AddEdge(1, 2, 1000, NewFlags(0, true, false))

	g.PrepareEdges(FastestWeighting{})
	assert.InDelta(t, 36.0, g.Edge(road).Weight, 1e-9)
	assert.InDelta(t, 60.0, g.Edge(slow).Weight, 1e-9, "default speed")

	g.PrepareEdges(ShortestWeighting{})
	assert.Equal(t, 1000.0, g.Edge(road).Weight)
}

func TestCloneIsDeep(t *testing.T) {
	g := line(t)
	c := g.Clone()
	require.NoError(t, c.SetLevel(1, 1))
	_, err := c.AddShortcut(0, 2, 2, 2, FlagBoth, 1, 2)
	require.NoError(t, err)

	assert.Zero(t, g.Level(1))
	assert.Equal(t, 3, g.NumEdges())
	assert.Equal(t, 1, g.Degree(0))
	assert.Equal(t, 2, c.Degree(0))
}

func TestValidate(t *testing.T) {
	g := line(t)
	require.NoError(t, g.SetLevel(1, 1))
	require.NoError(t, g.SetLevel(0, 2))
	_, err := g.AddShortcut(0, 2, 2, 2, FlagBoth, 1, 2)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	bad := g.Clone()
	bad.level[2] = 2
	assert.ErrorIs(t, bad.Validate(), ErrGraphInvariant, "duplicate level")

	bad = g.Clone()
	bad.level[1] = 5
	bad.level[0] = 3
	assert.ErrorIs(t, bad.Validate(), ErrGraphInvariant, "skip node above an endpoint")
}

func TestFlags(t *testing.T) {
	f := NewFlags(80, true, false)
	assert.True(t, f.Forward())
	assert.False(t, f.Backward())
	assert.Equal(t, 80, f.Speed())

	r := f.Reverse()
	assert.False(t, r.Forward())
	assert.True(t, r.Backward())
	assert.Equal(t, 80, r.Speed())
	assert.Equal(t, f, r.Reverse())

	both := NewFlags(30, true, true)
	assert.Equal(t, both, both.Reverse())
	assert.Equal(t, FlagBoth, both.Directions())
}

func TestWeightingByName(t *testing.T) {
	w, err := WeightingByName("")
	require.NoError(t, err)
	assert.Equal(t, "fastest", w.Name())

	w, err = WeightingByName("shortest")
	require.NoError(t, err)
	assert.Equal(t, "shortest", w.Name())

	_, err = WeightingByName("scenic")
	assert.Error(t, err)
}
