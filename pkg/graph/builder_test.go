package graph

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	osmparser "github.com/azybler/chrouter/pkg/osm"
)

func TestBuildSimpleGraph(t *testing.T) {
	// A one-way triangle 100 -> 200 -> 300 -> 100.
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 100, ToNodeID: 200, Distance: 1000, SpeedKmh: 50, Forward: true},
			{FromNodeID: 200, ToNodeID: 300, Distance: 2000, SpeedKmh: 50, Forward: true},
			{FromNodeID: 300, ToNodeID: 100, Distance: 3000, SpeedKmh: 50, Forward: true},
		},
		NodeLat: map[osm.NodeID]float64{100: 1.0, 200: 1.1, 300: 1.0},
		NodeLon: map[osm.NodeID]float64{100: 103.0, 200: 103.0, 300: 103.1},
	}

	g := Build(result)
	require.Equal(t, 3, g.NumNodes())
	require.Equal(t, 3, g.NumEdges())

	var total float64
	for i := range int32(3) {
		assert.Len(t, adjOf(g, i, OutEdges), 1, "node %d", i)
	}
	for _, e := range g.AllEdges() {
		total += e.Distance
		assert.Equal(t, 50, e.Flags.Speed())
	}
	assert.Equal(t, 6000.0, total)

	lat, lon := g.Coord(1)
	assert.Equal(t, 1.1, lat)
	assert.Equal(t, 103.0, lon)
}

func TestBuildEmptyGraph(t *testing.T) {
	g := Build(&osmparser.ParseResult{})
	assert.Zero(t, g.NumNodes())
	assert.Zero(t, g.NumEdges())
}

func TestBuildMergesReversePairs(t *testing.T) {
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 1, ToNodeID: 2, Distance: 500, SpeedKmh: 30, Forward: true},
			{FromNodeID: 2, ToNodeID: 1, Distance: 500, SpeedKmh: 30, Forward: true},
			// Different speed: kept as a separate one-way edge.
			{FromNodeID: 2, ToNodeID: 3, Distance: 500, SpeedKmh: 30, Forward: true},
			{FromNodeID: 3, ToNodeID: 2, Distance: 500, SpeedKmh: 60, Forward: true},
		},
		NodeLat: map[osm.NodeID]float64{1: 1.0, 2: 1.1, 3: 1.2},
		NodeLon: map[osm.NodeID]float64{1: 103.0, 2: 103.1, 3: 103.2},
	}

	g := Build(result)
	require.Equal(t, 3, g.NumEdges())
	assert.True(t, g.Edge(0).Flags.Both())
	assert.False(t, g.Edge(1).Flags.Both())
	assert.False(t, g.Edge(2).Flags.Both())
}

func TestBuildNormalizesBackwardOnly(t *testing.T) {
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 1, ToNodeID: 2, Distance: 10, SpeedKmh: 40, Backward: true},
			{FromNodeID: 2, ToNodeID: 3, Distance: 10, SpeedKmh: 40, Forward: true, Backward: true},
			{FromNodeID: 3, ToNodeID: 3, Distance: 10, SpeedKmh: 40, Forward: true, Backward: true},
		},
		NodeLat: map[osm.NodeID]float64{1: 0, 2: 0, 3: 0},
		NodeLon: map[osm.NodeID]float64{1: 0, 2: 0, 3: 0},
	}

	g := Build(result)
	require.Equal(t, 2, g.NumEdges(), "self-loop dropped")
	e := g.Edge(0)
	assert.Equal(t, int32(1), e.From, "stored along its travel direction")
	assert.Equal(t, int32(0), e.To)
	assert.True(t, e.Flags.Forward())
	assert.False(t, e.Flags.Backward())
	assert.True(t, g.Edge(1).Flags.Both())
}
