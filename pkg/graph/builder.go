package graph

import (
	"github.com/paulmach/osm"

	osmparser "github.com/azybler/chrouter/pkg/osm"
)

// Build creates a LeveledGraph from parsed way segments. Node ids are
// assigned in order of first appearance. Two one-way segments that are
// exact reverses of each other collapse into one bidirectional edge.
func Build(result *osmparser.ParseResult) *LeveledGraph {
	edges := result.Edges
	g := NewLeveledGraph(0, len(edges))
	if len(edges) == 0 {
		return g
	}

	nodeSet := make(map[osm.NodeID]int32)
	addNode := func(id osm.NodeID) int32 {
		if idx, ok := nodeSet[id]; ok {
			return idx
		}
		idx := g.AddNode(result.NodeLat[id], result.NodeLon[id])
		nodeSet[id] = idx
		return idx
	}

	type pairKey struct{ a, b int32 }
	oneway := make(map[pairKey]EdgeID)

	for _, e := range edges {
		if !e.Forward && !e.Backward {
			continue
		}
		a, b := addNode(e.FromNodeID), addNode(e.ToNodeID)
		flags := NewFlags(e.SpeedKmh, e.Forward, e.Backward)

		if !flags.Both() {
			// Normalize so the stored edge always points along its travel direction.
			if !e.Forward {
				a, b = b, a
				flags = flags.Reverse()
			}
			if id, ok := oneway[pairKey{b, a}]; ok {
				prev := &g.edges[id]
				if prev.Distance == e.Distance && prev.Flags.Speed() == flags.Speed() {
					prev.Flags |= FlagBackward
					delete(oneway, pairKey{b, a})
					continue
				}
			}
			if id := g.AddEdge(a, b, e.Distance, flags); id != NoEdge {
				oneway[pairKey{a, b}] = id
			}
			continue
		}
		g.AddEdge(a, b, e.Distance, flags)
	}
	return g
}
