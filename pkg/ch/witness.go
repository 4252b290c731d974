package ch

import (
	"math"

	"github.com/azybler/chrouter/pkg/graph"
	"github.com/azybler/chrouter/pkg/heap"
)

// Shortcut is a candidate edge produced by contracting one node.
type Shortcut struct {
	From, To      int32
	Weight        float64
	Distance      float64
	OriginalEdges int32
	Flags         graph.Flags // FlagForward, or FlagBoth when To -> From has the same weight

	// Update marks a shortcut that lowers an existing shortcut edge
	// (Existing) instead of inserting a new one.
	Update   bool
	Existing graph.EdgeID
}

// neighbor is the cheapest edge between the contracted node and one
// uncontracted neighbour in one direction.
type neighbor struct {
	node          int32
	weight        float64
	distance      float64
	originalEdges int32
}

// WitnessSearch finds the shortcuts needed to contract a node. It owns
// reusable per-node arrays and is not safe for concurrent use.
type WitnessSearch struct {
	g          *graph.LeveledGraph
	maxSettled int
	maxHops    int

	heap    *heap.BinHeap
	dist    []float64
	hops    []int32
	settled []bool
	goal    []bool
	touched []int32

	in, out  []neighbor
	index    map[[2]int32]int
	shortcut []Shortcut
}

// NewWitnessSearch creates a search over g with the given limits.
func NewWitnessSearch(g *graph.LeveledGraph, maxSettled, maxHops int) *WitnessSearch {
	n := g.NumNodes()
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	return &WitnessSearch{
		g:          g,
		maxSettled: maxSettled,
		maxHops:    maxHops,
		heap:       heap.NewBinHeap(64),
		dist:       dist,
		hops:       make([]int32, n),
		settled:    make([]bool, n),
		goal:       make([]bool, n),
		index:      make(map[[2]int32]int),
	}
}

func (ws *WitnessSearch) reset() {
	for _, n := range ws.touched {
		ws.dist[n] = math.Inf(1)
		ws.hops[n] = 0
		ws.settled[n] = false
	}
	ws.touched = ws.touched[:0]
	ws.heap.Clear()
}

// neighbors collects the cheapest edge to every uncontracted neighbour of
// node in one direction, in adjacency order.
func (ws *WitnessSearch) neighbors(dst []neighbor, node int32, filter graph.EdgeFilter) []neighbor {
	dst = dst[:0]
	for v := range ws.g.EdgesOf(node, filter) {
		if v.Adj == node || ws.g.Level(v.Adj) != 0 {
			continue
		}
		found := false
		for i := range dst {
			if dst[i].node != v.Adj {
				continue
			}
			found = true
			if v.Weight < dst[i].weight {
				dst[i] = neighbor{v.Adj, v.Weight, v.Distance, v.OriginalEdges}
			}
			break
		}
		if !found {
			dst = append(dst, neighbor{v.Adj, v.Weight, v.Distance, v.OriginalEdges})
		}
	}
	return dst
}

// FindShortcuts returns the shortcuts contracting node would add, without
// mutating the graph. The returned slice is reused by the next call.
func (ws *WitnessSearch) FindShortcuts(node int32) []Shortcut {
	ws.shortcut = ws.shortcut[:0]
	clear(ws.index)

	ws.in = ws.neighbors(ws.in, node, graph.InEdges)
	ws.out = ws.neighbors(ws.out, node, graph.OutEdges)
	if len(ws.in) == 0 || len(ws.out) == 0 {
		return ws.shortcut
	}

	for _, u := range ws.in {
		limit, goals := 0.0, 0
		for _, v := range ws.out {
			if v.node == u.node {
				continue
			}
			limit = max(limit, u.weight+v.weight)
			ws.goal[v.node] = true
			goals++
		}
		if goals == 0 {
			continue
		}

		ws.search(u.node, node, limit, goals)

		for _, v := range ws.out {
			if v.node == u.node {
				continue
			}
			ws.goal[v.node] = false
			w := u.weight + v.weight
			if math.IsInf(w, 0) || math.IsNaN(w) {
				continue
			}
			if ws.dist[v.node] <= w {
				// witness
				continue
			}
			ws.add(Shortcut{
				From:          u.node,
				To:            v.node,
				Weight:        w,
				Distance:      u.distance + v.distance,
				OriginalEdges: u.originalEdges + v.originalEdges,
				Flags:         graph.FlagForward,
				Existing:      graph.NoEdge,
			})
		}
	}

	for i := range ws.shortcut {
		ws.markUpdate(&ws.shortcut[i])
	}
	return ws.shortcut
}

// add records sc, merging it into an equal reverse entry or keeping the
// lower weight for a repeated pair.
func (ws *WitnessSearch) add(sc Shortcut) {
	if i, ok := ws.index[[2]int32{sc.To, sc.From}]; ok {
		rev := &ws.shortcut[i]
		if rev.Weight == sc.Weight && rev.Distance == sc.Distance {
			rev.Flags = graph.FlagBoth
			return
		}
	}
	if i, ok := ws.index[[2]int32{sc.From, sc.To}]; ok {
		if sc.Weight < ws.shortcut[i].Weight {
			sc.Flags = ws.shortcut[i].Flags
			ws.shortcut[i] = sc
		}
		return
	}
	ws.index[[2]int32{sc.From, sc.To}] = len(ws.shortcut)
	ws.shortcut = append(ws.shortcut, sc)
}

// markUpdate looks for an existing shortcut edge with the same endpoints
// and direction flags that sc would improve.
func (ws *WitnessSearch) markUpdate(sc *Shortcut) {
	for v := range ws.g.EdgesOf(sc.From, graph.AnyEdge) {
		if v.Adj != sc.To || !v.IsShortcut() {
			continue
		}
		if v.Forward != sc.Flags.Forward() || v.Backward != sc.Flags.Backward() {
			continue
		}
		if v.Weight > sc.Weight {
			sc.Update = true
			sc.Existing = v.ID
			return
		}
	}
}

// search runs a one-to-many Dijkstra from source over uncontracted nodes
// other than skip. It stops once the polled weight exceeds limit or all
// goals are settled; ws.dist then holds upper bounds for reached nodes.
func (ws *WitnessSearch) search(source, skip int32, limit float64, goals int) {
	ws.reset()
	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.heap.Insert(0, source)

	filter := graph.WitnessFilter(skip)
	settled := 0
	for !ws.heap.IsEmpty() {
		d, n, _ := ws.heap.PollEntry()
		if d > limit {
			return
		}
		ws.settled[n] = true
		settled++
		if ws.goal[n] {
			if goals--; goals == 0 {
				return
			}
		}
		if ws.maxSettled > 0 && settled >= ws.maxSettled {
			return
		}
		if ws.maxHops > 0 && int(ws.hops[n]) >= ws.maxHops {
			continue
		}

		for v := range ws.g.EdgesOf(n, filter) {
			if ws.settled[v.Adj] {
				continue
			}
			nd := d + v.Weight
			if nd > limit || nd >= ws.dist[v.Adj] {
				continue
			}
			if math.IsInf(ws.dist[v.Adj], 1) {
				ws.touched = append(ws.touched, v.Adj)
				ws.heap.Insert(nd, v.Adj)
			} else {
				ws.heap.Update(nd, v.Adj)
			}
			ws.dist[v.Adj] = nd
			ws.hops[v.Adj] = ws.hops[n] + 1
		}
	}
}
