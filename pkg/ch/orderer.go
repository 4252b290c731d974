package ch

import (
	"go.uber.org/zap"

	"github.com/azybler/chrouter/pkg/graph"
	"github.com/azybler/chrouter/pkg/heap"
)

// Orderer decides the contraction order. It keeps one priority per
// uncontracted node in a heap with lazy duplicate entries: an entry is
// live only while its key equals the node's current priority.
type Orderer struct {
	g   *graph.LeveledGraph
	ws  *WitnessSearch
	cfg Config
	log *zap.Logger

	heap     heap.Heap
	priority []int

	updateSize  int
	polls       int
	checkpoints int
	lastCheck   int

	periodicUpdates int
	lazyReinserts   int
	shortcuts       int
}

// NewOrderer computes the initial priority of every node.
func NewOrderer(g *graph.LeveledGraph, ws *WitnessSearch, cfg Config, log *zap.Logger) (*Orderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	n := g.NumNodes()
	h, err := newHeap(cfg.Heap, n)
	if err != nil {
		return nil, err
	}
	o := &Orderer{
		g:         g,
		ws:        ws,
		cfg:       cfg,
		log:       log,
		heap:      h,
		priority:  make([]int, n),
		lastCheck: -1,
	}
	if cfg.PeriodicUpdatesPercent > 0 {
		o.updateSize = max(10, n*cfg.PeriodicUpdatesPercent/100)
	}
	for node := range int32(n) {
		if g.Level(node) != 0 {
			continue
		}
		p := o.Priority(node)
		o.priority[node] = p
		o.heap.Insert(float64(p), node)
	}
	return o, nil
}

// Priority scores node as if it were contracted next. Lower is contracted
// sooner.
func (o *Orderer) Priority(node int32) int {
	shortcuts := o.ws.FindShortcuts(node)
	edgeDifference := len(shortcuts) - o.g.Degree(node)

	originalEdges := 0
	for i := range shortcuts {
		originalEdges += int(shortcuts[i].OriginalEdges)
	}

	contractedNeighbors := 0
	for v := range o.g.EdgesOf(node, graph.AnyEdge) {
		if o.g.Level(v.Adj) > 0 {
			contractedNeighbors++
		}
	}

	return o.cfg.EdgeDifferenceFactor*edgeDifference +
		o.cfg.OriginalEdgesFactor*originalEdges +
		o.cfg.ContractedNeighborsFactor*contractedNeighbors
}

// Remaining returns the number of heap entries, including stale ones.
func (o *Orderer) Remaining() int { return o.heap.Len() }

func (o *Orderer) live(key float64, node int32) bool {
	return o.g.Level(node) == 0 && key == float64(o.priority[node])
}

// purge drops stale entries from the top of the heap.
func (o *Orderer) purge() {
	for !o.heap.IsEmpty() {
		key, node, _ := o.heap.Peek()
		if o.live(key, node) {
			return
		}
		o.heap.Poll()
	}
}

// Next returns the node to contract next, or false when every node has
// a level. A polled node whose recomputed priority exceeds the new heap
// minimum goes back into the heap.
func (o *Orderer) Next() (int32, bool) {
	for {
		o.checkpoint()

		o.purge()
		if o.heap.IsEmpty() {
			return graph.NoNode, false
		}
		node, _ := o.heap.Poll()
		o.polls++

		p := o.Priority(node)
		o.priority[node] = p
		o.purge()
		if !o.heap.IsEmpty() && float64(p) > o.heap.MinKey() {
			o.heap.Insert(float64(p), node)
			o.lazyReinserts++
			continue
		}
		return node, true
	}
}

// Contracted refreshes the priorities of node's uncontracted neighbours
// after node was contracted with added shortcuts.
func (o *Orderer) Contracted(node int32, added int) {
	o.shortcuts += added
	for v := range o.g.EdgesOf(node, graph.AnyEdge) {
		o.update(v.Adj)
	}
}

func (o *Orderer) update(node int32) {
	if o.g.Level(node) != 0 {
		return
	}
	if p := o.Priority(node); p != o.priority[node] {
		o.priority[node] = p
		o.heap.Insert(float64(p), node)
	}
}

// checkpoint runs every updateSize polls. Every second checkpoint after
// the first recomputes all uncontracted priorities.
func (o *Orderer) checkpoint() {
	if o.updateSize == 0 || o.polls%o.updateSize != 0 || o.polls == o.lastCheck {
		return
	}
	o.lastCheck = o.polls
	if o.checkpoints > 0 && o.checkpoints%2 == 0 {
		for node := range int32(o.g.NumNodes()) {
			o.update(node)
		}
		o.periodicUpdates++
	}
	o.checkpoints++
	o.log.Info("contraction progress",
		zap.Int("polls", o.polls),
		zap.Int("heap", o.Remaining()),
		zap.Int("shortcuts", o.shortcuts),
		zap.Int("checkpoint", o.checkpoints),
	)
}
