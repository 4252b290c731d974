package ch

import (
	"fmt"

	"github.com/azybler/chrouter/pkg/graph"
	"github.com/azybler/chrouter/pkg/heap"
)

// Config tunes node ordering and witness search.
type Config struct {
	EdgeDifferenceFactor      int
	OriginalEdgesFactor       int
	ContractedNeighborsFactor int

	// PeriodicUpdatesPercent sets the checkpoint interval as a share of the
	// node count. Every second checkpoint recomputes all priorities.
	// 0 disables full recomputation.
	PeriodicUpdatesPercent int

	// Witness search limits, 0 = unlimited. Any limit may add redundant
	// shortcuts but never drops a needed one.
	WitnessMaxSettled int
	WitnessMaxHops    int

	// Heap is "binary" or "bucketed".
	Heap string

	// Weighting is applied to road edges before contraction. Nil keeps the
	// weights already on the graph.
	Weighting graph.Weighting
}

// DefaultConfig returns the priority factors 2, 4, 1 with a full
// recomputation checkpoint every 10% of nodes.
func DefaultConfig() Config {
	return Config{
		EdgeDifferenceFactor:      2,
		OriginalEdgesFactor:       4,
		ContractedNeighborsFactor: 1,
		PeriodicUpdatesPercent:    10,
		Heap:                      "binary",
	}
}

func newHeap(kind string, capacity int) (heap.Heap, error) {
	switch kind {
	case "", "binary":
		return heap.NewBinHeap(capacity), nil
	case "bucketed":
		return heap.NewBucketedHeap(capacity), nil
	}
	return nil, fmt.Errorf("unknown heap %q", kind)
}
