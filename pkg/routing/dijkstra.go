package routing

import (
	"fmt"
	"math"

	"github.com/azybler/chrouter/pkg/graph"
	"github.com/azybler/chrouter/pkg/heap"
)

// Dijkstra is a plain one-to-one search over road edges. Shortcuts and
// levels are ignored, so it answers the same question as Query on the
// uncontracted graph. Used to verify contraction results.
type Dijkstra struct {
	g          *graph.LeveledGraph
	heap       *heap.BinHeap
	dist       []float64
	parentEdge []graph.EdgeID
	touched    []int32
}

// NewDijkstra creates a reusable search. It is not safe for concurrent use.
func NewDijkstra(g *graph.LeveledGraph) *Dijkstra {
	n := g.NumNodes()
	d := &Dijkstra{
		g:          g,
		heap:       heap.NewBinHeap(256),
		dist:       make([]float64, n),
		parentEdge: make([]graph.EdgeID, n),
	}
	for i := range d.dist {
		d.dist[i] = math.Inf(1)
		d.parentEdge[i] = graph.NoEdge
	}
	return d
}

func (d *Dijkstra) reset() {
	for _, n := range d.touched {
		d.dist[n] = math.Inf(1)
		d.parentEdge[n] = graph.NoEdge
	}
	d.touched = d.touched[:0]
	d.heap.Clear()
}

// CalcPath returns the shortest road path from source to target.
func (d *Dijkstra) CalcPath(source, target int32) (*Path, error) {
	n := int32(d.g.NumNodes())
	if source < 0 || source >= n || target < 0 || target >= n {
		return nil, fmt.Errorf("%d -> %d: %w", source, target, ErrNodeOutOfRange)
	}
	defer d.reset()

	d.dist[source] = 0
	d.touched = append(d.touched, source)
	d.heap.Insert(0, source)

	visited := 0
	for !d.heap.IsEmpty() {
		du, u, _ := d.heap.PollEntry()
		if du > d.dist[u] {
			continue
		}
		visited++
		if u == target {
			break
		}
		for v := range d.g.EdgesOf(u, graph.OutEdges) {
			if v.IsShortcut() {
				continue
			}
			nd := du + v.Weight
			if nd >= d.dist[v.Adj] {
				continue
			}
			if math.IsInf(d.dist[v.Adj], 1) {
				d.touched = append(d.touched, v.Adj)
			}
			d.dist[v.Adj] = nd
			d.parentEdge[v.Adj] = v.ID
			d.heap.Insert(nd, v.Adj)
		}
	}

	if math.IsInf(d.dist[target], 1) {
		return nil, ErrNoPathFound
	}

	path := &Path{Weight: d.dist[target], Visited: visited}
	for n := target; n != source; {
		id := d.parentEdge[n]
		e := d.g.Edge(id)
		path.Edges = append(path.Edges, id)
		path.Nodes = append(path.Nodes, n)
		path.Distance += e.Distance
		if e.To == n {
			n = e.From
		} else {
			n = e.To
		}
	}
	path.Nodes = append(path.Nodes, source)
	reverse(path.Nodes)
	reverse(path.Edges)
	return path, nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
