package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/azybler/chrouter/pkg/graph"
	"github.com/azybler/chrouter/pkg/heap"
)

var (
	// ErrNoPathFound is returned when the two searches never meet.
	ErrNoPathFound = errors.New("no path found")
	// ErrSearchBudgetExceeded is returned when a query settles more nodes
	// than its budget allows.
	ErrSearchBudgetExceeded = errors.New("search budget exceeded")
	// ErrNodeOutOfRange is returned for node ids the graph does not have.
	ErrNodeOutOfRange = errors.New("node out of range")
)

// Path is an unpacked route over road edges.
type Path struct {
	Weight   float64
	Distance float64 // meters
	Nodes    []int32
	Edges    []graph.EdgeID
	Visited  int // nodes settled by both searches
}

// side is one direction of the bidirectional search.
type side struct {
	heap       *heap.BinHeap
	dist       []float64
	parentEdge []graph.EdgeID
	parentNode []int32
	touched    []int32
	filter     graph.EdgeFilter
}

func newSide(n int, filter graph.EdgeFilter) side {
	s := side{
		heap:       heap.NewBinHeap(256),
		dist:       make([]float64, n),
		parentEdge: make([]graph.EdgeID, n),
		parentNode: make([]int32, n),
		touched:    make([]int32, 0, 256),
		filter:     filter,
	}
	for i := range s.dist {
		s.dist[i] = math.Inf(1)
		s.parentEdge[i] = graph.NoEdge
		s.parentNode[i] = graph.NoNode
	}
	return s
}

func (s *side) reset() {
	for _, n := range s.touched {
		s.dist[n] = math.Inf(1)
		s.parentEdge[n] = graph.NoEdge
		s.parentNode[n] = graph.NoNode
	}
	s.touched = s.touched[:0]
	s.heap.Clear()
}

func (s *side) label(node int32, d float64, via graph.EdgeID, from int32) {
	if math.IsInf(s.dist[node], 1) {
		s.touched = append(s.touched, node)
	}
	s.dist[node] = d
	s.parentEdge[node] = via
	s.parentNode[node] = from
	s.heap.Insert(d, node)
}

// done reports whether this side can no longer improve on best.
func (s *side) done(best float64) bool {
	return s.heap.IsEmpty() || s.heap.MinKey() >= best
}

type queryState struct {
	fwd, bwd side
	stack    []hop
}

// Query answers shortest-path requests on a contracted graph. It is safe
// for concurrent use as long as the graph is not modified.
type Query struct {
	g    *graph.LeveledGraph
	pool sync.Pool
}

// NewQuery creates a query over g. Every node of g must carry a level.
func NewQuery(g *graph.LeveledGraph) *Query {
	q := &Query{g: g}
	n := g.NumNodes()
	q.pool.New = func() any {
		return &queryState{
			fwd: newSide(n, graph.UpwardOut),
			bwd: newSide(n, graph.UpwardIn),
		}
	}
	return q
}

// CalcPath finds the lowest-weight path from source to target. A positive
// maxVisitedNodes bounds the number of settled nodes.
func (q *Query) CalcPath(source, target int32, maxVisitedNodes int) (*Path, error) {
	return q.CalcPathContext(context.Background(), source, target, maxVisitedNodes)
}

// CalcPathContext is CalcPath with cancellation.
func (q *Query) CalcPathContext(ctx context.Context, source, target int32, maxVisitedNodes int) (*Path, error) {
	n := int32(q.g.NumNodes())
	if source < 0 || source >= n {
		return nil, fmt.Errorf("source %d: %w", source, ErrNodeOutOfRange)
	}
	if target < 0 || target >= n {
		return nil, fmt.Errorf("target %d: %w", target, ErrNodeOutOfRange)
	}
	if source == target {
		return &Path{Nodes: []int32{source}}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qs := q.pool.Get().(*queryState)
	defer func() {
		qs.fwd.reset()
		qs.bwd.reset()
		qs.stack = qs.stack[:0]
		q.pool.Put(qs)
	}()

	qs.fwd.label(source, 0, graph.NoEdge, graph.NoNode)
	qs.bwd.label(target, 0, graph.NoEdge, graph.NoNode)

	best, meet := math.Inf(1), graph.NoNode
	visited := 0
	for {
		fwdDone, bwdDone := qs.fwd.done(best), qs.bwd.done(best)
		if fwdDone && bwdDone {
			break
		}

		cur, other := &qs.fwd, &qs.bwd
		if fwdDone || (!bwdDone && qs.bwd.heap.MinKey() < qs.fwd.heap.MinKey()) {
			cur, other = &qs.bwd, &qs.fwd
		}

		d, u, _ := cur.heap.PollEntry()
		if d > cur.dist[u] {
			continue // stale
		}
		visited++
		if maxVisitedNodes > 0 && visited > maxVisitedNodes {
			return nil, fmt.Errorf("%d nodes settled: %w", visited, ErrSearchBudgetExceeded)
		}
		if visited%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		for v := range q.g.EdgesOf(u, cur.filter) {
			nd := d + v.Weight
			if nd >= cur.dist[v.Adj] {
				continue
			}
			cur.label(v.Adj, nd, v.ID, u)
			// Every label except the two start labels comes from a relaxation,
			// so checking here sees each settled or tentative meeting.
			if od := other.dist[v.Adj]; od+nd < best {
				best, meet = od+nd, v.Adj
			}
		}
	}

	if meet == graph.NoNode {
		return nil, ErrNoPathFound
	}

	path, err := q.unpack(qs, source, meet)
	if err != nil {
		return nil, err
	}
	path.Weight = best
	path.Visited = visited
	return path, nil
}

// hop is an edge traversed from one node to another.
type hop struct {
	edge     graph.EdgeID
	from, to int32
}

// unpack walks both parent chains out from the meeting node and expands
// every shortcut into road edges.
func (q *Query) unpack(qs *queryState, source, meet int32) (*Path, error) {
	var hops []hop
	for n := meet; n != source; n = qs.fwd.parentNode[n] {
		hops = append(hops, hop{qs.fwd.parentEdge[n], qs.fwd.parentNode[n], n})
	}
	reverse(hops)
	for n := meet; qs.bwd.parentNode[n] != graph.NoNode; n = qs.bwd.parentNode[n] {
		hops = append(hops, hop{qs.bwd.parentEdge[n], n, qs.bwd.parentNode[n]})
	}

	path := &Path{Nodes: []int32{source}}
	for _, h := range hops {
		var err error
		qs.stack, err = q.expand(qs.stack[:0], h, path)
		if err != nil {
			return nil, err
		}
	}
	return path, nil
}

// expand appends the road edges behind h to path using an explicit stack.
func (q *Query) expand(stack []hop, h hop, path *Path) ([]hop, error) {
	stack = append(stack, h)
	for len(stack) > 0 {
		h = stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		e := q.g.Edge(h.edge)
		if !e.IsShortcut() {
			path.Edges = append(path.Edges, h.edge)
			path.Nodes = append(path.Nodes, h.to)
			path.Distance += e.Distance
			continue
		}

		skip := e.SkipNode
		first, ok := q.cheapest(skip, h.from, graph.InEdges)
		if !ok {
			return stack, q.missing(h, h.from, skip)
		}
		second, ok := q.cheapest(skip, h.to, graph.OutEdges)
		if !ok {
			return stack, q.missing(h, skip, h.to)
		}
		stack = append(stack, hop{second, skip, h.to}, hop{first, h.from, skip})
	}
	return stack, nil
}

// cheapest finds the lowest-weight edge between node and adj that passes
// filter as seen from node.
func (q *Query) cheapest(node, adj int32, filter graph.EdgeFilter) (graph.EdgeID, bool) {
	best, weight := graph.NoEdge, math.Inf(1)
	for v := range q.g.EdgesOf(node, filter) {
		if v.Adj == adj && v.Weight < weight {
			best, weight = v.ID, v.Weight
		}
	}
	return best, best != graph.NoEdge
}

func (q *Query) missing(h hop, from, to int32) error {
	return fmt.Errorf("unpack edge %d: %w", h.edge, &graph.GraphInvariantError{
		Node:   from,
		Level:  q.g.Level(from),
		Reason: fmt.Sprintf("no edge %d -> %d", from, to),
	})
}
