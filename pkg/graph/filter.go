package graph

// FilterKind selects one of the fixed edge filters.
type FilterKind uint8

const (
	// FilterAll accepts every edge.
	FilterAll FilterKind = iota
	// FilterOut accepts edges traversable away from the base node.
	FilterOut
	// FilterIn accepts edges traversable towards the base node.
	FilterIn
	// FilterWitness accepts outgoing edges to uncontracted nodes other
	// than the filter's skip node.
	FilterWitness
	// FilterUpwardOut accepts outgoing edges to nodes whose level is not
	// below the base node's level.
	FilterUpwardOut
	// FilterUpwardIn is FilterUpwardOut for incoming edges.
	FilterUpwardIn
)

// EdgeFilter is a closed set of edge predicates.
type EdgeFilter struct {
	Kind FilterKind
	Skip int32 // only read by FilterWitness
}

var (
	AnyEdge   = EdgeFilter{Kind: FilterAll}
	OutEdges  = EdgeFilter{Kind: FilterOut}
	InEdges   = EdgeFilter{Kind: FilterIn}
	UpwardOut = EdgeFilter{Kind: FilterUpwardOut}
	UpwardIn  = EdgeFilter{Kind: FilterUpwardIn}
)

// WitnessFilter excludes skip and every contracted node.
func WitnessFilter(skip int32) EdgeFilter {
	return EdgeFilter{Kind: FilterWitness, Skip: skip}
}

// Accept reports whether v passes the filter on g.
func (f EdgeFilter) Accept(g *LeveledGraph, v EdgeView) bool {
	switch f.Kind {
	case FilterAll:
		return true
	case FilterOut:
		return v.Forward
	case FilterIn:
		return v.Backward
	case FilterWitness:
		return v.Forward && v.Adj != f.Skip && g.level[v.Adj] == 0
	case FilterUpwardOut:
		return v.Forward && g.level[v.Adj] >= g.level[v.Base]
	case FilterUpwardIn:
		return v.Backward && g.level[v.Adj] >= g.level[v.Base]
	}
	return false
}
