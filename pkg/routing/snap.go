package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"
	"go.uber.org/zap"

	"github.com/azybler/chrouter/pkg/geo"
	"github.com/azybler/chrouter/pkg/graph"
)

// DefaultSnapRadius is the farthest a query point may lie from a road.
const DefaultSnapRadius = 500.0 // meters

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult represents a point snapped to a road segment.
type SnapResult struct {
	Edge     graph.EdgeID
	From, To int32
	Ratio    float64 // 0.0 = at From, 1.0 = at To
	Dist     float64 // meters from the query point to the segment
	Node     int32   // endpoint closer to the snapped point
}

// Snapper finds the nearest road segment using an R-tree over the
// bounding boxes of road edges. Shortcuts are not indexed.
type Snapper struct {
	g      *graph.LeveledGraph
	tr     rtree.RTreeG[graph.EdgeID]
	radius float64
}

// NewSnapper indexes every road edge of g. A radius <= 0 selects
// DefaultSnapRadius.
func NewSnapper(g *graph.LeveledGraph, radius float64, log *zap.Logger) *Snapper {
	if log == nil {
		log = zap.NewNop()
	}
	if radius <= 0 {
		radius = DefaultSnapRadius
	}
	s := &Snapper{g: g, radius: radius}
	for id, e := range g.AllEdges() {
		if e.IsShortcut() {
			continue
		}
		aLat, aLon := g.Coord(e.From)
		bLat, bLon := g.Coord(e.To)
		s.tr.Insert(
			[2]float64{math.Min(aLon, bLon), math.Min(aLat, bLat)},
			[2]float64{math.Max(aLon, bLon), math.Max(aLat, bLat)},
			id,
		)
	}
	log.Info("spatial index built", zap.Int("edges", s.tr.Len()), zap.Float64("radius_m", radius))
	return s
}

// Snap finds the nearest road segment to the given lat/lng.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	box := geo.BoxAround(lat, lng, s.radius)

	best := SnapResult{Edge: graph.NoEdge, Dist: math.Inf(1)}
	s.tr.Search(
		[2]float64{box.MinLon, box.MinLat},
		[2]float64{box.MaxLon, box.MaxLat},
		func(_, _ [2]float64, id graph.EdgeID) bool {
			e := s.g.Edge(id)
			aLat, aLon := s.g.Coord(e.From)
			bLat, bLon := s.g.Coord(e.To)
			dist, ratio := geo.ProjectToSegment(lat, lng, aLat, aLon, bLat, bLon)
			// Ties go to the lower edge id so results do not depend on tree layout.
			if dist < best.Dist || (dist == best.Dist && id < best.Edge) {
				best = SnapResult{Edge: id, From: e.From, To: e.To, Ratio: ratio, Dist: dist}
			}
			return true
		},
	)

	if best.Edge == graph.NoEdge || best.Dist > s.radius {
		return SnapResult{}, ErrPointTooFar
	}
	best.Node = best.From
	if best.Ratio > 0.5 {
		best.Node = best.To
	}
	return best, nil
}
