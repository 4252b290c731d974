package routing

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/azybler/chrouter/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two points.
var ErrNoRoute = errors.New("no route found")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// RouteResult is the output of a route query.
type RouteResult struct {
	Weight              float64
	TotalDistanceMeters float64
	Nodes               []int32
	Geometry            []LatLng
	Visited             int
}

// GraphStats describes the loaded graph.
type GraphStats struct {
	Nodes     int
	Edges     int
	Shortcuts int
	MaxLevel  int32
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, start, end LatLng) (*RouteResult, error)
	RouteNodes(ctx context.Context, source, target int32) (*RouteResult, error)
	Stats() GraphStats
}

// EngineConfig tunes query limits.
type EngineConfig struct {
	MaxVisitedNodes int     // 0 = unlimited
	SnapRadius      float64 // meters, 0 = DefaultSnapRadius
}

// Engine implements Router on a contracted graph.
type Engine struct {
	g       *graph.LeveledGraph
	query   *Query
	snapper *Snapper
	cfg     EngineConfig
	log     *zap.Logger
}

var _ Router = (*Engine)(nil)

// NewEngine creates a routing engine. g must be fully contracted and is
// never modified afterwards.
func NewEngine(g *graph.LeveledGraph, cfg EngineConfig, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		g:       g,
		query:   NewQuery(g),
		snapper: NewSnapper(g, cfg.SnapRadius, log),
		cfg:     cfg,
		log:     log,
	}
}

// Route snaps both points to the nearest road node and computes the
// shortest path between them.
func (e *Engine) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	startSnap, err := e.snapper.Snap(start.Lat, start.Lng)
	if err != nil {
		return nil, err
	}
	endSnap, err := e.snapper.Snap(end.Lat, end.Lng)
	if err != nil {
		return nil, err
	}
	return e.RouteNodes(ctx, startSnap.Node, endSnap.Node)
}

// RouteNodes computes the shortest path between two node ids.
func (e *Engine) RouteNodes(ctx context.Context, source, target int32) (*RouteResult, error) {
	p, err := e.query.CalcPathContext(ctx, source, target, e.cfg.MaxVisitedNodes)
	if errors.Is(err, ErrNoPathFound) {
		return nil, ErrNoRoute
	}
	if err != nil {
		return nil, err
	}
	e.log.Debug("route",
		zap.Int32("source", source),
		zap.Int32("target", target),
		zap.Float64("weight", p.Weight),
		zap.Int("visited", p.Visited),
	)
	return &RouteResult{
		Weight:              p.Weight,
		TotalDistanceMeters: p.Distance,
		Nodes:               p.Nodes,
		Geometry:            e.buildGeometry(p.Nodes),
		Visited:             p.Visited,
	}, nil
}

// Stats reports the size of the loaded graph.
func (e *Engine) Stats() GraphStats {
	return GraphStats{
		Nodes:     e.g.NumNodes(),
		Edges:     e.g.NumEdges() - e.g.NumShortcuts(),
		Shortcuts: e.g.NumShortcuts(),
		MaxLevel:  e.g.MaxLevel(),
	}
}

func (e *Engine) buildGeometry(nodes []int32) []LatLng {
	geom := make([]LatLng, len(nodes))
	for i, n := range nodes {
		lat, lon := e.g.Coord(n)
		geom[i] = LatLng{Lat: lat, Lng: lon}
	}
	return geom
}
