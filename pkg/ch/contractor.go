package ch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/azybler/chrouter/pkg/graph"
)

// Stats summarizes one preprocessing run.
type Stats struct {
	Nodes           int
	Edges           int
	Shortcuts       int
	Polls           int
	LazyReinserts   int
	PeriodicUpdates int
	Elapsed         time.Duration
}

// Contractor inserts shortcuts and assigns levels on a LeveledGraph in
// place. Contraction is single-threaded; the graph must not be queried
// until Prepare returns.
type Contractor struct {
	g   *graph.LeveledGraph
	cfg Config
	log *zap.Logger
	ws  *WitnessSearch
}

// NewContractor prepares to contract g.
func NewContractor(g *graph.LeveledGraph, cfg Config, log *zap.Logger) *Contractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Contractor{
		g:   g,
		cfg: cfg,
		log: log,
		ws:  NewWitnessSearch(g, cfg.WitnessMaxSettled, cfg.WitnessMaxHops),
	}
}

// ContractNode assigns level to node and adds the shortcuts that keep
// distances between its uncontracted neighbours intact. Existing shortcut
// edges are lowered in place when that suffices. It returns the number of
// new edges.
func (c *Contractor) ContractNode(node, level int32) (int, error) {
	shortcuts := c.ws.FindShortcuts(node)
	if err := c.g.SetLevel(node, level); err != nil {
		return 0, err
	}

	added := 0
	for _, sc := range shortcuts {
		if sc.Update {
			if c.g.Edge(sc.Existing).Weight > sc.Weight {
				c.g.Reroute(sc.Existing, sc.Weight, sc.Distance, node, sc.OriginalEdges)
			}
			continue
		}
		if _, err := c.g.AddShortcut(sc.From, sc.To, sc.Weight, sc.Distance, sc.Flags, node, sc.OriginalEdges); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Prepare applies the configured weighting and contracts every
// uncontracted node. Any error leaves the graph unusable.
func (c *Contractor) Prepare(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{Nodes: c.g.NumNodes(), Edges: c.g.NumEdges()}

	if c.cfg.Weighting != nil {
		c.g.PrepareEdges(c.cfg.Weighting)
	}

	c.log.Info("starting contraction",
		zap.Int("nodes", stats.Nodes),
		zap.Int("edges", stats.Edges),
		zap.String("heap", c.cfg.Heap),
	)

	o, err := NewOrderer(c.g, c.ws, c.cfg, c.log)
	if err != nil {
		return stats, err
	}

	level := c.g.MaxLevel() + 1
	for {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("contraction interrupted at level %d: %w", level, err)
		}
		node, ok := o.Next()
		if !ok {
			break
		}
		added, err := c.ContractNode(node, level)
		if err != nil {
			return stats, fmt.Errorf("contract node %d: %w", node, err)
		}
		level++
		o.Contracted(node, added)
	}

	stats.Shortcuts = c.g.NumShortcuts()
	stats.Polls = o.polls
	stats.LazyReinserts = o.lazyReinserts
	stats.PeriodicUpdates = o.periodicUpdates
	stats.Elapsed = time.Since(start)

	c.log.Info("contraction complete",
		zap.Int("shortcuts", stats.Shortcuts),
		zap.Float64("shortcut_ratio", float64(stats.Shortcuts)/float64(max(stats.Edges, 1))),
		zap.Int("lazy_reinserts", stats.LazyReinserts),
		zap.Int("periodic_updates", stats.PeriodicUpdates),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}
