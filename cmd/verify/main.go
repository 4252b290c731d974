// Command verify checks a contracted graph file by comparing contracted
// queries with plain Dijkstra on random node pairs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/azybler/chrouter/pkg/config"
	"github.com/azybler/chrouter/pkg/graph"
	"github.com/azybler/chrouter/pkg/logger"
	"github.com/azybler/chrouter/pkg/routing"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml")
	graphPath := flag.String("graph", "", "Path to preprocessed graph (overrides graph.path)")
	pairs := flag.Int("pairs", 0, "Number of random pairs (overrides query.verify_pairs)")
	workers := flag.Int("workers", 0, "Concurrent workers (overrides query.verify_workers)")
	seed := flag.Uint64("seed", 1, "Random seed for pair selection")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *graphPath != "" {
		cfg.Graph.Path = *graphPath
	}
	if *pairs > 0 {
		cfg.Query.VerifyPairs = *pairs
	}
	if *workers > 0 {
		cfg.Query.VerifyWorkers = *workers
	}

	log := logger.Must(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	g, err := graph.ReadBinary(cfg.Graph.Path)
	if err != nil {
		log.Fatal("failed to load graph", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := routing.Verify(ctx, g, routing.RandomPairs(g.NumNodes(), cfg.Query.VerifyPairs, *seed), cfg.Query.VerifyWorkers, log)
	if err != nil {
		log.Fatal("verification failed", zap.Error(err))
	}
	for i, m := range report.Mismatches {
		if i == 20 {
			log.Warn("more mismatches omitted", zap.Int("total", len(report.Mismatches)))
			break
		}
		log.Warn("mismatch",
			zap.Int32("source", m.Source),
			zap.Int32("target", m.Target),
			zap.Float64("dijkstra", m.Want),
			zap.Float64("ch", m.Got),
		)
	}
	if len(report.Mismatches) > 0 {
		os.Exit(2)
	}
}
