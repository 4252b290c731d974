package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/azybler/chrouter/pkg/ch"
	"github.com/azybler/chrouter/pkg/config"
	"github.com/azybler/chrouter/pkg/graph"
	"github.com/azybler/chrouter/pkg/logger"
	osmparser "github.com/azybler/chrouter/pkg/osm"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default: ./config.yaml or ./data/config.yaml if present)")
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "", "Output graph file (overrides graph.path)")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	singapore := flag.Bool("singapore", false, "Shortcut for --bbox 1.15,103.6,1.48,104.1 (Singapore bounding box)")
	kl := flag.Bool("kl", false, "Shortcut for --bbox 2.75,101.2,3.5,102.0 (Selangor + Kuala Lumpur bounding box)")
	weighting := flag.String("weighting", "", "fastest or shortest (overrides graph.weighting)")
	compression := flag.String("compression", "", "zstd, lz4 or none (overrides graph.compression)")
	heap := flag.String("heap", "", "binary or bucketed (overrides contraction.heap)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output graph.bin] [--singapore | --kl | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	override(&cfg.Graph.Path, *output)
	override(&cfg.Graph.Weighting, *weighting)
	override(&cfg.Graph.Compression, *compression)
	override(&cfg.Contraction.Heap, *heap)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Must(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	opts := osmparser.ParseOptions{Logger: log}
	switch {
	case *kl:
		opts.BBox = osmparser.BBox{MinLat: 2.75, MaxLat: 3.5, MinLng: 101.2, MaxLng: 102.0}
	case *singapore:
		opts.BBox = osmparser.BBox{MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1}
	case *bbox != "":
		var b osmparser.BBox
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &b.MinLat, &b.MinLng, &b.MaxLat, &b.MaxLng); err != nil {
			log.Fatal("invalid bbox, expected minLat,minLng,maxLat,maxLng", zap.Error(err))
		}
		opts.BBox = b
	}
	if !opts.BBox.IsZero() {
		log.Info("using bounding box filter",
			zap.Float64("min_lat", opts.BBox.MinLat), zap.Float64("max_lat", opts.BBox.MaxLat),
			zap.Float64("min_lng", opts.BBox.MinLng), zap.Float64("max_lng", opts.BBox.MaxLng))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *input, opts, log); err != nil {
		log.Fatal("preprocessing failed", zap.Error(err))
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func run(ctx context.Context, cfg *config.Config, input string, opts osmparser.ParseOptions, log *zap.Logger) error {
	start := time.Now()

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	parsed, err := osmparser.Parse(ctx, f, opts)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	log.Info("parsed OSM data", zap.Int("segments", len(parsed.Edges)), zap.Int("nodes", len(parsed.NodeLat)))

	g := graph.Build(parsed)
	log.Info("graph built", zap.Int("nodes", g.NumNodes()), zap.Int("edges", g.NumEdges()))

	component := graph.LargestComponent(g)
	g = graph.FilterToComponent(g, component)
	log.Info("largest component kept", zap.Int("nodes", g.NumNodes()), zap.Int("edges", g.NumEdges()))

	chCfg, err := cfg.CH()
	if err != nil {
		return err
	}
	stats, err := ch.NewContractor(g, chCfg, log).Prepare(ctx)
	if err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("contracted graph: %w", err)
	}

	codec, err := graph.ParseCodec(cfg.Graph.Compression)
	if err != nil {
		return err
	}
	if err := graph.WriteBinary(cfg.Graph.Path, g, codec); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}

	info, err := os.Stat(cfg.Graph.Path)
	if err != nil {
		return err
	}
	log.Info("done",
		zap.String("output", cfg.Graph.Path),
		zap.String("codec", codec.String()),
		zap.Float64("size_mb", float64(info.Size())/(1024*1024)),
		zap.Int("shortcuts", stats.Shortcuts),
		zap.Duration("elapsed", time.Since(start).Round(time.Second)),
	)
	return nil
}
