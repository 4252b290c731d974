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

	"github.com/azybler/chrouter/pkg/api"
	"github.com/azybler/chrouter/pkg/config"
	"github.com/azybler/chrouter/pkg/graph"
	"github.com/azybler/chrouter/pkg/logger"
	"github.com/azybler/chrouter/pkg/routing"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml")
	graphPath := flag.String("graph", "", "Path to preprocessed graph (overrides graph.path)")
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (adds to server.cors_origins)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *graphPath != "" {
		cfg.Graph.Path = *graphPath
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *corsOrigin != "" {
		cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, *corsOrigin)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Must(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	start := time.Now()
	log.Info("loading graph", zap.String("path", cfg.Graph.Path))
	g, err := graph.ReadBinary(cfg.Graph.Path)
	if err != nil {
		log.Fatal("failed to load graph", zap.Error(err))
	}
	log.Info("graph loaded",
		zap.Int("nodes", g.NumNodes()),
		zap.Int("edges", g.NumEdges()),
		zap.Int("shortcuts", g.NumShortcuts()),
	)

	engine := routing.NewEngine(g, cfg.Engine(), log)
	log.Info("ready", zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))

	handlers := api.NewHandlers(engine, log)
	handlers.Geometry = cfg.Server.Geometry
	srv := api.NewServer(cfg.API(), handlers, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := api.ListenAndServe(ctx, srv, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
