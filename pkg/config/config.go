// Package config loads chrouter settings from a YAML file, CHROUTER_*
// environment variables and built-in defaults, in that order of precedence
// after command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/azybler/chrouter/pkg/api"
	"github.com/azybler/chrouter/pkg/ch"
	"github.com/azybler/chrouter/pkg/graph"
	"github.com/azybler/chrouter/pkg/routing"
)

type Config struct {
	Contraction ContractionConfig `mapstructure:"contraction"`
	Graph       GraphConfig       `mapstructure:"graph"`
	Query       QueryConfig       `mapstructure:"query"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
}

type ContractionConfig struct {
	EdgeDifferenceFactor      int    `mapstructure:"edge_difference_factor"`
	OriginalEdgesFactor       int    `mapstructure:"original_edges_factor"`
	ContractedNeighborsFactor int    `mapstructure:"contracted_neighbors_factor"`
	PeriodicUpdatesPercent    int    `mapstructure:"periodic_updates_percent"`
	WitnessMaxSettled         int    `mapstructure:"witness_max_settled"`
	WitnessMaxHops            int    `mapstructure:"witness_max_hops"`
	Heap                      string `mapstructure:"heap"`
}

type GraphConfig struct {
	Path        string `mapstructure:"path"`
	Weighting   string `mapstructure:"weighting"`
	Compression string `mapstructure:"compression"`
}

type QueryConfig struct {
	MaxVisitedNodes int `mapstructure:"max_visited_nodes"`
	VerifyPairs     int `mapstructure:"verify_pairs"`
	VerifyWorkers   int `mapstructure:"verify_workers"`
}

type ServerConfig struct {
	Port             int           `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	CORSOrigins      []string      `mapstructure:"cors_origins"`
	RateLimit        float64       `mapstructure:"rate_limit"`
	RateBurst        int           `mapstructure:"rate_burst"`
	SnapRadiusMeters float64       `mapstructure:"snap_radius_meters"`
	Geometry         bool          `mapstructure:"geometry"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	def := ch.DefaultConfig()
	v.SetDefault("contraction.edge_difference_factor", def.EdgeDifferenceFactor)
	v.SetDefault("contraction.original_edges_factor", def.OriginalEdgesFactor)
	v.SetDefault("contraction.contracted_neighbors_factor", def.ContractedNeighborsFactor)
	v.SetDefault("contraction.periodic_updates_percent", def.PeriodicUpdatesPercent)
	v.SetDefault("contraction.witness_max_settled", 0)
	v.SetDefault("contraction.witness_max_hops", 0)
	v.SetDefault("contraction.heap", def.Heap)

	v.SetDefault("graph.path", "graph.bin")
	v.SetDefault("graph.weighting", "fastest")
	v.SetDefault("graph.compression", "zstd")

	v.SetDefault("query.max_visited_nodes", 0)
	v.SetDefault("query.verify_pairs", 1000)
	v.SetDefault("query.verify_workers", 4)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "5s")
	v.SetDefault("server.request_timeout", "5s")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit", 100.0)
	v.SetDefault("server.rate_burst", 200)
	v.SetDefault("server.snap_radius_meters", routing.DefaultSnapRadius)
	v.SetDefault("server.geometry", false)

	v.SetDefault("log.level", "info")
}

// Load reads the config file at path, or config.yaml from the working
// directory and ./data/ when path is empty. A missing default file is not
// an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./data/")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can use.
func (c *Config) Validate() error {
	if _, err := c.CH(); err != nil {
		return err
	}
	if _, err := graph.ParseCodec(c.Graph.Compression); err != nil {
		return fmt.Errorf("config: graph.compression: %w", err)
	}
	if p := c.Contraction.PeriodicUpdatesPercent; p < 0 || p > 100 {
		return fmt.Errorf("config: contraction.periodic_updates_percent %d not in [0, 100]", p)
	}
	if c.Contraction.WitnessMaxSettled < 0 || c.Contraction.WitnessMaxHops < 0 {
		return errors.New("config: witness limits must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Query.MaxVisitedNodes < 0 {
		return errors.New("config: query.max_visited_nodes must not be negative")
	}
	return nil
}

// CH returns the contraction settings.
func (c *Config) CH() (ch.Config, error) {
	w, err := graph.WeightingByName(c.Graph.Weighting)
	if err != nil {
		return ch.Config{}, fmt.Errorf("config: graph.weighting: %w", err)
	}
	switch c.Contraction.Heap {
	case "binary", "bucketed":
	default:
		return ch.Config{}, fmt.Errorf("config: contraction.heap %q is not binary or bucketed", c.Contraction.Heap)
	}
	return ch.Config{
		EdgeDifferenceFactor:      c.Contraction.EdgeDifferenceFactor,
		OriginalEdgesFactor:       c.Contraction.OriginalEdgesFactor,
		ContractedNeighborsFactor: c.Contraction.ContractedNeighborsFactor,
		PeriodicUpdatesPercent:    c.Contraction.PeriodicUpdatesPercent,
		WitnessMaxSettled:         c.Contraction.WitnessMaxSettled,
		WitnessMaxHops:            c.Contraction.WitnessMaxHops,
		Heap:                      c.Contraction.Heap,
		Weighting:                 w,
	}, nil
}

// API returns the HTTP server settings.
func (c *Config) API() api.ServerConfig {
	return api.ServerConfig{
		Addr:           fmt.Sprintf(":%d", c.Server.Port),
		ReadTimeout:    c.Server.ReadTimeout,
		WriteTimeout:   c.Server.WriteTimeout,
		RequestTimeout: c.Server.RequestTimeout,
		CORSOrigins:    c.Server.CORSOrigins,
		RateLimit:      c.Server.RateLimit,
		RateBurst:      c.Server.RateBurst,
	}
}

// Engine returns the query settings.
func (c *Config) Engine() routing.EngineConfig {
	return routing.EngineConfig{
		MaxVisitedNodes: c.Query.MaxVisitedNodes,
		SnapRadius:      c.Server.SnapRadiusMeters,
	}
}
