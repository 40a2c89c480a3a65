// Command delfd runs the delf cascading deletion server: it loads a
// schema and config document pair, builds and validates the resulting
// graph, then serves the HTTP delete/validate surface and the
// short-TTL sweeper until terminated.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mcmcgrath13/delf/internal/delfconfig"
	"github.com/mcmcgrath13/delf/internal/deletion"
	"github.com/mcmcgrath13/delf/internal/dispatch"
	"github.com/mcmcgrath13/delf/internal/httpapi"
	"github.com/mcmcgrath13/delf/internal/schema"
	"github.com/mcmcgrath13/delf/internal/schemabuild"
	"github.com/mcmcgrath13/delf/internal/storage"
	_ "github.com/mcmcgrath13/delf/internal/storage/memstore"
	_ "github.com/mcmcgrath13/delf/internal/storage/sqlbackend"
	"github.com/mcmcgrath13/delf/internal/sweeper"
	"github.com/mcmcgrath13/delf/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// config holds delfd's process configuration, read from environment
// variables the way the teacher's control-plane binary does.
type config struct {
	ListenAddr   string
	SchemaPath   string
	ConfigPath   string
	OTLPEndpoint string
	SweepCadence time.Duration
	SweepCron    string
}

func loadConfig() config {
	cfg := config{
		ListenAddr:   os.Getenv("DELF_LISTEN_ADDR"),
		SchemaPath:   os.Getenv("DELF_SCHEMA"),
		ConfigPath:   os.Getenv("DELF_CONFIG"),
		OTLPEndpoint: os.Getenv("DELF_OTLP_ENDPOINT"),
		SweepCron:    os.Getenv("DELF_SWEEP_CRON"),
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.SchemaPath == "" {
		cfg.SchemaPath = "schema.yaml"
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = "config.yaml"
	}
	return cfg
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := loadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.InitTraceProvider(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	schemaDocs, err := delfconfig.LoadSchema(cfg.SchemaPath)
	if err != nil {
		logger.Fatal("failed to load schema", zap.String("path", cfg.SchemaPath), zap.Error(err))
	}
	configDocs, err := delfconfig.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfg.ConfigPath), zap.Error(err))
	}

	graph, err := schemabuild.Build(schemaDocs, configDocs, storage.DefaultRegistry)
	if err != nil {
		logger.Fatal("failed to build schema graph", zap.Error(err))
	}
	if err := schemabuild.Validate(ctx, graph); err != nil {
		logger.Fatal("schema graph failed validation", zap.Error(err))
	}
	logger.Info("schema graph built and validated",
		zap.Int("objects", graph.ObjectCount()),
		zap.Strings("storage_plugins", storage.DefaultRegistry.Plugins()),
	)

	engine := deletion.New(graph, logger)
	dispatcher := dispatch.New(graph, engine)

	sweep := sweeper.New(graph, engine, logger, sweeperOptions(cfg)...)
	go sweep.Run(ctx)
	defer sweep.Stop()

	validator := graphValidator{graph: graph}
	server := httpapi.NewServer(httpapi.ServerConfig{ListenAddr: cfg.ListenAddr}, dispatcher, validator, logger)

	logger.Info("starting delfd",
		zap.String("addr", cfg.ListenAddr),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
	)

	if err := server.Start(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shut down cleanly")
}

// sweeperOptions translates the cadence/cron settings into
// sweeper.Options, preferring an explicit cron expression over a fixed
// cadence when both are set. loadConfig reads only SweepCron (from
// DELF_SWEEP_CRON); it leaves SweepCadence at zero, so the sweeper's
// default cadence applies unless a cron expression is given.
func sweeperOptions(cfg config) []sweeper.Option {
	var opts []sweeper.Option
	if cfg.SweepCron != "" {
		opts = append(opts, sweeper.WithCronSchedule(cfg.SweepCron))
	} else if cfg.SweepCadence > 0 {
		opts = append(opts, sweeper.WithCadence(cfg.SweepCadence))
	}
	return opts
}

// graphValidator adapts schemabuild.Validate to httpapi.Validator, so
// GET /validate re-runs the same reachability and storage checks that
// ran at startup.
type graphValidator struct {
	graph *schema.Graph
}

func (v graphValidator) Validate(ctx context.Context) error {
	return schemabuild.Validate(ctx, v.graph)
}
