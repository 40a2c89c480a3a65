package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
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
)

// newRunCmd runs the same server cmd/delfd starts, in the foreground,
// for local iteration against a schema/config pair without building a
// separate binary invocation.
func newRunCmd() *cobra.Command {
	var schemaPath, configPath, listenAddr, sweepCron string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the delf server against a schema/config pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _ := zap.NewDevelopment()
			defer logger.Sync()

			schemaDocs, err := delfconfig.LoadSchema(schemaPath)
			if err != nil {
				return fmt.Errorf("load schema: %w", err)
			}
			configDocs, err := delfconfig.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			graph, err := schemabuild.Build(schemaDocs, configDocs, storage.DefaultRegistry)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			if err := schemabuild.Validate(cmd.Context(), graph); err != nil {
				return fmt.Errorf("validate: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			engine := deletion.New(graph, logger)
			dispatcher := dispatch.New(graph, engine)

			var sweepOpts []sweeper.Option
			if sweepCron != "" {
				sweepOpts = append(sweepOpts, sweeper.WithCronSchedule(sweepCron))
			}
			sweep := sweeper.New(graph, engine, logger, sweepOpts...)
			go sweep.Run(ctx)
			defer sweep.Stop()

			server := httpapi.NewServer(httpapi.ServerConfig{ListenAddr: listenAddr}, dispatcher, runValidator{graph}, logger)
			return server.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "schema.yaml", "path to the schema YAML document")
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the storage config YAML document")
	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "address to listen on")
	cmd.Flags().StringVar(&sweepCron, "sweep-cron", "", `cron schedule for the short-TTL sweeper, e.g. "@every 30s" (default: fixed 30s cadence)`)
	return cmd
}

type runValidator struct {
	graph *schema.Graph
}

func (v runValidator) Validate(ctx context.Context) error {
	return schemabuild.Validate(ctx, v.graph)
}
