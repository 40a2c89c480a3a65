package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcmcgrath13/delf/internal/delfconfig"
	"github.com/mcmcgrath13/delf/internal/schemabuild"
	"github.com/mcmcgrath13/delf/internal/storage"
	_ "github.com/mcmcgrath13/delf/internal/storage/memstore"
	_ "github.com/mcmcgrath13/delf/internal/storage/sqlbackend"
)

func newValidateCmd() *cobra.Command {
	var schemaPath, configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Build the schema graph and run every structural and reachability check",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			fmt.Printf("ok: %d objects, %d edges\n", graph.ObjectCount(), len(graph.Edges()))
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "schema.yaml", "path to the schema YAML document")
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the storage config YAML document")
	return cmd
}
