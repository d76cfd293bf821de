package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/strata-db/strata/internal/cli/config"
	"github.com/strata-db/strata/internal/ddl"
	"github.com/strata-db/strata/runtime/metadata"
)

var (
	sqlSnapshot string
	sqlDialect  string
	sqlOutput   string
)

// NewSQLCommand creates the sql command
func NewSQLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Generate a DDL script from the mapping snapshot",
		Long: `Generate a DDL script from the mapping snapshot.

The script creates every entity and pivot table with its columns, the
indexes implied by the mapping, and the foreign key constraints between
related tables. Statements are idempotent (CREATE TABLE IF NOT EXISTS)
and ordered so the script applies cleanly to an empty database.`,
		Example: `  # Write the schema to the configured location
  strata sql

  # Print the schema to stdout
  strata sql --output -

  # Generate from a specific snapshot
  strata sql --snapshot dist/meta.json.gz --output schema.sql`,
		RunE: runSQL,
	}

	cmd.Flags().StringVar(&sqlSnapshot, "snapshot", "", "Snapshot path (default: output.snapshot from strata.yml)")
	cmd.Flags().StringVar(&sqlDialect, "dialect", "", "SQL dialect (default: database.dialect from strata.yml)")
	cmd.Flags().StringVarP(&sqlOutput, "output", "o", "", "Script path, '-' for stdout (default: output.schema from strata.yml)")

	return cmd
}

func runSQL(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	snapshotPath := sqlSnapshot
	if snapshotPath == "" {
		snapshotPath = cfg.Output.Snapshot
	}
	dialect := sqlDialect
	if dialect == "" {
		dialect = cfg.Database.Dialect
	}
	outputPath := sqlOutput
	if outputPath == "" {
		outputPath = cfg.Output.Schema
	}

	snap, err := metadata.LoadFile(snapshotPath)
	if err != nil {
		return fmt.Errorf("no snapshot at %s - run 'strata build' first: %w", snapshotPath, err)
	}

	gen, err := ddl.New(ddl.Config{Dialect: dialect})
	if err != nil {
		return err
	}
	script, err := gen.Generate(snap)
	if err != nil {
		return err
	}

	if outputPath == "" || outputPath == "-" {
		fmt.Fprint(cmd.OutOrStdout(), script)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(script), 0644); err != nil {
		return fmt.Errorf("failed to write schema to %s: %w", outputPath, err)
	}

	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)
	successColor.Printf("✓ Schema written to %s\n", outputPath)
	infoColor.Printf("  %d tables\n", len(snap.Tables()))

	return nil
}
