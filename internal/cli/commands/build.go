package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/strata-db/strata/internal/cli/config"
	"github.com/strata-db/strata/internal/mapper"
	"github.com/strata-db/strata/internal/scan"
	"github.com/strata-db/strata/internal/snapshot"
	"github.com/strata-db/strata/runtime/metadata"
)

var (
	buildJSON      bool
	buildVerbose   bool
	buildOutput    string
	buildSource    string
	buildNamespace string
	buildForce     bool
)

// NewBuildCommand creates the build command
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile annotated classes into a mapping snapshot",
		Long: `Scan the source tree for annotated classes and compile them into a
mapping snapshot.

The build process:
  1. Scanning - index classes and their annotations
  2. Mapping - derive tables, columns, and relations
  3. Validation - cross-check relation targets and pivot declarations
  4. Serialization - write the snapshot artifact

A build whose sources are unchanged since the last snapshot is skipped;
use --force to rebuild anyway.`,
		Example: `  # Build with settings from strata.yml
  strata build

  # Build with verbose output to see each mapped entity
  strata build --verbose

  # Build and output errors in JSON format (useful for tooling)
  strata build --json

  # Build a different source tree to a custom snapshot location
  strata build --source app/entities --output dist/meta.json.gz

  # Rebuild even when sources are unchanged
  strata build --force`,
		RunE: runBuild,
	}

	cmd.Flags().BoolVar(&buildJSON, "json", false, "Output errors in JSON format")
	cmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "Show detailed build output")
	cmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Snapshot output path (default: build/metadata.json)")
	cmd.Flags().StringVar(&buildSource, "source", "", "Source root to scan (default: models)")
	cmd.Flags().StringVar(&buildNamespace, "namespace", "", "Root namespace to map")
	cmd.Flags().BoolVar(&buildForce, "force", false, "Rebuild even if sources are unchanged")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	successColor := color.New(color.FgGreen, color.Bold)
	errorColor := color.New(color.FgRed, color.Bold)
	infoColor := color.New(color.FgCyan)

	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	sourceRoot := cfg.Source.Root
	if buildSource != "" {
		sourceRoot = buildSource
	}
	namespace := cfg.Source.Namespace
	if buildNamespace != "" {
		namespace = buildNamespace
	}
	outputPath := cfg.Output.Snapshot
	if buildOutput != "" {
		outputPath = buildOutput
	}

	if _, err := os.Stat(sourceRoot); os.IsNotExist(err) {
		return fmt.Errorf("%s/ directory not found - are you in a strata project?", sourceRoot)
	}

	logger := zap.NewNop()
	if buildVerbose {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}

	scanner := scan.New(scan.Config{
		Root:          sourceRoot,
		RootNamespace: namespace,
		Logger:        logger,
	})

	sourceHash, err := scanner.SourceHash()
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", sourceRoot, err)
	}

	// Skip the build when the previous snapshot covers the same sources.
	if !buildForce {
		if prev, err := metadata.LoadFile(outputPath); err == nil && prev.SourceHash == sourceHash {
			successColor.Printf("✓ Metadata up to date (%d entities)\n", len(prev.Entities))
			return nil
		}
	}

	builder := mapper.NewBuilder(mapper.Config{
		RootNamespace: namespace,
		SourceRoot:    sourceRoot,
		Source:        scanner,
		Finder:        scanner,
		Logger:        logger,
	})

	classes, err := builder.DiscoverClasses("")
	if err != nil {
		return err
	}
	if len(classes) == 0 {
		return fmt.Errorf("no classes found in %s/", sourceRoot)
	}
	if buildVerbose {
		infoColor.Printf("Found %d class(es)\n", len(classes))
	}

	mapping, err := builder.Build(classes)
	if err != nil {
		var cfgErr *mapper.ConfigError
		if errors.As(err, &cfgErr) {
			if buildJSON {
				outputMappingErrorsJSON(cfgErr)
			} else {
				outputMappingErrorsTerminal(errorColor, cfgErr)
			}
			return fmt.Errorf("build failed")
		}
		return err
	}

	snap := snapshot.Build(mapping, snapshot.Options{
		ToolVersion:   Version,
		SourceHash:    sourceHash,
		RootNamespace: namespace,
	})

	if err := metadata.WriteFile(snap, outputPath); err != nil {
		return err
	}

	elapsed := time.Since(startTime)
	fmt.Println()
	successColor.Printf("✓ Compiled %d entities in %.2fs\n", len(snap.Entities), elapsed.Seconds())
	infoColor.Printf("  Snapshot: %s\n", outputPath)

	return nil
}

type mappingError struct {
	Class    string `json:"class"`
	Property string `json:"property,omitempty"`
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
}

func outputMappingErrorsJSON(errs ...*mapper.ConfigError) {
	output := struct {
		Success bool           `json:"success"`
		Errors  []mappingError `json:"errors"`
	}{
		Success: false,
		Errors:  make([]mappingError, 0, len(errs)),
	}
	for _, err := range errs {
		output.Errors = append(output.Errors, mappingError{
			Class:    err.Class,
			Property: err.Property,
			Message:  err.Message,
			Hint:     err.Hint,
		})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

func outputMappingErrorsTerminal(errorColor *color.Color, errs ...*mapper.ConfigError) {
	errorColor.Fprintf(os.Stderr, "\nBuild failed with %d error(s):\n\n", len(errs))

	for i, err := range errs {
		fmt.Fprintf(os.Stderr, "%d. class '%s'", i+1, err.Class)
		if err.Property != "" {
			fmt.Fprintf(os.Stderr, ", property '%s'", err.Property)
		}
		fmt.Fprintf(os.Stderr, "\n   %s\n", err.Message)
		if err.Hint != "" {
			fmt.Fprintf(os.Stderr, "   Hint: %s\n", err.Hint)
		}
	}
	fmt.Fprintln(os.Stderr)
}
