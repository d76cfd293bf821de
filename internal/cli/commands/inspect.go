package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/strata-db/strata/internal/cli/config"
	"github.com/strata-db/strata/internal/cli/ui"
	"github.com/strata-db/strata/runtime/metadata"
)

var (
	// Global flags for inspect commands
	inspectSnapshot string
	outputFormat    string
	verbose         bool
	noColor         bool

	depsDepth   int
	depsReverse bool
	depsKind    string
)

// NewInspectCommand creates the inspect command group
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect a compiled mapping snapshot",
		Long: `Inspect a compiled mapping snapshot.

The inspect command reads the snapshot produced by 'strata build' and lets
you explore the mapped entities, their tables, and the relation graph.

This is useful for:
  • Verifying how annotations resolved into tables and columns
  • Debugging relation and pivot table derivation
  • Understanding the dependency structure of your entities
  • Feeding mapping metadata into other tooling`,
		Example: `  # List all mapped entities
  strata inspect entities

  # View detailed information about a specific entity
  strata inspect entity myapp/models.Post

  # Bare type names work when unambiguous
  strata inspect entity Post

  # List every table, including derived pivot tables
  strata inspect tables

  # Show the relation graph around an entity
  strata inspect deps Post --depth 2

  # Output in JSON format for tooling
  strata inspect entities --format json`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable color output if requested
			if noColor {
				color.NoColor = true
			}
		},
	}

	// Add global flags
	cmd.PersistentFlags().StringVar(&inspectSnapshot, "snapshot", "", "Snapshot path (default: output.snapshot from strata.yml)")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: json or table")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Show all details")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newInspectEntitiesCommand())
	cmd.AddCommand(newInspectEntityCommand())
	cmd.AddCommand(newInspectTablesCommand())
	cmd.AddCommand(newInspectDepsCommand())

	return cmd
}

// newInspectEntitiesCommand creates the 'inspect entities' command
func newInspectEntitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List all mapped entities",
		Long: `List all mapped entities.

Shows every entity in the snapshot with its table and a summary of columns
and relations. Use 'inspect entity <class>' for the full mapping of a
single entity.`,
		Example: `  # List all entities
  strata inspect entities

  # List entities in JSON format
  strata inspect entities --format json

  # Include entity traits in the listing
  strata inspect entities --verbose`,
		RunE: runInspectEntitiesCommand,
	}
}

// newInspectEntityCommand creates the 'inspect entity' command
func newInspectEntityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "entity <class>",
		Short: "Show the full mapping of one entity",
		Long: `Show the full mapping of one entity.

Displays the table, every column with its modifiers, all declared
relations, and any pivot tables the entity owns. The class may be given
as a full identifier (myapp/models.Post) or as a bare type name when
only one entity matches.`,
		Example: `  # View the Post mapping
  strata inspect entity myapp/models.Post

  # Bare name, resolved against the snapshot
  strata inspect entity Post

  # JSON output with every recorded detail
  strata inspect entity Post --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runInspectEntityCommand,
	}
}

// newInspectTablesCommand creates the 'inspect tables' command
func newInspectTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List every table in the snapshot",
		Long: `List every table in the snapshot.

Shows entity tables in snapshot order followed by derived pivot tables,
with the owning class where one exists.`,
		Example: `  # List all tables
  strata inspect tables

  # List tables in JSON format
  strata inspect tables --format json`,
		RunE: runInspectTablesCommand,
	}
}

// newInspectDepsCommand creates the 'inspect deps' command
func newInspectDepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps <class>",
		Short: "Show the relation graph around an entity",
		Long: `Show the relation graph around an entity.

Walks the declared relations outward from the entity and prints the edges
reached. With --reverse the walk follows incoming relations instead,
answering "what depends on this entity".`,
		Example: `  # Direct dependencies of Post
  strata inspect deps Post

  # What depends on User
  strata inspect deps User --reverse

  # Walk two relation hops
  strata inspect deps Post --depth 2

  # Only many-to-many edges
  strata inspect deps Post --kind belongsToMany`,
		Args: cobra.ExactArgs(1),
		RunE: runInspectDepsCommand,
	}

	cmd.Flags().IntVar(&depsDepth, "depth", 1, "Traversal depth (0 = unlimited)")
	cmd.Flags().BoolVar(&depsReverse, "reverse", false, "Follow incoming relations instead")
	cmd.Flags().StringVar(&depsKind, "kind", "", "Keep only edges of this relation kind")

	return cmd
}

// loadInspectRegistry loads the snapshot selected by --snapshot (or the
// project config) and wraps it in a registry.
func loadInspectRegistry() (*metadata.Registry, error) {
	path := inspectSnapshot
	if path == "" {
		cfg, err := config.Load("")
		if err != nil {
			return nil, err
		}
		path = cfg.Output.Snapshot
	}

	snap, err := metadata.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no snapshot at %s - run 'strata build' first: %w", path, err)
	}
	return metadata.NewRegistry(snap), nil
}

// resolveClass maps a command-line argument to a class identifier. A bare
// type name is accepted when exactly one entity's class ends in it.
func resolveClass(reg *metadata.Registry, arg string) (string, error) {
	if _, err := reg.Entity(arg); err == nil {
		return arg, nil
	}

	if !strings.Contains(arg, ".") {
		matches := reg.EntitiesMatching("*." + arg)
		if len(matches) == 1 {
			return matches[0].Class, nil
		}
		if len(matches) > 1 {
			classes := make([]string, len(matches))
			for i, m := range matches {
				classes[i] = m.Class
			}
			return "", fmt.Errorf("ambiguous entity %s: matches %s", arg, strings.Join(classes, ", "))
		}
	}

	candidates := reg.Classes()
	for _, class := range reg.Classes() {
		if idx := strings.LastIndex(class, "."); idx >= 0 {
			candidates = append(candidates, class[idx+1:])
		}
	}
	if suggestions := ui.Suggest(arg, candidates); len(suggestions) > 0 {
		return "", fmt.Errorf("entity not found: %s (did you mean %s?)", arg, strings.Join(suggestions, ", "))
	}
	return "", fmt.Errorf("entity not found: %s", arg)
}

func runInspectEntitiesCommand(cmd *cobra.Command, args []string) error {
	reg, err := loadInspectRegistry()
	if err != nil {
		return err
	}

	writer := cmd.OutOrStdout()
	entities := reg.Entities()

	if outputFormat == "json" {
		return formatEntitiesAsJSON(entities, writer)
	}
	return formatEntitiesAsTable(entities, writer, verbose)
}

func runInspectEntityCommand(cmd *cobra.Command, args []string) error {
	reg, err := loadInspectRegistry()
	if err != nil {
		return err
	}

	class, err := resolveClass(reg, args[0])
	if err != nil {
		return err
	}
	entity, err := reg.Entity(class)
	if err != nil {
		return err
	}

	writer := cmd.OutOrStdout()
	if outputFormat == "json" {
		return writeJSON(writer, entity)
	}
	return formatEntityAsTable(entity, reg, writer, verbose)
}

func runInspectTablesCommand(cmd *cobra.Command, args []string) error {
	reg, err := loadInspectRegistry()
	if err != nil {
		return err
	}

	writer := cmd.OutOrStdout()
	tables := reg.Snapshot().Tables()

	if outputFormat == "json" {
		return formatTablesAsJSON(tables, reg, writer)
	}
	return formatTablesAsTable(tables, reg, writer)
}

func runInspectDepsCommand(cmd *cobra.Command, args []string) error {
	reg, err := loadInspectRegistry()
	if err != nil {
		return err
	}

	class, err := resolveClass(reg, args[0])
	if err != nil {
		return err
	}

	opts := metadata.DependencyOptions{
		Depth:   depsDepth,
		Reverse: depsReverse,
	}
	if depsKind != "" {
		opts.Kinds = []string{depsKind}
	}

	graph, err := reg.Dependencies(class, opts)
	if err != nil {
		return err
	}

	writer := cmd.OutOrStdout()
	if outputFormat == "json" {
		return writeJSON(writer, graph)
	}
	return formatDepsAsTable(class, graph, opts, writer)
}

func writeJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// entityTraits names the per-entity behaviors recorded in the snapshot.
func entityTraits(entity *metadata.EntityMetadata) []string {
	var traits []string
	if entity.Timestamps {
		traits = append(traits, "timestamps")
	}
	if entity.SoftDeletes {
		traits = append(traits, "soft deletes")
	}
	if entity.Versionable {
		traits = append(traits, "versionable")
	}
	return traits
}

func formatEntitiesAsTable(entities []metadata.EntityMetadata, writer io.Writer, verbose bool) error {
	if len(entities) == 0 {
		fmt.Fprintln(writer, "No entities found.")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Fprintf(writer, "ENTITIES (%d total)\n\n", len(entities))

	headers := []string{"CLASS", "TABLE", "COLUMNS", "RELATIONS"}
	if verbose {
		headers = append(headers, "TRAITS")
	}
	table := ui.NewTable(writer, headers...)

	for i := range entities {
		entity := &entities[i]
		row := []string{
			entity.Class,
			entity.Table.Name,
			strconv.Itoa(len(entity.Table.Columns)),
			strconv.Itoa(len(entity.Relations)),
		}
		if verbose {
			row = append(row, strings.Join(entityTraits(entity), ", "))
		}
		table.AddRow(row...)
	}
	table.Render()

	return nil
}

func formatEntitiesAsJSON(entities []metadata.EntityMetadata, writer io.Writer) error {
	type entitySummary struct {
		Class         string   `json:"class"`
		Table         string   `json:"table"`
		ColumnCount   int      `json:"column_count"`
		RelationCount int      `json:"relation_count"`
		PivotCount    int      `json:"pivot_count,omitempty"`
		Traits        []string `json:"traits,omitempty"`
	}

	output := struct {
		TotalCount int             `json:"total_count"`
		Entities   []entitySummary `json:"entities"`
	}{
		TotalCount: len(entities),
		Entities:   make([]entitySummary, 0, len(entities)),
	}

	for i := range entities {
		entity := &entities[i]
		output.Entities = append(output.Entities, entitySummary{
			Class:         entity.Class,
			Table:         entity.Table.Name,
			ColumnCount:   len(entity.Table.Columns),
			RelationCount: len(entity.Relations),
			PivotCount:    len(entity.Pivots),
			Traits:        entityTraits(entity),
		})
	}

	return writeJSON(writer, output)
}

// columnTypeString renders a column type with its declared size arguments.
func columnTypeString(col *metadata.ColumnMetadata) string {
	switch {
	case col.Length > 0:
		return fmt.Sprintf("%s(%d)", col.Type, col.Length)
	case col.Precision > 0 && col.Scale > 0:
		return fmt.Sprintf("%s(%d,%d)", col.Type, col.Precision, col.Scale)
	case col.Precision > 0:
		return fmt.Sprintf("%s(%d)", col.Type, col.Precision)
	default:
		return col.Type
	}
}

func columnModifiers(col *metadata.ColumnMetadata) string {
	var mods []string
	if col.Primary {
		mods = append(mods, "primary")
	}
	if col.AutoIncrement {
		mods = append(mods, "auto increment")
	}
	if col.Unique {
		mods = append(mods, "unique")
	}
	if col.Index {
		mods = append(mods, "indexed")
	}
	if col.Nullable {
		mods = append(mods, "nullable")
	}
	if col.Unsigned {
		mods = append(mods, "unsigned")
	}
	if col.Default != "" {
		mods = append(mods, "default "+col.Default)
	}
	return strings.Join(mods, ", ")
}

func formatEntityAsTable(entity *metadata.EntityMetadata, reg *metadata.Registry, writer io.Writer, verbose bool) error {
	kv := ui.NewKeyValue(writer)
	kv.Add("Class", entity.Class)
	kv.Add("Table", entity.Table.Name)
	if pk, ok := entity.Table.PrimaryColumn(); ok {
		kv.Add("Primary key", pk.Name)
	}
	if traits := entityTraits(entity); len(traits) > 0 {
		kv.Add("Traits", strings.Join(traits, ", "))
	}
	kv.Render()
	fmt.Fprintln(writer)

	ui.Header(writer, fmt.Sprintf("COLUMNS (%d)", len(entity.Table.Columns)))
	columns := ui.NewTable(writer, "NAME", "TYPE", "MODIFIERS")
	for i := range entity.Table.Columns {
		col := &entity.Table.Columns[i]
		columns.AddRow(col.Name, columnTypeString(col), columnModifiers(col))
	}
	columns.Render()

	if len(entity.Relations) > 0 {
		fmt.Fprintln(writer)
		ui.Header(writer, fmt.Sprintf("RELATIONS (%d)", len(entity.Relations)))
		relations := ui.NewTable(writer, "NAME", "KIND", "TARGET")
		for _, rel := range entity.Relations {
			target := rel.Related
			if target == "" {
				target = "(polymorphic)"
			}
			relations.AddRow(rel.Name, rel.Kind, target)
		}
		relations.Render()
	}

	if len(entity.Pivots) > 0 {
		fmt.Fprintln(writer)
		ui.Header(writer, fmt.Sprintf("PIVOT TABLES (%d)", len(entity.Pivots)))
		pivots := ui.NewTable(writer, "TABLE", "COLUMNS")
		for _, pivot := range entity.Pivots {
			names := make([]string, len(pivot.Columns))
			for i := range pivot.Columns {
				names[i] = pivot.Columns[i].Name
			}
			pivots.AddRow(pivot.Name, strings.Join(names, ", "))
		}
		pivots.Render()
	}

	if len(entity.Embedded) > 0 {
		fmt.Fprintln(writer)
		ui.Header(writer, fmt.Sprintf("EMBEDDED (%d)", len(entity.Embedded)))
		embedded := ui.NewTable(writer, "PROPERTY", "CLASS", "ATTRIBUTES")
		for _, emb := range entity.Embedded {
			embedded.AddRow(emb.Property, emb.Class, strings.Join(emb.Attributes, ", "))
		}
		embedded.Render()
	}

	if verbose {
		incoming := reg.RelationsTo(entity.Class)
		if len(incoming) > 0 {
			fmt.Fprintln(writer)
			ui.Header(writer, fmt.Sprintf("REFERENCED BY (%d)", len(incoming)))
			refs := ui.NewTable(writer, "CLASS", "RELATION", "KIND")
			for _, ref := range incoming {
				refs.AddRow(ref.SourceClass, ref.Relation.Name, ref.Relation.Kind)
			}
			refs.Render()
		}

		var details [][2]string
		if len(entity.Hidden) > 0 {
			details = append(details, [2]string{"Hidden", strings.Join(entity.Hidden, ", ")})
		}
		if len(entity.Visible) > 0 {
			details = append(details, [2]string{"Visible", strings.Join(entity.Visible, ", ")})
		}
		if len(entity.Touches) > 0 {
			details = append(details, [2]string{"Touches", strings.Join(entity.Touches, ", ")})
		}
		if len(entity.Attributes) > 0 {
			details = append(details, [2]string{"Attributes", strings.Join(entity.Attributes, ", ")})
		}
		if len(details) > 0 {
			fmt.Fprintln(writer)
			kv := ui.NewKeyValue(writer)
			for _, d := range details {
				kv.Add(d[0], d[1])
			}
			kv.Render()
		}
	}

	return nil
}

func formatTablesAsTable(tables []metadata.TableMetadata, reg *metadata.Registry, writer io.Writer) error {
	if len(tables) == 0 {
		fmt.Fprintln(writer, "No tables found.")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Fprintf(writer, "TABLES (%d total)\n\n", len(tables))

	table := ui.NewTable(writer, "TABLE", "CLASS", "COLUMNS")
	for i := range tables {
		class := "(pivot)"
		if entity, err := reg.EntityByTable(tables[i].Name); err == nil {
			class = entity.Class
		}
		table.AddRow(tables[i].Name, class, strconv.Itoa(len(tables[i].Columns)))
	}
	table.Render()

	return nil
}

func formatTablesAsJSON(tables []metadata.TableMetadata, reg *metadata.Registry, writer io.Writer) error {
	type tableSummary struct {
		Name    string   `json:"name"`
		Class   string   `json:"class,omitempty"`
		Pivot   bool     `json:"pivot,omitempty"`
		Columns []string `json:"columns"`
	}

	output := struct {
		TotalCount int            `json:"total_count"`
		Tables     []tableSummary `json:"tables"`
	}{
		TotalCount: len(tables),
		Tables:     make([]tableSummary, 0, len(tables)),
	}

	for i := range tables {
		summary := tableSummary{Name: tables[i].Name}
		if entity, err := reg.EntityByTable(tables[i].Name); err == nil {
			summary.Class = entity.Class
		} else {
			summary.Pivot = true
		}
		for j := range tables[i].Columns {
			summary.Columns = append(summary.Columns, tables[i].Columns[j].Name)
		}
		output.Tables = append(output.Tables, summary)
	}

	return writeJSON(writer, output)
}

func formatDepsAsTable(class string, graph *metadata.DependencyGraph, opts metadata.DependencyOptions, writer io.Writer) error {
	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow)

	direction := "DEPENDENCIES OF"
	if opts.Reverse {
		direction = "DEPENDENTS OF"
	}
	bold.Fprintf(writer, "%s %s (%d edges)\n\n", direction, class, len(graph.Edges))

	if len(graph.Edges) == 0 {
		fmt.Fprintln(writer, "No relations found.")
		return nil
	}

	edges := make([]metadata.DependencyEdge, len(graph.Edges))
	copy(edges, graph.Edges)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].Relation != edges[j].Relation {
			return edges[i].Relation < edges[j].Relation
		}
		return edges[i].To < edges[j].To
	})

	table := ui.NewTable(writer, "FROM", "RELATION", "KIND", "TO")
	for _, edge := range edges {
		table.AddRow(edge.From, edge.Relation, edge.Kind, edge.To)
	}
	table.Render()

	if cycles := metadata.DetectCycles(graph); len(cycles) > 0 {
		fmt.Fprintln(writer)
		for _, cycle := range cycles {
			yellow.Fprintf(writer, "Cycle: %s\n", strings.Join(cycle, " -> "))
		}
	}

	return nil
}
