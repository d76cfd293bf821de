// Package ddl renders PostgreSQL schema scripts from mapping snapshots.
//
// A script creates every entity and pivot table, then the indexes the
// mapping implies, then foreign-key constraints. Constraints are emitted as
// ALTER TABLE statements after every table exists. Output is deterministic
// for a given snapshot.
package ddl

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/strata-db/strata/internal/mapper"
	"github.com/strata-db/strata/runtime/metadata"
)

// DialectPostgres is the only dialect the generator currently speaks.
const DialectPostgres = "postgres"

// Config configures a Generator.
type Config struct {
	// Dialect selects the SQL dialect. Empty means postgres.
	Dialect string
	// Logger receives generation diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// Generator renders schema DDL for the tables of a snapshot. Foreign-key and
// morph column names are derived with the same rules the mapper uses, so the
// generated statements always line up with the snapshot's tables.
type Generator struct {
	dialect string
	naming  *mapper.Resolver
	logger  *zap.Logger
}

// New returns a generator for the configured dialect.
func New(cfg Config) (*Generator, error) {
	dialect := cfg.Dialect
	if dialect == "" {
		dialect = DialectPostgres
	}
	if dialect != DialectPostgres {
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{dialect: dialect, naming: mapper.NewResolver(""), logger: logger}, nil
}

// Generate renders the full schema script for a snapshot.
func (g *Generator) Generate(snap *metadata.Snapshot) (string, error) {
	if snap == nil {
		return "", fmt.Errorf("snapshot cannot be nil")
	}

	entities := g.orderEntities(snap)
	pivots := collectPivots(entities)

	var stmts []string
	for _, ent := range entities {
		stmt, err := g.createTable(ent.Table.Name, g.tableColumns(ent))
		if err != nil {
			return "", fmt.Errorf("entity %s: %w", ent.Class, err)
		}
		stmts = append(stmts, stmt)
	}
	for _, pivot := range pivots {
		stmt, err := g.createTable(pivot.Name, pivot.Columns)
		if err != nil {
			return "", fmt.Errorf("pivot table %s: %w", pivot.Name, err)
		}
		stmts = append(stmts, stmt)
	}

	stmts = append(stmts, g.indexStatements(entities)...)
	stmts = append(stmts, g.foreignKeyStatements(snap, entities)...)

	g.logger.Debug("schema script generated",
		zap.Int("tables", len(entities)+len(pivots)),
		zap.Int("statements", len(stmts)))

	return strings.Join(stmts, "\n\n") + "\n", nil
}

// orderEntities returns the snapshot's entities ordered so that belongsTo
// targets are created before the tables referencing them. Ties keep snapshot
// order. When the references are cyclic the remaining entities fall back to
// snapshot order.
func (g *Generator) orderEntities(snap *metadata.Snapshot) []metadata.EntityMetadata {
	indexByClass := make(map[string]int, len(snap.Entities))
	for i, ent := range snap.Entities {
		indexByClass[ent.Class] = i
	}

	dependents := make([][]int, len(snap.Entities))
	indegree := make([]int, len(snap.Entities))
	for i, ent := range snap.Entities {
		for _, rel := range ent.Relations {
			if rel.Kind != "belongsTo" {
				continue
			}
			j, ok := indexByClass[rel.Related]
			if !ok || j == i {
				continue
			}
			dependents[j] = append(dependents[j], i)
			indegree[i]++
		}
	}

	ordered := make([]metadata.EntityMetadata, 0, len(snap.Entities))
	emitted := make([]bool, len(snap.Entities))
	for len(ordered) < len(snap.Entities) {
		next := -1
		for i := range snap.Entities {
			if !emitted[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			g.logger.Warn("cyclic belongsTo references; keeping declaration order for remaining tables")
			for i := range snap.Entities {
				if !emitted[i] {
					ordered = append(ordered, snap.Entities[i])
				}
			}
			return ordered
		}
		emitted[next] = true
		ordered = append(ordered, snap.Entities[next])
		for _, dep := range dependents[next] {
			indegree[dep]--
		}
	}
	return ordered
}

// collectPivots gathers each distinct pivot table once, in the order the
// owning entities appear.
func collectPivots(entities []metadata.EntityMetadata) []metadata.TableMetadata {
	var pivots []metadata.TableMetadata
	seen := make(map[string]bool)
	for _, ent := range entities {
		for _, pivot := range ent.Pivots {
			if seen[pivot.Name] {
				continue
			}
			seen[pivot.Name] = true
			pivots = append(pivots, pivot)
		}
	}
	return pivots
}

// tableColumns returns the entity's columns followed by the ambient columns
// its class flags imply. A declared column with the same name wins over the
// ambient one.
func (g *Generator) tableColumns(ent metadata.EntityMetadata) []metadata.ColumnMetadata {
	cols := append([]metadata.ColumnMetadata(nil), ent.Table.Columns...)
	has := func(name string) bool {
		for _, c := range cols {
			if c.Name == name {
				return true
			}
		}
		return false
	}

	if ent.Timestamps {
		for _, name := range []string{"created_at", "updated_at"} {
			if !has(name) {
				cols = append(cols, metadata.ColumnMetadata{Name: name, Type: "timestamp", Default: "now()"})
			}
		}
	}
	if ent.SoftDeletes && !has("deleted_at") {
		cols = append(cols, metadata.ColumnMetadata{Name: "deleted_at", Type: "timestamp", Nullable: true})
	}
	if ent.Versionable && !has("version") {
		cols = append(cols, metadata.ColumnMetadata{Name: "version", Type: "integer", Default: "0"})
	}
	return cols
}

func (g *Generator) createTable(name string, cols []metadata.ColumnMetadata) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("table %s has no columns", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", QuoteIdentifier(name))
	for i, col := range cols {
		def, err := g.columnDefinition(col)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", col.Name, err)
		}
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(cols)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String(), nil
}

func (g *Generator) columnDefinition(col metadata.ColumnMetadata) (string, error) {
	sqlType, err := columnSQLType(col)
	if err != nil {
		return "", err
	}
	// SERIAL types imply NOT NULL and carry their own sequence default.
	serial := strings.HasSuffix(sqlType, "SERIAL")

	parts := []string{QuoteIdentifier(col.Name), sqlType}
	if !serial {
		if col.Nullable {
			parts = append(parts, "NULL")
		} else {
			parts = append(parts, "NOT NULL")
		}
		if col.Default != "" {
			parts = append(parts, "DEFAULT "+formatDefault(col))
		}
	}
	if col.Primary {
		parts = append(parts, "PRIMARY KEY")
	}
	if col.Unique && !col.Primary {
		parts = append(parts, "UNIQUE")
	}
	if col.Unsigned && !serial && isNumericType(col.Type) {
		parts = append(parts, fmt.Sprintf("CHECK (%s >= 0)", QuoteIdentifier(col.Name)))
	}
	return strings.Join(parts, " "), nil
}

// belongsToColumn returns the owner-side foreign-key column of a belongsTo
// relation, honoring an otherKey override.
func (g *Generator) belongsToColumn(rel metadata.RelationMetadata) string {
	if rel.OtherKey != "" {
		return rel.OtherKey
	}
	return g.naming.ForeignKeyColumn(rel.Related)
}

func (g *Generator) morphName(rel metadata.RelationMetadata) string {
	if rel.MorphName != "" {
		return rel.MorphName
	}
	return g.naming.MorphName(rel.Name)
}

// morphToColumns returns the id and type column names of a morphTo relation.
func (g *Generator) morphToColumns(rel metadata.RelationMetadata) (string, string) {
	name := g.morphName(rel)
	idCol := rel.MorphID
	if idCol == "" {
		idCol = name + "_id"
	}
	typeCol := rel.MorphType
	if typeCol == "" {
		typeCol = name + "_type"
	}
	return idCol, typeCol
}

// pivotKeys returns the owner-side and related-side key columns of a
// belongsToMany or morphToMany pivot table.
func (g *Generator) pivotKeys(ownerClass string, rel metadata.RelationMetadata) (string, string) {
	ownerKey := rel.ForeignKey
	if ownerKey == "" {
		ownerKey = g.naming.ForeignKeyColumn(ownerClass)
	}
	otherKey := rel.OtherKey
	if otherKey == "" {
		if rel.Kind == "morphToMany" {
			otherKey = g.morphName(rel) + "_id"
		} else {
			otherKey = g.naming.ForeignKeyColumn(rel.Related)
		}
	}
	return ownerKey, otherKey
}
