package ddl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/strata-db/strata/runtime/metadata"
)

// indexStatements renders CREATE INDEX statements for indexed columns and for
// the key columns relations add: belongsTo foreign keys, morphTo id/type
// pairs, and pivot table keys. Each index name is emitted once and the
// statements are sorted.
func (g *Generator) indexStatements(entities []metadata.EntityMetadata) []string {
	var stmts []string
	seen := make(map[string]bool)

	add := func(table, indexName string, columns ...string) {
		if seen[indexName] {
			return
		}
		seen[indexName] = true
		quoted := make([]string, len(columns))
		for i, col := range columns {
			quoted[i] = QuoteIdentifier(col)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
			QuoteIdentifier(indexName), QuoteIdentifier(table), strings.Join(quoted, ", ")))
	}

	for _, ent := range entities {
		table := ent.Table.Name
		for _, col := range ent.Table.Columns {
			if col.Index {
				add(table, fmt.Sprintf("idx_%s_%s", table, col.Name), col.Name)
			}
		}
		for _, rel := range ent.Relations {
			switch rel.Kind {
			case "belongsTo":
				col := g.belongsToColumn(rel)
				add(table, fmt.Sprintf("idx_%s_%s", table, col), col)
			case "morphTo":
				idCol, typeCol := g.morphToColumns(rel)
				add(table, fmt.Sprintf("idx_%s_%s", table, g.morphName(rel)), idCol, typeCol)
			case "belongsToMany":
				ownerKey, otherKey := g.pivotKeys(ent.Class, rel)
				add(rel.PivotTable, fmt.Sprintf("idx_%s_%s", rel.PivotTable, ownerKey), ownerKey)
				add(rel.PivotTable, fmt.Sprintf("idx_%s_%s", rel.PivotTable, otherKey), otherKey)
			case "morphToMany":
				ownerKey, morphKey := g.pivotKeys(ent.Class, rel)
				name := g.morphName(rel)
				add(rel.PivotTable, fmt.Sprintf("idx_%s_%s", rel.PivotTable, ownerKey), ownerKey)
				add(rel.PivotTable, fmt.Sprintf("idx_%s_%s", rel.PivotTable, name), morphKey, name+"_type")
			}
		}
	}

	sort.Strings(stmts)
	return stmts
}
