package ddl

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/strata-db/strata/runtime/metadata"
)

// foreignKeyStatements renders ALTER TABLE ADD CONSTRAINT statements for the
// foreign keys relations imply: the belongsTo column on the owner table, and
// the key columns of belongsToMany and morphToMany pivot tables. The morph
// side of a pivot references no single table and gets no constraint, as does
// any relation whose target class is not mapped with a primary key. Each
// constraint name is emitted once and the statements are sorted.
func (g *Generator) foreignKeyStatements(snap *metadata.Snapshot, entities []metadata.EntityMetadata) []string {
	var stmts []string
	seen := make(map[string]bool)

	add := func(table, column, targetTable, targetColumn string) {
		name := fmt.Sprintf("%s_%s_fkey", table, column)
		if seen[name] {
			return
		}
		seen[name] = true
		stmts = append(stmts, fmt.Sprintf(
			"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);",
			QuoteIdentifier(table), QuoteIdentifier(name), QuoteIdentifier(column),
			QuoteIdentifier(targetTable), QuoteIdentifier(targetColumn)))
	}

	primaryOf := func(class string) (string, string, bool) {
		ent, ok := snap.Entity(class)
		if !ok {
			return "", "", false
		}
		pk, ok := ent.Table.PrimaryColumn()
		if !ok {
			return "", "", false
		}
		return ent.Table.Name, pk.Name, true
	}

	for _, ent := range entities {
		for _, rel := range ent.Relations {
			switch rel.Kind {
			case "belongsTo":
				targetTable, targetPK, ok := primaryOf(rel.Related)
				if !ok {
					g.logger.Debug("no foreign key: related class has no mapped primary key",
						zap.String("class", ent.Class),
						zap.String("relation", rel.Name),
						zap.String("related", rel.Related))
					continue
				}
				add(ent.Table.Name, g.belongsToColumn(rel), targetTable, targetPK)
			case "belongsToMany":
				ownerKey, otherKey := g.pivotKeys(ent.Class, rel)
				if ownerTable, ownerPK, ok := primaryOf(ent.Class); ok {
					add(rel.PivotTable, ownerKey, ownerTable, ownerPK)
				}
				if targetTable, targetPK, ok := primaryOf(rel.Related); ok {
					add(rel.PivotTable, otherKey, targetTable, targetPK)
				} else {
					g.logger.Debug("no foreign key: related class has no mapped primary key",
						zap.String("class", ent.Class),
						zap.String("relation", rel.Name),
						zap.String("related", rel.Related))
				}
			case "morphToMany":
				ownerKey, _ := g.pivotKeys(ent.Class, rel)
				if ownerTable, ownerPK, ok := primaryOf(ent.Class); ok {
					add(rel.PivotTable, ownerKey, ownerTable, ownerPK)
				}
			}
		}
	}

	sort.Strings(stmts)
	return stmts
}
