// Package snapshot converts built mapping metadata into the public snapshot
// artifact consumers load at runtime.
package snapshot

import (
	"time"

	"github.com/google/uuid"

	"github.com/strata-db/strata/internal/mapper"
	"github.com/strata-db/strata/runtime/metadata"
)

// Options carries the provenance recorded on a snapshot. Zero values are
// filled in: a random build ID and the current UTC time.
type Options struct {
	ToolVersion   string
	SourceHash    string
	RootNamespace string
	BuildID       string
	GeneratedAt   time.Time
}

// Build converts a mapping into a snapshot. Entity order follows the
// mapping's build order so serialized output is stable.
func Build(m *mapper.Mapping, opts Options) *metadata.Snapshot {
	if opts.BuildID == "" {
		opts.BuildID = uuid.NewString()
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}

	snap := &metadata.Snapshot{
		FormatVersion: metadata.FormatVersion,
		ToolVersion:   opts.ToolVersion,
		BuildID:       opts.BuildID,
		SourceHash:    opts.SourceHash,
		RootNamespace: opts.RootNamespace,
		GeneratedAt:   opts.GeneratedAt,
		Entities:      make([]metadata.EntityMetadata, 0, m.Len()),
	}
	for _, entity := range m.Entities() {
		snap.Entities = append(snap.Entities, convertEntity(entity))
	}
	return snap
}

func convertEntity(e *mapper.Entity) metadata.EntityMetadata {
	out := metadata.EntityMetadata{
		Class:       e.Class,
		Table:       convertTable(e.Table),
		SoftDeletes: e.SoftDeletes,
		Timestamps:  e.Timestamps,
		Versionable: e.Versionable,
		Hidden:      copyStrings(e.Hidden),
		Visible:     copyStrings(e.Visible),
		Touches:     copyStrings(e.Touches),
	}

	for _, attr := range e.Attributes {
		out.Attributes = append(out.Attributes, attr.Name)
	}
	for _, emb := range e.Embeddeds {
		em := metadata.EmbeddedMetadata{Property: emb.Name, Class: emb.Class}
		for _, attr := range emb.Attributes {
			em.Attributes = append(em.Attributes, attr.Name)
		}
		out.Embedded = append(out.Embedded, em)
	}

	seenPivots := make(map[string]bool)
	for _, rel := range e.Relations {
		out.Relations = append(out.Relations, convertRelation(rel))
		if rel.PivotTable != nil && !seenPivots[rel.PivotTable.Name] {
			seenPivots[rel.PivotTable.Name] = true
			out.Pivots = append(out.Pivots, convertTable(rel.PivotTable))
		}
	}
	return out
}

func convertTable(t *mapper.Table) metadata.TableMetadata {
	out := metadata.TableMetadata{Name: t.Name}
	for _, col := range t.Columns() {
		out.Columns = append(out.Columns, convertColumn(col))
	}
	return out
}

func convertColumn(col *mapper.Column) metadata.ColumnMetadata {
	out := metadata.ColumnMetadata{
		Name:          col.Name,
		Type:          col.Type.String(),
		Nullable:      col.Nullable,
		Primary:       col.Primary,
		Unique:        col.Unique,
		Index:         col.Index,
		Unsigned:      col.Options.IsUnsigned(),
		AutoIncrement: col.Options.IsAutoIncrement(),
	}
	if col.Default != nil {
		out.Default = *col.Default
	}
	if col.Options.Length != nil {
		out.Length = *col.Options.Length
	}
	if col.Options.Precision != nil {
		out.Precision = *col.Options.Precision
	}
	if col.Options.Scale != nil {
		out.Scale = *col.Options.Scale
	}
	return out
}

func convertRelation(r *mapper.Relation) metadata.RelationMetadata {
	out := metadata.RelationMetadata{
		Name:       r.Name,
		Kind:       r.Type.String(),
		Related:    r.RelatedClass,
		ForeignKey: r.Options.ForeignKey,
		OtherKey:   r.Options.OtherKey,
		LocalKey:   r.Options.LocalKey,
		Through:    r.Options.Through,
		FirstKey:   r.Options.FirstKey,
		SecondKey:  r.Options.SecondKey,
		MorphName:  r.Options.Name,
		MorphType:  r.Options.Type,
		MorphID:    r.Options.ID,
		Relation:   r.Options.Relation,
		Inverse:    r.Options.Inverse,
	}
	if r.PivotTable != nil {
		out.PivotTable = r.PivotTable.Name
	}
	return out
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
