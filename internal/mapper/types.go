// Package mapper builds relational mapping metadata from annotated classes:
// it interprets annotation records, derives the columns and pivot tables each
// relation implies, applies naming conventions, and validates the result.
package mapper

import (
	"fmt"
	"sort"

	"github.com/strata-db/strata/internal/annotation"
)

// Column is one table column, derived from an attribute annotation or from a
// relation's side effects.
type Column struct {
	Name     string
	Type     annotation.ColumnType
	Nullable bool
	Primary  bool
	Unique   bool
	Index    bool
	Default  *string
	Options  ColumnOptions
}

// ColumnOptions carries type-specific facets. Fields are nil unless the
// source annotation declared them.
type ColumnOptions struct {
	Scale         *int
	Precision     *int
	Length        *int
	Unsigned      *bool
	AutoIncrement *bool
}

// IsUnsigned reports whether the unsigned facet was declared true.
func (o ColumnOptions) IsUnsigned() bool {
	return o.Unsigned != nil && *o.Unsigned
}

// IsAutoIncrement reports whether the autoIncrement facet was declared true.
func (o ColumnOptions) IsAutoIncrement() bool {
	return o.AutoIncrement != nil && *o.AutoIncrement
}

// Table is an ordered set of columns. Insertion order is declaration order
// and is preserved through serialization. Entity tables are owned by their
// Entity; pivot tables are free-standing and owned by a Relation.
type Table struct {
	Name    string
	columns []*Column
	index   map[string]int
}

// NewTable returns an empty table with the given name.
func NewTable(name string) *Table {
	return &Table{Name: name, index: make(map[string]int)}
}

// AddColumn appends a column. A second column with the same name is a
// configuration error.
func (t *Table) AddColumn(col *Column) error {
	if _, exists := t.index[col.Name]; exists {
		return fmt.Errorf("duplicate column %q on table %q", col.Name, t.Name)
	}
	t.index[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	return nil
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Columns returns the columns in declaration order.
func (t *Table) Columns() []*Column {
	cols := make([]*Column, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// PrimaryColumns returns the columns marked primary, in declaration order.
func (t *Table) PrimaryColumns() []*Column {
	var primary []*Column
	for _, col := range t.columns {
		if col.Primary {
			primary = append(primary, col)
		}
	}
	return primary
}

// Len returns the number of columns.
func (t *Table) Len() int {
	return len(t.columns)
}

// Attribute marks one persisted scalar property. The type and facets live on
// the paired column of the owner's table.
type Attribute struct {
	Name string
}

// EmbeddedClass records a value-object property whose attribute columns are
// flattened into the owner's table.
type EmbeddedClass struct {
	Name       string
	Class      string
	Attributes []*Attribute
}

// Relation records one association between two classes. For belongsToMany
// and morphToMany the relation owns its pivot table.
type Relation struct {
	Name         string
	Type         annotation.RelationKind
	RelatedClass string
	PivotTable   *Table
	Options      annotation.RelationOptions
}

// Entity describes how one class maps to a relational table.
type Entity struct {
	Class       string
	Table       *Table
	Attributes  []*Attribute
	Embeddeds   []*EmbeddedClass
	Relations   []*Relation
	SoftDeletes bool
	Timestamps  bool
	Versionable bool
	Hidden      []string
	Visible     []string
	Touches     []string
}

// Attribute returns the named attribute.
func (e *Entity) Attribute(name string) (*Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Embedded returns the named embedded class.
func (e *Entity) Embedded(name string) (*EmbeddedClass, bool) {
	for _, ec := range e.Embeddeds {
		if ec.Name == name {
			return ec, true
		}
	}
	return nil, false
}

// Relation returns the named relation.
func (e *Entity) Relation(name string) (*Relation, bool) {
	for _, r := range e.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Mapping is the result of one build: entity metadata keyed by class
// identifier, held read-only by consumers. Iteration order is input order.
type Mapping struct {
	entities []*Entity
	byClass  map[string]*Entity
}

func newMapping() *Mapping {
	return &Mapping{byClass: make(map[string]*Entity)}
}

func (m *Mapping) add(e *Entity) {
	if _, exists := m.byClass[e.Class]; exists {
		return
	}
	m.byClass[e.Class] = e
	m.entities = append(m.entities, e)
}

// Entity returns the metadata for a class identifier.
func (m *Mapping) Entity(class string) (*Entity, bool) {
	e, ok := m.byClass[class]
	return e, ok
}

// Entities returns all entities in build input order.
func (m *Mapping) Entities() []*Entity {
	entities := make([]*Entity, len(m.entities))
	copy(entities, m.entities)
	return entities
}

// Classes returns the mapped class identifiers in build input order.
func (m *Mapping) Classes() []string {
	classes := make([]string, len(m.entities))
	for i, e := range m.entities {
		classes[i] = e.Class
	}
	return classes
}

// EntityByTable returns the entity whose table has the given name.
func (m *Mapping) EntityByTable(table string) (*Entity, bool) {
	for _, e := range m.entities {
		if e.Table.Name == table {
			return e, true
		}
	}
	return nil, false
}

// TableNames returns every table name in the mapping, entity tables in build
// order followed by pivot tables sorted by name.
func (m *Mapping) TableNames() []string {
	var names []string
	for _, e := range m.entities {
		names = append(names, e.Table.Name)
	}
	var pivots []string
	seen := make(map[string]bool)
	for _, e := range m.entities {
		for _, r := range e.Relations {
			if r.PivotTable != nil && !seen[r.PivotTable.Name] {
				seen[r.PivotTable.Name] = true
				pivots = append(pivots, r.PivotTable.Name)
			}
		}
	}
	sort.Strings(pivots)
	return append(names, pivots...)
}

// Len returns the number of mapped entities.
func (m *Mapping) Len() int {
	return len(m.entities)
}
