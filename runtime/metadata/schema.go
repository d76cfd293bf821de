// Package metadata defines the mapping snapshot strata emits for an
// application and the registry used to query it at runtime. The snapshot is
// the contract between the build tool and metadata consumers: a JSON
// document describing every mapped entity, its table and columns, and the
// relations and pivot tables derived from the source annotations.
package metadata

import (
	"encoding/json"
	"time"
)

// FormatVersion identifies the snapshot wire format. Consumers reject
// snapshots with a version they do not understand.
const FormatVersion = "1"

// Snapshot is the complete mapping metadata for one application.
type Snapshot struct {
	FormatVersion string           `json:"format_version"`
	ToolVersion   string           `json:"tool_version,omitempty"`
	BuildID       string           `json:"build_id,omitempty"`
	SourceHash    string           `json:"source_hash,omitempty"` // hash of the scanned sources, for up-to-date checks
	RootNamespace string           `json:"root_namespace"`
	GeneratedAt   time.Time        `json:"generated_at"`
	Entities      []EntityMetadata `json:"entities"`
}

// EntityMetadata describes one mapped class.
type EntityMetadata struct {
	Class       string             `json:"class"`
	Table       TableMetadata      `json:"table"`
	SoftDeletes bool               `json:"soft_deletes,omitempty"`
	Timestamps  bool               `json:"timestamps,omitempty"`
	Versionable bool               `json:"versionable,omitempty"`
	Hidden      []string           `json:"hidden,omitempty"`
	Visible     []string           `json:"visible,omitempty"`
	Touches     []string           `json:"touches,omitempty"`
	Attributes  []string           `json:"attributes,omitempty"`
	Embedded    []EmbeddedMetadata `json:"embedded,omitempty"`
	Relations   []RelationMetadata `json:"relations,omitempty"`
	Pivots      []TableMetadata    `json:"pivots,omitempty"`
}

// TableMetadata describes one relational table with its columns in
// declaration order.
type TableMetadata struct {
	Name    string           `json:"name"`
	Columns []ColumnMetadata `json:"columns"`
}

// ColumnMetadata describes one column. Facets the source never declared are
// zero and omitted from the wire form.
type ColumnMetadata struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Nullable      bool   `json:"nullable,omitempty"`
	Default       string `json:"default,omitempty"`
	Primary       bool   `json:"primary,omitempty"`
	Unique        bool   `json:"unique,omitempty"`
	Index         bool   `json:"index,omitempty"`
	Length        int    `json:"length,omitempty"`
	Precision     int    `json:"precision,omitempty"`
	Scale         int    `json:"scale,omitempty"`
	Unsigned      bool   `json:"unsigned,omitempty"`
	AutoIncrement bool   `json:"auto_increment,omitempty"`
}

// EmbeddedMetadata describes a value-object property whose attribute columns
// are flattened into the owner's table.
type EmbeddedMetadata struct {
	Property   string   `json:"property"`
	Class      string   `json:"class"`
	Attributes []string `json:"attributes,omitempty"`
}

// RelationMetadata describes one association. Only options the source
// declared explicitly appear; consumers derive the conventional defaults the
// same way the build tool does.
type RelationMetadata struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Related    string `json:"related,omitempty"`
	PivotTable string `json:"pivot_table,omitempty"`
	ForeignKey string `json:"foreign_key,omitempty"`
	OtherKey   string `json:"other_key,omitempty"`
	LocalKey   string `json:"local_key,omitempty"`
	Through    string `json:"through,omitempty"`
	FirstKey   string `json:"first_key,omitempty"`
	SecondKey  string `json:"second_key,omitempty"`
	MorphName  string `json:"morph_name,omitempty"`
	MorphType  string `json:"morph_type,omitempty"`
	MorphID    string `json:"morph_id,omitempty"`
	Relation   string `json:"relation,omitempty"`
	Inverse    bool   `json:"inverse,omitempty"`
}

// Entity returns the entity metadata for a class identifier.
func (s *Snapshot) Entity(class string) (*EntityMetadata, bool) {
	for i := range s.Entities {
		if s.Entities[i].Class == class {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// Tables returns every table in the snapshot: entity tables in entity order,
// then pivot tables in first-appearance order.
func (s *Snapshot) Tables() []TableMetadata {
	var tables []TableMetadata
	for i := range s.Entities {
		tables = append(tables, s.Entities[i].Table)
	}
	seen := make(map[string]bool)
	for i := range s.Entities {
		for _, pivot := range s.Entities[i].Pivots {
			if !seen[pivot.Name] {
				seen[pivot.Name] = true
				tables = append(tables, pivot)
			}
		}
	}
	return tables
}

// Column returns the named column.
func (t *TableMetadata) Column(name string) (*ColumnMetadata, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// PrimaryColumn returns the table's primary key column.
func (t *TableMetadata) PrimaryColumn() (*ColumnMetadata, bool) {
	for i := range t.Columns {
		if t.Columns[i].Primary {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ToJSON converts the snapshot to an indented JSON string.
func (s *Snapshot) ToJSON() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON parses a snapshot from a JSON string.
func FromJSON(data string) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
