// Package annotation defines the closed set of mapping annotations strata
// recognizes on entity classes and their properties, plus the parser for the
// textual kind(arg, key=value) form they are written in.
//
// The variant set is a contract shared by the source scanner (which produces
// records) and the mapper core (which consumes them). Consumers dispatch with
// a type switch; the set of implementations is closed.
package annotation

import "fmt"

// Kind tags one annotation variant.
type Kind int

const (
	KindInvalid Kind = iota
	KindEntity
	KindTable
	KindSoftDeletes
	KindTimestamps
	KindVersionable
	KindHidden
	KindVisible
	KindTouches
	KindEmbeddable
	KindEmbedded
	KindAttribute
	KindRelation
)

// String returns the source-level token for the kind.
func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindTable:
		return "table"
	case KindSoftDeletes:
		return "softDeletes"
	case KindTimestamps:
		return "timestamps"
	case KindVersionable:
		return "versionable"
	case KindHidden:
		return "hidden"
	case KindVisible:
		return "visible"
	case KindTouches:
		return "touches"
	case KindEmbeddable:
		return "embeddable"
	case KindEmbedded:
		return "embedded"
	case KindAttribute:
		return "attribute"
	case KindRelation:
		return "relation"
	default:
		return "invalid"
	}
}

// ColumnType is the logical column type vocabulary. Attribute annotations are
// written as one of these tokens; the paired column inherits the type.
type ColumnType int

const (
	TypeInteger ColumnType = iota
	TypeBigInteger
	TypeSmallInteger
	TypeString
	TypeText
	TypeBoolean
	TypeDecimal
	TypeFloat
	TypeDate
	TypeTime
	TypeDateTime
	TypeTimestamp
	TypeBinary
	TypeJSON
)

var columnTypeTokens = map[ColumnType]string{
	TypeInteger:      "integer",
	TypeBigInteger:   "bigInteger",
	TypeSmallInteger: "smallInteger",
	TypeString:       "string",
	TypeText:         "text",
	TypeBoolean:      "boolean",
	TypeDecimal:      "decimal",
	TypeFloat:        "float",
	TypeDate:         "date",
	TypeTime:         "time",
	TypeDateTime:     "dateTime",
	TypeTimestamp:    "timestamp",
	TypeBinary:       "binary",
	TypeJSON:         "json",
}

// String returns the source-level token for the column type.
func (t ColumnType) String() string {
	if s, ok := columnTypeTokens[t]; ok {
		return s
	}
	return "unknown"
}

// ParseColumnType converts a source token to a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	for t, token := range columnTypeTokens {
		if token == s {
			return t, nil
		}
	}
	return TypeInteger, fmt.Errorf("unknown column type: %s", s)
}

// RelationKind identifies one relation annotation kind.
type RelationKind int

const (
	RelationBelongsTo RelationKind = iota
	RelationMorphTo
	RelationBelongsToMany
	RelationMorphToMany
	RelationHasOne
	RelationHasMany
	RelationHasManyThrough
	RelationMorphOne
	RelationMorphMany
)

var relationKindTokens = map[RelationKind]string{
	RelationBelongsTo:      "belongsTo",
	RelationMorphTo:        "morphTo",
	RelationBelongsToMany:  "belongsToMany",
	RelationMorphToMany:    "morphToMany",
	RelationHasOne:         "hasOne",
	RelationHasMany:        "hasMany",
	RelationHasManyThrough: "hasManyThrough",
	RelationMorphOne:       "morphOne",
	RelationMorphMany:      "morphMany",
}

// String returns the source-level token for the relation kind.
func (k RelationKind) String() string {
	if s, ok := relationKindTokens[k]; ok {
		return s
	}
	return "unknown"
}

// ParseRelationKind converts a source token to a RelationKind.
func ParseRelationKind(s string) (RelationKind, error) {
	for k, token := range relationKindTokens {
		if token == s {
			return k, nil
		}
	}
	return RelationBelongsTo, fmt.Errorf("unknown relation kind: %s", s)
}

// HasPivot reports whether the kind implies an auxiliary pivot table.
func (k RelationKind) HasPivot() bool {
	return k == RelationBelongsToMany || k == RelationMorphToMany
}

// Annotation is one structured annotation record.
type Annotation interface {
	Kind() Kind
}

// Entity marks a class as a persisted entity.
type Entity struct{}

// Table overrides the derived table name for an entity.
type Table struct {
	Name string
}

// SoftDeletes enables soft deletion for an entity.
type SoftDeletes struct{}

// Timestamps enables created/updated timestamp maintenance for an entity.
type Timestamps struct{}

// Versionable enables version tracking for an entity.
type Versionable struct{}

// Hidden lists attributes excluded from serialized output.
type Hidden struct {
	Fields []string
}

// Visible lists the attributes included in serialized output.
type Visible struct {
	Fields []string
}

// Touches lists relations whose timestamps cascade on save.
type Touches struct {
	Relations []string
}

// Embeddable marks a value class whose attributes may be flattened into an
// owning entity's table.
type Embeddable struct{}

// Embedded marks a property as an embedded value object of the given class.
type Embedded struct {
	Class string
}

// Attribute marks a property as a persisted scalar column. The annotation
// token is the column type; facet fields are nil unless the source declared
// them, so absence is distinguishable from an explicit false or zero.
type Attribute struct {
	Type          ColumnType
	Nullable      *bool
	Default       *string
	Primary       *bool
	Unique        *bool
	Index         *bool
	Scale         *int
	Precision     *int
	Length        *int
	Unsigned      *bool
	AutoIncrement *bool
}

// RelationOptions carries the option fields a relation annotation explicitly
// set. Empty strings mean "not set"; names are never legitimately empty.
type RelationOptions struct {
	Name       string
	Type       string
	Table      string
	Through    string
	ForeignKey string
	OtherKey   string
	LocalKey   string
	FirstKey   string
	SecondKey  string
	ID         string
	Relation   string
	Inverse    bool
}

// Relation marks a property as an association with another class.
type Relation struct {
	Type    RelationKind
	Related string
	Options RelationOptions
}

func (*Entity) Kind() Kind      { return KindEntity }
func (*Table) Kind() Kind       { return KindTable }
func (*SoftDeletes) Kind() Kind { return KindSoftDeletes }
func (*Timestamps) Kind() Kind  { return KindTimestamps }
func (*Versionable) Kind() Kind { return KindVersionable }
func (*Hidden) Kind() Kind      { return KindHidden }
func (*Visible) Kind() Kind     { return KindVisible }
func (*Touches) Kind() Kind     { return KindTouches }
func (*Embeddable) Kind() Kind  { return KindEmbeddable }
func (*Embedded) Kind() Kind    { return KindEmbedded }
func (*Attribute) Kind() Kind   { return KindAttribute }
func (*Relation) Kind() Kind    { return KindRelation }

// relationOptionKeys maps each relation kind to the option keys it accepts.
var relationOptionKeys = map[RelationKind][]string{
	RelationBelongsTo:      {"related", "foreignKey", "otherKey", "relation"},
	RelationMorphTo:        {"name", "type", "id"},
	RelationBelongsToMany:  {"related", "table", "foreignKey", "otherKey", "relation"},
	RelationMorphToMany:    {"related", "name", "table", "foreignKey", "otherKey", "inverse"},
	RelationHasOne:         {"related", "foreignKey", "localKey"},
	RelationHasMany:        {"related", "foreignKey", "localKey"},
	RelationHasManyThrough: {"related", "through", "firstKey", "secondKey", "localKey"},
	RelationMorphOne:       {"related", "name", "type", "id", "localKey"},
	RelationMorphMany:      {"related", "name", "type", "id", "localKey"},
}

// Validate checks that every option set on the relation is accepted by its
// kind. Records built outside the parser go through this before expansion.
func (r *Relation) Validate() error {
	allowed := make(map[string]bool)
	for _, key := range relationOptionKeys[r.Type] {
		allowed[key] = true
	}
	for key, set := range r.setOptions() {
		if set && !allowed[key] {
			return fmt.Errorf("option %q is not valid for %s relations", key, r.Type)
		}
	}
	return nil
}

func (r *Relation) setOptions() map[string]bool {
	o := r.Options
	return map[string]bool{
		"name":       o.Name != "",
		"type":       o.Type != "",
		"table":      o.Table != "",
		"through":    o.Through != "",
		"foreignKey": o.ForeignKey != "",
		"otherKey":   o.OtherKey != "",
		"localKey":   o.LocalKey != "",
		"firstKey":   o.FirstKey != "",
		"secondKey":  o.SecondKey != "",
		"id":         o.ID != "",
		"relation":   o.Relation != "",
		"inverse":    o.Inverse,
	}
}
