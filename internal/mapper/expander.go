package mapper

import (
	"fmt"

	"github.com/strata-db/strata/internal/annotation"
)

// Expander applies the schema side effects a relation implies before its
// record is built: a foreign-key column for belongsTo, an id/type column
// pair for morphTo, and a free-standing pivot table for the *ToMany kinds.
// The remaining kinds are recorded as metadata only.
type Expander struct {
	naming *Resolver
}

// NewExpander returns an expander using the given naming resolver.
func NewExpander(naming *Resolver) *Expander {
	return &Expander{naming: naming}
}

// Expand applies the side effects for one relation property of the owner and
// returns the finished Relation record. Side effects run first; the record
// is built only after they succeed.
func (x *Expander) Expand(owner *Entity, property string, ann *annotation.Relation) (*Relation, error) {
	if err := ann.Validate(); err != nil {
		return nil, err
	}
	if ann.Type != annotation.RelationMorphTo && ann.Related == "" {
		return nil, fmt.Errorf("%s relation has no related class", ann.Type)
	}

	var pivot *Table
	var err error
	switch ann.Type {
	case annotation.RelationBelongsTo:
		err = x.expandBelongsTo(owner, ann)
	case annotation.RelationMorphTo:
		err = x.expandMorphTo(owner, property, ann)
	case annotation.RelationBelongsToMany:
		pivot, err = x.expandBelongsToMany(owner, ann)
	case annotation.RelationMorphToMany:
		pivot, err = x.expandMorphToMany(owner, property, ann)
	}
	if err != nil {
		return nil, err
	}

	return &Relation{
		Name:         property,
		Type:         ann.Type,
		RelatedClass: ann.Related,
		PivotTable:   pivot,
		Options:      ann.Options,
	}, nil
}

func (x *Expander) expandBelongsTo(owner *Entity, ann *annotation.Relation) error {
	name := ann.Options.OtherKey
	if name == "" {
		name = x.naming.ForeignKeyColumn(ann.Related)
	}
	return owner.Table.AddColumn(foreignKeyColumn(name))
}

func (x *Expander) expandMorphTo(owner *Entity, property string, ann *annotation.Relation) error {
	morphName := ann.Options.Name
	if morphName == "" {
		morphName = x.naming.MorphName(property)
	}
	idName := ann.Options.ID
	if idName == "" {
		idName = morphName + "_id"
	}
	typeName := ann.Options.Type
	if typeName == "" {
		typeName = morphName + "_type"
	}
	if err := owner.Table.AddColumn(foreignKeyColumn(idName)); err != nil {
		return err
	}
	return owner.Table.AddColumn(morphTypeColumn(typeName))
}

func (x *Expander) expandBelongsToMany(owner *Entity, ann *annotation.Relation) (*Table, error) {
	name := ann.Options.Table
	if name == "" {
		name = x.naming.PivotTableName(owner.Table.Name, ann.Related)
	}
	ownerKey := ann.Options.ForeignKey
	if ownerKey == "" {
		ownerKey = x.naming.ForeignKeyColumn(owner.Class)
	}
	relatedKey := ann.Options.OtherKey
	if relatedKey == "" {
		relatedKey = x.naming.ForeignKeyColumn(ann.Related)
	}

	pivot := NewTable(name)
	if err := pivot.AddColumn(foreignKeyColumn(ownerKey)); err != nil {
		return nil, err
	}
	if err := pivot.AddColumn(foreignKeyColumn(relatedKey)); err != nil {
		return nil, fmt.Errorf("%v (override foreignKey or otherKey)", err)
	}
	return pivot, nil
}

func (x *Expander) expandMorphToMany(owner *Entity, property string, ann *annotation.Relation) (*Table, error) {
	morphName := ann.Options.Name
	if morphName == "" {
		morphName = x.naming.MorphName(property)
	}
	name := ann.Options.Table
	if name == "" {
		name = x.naming.MorphPivotTableName(owner.Table.Name, morphName)
	}
	ownerKey := ann.Options.ForeignKey
	if ownerKey == "" {
		ownerKey = x.naming.ForeignKeyColumn(owner.Class)
	}
	morphKey := ann.Options.OtherKey
	if morphKey == "" {
		morphKey = morphName + "_id"
	}

	pivot := NewTable(name)
	if err := pivot.AddColumn(foreignKeyColumn(ownerKey)); err != nil {
		return nil, err
	}
	if err := pivot.AddColumn(foreignKeyColumn(morphKey)); err != nil {
		return nil, fmt.Errorf("%v (override foreignKey or otherKey)", err)
	}
	if err := pivot.AddColumn(morphTypeColumn(morphName + "_type")); err != nil {
		return nil, err
	}
	return pivot, nil
}

func foreignKeyColumn(name string) *Column {
	unsigned := true
	return &Column{
		Name:    name,
		Type:    annotation.TypeInteger,
		Options: ColumnOptions{Unsigned: &unsigned},
	}
}

func morphTypeColumn(name string) *Column {
	return &Column{Name: name, Type: annotation.TypeString}
}
