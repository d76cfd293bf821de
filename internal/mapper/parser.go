package mapper

import (
	"fmt"

	"github.com/strata-db/strata/internal/annotation"
)

// Parser assembles one Entity from a class's structured annotations,
// delegating name derivation to the Resolver and relation side effects to
// the Expander. A Parser accumulates into a build-local entity and hands out
// the finished value only when every step succeeded.
type Parser struct {
	naming   *Resolver
	expander *Expander
	source   AnnotationSource
}

// NewParser returns a parser reading annotation records from source.
func NewParser(naming *Resolver, source AnnotationSource) *Parser {
	return &Parser{naming: naming, expander: NewExpander(naming), source: source}
}

// ParseClass builds the Entity for one class. The boolean result is false
// when the class carries no entity marker; that is a skip, not an error.
func (p *Parser) ParseClass(class string) (*Entity, bool, error) {
	anns, err := p.source.ClassAnnotations(class)
	if err != nil {
		return nil, false, fmt.Errorf("reading annotations of %s: %w", class, err)
	}
	if !hasKind(anns, annotation.KindEntity) {
		return nil, false, nil
	}

	entity := &Entity{Class: class, Table: NewTable(p.naming.TableName(class))}
	if err := p.applyClassAnnotations(entity, anns); err != nil {
		return nil, false, err
	}

	properties, err := p.source.Properties(class)
	if err != nil {
		return nil, false, fmt.Errorf("reading properties of %s: %w", class, err)
	}
	for _, property := range properties {
		if err := p.parseProperty(entity, property); err != nil {
			return nil, false, err
		}
	}
	return entity, true, nil
}

// applyClassAnnotations processes class-level annotations in order. Later
// occurrences of the same kind overwrite earlier ones.
func (p *Parser) applyClassAnnotations(entity *Entity, anns []annotation.Annotation) error {
	for _, ann := range anns {
		switch a := ann.(type) {
		case *annotation.Entity:
		case *annotation.Table:
			entity.Table.Name = a.Name
		case *annotation.SoftDeletes:
			entity.SoftDeletes = true
		case *annotation.Timestamps:
			entity.Timestamps = true
		case *annotation.Versionable:
			entity.Versionable = true
		case *annotation.Hidden:
			entity.Hidden = a.Fields
		case *annotation.Visible:
			entity.Visible = a.Fields
		case *annotation.Touches:
			entity.Touches = a.Relations
		case *annotation.Embeddable:
			return &ConfigError{
				Class:   entity.Class,
				Message: "class cannot be both an entity and an embeddable",
			}
		default:
			return &ConfigError{
				Class:   entity.Class,
				Message: fmt.Sprintf("annotation %s is not valid on a class", ann.Kind()),
			}
		}
	}
	return nil
}

// parseProperty classifies one property by the annotation family present and
// records it. Precedence when several families appear on one property:
// embedded, then attribute, then relation; first match wins. A property with
// no mapping annotations is not persisted.
func (p *Parser) parseProperty(entity *Entity, property string) error {
	anns, err := p.source.PropertyAnnotations(entity.Class, property)
	if err != nil {
		return fmt.Errorf("reading annotations of %s.%s: %w", entity.Class, property, err)
	}

	var embedded *annotation.Embedded
	var attribute *annotation.Attribute
	var relation *annotation.Relation
	for _, ann := range anns {
		switch a := ann.(type) {
		case *annotation.Embedded:
			if embedded == nil {
				embedded = a
			}
		case *annotation.Attribute:
			if attribute == nil {
				attribute = a
			}
		case *annotation.Relation:
			if relation == nil {
				relation = a
			}
		default:
			return &ConfigError{
				Class:    entity.Class,
				Property: property,
				Message:  fmt.Sprintf("annotation %s is not valid on a property", ann.Kind()),
			}
		}
	}

	switch {
	case embedded != nil:
		return p.parseEmbedded(entity, property, embedded)
	case attribute != nil:
		return p.parseAttribute(entity, property, attribute)
	case relation != nil:
		return p.parseRelation(entity, property, relation)
	}
	return nil
}

func (p *Parser) parseAttribute(entity *Entity, property string, ann *annotation.Attribute) error {
	column := columnFromAttribute(p.naming.ColumnName(property), ann)
	if err := entity.Table.AddColumn(column); err != nil {
		return &ConfigError{Class: entity.Class, Property: property, Message: err.Error()}
	}
	entity.Attributes = append(entity.Attributes, &Attribute{Name: property})
	return nil
}

// parseEmbedded flattens an embeddable class's attribute columns into the
// owner's table. The embedded class must carry the embeddable marker.
func (p *Parser) parseEmbedded(entity *Entity, property string, ann *annotation.Embedded) error {
	if ann.Class == "" {
		return &ConfigError{
			Class:    entity.Class,
			Property: property,
			Message:  "embedded property does not name its class",
		}
	}
	_, ok, err := p.source.ClassAnnotation(ann.Class, annotation.KindEmbeddable)
	if err != nil {
		return fmt.Errorf("reading annotations of %s: %w", ann.Class, err)
	}
	if !ok {
		return &ConfigError{
			Class:    entity.Class,
			Property: property,
			Message:  fmt.Sprintf("embedded class %s is missing the embeddable marker", ann.Class),
			Hint:     "annotate the class with //strata:embeddable",
		}
	}

	embedded := &EmbeddedClass{Name: property, Class: ann.Class}
	properties, err := p.source.Properties(ann.Class)
	if err != nil {
		return fmt.Errorf("reading properties of %s: %w", ann.Class, err)
	}
	for _, embProperty := range properties {
		anns, err := p.source.PropertyAnnotations(ann.Class, embProperty)
		if err != nil {
			return fmt.Errorf("reading annotations of %s.%s: %w", ann.Class, embProperty, err)
		}
		attribute := firstAttribute(anns)
		if attribute == nil {
			continue
		}
		column := columnFromAttribute(p.naming.ColumnName(embProperty), attribute)
		if err := entity.Table.AddColumn(column); err != nil {
			return &ConfigError{
				Class:    entity.Class,
				Property: property,
				Message:  fmt.Sprintf("embedding %s: %v", ann.Class, err),
			}
		}
		embedded.Attributes = append(embedded.Attributes, &Attribute{Name: embProperty})
	}
	entity.Embeddeds = append(entity.Embeddeds, embedded)
	return nil
}

func (p *Parser) parseRelation(entity *Entity, property string, ann *annotation.Relation) error {
	relation, err := p.expander.Expand(entity, property, ann)
	if err != nil {
		return &ConfigError{Class: entity.Class, Property: property, Message: err.Error()}
	}
	entity.Relations = append(entity.Relations, relation)
	return nil
}

// columnFromAttribute builds the column paired with an attribute annotation.
// Absent facets leave the column field at its zero value.
func columnFromAttribute(name string, ann *annotation.Attribute) *Column {
	column := &Column{Name: name, Type: ann.Type}
	if ann.Nullable != nil {
		column.Nullable = *ann.Nullable
	}
	if ann.Primary != nil {
		column.Primary = *ann.Primary
	}
	if ann.Unique != nil {
		column.Unique = *ann.Unique
	}
	if ann.Index != nil {
		column.Index = *ann.Index
	}
	if ann.Default != nil {
		v := *ann.Default
		column.Default = &v
	}
	column.Options = ColumnOptions{
		Scale:         copyIntPtr(ann.Scale),
		Precision:     copyIntPtr(ann.Precision),
		Length:        copyIntPtr(ann.Length),
		Unsigned:      copyBoolPtr(ann.Unsigned),
		AutoIncrement: copyBoolPtr(ann.AutoIncrement),
	}
	return column
}

func hasKind(anns []annotation.Annotation, kind annotation.Kind) bool {
	for _, ann := range anns {
		if ann.Kind() == kind {
			return true
		}
	}
	return false
}

func firstAttribute(anns []annotation.Annotation) *annotation.Attribute {
	for _, ann := range anns {
		if a, ok := ann.(*annotation.Attribute); ok {
			return a
		}
	}
	return nil
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyBoolPtr(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
