package metadata

import (
	"fmt"
	"strings"
)

// Registry provides indexed access to a snapshot. Indexes are built once at
// construction; the registry is read-only afterwards and safe for concurrent
// use. Queries return copies so callers cannot mutate the snapshot.
type Registry struct {
	snapshot *Snapshot

	entitiesByClass map[string]*EntityMetadata
	entitiesByTable map[string]*EntityMetadata
	tablesByName    map[string]*TableMetadata
	relationsTo     map[string][]*RelationRef
}

// RelationRef references a relation together with the class that declares it.
type RelationRef struct {
	SourceClass string
	Relation    *RelationMetadata
}

// NewRegistry builds a registry over a snapshot.
func NewRegistry(snapshot *Snapshot) *Registry {
	r := &Registry{
		snapshot:        snapshot,
		entitiesByClass: make(map[string]*EntityMetadata),
		entitiesByTable: make(map[string]*EntityMetadata),
		tablesByName:    make(map[string]*TableMetadata),
		relationsTo:     make(map[string][]*RelationRef),
	}
	r.buildIndexes()
	return r
}

func (r *Registry) buildIndexes() {
	if r.snapshot == nil {
		return
	}
	for i := range r.snapshot.Entities {
		entity := &r.snapshot.Entities[i]
		r.entitiesByClass[entity.Class] = entity
		r.entitiesByTable[entity.Table.Name] = entity
		r.tablesByName[entity.Table.Name] = &entity.Table

		for j := range entity.Pivots {
			pivot := &entity.Pivots[j]
			if _, exists := r.tablesByName[pivot.Name]; !exists {
				r.tablesByName[pivot.Name] = pivot
			}
		}
		for j := range entity.Relations {
			rel := &entity.Relations[j]
			if rel.Related == "" {
				continue
			}
			r.relationsTo[rel.Related] = append(r.relationsTo[rel.Related], &RelationRef{
				SourceClass: entity.Class,
				Relation:    rel,
			})
		}
	}
}

// Snapshot returns the underlying snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.snapshot
}

// Classes returns every mapped class identifier in snapshot order.
func (r *Registry) Classes() []string {
	if r.snapshot == nil {
		return nil
	}
	classes := make([]string, len(r.snapshot.Entities))
	for i := range r.snapshot.Entities {
		classes[i] = r.snapshot.Entities[i].Class
	}
	return classes
}

// Entities returns all entities in snapshot order.
func (r *Registry) Entities() []EntityMetadata {
	if r.snapshot == nil {
		return nil
	}
	entities := make([]EntityMetadata, len(r.snapshot.Entities))
	copy(entities, r.snapshot.Entities)
	return entities
}

// Entity finds an entity by class identifier.
func (r *Registry) Entity(class string) (*EntityMetadata, error) {
	if entity, ok := r.entitiesByClass[class]; ok {
		entityCopy := *entity
		return &entityCopy, nil
	}
	return nil, fmt.Errorf("entity not found: %s", class)
}

// EntityByTable finds the entity mapped to a table.
func (r *Registry) EntityByTable(table string) (*EntityMetadata, error) {
	if entity, ok := r.entitiesByTable[table]; ok {
		entityCopy := *entity
		return &entityCopy, nil
	}
	return nil, fmt.Errorf("no entity is mapped to table: %s", table)
}

// Table finds any table, entity or pivot, by name.
func (r *Registry) Table(name string) (*TableMetadata, error) {
	if table, ok := r.tablesByName[name]; ok {
		tableCopy := *table
		return &tableCopy, nil
	}
	return nil, fmt.Errorf("table not found: %s", name)
}

// RelationsFrom returns the relations an entity declares.
func (r *Registry) RelationsFrom(class string) ([]RelationMetadata, error) {
	entity, ok := r.entitiesByClass[class]
	if !ok {
		return nil, fmt.Errorf("entity not found: %s", class)
	}
	relations := make([]RelationMetadata, len(entity.Relations))
	copy(relations, entity.Relations)
	return relations, nil
}

// RelationsTo returns every relation from any entity that targets the given
// class. This finds reverse dependencies.
func (r *Registry) RelationsTo(class string) []RelationRef {
	refs := r.relationsTo[class]
	result := make([]RelationRef, len(refs))
	for i, ref := range refs {
		relCopy := *ref.Relation
		result[i] = RelationRef{SourceClass: ref.SourceClass, Relation: &relCopy}
	}
	return result
}

// EntitiesMatching returns entities whose class identifier matches a
// pattern. "*" matches any characters.
func (r *Registry) EntitiesMatching(pattern string) []EntityMetadata {
	if r.snapshot == nil {
		return nil
	}
	var result []EntityMetadata
	for _, entity := range r.snapshot.Entities {
		if matchPattern(entity.Class, pattern) {
			result = append(result, entity)
		}
	}
	return result
}

// matchPattern matches a string against a pattern with * wildcards.
func matchPattern(s, pattern string) bool {
	if pattern == s || pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") && !strings.HasPrefix(pattern, "*") {
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	}
	if strings.HasPrefix(pattern, "*") && !strings.HasSuffix(pattern, "*") {
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "*"))
	}
	if strings.Contains(pattern, "*") {
		parts := strings.Split(pattern, "*")
		if len(parts) == 2 {
			return strings.HasPrefix(s, parts[0]) && strings.HasSuffix(s, parts[1])
		}
		if len(parts) == 3 && parts[0] == "" && parts[2] == "" {
			return strings.Contains(s, parts[1])
		}
	}
	return false
}
