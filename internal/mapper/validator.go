package mapper

import (
	"fmt"
	"strings"
)

// Validator checks cross-entity invariants on a finished mapping.
type Validator struct{}

// NewValidator returns a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate collects every invariant violation in the mapping and reports
// them together. The invariant checked is primary-key cardinality: every
// entity table must have exactly one primary column.
func (v *Validator) Validate(mapping *Mapping) error {
	var errs []string
	for _, entity := range mapping.Entities() {
		if err := v.validatePrimaryKey(entity); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("metadata validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

func (v *Validator) validatePrimaryKey(entity *Entity) error {
	primary := entity.Table.PrimaryColumns()
	switch {
	case len(primary) == 0:
		return &ConfigError{
			Class:   entity.Class,
			Message: fmt.Sprintf("table '%s' has no primary key column", entity.Table.Name),
			Hint:    "declare exactly one attribute with the primary facet",
		}
	case len(primary) > 1:
		names := make([]string, len(primary))
		for i, col := range primary {
			names[i] = col.Name
		}
		return &ConfigError{
			Class: entity.Class,
			Message: fmt.Sprintf("table '%s' has %d primary key columns (%s), expected 1",
				entity.Table.Name, len(primary), strings.Join(names, ", ")),
			Hint: "composite primary keys are not supported",
		}
	}
	return nil
}
