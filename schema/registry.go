package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// NameRegexp bounds entity and relationship names. The gateway applies the
// same pattern to path parameters before touching the registry.
var NameRegexp = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Registry is the validated, in-memory form of all entity and relationship
// descriptors. It is built once at startup and read-only afterwards; both
// the relation engine's column naming and the synthesizer's DDL derive from
// it so the two can never disagree.
type Registry struct {
	namer         Namer
	entities      map[string]*Entity
	relationships map[string]*Relationship
	selections    map[string]map[string]*Relationship
}

// NewRegistry validates descriptors and assembles the registry, failing fast
// on the first invalid descriptor.
func NewRegistry(namer Namer, entities []*Entity, relationships []*Relationship) (*Registry, error) {
	if namer == nil {
		namer = NamingStrategy{}
	}

	registry := &Registry{
		namer:         namer,
		entities:      map[string]*Entity{},
		relationships: map[string]*Relationship{},
		selections:    map[string]map[string]*Relationship{},
	}

	for _, entity := range entities {
		if err := entity.apply(namer); err != nil {
			return nil, err
		}
		if _, ok := registry.entities[entity.Name]; ok {
			return nil, fmt.Errorf("entity %s registered twice", entity.Name)
		}
		registry.entities[entity.Name] = entity
		registry.selections[entity.Name] = map[string]*Relationship{}
	}

	for _, rel := range relationships {
		if err := rel.apply(namer, registry.entities); err != nil {
			return nil, err
		}
		if _, ok := registry.relationships[rel.Name]; ok {
			return nil, fmt.Errorf("relationship %s registered twice", rel.Name)
		}
		registry.relationships[rel.Name] = rel

		if err := registry.registerSelections(rel); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// registerSelections wires the relationship-selection fields create/update
// payloads may carry: the many side of a OneToMany and both sides of a
// OneToOne accept a `{partner}_id` field naming their single partner.
func (registry *Registry) registerSelections(rel *Relationship) error {
	add := func(entity, partner string) error {
		column := strings.ToLower(partner) + "_id"
		if registry.entities[entity].LookUpField(column) != nil {
			return fmt.Errorf("relationship %s selection field %s collides with a declared field on %s", rel.Name, column, entity)
		}
		if prior, ok := registry.selections[entity][column]; ok {
			return fmt.Errorf("relationships %s and %s both claim selection field %s on %s", prior.Name, rel.Name, column, entity)
		}
		registry.selections[entity][column] = rel
		return nil
	}

	switch rel.Kind {
	case OneToMany:
		return add(rel.Many, rel.One)
	case OneToOne:
		if err := add(rel.SideA, rel.SideB); err != nil {
			return err
		}
		return add(rel.SideB, rel.SideA)
	}
	return nil
}

// Entity resolves a registered entity, nil when unknown.
func (registry *Registry) Entity(name string) *Entity {
	return registry.entities[name]
}

// Relationship resolves a registered relationship, nil when unknown.
func (registry *Registry) Relationship(name string) *Relationship {
	return registry.relationships[name]
}

// Entities returns all registered entities ordered by name.
func (registry *Registry) Entities() []*Entity {
	names := make([]string, 0, len(registry.entities))
	for name := range registry.entities {
		names = append(names, name)
	}
	sort.Strings(names)

	entities := make([]*Entity, 0, len(names))
	for _, name := range names {
		entities = append(entities, registry.entities[name])
	}
	return entities
}

// Relationships returns all registered relationships ordered by name.
func (registry *Registry) Relationships() []*Relationship {
	names := make([]string, 0, len(registry.relationships))
	for name := range registry.relationships {
		names = append(names, name)
	}
	sort.Strings(names)

	relationships := make([]*Relationship, 0, len(names))
	for _, name := range names {
		relationships = append(relationships, registry.relationships[name])
	}
	return relationships
}

// RelationshipsFor returns every relationship the entity participates in,
// ordered by name.
func (registry *Registry) RelationshipsFor(entity string) []*Relationship {
	var rels []*Relationship
	for _, rel := range registry.Relationships() {
		if rel.Involves(entity) {
			rels = append(rels, rel)
		}
	}
	return rels
}

// SelectionFields maps selection column name to relationship for the entity.
func (registry *Registry) SelectionFields(entity string) map[string]*Relationship {
	return registry.selections[entity]
}

// Namer exposes the naming strategy the registry was built with.
func (registry *Registry) Namer() Namer {
	return registry.namer
}
