package schema

import (
	"fmt"
	"strings"
)

// Kind relationship cardinality
type Kind string

const (
	OneToOne   Kind = "one_to_one"   // exactly one active partner per side
	OneToMany  Kind = "one_to_many"  // explicit one/many roles
	ManyToMany Kind = "many_to_many" // unconstrained pairs
)

// CascadeAction is the policy applied to dependent relationship rows when a
// referenced entity is deleted.
type CascadeAction string

const (
	Restrict   CascadeAction = "restrict"
	Cascade    CascadeAction = "cascade"
	SoftDelete CascadeAction = "soft_delete"
	// SetDefault is declared for descriptor compatibility but carries no
	// defined behavior; the engine reports it as not implemented.
	SetDefault CascadeAction = "set_default"
)

func validCascadeAction(action CascadeAction) bool {
	switch action {
	case Restrict, Cascade, SoftDelete, SetDefault:
		return true
	}
	return false
}

// Relationship declares one relationship between two entities. OneToOne and
// ManyToMany name their participants SideA/SideB; OneToMany names them by
// role. OnDelete is the default cascade action used when the owning entity
// record is deleted.
type Relationship struct {
	Name        string        `json:"name"`
	Kind        Kind          `json:"kind"`
	SideA       string        `json:"side_a,omitempty"`
	SideB       string        `json:"side_b,omitempty"`
	One         string        `json:"one,omitempty"`
	Many        string        `json:"many,omitempty"`
	ExtraFields []*Field      `json:"extra_fields,omitempty"`
	OnDelete    CascadeAction `json:"on_delete,omitempty"`

	// Derived by the registry from the naming strategy; the relation engine
	// and the schema synthesizer both read these so they never disagree.
	Table       string `json:"-"`
	LeftColumn  string `json:"-"`
	RightColumn string `json:"-"`
}

// Participants returns the two entity names, left side first. For OneToMany
// the left side is the one role.
func (rel *Relationship) Participants() (string, string) {
	if rel.Kind == OneToMany {
		return rel.One, rel.Many
	}
	return rel.SideA, rel.SideB
}

// Involves reports whether the named entity takes part in the relationship.
func (rel *Relationship) Involves(entity string) bool {
	left, right := rel.Participants()
	return entity == left || entity == right
}

// OtherSide resolves, from metadata alone, which entity type is the other
// side given which type entity is.
func (rel *Relationship) OtherSide(entity string) (string, error) {
	left, right := rel.Participants()
	switch entity {
	case left:
		return right, nil
	case right:
		return left, nil
	}
	return "", fmt.Errorf("entity %s does not participate in relationship %s", entity, rel.Name)
}

// ColumnFor returns the join-table column holding the named entity's id.
func (rel *Relationship) ColumnFor(entity string) (string, error) {
	left, right := rel.Participants()
	switch entity {
	case left:
		return rel.LeftColumn, nil
	case right:
		return rel.RightColumn, nil
	}
	return "", fmt.Errorf("entity %s does not participate in relationship %s", entity, rel.Name)
}

// IsOne reports whether entity holds the one role of a OneToMany.
func (rel *Relationship) IsOne(entity string) bool {
	return rel.Kind == OneToMany && entity == rel.One
}

// IsMany reports whether entity holds the many role of a OneToMany.
func (rel *Relationship) IsMany(entity string) bool {
	return rel.Kind == OneToMany && entity == rel.Many
}

func (rel *Relationship) apply(namer Namer, entities map[string]*Entity) error {
	if rel.Name == "" {
		return fmt.Errorf("relationship has no name")
	}

	switch rel.Kind {
	case OneToOne, ManyToMany:
		if rel.SideA == "" || rel.SideB == "" {
			return fmt.Errorf("relationship %s needs side_a and side_b participants", rel.Name)
		}
		if rel.One != "" || rel.Many != "" {
			return fmt.Errorf("relationship %s declares one/many roles but is %s", rel.Name, rel.Kind)
		}
	case OneToMany:
		if rel.One == "" || rel.Many == "" {
			return fmt.Errorf("relationship %s needs explicit one and many roles", rel.Name)
		}
		if rel.SideA != "" || rel.SideB != "" {
			return fmt.Errorf("relationship %s declares side_a/side_b but is one_to_many", rel.Name)
		}
	default:
		return fmt.Errorf("relationship %s has unsupported kind %q", rel.Name, rel.Kind)
	}

	rel.SideA, rel.SideB = strings.ToLower(rel.SideA), strings.ToLower(rel.SideB)
	rel.One, rel.Many = strings.ToLower(rel.One), strings.ToLower(rel.Many)

	left, right := rel.Participants()
	if left == right {
		return fmt.Errorf("relationship %s joins %s to itself, self relationships are not supported", rel.Name, left)
	}
	for _, participant := range []string{left, right} {
		if _, ok := entities[participant]; !ok {
			return fmt.Errorf("relationship %s references unregistered entity %s", rel.Name, participant)
		}
	}

	if rel.OnDelete == "" {
		rel.OnDelete = Restrict
	}
	if !validCascadeAction(rel.OnDelete) {
		return fmt.Errorf("relationship %s has unsupported cascade action %q", rel.Name, rel.OnDelete)
	}

	rel.Table = namer.RelationTableName(rel.Kind, left, right)
	rel.LeftColumn, rel.RightColumn = namer.RelationColumns(rel.Kind, left, right)

	seen := map[string]bool{}
	for _, field := range rel.ExtraFields {
		if err := field.apply(namer, rel.Table); err != nil {
			return err
		}
		if reservedColumn(field.DBName) || field.DBName == rel.LeftColumn || field.DBName == rel.RightColumn {
			return fmt.Errorf("relationship %s extra field %s collides with column %s", rel.Name, field.Name, field.DBName)
		}
		if seen[field.DBName] {
			return fmt.Errorf("relationship %s declares column %s twice", rel.Name, field.DBName)
		}
		seen[field.DBName] = true
	}

	return nil
}
