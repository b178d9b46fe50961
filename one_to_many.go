package dorm

import (
	"context"
	"fmt"

	"dorm.io/dorm/schema"
)

// OneToMany wraps a relation whose participants hold explicit one and many
// roles. Role classification comes from metadata, never from row counts.
type OneToMany struct {
	*Relation
}

// OneToMany resolves a registered one-to-many relationship
func (e *Engine) OneToMany(name string) (*OneToMany, error) {
	r, err := e.Relation(name)
	if err != nil {
		return nil, err
	}
	if r.rel.Kind != schema.OneToMany {
		return nil, fmt.Errorf("relationship %s is %s, want %s", name, r.rel.Kind, schema.OneToMany)
	}
	return &OneToMany{Relation: r}, nil
}

// IsOne reports whether the record's entity holds the one role
func (o *OneToMany) IsOne(record *Record) (bool, error) {
	if record == nil || !o.rel.Involves(record.Entity) {
		return false, ErrEntityNotParticipant
	}
	return o.rel.IsOne(record.Entity), nil
}

// IsMany reports whether the record's entity holds the many role
func (o *OneToMany) IsMany(record *Record) (bool, error) {
	if record == nil || !o.rel.Involves(record.Entity) {
		return false, ErrEntityNotParticipant
	}
	return o.rel.IsMany(record.Entity), nil
}

// RelatedFromOne lists the link rows of a record holding the one role
func (o *OneToMany) RelatedFromOne(ctx context.Context, one *Record) ([]*Record, error) {
	ok, err := o.IsOne(one)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEntityNotParticipant
	}
	return o.Related(ctx, one)
}

// RelatedFromMany returns the single active link row of a record holding the
// many role, or ErrRecordNotFound when it has none.
func (o *OneToMany) RelatedFromMany(ctx context.Context, many *Record) (*Record, error) {
	ok, err := o.IsMany(many)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEntityNotParticipant
	}

	records, err := o.Related(ctx, many)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records[0], nil
}

// AddWithOrder links one to many recording the member's position. The
// relationship must declare a position extra field.
func (o *OneToMany) AddWithOrder(ctx context.Context, actor string, one, many *Record, position int) (bool, error) {
	return o.Add(ctx, actor, one, many, map[string]interface{}{"position": position})
}
