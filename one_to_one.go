package dorm

import (
	"context"
	"fmt"

	"dorm.io/dorm/schema"
)

// OneToOne wraps a relation with single-partner semantics: at most one
// active row per participant, enforced by Add's replacement behavior and
// the pair table's partial unique index.
type OneToOne struct {
	*Relation
}

// OneToOne resolves a registered one-to-one relationship
func (e *Engine) OneToOne(name string) (*OneToOne, error) {
	r, err := e.Relation(name)
	if err != nil {
		return nil, err
	}
	if r.rel.Kind != schema.OneToOne {
		return nil, fmt.Errorf("relationship %s is %s, want %s", name, r.rel.Kind, schema.OneToOne)
	}
	return &OneToOne{Relation: r}, nil
}

// SetRelation links a and b, displacing any partner either side had
func (o *OneToOne) SetRelation(ctx context.Context, actor string, a, b *Record, extra map[string]interface{}) (bool, error) {
	return o.Add(ctx, actor, a, b, extra)
}

// OtherEntity names the opposite participant from metadata alone
func (o *OneToOne) OtherEntity(entity string) (string, error) {
	other, err := o.rel.OtherSide(entity)
	if err != nil {
		return "", ErrEntityNotParticipant
	}
	return other, nil
}

// Partner returns the single active link row of the record, or
// ErrRecordNotFound when it is unlinked.
func (o *OneToOne) Partner(ctx context.Context, record *Record) (*Record, error) {
	records, err := o.Related(ctx, record)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records[0], nil
}
