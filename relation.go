package dorm

import (
	"context"
	"errors"
	"fmt"

	"dorm.io/dorm/errtranslator"
	"dorm.io/dorm/schema"
)

// Relation executes row operations for one registered relationship. Link
// rows live in the relationship's own table and carry the same audit and
// soft-delete columns entity records do; "active" always means
// deleted_at IS NULL.
type Relation struct {
	engine *Engine
	rel    *schema.Relationship
}

// Relation resolves the engine for a registered relationship
func (e *Engine) Relation(name string) (*Relation, error) {
	if e.registry == nil {
		return nil, ErrMissingMetadata
	}
	rel := e.registry.Relationship(name)
	if rel == nil {
		return nil, ErrRelationshipNotRegistered
	}
	return &Relation{engine: e, rel: rel}, nil
}

// Descriptor returns the relationship metadata the engine operates on
func (r *Relation) Descriptor() *schema.Relationship {
	return r.rel
}

// Add links a and b with one new row, false without error when an active
// pair row already exists. One-to-one first displaces whatever either side
// was linked to. Extra values must match the relationship's declared fields.
func (r *Relation) Add(ctx context.Context, actor string, a, b *Record, extra map[string]interface{}) (bool, error) {
	left, right, err := r.pair(a, b)
	if err != nil {
		return false, err
	}

	count, err := r.countPair(ctx, left, right)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if r.rel.Kind == schema.OneToOne {
		for _, side := range []struct{ column, id string }{
			{r.rel.LeftColumn, left},
			{r.rel.RightColumn, right},
		} {
			if err := r.softDeleteRows(ctx, actor, side.column, side.id); err != nil {
				return false, err
			}
		}
	}

	values, err := r.coerceExtra(extra)
	if err != nil {
		return false, err
	}

	if err := r.insert(ctx, actor, left, right, values); err != nil {
		var dup errtranslator.ErrDuplicatedKey
		if errors.As(err, &dup) {
			// Raced a concurrent Add; the partial unique index kept one row.
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove soft-deletes the active pair row, false when none exists
func (r *Relation) Remove(ctx context.Context, actor string, a, b *Record) (bool, error) {
	left, right, err := r.pair(a, b)
	if err != nil {
		return false, err
	}

	e := r.engine
	stmt := e.NewStatement(r.rel.Table)
	stmt.WriteString("UPDATE ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" SET ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" = ")
	stmt.AddVar(e.now())
	stmt.WriteString(", ")
	stmt.WriteQuoted(schema.ColumnDeletedBy)
	stmt.WriteString(" = ")
	stmt.AddVar(e.actor(actor))
	r.wherePair(stmt, left, right)

	result, err := stmt.Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Has reports whether an active pair row links a and b
func (r *Relation) Has(ctx context.Context, a, b *Record) (bool, error) {
	left, right, err := r.pair(a, b)
	if err != nil {
		return false, err
	}
	count, err := r.countPair(ctx, left, right)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Related lists the active link rows referencing the record on its side of
// the relationship, oldest first.
func (r *Relation) Related(ctx context.Context, record *Record) ([]*Record, error) {
	column, err := r.column(record)
	if err != nil {
		return nil, err
	}

	stmt := r.engine.NewStatement(r.rel.Table)
	stmt.WriteString("SELECT * FROM ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(column)
	stmt.WriteString(" = ")
	stmt.AddVar(record.ID)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NULL ORDER BY ")
	stmt.WriteQuoted(schema.ColumnCreatedAt)

	return r.query(ctx, stmt)
}

// UpdateRelation mutates the extra fields of the active pair row and bumps
// its update audit columns, false when no active pair row exists.
func (r *Relation) UpdateRelation(ctx context.Context, actor string, a, b *Record, extra map[string]interface{}) (bool, error) {
	left, right, err := r.pair(a, b)
	if err != nil {
		return false, err
	}
	values, err := r.coerceExtra(extra)
	if err != nil {
		return false, err
	}

	e := r.engine
	stmt := e.NewStatement(r.rel.Table)
	stmt.WriteString("UPDATE ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" SET ")
	for _, field := range r.rel.ExtraFields {
		if value, ok := values[field.DBName]; ok {
			stmt.WriteQuoted(field.DBName)
			stmt.WriteString(" = ")
			stmt.AddVar(value)
			stmt.WriteString(", ")
		}
	}
	stmt.WriteQuoted(schema.ColumnUpdatedAt)
	stmt.WriteString(" = ")
	stmt.AddVar(e.now())
	stmt.WriteString(", ")
	stmt.WriteQuoted(schema.ColumnUpdatedBy)
	stmt.WriteString(" = ")
	stmt.AddVar(e.actor(actor))
	r.wherePair(stmt, left, right)

	result, err := stmt.Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// HandleEntityDeletion applies one cascade action for a record that is being
// deleted. An empty action falls back to the descriptor's on_delete policy.
func (r *Relation) HandleEntityDeletion(ctx context.Context, actor string, record *Record, action schema.CascadeAction) error {
	column, err := r.column(record)
	if err != nil {
		return err
	}
	if action == "" {
		action = r.rel.OnDelete
	}

	switch action {
	case schema.Restrict:
		count, err := r.countRows(ctx, column, record.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrRestricted
		}
		return nil
	case schema.Cascade:
		return r.cascade(ctx, actor, record, column)
	case schema.SoftDelete:
		return r.softDeleteRows(ctx, actor, column, record.ID)
	case schema.SetDefault:
		return ErrNotImplemented
	}
	return fmt.Errorf("unsupported cascade action %q", action)
}

// DeletedRelationshipRecords lists the record's soft-deleted link rows,
// most recently deleted first.
func (r *Relation) DeletedRelationshipRecords(ctx context.Context, record *Record) ([]*Record, error) {
	column, err := r.column(record)
	if err != nil {
		return nil, err
	}

	stmt := r.engine.NewStatement(r.rel.Table)
	stmt.WriteString("SELECT * FROM ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(column)
	stmt.WriteString(" = ")
	stmt.AddVar(record.ID)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NOT NULL ORDER BY ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" DESC")

	return r.query(ctx, stmt)
}

// cascade removes dependents by kind. The one role soft-deletes its partner
// records before the link rows; the many role owns nothing beyond its own
// link rows; many-to-many never touches the partner entity.
func (r *Relation) cascade(ctx context.Context, actor string, record *Record, column string) error {
	switch {
	case r.rel.Kind == schema.ManyToMany:
		_, err := r.hardDeleteRows(ctx, column, record.ID)
		return err
	case r.rel.IsMany(record.Entity):
		return r.softDeleteRows(ctx, actor, column, record.ID)
	default:
		if err := r.softDeletePartners(ctx, actor, record, column); err != nil {
			return err
		}
		return r.softDeleteRows(ctx, actor, column, record.ID)
	}
}

// softDeletePartners soft-deletes every partner entity record an active link
// row joins to the record. Partners already deleted are skipped.
func (r *Relation) softDeletePartners(ctx context.Context, actor string, record *Record, column string) error {
	partner, err := r.rel.OtherSide(record.Entity)
	if err != nil {
		return ErrEntityNotParticipant
	}
	partnerColumn, err := r.rel.ColumnFor(partner)
	if err != nil {
		return ErrEntityNotParticipant
	}

	ids, err := r.partnerIDs(ctx, column, record.ID, partnerColumn)
	if err != nil || len(ids) == 0 {
		return err
	}

	store, err := r.engine.Records(partner)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := store.SoftDelete(ctx, actor, id); err != nil && !errors.Is(err, ErrRecordNotFound) {
			return err
		}
	}
	return nil
}

func (r *Relation) partnerIDs(ctx context.Context, column, id, partnerColumn string) ([]string, error) {
	stmt := r.engine.NewStatement(r.rel.Table)
	stmt.WriteString("SELECT ")
	stmt.WriteQuoted(partnerColumn)
	stmt.WriteString(" FROM ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(column)
	stmt.WriteString(" = ")
	stmt.AddVar(id)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NULL")

	rows, err := stmt.Query(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var partnerID string
		if err := rows.Scan(&partnerID); err != nil {
			return nil, err
		}
		ids = append(ids, partnerID)
	}
	return ids, rows.Err()
}

func (r *Relation) insert(ctx context.Context, actor, left, right string, extra map[string]interface{}) error {
	e := r.engine
	now := e.now()
	actor = e.actor(actor)

	columns := []string{schema.ColumnID, r.rel.LeftColumn, r.rel.RightColumn, schema.ColumnCreatedAt, schema.ColumnUpdatedAt, schema.ColumnCreatedBy, schema.ColumnUpdatedBy}
	vars := []interface{}{e.NewID(), left, right, now, now, actor, actor}
	for _, field := range r.rel.ExtraFields {
		if value, ok := extra[field.DBName]; ok {
			columns = append(columns, field.DBName)
			vars = append(vars, value)
		}
	}

	stmt := e.NewStatement(r.rel.Table)
	stmt.WriteString("INSERT INTO ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" (")
	stmt.WriteColumns(columns...)
	stmt.WriteString(") VALUES (")
	stmt.AddVar(vars...)
	stmt.WriteString(")")

	_, err := stmt.Exec(ctx)
	return err
}

// softDeleteRows marks every active row whose column holds id
func (r *Relation) softDeleteRows(ctx context.Context, actor, column, id string) error {
	e := r.engine
	stmt := e.NewStatement(r.rel.Table)
	stmt.WriteString("UPDATE ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" SET ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" = ")
	stmt.AddVar(e.now())
	stmt.WriteString(", ")
	stmt.WriteQuoted(schema.ColumnDeletedBy)
	stmt.WriteString(" = ")
	stmt.AddVar(e.actor(actor))
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(column)
	stmt.WriteString(" = ")
	stmt.AddVar(id)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NULL")

	_, err := stmt.Exec(ctx)
	return err
}

// hardDeleteRows physically deletes join rows, the engine's only DELETE
func (r *Relation) hardDeleteRows(ctx context.Context, column, id string) (int64, error) {
	stmt := r.engine.NewStatement(r.rel.Table)
	stmt.WriteString("DELETE FROM ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(column)
	stmt.WriteString(" = ")
	stmt.AddVar(id)

	result, err := stmt.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *Relation) countPair(ctx context.Context, left, right string) (int64, error) {
	stmt := r.engine.NewStatement(r.rel.Table)
	stmt.WriteString("SELECT count(*) FROM ")
	stmt.WriteQuoted(stmt.Table)
	r.wherePair(stmt, left, right)
	return stmt.Count(ctx)
}

func (r *Relation) countRows(ctx context.Context, column, id string) (int64, error) {
	stmt := r.engine.NewStatement(r.rel.Table)
	stmt.WriteString("SELECT count(*) FROM ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(column)
	stmt.WriteString(" = ")
	stmt.AddVar(id)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NULL")
	return stmt.Count(ctx)
}

func (r *Relation) wherePair(stmt *Statement, left, right string) {
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(r.rel.LeftColumn)
	stmt.WriteString(" = ")
	stmt.AddVar(left)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(r.rel.RightColumn)
	stmt.WriteString(" = ")
	stmt.AddVar(right)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NULL")
}

// pair orders the two records onto the join table's left and right columns.
// Both records must carry ids and belong to distinct participant entities.
func (r *Relation) pair(a, b *Record) (left, right string, err error) {
	if a == nil || b == nil || a.ID == "" || b.ID == "" {
		return "", "", ErrMissingID
	}
	columnA, err := r.rel.ColumnFor(a.Entity)
	if err != nil {
		return "", "", ErrEntityNotParticipant
	}
	columnB, err := r.rel.ColumnFor(b.Entity)
	if err != nil || columnA == columnB {
		return "", "", ErrEntityNotParticipant
	}
	if columnA == r.rel.LeftColumn {
		return a.ID, b.ID, nil
	}
	return b.ID, a.ID, nil
}

// column resolves which join table column holds the record's id
func (r *Relation) column(record *Record) (string, error) {
	if record == nil || record.ID == "" {
		return "", ErrMissingID
	}
	column, err := r.rel.ColumnFor(record.Entity)
	if err != nil {
		return "", ErrEntityNotParticipant
	}
	return column, nil
}

func (r *Relation) coerceExtra(extra map[string]interface{}) (map[string]interface{}, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	values := make(map[string]interface{}, len(extra))
	for name, value := range extra {
		field := r.lookUpExtraField(name)
		if field == nil {
			return nil, schema.FieldError{Field: name, Message: "unknown relationship field"}
		}
		coerced, err := field.Coerce(value)
		if err != nil {
			return nil, err
		}
		values[field.DBName] = coerced
	}
	return values, nil
}

func (r *Relation) lookUpExtraField(name string) *schema.Field {
	for _, field := range r.rel.ExtraFields {
		if field.Name == name || field.DBName == name {
			return field
		}
	}
	return nil
}

func (r *Relation) query(ctx context.Context, stmt *Statement) ([]*Record, error) {
	rows, err := stmt.Query(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRecords(rows, r.rel.Name)
}

// DeleteRecord soft-deletes a record after applying every relationship's
// on_delete policy. Restrict checks run across all relationships before any
// cascade executes, so a conflict leaves the database untouched.
func (e *Engine) DeleteRecord(ctx context.Context, actor string, record *Record) error {
	if e.registry == nil {
		return ErrMissingMetadata
	}
	if record == nil || record.ID == "" {
		return ErrMissingID
	}

	relations := make([]*Relation, 0)
	for _, rel := range e.registry.RelationshipsFor(record.Entity) {
		relations = append(relations, &Relation{engine: e, rel: rel})
	}

	for _, r := range relations {
		if r.rel.OnDelete == schema.Restrict {
			if err := r.HandleEntityDeletion(ctx, actor, record, schema.Restrict); err != nil {
				return err
			}
		}
	}
	for _, r := range relations {
		if r.rel.OnDelete == schema.Restrict {
			continue
		}
		if err := r.HandleEntityDeletion(ctx, actor, record, r.rel.OnDelete); err != nil {
			return err
		}
	}

	store, err := e.Records(record.Entity)
	if err != nil {
		return err
	}
	return store.SoftDelete(ctx, actor, record.ID)
}
