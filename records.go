package dorm

import (
	"context"
	"sort"
	"strings"

	"dorm.io/dorm/schema"
)

// Records provides row-level access to one registered entity table. Reads
// exclude soft-deleted rows unless the operation says otherwise.
type Records struct {
	engine *Engine
	entity *schema.Entity
}

// Records resolves the record store for a registered entity
func (e *Engine) Records(entity string) (*Records, error) {
	if e.registry == nil {
		return nil, ErrMissingMetadata
	}
	ent := e.registry.Entity(entity)
	if ent == nil {
		return nil, ErrEntityNotRegistered
	}
	return &Records{engine: e, entity: ent}, nil
}

// Entity returns the descriptor the store operates on
func (s *Records) Entity() *schema.Entity {
	return s.entity
}

// Query filters and pages entity listings. Filters match declared fields by
// equality; Search runs a LIKE over string fields.
type Query struct {
	Filters map[string]interface{}
	Search  string
	Sort    string
	Order   string
	Page    int
	PerPage int
}

// Create inserts a record from validated field values and returns it
func (s *Records) Create(ctx context.Context, actor string, fields map[string]interface{}) (*Record, error) {
	values, err := s.coerce(fields)
	if err != nil {
		return nil, err
	}

	e := s.engine
	now := e.now()
	actor = e.actor(actor)

	record := &Record{
		ID:        e.NewID(),
		Entity:    s.entity.Name,
		Fields:    values,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor,
		UpdatedBy: actor,
	}

	columns := []string{schema.ColumnID, schema.ColumnCreatedAt, schema.ColumnUpdatedAt, schema.ColumnCreatedBy, schema.ColumnUpdatedBy}
	vars := []interface{}{record.ID, record.CreatedAt, record.UpdatedAt, record.CreatedBy, record.UpdatedBy}
	for _, field := range s.entity.Fields {
		if value, ok := values[field.DBName]; ok {
			columns = append(columns, field.DBName)
			vars = append(vars, value)
		}
	}

	stmt := e.NewStatement(s.entity.Table)
	stmt.WriteString("INSERT INTO ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" (")
	stmt.WriteColumns(columns...)
	stmt.WriteString(") VALUES (")
	stmt.AddVar(vars...)
	stmt.WriteString(")")

	if _, err := stmt.Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

// First fetches one active record by id
func (s *Records) First(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}

	stmt := s.engine.NewStatement(s.entity.Table)
	stmt.WriteString("SELECT * FROM ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(schema.ColumnID)
	stmt.WriteString(" = ")
	stmt.AddVar(id)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NULL")

	records, err := s.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records[0], nil
}

// Find lists active records matching the query
func (s *Records) Find(ctx context.Context, q *Query) ([]*Record, error) {
	if q == nil {
		q = &Query{}
	}

	stmt := s.engine.NewStatement(s.entity.Table)
	stmt.WriteString("SELECT * FROM ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NULL")

	if err := s.writeConditions(stmt, q); err != nil {
		return nil, err
	}
	if err := s.writeOrder(stmt, q); err != nil {
		return nil, err
	}
	writeLimit(stmt, q)

	return s.query(ctx, stmt)
}

// Count counts active records matching the query's filters and search
func (s *Records) Count(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		q = &Query{}
	}

	stmt := s.engine.NewStatement(s.entity.Table)
	stmt.WriteString("SELECT count(*) FROM ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NULL")

	if err := s.writeConditions(stmt, q); err != nil {
		return 0, err
	}
	return stmt.Count(ctx)
}

// Update mutates declared fields of one active record and returns the
// refetched row. Identity and audit columns cannot be set directly.
func (s *Records) Update(ctx context.Context, actor, id string, fields map[string]interface{}) (*Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}

	values, err := s.coerce(fields)
	if err != nil {
		return nil, err
	}

	e := s.engine
	stmt := e.NewStatement(s.entity.Table)
	stmt.WriteString("UPDATE ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" SET ")
	for _, field := range s.entity.Fields {
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
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(schema.ColumnID)
	stmt.WriteString(" = ")
	stmt.AddVar(id)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NULL")

	result, err := stmt.Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.First(ctx, id)
}

// SoftDelete marks one active record deleted
func (s *Records) SoftDelete(ctx context.Context, actor, id string) error {
	if id == "" {
		return ErrMissingID
	}

	e := s.engine
	stmt := e.NewStatement(s.entity.Table)
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
	stmt.WriteQuoted(schema.ColumnID)
	stmt.WriteString(" = ")
	stmt.AddVar(id)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NULL")

	result, err := stmt.Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Restore clears the soft-delete marker of one deleted record
func (s *Records) Restore(ctx context.Context, actor, id string) error {
	if id == "" {
		return ErrMissingID
	}

	e := s.engine
	stmt := e.NewStatement(s.entity.Table)
	stmt.WriteString("UPDATE ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" SET ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" = NULL, ")
	stmt.WriteQuoted(schema.ColumnDeletedBy)
	stmt.WriteString(" = NULL, ")
	stmt.WriteQuoted(schema.ColumnUpdatedAt)
	stmt.WriteString(" = ")
	stmt.AddVar(e.now())
	stmt.WriteString(", ")
	stmt.WriteQuoted(schema.ColumnUpdatedBy)
	stmt.WriteString(" = ")
	stmt.AddVar(e.actor(actor))
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(schema.ColumnID)
	stmt.WriteString(" = ")
	stmt.AddVar(id)
	stmt.WriteString(" AND ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NOT NULL")

	result, err := stmt.Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// FindDeleted lists soft-deleted records, most recently deleted first
func (s *Records) FindDeleted(ctx context.Context) ([]*Record, error) {
	stmt := s.engine.NewStatement(s.entity.Table)
	stmt.WriteString("SELECT * FROM ")
	stmt.WriteQuoted(stmt.Table)
	stmt.WriteString(" WHERE ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" IS NOT NULL ORDER BY ")
	stmt.WriteQuoted(schema.ColumnDeletedAt)
	stmt.WriteString(" DESC")

	return s.query(ctx, stmt)
}

func (s *Records) query(ctx context.Context, stmt *Statement) ([]*Record, error) {
	rows, err := stmt.Query(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRecords(rows, s.entity.Name)
}

func (s *Records) coerce(fields map[string]interface{}) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(fields))
	for name, value := range fields {
		field := s.entity.LookUpField(name)
		if field == nil {
			return nil, schema.FieldError{Field: name, Message: "unknown field"}
		}
		coerced, err := field.Coerce(value)
		if err != nil {
			return nil, err
		}
		values[field.DBName] = coerced
	}
	return values, nil
}

func (s *Records) writeConditions(stmt *Statement, q *Query) error {
	if len(q.Filters) > 0 {
		names := make([]string, 0, len(q.Filters))
		for name := range q.Filters {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			field := s.entity.LookUpField(name)
			if field == nil {
				return schema.FieldError{Field: name, Message: "unknown filter field"}
			}
			value, err := field.Coerce(q.Filters[name])
			if err != nil {
				return err
			}
			stmt.WriteString(" AND ")
			stmt.WriteQuoted(field.DBName)
			stmt.WriteString(" = ")
			stmt.AddVar(value)
		}
	}

	if q.Search != "" {
		var searchable []string
		for _, field := range s.entity.Fields {
			if field.DataType == schema.String || field.DataType == schema.Text {
				searchable = append(searchable, field.DBName)
			}
		}
		if len(searchable) > 0 {
			stmt.WriteString(" AND (")
			for idx, column := range searchable {
				if idx > 0 {
					stmt.WriteString(" OR ")
				}
				stmt.WriteQuoted(column)
				stmt.WriteString(" LIKE ")
				stmt.AddVar("%" + escapeLike(q.Search) + "%")
				stmt.WriteString(" ESCAPE '\\'")
			}
			stmt.WriteString(")")
		}
	}
	return nil
}

func (s *Records) writeOrder(stmt *Statement, q *Query) error {
	if q.Sort == "" {
		stmt.WriteString(" ORDER BY ")
		stmt.WriteQuoted(schema.ColumnCreatedAt)
		return nil
	}

	column := q.Sort
	if field := s.entity.LookUpField(q.Sort); field != nil {
		column = field.DBName
	} else if !auditSortable(q.Sort) {
		return schema.FieldError{Field: q.Sort, Message: "unknown sort field"}
	}

	stmt.WriteString(" ORDER BY ")
	stmt.WriteQuoted(column)
	if strings.EqualFold(q.Order, "desc") {
		stmt.WriteString(" DESC")
	}
	return nil
}

func auditSortable(name string) bool {
	switch name {
	case schema.ColumnID, schema.ColumnCreatedAt, schema.ColumnUpdatedAt:
		return true
	}
	return false
}

func writeLimit(stmt *Statement, q *Query) {
	if q.PerPage <= 0 {
		return
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	stmt.WriteString(" LIMIT ")
	stmt.AddVar(q.PerPage)
	stmt.WriteString(" OFFSET ")
	stmt.AddVar((page - 1) * q.PerPage)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
