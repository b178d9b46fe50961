package dorm

import (
	"context"
	"fmt"

	"dorm.io/dorm/schema"
)

// ManyToMany wraps a relation with batch linking and paginated reads for
// unbounded pair sets.
type ManyToMany struct {
	*Relation
}

// ManyToMany resolves a registered many-to-many relationship
func (e *Engine) ManyToMany(name string) (*ManyToMany, error) {
	r, err := e.Relation(name)
	if err != nil {
		return nil, err
	}
	if r.rel.Kind != schema.ManyToMany {
		return nil, fmt.Errorf("relationship %s is %s, want %s", name, r.rel.Kind, schema.ManyToMany)
	}
	return &ManyToMany{Relation: r}, nil
}

// RelatedPage is one page of link rows with its pagination envelope
type RelatedPage struct {
	Records    []*Record  `json:"records"`
	Pagination Pagination `json:"pagination"`
}

// Pagination locates a page within a larger result set
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// PageOf builds the pagination envelope for a page over total rows
func PageOf(page, perPage int, total int64) Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

// AddBatch links every related record to the record in chunked multi-row
// inserts. Pairs already active are skipped by the conflict target on the
// pair's partial unique index; the count of newly written rows is returned.
// batchSize <= 0 falls back to Config.BatchSize.
func (m *ManyToMany) AddBatch(ctx context.Context, actor string, record *Record, related []*Record, batchSize int) (int, error) {
	column, err := m.column(record)
	if err != nil {
		return 0, err
	}
	partner, err := m.rel.OtherSide(record.Entity)
	if err != nil {
		return 0, ErrEntityNotParticipant
	}
	if batchSize <= 0 {
		batchSize = m.engine.BatchSize
	}

	e := m.engine
	now := e.now()
	actor = e.actor(actor)

	inserted := 0
	for start := 0; start < len(related); start += batchSize {
		end := min(start+batchSize, len(related))
		chunk := related[start:end]

		stmt := e.NewStatement(m.rel.Table)
		stmt.WriteString("INSERT INTO ")
		stmt.WriteQuoted(stmt.Table)
		stmt.WriteString(" (")
		stmt.WriteColumns(schema.ColumnID, m.rel.LeftColumn, m.rel.RightColumn,
			schema.ColumnCreatedAt, schema.ColumnUpdatedAt, schema.ColumnCreatedBy, schema.ColumnUpdatedBy)
		stmt.WriteString(") VALUES ")

		for idx, other := range chunk {
			if other == nil || other.ID == "" {
				return inserted, ErrMissingID
			}
			if other.Entity != partner {
				return inserted, ErrEntityNotParticipant
			}

			left, right := record.ID, other.ID
			if column == m.rel.RightColumn {
				left, right = other.ID, record.ID
			}
			if idx > 0 {
				stmt.WriteString(", ")
			}
			stmt.WriteString("(")
			stmt.AddVar(e.NewID(), left, right, now, now, actor, actor)
			stmt.WriteString(")")
		}

		stmt.WriteString(" ON CONFLICT (")
		stmt.WriteColumns(m.rel.LeftColumn, m.rel.RightColumn)
		stmt.WriteString(") WHERE ")
		stmt.WriteQuoted(schema.ColumnDeletedAt)
		stmt.WriteString(" IS NULL DO NOTHING")

		result, err := stmt.Exec(ctx)
		if err != nil {
			return inserted, err
		}
		if affected, err := result.RowsAffected(); err == nil {
			inserted += int(affected)
		}
	}
	return inserted, nil
}

// RelatedPaginated pages the record's active link rows, oldest first
func (m *ManyToMany) RelatedPaginated(ctx context.Context, record *Record, page, perPage int) (*RelatedPage, error) {
	column, err := m.column(record)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}

	total, err := m.countRows(ctx, column, record.ID)
	if err != nil {
		return nil, err
	}

	stmt := m.engine.NewStatement(m.rel.Table)
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
	stmt.WriteString(" LIMIT ")
	stmt.AddVar(perPage)
	stmt.WriteString(" OFFSET ")
	stmt.AddVar((page - 1) * perPage)

	records, err := m.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return &RelatedPage{Records: records, Pagination: PageOf(page, perPage, total)}, nil
}

// HardDeleteAll physically deletes every join row referencing the record,
// soft-deleted history included. The engine's only hard delete surface.
func (m *ManyToMany) HardDeleteAll(ctx context.Context, record *Record) (int64, error) {
	column, err := m.column(record)
	if err != nil {
		return 0, err
	}
	return m.hardDeleteRows(ctx, column, record.ID)
}

const defaultPerPage = 20
