package dorm

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"dorm.io/dorm/logger"
)

// Writer write interface
type Writer interface {
	WriteByte(byte) error
	WriteString(string) (int, error)
}

// Statement assembles and executes a single SQL statement against one table.
// Placeholders are written through the dialect so vars line up with the
// driver's binding style.
type Statement struct {
	Engine   *Engine
	Table    string
	SQL      strings.Builder
	Vars     []interface{}
	ConnPool ConnPool
}

// NewStatement starts a statement against table
func (e *Engine) NewStatement(table string) *Statement {
	return &Statement{Engine: e, Table: table, ConnPool: e.ConnPool}
}

func (stmt *Statement) WriteString(str string) (int, error) {
	return stmt.SQL.WriteString(str)
}

func (stmt *Statement) WriteByte(c byte) error {
	return stmt.SQL.WriteByte(c)
}

// WriteQuoted write quoted identifier
func (stmt *Statement) WriteQuoted(name string) {
	stmt.Engine.Dialector.QuoteTo(&stmt.SQL, name)
}

// WriteColumns write a quoted, comma separated column list
func (stmt *Statement) WriteColumns(columns ...string) {
	for idx, column := range columns {
		if idx > 0 {
			stmt.SQL.WriteByte(',')
		}
		stmt.WriteQuoted(column)
	}
}

// AddVar append vars and write the dialect's bind placeholders. Vars must be
// appended before BindVarTo runs so numbered placeholders see the right index.
func (stmt *Statement) AddVar(vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			stmt.SQL.WriteByte(',')
		}
		stmt.Vars = append(stmt.Vars, v)
		stmt.Engine.Dialector.BindVarTo(&stmt.SQL, stmt, v)
	}
}

// Explain renders the statement with parameters bound, for logging only
func (stmt *Statement) Explain(ctx context.Context) string {
	query, vars := stmt.SQL.String(), stmt.Vars
	if filter, ok := stmt.Engine.Logger.(logger.ParamsFilter); ok {
		query, vars = filter.ParamsFilter(ctx, query, vars...)
	}
	return stmt.Engine.Dialector.Explain(query, vars...)
}

// Exec executes the statement, tracing SQL text, duration and affected rows
func (stmt *Statement) Exec(ctx context.Context) (sql.Result, error) {
	begin := time.Now()
	result, err := stmt.ConnPool.ExecContext(ctx, stmt.SQL.String(), stmt.Vars...)
	stmt.Engine.Logger.Trace(ctx, begin, func() (string, int64) {
		rows := int64(-1)
		if err == nil && result != nil {
			if affected, raErr := result.RowsAffected(); raErr == nil {
				rows = affected
			}
		}
		return stmt.Explain(ctx), rows
	}, err)
	if err != nil {
		if translator, ok := stmt.Engine.Dialector.(ErrorTranslator); ok {
			err = translator.Translate(err)
		}
	}
	return result, err
}

// Query executes the statement and returns rows; the row count is unknown at
// trace time, so the trace reports it as -1.
func (stmt *Statement) Query(ctx context.Context) (*sql.Rows, error) {
	begin := time.Now()
	rows, err := stmt.ConnPool.QueryContext(ctx, stmt.SQL.String(), stmt.Vars...)
	stmt.Engine.Logger.Trace(ctx, begin, func() (string, int64) {
		return stmt.Explain(ctx), -1
	}, err)
	return rows, err
}

// Count executes the statement as a scalar count query
func (stmt *Statement) Count(ctx context.Context) (int64, error) {
	rows, err := stmt.Query(ctx)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, err
		}
	}
	return count, rows.Err()
}
