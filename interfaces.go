package dorm

import (
	"context"
	"database/sql"

	"dorm.io/dorm/schema"
)

// Dialector database dialector
type Dialector interface {
	Name() string
	Initialize(*Engine) error
	Migrator(e *Engine) Migrator
	DataTypeOf(field *schema.Field) string
	BindVarTo(writer Writer, stmt *Statement, v interface{})
	QuoteTo(writer Writer, str string)
	Explain(sql string, vars ...interface{}) string
}

// ErrorTranslator converts driver errors into dialect-neutral ones. A
// Dialector implements it so unique violations surface the same way on
// every backend.
type ErrorTranslator interface {
	Translate(err error) error
}

// ConnPool db conns pool interface
type ConnPool interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Migrator reconciles the live database schema with the registered metadata.
// Tables and columns are only ever added, never dropped.
type Migrator interface {
	AutoMigrate(ctx context.Context) error
	Plan(ctx context.Context) ([]string, error)
	CurrentDatabase(ctx context.Context) string
	HasTable(ctx context.Context, table string) bool
	HasColumn(ctx context.Context, table, column string) bool
	HasIndex(ctx context.Context, table, index string) bool
	ColumnTypes(ctx context.Context, table string) ([]ColumnType, error)
}

// ColumnType column type interface
type ColumnType interface {
	Name() string
	DatabaseTypeName() string
	Nullable() (nullable bool, ok bool)
}
