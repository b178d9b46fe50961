package postgres

import (
	"context"
	"database/sql"
	"strings"

	"dorm.io/dorm"
	"dorm.io/dorm/migrator"
)

type Migrator struct {
	migrator.Migrator
}

func (m Migrator) CurrentDatabase(ctx context.Context) (name string) {
	stmt := m.Engine.NewStatement("")
	stmt.WriteString("SELECT CURRENT_DATABASE()")

	rows, err := stmt.Query(ctx)
	if err != nil {
		return ""
	}
	defer rows.Close()

	if rows.Next() {
		_ = rows.Scan(&name)
	}
	return name
}

func (m Migrator) HasTable(ctx context.Context, table string) bool {
	stmt := m.Engine.NewStatement(table)
	stmt.WriteString("SELECT count(*) FROM information_schema.tables WHERE table_schema = CURRENT_SCHEMA() AND table_name = ")
	stmt.AddVar(table)
	stmt.WriteString(" AND table_type = ")
	stmt.AddVar("BASE TABLE")

	count, err := stmt.Count(ctx)
	return err == nil && count > 0
}

func (m Migrator) HasColumn(ctx context.Context, table, column string) bool {
	stmt := m.Engine.NewStatement(table)
	stmt.WriteString("SELECT count(*) FROM information_schema.columns WHERE table_schema = CURRENT_SCHEMA() AND table_name = ")
	stmt.AddVar(table)
	stmt.WriteString(" AND column_name = ")
	stmt.AddVar(column)

	count, err := stmt.Count(ctx)
	return err == nil && count > 0
}

func (m Migrator) HasIndex(ctx context.Context, table, index string) bool {
	stmt := m.Engine.NewStatement(table)
	stmt.WriteString("SELECT count(*) FROM pg_indexes WHERE schemaname = CURRENT_SCHEMA() AND tablename = ")
	stmt.AddVar(table)
	stmt.WriteString(" AND indexname = ")
	stmt.AddVar(index)

	count, err := stmt.Count(ctx)
	return err == nil && count > 0
}

func (m Migrator) ColumnTypes(ctx context.Context, table string) ([]dorm.ColumnType, error) {
	stmt := m.Engine.NewStatement(table)
	stmt.WriteString("SELECT column_name, udt_name, is_nullable, column_default FROM information_schema.columns WHERE table_schema = CURRENT_SCHEMA() AND table_name = ")
	stmt.AddVar(table)

	rows, err := stmt.Query(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columnTypes []dorm.ColumnType
	for rows.Next() {
		var (
			name         string
			dataType     string
			nullable     string
			defaultValue sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &nullable, &defaultValue); err != nil {
			return nil, err
		}
		columnTypes = append(columnTypes, migrator.ColumnType{
			NameValue:         sql.NullString{String: name, Valid: true},
			DataTypeValue:     sql.NullString{String: dataType, Valid: true},
			NullableValue:     sql.NullBool{Bool: strings.EqualFold(nullable, "YES"), Valid: true},
			DefaultValueValue: defaultValue,
		})
	}
	return columnTypes, rows.Err()
}
