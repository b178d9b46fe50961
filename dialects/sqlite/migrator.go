package sqlite

import (
	"context"
	"database/sql"

	"dorm.io/dorm"
	"dorm.io/dorm/migrator"
)

type Migrator struct {
	migrator.Migrator
}

func (m Migrator) HasTable(ctx context.Context, table string) bool {
	stmt := m.Engine.NewStatement(table)
	stmt.WriteString("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ")
	stmt.AddVar(table)

	count, err := stmt.Count(ctx)
	return err == nil && count > 0
}

func (m Migrator) HasIndex(ctx context.Context, table, index string) bool {
	stmt := m.Engine.NewStatement(table)
	stmt.WriteString("SELECT count(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ")
	stmt.AddVar(table)
	stmt.WriteString(" AND name = ")
	stmt.AddVar(index)

	count, err := stmt.Count(ctx)
	return err == nil && count > 0
}

// ColumnTypes reads PRAGMA table_info, which sees columns added after table
// creation that a scan of the stored create SQL would miss.
func (m Migrator) ColumnTypes(ctx context.Context, table string) ([]dorm.ColumnType, error) {
	stmt := m.Engine.NewStatement(table)
	stmt.WriteString("PRAGMA table_info(")
	stmt.WriteQuoted(table)
	stmt.WriteString(")")

	rows, err := stmt.Query(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columnTypes []dorm.ColumnType
	for rows.Next() {
		var (
			cid          int
			name         string
			dataType     string
			notNull      int
			defaultValue sql.NullString
			pk           int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		columnTypes = append(columnTypes, migrator.ColumnType{
			NameValue:         sql.NullString{String: name, Valid: true},
			DataTypeValue:     sql.NullString{String: dataType, Valid: true},
			NullableValue:     sql.NullBool{Bool: notNull == 0, Valid: true},
			PrimaryKeyValue:   sql.NullBool{Bool: pk > 0, Valid: true},
			DefaultValueValue: defaultValue,
		})
	}
	return columnTypes, rows.Err()
}

func (m Migrator) CurrentDatabase(ctx context.Context) (name string) {
	stmt := m.Engine.NewStatement("")
	stmt.WriteString("PRAGMA database_list")

	rows, err := stmt.Query(ctx)
	if err != nil {
		return ""
	}
	defer rows.Close()

	if rows.Next() {
		var seq, file interface{}
		_ = rows.Scan(&seq, &name, &file)
	}
	return name
}
