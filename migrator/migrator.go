package migrator

import (
	"context"
	"fmt"
	"strings"

	"dorm.io/dorm"
	"dorm.io/dorm/schema"
)

// Migrator reconciles the live database schema with the registered metadata.
// The diff is additive only: missing tables, columns and indexes are created,
// nothing is ever altered or dropped. Live columns absent from the metadata
// stay in place and log a warning.
type Migrator struct {
	Config
}

// Config schema synthesizer config
type Config struct {
	Engine    *dorm.Engine
	Dialector dorm.Dialector
}

// this re-dispatches through the dialect so its overrides win over the
// generic implementations below.
func (m Migrator) this() dorm.Migrator {
	return m.Dialector.Migrator(m.Engine)
}

// AutoMigrate computes the plan and executes it in order. A failing
// statement aborts the run with an error naming the statement; statements
// already executed stay applied.
func (m Migrator) AutoMigrate(ctx context.Context) error {
	plan, err := m.this().Plan(ctx)
	if err != nil {
		return err
	}
	for _, statement := range plan {
		if err := m.exec(ctx, statement); err != nil {
			return fmt.Errorf("migrate statement %q: %w", statement, err)
		}
	}
	return nil
}

// Plan computes the DDL statements that bring the live schema up to the
// registered metadata. An empty plan means the schema is current.
func (m Migrator) Plan(ctx context.Context) ([]string, error) {
	registry := m.Engine.Registry()
	if registry == nil {
		return nil, dorm.ErrMissingMetadata
	}

	var plan []string
	for _, table := range Tables(registry) {
		statements, err := m.planTable(ctx, table)
		if err != nil {
			return nil, err
		}
		plan = append(plan, statements...)
	}
	return plan, nil
}

func (m Migrator) planTable(ctx context.Context, table Table) ([]string, error) {
	if !m.this().HasTable(ctx, table.Name) {
		statements := []string{m.createTableSQL(table)}
		for _, idx := range table.Indexes {
			statements = append(statements, idx.Build(m.Dialector))
		}
		return statements, nil
	}

	columnTypes, err := m.this().ColumnTypes(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	live := map[string]bool{}
	for _, columnType := range columnTypes {
		live[strings.ToLower(columnType.Name())] = true
	}

	var statements []string
	target := map[string]bool{}
	for _, column := range table.Columns {
		target[strings.ToLower(column.Name)] = true
		if !live[strings.ToLower(column.Name)] {
			statements = append(statements, m.addColumnSQL(table, column))
		}
	}
	for _, columnType := range columnTypes {
		if !target[strings.ToLower(columnType.Name())] {
			m.Engine.Logger.Warn(ctx, "table %s column %s is not declared in metadata, leaving it in place", table.Name, columnType.Name())
		}
	}

	for _, idx := range table.Indexes {
		if !m.this().HasIndex(ctx, table.Name, idx.Name) {
			statements = append(statements, idx.Build(m.Dialector))
		}
	}
	return statements, nil
}

// CurrentDatabase is resolved by the dialect's catalog
func (m Migrator) CurrentDatabase(ctx context.Context) string {
	return ""
}

// HasTable probes the table with a zero-row select. Dialects override this
// with catalog queries that do not log a failed probe.
func (m Migrator) HasTable(ctx context.Context, table string) bool {
	stmt := m.Engine.NewStatement(table)
	stmt.WriteString("SELECT 1 FROM ")
	stmt.WriteQuoted(table)
	stmt.WriteString(" LIMIT 1")

	rows, err := stmt.Query(ctx)
	if err != nil {
		return false
	}
	rows.Close()
	return true
}

// HasColumn reports whether the table's live schema carries the column
func (m Migrator) HasColumn(ctx context.Context, table, column string) bool {
	columnTypes, err := m.this().ColumnTypes(ctx, table)
	if err != nil {
		return false
	}
	for _, columnType := range columnTypes {
		if strings.EqualFold(columnType.Name(), column) {
			return true
		}
	}
	return false
}

// HasIndex reports whether the named index exists. Index catalogs are
// dialect specific, so the generic form knows nothing.
func (m Migrator) HasIndex(ctx context.Context, table, index string) bool {
	return false
}

// ColumnTypes introspects a table's live columns through a zero-row probe,
// which stays portable across drivers.
func (m Migrator) ColumnTypes(ctx context.Context, table string) ([]dorm.ColumnType, error) {
	stmt := m.Engine.NewStatement(table)
	stmt.WriteString("SELECT * FROM ")
	stmt.WriteQuoted(table)
	stmt.WriteString(" LIMIT 1")

	rows, err := stmt.Query(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rawTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	columnTypes := make([]dorm.ColumnType, 0, len(rawTypes))
	for _, rawType := range rawTypes {
		columnTypes = append(columnTypes, ColumnType{SQLColumnType: rawType})
	}
	return columnTypes, rows.Err()
}

func (m Migrator) exec(ctx context.Context, sql string) error {
	stmt := m.Engine.NewStatement("")
	stmt.WriteString(sql)
	_, err := stmt.Exec(ctx)
	return err
}

func (m Migrator) createTableSQL(table Table) string {
	var builder strings.Builder
	builder.WriteString("CREATE TABLE ")
	m.Dialector.QuoteTo(&builder, table.Name)
	builder.WriteString(" (")
	for idx, column := range table.Columns {
		if idx > 0 {
			builder.WriteString(", ")
		}
		m.writeColumn(&builder, column, true)
	}
	builder.WriteString(")")
	return builder.String()
}

// addColumnSQL renders ALTER TABLE ADD COLUMN without NOT NULL: the table
// may already hold rows that cannot satisfy the constraint.
func (m Migrator) addColumnSQL(table Table, column Column) string {
	var builder strings.Builder
	builder.WriteString("ALTER TABLE ")
	m.Dialector.QuoteTo(&builder, table.Name)
	builder.WriteString(" ADD COLUMN ")
	m.writeColumn(&builder, column, false)
	return builder.String()
}

func (m Migrator) writeColumn(builder *strings.Builder, column Column, withConstraints bool) {
	m.Dialector.QuoteTo(builder, column.Name)
	builder.WriteByte(' ')
	builder.WriteString(m.Dialector.DataTypeOf(column.Field))
	if withConstraints {
		if column.PrimaryKey {
			builder.WriteString(" PRIMARY KEY")
		}
		// sqlite text primary keys stay nullable unless told otherwise
		if column.Field.NotNull {
			builder.WriteString(" NOT NULL")
		}
	}
	if column.Field.DefaultValue != "" {
		builder.WriteString(" DEFAULT ")
		builder.WriteString(defaultValueSQL(column.Field))
	}
}

func defaultValueSQL(field *schema.Field) string {
	switch field.DataType {
	case schema.Bool, schema.Int, schema.Float:
		return field.DefaultValue
	default:
		return "'" + strings.ReplaceAll(field.DefaultValue, "'", "''") + "'"
	}
}
