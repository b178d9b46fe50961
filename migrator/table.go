package migrator

import (
	"dorm.io/dorm/schema"
)

// Table is the synthesized target shape of one entity or relationship table.
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// Column pairs a column name with the field its database type derives from.
// Implicit identity, reference and audit columns carry synthesized fields so
// the dialect's type mapping applies uniformly.
type Column struct {
	Name       string
	Field      *schema.Field
	PrimaryKey bool
}

// Tables derives every target table from the registry, entity tables first,
// each group ordered by name.
func Tables(registry *schema.Registry) []Table {
	var tables []Table
	for _, entity := range registry.Entities() {
		tables = append(tables, EntityTable(registry.Namer(), entity))
	}
	for _, rel := range registry.Relationships() {
		tables = append(tables, RelationTable(registry.Namer(), rel))
	}
	return tables
}

// EntityTable derives the target table for an entity: id primary key, the
// declared fields, audit and soft-delete columns, a deleted_at lookup index
// and a partial unique index per unique field.
func EntityTable(namer schema.Namer, entity *schema.Entity) Table {
	table := Table{Name: entity.Table}

	table.Columns = append(table.Columns, idColumn())
	for _, field := range entity.Fields {
		table.Columns = append(table.Columns, Column{Name: field.DBName, Field: field})
	}
	table.Columns = append(table.Columns, auditColumns()...)

	for _, field := range entity.Fields {
		if field.Unique {
			table.Indexes = append(table.Indexes, Index{
				Table:     entity.Table,
				Name:      namer.UniqueIndexName(entity.Table, field.DBName),
				Columns:   []string{field.DBName},
				Unique:    true,
				WhereNull: schema.ColumnDeletedAt,
			})
		}
	}
	table.Indexes = append(table.Indexes, deletedAtIndex(namer, entity.Table))
	return table
}

// RelationTable derives the join table for a relationship: id, the two
// reference columns, declared extra fields and audit columns. OneToOne and
// ManyToMany pairs get the partial unique index that backs insert-if-absent;
// each reference column gets a lookup index.
func RelationTable(namer schema.Namer, rel *schema.Relationship) Table {
	table := Table{Name: rel.Table}

	table.Columns = append(table.Columns, idColumn())
	for _, column := range []string{rel.LeftColumn, rel.RightColumn} {
		table.Columns = append(table.Columns, Column{Name: column, Field: referenceField(column)})
	}
	for _, field := range rel.ExtraFields {
		table.Columns = append(table.Columns, Column{Name: field.DBName, Field: field})
	}
	table.Columns = append(table.Columns, auditColumns()...)

	if rel.Kind == schema.OneToOne || rel.Kind == schema.ManyToMany {
		table.Indexes = append(table.Indexes, Index{
			Table:     rel.Table,
			Name:      namer.UniqueIndexName(rel.Table, rel.LeftColumn, rel.RightColumn),
			Columns:   []string{rel.LeftColumn, rel.RightColumn},
			Unique:    true,
			WhereNull: schema.ColumnDeletedAt,
		})
	}
	for _, column := range []string{rel.LeftColumn, rel.RightColumn} {
		table.Indexes = append(table.Indexes, Index{
			Table:   rel.Table,
			Name:    namer.IndexName(rel.Table, column),
			Columns: []string{column},
		})
	}
	table.Indexes = append(table.Indexes, deletedAtIndex(namer, rel.Table))
	return table
}

func idColumn() Column {
	return Column{
		Name:       schema.ColumnID,
		Field:      &schema.Field{Name: schema.ColumnID, DBName: schema.ColumnID, DataType: schema.String, NotNull: true},
		PrimaryKey: true,
	}
}

func referenceField(column string) *schema.Field {
	return &schema.Field{Name: column, DBName: column, DataType: schema.String, NotNull: true}
}

func auditColumns() []Column {
	columns := make([]Column, 0, len(schema.AuditColumns))
	for _, name := range schema.AuditColumns {
		dataType := schema.Time
		switch name {
		case schema.ColumnCreatedBy, schema.ColumnUpdatedBy, schema.ColumnDeletedBy:
			dataType = schema.String
		}
		columns = append(columns, Column{
			Name:  name,
			Field: &schema.Field{Name: name, DBName: name, DataType: dataType},
		})
	}
	return columns
}

func deletedAtIndex(namer schema.Namer, table string) Index {
	return Index{
		Table:   table,
		Name:    namer.IndexName(table, schema.ColumnDeletedAt),
		Columns: []string{schema.ColumnDeletedAt},
	}
}
