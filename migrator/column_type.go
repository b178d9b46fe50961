package migrator

import "database/sql"

// ColumnType describes one live column. Dialect introspection fills the
// Value fields; anything left unset falls back to the driver's own metadata
// when a row probe supplied it.
type ColumnType struct {
	SQLColumnType *sql.ColumnType

	NameValue         sql.NullString
	DataTypeValue     sql.NullString
	NullableValue     sql.NullBool
	PrimaryKeyValue   sql.NullBool
	DefaultValueValue sql.NullString
}

// Name returns the name of the column.
func (ct ColumnType) Name() string {
	if ct.NameValue.Valid {
		return ct.NameValue.String
	}
	if ct.SQLColumnType != nil {
		return ct.SQLColumnType.Name()
	}
	return ""
}

// DatabaseTypeName returns the database system name of the column type.
func (ct ColumnType) DatabaseTypeName() string {
	if ct.DataTypeValue.Valid {
		return ct.DataTypeValue.String
	}
	if ct.SQLColumnType != nil {
		return ct.SQLColumnType.DatabaseTypeName()
	}
	return ""
}

// Nullable reports whether the column may be null.
func (ct ColumnType) Nullable() (nullable bool, ok bool) {
	if ct.NullableValue.Valid {
		return ct.NullableValue.Bool, true
	}
	if ct.SQLColumnType != nil {
		return ct.SQLColumnType.Nullable()
	}
	return false, false
}

// PrimaryKey reports whether the column is the table's primary key.
func (ct ColumnType) PrimaryKey() (isPrimaryKey bool, ok bool) {
	return ct.PrimaryKeyValue.Bool, ct.PrimaryKeyValue.Valid
}

// DefaultValue returns the column's default expression.
func (ct ColumnType) DefaultValue() (value string, ok bool) {
	return ct.DefaultValueValue.String, ct.DefaultValueValue.Valid
}
