package dorm

import (
	"database/sql"
	"time"

	"github.com/jinzhu/now"

	"dorm.io/dorm/schema"
)

// ScanRecords maps rows onto Records, splitting identity, audit and
// soft-delete columns out of the dynamic field map. rows is closed by the
// caller.
func ScanRecords(rows *sql.Rows, entity string) ([]*Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		for idx := range values {
			values[idx] = new(interface{})
		}
		if err := rows.Scan(values...); err != nil {
			return nil, err
		}

		record := &Record{Entity: entity, Fields: map[string]interface{}{}}
		for idx, column := range columns {
			value := *(values[idx].(*interface{}))
			switch column {
			case schema.ColumnID:
				record.ID = toString(value)
			case schema.ColumnCreatedAt:
				record.CreatedAt, _ = toTime(value)
			case schema.ColumnUpdatedAt:
				record.UpdatedAt, _ = toTime(value)
			case schema.ColumnCreatedBy:
				record.CreatedBy = toString(value)
			case schema.ColumnUpdatedBy:
				record.UpdatedBy = toString(value)
			case schema.ColumnDeletedAt:
				if t, ok := toTime(value); ok {
					record.DeletedAt = DeletedAt{Time: t, Valid: true}
				}
			case schema.ColumnDeletedBy:
				if value != nil {
					record.DeletedBy = sql.NullString{String: toString(value), Valid: true}
				}
			default:
				record.Fields[column] = normalizeValue(value)
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func toTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
	case string:
		if t, err := now.Parse(v); err == nil {
			return t, true
		}
	case []byte:
		if t, err := now.Parse(string(v)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func normalizeValue(value interface{}) interface{} {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}
