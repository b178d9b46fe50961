package dorm

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Record is one row of a metadata-defined table. Entity holds the descriptor
// name the row belongs to; for relationship rows it is the relationship name.
type Record struct {
	ID        string                 `json:"id"`
	Entity    string                 `json:"-"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	CreatedBy string                 `json:"created_by,omitempty"`
	UpdatedBy string                 `json:"updated_by,omitempty"`
	DeletedAt DeletedAt              `json:"deleted_at,omitempty"`
	DeletedBy sql.NullString         `json:"-"`
}

// Field returns a field value by column name
func (r *Record) Field(name string) (interface{}, bool) {
	if r.Fields == nil {
		return nil, false
	}
	v, ok := r.Fields[name]
	return v, ok
}

// Ref returns the string value of a reference column, "" when absent
func (r *Record) Ref(column string) string {
	if v, ok := r.Field(column); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Deleted reports whether the record is soft deleted
func (r *Record) Deleted() bool {
	return r.DeletedAt.Valid
}

type DeletedAt sql.NullTime

// Scan implements the Scanner interface.
func (n *DeletedAt) Scan(value interface{}) error {
	return (*sql.NullTime)(n).Scan(value)
}

// Value implements the driver Valuer interface.
func (n DeletedAt) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Time, nil
}

func (n DeletedAt) MarshalJSON() ([]byte, error) {
	if n.Valid {
		return json.Marshal(n.Time)
	}
	return json.Marshal(nil)
}

func (n *DeletedAt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		n.Valid = false
		return nil
	}
	err := json.Unmarshal(b, &n.Time)
	if err == nil {
		n.Valid = true
	}
	return err
}
