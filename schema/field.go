package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

type DataType string

const (
	Bool   DataType = "bool"
	Int    DataType = "int"
	Float  DataType = "float"
	String DataType = "string"
	Text   DataType = "text"
	Time   DataType = "time"
	Bytes  DataType = "bytes"
)

// Field is a declared entity or relationship column. DBName defaults to the
// snake-cased Name when the descriptor leaves it empty.
type Field struct {
	Name         string   `json:"name"`
	DBName       string   `json:"column,omitempty"`
	DataType     DataType `json:"type"`
	Size         int      `json:"size,omitempty"`
	NotNull      bool     `json:"not_null,omitempty"`
	Unique       bool     `json:"unique,omitempty"`
	DefaultValue string   `json:"default,omitempty"`
}

// FieldError reports a single field-level validation failure. Collections of
// these surface as one unprocessable-entity response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Message)
}

// Coerce converts an incoming value (typically decoded from JSON) into the
// Go value matching the field's declared data type. nil passes through so
// nullable columns can be cleared.
func (field *Field) Coerce(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch field.DataType {
	case Bool:
		switch data := value.(type) {
		case bool:
			return data, nil
		case string:
			return CheckTruth(data), nil
		case float64:
			return data != 0, nil
		case int:
			return data != 0, nil
		case int64:
			return data != 0, nil
		}
	case Int:
		switch data := value.(type) {
		case int:
			return int64(data), nil
		case int64:
			return data, nil
		case float64:
			return int64(data), nil
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(data), 10, 64); err == nil {
				return n, nil
			}
		}
	case Float:
		switch data := value.(type) {
		case float64:
			return data, nil
		case int:
			return float64(data), nil
		case int64:
			return float64(data), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(data), 64); err == nil {
				return f, nil
			}
		}
	case String, Text:
		switch data := value.(type) {
		case string:
			return data, nil
		case []byte:
			return string(data), nil
		case bool:
			return strconv.FormatBool(data), nil
		case float64:
			return strconv.FormatFloat(data, 'f', -1, 64), nil
		case int64:
			return strconv.FormatInt(data, 10), nil
		case int:
			return strconv.Itoa(data), nil
		}
	case Time:
		switch data := value.(type) {
		case time.Time:
			return data, nil
		case *time.Time:
			if data == nil {
				return nil, nil
			}
			return *data, nil
		case string:
			if t, err := now.Parse(data); err == nil {
				return t, nil
			}
			return nil, FieldError{Field: field.Name, Message: fmt.Sprintf("cannot parse %q as time", data)}
		case float64:
			return time.Unix(int64(data), 0), nil
		}
	case Bytes:
		switch data := value.(type) {
		case []byte:
			return data, nil
		case string:
			return []byte(data), nil
		}
	default:
		return nil, FieldError{Field: field.Name, Message: fmt.Sprintf("unsupported data type %q", field.DataType)}
	}

	return nil, FieldError{Field: field.Name, Message: fmt.Sprintf("cannot use %T value as %s", value, field.DataType)}
}

// CheckTruth check string true or not
func CheckTruth(vals ...string) bool {
	for _, val := range vals {
		if val != "" && !strings.EqualFold(val, "false") && !strings.EqualFold(val, "0") {
			return true
		}
	}
	return false
}

func (field *Field) apply(namer Namer, table string) error {
	if field.Name == "" {
		return fmt.Errorf("field on %s has no name", table)
	}
	if field.DBName == "" {
		field.DBName = namer.ColumnName(table, field.Name)
	}
	if field.DataType == "" {
		field.DataType = String
	}

	switch field.DataType {
	case Bool, Int, Float, String, Text, Time, Bytes:
	default:
		return fmt.Errorf("field %s on %s has unsupported data type %q", field.Name, table, field.DataType)
	}
	return nil
}
