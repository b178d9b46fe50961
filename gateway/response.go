package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dorm.io/dorm"
	"dorm.io/dorm/schema"
)

// Response is the common envelope. List endpoints add pagination and echo
// the filter and sort they applied.
type Response struct {
	Data       interface{}            `json:"data"`
	Message    string                 `json:"message,omitempty"`
	Pagination *dorm.Pagination       `json:"pagination,omitempty"`
	Filter     map[string]interface{} `json:"filter,omitempty"`
	Sort       string                 `json:"sort,omitempty"`
}

// ErrorResponse carries a classified failure.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []schema.FieldError `json:"fields,omitempty"`
}

// Grid is the list shape grid widgets consume: flattened rows plus column
// descriptors, with total and rowCount aliases.
type Grid struct {
	Rows     []map[string]interface{} `json:"rows"`
	Columns  []GridColumn             `json:"columns"`
	Total    int64                    `json:"total"`
	RowCount int64                    `json:"rowCount"`
}

type GridColumn struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

var titleCaser = cases.Title(language.English)

func gridLabel(column string) string {
	return titleCaser.String(strings.ReplaceAll(column, "_", " "))
}

// buildGrid flattens records into rows under the entity's column set.
func buildGrid(entity *schema.Entity, records []*dorm.Record, total int64) *Grid {
	columns := []GridColumn{{Field: schema.ColumnID, Label: gridLabel(schema.ColumnID), Type: string(schema.String)}}
	for _, field := range entity.Fields {
		columns = append(columns, GridColumn{Field: field.DBName, Label: gridLabel(field.DBName), Type: string(field.DataType)})
	}
	for _, column := range []string{schema.ColumnCreatedAt, schema.ColumnUpdatedAt} {
		columns = append(columns, GridColumn{Field: column, Label: gridLabel(column), Type: string(schema.Time)})
	}

	rows := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		row := map[string]interface{}{
			schema.ColumnID:        record.ID,
			schema.ColumnCreatedAt: record.CreatedAt,
			schema.ColumnUpdatedAt: record.UpdatedAt,
		}
		for _, field := range entity.Fields {
			row[field.DBName] = record.Fields[field.DBName]
		}
		rows = append(rows, row)
	}

	return &Grid{Rows: rows, Columns: columns, Total: total, RowCount: int64(len(records))}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, Response{Data: data, Message: message})
}

// writeError renders a classified error. Internal failures keep a stable
// generic message so store internals never leak into responses.
func writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	body := ErrorBody{Code: string(CodeOf(err)), Message: err.Error()}
	if body.Code == "" {
		body.Code = string(CodeInternalFailure)
	}
	if status == http.StatusInternalServerError {
		body.Message = "internal failure"
	}
	if Code(body.Code) == CodeFieldsInvalid {
		body.Fields = fieldListOf(err)
	}
	writeJSON(w, status, ErrorResponse{Error: body})
}
