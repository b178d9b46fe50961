package schema

import (
	"fmt"
	"strings"
)

// Audit and soft-delete columns present on every entity and relationship
// table. Declared fields may not collide with them.
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
	ColumnCreatedBy = "created_by"
	ColumnUpdatedBy = "updated_by"
	ColumnDeletedAt = "deleted_at"
	ColumnDeletedBy = "deleted_by"
)

// AuditColumns in the order they appear on every synthesized table.
var AuditColumns = []string{
	ColumnCreatedAt, ColumnUpdatedAt, ColumnCreatedBy, ColumnUpdatedBy,
	ColumnDeletedAt, ColumnDeletedBy,
}

func reservedColumn(name string) bool {
	if name == ColumnID {
		return true
	}
	for _, col := range AuditColumns {
		if name == col {
			return true
		}
	}
	return false
}

// Entity is the declarative description of one record type. Identity, audit
// and soft-delete columns are implicit; Fields lists only the declared ones.
type Entity struct {
	Name   string   `json:"name"`
	Table  string   `json:"table,omitempty"`
	Fields []*Field `json:"fields"`

	FieldsByDBName map[string]*Field `json:"-"`
}

// LookUpField resolves a declared field by name or column name.
func (entity *Entity) LookUpField(name string) *Field {
	if field, ok := entity.FieldsByDBName[name]; ok {
		return field
	}
	for _, field := range entity.Fields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

func (entity *Entity) apply(namer Namer) error {
	entity.Name = strings.ToLower(entity.Name)
	if !NameRegexp.MatchString(entity.Name) {
		return fmt.Errorf("invalid entity name %q", entity.Name)
	}
	if entity.Table == "" {
		entity.Table = namer.TableName(entity.Name)
	}

	entity.FieldsByDBName = map[string]*Field{}
	for _, field := range entity.Fields {
		if err := field.apply(namer, entity.Table); err != nil {
			return err
		}
		if reservedColumn(field.DBName) {
			return fmt.Errorf("entity %s field %s collides with reserved column %s", entity.Name, field.Name, field.DBName)
		}
		if _, ok := entity.FieldsByDBName[field.DBName]; ok {
			return fmt.Errorf("entity %s declares column %s twice", entity.Name, field.DBName)
		}
		entity.FieldsByDBName[field.DBName] = field
	}
	return nil
}
