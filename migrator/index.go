package migrator

import (
	"strings"

	"dorm.io/dorm"
)

// Index is one synthesized index. WhereNull names the column whose NULLness
// scopes a partial index; the unique pair indexes use it so soft-deleted
// rows never block relinking.
type Index struct {
	Table     string
	Name      string
	Columns   []string
	Unique    bool
	WhereNull string
}

// Build renders the CREATE INDEX statement with the dialect's quoting
func (idx Index) Build(dialector dorm.Dialector) string {
	var builder strings.Builder
	builder.WriteString("CREATE ")
	if idx.Unique {
		builder.WriteString("UNIQUE ")
	}
	builder.WriteString("INDEX ")
	dialector.QuoteTo(&builder, idx.Name)
	builder.WriteString(" ON ")
	dialector.QuoteTo(&builder, idx.Table)
	builder.WriteString(" (")
	for i, column := range idx.Columns {
		if i > 0 {
			builder.WriteByte(',')
		}
		dialector.QuoteTo(&builder, column)
	}
	builder.WriteString(")")
	if idx.WhereNull != "" {
		builder.WriteString(" WHERE ")
		dialector.QuoteTo(&builder, idx.WhereNull)
		builder.WriteString(" IS NULL")
	}
	return builder.String()
}
