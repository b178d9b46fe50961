package postgres

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"dorm.io/dorm"
	"dorm.io/dorm/errtranslator"
	"dorm.io/dorm/logger"
	"dorm.io/dorm/migrator"
	"dorm.io/dorm/schema"
)

// DriverName is the registered name of the lib/pq driver
const DriverName = "postgres"

type Dialector struct {
	DriverName string
	DSN        string
	Conn       dorm.ConnPool
}

func Open(dsn string) dorm.Dialector {
	return &Dialector{DSN: dsn}
}

func (dialector Dialector) Name() string {
	return "postgres"
}

func (dialector Dialector) Initialize(e *dorm.Engine) (err error) {
	if dialector.DriverName == "" {
		dialector.DriverName = DriverName
	}

	if dialector.Conn != nil {
		e.ConnPool = dialector.Conn
	} else {
		conn, err := sql.Open(dialector.DriverName, dialector.DSN)
		if err != nil {
			return err
		}
		e.ConnPool = conn
	}
	return
}

func (dialector Dialector) Migrator(e *dorm.Engine) dorm.Migrator {
	return Migrator{migrator.Migrator{Config: migrator.Config{
		Engine:    e,
		Dialector: dialector,
	}}}
}

// BindVarTo writes $n placeholders; the var is already appended, so its
// 1-based index is the current length.
func (dialector Dialector) BindVarTo(writer dorm.Writer, stmt *dorm.Statement, v interface{}) {
	writer.WriteByte('$')
	writer.WriteString(strconv.Itoa(len(stmt.Vars)))
}

func (dialector Dialector) QuoteTo(writer dorm.Writer, str string) {
	writer.WriteByte('"')
	if strings.Contains(str, ".") {
		for idx, str := range strings.Split(str, ".") {
			if idx > 0 {
				writer.WriteString(`."`)
			}
			writer.WriteString(str)
			writer.WriteByte('"')
		}
	} else {
		writer.WriteString(str)
		writer.WriteByte('"')
	}
}

var numericPlaceholder = regexp.MustCompile(`\$(\d+)`)

func (dialector Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, numericPlaceholder, `'`, vars...)
}

func (dialector Dialector) DataTypeOf(field *schema.Field) string {
	switch field.DataType {
	case schema.Bool:
		return "boolean"
	case schema.Int:
		return "bigint"
	case schema.Float:
		return "decimal"
	case schema.String:
		if field.Size > 0 {
			return fmt.Sprintf("varchar(%d)", field.Size)
		}
		return "text"
	case schema.Text:
		return "text"
	case schema.Time:
		return "timestamptz"
	case schema.Bytes:
		return "bytea"
	}
	return string(field.DataType)
}

func (dialector Dialector) Translate(err error) error {
	return errtranslator.PostgresErrTranslator{}.Translate(err)
}
