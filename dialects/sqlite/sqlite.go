package sqlite

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"dorm.io/dorm"
	"dorm.io/dorm/errtranslator"
	"dorm.io/dorm/logger"
	"dorm.io/dorm/migrator"
	"dorm.io/dorm/schema"
)

// DriverName is the registered name of the mattn/go-sqlite3 driver
const DriverName = "sqlite3"

type Dialector struct {
	DriverName string
	DSN        string
	Conn       dorm.ConnPool
}

func Open(dsn string) dorm.Dialector {
	return &Dialector{DSN: dsn}
}

func (dialector Dialector) Name() string {
	return "sqlite"
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

func (dialector Dialector) BindVarTo(writer dorm.Writer, stmt *dorm.Statement, v interface{}) {
	writer.WriteByte('?')
}

func (dialector Dialector) QuoteTo(writer dorm.Writer, str string) {
	writer.WriteByte('`')
	if strings.Contains(str, ".") {
		for idx, str := range strings.Split(str, ".") {
			if idx > 0 {
				writer.WriteString(".`")
			}
			writer.WriteString(str)
			writer.WriteByte('`')
		}
	} else {
		writer.WriteString(str)
		writer.WriteByte('`')
	}
}

func (dialector Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `"`, vars...)
}

func (dialector Dialector) DataTypeOf(field *schema.Field) string {
	switch field.DataType {
	case schema.Bool:
		return "numeric"
	case schema.Int:
		return "integer"
	case schema.Float:
		return "real"
	case schema.String, schema.Text:
		return "text"
	case schema.Time:
		return "datetime"
	case schema.Bytes:
		return "blob"
	}
	return string(field.DataType)
}

func (dialector Dialector) Translate(err error) error {
	return errtranslator.SqliteErrTranslator{}.Translate(err)
}
