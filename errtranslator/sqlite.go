package errtranslator

// SQLITE_CONSTRAINT_UNIQUE extended result code
const sqliteUniqueConstraint = 2067

// SqliteErrTranslator recognizes mattn/go-sqlite3 errors by shape.
type SqliteErrTranslator struct{}

type sqliteErr struct {
	Code         int `json:"Code"`
	ExtendedCode int `json:"ExtendedCode"`
}

func (SqliteErrTranslator) Translate(err error) error {
	var parsed sqliteErr
	if !decode(err, &parsed) {
		return err
	}
	if parsed.ExtendedCode == sqliteUniqueConstraint {
		return ErrDuplicatedKey{Code: parsed.ExtendedCode, Message: err.Error()}
	}
	return err
}
