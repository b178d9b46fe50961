package errtranslator

// unique_violation class 23 error code
const postgresUniqueConstraint = "23505"

// PostgresErrTranslator recognizes lib/pq errors by shape.
type PostgresErrTranslator struct{}

type postgresErr struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

func (PostgresErrTranslator) Translate(err error) error {
	var parsed postgresErr
	if !decode(err, &parsed) {
		return err
	}
	if parsed.Code == postgresUniqueConstraint {
		return ErrDuplicatedKey{Code: parsed.Code, Message: parsed.Message}
	}
	return err
}
