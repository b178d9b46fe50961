// Package errtranslator converts driver errors into dialect-neutral ones
// without importing any driver package: driver error structs are recognized
// through their exported JSON fields instead of their types.
package errtranslator

import (
	"encoding/json"
	"fmt"
)

// ErrTranslator converts a driver error, returning the input unchanged when
// it does not recognize it.
type ErrTranslator interface {
	Translate(err error) error
}

// ErrDuplicatedKey reports a unique constraint violation.
type ErrDuplicatedKey struct {
	Code    interface{}
	Message string
}

func (e ErrDuplicatedKey) Error() string {
	return fmt.Sprintf("duplicated key not allowed, code: %v, message: %s", e.Code, e.Message)
}

// decode round-trips err through JSON into a driver error shape. Errors
// without the shape decode to the zero value, which no code check matches.
func decode(err error, into interface{}) bool {
	raw, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		return false
	}
	return json.Unmarshal(raw, into) == nil
}
