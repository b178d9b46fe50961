package gateway

import (
	"errors"
	"net/http"

	"github.com/samber/oops"

	"dorm.io/dorm"
	"dorm.io/dorm/schema"
)

// Code is the machine-readable identifier carried by every error response.
type Code string

const (
	CodeRequestInvalid       Code = "record.request.invalid"
	CodeEntityNotFound       Code = "record.entity.not_found"
	CodeRelationshipNotFound Code = "record.relationship.not_found"
	CodeRowNotFound          Code = "record.row.not_found"
	CodeCascadeRestricted    Code = "record.cascade.restricted"
	CodeFieldsInvalid        Code = "record.fields.invalid"
	CodeInternalFailure      Code = "record.internal.failure"
)

const fieldsContextKey = "fields"

func newError(code Code, format string, args ...interface{}) error {
	return oops.Code(string(code)).Errorf(format, args...)
}

func wrapError(err error, code Code, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return oops.Code(string(code)).Wrapf(err, format, args...)
}

// CodeOf extracts the gateway code from an error chain, "" when the error
// carries none.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}
	return ""
}

// HTTPStatus maps a classified error onto its response status. Errors
// without a recognized code are treated as internal failures.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeRequestInvalid:
		return http.StatusBadRequest
	case CodeEntityNotFound, CodeRelationshipNotFound, CodeRowNotFound:
		return http.StatusNotFound
	case CodeCascadeRestricted:
		return http.StatusConflict
	case CodeFieldsInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// classify translates engine errors into coded gateway errors. Errors that
// already carry a code pass through; anything unrecognized becomes an
// internal failure so raw store errors never reach a client.
func classify(err error) error {
	if err == nil || CodeOf(err) != "" {
		return err
	}

	var fieldErr schema.FieldError
	switch {
	case errors.As(err, &fieldErr):
		return oops.Code(string(CodeFieldsInvalid)).
			With(fieldsContextKey, []schema.FieldError{fieldErr}).
			Wrapf(err, "invalid fields")
	case errors.Is(err, dorm.ErrRecordNotFound):
		return oops.Code(string(CodeRowNotFound)).Wrap(err)
	case errors.Is(err, dorm.ErrEntityNotRegistered):
		return oops.Code(string(CodeEntityNotFound)).Wrap(err)
	case errors.Is(err, dorm.ErrRelationshipNotRegistered):
		return oops.Code(string(CodeRelationshipNotFound)).Wrap(err)
	case errors.Is(err, dorm.ErrRestricted):
		return oops.Code(string(CodeCascadeRestricted)).Wrap(err)
	case errors.Is(err, dorm.ErrMissingID), errors.Is(err, dorm.ErrEntityNotParticipant):
		return oops.Code(string(CodeRequestInvalid)).Wrap(err)
	default:
		return wrapError(err, CodeInternalFailure, "internal failure")
	}
}

// fieldListOf returns the structured field failures attached to a
// fields-invalid error.
func fieldListOf(err error) []schema.FieldError {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	fields, _ := oopsErr.Context()[fieldsContextKey].([]schema.FieldError)
	return fields
}
