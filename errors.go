package dorm

import (
	"errors"

	"dorm.io/dorm/logger"
)

var (
	// ErrRecordNotFound record not found error
	ErrRecordNotFound = logger.ErrRecordNotFound
	// ErrEntityNotRegistered entity missing from the metadata registry
	ErrEntityNotRegistered = errors.New("entity not registered")
	// ErrRelationshipNotRegistered relationship missing from the metadata registry
	ErrRelationshipNotRegistered = errors.New("relationship not registered")
	// ErrEntityNotParticipant entity does not participate in the relationship
	ErrEntityNotParticipant = errors.New("entity not a relationship participant")
	// ErrRestricted deletion blocked by a restrict cascade rule
	ErrRestricted = errors.New("deletion restricted by active relationships")
	// ErrNotImplemented not implemented
	ErrNotImplemented = errors.New("not implemented")
	// ErrMissingID record id required
	ErrMissingID = errors.New("record id required")
	// ErrMissingMetadata metadata registry required
	ErrMissingMetadata = errors.New("metadata registry required")
	// ErrInvalidField invalid field
	ErrInvalidField = errors.New("invalid field")
	// ErrInvalidData unsupported data
	ErrInvalidData = errors.New("unsupported data")
	// ErrUnsupportedDriver unsupported driver
	ErrUnsupportedDriver = errors.New("unsupported driver")
)
