package dorm

import (
	"time"

	"dorm.io/dorm/logger"
	"dorm.io/dorm/schema"
)

// Config engine config
type Config struct {
	// NamingStrategy tables, columns and relation tables naming strategy
	NamingStrategy schema.Namer
	// Logger
	Logger logger.Interface
	// NowFunc the function to be used when creating a new timestamp
	NowFunc func() time.Time
	// NewID generates identifiers for new records
	NewID func() string
	// DefaultActor recorded in audit columns when no actor is supplied
	DefaultActor string
	// BatchSize chunk size for batched relation inserts
	BatchSize int
	// PrepareStmt caches prepared statements per SQL text and reuses them
	PrepareStmt bool
	// ConnPool db conn pool
	ConnPool ConnPool
	// Dialector database dialector
	Dialector
}
