package dorm

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"dorm.io/dorm/internal/stmtcache"
	"dorm.io/dorm/logger"
	"dorm.io/dorm/schema"
)

// Engine maps metadata-defined entities and relationships onto a relational
// database. All tables, columns and indexes are derived from the registered
// descriptors; no Go structs are involved.
type Engine struct {
	*Config
	registry *schema.Registry
}

// Open initialize engine based on dialector
func Open(dialector Dialector, config *Config) (e *Engine, err error) {
	if config == nil {
		config = &Config{}
	}

	if config.NamingStrategy == nil {
		config.NamingStrategy = schema.NamingStrategy{}
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}

	if config.NowFunc == nil {
		config.NowFunc = func() time.Time { return time.Now().Local() }
	}

	if config.NewID == nil {
		config.NewID = uuid.NewString
	}

	if config.DefaultActor == "" {
		config.DefaultActor = "anonymous"
	}

	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}

	if dialector != nil {
		config.Dialector = dialector
	}

	e = &Engine{Config: config}

	if config.Dialector != nil {
		if err = config.Dialector.Initialize(e); err != nil {
			return
		}
	}

	if config.PrepareStmt {
		if db, ok := e.ConnPool.(*sql.DB); ok {
			e.ConnPool = stmtcache.New(db, 0, 0)
		}
	}
	return
}

// Register builds the metadata registry the engine operates on. Descriptor
// validation is fail fast: a single invalid entity or relationship rejects
// the whole file.
func (e *Engine) Register(f *schema.File) error {
	registry, err := schema.NewRegistry(e.NamingStrategy, f.Entities, f.Relationships)
	if err != nil {
		return err
	}
	e.registry = registry
	return nil
}

// RegisterFile loads a JSON descriptor file and registers it
func (e *Engine) RegisterFile(path string) error {
	registry, err := schema.LoadFile(path, e.NamingStrategy)
	if err != nil {
		return err
	}
	e.registry = registry
	return nil
}

// Registry returns the registered metadata, nil before Register
func (e *Engine) Registry() *schema.Registry {
	return e.registry
}

// Migrator returns the schema synthesizer for the current dialect
func (e *Engine) Migrator() Migrator {
	return e.Dialector.Migrator(e)
}

// DB returns the underlying *sql.DB
func (e *Engine) DB() (*sql.DB, error) {
	switch pool := e.ConnPool.(type) {
	case *sql.DB:
		return pool, nil
	case *stmtcache.DB:
		return pool.DB(), nil
	}
	return nil, ErrInvalidData
}

func (e *Engine) now() time.Time {
	return e.NowFunc()
}

func (e *Engine) actor(actor string) string {
	if actor == "" {
		return e.DefaultActor
	}
	return actor
}
