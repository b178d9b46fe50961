package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// File is the on-disk descriptor document the registry is loaded from.
type File struct {
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships"`
}

// Load reads a JSON descriptor document and builds a validated registry.
func Load(r io.Reader, namer Namer) (*Registry, error) {
	var file File

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing descriptors: %w", err)
	}

	return NewRegistry(namer, file.Entities, file.Relationships)
}

// LoadFile loads descriptors from path.
func LoadFile(path string, namer Namer) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening descriptors %s: %w", path, err)
	}
	defer f.Close()

	registry, err := Load(f, namer)
	if err != nil {
		return nil, fmt.Errorf("loading descriptors %s: %w", path, err)
	}
	return registry, nil
}
