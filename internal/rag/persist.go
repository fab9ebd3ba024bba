// internal/rag/persist.go
package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/mwiater/mmrag/internal/content"
	"github.com/mwiater/mmrag/internal/docstore"
	"github.com/mwiater/mmrag/internal/util"
	"github.com/mwiater/mmrag/internal/vectorstore"
)

// ManifestFile describes a saved index and is written last.
const ManifestFile = "manifest.yaml"

// FormatVersion is the storage layout version written to the manifest.
const FormatVersion = 1

// Manifest is the human-readable header of a storage directory.
type Manifest struct {
	Version   int            `yaml:"version"`
	Store     string         `yaml:"store"`
	Entries   int            `yaml:"entries"`
	Kinds     map[string]int `yaml:"kinds,omitempty"`
	Models    Models         `yaml:"models,omitempty"`
	CreatedAt string         `yaml:"created_at"`
}

var manifestSchema = map[string]any{
	"type":     "object",
	"required": []string{"version", "store", "entries", "created_at"},
	"properties": map[string]any{
		"version": map[string]any{"type": "integer", "enum": []int{FormatVersion}},
		"store":   map[string]any{"type": "string", "minLength": 1},
		"entries": map[string]any{"type": "integer", "minimum": 0},
		"kinds": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "integer", "minimum": 0},
		},
		"models":     map[string]any{"type": "object"},
		"created_at": map[string]any{"type": "string", "minLength": 1},
	},
}

// StoreOpener reopens a persisted vector store of the named backend type.
type StoreOpener func(storeType, dir string) (vectorstore.Store, error)

// Save writes the vector store, the docstore, and finally the manifest into
// dir. Every file is replaced atomically.
func (ix *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrPersistence, dir, err)
	}
	if err := ix.vectors.Persist(dir); err != nil {
		return fmt.Errorf("%w: vector store: %v", ErrPersistence, err)
	}
	if err := ix.docs.Save(filepath.Join(dir, docstore.FileName)); err != nil {
		return fmt.Errorf("%w: docstore: %v", ErrPersistence, err)
	}

	stats := ix.Stats()
	m := Manifest{
		Version:   FormatVersion,
		Store:     ix.vectors.Type(),
		Entries:   stats.Entries,
		Kinds:     stats.Kinds,
		Models:    ix.models,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: encode manifest: %v", ErrPersistence, err)
	}
	if err := util.WriteFileAtomic(filepath.Join(dir, ManifestFile), data); err != nil {
		return fmt.Errorf("%w: manifest: %v", ErrPersistence, err)
	}
	return nil
}

// Load reopens an index saved in dir. The summary/content linkage is trusted;
// only the entry count in the manifest is checked against the docstore.
func Load(ctx context.Context, dir string, open StoreOpener, opts ...Option) (*Index, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: storage directory %s does not exist", ErrPersistence, dir)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrPersistence, dir)
	}

	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	docs, err := docstore.Load(filepath.Join(dir, docstore.FileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if docs.Len() != m.Entries {
		return nil, fmt.Errorf("%w: manifest lists %d entries but docstore holds %d", ErrPersistence, m.Entries, docs.Len())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vs, err := open(m.Store, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s vector store: %v", ErrPersistence, m.Store, err)
	}

	ix := newIndex(vs, docs, append([]Option{WithModels(m.Models)}, opts...)...)
	for name, n := range m.Kinds {
		kind, err := content.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: manifest: %v", ErrPersistence, err)
		}
		ix.kinds[kind] = n
	}
	return ix, nil
}

// ReadManifest decodes and schema-validates the manifest in dir.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: read manifest: %v", ErrPersistence, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Manifest{}, fmt.Errorf("%w: parse manifest: %v", ErrPersistence, err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(manifestSchema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: manifest schema: %v", ErrPersistence, err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return Manifest{}, fmt.Errorf("%w: invalid manifest: %s", ErrPersistence, strings.Join(errs, ", "))
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: decode manifest: %v", ErrPersistence, err)
	}
	return m, nil
}
