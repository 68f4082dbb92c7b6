// Package store implements the settings persistence collaborator: a
// flat, human-readable YAML mapping of bind names to values.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Settings may carry sensitive values, so the file is owner-only.
const fileMode = 0o600

// Store reads and writes the settings file. The filesystem is
// abstracted so tests run against an in-memory fs.
type Store struct {
	fs   afero.Fs
	path string
}

// Option configures a Store.
type Option func(*Store)

// WithFs overrides the filesystem, e.g. afero.NewMemMapFs() in tests.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = fs }
}

// New creates a store backed by the file at path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		fs:   afero.NewOsFs(),
		path: path,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file into a flat mapping. A missing file is
// an empty mapping, not an error.
func (s *Store) Load(_ context.Context) (map[string]any, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	// The mapping is flat; an improbable delimiter keeps koanf from
	// splitting bind names that contain dots.
	k := koanf.New("::")
	if err := k.Load(rawbytes.Provider(data), koanfyaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	settings := k.Raw()
	return filterNilValues(settings), nil
}

// Save writes the mapping back as YAML, creating parent directories as
// needed.
func (s *Store) Save(_ context.Context, values map[string]any) error {
	encoded, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := s.fs.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	if err := afero.WriteFile(s.fs, s.path, encoded, fileMode); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// filterNilValues removes nil entries so a half-written file never
// clobbers loaded values with nils.
func filterNilValues(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			filtered := filterNilValues(nested)
			if len(filtered) > 0 {
				result[k] = filtered
			}
			continue
		}
		result[k] = v
	}
	return result
}
