package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileLayout struct {
	Config   Saved  `yaml:"config"`
	Endpoint string `yaml:"endpoint"`
}

// FileStore keeps the saved state in a YAML file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is $XDG_CONFIG_HOME/scripttester/state.yaml or its platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "scripttester.yaml"
	}

	return filepath.Join(dir, "scripttester", "state.yaml")
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(_ context.Context) (*Saved, error) {
	if strings.Contains(f.path, "..") {
		return nil, fmt.Errorf("invalid config path: %s", f.path)
	}

	data, err := os.ReadFile(f.path) // #nosec G304
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read saved config: %w", err)
	}

	var layout fileLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to parse saved config YAML: %w", err)
	}

	layout.Config.Endpoint = parseEndpoint(layout.Endpoint)
	return Merge(&layout.Config), nil
}

func (f *FileStore) Save(_ context.Context, s *Saved) error {
	layout := fileLayout{
		Config:   *s,
		Endpoint: s.Endpoint.Name(),
	}

	data, err := yaml.Marshal(&layout)
	if err != nil {
		return fmt.Errorf("failed to marshal saved config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write saved config: %w", err)
	}

	return nil
}
