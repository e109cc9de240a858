// Package registry keeps the JSON index of applications that have been
// routed, for lookup by people and scripts. The proxy never reads it.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kan/routeadd/internal/fileutil"
)

// TimeFormat is the layout of registry timestamps
const TimeFormat = "2006-01-02T15:04:05.000000"

// AppRecord is the registry entry of one application
type AppRecord struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	URL     string `yaml:"url"`
	URLPath string `yaml:"url_path"`
	Added   string `yaml:"added"`

	// Keys written by other tools, kept as they are
	Extra map[string]any `yaml:",inline"`
}

// Registry is the content of the registry file
type Registry struct {
	Apps        []AppRecord    `yaml:"apps"`
	LastUpdated string         `yaml:"last_updated"`
	Extra       map[string]any `yaml:",inline"`
}

// NewRecord builds the record for an application directory
func NewRecord(appPath, urlPath, host string, now time.Time) AppRecord {
	urlHost := host
	if urlHost == "" {
		urlHost = "localhost"
	}

	return AppRecord{
		Name:    AppName(appPath),
		Path:    appPath,
		URL:     "http://" + urlHost + urlPath,
		URLPath: urlPath,
		Added:   now.Format(TimeFormat),
	}
}

// AppName returns the registry name of an application directory
func AppName(appPath string) string {
	return filepath.Base(filepath.Clean(appPath))
}

// Upsert replaces every record named like rec with rec
func (r *Registry) Upsert(rec AppRecord) {
	apps := make([]AppRecord, 0, len(r.Apps)+1)
	for _, app := range r.Apps {
		if app.Name != rec.Name {
			apps = append(apps, app)
		}
	}
	r.Apps = append(apps, rec)
}

// Find returns the record with the given name
func (r *Registry) Find(name string) (AppRecord, bool) {
	for _, app := range r.Apps {
		if app.Name == name {
			return app, true
		}
	}
	return AppRecord{}, false
}

// MarshalJSON writes the known fields in a fixed order, followed by any
// extra keys
func (r AppRecord) MarshalJSON() ([]byte, error) {
	return marshalObject([]jsonField{
		{"name", r.Name},
		{"path", r.Path},
		{"url", r.URL},
		{"url_path", r.URLPath},
		{"added", r.Added},
	}, r.Extra)
}

// MarshalJSON writes apps and last_updated, followed by any extra keys
func (r Registry) MarshalJSON() ([]byte, error) {
	apps := r.Apps
	if apps == nil {
		apps = []AppRecord{}
	}

	return marshalObject([]jsonField{
		{"apps", apps},
		{"last_updated", r.LastUpdated},
	}, r.Extra)
}

type jsonField struct {
	key   string
	value any
}

// marshalObject encodes fields as a JSON object in the given order. Extra
// keys that do not clash with a field follow in sorted order.
func marshalObject(fields []jsonField, extra map[string]any) ([]byte, error) {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.key] = true
	}
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		if !known[k] {
			fields = append(fields, jsonField{k, extra[k]})
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Store reads and writes the registry file
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a store for the registry file at path
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the registry file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the registry. A missing file gives an empty registry, and so
// does a file that cannot be parsed: the next Save replaces it.
func (s *Store) Load() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Registry{Apps: []AppRecord{}}, nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	// JSON is valid YAML, and hand-edited YAML registries load too
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		slog.Warn("registry is malformed, starting from an empty one",
			"path", s.path,
			"error", err)
		return &Registry{Apps: []AppRecord{}}, nil
	}
	if reg.Apps == nil {
		reg.Apps = []AppRecord{}
	}
	return &reg, nil
}

// Save writes the registry as indented JSON, creating its directory
func (s *Store) Save(reg *Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	if err := fileutil.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}

// Add records an application, replacing any previous record of the same name
func (s *Store) Add(appPath, urlPath, host string) (AppRecord, error) {
	reg, err := s.Load()
	if err != nil {
		return AppRecord{}, err
	}

	now := s.now()
	rec := NewRecord(appPath, urlPath, host, now)
	reg.Upsert(rec)
	reg.LastUpdated = now.Format(TimeFormat)

	if err := s.Save(reg); err != nil {
		return AppRecord{}, err
	}
	return rec, nil
}

// Exists reports whether the registry file has been written yet
func (s *Store) Exists() bool {
	return fileutil.Exists(s.path)
}
