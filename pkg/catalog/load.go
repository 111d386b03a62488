package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a catalog seed file
type File struct {
	Catalogs []*Catalog `yaml:"catalogs"`
}

// LoadFile reads catalogs from a YAML file and merges them over the builtin
// catalogs: a file catalog replaces the builtin one of the same name.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return Load(bytes.NewReader(data))
}

// Load reads catalogs in the File layout from r
func Load(r io.Reader) (*Registry, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: failed to parse catalog file: %v", ErrInvalidCatalog, err)
	}
	return Merge(Builtin(), f.Catalogs)
}

// Merge overlays catalogs onto base by name and builds a registry
func Merge(base, overlay []*Catalog) (*Registry, error) {
	byName := make(map[string]int, len(base))
	merged := make([]*Catalog, 0, len(base)+len(overlay))
	for _, c := range base {
		byName[c.Name] = len(merged)
		merged = append(merged, c)
	}
	for _, c := range overlay {
		if c == nil {
			continue
		}
		if i, ok := byName[c.Name]; ok {
			merged[i] = c
			continue
		}
		byName[c.Name] = len(merged)
		merged = append(merged, c)
	}
	return NewRegistry(merged...)
}
