package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the document layout of a schema file.
type File struct {
	Parameters []map[string]any `json:"parameters" yaml:"parameters"`
}

// LoadFile reads a schema from a YAML or JSON file, chosen by extension.
func LoadFile(path string, catalog *Catalog) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	format := "yaml"
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		format = "json"
	}
	s, err := Parse(data, format, catalog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// Parse decodes a schema document in the given format ("yaml" or "json").
func Parse(data []byte, format string, catalog *Catalog) (*Schema, error) {
	var doc File
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse schema json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse schema yaml: %w", err)
		}
	}
	return FromMaps(doc.Parameters, catalog)
}

// FromMaps builds a schema from already-decoded parameter maps.
func FromMaps(raw []map[string]any, catalog *Catalog) (*Schema, error) {
	params := make([]Parameter, 0, len(raw))
	for i, m := range raw {
		spec, err := DecodeSpec(m)
		if err != nil {
			return nil, fmt.Errorf("parameters[%d]: %w", i, err)
		}
		d, err := spec.Build(catalog)
		if err != nil {
			return nil, fmt.Errorf("parameters[%d]: %w", i, err)
		}
		params = append(params, d)
	}
	return New(params...)
}
