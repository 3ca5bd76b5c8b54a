// Package manifest loads and matches the canonical description of which
// files should exist and where.
//
// A manifest is static configuration supplied by the caller, never computed.
// Documents are validated against an embedded JSON Schema before unmarshal so
// malformed manifests fail with precise error paths instead of zero values.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Scope says where a file belongs.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopePerFeature
)

// String returns the scope's manifest-document spelling.
func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopePerFeature:
		return "per-feature"
	default:
		return "unknown"
	}
}

// ParseScope converts a manifest-document scope string.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "global":
		return ScopeGlobal, nil
	case "per-feature":
		return ScopePerFeature, nil
	default:
		return 0, fmt.Errorf("unknown scope %q (want global or per-feature)", s)
	}
}

// Entry describes one expected file or file pattern.
type Entry struct {
	PathOrPattern string
	Scope         Scope
	Required      bool
}

// IsPattern reports whether the entry uses glob metacharacters.
func (e Entry) IsPattern() bool {
	return strings.ContainsAny(e.PathOrPattern, "*?[{")
}

// Manifest is the caller-supplied description of expected files.
type Manifest struct {
	Entries []Entry
}

// Match returns the first entry valid for the given scope that the
// root-relative slash path satisfies.
func (m *Manifest) Match(relPath string, scope Scope) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Scope != scope {
			continue
		}
		if e.IsPattern() {
			if ok, err := doublestar.Match(e.PathOrPattern, relPath); err == nil && ok {
				return e, true
			}
			continue
		}
		if e.PathOrPattern == relPath {
			return e, true
		}
	}
	return Entry{}, false
}

// manifestSchema validates the manifest document shape.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["entries"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "entries": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path"],
        "additionalProperties": false,
        "properties": {
          "path": {"type": "string", "minLength": 1},
          "scope": {"type": "string", "enum": ["global", "per-feature"]},
          "required": {"type": "boolean"}
        }
      }
    }
  }
}`

// document mirrors the on-disk manifest shape.
type document struct {
	Version int             `yaml:"version" toml:"version" json:"version"`
	Entries []documentEntry `yaml:"entries" toml:"entries" json:"entries"`
}

type documentEntry struct {
	Path     string `yaml:"path" toml:"path" json:"path"`
	Scope    string `yaml:"scope" toml:"scope" json:"scope"`
	Required bool   `yaml:"required" toml:"required" json:"required"`
}

// Load reads, validates, and parses a manifest file. YAML (.yaml/.yml) and
// TOML (.toml) documents are supported.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var raw map[string]interface{}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse manifest TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q (want .yaml, .yml, or .toml)", ext)
	}

	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	// Round-trip through JSON so YAML and TOML share one typed decode path.
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize manifest: %w", err)
	}
	var doc document
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	return fromDocument(doc)
}

// validateDocument checks the raw document against the embedded schema.
func validateDocument(raw map[string]interface{}) error {
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to normalize manifest for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewBytesLoader(jsonBytes),
	)
	if err != nil {
		return fmt.Errorf("manifest schema validation failed: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return fmt.Errorf("invalid manifest: %s", strings.Join(problems, "; "))
	}
	return nil
}

func fromDocument(doc document) (*Manifest, error) {
	m := &Manifest{Entries: make([]Entry, 0, len(doc.Entries))}
	for i, de := range doc.Entries {
		scope := ScopeGlobal
		if de.Scope != "" {
			parsed, err := ParseScope(de.Scope)
			if err != nil {
				return nil, fmt.Errorf("entries[%d]: %w", i, err)
			}
			scope = parsed
		}
		m.Entries = append(m.Entries, Entry{
			PathOrPattern: filepath.ToSlash(de.Path),
			Scope:         scope,
			Required:      de.Required,
		})
	}
	return m, nil
}
