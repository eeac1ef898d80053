// Package loader reads form definitions, answer sets and external metadata
// bundles from JSON or YAML files.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dlovans/formwalk/pkg/formwalk"
)

// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ReadJSON returns the content of path as JSON. YAML files are converted.
func ReadJSON(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return data, nil
	case ".yaml", ".yml":
		out, err := yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// LoadForm reads a form definition.
func LoadForm(path string) (*formwalk.Form, error) {
	data, err := ReadJSON(path)
	if err != nil {
		return nil, err
	}
	form, err := formwalk.ParseForm(data)
	if err != nil {
		return nil, fmt.Errorf("decode form %s: %w", path, err)
	}
	return form, nil
}

// LoadAnswers reads an answer set. An empty path yields no answers.
func LoadAnswers(path string) (formwalk.Answers, error) {
	if path == "" {
		return formwalk.Answers{}, nil
	}
	data, err := ReadJSON(path)
	if err != nil {
		return nil, err
	}
	answers, err := formwalk.ParseAnswers(data)
	if err != nil {
		return nil, fmt.Errorf("decode answers %s: %w", path, err)
	}
	if answers == nil {
		answers = formwalk.Answers{}
	}
	return answers, nil
}

// LoadExternal reads a metadata-keyed bundle of previously known answers.
// An empty path yields nil.
func LoadExternal(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := ReadJSON(path)
	if err != nil {
		return nil, err
	}
	var bundle map[string]any
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("decode external %s: %w", path, err)
	}
	return bundle, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	normalized, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalize turns YAML mappings into string-keyed maps so the document can be
// re-encoded as JSON.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for key, val := range t {
			n, err := normalize(val)
			if err != nil {
				return nil, err
			}
			t[key] = n
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for key, val := range t {
			s, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", key)
			}
			n, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[s] = n
		}
		return out, nil
	case []any:
		for i, val := range t {
			n, err := normalize(val)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	}
	return v, nil
}
