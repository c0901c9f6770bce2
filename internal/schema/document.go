package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is an untyped config as read from a store (YAML, JSON, JSONB).
// Validation inspects documents before they are decoded so that type errors
// ("feature flag is not a boolean") can be reported instead of failing the
// decode outright.
type Document = map[string]any

// Decode converts a validated document into a TableConfig.
func Decode(doc Document) (TableConfig, error) {
	var cfg TableConfig
	raw, err := json.Marshal(doc)
	if err != nil {
		return cfg, fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("decode table config: %w", err)
	}
	return cfg, nil
}

// Encode converts a TableConfig back into a document.
func Encode(cfg TableConfig) (Document, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode table config: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// ParseYAML decodes a YAML config file into a document.
func ParseYAML(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return normalizeKeys(doc).(Document), nil
}

// normalizeKeys converts the map[any]any values yaml.v3 produces for
// mappings with non-string keys (such as select options keyed by number)
// into map[string]any so documents stay JSON-encodable.
func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeKeys(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeKeys(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalizeKeys(item)
		}
		return t
	}
	return v
}

// ParseJSON decodes a JSON config into a document.
func ParseJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// UnmarshalJSON accepts either a condition object or a bare condition name.
func (c *ShowCondition) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		c.Type = strings.TrimSpace(name)
		return nil
	}
	type alias ShowCondition
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = ShowCondition(a)
	return nil
}

// UnmarshalYAML accepts either a condition mapping or a bare condition name.
func (c *ShowCondition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Type = strings.TrimSpace(node.Value)
		return nil
	}
	type alias ShowCondition
	var a alias
	if err := node.Decode(&a); err != nil {
		return err
	}
	*c = ShowCondition(a)
	return nil
}
