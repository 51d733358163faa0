package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// JSONLoader flattens objects into "path: value" lines. A top-level array
// becomes one paragraph per element.
type JSONLoader struct{}

func NewJSONLoader() *JSONLoader { return &JSONLoader{} }

func (l *JSONLoader) Name() string             { return "json" }
func (l *JSONLoader) SupportedTypes() []string { return []string{".json"} }
func (l *JSONLoader) MimeTypes() []string      { return []string{"application/json"} }

func (l *JSONLoader) Load(ctx context.Context, r io.Reader) (*Document, error) {
	raw, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return &Document{Metadata: map[string]string{}}, nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	var paragraphs []string
	if items, ok := v.([]any); ok {
		for _, item := range items {
			paragraphs = append(paragraphs, strings.Join(flatten("", item), "\n"))
		}
	} else {
		paragraphs = append(paragraphs, strings.Join(flatten("", v), "\n"))
	}
	return &Document{Text: strings.Join(paragraphs, "\n\n"), Metadata: map[string]string{}}, nil
}

func flatten(prefix string, v any) []string {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, flatten(join(prefix, k), t[k])...)
		}
		return out
	case []any:
		var out []string
		for i, item := range t {
			out = append(out, flatten(fmt.Sprintf("%s[%d]", prefix, i), item)...)
		}
		return out
	case nil:
		return nil
	default:
		if prefix == "" {
			return []string{fmt.Sprint(t)}
		}
		return []string{fmt.Sprintf("%s: %v", prefix, t)}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
