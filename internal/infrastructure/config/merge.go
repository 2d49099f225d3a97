package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/ports"
)

// YAMLMerger reads validator documents and deep-merges them in order.
type YAMLMerger struct {
	Logger ports.Logger
}

// NewYAMLMerger builds a merger.
func NewYAMLMerger(log ports.Logger) *YAMLMerger {
	return &YAMLMerger{Logger: log}
}

// Merge implements ports.ConfigMerger.
func (m *YAMLMerger) Merge(_ context.Context, paths []string) (domain.MergedConfig, error) {
	var acc interface{} = map[string]interface{}{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				m.debug("validator config not present", path)
				continue
			}
			return nil, &domain.ConfigParseError{Path: path, Err: err}
		}

		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &domain.ConfigParseError{Path: path, Err: err}
		}
		doc = normalize(doc)
		if doc == nil {
			m.debug("validator config empty", path)
			continue
		}
		if _, ok := doc.(map[string]interface{}); !ok {
			return nil, &domain.ConfigParseError{Path: path, Err: fmt.Errorf("root is %T, expected a mapping", doc)}
		}
		m.debug("merging validator config", path)
		acc = MergeDocuments(acc, doc)
	}

	root, _ := acc.(map[string]interface{})
	return domain.MergedConfig(root), nil
}

func (m *YAMLMerger) debug(msg, path string) {
	if m.Logger != nil {
		m.Logger.Debug(msg, map[string]interface{}{"path": path})
	}
}

// MergeDocuments folds overlay into base and returns the result.
//
// Mapping keys only in overlay are added and shared keys recurse. When both
// sides are sequences, overlay elements not already present are appended in
// order. In every other case, scalar conflicts included, base is kept.
// base is modified in place.
func MergeDocuments(base, overlay interface{}) interface{} {
	switch b := base.(type) {
	case map[string]interface{}:
		o, ok := overlay.(map[string]interface{})
		if !ok {
			return base
		}
		for k, v := range o {
			if existing, present := b[k]; present {
				b[k] = MergeDocuments(existing, v)
			} else {
				b[k] = v
			}
		}
		return b
	case []interface{}:
		o, ok := overlay.([]interface{})
		if !ok {
			return base
		}
		for _, item := range o {
			if !containsValue(b, item) {
				b = append(b, item)
			}
		}
		return b
	default:
		return base
	}
}

func containsValue(list []interface{}, v interface{}) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}

// normalize converts yaml.v3's map[interface{}]interface{} (produced for
// non-string keys) into string-keyed maps, recursively.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []interface{}:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	default:
		return v
	}
}

var _ ports.ConfigMerger = (*YAMLMerger)(nil)
