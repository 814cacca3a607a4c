// Package jsonpath resolves dot paths inside decoded JSON documents.
package jsonpath

import (
	"strconv"
	"strings"
)

// Lookup walks a decoded JSON document along a dot path ("data.jobs.0.url").
// Map keys are matched literally; numeric segments index into arrays. The
// second return value is false when any segment is missing.
func Lookup(doc any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	current := doc
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// String resolves a path and coerces the value to a string. Numbers are
// formatted without an exponent; other types report absence.
func String(doc any, path string) (string, bool) {
	value, ok := Lookup(doc, path)
	if !ok {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// Slice resolves a path expecting an array node.
func Slice(doc any, path string) ([]any, bool) {
	value, ok := Lookup(doc, path)
	if !ok {
		return nil, false
	}
	arr, ok := value.([]any)
	return arr, ok
}
