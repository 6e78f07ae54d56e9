// Package template implements the ${...} placeholder language used by
// DataMap definitions: dotted-path lookups with numeric array indexing,
// resolved against a layered, read-only variable context.
//
// Expansion is a pure function of (template, context) and is total: an
// unknown root leaves the placeholder text untouched so partially
// configured templates stay visible, and a missing key under a known root
// substitutes the empty string.
package template

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Context resolves root names (namespaces) for path lookups.
type Context interface {
	// Root returns the value addressed by a path's root name.
	// ok is false when the name is not addressable in this context,
	// in which case the placeholder is left as literal text.
	Root(name string) (val any, ok bool)
}

// Expand resolves every ${...} occurrence in s against ctx.
// Text containing no placeholders is returned unchanged.
func Expand(s string, ctx Context) string {
	if !strings.Contains(s, "${") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			b.WriteString(s)
			break
		}
		end += start

		b.WriteString(s[:start])
		expr := s[start+2 : end]

		if val, ok := resolve(expr, ctx); ok {
			b.WriteString(Stringify(val))
		} else {
			// Unknown root or malformed path: keep the literal placeholder.
			b.WriteString(s[start : end+1])
		}

		s = s[end+1:]
	}

	return b.String()
}

// ExpandValue recursively expands templates inside a nested JSON-like
// structure. Strings are expanded, maps and slices are walked, and all
// other leaf values pass through unchanged.
func ExpandValue(v any, ctx Context) any {
	switch t := v.(type) {
	case string:
		return Expand(t, ctx)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = ExpandValue(e, ctx)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ExpandValue(e, ctx)
		}
		return out
	default:
		return v
	}
}

// Lookup resolves a single path expression (without the ${} wrapper)
// against ctx. ok is false when the root is not addressable; a missing
// key under a known root yields (nil, true).
func Lookup(expr string, ctx Context) (any, bool) {
	return resolve(expr, ctx)
}

// Placeholders returns the path expressions of every ${...} occurrence
// in s, in order. Used for load-time namespace validation.
func Placeholders(s string) []string {
	var out []string
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			break
		}
		out = append(out, s[start+2:start+end])
		s = s[start+end+1:]
	}
	return out
}

// PlaceholdersIn walks a nested structure collecting placeholder
// expressions from every string leaf.
func PlaceholdersIn(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		out = append(out, Placeholders(t)...)
	case map[string]any:
		for _, e := range t {
			out = append(out, PlaceholdersIn(e)...)
		}
	case []any:
		for _, e := range t {
			out = append(out, PlaceholdersIn(e)...)
		}
	}
	return out
}

func resolve(expr string, ctx Context) (any, bool) {
	path, err := ParsePath(expr)
	if err != nil {
		return nil, false
	}

	cur, ok := ctx.Root(path.Root)
	if !ok {
		return nil, false
	}

	for _, step := range path.Steps {
		if step.IsIdx {
			arr, ok := cur.([]any)
			if !ok || step.Index >= len(arr) {
				return nil, true
			}
			cur = arr[step.Index]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, true
		}
		cur = obj[step.Key]
	}

	return cur, true
}

// Stringify coerces a resolved value to its interpolated string form:
// integers undecorated, floats in plain decimal form, booleans as
// true/false, nil as empty string, and structured values as compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
