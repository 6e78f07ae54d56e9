package datamap

import (
	"strings"

	"github.com/voxkit/datamap/internal/template"
)

// runForeach accumulates one string from an array in the post-success
// context and stores it under the spec's output key. It cannot fail: a
// non-array input is treated as an empty array and a zero bound yields
// the empty string.
func runForeach(spec *ForeachDef, ec *execContext) {
	items := resolveInput(spec.InputKey, ec)

	limit := len(items)
	if spec.Max != nil && *spec.Max < limit {
		limit = *spec.Max
	}

	var b strings.Builder
	for i := 0; i < limit; i++ {
		// foreach_count reflects the true array length, not the
		// post-truncation count.
		ec.scope = &foreachScope{element: items[i], index: i, count: len(items)}
		b.WriteString(template.Expand(spec.Append, ec))
	}
	ec.scope = nil

	ec.setLocal(spec.OutputKey, b.String())
}

// resolveInput locates the foreach source array. A path with a known
// namespace root ("array", "response.results") resolves through the
// context; a bare key is taken from the response object.
func resolveInput(inputKey string, ec *execContext) []any {
	val, ok := template.Lookup(inputKey, ec)
	if !ok && ec.response != nil {
		val = ec.response[inputKey]
	}

	items, ok := val.([]any)
	if !ok {
		return nil
	}
	return items
}
