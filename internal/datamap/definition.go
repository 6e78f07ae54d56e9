package datamap

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/voxkit/datamap/internal/template"
)

// Definition is the raw, declarative form of a DataMap as it appears in
// configuration. All fields are optional; presence changes behavior.
// A Definition must be compiled before it can be executed.
type Definition struct {
	// Expressions are pattern-matched early-exit rules, evaluated in order
	// before any webhook is attempted.
	Expressions []ExpressionDef `koanf:"expressions" json:"expressions,omitempty"`

	// Webhooks are HTTP request attempts, tried in order until one succeeds.
	Webhooks []WebhookDef `koanf:"webhooks" json:"webhooks,omitempty"`

	// Output is the fallback used when no expression matched and no webhook
	// succeeded.
	Output *OutputDef `koanf:"output" json:"output,omitempty"`

	// ErrorKeys are response field names that mark any webhook's response
	// as a failure when present and truthy, regardless of HTTP status.
	ErrorKeys []string `koanf:"error_keys" json:"error_keys,omitempty"`
}

// ExpressionDef is one early-exit rule: expand String, search Pattern,
// first match wins.
type ExpressionDef struct {
	String  string     `koanf:"string" json:"string"`
	Pattern string     `koanf:"pattern" json:"pattern"`
	Output  *OutputDef `koanf:"output" json:"output,omitempty"`

	// NoMatchOutput terminates the pipeline when this is the final rule and
	// its pattern did not match. On earlier rules it is informational only.
	NoMatchOutput *OutputDef `koanf:"nomatch_output" json:"nomatch_output,omitempty"`
}

// WebhookDef is one configured HTTP request attempt.
type WebhookDef struct {
	URL     string            `koanf:"url" json:"url"`
	Method  string            `koanf:"method" json:"method,omitempty"`
	Headers map[string]string `koanf:"headers" json:"headers,omitempty"`

	// Params are merged into the URL query string.
	Params map[string]string `koanf:"params" json:"params,omitempty"`

	// Body is an arbitrary nested structure with templated leaf values,
	// sent as JSON for POST/PUT/PATCH.
	Body map[string]any `koanf:"body" json:"body,omitempty"`

	// RequireArgs names arguments that must be present and non-null for
	// this webhook to be attempted at all.
	RequireArgs []string `koanf:"require_args" json:"require_args,omitempty"`

	ErrorKeys []string    `koanf:"error_keys" json:"error_keys,omitempty"`
	Foreach   *ForeachDef `koanf:"foreach" json:"foreach,omitempty"`
	Output    *OutputDef  `koanf:"output" json:"output,omitempty"`
}

// ForeachDef turns an array in the webhook response into one accumulated
// string, stored under OutputKey for subsequent template resolution.
type ForeachDef struct {
	// InputKey is a path to the array, resolved against the response
	// context. A bare key ("results") addresses the response object; a
	// namespaced path ("array", "response.items[0].rows") is honored too.
	InputKey  string `koanf:"input_key" json:"input_key"`
	OutputKey string `koanf:"output_key" json:"output_key"`

	// Max bounds how many elements are processed. Nil means unbounded;
	// zero yields an empty accumulated string.
	Max *int `koanf:"max" json:"max,omitempty"`

	// Append is expanded once per element with this/foreach_index/
	// foreach_count in scope, and concatenated in array order.
	Append string `koanf:"append" json:"append"`
}

// OutputDef carries the dual response/action channels. Either field may be
// absent; an empty output is legal but degenerate.
type OutputDef struct {
	Response string           `koanf:"response" json:"response,omitempty"`
	Action   []map[string]any `koanf:"action" json:"action,omitempty"`
}

// DataMap is a compiled, immutable definition ready for execution.
type DataMap struct {
	function    string
	expressions []compiledExpression
	webhooks    []compiledWebhook
	fallback    *OutputDef
}

type compiledExpression struct {
	def     ExpressionDef
	pattern *regexp.Regexp
}

type compiledWebhook struct {
	def       WebhookDef
	method    string
	errorKeys []string // union of DataMap-level and webhook-level keys
}

// Function returns the function name this DataMap serves.
func (d *DataMap) Function() string { return d.function }

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// Compile validates a raw definition and produces an executable DataMap.
// All configuration errors (malformed regex, unknown HTTP method, templates
// referencing an unsupported namespace, negative foreach bounds) surface
// here and never at call time.
func Compile(function string, def Definition) (*DataMap, error) {
	dm := &DataMap{
		function: function,
		fallback: def.Output,
	}

	roots := knownRoots(def)

	for i, expr := range def.Expressions {
		field := fmt.Sprintf("expressions[%d]", i)
		if expr.Pattern == "" {
			return nil, &ConfigError{Function: function, Field: field, Reason: "pattern is required"}
		}
		re, err := regexp.Compile(expr.Pattern)
		if err != nil {
			return nil, &ConfigError{Function: function, Field: field, Reason: fmt.Sprintf("invalid pattern: %v", err)}
		}
		if err := checkNamespaces(function, field, roots, expr.String, expr.Output, expr.NoMatchOutput); err != nil {
			return nil, err
		}
		dm.expressions = append(dm.expressions, compiledExpression{def: expr, pattern: re})
	}

	for i, wh := range def.Webhooks {
		field := fmt.Sprintf("webhooks[%d]", i)
		if wh.URL == "" {
			return nil, &ConfigError{Function: function, Field: field, Reason: "url is required"}
		}

		method := strings.ToUpper(wh.Method)
		if method == "" {
			if wh.Body != nil {
				method = http.MethodPost
			} else {
				method = http.MethodGet
			}
		}
		if !allowedMethods[method] {
			return nil, &ConfigError{Function: function, Field: field, Reason: fmt.Sprintf("unknown HTTP method %q", wh.Method)}
		}

		if wh.Foreach != nil {
			if wh.Foreach.OutputKey == "" {
				return nil, &ConfigError{Function: function, Field: field + ".foreach", Reason: "output_key is required"}
			}
			if fixedRoots[wh.Foreach.OutputKey] {
				return nil, &ConfigError{Function: function, Field: field + ".foreach", Reason: fmt.Sprintf("output_key %q shadows a reserved namespace", wh.Foreach.OutputKey)}
			}
			if wh.Foreach.Max != nil && *wh.Foreach.Max < 0 {
				return nil, &ConfigError{Function: function, Field: field + ".foreach", Reason: "max must be >= 0"}
			}
		}

		if err := checkNamespaces(function, field, roots, wh.URL, wh.Headers, wh.Params, wh.Body, wh.Output); err != nil {
			return nil, err
		}
		if wh.Foreach != nil {
			if err := checkNamespaces(function, field+".foreach", roots, wh.Foreach.Append); err != nil {
				return nil, err
			}
		}

		dm.webhooks = append(dm.webhooks, compiledWebhook{
			def:       wh,
			method:    method,
			errorKeys: mergeKeys(def.ErrorKeys, wh.ErrorKeys),
		})
	}

	if err := checkNamespaces(function, "output", roots, dm.fallback); err != nil {
		return nil, err
	}

	return dm, nil
}

// fixedRoots are the execution-context namespaces every DataMap can
// reference. A foreach output_key may not reuse one of these names: the
// context resolves fixed namespaces first, so a shadowed accumulator would
// be unreachable.
var fixedRoots = map[string]bool{
	"args":          true,
	"response":      true,
	"array":         true,
	"global_data":   true,
	"meta_data":     true,
	"this":          true,
	"foreach_index": true,
	"foreach_count": true,
}

// knownRoots is the set of namespace prefixes a definition's templates may
// reference: the fixed execution-context namespaces plus every foreach
// output key the definition declares.
func knownRoots(def Definition) map[string]bool {
	roots := make(map[string]bool, len(fixedRoots)+len(def.Webhooks))
	for name := range fixedRoots {
		roots[name] = true
	}
	for _, wh := range def.Webhooks {
		if wh.Foreach != nil && wh.Foreach.OutputKey != "" {
			roots[wh.Foreach.OutputKey] = true
		}
	}
	return roots
}

func checkNamespaces(function, field string, roots map[string]bool, values ...any) error {
	for _, v := range values {
		var exprs []string
		switch t := v.(type) {
		case nil:
			continue
		case string:
			exprs = template.Placeholders(t)
		case map[string]string:
			for _, s := range t {
				exprs = append(exprs, template.Placeholders(s)...)
			}
		case *OutputDef:
			if t == nil {
				continue
			}
			exprs = template.Placeholders(t.Response)
			for _, action := range t.Action {
				exprs = append(exprs, template.PlaceholdersIn(action)...)
			}
		default:
			exprs = template.PlaceholdersIn(v)
		}

		for _, expr := range exprs {
			path, err := template.ParsePath(expr)
			if err != nil {
				return &ConfigError{Function: function, Field: field, Reason: fmt.Sprintf("invalid template expression ${%s}: %v", expr, err)}
			}
			if !roots[path.Root] {
				return &ConfigError{Function: function, Field: field, Reason: fmt.Sprintf("template ${%s} references unsupported namespace %q", expr, path.Root)}
			}
		}
	}
	return nil
}

func mergeKeys(global, local []string) []string {
	if len(global) == 0 {
		return local
	}
	if len(local) == 0 {
		return global
	}
	seen := make(map[string]bool, len(global)+len(local))
	var out []string
	for _, k := range append(append([]string{}, global...), local...) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
