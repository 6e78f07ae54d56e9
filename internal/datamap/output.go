package datamap

import "github.com/voxkit/datamap/internal/template"

// Result is the pair produced by every pipeline execution: an optional
// natural-language response and an optional ordered list of structured
// action descriptors. Action semantics belong to the caller; the engine
// only resolves their template placeholders.
type Result struct {
	Response string           `json:"response,omitempty"`
	Action   []map[string]any `json:"action,omitempty"`
}

// resolveOutput materializes an output template against the context.
// A nil or empty template is legal and produces an empty result.
func resolveOutput(def *OutputDef, ec *execContext) *Result {
	res := &Result{}
	if def == nil {
		return res
	}

	if def.Response != "" {
		res.Response = template.Expand(def.Response, ec)
	}

	for _, action := range def.Action {
		expanded, _ := template.ExpandValue(action, ec).(map[string]any)
		res.Action = append(res.Action, expanded)
	}

	return res
}
