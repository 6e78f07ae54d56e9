package datamap

import "github.com/voxkit/datamap/internal/template"

// matchExpressions evaluates the early-exit rules in array order against
// the context. The pattern is applied as a search over the expanded test
// string; the first match wins and short-circuits the pipeline.
//
// A rule's nomatch_output terminates the pipeline only when the rule is
// the final one; on earlier rules it is informational and evaluation
// continues. Exhausting the list hands control to the webhook stage.
func matchExpressions(rules []compiledExpression, ec *execContext) (out *OutputDef, index int, matched bool) {
	for i, rule := range rules {
		test := template.Expand(rule.def.String, ec)
		if rule.pattern.MatchString(test) {
			return rule.def.Output, i, true
		}
		if rule.def.NoMatchOutput != nil && i == len(rules)-1 {
			return rule.def.NoMatchOutput, i, true
		}
	}
	return nil, -1, false
}
