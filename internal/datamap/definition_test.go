package datamap

import (
	"strings"
	"testing"
)

func TestCompile_Valid(t *testing.T) {
	max := 5
	def := Definition{
		Expressions: []ExpressionDef{{
			String:  "${args.query}",
			Pattern: "^simple$",
			Output:  &OutputDef{Response: "easy case"},
		}},
		Webhooks: []WebhookDef{{
			URL:     "https://api.example.com/search?q=${args.query}",
			Headers: map[string]string{"Authorization": "Bearer ${global_data.api_key}"},
			Body:    map[string]any{"query": "${args.query}"},
			Foreach: &ForeachDef{
				InputKey:  "results",
				OutputKey: "formatted",
				Max:       &max,
				Append:    "Item: ${this.title}\n",
			},
			Output: &OutputDef{Response: "Found:\n${formatted}"},
		}},
		Output:    &OutputDef{Response: "Sorry, the service is unavailable."},
		ErrorKeys: []string{"error"},
	}

	dm, err := Compile("search", def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dm.Function() != "search" {
		t.Errorf("function = %q", dm.Function())
	}
	if dm.webhooks[0].method != "POST" {
		t.Errorf("method defaulted to %q, want POST with body", dm.webhooks[0].method)
	}
}

func TestCompile_MethodDefaultsToGETWithoutBody(t *testing.T) {
	dm, err := Compile("f", Definition{
		Webhooks: []WebhookDef{{URL: "https://api.example.com/x"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dm.webhooks[0].method != "GET" {
		t.Errorf("method = %q, want GET", dm.webhooks[0].method)
	}
}

func TestCompile_MalformedRegex(t *testing.T) {
	_, err := Compile("f", Definition{
		Expressions: []ExpressionDef{{String: "${args.q}", Pattern: "("}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestCompile_MissingPattern(t *testing.T) {
	_, err := Compile("f", Definition{
		Expressions: []ExpressionDef{{String: "${args.q}"}},
	})
	if err == nil || !IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCompile_UnknownMethod(t *testing.T) {
	_, err := Compile("f", Definition{
		Webhooks: []WebhookDef{{URL: "https://api.example.com", Method: "FETCH"}},
	})
	if err == nil || !strings.Contains(err.Error(), "FETCH") {
		t.Fatalf("expected unknown method error, got %v", err)
	}
}

func TestCompile_MissingURL(t *testing.T) {
	_, err := Compile("f", Definition{Webhooks: []WebhookDef{{}}})
	if err == nil || !IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCompile_UnknownNamespace(t *testing.T) {
	_, err := Compile("f", Definition{
		Webhooks: []WebhookDef{{URL: "https://api.example.com/${params.q}"}},
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported namespace") {
		t.Fatalf("expected namespace error, got %v", err)
	}
}

func TestCompile_ForeachOutputKeyIsKnownRoot(t *testing.T) {
	// The fallback output may reference a foreach output key declared by
	// any webhook of the same definition.
	_, err := Compile("f", Definition{
		Webhooks: []WebhookDef{{
			URL:     "https://api.example.com",
			Foreach: &ForeachDef{InputKey: "rows", OutputKey: "summary", Append: "${this.name} "},
			Output:  &OutputDef{Response: "${summary}"},
		}},
		Output: &OutputDef{Response: "nothing found ${summary}"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompile_ForeachOutputKeyCannotShadowNamespace(t *testing.T) {
	// The context resolves fixed namespaces before foreach accumulators, so
	// an output_key reusing one of those names would compile into an
	// unreachable accumulator: ${response} keeps yielding the response
	// object, never the accumulated string. Rejected at load time.
	for _, reserved := range []string{"response", "array", "args", "this", "foreach_index", "foreach_count", "global_data", "meta_data"} {
		_, err := Compile("f", Definition{
			Webhooks: []WebhookDef{{
				URL:     "https://api.example.com",
				Foreach: &ForeachDef{InputKey: "rows", OutputKey: reserved, Append: "<${this.t}>"},
				Output:  &OutputDef{Response: "acc=${" + reserved + "}"},
			}},
		})
		if err == nil || !IsConfigError(err) {
			t.Errorf("output_key %q: expected ConfigError, got %v", reserved, err)
		}
	}
}

func TestCompile_NegativeForeachMax(t *testing.T) {
	neg := -1
	_, err := Compile("f", Definition{
		Webhooks: []WebhookDef{{
			URL:     "https://api.example.com",
			Foreach: &ForeachDef{InputKey: "rows", OutputKey: "out", Max: &neg, Append: "x"},
		}},
	})
	if err == nil || !IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCompile_ForeachRequiresOutputKey(t *testing.T) {
	_, err := Compile("f", Definition{
		Webhooks: []WebhookDef{{
			URL:     "https://api.example.com",
			Foreach: &ForeachDef{InputKey: "rows", Append: "x"},
		}},
	})
	if err == nil || !IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCompile_ActionTemplatesValidated(t *testing.T) {
	_, err := Compile("f", Definition{
		Output: &OutputDef{
			Action: []map[string]any{{"set_var": map[string]any{"value": "${nope.x}"}}},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported namespace") {
		t.Fatalf("expected namespace error, got %v", err)
	}
}

func TestMergeKeys(t *testing.T) {
	got := mergeKeys([]string{"error", "err"}, []string{"err", "failure"})
	want := []string{"error", "err", "failure"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}
