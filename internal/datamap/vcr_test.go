package datamap

import (
	"context"
	"testing"

	"github.com/voxkit/datamap/internal/testutil"
)

func TestExecuteAgainstRecordedWebhook(t *testing.T) {
	client := testutil.ReplayClient(t, "weather_lookup")

	dm := mustCompile(t, "get_weather", Definition{
		Webhooks: []WebhookDef{{
			URL: "https://api.weather.example/v1/current?city=${args.city}",
			Output: &OutputDef{
				Response: "It is ${response.condition}, ${response.temp_c}C in ${args.city}.",
			},
		}},
		Output: &OutputDef{Response: "Weather service unavailable."},
	})

	engine := NewEngine(WithHTTPClient(client))
	result, report := engine.Execute(context.Background(), dm, &Call{
		Args: map[string]any{"city": "Lisbon"},
	})

	if report.Outcome != OutcomeWebhook {
		t.Fatalf("outcome = %q, want %q", report.Outcome, OutcomeWebhook)
	}
	if want := "It is sunny, 21.5C in Lisbon."; result.Response != want {
		t.Errorf("response = %q, want %q", result.Response, want)
	}
}
