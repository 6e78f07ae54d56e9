package datamap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/voxkit/datamap/internal/template"
)

// AttemptOutcome classifies one webhook attempt.
type AttemptOutcome string

const (
	// AttemptSkipped means require_args was unmet; no network call was made.
	AttemptSkipped AttemptOutcome = "skipped"
	// AttemptFailed covers network errors, timeouts, HTTP >= 400, and
	// error_keys hits.
	AttemptFailed  AttemptOutcome = "failed"
	AttemptSuccess AttemptOutcome = "success"
)

// Attempt records one webhook attempt for logging and persistence.
// URL carries scheme and host only; resolved paths, queries, and headers
// may embed credentials and are never recorded.
type Attempt struct {
	Index   int            `json:"index"`
	URL     string         `json:"url,omitempty"`
	Status  int            `json:"status,omitempty"`
	Outcome AttemptOutcome `json:"outcome"`
	Reason  string         `json:"reason,omitempty"`
}

// maxResponseBytes bounds how much of a webhook response is read.
const maxResponseBytes = 4 << 20

type webhookExecutor struct {
	client *http.Client
	logger *slog.Logger
}

// execute tries each webhook in array order until one succeeds. On success
// it returns the webhook's index and a context clone populated with the
// parsed response; later webhooks are never attempted. When every webhook
// fails or is skipped it returns index -1 and a nil context, signalling
// the fallback output.
func (x *webhookExecutor) execute(ctx context.Context, webhooks []compiledWebhook, ec *execContext) (int, *execContext, []Attempt) {
	attempts := make([]Attempt, 0, len(webhooks))

	for i, wh := range webhooks {
		if missing := missingArgs(wh.def.RequireArgs, ec.args); missing != "" {
			attempts = append(attempts, Attempt{
				Index:   i,
				Outcome: AttemptSkipped,
				Reason:  "missing required argument " + missing,
			})
			continue
		}

		attempt, populated := x.attempt(ctx, i, wh, ec)
		attempts = append(attempts, attempt)

		x.logger.Debug("webhook attempt",
			slog.Int("index", i),
			slog.String("url", attempt.URL),
			slog.Int("status", attempt.Status),
			slog.String("outcome", string(attempt.Outcome)))

		if attempt.Outcome == AttemptSuccess {
			return i, populated, attempts
		}
	}

	return -1, nil, attempts
}

// attempt issues one HTTP request. All template expansion happens against
// a clone of the pre-webhook context, so nothing from a failed attempt is
// visible to the next one.
func (x *webhookExecutor) attempt(ctx context.Context, index int, wh compiledWebhook, base *execContext) (Attempt, *execContext) {
	ec := base.clone()
	att := Attempt{Index: index, Outcome: AttemptFailed}

	rawURL := template.Expand(wh.def.URL, ec)
	u, err := url.Parse(rawURL)
	if err != nil {
		att.Reason = fmt.Sprintf("invalid url: %v", err)
		return att, nil
	}
	att.URL = u.Scheme + "://" + u.Host

	if len(wh.def.Params) > 0 {
		q := u.Query()
		for k, v := range wh.def.Params {
			q.Set(k, template.Expand(v, ec))
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if wh.def.Body != nil && methodHasBody(wh.method) {
		expanded := template.ExpandValue(wh.def.Body, ec)
		data, err := json.Marshal(expanded)
		if err != nil {
			att.Reason = fmt.Sprintf("encode body: %v", err)
			return att, nil
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, wh.method, u.String(), body)
	if err != nil {
		att.Reason = fmt.Sprintf("create request: %v", err)
		return att, nil
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range wh.def.Headers {
		req.Header.Set(k, template.Expand(v, ec))
	}

	resp, err := x.client.Do(req)
	if err != nil {
		// Covers network errors and the call budget expiring while the
		// request is outstanding.
		att.Reason = fmt.Sprintf("request failed: %v", err)
		return att, nil
	}
	defer resp.Body.Close()

	att.Status = resp.StatusCode

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		att.Reason = fmt.Sprintf("read response: %v", err)
		return att, nil
	}

	if resp.StatusCode >= 400 {
		att.Reason = fmt.Sprintf("status %d", resp.StatusCode)
		return att, nil
	}

	obj, arr := parseBody(respBody)

	if obj != nil {
		if key, ok := truthyErrorKey(wh.errorKeys, obj); ok {
			att.Reason = fmt.Sprintf("error key %q present in response", key)
			return att, nil
		}
		ec.response = obj
	} else {
		ec.array = arr
	}

	att.Outcome = AttemptSuccess
	return att, ec
}

// parseBody decodes a webhook response. A JSON object populates the
// response namespace and a top-level JSON array the array namespace;
// anything else is kept as opaque text under the synthetic "raw" key.
func parseBody(data []byte) (map[string]any, []any) {
	trimmed := bytes.TrimSpace(data)

	var obj map[string]any
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &obj) == nil {
		return obj, nil
	}

	var arr []any
	if len(trimmed) > 0 && trimmed[0] == '[' && json.Unmarshal(trimmed, &arr) == nil {
		return nil, arr
	}

	return map[string]any{"raw": string(data)}, nil
}

// truthyErrorKey reports the first configured error key that is present
// with a truthy, non-empty value in the parsed response.
func truthyErrorKey(keys []string, obj map[string]any) (string, bool) {
	for _, key := range keys {
		val, present := obj[key]
		if !present {
			continue
		}
		if truthy(val) {
			return key, true
		}
	}
	return "", false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func missingArgs(required []string, args map[string]any) string {
	for _, name := range required {
		if val, ok := args[name]; !ok || val == nil {
			return name
		}
	}
	return ""
}

func methodHasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
