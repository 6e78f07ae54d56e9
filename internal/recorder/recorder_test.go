package recorder

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/voxkit/datamap/internal/datamap"
	"github.com/voxkit/datamap/internal/storage"
	"github.com/voxkit/datamap/internal/storage/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordPersists(t *testing.T) {
	store := memory.New()
	rec := New(store, discardLogger())

	report := &datamap.Report{
		Function:        "get_weather",
		Outcome:         datamap.OutcomeWebhook,
		ExpressionIndex: -1,
		WebhookIndex:    0,
		Attempts: []datamap.Attempt{
			{Index: 0, URL: "https://api.example.com", Status: 200, Outcome: datamap.AttemptSuccess},
		},
		Duration: 80 * time.Millisecond,
	}
	result := &datamap.Result{
		Response: "It is sunny.",
		Action:   []map[string]any{{"set_global_data": map[string]any{"last_city": "Lisbon"}}},
	}

	id := rec.Record(context.Background(), report, result)
	if id == "" {
		t.Fatal("Record returned empty id")
	}

	got, err := store.GetExecution(context.Background(), id)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if got.Function != "get_weather" || got.Outcome != "webhook" {
		t.Errorf("record = %+v", got)
	}
	if got.ActionCount != 1 {
		t.Errorf("action_count = %d, want 1", got.ActionCount)
	}
	if got.ResponseText != "It is sunny." {
		t.Errorf("response_text = %q", got.ResponseText)
	}
	if len(got.Attempts) != 1 || got.Attempts[0].Outcome != "success" {
		t.Errorf("attempts = %+v", got.Attempts)
	}
}

func TestRecordSurvivesExpiredContext(t *testing.T) {
	store := memory.New()
	rec := New(store, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := &datamap.Report{Function: "f", Outcome: datamap.OutcomeFallback, ExpressionIndex: -1, WebhookIndex: -1}
	id := rec.Record(ctx, report, &datamap.Result{Response: "fallback"})
	if id == "" {
		t.Fatal("Record returned empty id with cancelled context")
	}

	if _, err := store.GetExecution(context.Background(), id); err != nil {
		t.Errorf("GetExecution: %v", err)
	}
}

func TestRecordNilStoreAndReport(t *testing.T) {
	rec := New(nil, discardLogger())
	if id := rec.Record(context.Background(), &datamap.Report{Function: "f"}, nil); id != "" {
		t.Errorf("nil store: id = %q, want empty", id)
	}

	rec = New(memory.New(), discardLogger())
	if id := rec.Record(context.Background(), nil, nil); id != "" {
		t.Errorf("nil report: id = %q, want empty", id)
	}
}

func TestRecordFailedWriteReturnsEmpty(t *testing.T) {
	rec := New(&failingStore{}, discardLogger())
	report := &datamap.Report{Function: "f", Outcome: datamap.OutcomeFallback, ExpressionIndex: -1, WebhookIndex: -1}
	if id := rec.Record(context.Background(), report, nil); id != "" {
		t.Errorf("failed write: id = %q, want empty", id)
	}
}

type failingStore struct{}

func (f *failingStore) RecordExecution(ctx context.Context, rec *storage.ExecutionRecord) error {
	return context.DeadlineExceeded
}

func (f *failingStore) GetExecution(ctx context.Context, id string) (*storage.ExecutionRecord, error) {
	return nil, storage.ErrNotFound
}

func (f *failingStore) ListExecutions(ctx context.Context, opts storage.ListOptions) ([]*storage.ExecutionRecord, error) {
	return nil, nil
}

func (f *failingStore) Close() error { return nil }
