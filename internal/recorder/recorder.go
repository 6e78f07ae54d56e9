// Package recorder turns engine execution reports into persisted records.
package recorder

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxkit/datamap/internal/datamap"
	"github.com/voxkit/datamap/internal/storage"
	"github.com/voxkit/datamap/internal/tokens"
)

// persistTimeout bounds how long a write may take once the request
// lifecycle has moved on.
const persistTimeout = 5 * time.Second

// Recorder persists execution records. A nil store disables recording.
type Recorder struct {
	store     storage.ExecutionStore
	estimator *tokens.Estimator
	logger    *slog.Logger
}

// New creates a recorder writing to store.
func New(store storage.ExecutionStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:     store,
		estimator: tokens.NewEstimator(),
		logger:    logger,
	}
}

// Record persists one execution and returns its assigned id. Persistence
// is decoupled from the request lifecycle: the write proceeds on its own
// deadline even when the caller's context has already expired, and a
// failed write is logged, never surfaced.
func (r *Recorder) Record(ctx context.Context, report *datamap.Report, result *datamap.Result) string {
	if r.store == nil || report == nil {
		return ""
	}

	id := "exec_" + uuid.New().String()

	rec := &storage.ExecutionRecord{
		ID:              id,
		Function:        report.Function,
		Outcome:         string(report.Outcome),
		ExpressionIndex: report.ExpressionIndex,
		WebhookIndex:    report.WebhookIndex,
		Attempts:        convertAttempts(report.Attempts),
		Duration:        report.Duration,
		CreatedAt:       time.Now().UTC(),
	}

	if result != nil {
		rec.ResponseText = result.Response
		rec.ActionCount = len(result.Action)
		rec.ResponseTokens = r.estimator.Count(result.Response)
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := r.store.RecordExecution(persistCtx, rec); err != nil {
		r.logger.Error("failed to record execution",
			slog.String("id", id),
			slog.String("function", report.Function),
			slog.String("error", err.Error()))
		return ""
	}

	return id
}

func convertAttempts(attempts []datamap.Attempt) []storage.WebhookAttempt {
	if len(attempts) == 0 {
		return nil
	}
	out := make([]storage.WebhookAttempt, len(attempts))
	for i, a := range attempts {
		out[i] = storage.WebhookAttempt{
			Index:   a.Index,
			URL:     a.URL,
			Status:  a.Status,
			Outcome: string(a.Outcome),
			Reason:  a.Reason,
		}
	}
	return out
}
