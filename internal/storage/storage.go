// Package storage defines the persistence interfaces and record types for
// pipeline execution history.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("execution not found")

// ExecutionRecord is one persisted pipeline execution.
type ExecutionRecord struct {
	ID       string `json:"id"`
	Function string `json:"function"`

	// Outcome names which output channel satisfied the call:
	// expression, webhook, or fallback.
	Outcome string `json:"outcome"`

	// ExpressionIndex is the matched early-exit rule, -1 if none.
	ExpressionIndex int `json:"expression_index"`
	// WebhookIndex is the webhook that succeeded, -1 if none.
	WebhookIndex int `json:"webhook_index"`

	Attempts []WebhookAttempt `json:"attempts,omitempty"`

	ResponseText string `json:"response_text,omitempty"`
	ActionCount  int    `json:"action_count"`

	// ResponseTokens estimates the spoken-response size for speech budget
	// telemetry.
	ResponseTokens int `json:"response_tokens"`

	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// WebhookAttempt mirrors one webhook attempt. URL carries scheme and host
// only; fully resolved URLs and headers may embed credentials and are
// never persisted.
type WebhookAttempt struct {
	Index   int    `json:"index"`
	URL     string `json:"url,omitempty"`
	Status  int    `json:"status,omitempty"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// ListOptions filters and pages execution listings.
type ListOptions struct {
	Function string
	Outcome  string
	Limit    int
	Offset   int
}

// ExecutionStore persists pipeline execution records.
type ExecutionStore interface {
	RecordExecution(ctx context.Context, rec *ExecutionRecord) error
	GetExecution(ctx context.Context, id string) (*ExecutionRecord, error)
	ListExecutions(ctx context.Context, opts ListOptions) ([]*ExecutionRecord, error)
	Close() error
}
