// Package datamap implements the declarative request/response pipeline:
// pattern-matched early exits, sequential webhook invocation with fallback,
// bounded array accumulation, and templated output generation.
//
// Each function call runs as one independent, sequential pipeline over an
// exclusively owned execution context. The engine always produces a
// well-formed output; call-time failures are absorbed into "try the next
// webhook" or "use the fallback output" and never escape to the caller.
package datamap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome names which output template satisfied a call.
type Outcome string

const (
	// OutcomeExpression means an early-exit rule terminated the pipeline.
	OutcomeExpression Outcome = "expression"
	// OutcomeWebhook means a webhook succeeded and supplied the output.
	OutcomeWebhook Outcome = "webhook"
	// OutcomeFallback means no rule matched and no webhook succeeded.
	OutcomeFallback Outcome = "fallback"
)

// Call is one inbound function invocation. Args are assumed to conform to
// the function's parameter schema; validation happens upstream.
type Call struct {
	Args       map[string]any
	GlobalData map[string]any
	MetaData   map[string]any
}

// Report describes how a call was resolved, for logging and persistence.
type Report struct {
	Function        string
	Outcome         Outcome
	ExpressionIndex int // matched rule index, -1 if none
	WebhookIndex    int // succeeded webhook index, -1 if none
	Attempts        []Attempt
	Duration        time.Duration
}

// Engine executes compiled DataMaps. It holds no per-call state and is
// safe for concurrent use; every execution owns its own context.
type Engine struct {
	webhooks *webhookExecutor
	logger   *slog.Logger
	tracer   trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithHTTPClient sets the client used for webhook requests. The client's
// transport is also where idempotent retries would live; the engine itself
// never retries an individual webhook.
func WithHTTPClient(client *http.Client) EngineOption {
	return func(e *Engine) { e.webhooks.client = client }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine with a default HTTP client.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		webhooks: &webhookExecutor{client: http.DefaultClient},
		logger:   slog.Default(),
		tracer:   otel.Tracer("datamap"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.webhooks.logger = e.logger
	return e
}

// Execute runs one call through the pipeline:
//
//	START -> EXPRESSIONS -> WEBHOOKS -> FOREACH -> OUTPUT -> DONE
//
// No state is revisited and every path resolves to a well-formed Result.
// The ctx deadline is the call's wall-clock budget; it is threaded into
// in-flight webhook requests, and its expiry fails the outstanding attempt
// rather than aborting the call.
func (e *Engine) Execute(ctx context.Context, dm *DataMap, call *Call) (*Result, *Report) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "datamap.execute",
		trace.WithAttributes(attribute.String("datamap.function", dm.function)))
	defer span.End()

	ec := newExecContext(call.Args, call.GlobalData, call.MetaData)
	report := &Report{
		Function:        dm.function,
		ExpressionIndex: -1,
		WebhookIndex:    -1,
	}

	result := e.run(ctx, dm, ec, report)
	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("datamap.outcome", string(report.Outcome)),
		attribute.Int("datamap.webhook_attempts", len(report.Attempts)),
	)

	e.logger.Info("datamap executed",
		slog.String("function", dm.function),
		slog.String("outcome", string(report.Outcome)),
		slog.Int("attempts", len(report.Attempts)),
		slog.Duration("duration", report.Duration))

	return result, report
}

func (e *Engine) run(ctx context.Context, dm *DataMap, ec *execContext, report *Report) *Result {
	if out, idx, ok := matchExpressions(dm.expressions, ec); ok {
		report.Outcome = OutcomeExpression
		report.ExpressionIndex = idx
		return resolveOutput(out, ec)
	}

	idx, populated, attempts := e.webhooks.execute(ctx, dm.webhooks, ec)
	report.Attempts = attempts

	if idx < 0 {
		report.Outcome = OutcomeFallback
		return resolveOutput(dm.fallback, ec)
	}

	report.Outcome = OutcomeWebhook
	report.WebhookIndex = idx

	wh := dm.webhooks[idx]
	if wh.def.Foreach != nil {
		runForeach(wh.def.Foreach, populated)
	}

	return resolveOutput(wh.def.Output, populated)
}
