// Package logging carries evaluation correlation IDs through
// context.Context and injects them into every log record.
package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	strategyIDKey ctxKey = iota
	workflowKey
	ruleIDKey
)

// WithStrategyID returns a context with the strategy ID set.
func WithStrategyID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, strategyIDKey, id)
}

// WithWorkflow returns a context with the workflow kind set.
func WithWorkflow(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, workflowKey, kind)
}

// WithRuleID returns a context with the rule ID set.
func WithRuleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ruleIDKey, id)
}

// StrategyID extracts the strategy ID from the context, or "" if absent.
func StrategyID(ctx context.Context) string {
	v, _ := ctx.Value(strategyIDKey).(string)
	return v
}

// Workflow extracts the workflow kind from the context, or "" if absent.
func Workflow(ctx context.Context) string {
	v, _ := ctx.Value(workflowKey).(string)
	return v
}

// RuleID extracts the rule ID from the context, or "" if absent.
func RuleID(ctx context.Context) string {
	v, _ := ctx.Value(ruleIDKey).(string)
	return v
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every record. Use with
// slog.New(NewCorrelationHandler(inner)) so callers can log with
// logger.WarnContext(ctx, ...) and the IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic
// correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := StrategyID(ctx); v != "" {
		r.AddAttrs(slog.String("strategy_id", v))
	}
	if v := Workflow(ctx); v != "" {
		r.AddAttrs(slog.String("workflow", v))
	}
	if v := RuleID(ctx); v != "" {
		r.AddAttrs(slog.String("rule_id", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
