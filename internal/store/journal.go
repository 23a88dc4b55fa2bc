// Package store persists evaluation outcomes for observability and
// backtest/live parity audits. The journal is strictly write-behind:
// nothing read from it ever feeds a trading decision.
package store

import (
	"context"
	"time"

	"github.com/rendis/tickrule/pkg/schema"
)

// Entry is one journaled workflow evaluation.
type Entry struct {
	ID          string              `json:"id"`
	StrategyID  string              `json:"strategy_id,omitempty"`
	Workflow    schema.WorkflowKind `json:"workflow"`
	Decision    bool                `json:"decision"`
	ReasonCodes []string            `json:"reason_codes,omitempty"`
	RuleID      string              `json:"rule_id,omitempty"`
	Error       string              `json:"error,omitempty"`
	Expression  string              `json:"expression,omitempty"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
}

// Journal records evaluation entries. Implementations must be safe for
// use from the single trading loop plus occasional readers.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
