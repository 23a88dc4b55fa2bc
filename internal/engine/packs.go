package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/tickrule/internal/logging"
	"github.com/rendis/tickrule/internal/metrics"
	"github.com/rendis/tickrule/internal/scope"
	"github.com/rendis/tickrule/internal/store"
	"github.com/rendis/tickrule/pkg/schema"
)

// packWorkflow maps a pack type onto the workflow label used for metrics
// and journaling.
func packWorkflow(t schema.PackType) schema.WorkflowKind {
	switch t {
	case schema.PackNoTrade, schema.PackRisk:
		return schema.WorkflowNoEntry
	case schema.PackEntry:
		return schema.WorkflowEntry
	case schema.PackExit:
		return schema.WorkflowExit
	case schema.PackUpdateStop:
		return schema.WorkflowUpdateStop
	}
	return schema.WorkflowKind(t)
}

// EvaluatePack aggregates the active rule pack of the given type against
// a context. Rules run in descending severity order; the first true
// non-warn rule supplies the decision, its id and its message. For
// no_trade and risk packs this is an OR over the enabled rules (any one
// blocking rule blocks). Warn-severity rules never flip the decision:
// a true warn rule only contributes its id as a reason code. A rule
// whose expression faults is skipped, logged and counted, and can
// neither fire nor block the rest of the pack.
func (e *Engine) EvaluatePack(ctx context.Context, packType schema.PackType, ec *scope.Context) schema.EvaluationResult {
	workflow := packWorkflow(packType)
	ctx = logging.WithWorkflow(ctx, string(workflow))

	result := schema.EvaluationResult{
		ID:          uuid.NewString(),
		Workflow:    workflow,
		Decision:    false,
		EvaluatedAt: time.Now().UTC(),
	}

	var pack *schema.Pack
	if e.pack != nil {
		pack = e.pack.Pack(packType)
	}
	if pack == nil {
		result.ReasonCodes = e.battery.derive(ec.Flat())
		e.finish(ctx, &result, "")
		return result
	}

	var deciding string
	for _, rule := range pack.EnabledRules() {
		if isBlank(rule.Expression) {
			continue
		}

		decision, _, err := e.run(rule.Language, rule.Expression, ec)
		if err != nil {
			metrics.EvalErrorsTotal.WithLabelValues(string(workflow)).Inc()
			e.logRuleFault(ctx, rule.ID, err)
			continue
		}
		if !decision {
			continue
		}

		if rule.Severity == schema.SeverityWarn {
			result.ReasonCodes = append(result.ReasonCodes, rule.ID)
			continue
		}
		if !result.Decision {
			result.Decision = true
			result.RuleID = rule.ID
			result.Message = rule.Message
			deciding = rule.Expression
		}
		result.ReasonCodes = append(result.ReasonCodes, rule.ID)
	}

	result.ReasonCodes = append(result.ReasonCodes, e.battery.derive(ec.Flat())...)
	e.finish(ctx, &result, deciding)
	return result
}

// logRuleFault logs one absorbed per-rule fault under the repeat cap and
// journals it as an errored sub-evaluation.
func (e *Engine) logRuleFault(ctx context.Context, ruleID string, faultErr *schema.EngineError) {
	ctx = logging.WithRuleID(ctx, ruleID)
	text := faultErr.Error()
	if ok, suppressed := e.throttle.allow(text); ok {
		attrs := []any{"error", text}
		if suppressed > 0 {
			attrs = append(attrs, "suppressed_repeats", suppressed)
		}
		e.logger.WarnContext(ctx, "rule fault absorbed, rule skipped", attrs...)
	}

	if e.journal == nil {
		return
	}
	entry := store.Entry{
		ID:          uuid.NewString(),
		StrategyID:  logging.StrategyID(ctx),
		Workflow:    schema.WorkflowKind(logging.Workflow(ctx)),
		Decision:    false,
		RuleID:      ruleID,
		Error:       text,
		Expression:  faultErr.Expression,
		EvaluatedAt: time.Now().UTC(),
	}
	if err := e.journal.Record(ctx, entry); err != nil {
		if ok, _ := e.throttle.allow("journal: " + err.Error()); ok {
			e.logger.WarnContext(ctx, "journal record failed", "error", err)
		}
	}
}
