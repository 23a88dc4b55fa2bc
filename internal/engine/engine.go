// Package engine orchestrates trading-rule evaluation: it resolves the
// active expression for a workflow, compiles through the shared cache,
// evaluates against an immutable per-tick context and converts the raw
// value into a fail-closed decision with reason codes. All faults are
// absorbed here; nothing below the public surface ever panics into the
// trading loop.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/tickrule/internal/expressions"
	"github.com/rendis/tickrule/internal/funcs"
	"github.com/rendis/tickrule/internal/logging"
	"github.com/rendis/tickrule/internal/metrics"
	"github.com/rendis/tickrule/internal/scope"
	"github.com/rendis/tickrule/internal/store"
	"github.com/rendis/tickrule/internal/validation"
	"github.com/rendis/tickrule/pkg/schema"
)

// Options configures one Engine instance. The zero value is usable.
type Options struct {
	// CacheSize bounds the compiled-expression LRU (default 128).
	CacheSize int
	// MaxDepth and MaxNodes bound accepted expression ASTs.
	MaxDepth int
	MaxNodes int
	// MaxArrayLen caps the element count accepted by array functions.
	MaxArrayLen int
	// Precedence orders namespace short-name collisions, highest first.
	// Nil means scope.DefaultPrecedence.
	Precedence scope.Precedence
	// Journal, when set, receives every workflow evaluation. Recording
	// failures are logged, never surfaced to the trading loop.
	Journal store.Journal
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine is the rule-engine orchestrator. One Engine serves one session;
// independent instances share nothing.
type Engine struct {
	registry  *funcs.Registry
	evaluator *expressions.Evaluator
	builder   *scope.Builder
	validator *validation.Validator
	battery   *reasonBattery
	journal   store.Journal
	logger    *slog.Logger
	throttle  *logThrottle

	strategy *schema.StrategyDoc
	pack     *schema.RulePack
}

// NewEngine wires the function registry, language engines, compile cache,
// context builder and validator into one orchestrator.
func NewEngine(opts Options) (*Engine, error) {
	registry := funcs.NewRegistry(funcs.Options{MaxArrayLen: opts.MaxArrayLen})

	exprEngine := expressions.NewExprEngine(registry, expressions.ExprOptions{
		MaxDepth: opts.MaxDepth,
		MaxNodes: opts.MaxNodes,
	})
	celEngine, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}

	cache := expressions.NewCompiledCache(opts.CacheSize)
	evaluator := expressions.NewEvaluator(cache, exprEngine, celEngine)

	builder, err := scope.NewBuilder(opts.Precedence)
	if err != nil {
		return nil, err
	}

	validator, err := validation.NewValidator(evaluator)
	if err != nil {
		return nil, err
	}

	battery, err := newReasonBattery(evaluator)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		registry:  registry,
		evaluator: evaluator,
		builder:   builder,
		validator: validator,
		battery:   battery,
		journal:   opts.Journal,
		logger:    logger,
		throttle:  newLogThrottle(0, 0),
	}, nil
}

// Validator exposes the load-time validation pipeline.
func (e *Engine) Validator() *validation.Validator { return e.validator }

// Builder exposes the context builder for callers that assemble contexts
// themselves once per tick.
func (e *Engine) Builder() *scope.Builder { return e.builder }

// CacheMetrics returns the compile-cache hit/miss counters.
func (e *Engine) CacheMetrics() (hits, misses uint64) {
	return e.evaluator.CacheMetrics()
}

// LoadStrategy validates and activates a workflow strategy document. A
// document with validation errors is rejected and the previous strategy
// stays active.
func (e *Engine) LoadStrategy(raw []byte) (*schema.ValidationResult, error) {
	doc, result := e.validator.ValidateStrategy(raw)
	if err := result.ToError(); err != nil {
		return result, err
	}
	e.strategy = doc
	return result, nil
}

// LoadRulePack validates and activates a grouped rule-pack document.
func (e *Engine) LoadRulePack(raw []byte) (*schema.ValidationResult, error) {
	pack, result := e.validator.ValidateRulePack(raw)
	if err := result.ToError(); err != nil {
		return result, err
	}
	e.pack = pack
	return result, nil
}

// LoadRulePackDecoded validates and activates an already-decoded pack,
// for callers that edit a loaded pack in memory instead of reparsing a
// document. Same activation contract as LoadRulePack.
func (e *Engine) LoadRulePackDecoded(pack *schema.RulePack) (*schema.ValidationResult, error) {
	result := e.validator.ValidateRulePackDecoded(pack)
	if err := result.ToError(); err != nil {
		return result, err
	}
	e.pack = pack
	return result, nil
}

// Strategy returns the active strategy document, or nil.
func (e *Engine) Strategy() *schema.StrategyDoc { return e.strategy }

// RulePack returns the active rule pack, or nil.
func (e *Engine) RulePack() *schema.RulePack { return e.pack }

// EvaluateWorkflow evaluates the active strategy's expression for one
// workflow kind against a pre-built context. The decision is always
// populated: every fault collapses into the kind's safe default (false
// for all five kinds) with the error attached for observability.
func (e *Engine) EvaluateWorkflow(ctx context.Context, kind schema.WorkflowKind, ec *scope.Context) schema.EvaluationResult {
	ctx = logging.WithWorkflow(ctx, string(kind))

	result := schema.EvaluationResult{
		ID:          uuid.NewString(),
		Workflow:    kind,
		Decision:    false,
		EvaluatedAt: time.Now().UTC(),
	}

	if !kind.Valid() {
		result.Err = schema.NewErrorf(schema.ErrCodeNotFound, "unknown workflow kind %q", kind)
		e.finish(ctx, &result, "")
		return result
	}

	var slot schema.WorkflowRule
	if e.strategy != nil {
		slot = e.strategy.Workflow.Rule(kind)
	}
	if !slot.Enabled || isBlank(slot.Expression) {
		// Disabled or empty slot: the safe default, no error.
		result.ReasonCodes = e.battery.derive(ec.Flat())
		e.finish(ctx, &result, slot.Expression)
		return result
	}

	decision, value, err := e.run(slot.Language, slot.Expression, ec)
	result.Decision = decision
	result.Value = value
	result.Err = err
	result.ReasonCodes = e.battery.derive(ec.Flat())

	e.finish(ctx, &result, slot.Expression)
	return result
}

// EvaluateEntry runs the entry flow: the entry expression first, and on a
// true decision the no_entry veto. The returned decision is the final
// "open a position" answer; both per-workflow results are returned for
// journaling and diagnostics.
func (e *Engine) EvaluateEntry(ctx context.Context, ec *scope.Context) (bool, []schema.EvaluationResult) {
	entry := e.EvaluateWorkflow(ctx, schema.WorkflowEntry, ec)
	if !entry.Decision {
		return false, []schema.EvaluationResult{entry}
	}
	veto := e.EvaluateWorkflow(ctx, schema.WorkflowNoEntry, ec)
	return !veto.Decision, []schema.EvaluationResult{entry, veto}
}

// EvaluatePosition runs the in-position flow in order: before_exit, exit,
// update_stop. Results are returned in that order.
func (e *Engine) EvaluatePosition(ctx context.Context, ec *scope.Context) []schema.EvaluationResult {
	return []schema.EvaluationResult{
		e.EvaluateWorkflow(ctx, schema.WorkflowBeforeExit, ec),
		e.EvaluateWorkflow(ctx, schema.WorkflowExit, ec),
		e.EvaluateWorkflow(ctx, schema.WorkflowUpdateStop, ec),
	}
}

// EvaluateWithSources is the one-shot convenience entry point: it builds
// a context from raw snapshots, evaluates a single expression and maps
// the outcome like a workflow evaluation (fail-closed, reason codes).
func (e *Engine) EvaluateWithSources(ctx context.Context, language, expression string, snap scope.Snapshots) schema.EvaluationResult {
	result := schema.EvaluationResult{
		ID:          uuid.NewString(),
		Decision:    false,
		EvaluatedAt: time.Now().UTC(),
	}

	ec, err := e.builder.Build(snap)
	if err != nil {
		result.Err = asEngineError(err, expression)
		return result
	}

	decision, value, evalErr := e.run(language, expression, ec)
	result.Decision = decision
	result.Value = value
	result.Err = evalErr
	result.ReasonCodes = e.battery.derive(ec.Flat())
	return result
}

// Catalog returns every resolvable variable of a context, for authoring
// and autocomplete tooling.
func (e *Engine) Catalog(ec *scope.Context) []scope.VariableInfo {
	return ec.Variables()
}

// Functions returns the public function-library catalog.
func (e *Engine) Functions() []funcs.Info {
	return e.registry.List()
}

// Close releases the journal, if any.
func (e *Engine) Close() error {
	if e.journal != nil {
		return e.journal.Close()
	}
	return nil
}

// run compiles (through the cache) and evaluates one expression,
// converting the raw value into a boolean decision. A non-boolean,
// non-null result is a typed evaluation fault, not a coercion.
func (e *Engine) run(language, source string, ec *scope.Context) (bool, schema.Value, *schema.EngineError) {
	compiled, err := e.evaluator.Compile(language, source)
	if err != nil {
		metrics.CompileErrorsTotal.WithLabelValues(expressions.NormalizeLanguage(language)).Inc()
		return false, schema.Null, asEngineError(err, source)
	}
	if compiled.Empty() {
		return false, schema.Null, nil
	}

	raw, err := e.evaluator.Evaluate(compiled, e.dataFor(compiled, ec))
	if err != nil {
		return false, schema.Null, asEngineError(err, source)
	}

	value := schema.FromAny(raw)
	switch {
	case raw == nil:
		return false, value, nil
	default:
		if b, ok := raw.(bool); ok {
			return b, value, nil
		}
		return false, value, schema.NewErrorf(schema.ErrCodeEval,
			"expression produced a %s value where a boolean decision was required", value.Kind().String()).
			WithExpr(source)
	}
}

// dataFor selects the environment shape per language: the flat mapping
// for expr, the namespace maps for CEL.
func (e *Engine) dataFor(compiled expressions.Compiled, ec *scope.Context) map[string]any {
	if compiled.Language() == expressions.LangCEL {
		return ec.Namespaces()
	}
	return ec.Flat()
}

// finish stamps metrics, the throttled log line and the journal entry
// for one finished evaluation.
func (e *Engine) finish(ctx context.Context, result *schema.EvaluationResult, expression string) {
	outcome := "false"
	switch {
	case result.Err != nil:
		outcome = "error"
	case result.Decision:
		outcome = "true"
	}
	metrics.EvaluationsTotal.WithLabelValues(string(result.Workflow), outcome).Inc()

	var errText string
	if result.Err != nil {
		errText = result.Err.Error()
		metrics.EvalErrorsTotal.WithLabelValues(string(result.Workflow)).Inc()
		if ok, suppressed := e.throttle.allow(errText); ok {
			attrs := []any{"error", errText}
			if suppressed > 0 {
				attrs = append(attrs, "suppressed_repeats", suppressed)
			}
			e.logger.WarnContext(ctx, "evaluation fault absorbed into safe default", attrs...)
		}
	}

	if e.journal == nil {
		return
	}
	entry := store.Entry{
		ID:          result.ID,
		StrategyID:  logging.StrategyID(ctx),
		Workflow:    result.Workflow,
		Decision:    result.Decision,
		ReasonCodes: result.ReasonCodes,
		RuleID:      result.RuleID,
		Error:       errText,
		Expression:  expression,
		EvaluatedAt: result.EvaluatedAt,
	}
	if err := e.journal.Record(ctx, entry); err != nil {
		if ok, _ := e.throttle.allow("journal: " + err.Error()); ok {
			e.logger.WarnContext(ctx, "journal record failed", "error", err)
		}
	}
}

// asEngineError preserves typed errors and wraps everything else as an
// evaluation fault carrying the offending expression.
func asEngineError(err error, expression string) *schema.EngineError {
	if ee, ok := err.(*schema.EngineError); ok {
		return ee
	}
	return schema.NewError(schema.ErrCodeEval, err.Error()).WithExpr(expression)
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
