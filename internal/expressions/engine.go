// Package expressions compiles and evaluates trading-rule expressions.
// Two languages are supported: expr (default, full function library and
// flat variable access) and cel (namespaced maps only). Compiled forms
// are immutable, hold no reference to any evaluation context, and are
// shared across goroutines through a bounded LRU cache.
package expressions

import (
	"strings"

	"github.com/rendis/tickrule/internal/metrics"
	"github.com/rendis/tickrule/pkg/schema"
)

// Language identifiers accepted by rule documents.
const (
	LangExpr = "expr"
	LangCEL  = "cel"
)

// Compiled is the opaque parsed form of one expression string.
type Compiled interface {
	// Source returns the exact text the expression was compiled from.
	Source() string
	// Language returns the engine identifier that owns this form.
	Language() string
	// Empty reports whether the source was blank. An empty expression is
	// valid and means "never fires"; it is resolved by the caller without
	// evaluation.
	Empty() bool
	// Identifiers returns the root variable names the expression reads.
	Identifiers() []string
	// Paths returns the dotted member paths the expression reads, used by
	// the semantic validation pass.
	Paths() []string
}

// Engine compiles and evaluates one expression language.
type Engine interface {
	Name() string
	Compile(source string) (Compiled, error)
	Evaluate(compiled Compiled, data map[string]any) (any, error)
}

// Evaluator dispatches to the registered language engines through the
// shared compile cache. It is the only entry point the rule engine uses.
type Evaluator struct {
	engines map[string]Engine
	cache   *CompiledCache
}

// NewEvaluator wires the language engines to a cache. The cache is
// constructor-injected so independent engine instances never share
// compiled state.
func NewEvaluator(cache *CompiledCache, engines ...Engine) *Evaluator {
	m := make(map[string]Engine, len(engines))
	for _, e := range engines {
		m[e.Name()] = e
	}
	return &Evaluator{engines: m, cache: cache}
}

// Compile returns the compiled form for (language, source), from the
// cache when possible. Compilation is a pure function of its inputs, so
// a duplicate concurrent compile is wasted work, not a hazard; the last
// writer into the cache wins.
func (ev *Evaluator) Compile(language, source string) (Compiled, error) {
	language = NormalizeLanguage(language)
	engine, ok := ev.engines[language]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeCompile, "unknown expression language %q", language)
	}

	if c, ok := ev.cache.Get(language, source); ok {
		metrics.CacheHitsTotal.Inc()
		return c, nil
	}
	metrics.CacheMissesTotal.Inc()

	c, err := engine.Compile(source)
	if err != nil {
		return nil, err
	}
	ev.cache.Add(language, source, c)
	return c, nil
}

// Evaluate runs a compiled expression against the given data.
func (ev *Evaluator) Evaluate(compiled Compiled, data map[string]any) (any, error) {
	engine, ok := ev.engines[compiled.Language()]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeEval,
			"no engine registered for language %q", compiled.Language())
	}
	return engine.Evaluate(compiled, data)
}

// CacheMetrics exposes the cache hit/miss counters.
func (ev *Evaluator) CacheMetrics() (hits, misses uint64) {
	return ev.cache.Metrics()
}

// NormalizeLanguage maps an empty or aliased language tag to its
// canonical identifier.
func NormalizeLanguage(language string) string {
	switch strings.TrimSpace(strings.ToLower(language)) {
	case "", LangExpr:
		return LangExpr
	case LangCEL:
		return LangCEL
	default:
		return strings.TrimSpace(strings.ToLower(language))
	}
}
