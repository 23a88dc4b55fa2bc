package expressions

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rendis/tickrule/pkg/schema"
)

// Namespaces visible to CEL rules. CEL addresses the five source maps
// directly (e.g. indicators.rsi14.value); the flat short-name aliases
// and the function library are expr-language features.
var celNamespaces = []string{"chart", "bot", "indicators", "regime", "project"}

// CELEngine implements the alternate rule language, selected by a rule
// document's language tag, using Google's Common Expression Language.
type CELEngine struct {
	env *cel.Env
}

// NewCELEngine creates a CEL engine with a sandboxed environment that
// exposes one map(string, dyn) variable per context namespace.
func NewCELEngine() (*CELEngine, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)

	var opts []cel.EnvOption
	for _, ns := range celNamespaces {
		opts = append(opts, cel.Variable(ns, mapType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{env: env}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string { return LangCEL }

// celCompiled is the CEL Compiled form.
type celCompiled struct {
	source  string
	empty   bool
	program cel.Program
}

func (c *celCompiled) Source() string   { return c.source }
func (c *celCompiled) Language() string { return LangCEL }
func (c *celCompiled) Empty() bool      { return c.empty }

// Identifiers returns nil: CEL rules only address the declared namespace
// maps, whose presence is guaranteed by the activation defaults.
func (c *celCompiled) Identifiers() []string { return nil }

// Paths returns nil; the semantic indicator-reference pass applies to
// expr-language rules only.
func (c *celCompiled) Paths() []string { return nil }

// Compile checks and plans one CEL expression. Blank sources yield an
// Empty compiled form, mirroring the expr engine.
func (e *CELEngine) Compile(source string) (Compiled, error) {
	if isBlank(source) {
		return &celCompiled{source: source, empty: true}, nil
	}

	ast, issues := e.env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, schema.NewErrorf(schema.ErrCodeCompile, "CEL compile error: %s", issues.Err().Error()).
			WithExpr(source).
			WithCause(issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeCompile, "CEL program error: %s", err.Error()).
			WithExpr(source).
			WithCause(err)
	}

	return &celCompiled{source: source, program: program}, nil
}

// Evaluate runs a compiled CEL expression. Missing namespaces default to
// empty maps so an absent provider reads as absent data, not a fault.
func (e *CELEngine) Evaluate(compiled Compiled, data map[string]any) (out any, err error) {
	c, ok := compiled.(*celCompiled)
	if !ok {
		return nil, schema.NewError(schema.ErrCodeEval, "compiled form does not belong to the CEL engine")
	}
	if c.empty {
		return nil, nil
	}

	activation := make(map[string]any, len(celNamespaces))
	for _, ns := range celNamespaces {
		if v, ok := data[ns]; ok && v != nil {
			activation[ns] = v
		} else {
			activation[ns] = map[string]any{}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = schema.NewErrorf(schema.ErrCodeEval, "evaluation panic: %v", r).WithExpr(c.source)
		}
	}()

	result, _, evalErr := c.program.Eval(activation)
	if evalErr != nil {
		return nil, schema.NewErrorf(schema.ErrCodeEval, "CEL evaluation failed: %s", evalErr.Error()).
			WithExpr(c.source).
			WithCause(evalErr)
	}
	return result.Value(), nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

var _ Engine = (*CELEngine)(nil)
