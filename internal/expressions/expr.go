package expressions

import (
	"errors"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/rendis/tickrule/internal/funcs"
	"github.com/rendis/tickrule/pkg/schema"
)

// combinators are the only expr builtins left enabled. Everything else
// (notably the clock builtins) is disabled: evaluation must be a pure
// function of (expression, context).
var combinators = []string{"map", "filter", "all", "any", "none", "one", "count", "sum"}

// ExprEngine implements the default rule language on expr-lang/expr.
// The grammar the authoring side documents (boolean and comparison
// operators, arithmetic, ternary, single-quoted strings, member access,
// indexing, fixed-arity calls) is a subset of expr's. Compilation adds
// a static analysis pass (unknown functions, arity, depth and node
// bounds) and patches `/ % < <= > >=` into total library functions.
type ExprEngine struct {
	registry *funcs.Registry
	env      map[string]any // function library entries, built once
	maxDepth int
	maxNodes int
}

// ExprOptions bounds compiled expressions.
type ExprOptions struct {
	MaxDepth int // zero means DefaultMaxDepth
	MaxNodes int // zero means DefaultMaxNodes
}

// NewExprEngine creates the expr-language engine over the given function
// registry.
func NewExprEngine(registry *funcs.Registry, opts ExprOptions) *ExprEngine {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	return &ExprEngine{
		registry: registry,
		env:      registry.Env(),
		maxDepth: opts.MaxDepth,
		maxNodes: opts.MaxNodes,
	}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string { return LangExpr }

// exprCompiled is the expr-language Compiled form.
type exprCompiled struct {
	source  string
	empty   bool
	idents  []string
	paths   []string
	program *vm.Program
}

func (c *exprCompiled) Source() string        { return c.source }
func (c *exprCompiled) Language() string      { return LangExpr }
func (c *exprCompiled) Empty() bool           { return c.empty }
func (c *exprCompiled) Identifiers() []string { return c.idents }
func (c *exprCompiled) Paths() []string       { return c.paths }

// Compile parses, analyzes and compiles one expression. An empty or
// blank source is valid and yields an Empty compiled form ("this rule
// never fires"), not an error.
func (e *ExprEngine) Compile(source string) (Compiled, error) {
	if strings.TrimSpace(source) == "" {
		return &exprCompiled{source: source, empty: true}, nil
	}

	tree, err := parser.Parse(source)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeCompile, "syntax error: %s", err.Error()).
			WithExpr(source).
			WithCause(err)
	}

	info, err := inspect(source, tree.Node, e.registry, e.maxDepth, e.maxNodes)
	if err != nil {
		return nil, err
	}

	opts := []expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.DisableAllBuiltins(),
		expr.Patch(&operatorPatcher{}),
	}
	for _, name := range combinators {
		opts = append(opts, expr.EnableBuiltin(name))
	}

	program, err := expr.Compile(source, opts...)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeCompile, "compile error: %s", err.Error()).
			WithExpr(source).
			WithCause(err)
	}

	return &exprCompiled{
		source:  source,
		idents:  info.idents,
		paths:   info.paths,
		program: program,
	}, nil
}

// Evaluate runs a compiled expression against the data map. Undefined
// variables are caught before the VM runs so a typo in a rule surfaces
// as a typed error, never as a silently-null operand. No fault escapes
// as a panic.
func (e *ExprEngine) Evaluate(compiled Compiled, data map[string]any) (out any, err error) {
	c, ok := compiled.(*exprCompiled)
	if !ok {
		return nil, schema.NewError(schema.ErrCodeEval, "compiled form does not belong to the expr engine")
	}
	if c.empty {
		return nil, nil
	}

	for _, ident := range c.idents {
		if _, defined := data[ident]; !defined {
			return nil, schema.NewErrorf(schema.ErrCodeEval, "undefined variable %q", ident).
				WithExpr(c.source)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = schema.NewErrorf(schema.ErrCodeEval, "evaluation panic: %v", r).WithExpr(c.source)
		}
	}()

	// The VM environment is the context data plus the function library;
	// function names cannot be shadowed by variables.
	env := make(map[string]any, len(data)+len(e.env))
	for k, v := range data {
		env[k] = v
	}
	for k, v := range e.env {
		env[k] = v
	}

	result, runErr := vm.Run(c.program, env)
	if runErr != nil {
		var ee *schema.EngineError
		if errors.As(runErr, &ee) {
			// Library functions already return typed errors; keep them.
			return nil, ee.WithExpr(c.source)
		}
		return nil, schema.NewErrorf(schema.ErrCodeEval, "evaluation failed: %s", runErr.Error()).
			WithExpr(c.source).
			WithCause(runErr)
	}
	return result, nil
}

// operatorPatcher rewrites division, modulo and the ordering comparisons
// into calls to the total library functions, giving division-by-zero ->
// null and null-orders-as-neither semantics without runtime faults.
type operatorPatcher struct{}

func (p *operatorPatcher) Visit(node *ast.Node) {
	bn, ok := (*node).(*ast.BinaryNode)
	if !ok {
		return
	}

	var target string
	switch bn.Operator {
	case "/":
		target = funcs.OpDiv
	case "%":
		target = funcs.OpMod
	case "<":
		target = funcs.OpLt
	case "<=":
		target = funcs.OpLe
	case ">":
		target = funcs.OpGt
	case ">=":
		target = funcs.OpGe
	default:
		return
	}

	ast.Patch(node, &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: target},
		Arguments: []ast.Node{bn.Left, bn.Right},
	})
}

var _ Engine = (*ExprEngine)(nil)
