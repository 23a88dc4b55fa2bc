package expressions

import (
	"sort"

	"github.com/expr-lang/expr/ast"

	"github.com/rendis/tickrule/internal/funcs"
	"github.com/rendis/tickrule/pkg/schema"
)

// Static bounds on accepted expressions. A pathological expression must
// be rejected before it can ever reach the trading loop.
const (
	DefaultMaxDepth = 32
	DefaultMaxNodes = 1_000
)

// callSite is one function invocation found in the tree.
type callSite struct {
	name string
	argc int
}

// inspection is the result of the compile-time tree analysis.
type inspection struct {
	idents []string // root variable identifiers (sorted, deduped)
	paths  []string // dotted member paths (sorted, deduped)
	calls  []callSite
	nodes  int
}

// inspector collects identifiers, member paths and call sites from a
// parsed tree. The walk is post-order, so identifier nodes are recorded
// first and call targets resolved afterwards; identifiers used purely as
// call targets are not variables and are excluded from idents.
type inspector struct {
	identNodes []*ast.IdentifierNode
	pathSet    map[string]bool
	calls      []callSite
	callees    map[*ast.IdentifierNode]bool
	nodes      int
}

func (ins *inspector) Visit(node *ast.Node) {
	ins.nodes++

	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		ins.identNodes = append(ins.identNodes, n)
	case *ast.CallNode:
		if callee, ok := n.Callee.(*ast.IdentifierNode); ok {
			ins.callees[callee] = true
			ins.calls = append(ins.calls, callSite{name: callee.Value, argc: len(n.Arguments)})
		}
	case *ast.BuiltinNode:
		ins.calls = append(ins.calls, callSite{name: n.Name, argc: len(n.Arguments)})
	case *ast.MemberNode:
		if path, ok := dottedPath(n); ok {
			ins.pathSet[path] = true
		}
	}
}

// dottedPath flattens a member chain like indicators.rsi14.value into a
// dotted string. Chains with computed properties or non-identifier roots
// are not representable and report false.
func dottedPath(n *ast.MemberNode) (string, bool) {
	prop, ok := n.Property.(*ast.StringNode)
	if !ok {
		return "", false
	}
	switch base := n.Node.(type) {
	case *ast.IdentifierNode:
		return base.Value + "." + prop.Value, true
	case *ast.MemberNode:
		prefix, ok := dottedPath(base)
		if !ok {
			return "", false
		}
		return prefix + "." + prop.Value, true
	}
	return "", false
}

// inspect analyzes a parsed tree and enforces the static bounds and the
// function table (unknown names and bad arity are compile errors).
func inspect(source string, root ast.Node, registry *funcs.Registry, maxDepth, maxNodes int) (*inspection, error) {
	ins := &inspector{
		pathSet: make(map[string]bool),
		callees: make(map[*ast.IdentifierNode]bool),
	}
	ast.Walk(&root, ins)

	identSet := make(map[string]bool, len(ins.identNodes))
	for _, n := range ins.identNodes {
		if !ins.callees[n] {
			identSet[n.Value] = true
		}
	}

	if ins.nodes > maxNodes {
		return nil, schema.NewErrorf(schema.ErrCodeCompile,
			"expression has %d nodes, exceeding the %d node bound", ins.nodes, maxNodes).
			WithExpr(source)
	}
	if d := nodeDepth(root); d > maxDepth {
		return nil, schema.NewErrorf(schema.ErrCodeCompile,
			"expression nests %d levels deep, exceeding the %d level bound", d, maxDepth).
			WithExpr(source)
	}

	for _, call := range ins.calls {
		if !registry.Has(call.name) {
			return nil, schema.NewErrorf(schema.ErrCodeCompile,
				"unknown function %q", call.name).WithExpr(source)
		}
		if err := registry.CheckArity(call.name, call.argc); err != nil {
			ee, _ := err.(*schema.EngineError)
			if ee != nil {
				return nil, ee.WithExpr(source)
			}
			return nil, err
		}
	}

	out := &inspection{calls: ins.calls, nodes: ins.nodes}
	for name := range identSet {
		out.idents = append(out.idents, name)
	}
	for path := range ins.pathSet {
		out.paths = append(out.paths, path)
	}
	sort.Strings(out.idents)
	sort.Strings(out.paths)
	return out, nil
}

// nodeDepth computes the nesting depth of the tree. Node kinds without an
// explicit case are treated as leaves; the node-count bound backstops any
// under-count.
func nodeDepth(node ast.Node) int {
	max := 0
	bump := func(children ...ast.Node) {
		for _, c := range children {
			if c == nil {
				continue
			}
			if d := nodeDepth(c); d > max {
				max = d
			}
		}
	}

	switch n := node.(type) {
	case *ast.UnaryNode:
		bump(n.Node)
	case *ast.BinaryNode:
		bump(n.Left, n.Right)
	case *ast.ChainNode:
		bump(n.Node)
	case *ast.MemberNode:
		bump(n.Node, n.Property)
	case *ast.SliceNode:
		bump(n.Node, n.From, n.To)
	case *ast.CallNode:
		bump(n.Callee)
		bump(n.Arguments...)
	case *ast.BuiltinNode:
		bump(n.Arguments...)
	case *ast.ConditionalNode:
		bump(n.Cond, n.Exp1, n.Exp2)
	case *ast.ArrayNode:
		bump(n.Nodes...)
	case *ast.MapNode:
		bump(n.Pairs...)
	case *ast.PairNode:
		bump(n.Key, n.Value)
	}
	return max + 1
}
