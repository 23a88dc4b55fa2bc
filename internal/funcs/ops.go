package funcs

import (
	"math"

	"github.com/rendis/tickrule/pkg/schema"
)

// Operator rewrite targets. The compiler patches `/ % < <= > >=` into
// calls to these so that division stays total and null orders as
// neither-greater-nor-less. The names are not addressable from rule text
// (the grammar has no leading-underscore identifiers in practice) and
// are hidden from the catalog.
const (
	OpDiv = "_div"
	OpMod = "_mod"
	OpLt  = "_lt"
	OpLe  = "_le"
	OpGt  = "_gt"
	OpGe  = "_ge"
)

func (r *Registry) registerOperators() {
	r.register(&Func{
		Name: OpDiv, Category: CategoryInternal,
		MinArgs: 2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			if args[0] == nil || args[1] == nil {
				return nil, nil
			}
			a, err := needNumber("/", args[0])
			if err != nil {
				return nil, err
			}
			b, err := needNumber("/", args[1])
			if err != nil {
				return nil, err
			}
			return safeDivide(a, b), nil
		},
	})

	r.register(&Func{
		Name: OpMod, Category: CategoryInternal,
		MinArgs: 2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			if args[0] == nil || args[1] == nil {
				return nil, nil
			}
			a, err := needNumber("%", args[0])
			if err != nil {
				return nil, err
			}
			b, err := needNumber("%", args[1])
			if err != nil {
				return nil, err
			}
			if b == 0 {
				return nil, nil
			}
			return math.Mod(a, b), nil
		},
	})

	order := func(name, op string, num func(a, b float64) bool, str func(a, b string) bool) {
		r.register(&Func{
			Name: name, Category: CategoryInternal,
			MinArgs: 2, MaxArgs: 2,
			Call: func(args []any) (any, error) {
				// Null is neither greater nor less than anything.
				if args[0] == nil || args[1] == nil {
					return false, nil
				}
				if a, ok := asNumber(args[0]); ok {
					b, ok := asNumber(args[1])
					if !ok {
						return nil, orderMismatch(op, args[1])
					}
					return num(a, b), nil
				}
				if a, ok := asString(args[0]); ok {
					b, ok := asString(args[1])
					if !ok {
						return nil, orderMismatch(op, args[1])
					}
					return str(a, b), nil
				}
				return nil, orderMismatch(op, args[0])
			},
		})
	}

	order(OpLt, "<",
		func(a, b float64) bool { return a < b },
		func(a, b string) bool { return a < b })
	order(OpLe, "<=",
		func(a, b float64) bool { return a <= b },
		func(a, b string) bool { return a <= b })
	order(OpGt, ">",
		func(a, b float64) bool { return a > b },
		func(a, b string) bool { return a > b })
	order(OpGe, ">=",
		func(a, b float64) bool { return a >= b },
		func(a, b string) bool { return a >= b })
}

func orderMismatch(op string, got any) error {
	return schema.NewErrorf(schema.ErrCodeEval,
		"operator %s: operands must both be numbers or both be strings, got %s",
		op, schema.FromAny(got).Kind().String())
}
