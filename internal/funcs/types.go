package funcs

import (
	"math"
	"strconv"

	"github.com/rendis/tickrule/pkg/schema"
)

// registerType adds the explicit coercion builtins plus the null helpers.
// These are the only way a string becomes a number or vice versa; the
// operators never coerce. A string that does not parse yields null.
func (r *Registry) registerType() {
	r.register(&Func{
		Name: "type", Category: CategoryType,
		Description: "kind name of the value: null, bool, number, string, array or object",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			return schema.FromAny(args[0]).Kind().String(), nil
		},
	})

	r.register(&Func{
		Name: "string", Category: CategoryType,
		Description: "explicit conversion to string; null becomes the empty string",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			switch v := args[0].(type) {
			case nil:
				return "", nil
			case string:
				return v, nil
			case bool:
				return strconv.FormatBool(v), nil
			}
			if n, ok := asNumber(args[0]); ok {
				return strconv.FormatFloat(n, 'f', -1, 64), nil
			}
			return schema.FromAny(args[0]).String(), nil
		},
	})

	r.register(&Func{
		Name: "int", Category: CategoryType,
		Description: "explicit conversion to a whole number, truncating toward zero; null when unparsable",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			if n, ok := asNumber(args[0]); ok {
				return math.Trunc(n), nil
			}
			if s, ok := asString(args[0]); ok {
				n, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, nil
				}
				return math.Trunc(n), nil
			}
			if b, ok := args[0].(bool); ok {
				if b {
					return 1.0, nil
				}
				return 0.0, nil
			}
			return nil, nil
		},
	})

	r.register(&Func{
		Name: "double", Category: CategoryType,
		Description: "explicit conversion to a number; null when unparsable",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			if n, ok := asNumber(args[0]); ok {
				return n, nil
			}
			if s, ok := asString(args[0]); ok {
				n, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, nil
				}
				return n, nil
			}
			return nil, nil
		},
	})

	r.register(&Func{
		Name: "bool", Category: CategoryType,
		Description: "explicit conversion to bool: 'true'/'false' strings, non-zero numbers; null becomes false",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			switch v := args[0].(type) {
			case nil:
				return false, nil
			case bool:
				return v, nil
			case string:
				switch v {
				case "true":
					return true, nil
				case "false":
					return false, nil
				}
				return nil, nil
			}
			if n, ok := asNumber(args[0]); ok {
				return n != 0, nil
			}
			return nil, nil
		},
	})

	r.register(&Func{
		Name: "isnull", Category: CategoryType,
		Description: "true when the value is null",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			return args[0] == nil, nil
		},
	})

	r.register(&Func{
		Name: "nz", Category: CategoryType,
		Description: "value unchanged unless null, then the replacement (default 0)",
		MinArgs:     1, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			if args[0] != nil {
				return args[0], nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return 0.0, nil
		},
	})

	r.register(&Func{
		Name: "coalesce", Category: CategoryType,
		Description: "first non-null argument, or null when all are null",
		MinArgs:     1, MaxArgs: Variadic,
		Call: func(args []any) (any, error) {
			for _, a := range args {
				if a != nil {
					return a, nil
				}
			}
			return nil, nil
		},
	})
}
