package funcs

import (
	"sort"
	"strings"

	"github.com/rendis/tickrule/pkg/schema"
)

// registerArray adds the array builtins. Every function re-checks the
// element bound so a pathological context array cannot stall the tick.
// The lambda combinators (map, filter, all, any, none, one, count, sum)
// are provided by the expression engine itself and registered here only
// as placeholders so the compiler recognizes the names.
func (r *Registry) registerArray() {
	for _, c := range []struct{ name, desc string }{
		{"map", "transform each element with a predicate expression"},
		{"filter", "keep elements matching a predicate expression"},
		{"all", "true when every element matches the predicate"},
		{"any", "true when at least one element matches the predicate"},
		{"none", "true when no element matches the predicate"},
		{"one", "true when exactly one element matches the predicate"},
		{"count", "number of elements matching the predicate"},
		{"sum", "sum of the elements or of a projection"},
	} {
		r.register(&Func{
			Name: c.name, Category: CategoryArray, Description: c.desc,
			MinArgs: 1, MaxArgs: 2,
		})
	}

	r.register(&Func{
		Name: "size", Category: CategoryArray,
		Description: "element count of an array, key count of an object, length of a string",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			switch v := args[0].(type) {
			case nil:
				return 0.0, nil
			case []any:
				return float64(len(v)), nil
			case map[string]any:
				return float64(len(v)), nil
			case string:
				return float64(len(v)), nil
			}
			return nil, typeMismatch("size", "array, object or string", args[0])
		},
	})

	r.register(&Func{
		Name: "has", Category: CategoryArray,
		Description: "element membership for arrays, key presence for objects",
		MinArgs:     2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			switch v := args[0].(type) {
			case nil:
				return false, nil
			case []any:
				if len(v) > r.maxArrayLen {
					return nil, schema.NewErrorf(schema.ErrCodeEval,
						"has: array of %d elements exceeds the %d element bound", len(v), r.maxArrayLen)
				}
				for _, e := range v {
					if looseEqual(e, args[1]) {
						return true, nil
					}
				}
				return false, nil
			case map[string]any:
				key, err := needString("has", args[1])
				if err != nil {
					return nil, err
				}
				_, ok := v[key]
				return ok, nil
			}
			return nil, typeMismatch("has", "array or object", args[0])
		},
	})

	r.register(&Func{
		Name: "contains", Category: CategoryArray,
		Description: "array element membership, or substring test for strings",
		MinArgs:     2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			switch v := args[0].(type) {
			case nil:
				return false, nil
			case string:
				sub, err := needString("contains", args[1])
				if err != nil {
					return nil, err
				}
				return strings.Contains(v, sub), nil
			case []any:
				arr, err := r.needArray("contains", v)
				if err != nil {
					return nil, err
				}
				for _, e := range arr {
					if looseEqual(e, args[1]) {
						return true, nil
					}
				}
				return false, nil
			}
			return nil, typeMismatch("contains", "array or string", args[0])
		},
	})

	r.register(&Func{
		Name: "indexOf", Category: CategoryArray,
		Description: "index of the first matching element or substring, -1 when absent",
		MinArgs:     2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			switch v := args[0].(type) {
			case nil:
				return -1.0, nil
			case string:
				sub, err := needString("indexOf", args[1])
				if err != nil {
					return nil, err
				}
				return float64(strings.Index(v, sub)), nil
			case []any:
				arr, err := r.needArray("indexOf", v)
				if err != nil {
					return nil, err
				}
				for i, e := range arr {
					if looseEqual(e, args[1]) {
						return float64(i), nil
					}
				}
				return -1.0, nil
			}
			return nil, typeMismatch("indexOf", "array or string", args[0])
		},
	})

	r.register(&Func{
		Name: "first", Category: CategoryArray,
		Description: "first element, null for an empty array",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			if args[0] == nil {
				return nil, nil
			}
			arr, err := r.needArray("first", args[0])
			if err != nil {
				return nil, err
			}
			if len(arr) == 0 {
				return nil, nil
			}
			return arr[0], nil
		},
	})

	r.register(&Func{
		Name: "last", Category: CategoryArray,
		Description: "last element, null for an empty array",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			if args[0] == nil {
				return nil, nil
			}
			arr, err := r.needArray("last", args[0])
			if err != nil {
				return nil, err
			}
			if len(arr) == 0 {
				return nil, nil
			}
			return arr[len(arr)-1], nil
		},
	})

	r.register(&Func{
		Name: "distinct", Category: CategoryArray,
		Description: "array with duplicate elements removed, order preserved",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			arr, err := r.needArray("distinct", args[0])
			if err != nil {
				return nil, err
			}
			out := make([]any, 0, len(arr))
			for _, e := range arr {
				dup := false
				for _, kept := range out {
					if looseEqual(kept, e) {
						dup = true
						break
					}
				}
				if !dup {
					out = append(out, e)
				}
			}
			return out, nil
		},
	})

	r.register(&Func{
		Name: "sort", Category: CategoryArray,
		Description: "ascending sort of an all-number or all-string array",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			arr, err := r.needArray("sort", args[0])
			if err != nil {
				return nil, err
			}
			if len(arr) == 0 {
				return []any{}, nil
			}
			if _, ok := asNumber(arr[0]); ok {
				nums := make([]float64, len(arr))
				for i, e := range arr {
					n, ok := asNumber(e)
					if !ok {
						return nil, typeMismatch("sort", "all-numeric array", e)
					}
					nums[i] = n
				}
				sort.Float64s(nums)
				out := make([]any, len(nums))
				for i, n := range nums {
					out[i] = n
				}
				return out, nil
			}
			if _, ok := asString(arr[0]); ok {
				strs := make([]string, len(arr))
				for i, e := range arr {
					s, ok := asString(e)
					if !ok {
						return nil, typeMismatch("sort", "all-string array", e)
					}
					strs[i] = s
				}
				sort.Strings(strs)
				out := make([]any, len(strs))
				for i, s := range strs {
					out[i] = s
				}
				return out, nil
			}
			return nil, typeMismatch("sort", "all-number or all-string array", arr[0])
		},
	})

	r.register(&Func{
		Name: "reverse", Category: CategoryArray,
		Description: "array with element order reversed",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			arr, err := r.needArray("reverse", args[0])
			if err != nil {
				return nil, err
			}
			out := make([]any, len(arr))
			for i, e := range arr {
				out[len(arr)-1-i] = e
			}
			return out, nil
		},
	})

	r.register(&Func{
		Name: "slice", Category: CategoryArray,
		Description: "subarray [start, end); indices are clamped to the array bounds",
		MinArgs:     2, MaxArgs: 3,
		Call: func(args []any) (any, error) {
			arr, err := r.needArray("slice", args[0])
			if err != nil {
				return nil, err
			}
			start, err := needNumber("slice", args[1])
			if err != nil {
				return nil, err
			}
			end := float64(len(arr))
			if len(args) == 3 {
				if end, err = needNumber("slice", args[2]); err != nil {
					return nil, err
				}
			}
			lo, hi := clampIndex(int(start), len(arr)), clampIndex(int(end), len(arr))
			if lo >= hi {
				return []any{}, nil
			}
			out := make([]any, hi-lo)
			copy(out, arr[lo:hi])
			return out, nil
		},
	})
}

// clampIndex clamps i into [0, n], resolving negative indices from the end.
func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
