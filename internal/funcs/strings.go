package funcs

import "strings"

// registerString adds the string builtins. contains and indexOf accept
// strings too and live in the array file.
func (r *Registry) registerString() {
	r.register(&Func{
		Name: "startsWith", Category: CategoryString,
		Description: "true when the string starts with the prefix",
		MinArgs:     2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			s, err := needString("startsWith", args[0])
			if err != nil {
				return nil, err
			}
			prefix, err := needString("startsWith", args[1])
			if err != nil {
				return nil, err
			}
			return strings.HasPrefix(s, prefix), nil
		},
	})

	r.register(&Func{
		Name: "endsWith", Category: CategoryString,
		Description: "true when the string ends with the suffix",
		MinArgs:     2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			s, err := needString("endsWith", args[0])
			if err != nil {
				return nil, err
			}
			suffix, err := needString("endsWith", args[1])
			if err != nil {
				return nil, err
			}
			return strings.HasSuffix(s, suffix), nil
		},
	})

	r.register(&Func{
		Name: "toLowerCase", Category: CategoryString,
		Description: "lower-cased copy of the string",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			s, err := needString("toLowerCase", args[0])
			if err != nil {
				return nil, err
			}
			return strings.ToLower(s), nil
		},
	})

	r.register(&Func{
		Name: "toUpperCase", Category: CategoryString,
		Description: "upper-cased copy of the string",
		MinArgs:     1, MaxArgs: 1,
		Call: func(args []any) (any, error) {
			s, err := needString("toUpperCase", args[0])
			if err != nil {
				return nil, err
			}
			return strings.ToUpper(s), nil
		},
	})

	r.register(&Func{
		Name: "substring", Category: CategoryString,
		Description: "substring [start, end); indices are clamped to the string bounds",
		MinArgs:     2, MaxArgs: 3,
		Call: func(args []any) (any, error) {
			s, err := needString("substring", args[0])
			if err != nil {
				return nil, err
			}
			start, err := needNumber("substring", args[1])
			if err != nil {
				return nil, err
			}
			end := float64(len(s))
			if len(args) == 3 {
				if end, err = needNumber("substring", args[2]); err != nil {
					return nil, err
				}
			}
			lo, hi := clampIndex(int(start), len(s)), clampIndex(int(end), len(s))
			if lo >= hi {
				return "", nil
			}
			return s[lo:hi], nil
		},
	})

	r.register(&Func{
		Name: "split", Category: CategoryString,
		Description: "split the string on a separator into an array",
		MinArgs:     2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			s, err := needString("split", args[0])
			if err != nil {
				return nil, err
			}
			sep, err := needString("split", args[1])
			if err != nil {
				return nil, err
			}
			parts := strings.Split(s, sep)
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, nil
		},
	})

	r.register(&Func{
		Name: "join", Category: CategoryString,
		Description: "join an array of strings with a separator",
		MinArgs:     2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			arr, err := r.needArray("join", args[0])
			if err != nil {
				return nil, err
			}
			sep, err := needString("join", args[1])
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(arr))
			for i, e := range arr {
				s, ok := asString(e)
				if !ok {
					return nil, typeMismatch("join", "all-string array", e)
				}
				parts[i] = s
			}
			return strings.Join(parts, sep), nil
		},
	})
}
