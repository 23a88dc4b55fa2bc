package funcs

import "math"

// registerMath adds the numeric builtins. All take numbers and return
// numbers; out-of-domain inputs (sqrt of a negative, log of zero) yield
// null so the library stays total.
func (r *Registry) registerMath() {
	unary := func(name, desc string, fn func(float64) any) {
		r.register(&Func{
			Name: name, Category: CategoryMath, Description: desc,
			MinArgs: 1, MaxArgs: 1,
			Call: func(args []any) (any, error) {
				n, err := needNumber(name, args[0])
				if err != nil {
					return nil, err
				}
				return fn(n), nil
			},
		})
	}

	unary("abs", "absolute value", func(n float64) any { return math.Abs(n) })
	unary("floor", "round down to the nearest integer", func(n float64) any { return math.Floor(n) })
	unary("ceil", "round up to the nearest integer", func(n float64) any { return math.Ceil(n) })
	unary("sqrt", "square root; null for negative input", func(n float64) any {
		if n < 0 {
			return nil
		}
		return math.Sqrt(n)
	})
	unary("log", "natural logarithm; null for input <= 0", func(n float64) any {
		if n <= 0 {
			return nil
		}
		return math.Log(n)
	})
	unary("log10", "base-10 logarithm; null for input <= 0", func(n float64) any {
		if n <= 0 {
			return nil
		}
		return math.Log10(n)
	})
	unary("sin", "sine (radians)", func(n float64) any { return math.Sin(n) })
	unary("cos", "cosine (radians)", func(n float64) any { return math.Cos(n) })
	unary("tan", "tangent (radians)", func(n float64) any { return math.Tan(n) })

	r.register(&Func{
		Name: "round", Category: CategoryMath,
		Description: "round to the nearest integer, or to the given number of decimals",
		MinArgs:     1, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			n, err := needNumber("round", args[0])
			if err != nil {
				return nil, err
			}
			if len(args) == 1 {
				return math.Round(n), nil
			}
			dec, err := needNumber("round", args[1])
			if err != nil {
				return nil, err
			}
			scale := math.Pow(10, math.Trunc(dec))
			if scale == 0 {
				return nil, nil
			}
			return math.Round(n*scale) / scale, nil
		},
	})

	r.register(&Func{
		Name: "pow", Category: CategoryMath,
		Description: "base raised to exponent; null when the result is not finite",
		MinArgs:     2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			base, err := needNumber("pow", args[0])
			if err != nil {
				return nil, err
			}
			exp, err := needNumber("pow", args[1])
			if err != nil {
				return nil, err
			}
			out := math.Pow(base, exp)
			if math.IsNaN(out) || math.IsInf(out, 0) {
				return nil, nil
			}
			return out, nil
		},
	})

	fold := func(name, desc string, pick func(acc, n float64) float64) {
		r.register(&Func{
			Name: name, Category: CategoryMath, Description: desc,
			MinArgs: 2, MaxArgs: Variadic,
			Call: func(args []any) (any, error) {
				acc, err := needNumber(name, args[0])
				if err != nil {
					return nil, err
				}
				for _, a := range args[1:] {
					n, err := needNumber(name, a)
					if err != nil {
						return nil, err
					}
					acc = pick(acc, n)
				}
				return acc, nil
			},
		})
	}

	fold("min", "smallest of the arguments", math.Min)
	fold("max", "largest of the arguments", math.Max)
}

// safeDivide is shared by the / operator rewrite and pct_change: a zero
// denominator yields null instead of an error or infinity.
func safeDivide(a, b float64) any {
	if b == 0 {
		return nil
	}
	return a / b
}
