package funcs

import (
	"github.com/rendis/tickrule/pkg/schema"
)

// asNumber widens any numeric representation to float64. Strings never
// convert implicitly.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// asString narrows to a string without coercion.
func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asArray narrows to a generic slice without coercion.
func asArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

// asObject narrows to a generic map without coercion.
func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// typeMismatch builds the standard operand-type evaluation error.
func typeMismatch(fn, want string, got any) error {
	return schema.NewErrorf(schema.ErrCodeEval,
		"%s: expected %s operand, got %s", fn, want, schema.FromAny(got).Kind().String())
}

// needNumber extracts a numeric argument or fails with a typed error.
func needNumber(fn string, v any) (float64, error) {
	n, ok := asNumber(v)
	if !ok {
		return 0, typeMismatch(fn, "numeric", v)
	}
	return n, nil
}

// needString extracts a string argument or fails with a typed error.
func needString(fn string, v any) (string, error) {
	s, ok := asString(v)
	if !ok {
		return "", typeMismatch(fn, "string", v)
	}
	return s, nil
}

// needArray extracts and bounds an array argument.
func (r *Registry) needArray(fn string, v any) ([]any, error) {
	a, ok := asArray(v)
	if !ok {
		return nil, typeMismatch(fn, "array", v)
	}
	if len(a) > r.maxArrayLen {
		return nil, schema.NewErrorf(schema.ErrCodeEval,
			"%s: array of %d elements exceeds the %d element bound", fn, len(a), r.maxArrayLen)
	}
	return a, nil
}

// looseEqual compares two operands the way the == operator does for
// scalar kinds: same-kind comparison, null equals only null.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := asNumber(a); ok {
		bn, okb := asNumber(b)
		return okb && an == bn
	}
	if as, ok := asString(a); ok {
		bs, okb := asString(b)
		return okb && as == bs
	}
	if ab, ok := a.(bool); ok {
		bb, okb := b.(bool)
		return okb && ab == bb
	}
	return schema.FromAny(a).Equal(schema.FromAny(b))
}
