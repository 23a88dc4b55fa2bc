package funcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/tickrule/pkg/schema"
)

func call(t *testing.T, r *Registry, name string, args ...any) (any, error) {
	t.Helper()
	f, ok := r.Lookup(name)
	require.True(t, ok, "builtin %q not registered", name)
	require.NotNil(t, f.Call, "builtin %q is a combinator placeholder", name)
	return f.Call(args)
}

func mustCall(t *testing.T, r *Registry, name string, args ...any) any {
	t.Helper()
	out, err := call(t, r, name, args...)
	require.NoError(t, err)
	return out
}

// --- Registry ---

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(Options{})
	assert.Greater(t, r.Count(), 60)
	assert.Equal(t, DefaultMaxArrayLen, r.MaxArrayLen())
}

func TestRegistry_CheckArity(t *testing.T) {
	r := NewRegistry(Options{})

	t.Run("unknown function", func(t *testing.T) {
		err := r.CheckArity("nope", 1)
		require.Error(t, err)
		assert.True(t, schema.IsCompileError(err))
	})

	t.Run("too few arguments", func(t *testing.T) {
		err := r.CheckArity("pow", 1)
		require.Error(t, err)
		assert.True(t, schema.IsCompileError(err))
	})

	t.Run("too many arguments", func(t *testing.T) {
		err := r.CheckArity("abs", 2)
		require.Error(t, err)
	})

	t.Run("variadic upper bound", func(t *testing.T) {
		assert.NoError(t, r.CheckArity("max", 7))
	})
}

func TestRegistry_EnvSkipsCombinators(t *testing.T) {
	r := NewRegistry(Options{})
	env := r.Env()

	assert.NotContains(t, env, "filter")
	assert.NotContains(t, env, "map")
	assert.Contains(t, env, "abs")
	assert.Contains(t, env, OpDiv)
}

func TestRegistry_ListHidesInternal(t *testing.T) {
	r := NewRegistry(Options{})
	for _, info := range r.List() {
		assert.NotEqual(t, CategoryInternal, info.Category, "internal %q leaked into the catalog", info.Name)
	}
}

// --- Math ---

func TestMath(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, 3.0, mustCall(t, r, "abs", -3.0))
	assert.Equal(t, 2.0, mustCall(t, r, "floor", 2.9))
	assert.Equal(t, 3.0, mustCall(t, r, "ceil", 2.1))
	assert.Equal(t, 4.0, mustCall(t, r, "sqrt", 16.0))
	assert.Equal(t, 3.0, mustCall(t, r, "round", 2.5))
	assert.Equal(t, 2.46, mustCall(t, r, "round", 2.456, 2.0))
	assert.Equal(t, 8.0, mustCall(t, r, "pow", 2.0, 3.0))
	assert.Equal(t, 1.0, mustCall(t, r, "min", 3.0, 1.0, 2.0))
	assert.Equal(t, 3.0, mustCall(t, r, "max", 3.0, 1.0, 2.0))
}

func TestMath_OutOfDomainYieldsNull(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Nil(t, mustCall(t, r, "sqrt", -1.0))
	assert.Nil(t, mustCall(t, r, "log", 0.0))
	assert.Nil(t, mustCall(t, r, "log10", -5.0))
	assert.Nil(t, mustCall(t, r, "pow", 0.0, -1.0))
}

func TestMath_NonNumericIsTypedError(t *testing.T) {
	r := NewRegistry(Options{})

	_, err := call(t, r, "abs", "ten")
	require.Error(t, err)
	assert.True(t, schema.IsEvalError(err))
}

func TestMath_IntegersWiden(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, 3.0, mustCall(t, r, "abs", -3))
	assert.Equal(t, 5.0, mustCall(t, r, "max", 5, 2.5))
}

// --- Operators ---

func TestOperator_Division(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, 5.0, mustCall(t, r, OpDiv, 10.0, 2.0))

	t.Run("division by zero yields null", func(t *testing.T) {
		assert.Nil(t, mustCall(t, r, OpDiv, 10.0, 0.0))
	})

	t.Run("null operand propagates", func(t *testing.T) {
		assert.Nil(t, mustCall(t, r, OpDiv, nil, 2.0))
	})

	t.Run("modulo by zero yields null", func(t *testing.T) {
		assert.Nil(t, mustCall(t, r, OpMod, 10.0, 0.0))
	})
}

func TestOperator_Ordering(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, true, mustCall(t, r, OpLt, 1.0, 2.0))
	assert.Equal(t, false, mustCall(t, r, OpGt, 1.0, 2.0))
	assert.Equal(t, true, mustCall(t, r, OpGe, 2.0, 2.0))
	assert.Equal(t, true, mustCall(t, r, OpLt, "a", "b"))

	t.Run("null is neither greater nor less", func(t *testing.T) {
		assert.Equal(t, false, mustCall(t, r, OpLt, nil, 2.0))
		assert.Equal(t, false, mustCall(t, r, OpGt, 2.0, nil))
		assert.Equal(t, false, mustCall(t, r, OpLe, nil, nil))
	})

	t.Run("mixed types are a typed error", func(t *testing.T) {
		_, err := call(t, r, OpLt, 1.0, "2")
		require.Error(t, err)
		assert.True(t, schema.IsEvalError(err))
	})
}

// --- Array ---

func TestArray(t *testing.T) {
	r := NewRegistry(Options{})
	arr := []any{3.0, 1.0, 2.0, 1.0}

	assert.Equal(t, 4.0, mustCall(t, r, "size", arr))
	assert.Equal(t, 5.0, mustCall(t, r, "size", "hello"))
	assert.Equal(t, true, mustCall(t, r, "has", arr, 2.0))
	assert.Equal(t, false, mustCall(t, r, "has", arr, 9.0))
	assert.Equal(t, true, mustCall(t, r, "contains", arr, 3.0))
	assert.Equal(t, 2.0, mustCall(t, r, "indexOf", arr, 2.0))
	assert.Equal(t, -1.0, mustCall(t, r, "indexOf", arr, 9.0))
	assert.Equal(t, 3.0, mustCall(t, r, "first", arr))
	assert.Equal(t, 1.0, mustCall(t, r, "last", arr))
	assert.Equal(t, []any{3.0, 1.0, 2.0}, mustCall(t, r, "distinct", arr))
	assert.Equal(t, []any{1.0, 1.0, 2.0, 3.0}, mustCall(t, r, "sort", arr))
	assert.Equal(t, []any{1.0, 2.0, 1.0, 3.0}, mustCall(t, r, "reverse", arr))
	assert.Equal(t, []any{1.0, 2.0}, mustCall(t, r, "slice", arr, 1.0, 3.0))
}

func TestArray_EmptyAndNull(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Nil(t, mustCall(t, r, "first", []any{}))
	assert.Nil(t, mustCall(t, r, "last", []any{}))
	assert.Equal(t, 0.0, mustCall(t, r, "size", nil))
	assert.Equal(t, false, mustCall(t, r, "has", nil, 1.0))
}

func TestArray_BoundEnforced(t *testing.T) {
	r := NewRegistry(Options{MaxArrayLen: 3})
	big := []any{1.0, 2.0, 3.0, 4.0}

	_, err := call(t, r, "sort", big)
	require.Error(t, err)
	assert.True(t, schema.IsEvalError(err))

	_, err = call(t, r, "has", big, 1.0)
	require.Error(t, err)
}

func TestArray_SliceClamping(t *testing.T) {
	r := NewRegistry(Options{})
	arr := []any{1.0, 2.0, 3.0}

	assert.Equal(t, []any{2.0, 3.0}, mustCall(t, r, "slice", arr, 1.0))
	assert.Equal(t, []any{3.0}, mustCall(t, r, "slice", arr, -1.0))
	assert.Equal(t, []any{}, mustCall(t, r, "slice", arr, 5.0, 9.0))
}

func TestArray_HasObjectKey(t *testing.T) {
	r := NewRegistry(Options{})
	obj := map[string]any{"rsi": 25.0}

	assert.Equal(t, true, mustCall(t, r, "has", obj, "rsi"))
	assert.Equal(t, false, mustCall(t, r, "has", obj, "adx"))
}

// --- String ---

func TestString(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, true, mustCall(t, r, "startsWith", "BTCUSDT", "BTC"))
	assert.Equal(t, true, mustCall(t, r, "endsWith", "BTCUSDT", "USDT"))
	assert.Equal(t, "bull", mustCall(t, r, "toLowerCase", "BULL"))
	assert.Equal(t, "BULL", mustCall(t, r, "toUpperCase", "bull"))
	assert.Equal(t, "BTC", mustCall(t, r, "substring", "BTCUSDT", 0.0, 3.0))
	assert.Equal(t, "", mustCall(t, r, "substring", "abc", 9.0, 12.0))
	assert.Equal(t, []any{"a", "b"}, mustCall(t, r, "split", "a,b", ","))
	assert.Equal(t, "a-b", mustCall(t, r, "join", []any{"a", "b"}, "-"))
	assert.Equal(t, true, mustCall(t, r, "contains", "EXTREME_BULL", "BULL"))
}

func TestString_NoImplicitCoercion(t *testing.T) {
	r := NewRegistry(Options{})

	_, err := call(t, r, "toLowerCase", 42.0)
	require.Error(t, err)
	assert.True(t, schema.IsEvalError(err))
}

// --- Type ---

func TestType(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, "number", mustCall(t, r, "type", 1.5))
	assert.Equal(t, "null", mustCall(t, r, "type", nil))
	assert.Equal(t, "string", mustCall(t, r, "type", "x"))

	assert.Equal(t, "1.5", mustCall(t, r, "string", 1.5))
	assert.Equal(t, "", mustCall(t, r, "string", nil))

	assert.Equal(t, 2.0, mustCall(t, r, "int", 2.9))
	assert.Equal(t, -2.0, mustCall(t, r, "int", -2.9))
	assert.Equal(t, 3.0, mustCall(t, r, "int", "3.5"))
	assert.Nil(t, mustCall(t, r, "int", "not a number"))

	assert.Equal(t, 3.5, mustCall(t, r, "double", "3.5"))
	assert.Nil(t, mustCall(t, r, "double", "x"))

	assert.Equal(t, true, mustCall(t, r, "bool", "true"))
	assert.Equal(t, false, mustCall(t, r, "bool", 0.0))
	assert.Equal(t, true, mustCall(t, r, "bool", 2.0))
	assert.Equal(t, false, mustCall(t, r, "bool", nil))
}

func TestType_NullHelpers(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, true, mustCall(t, r, "isnull", nil))
	assert.Equal(t, false, mustCall(t, r, "isnull", 0.0))
	assert.Equal(t, 5.0, mustCall(t, r, "nz", 5.0))
	assert.Equal(t, 0.0, mustCall(t, r, "nz", nil))
	assert.Equal(t, 7.0, mustCall(t, r, "nz", nil, 7.0))
	assert.Equal(t, "b", mustCall(t, r, "coalesce", nil, "b", "c"))
	assert.Nil(t, mustCall(t, r, "coalesce", nil, nil))
}

// --- Domain ---

func TestDomain_Thresholds(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, true, mustCall(t, r, "rsi_oversold", 25.0))
	assert.Equal(t, false, mustCall(t, r, "rsi_oversold", 35.0))
	assert.Equal(t, true, mustCall(t, r, "rsi_oversold", 35.0, 40.0))
	assert.Equal(t, true, mustCall(t, r, "rsi_overbought", 75.0))
	assert.Equal(t, true, mustCall(t, r, "adx_strong", 30.0))
	assert.Equal(t, true, mustCall(t, r, "macd_bullish", 0.5))
	assert.Equal(t, true, mustCall(t, r, "macd_bearish", -0.5))

	t.Run("null reads as false", func(t *testing.T) {
		assert.Equal(t, false, mustCall(t, r, "rsi_oversold", nil))
		assert.Equal(t, false, mustCall(t, r, "macd_bullish", nil))
	})
}

func TestDomain_PriceHelpers(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, true, mustCall(t, r, "price_above_sma", 105.0, 100.0))
	assert.Equal(t, true, mustCall(t, r, "price_below_ema", 95.0, 100.0))
	assert.Equal(t, true, mustCall(t, r, "stop_hit_long", 98.0, 99.0))
	assert.Equal(t, false, mustCall(t, r, "stop_hit_long", 100.0, 99.0))
	assert.Equal(t, true, mustCall(t, r, "stop_hit_short", 101.0, 100.0))
	assert.Equal(t, true, mustCall(t, r, "tp_hit", 110.0, 105.0, "long"))
	assert.Equal(t, true, mustCall(t, r, "tp_hit", 90.0, 95.0, "short"))
	assert.Equal(t, false, mustCall(t, r, "tp_hit", 90.0, 95.0, "sideways"))
}

func TestDomain_PctChange(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, 10.0, mustCall(t, r, "pct_change", 100.0, 110.0))
	assert.Nil(t, mustCall(t, r, "pct_change", 0.0, 110.0))
	assert.Nil(t, mustCall(t, r, "pct_change", nil, 110.0))
}

func TestDomain_InRegime(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, true, mustCall(t, r, "in_regime", "BULL", "BULL"))
	assert.Equal(t, false, mustCall(t, r, "in_regime", "BULL", "BEAR"))
	assert.Equal(t, true, mustCall(t, r, "in_regime", "BULL", []any{"BEAR", "BULL"}))
	assert.Equal(t, false, mustCall(t, r, "in_regime", nil, "BULL"))
}

func TestDomain_TradeState(t *testing.T) {
	r := NewRegistry(Options{})
	long := map[string]any{"open": true, "direction": "long"}
	closed := map[string]any{"open": false, "direction": "long"}

	assert.Equal(t, true, mustCall(t, r, "is_trade_open", long))
	assert.Equal(t, false, mustCall(t, r, "is_trade_open", closed))
	assert.Equal(t, true, mustCall(t, r, "is_long", long))
	assert.Equal(t, false, mustCall(t, r, "is_short", long))

	t.Run("malformed trade reads as no trade", func(t *testing.T) {
		assert.Equal(t, false, mustCall(t, r, "is_trade_open", nil))
		assert.Equal(t, false, mustCall(t, r, "is_long", "long"))
	})
}
