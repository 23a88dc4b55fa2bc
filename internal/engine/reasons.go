package engine

import (
	"github.com/rendis/tickrule/internal/expressions"
)

// reasonPredicate is one entry in the fixed annotation battery: a named
// convenience condition evaluated against the same context as the user's
// expression, purely to tag the decision for logs and journals.
type reasonPredicate struct {
	code   string
	source string
}

// reasonTable lists the battery in emission order. Predicates that
// reference variables absent from a given context simply do not fire;
// the battery never influences the decision itself.
var reasonTable = []reasonPredicate{
	{"RSI_OVERSOLD", "rsi < 30"},
	{"RSI_OVERBOUGHT", "rsi > 70"},
	{"MACD_BULLISH", "macd_hist > 0"},
	{"MACD_BEARISH", "macd_hist < 0"},
	{"STRONG_TREND", "adx > 25"},
	{"WEAK_TREND", "adx < 20"},
	{"EXTREME_REGIME", "regime == 'EXTREME_BULL' || regime == 'EXTREME_BEAR'"},
	{"REGIME_SHIFT", "regime != regime_prev"},
	{"LOW_REGIME_CONFIDENCE", "regime_confidence < 0.5"},
	{"TRADE_OPEN", "is_trade_open(trade)"},
	{"LONG_POSITION", "is_long(trade)"},
	{"SHORT_POSITION", "is_short(trade)"},
}

// reasonBattery holds the pre-compiled battery.
type reasonBattery struct {
	evaluator *expressions.Evaluator
	compiled  []struct {
		code string
		form expressions.Compiled
	}
}

func newReasonBattery(evaluator *expressions.Evaluator) (*reasonBattery, error) {
	b := &reasonBattery{evaluator: evaluator}
	for _, p := range reasonTable {
		form, err := evaluator.Compile(expressions.LangExpr, p.source)
		if err != nil {
			return nil, err
		}
		b.compiled = append(b.compiled, struct {
			code string
			form expressions.Compiled
		}{p.code, form})
	}
	return b, nil
}

// derive returns the codes whose predicate evaluates to true against the
// flat environment. Evaluation faults (usually an absent variable) skip
// the predicate silently.
func (b *reasonBattery) derive(flat map[string]any) []string {
	var codes []string
	for _, p := range b.compiled {
		v, err := b.evaluator.Evaluate(p.form, flat)
		if err != nil {
			continue
		}
		if t, ok := v.(bool); ok && t {
			codes = append(codes, p.code)
		}
	}
	return codes
}
