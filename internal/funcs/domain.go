package funcs

// registerDomain adds the trading helpers. Boolean helpers treat a null
// operand as false (an indicator that is not materialized in the current
// regime must never fire a rule); pct_change propagates null.
func (r *Registry) registerDomain() {
	r.register(&Func{
		Name: "pct_change", Category: CategoryDomain,
		Description: "percent change from old to new; null when old is zero or either side is null",
		MinArgs:     2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			if args[0] == nil || args[1] == nil {
				return nil, nil
			}
			old, err := needNumber("pct_change", args[0])
			if err != nil {
				return nil, err
			}
			cur, err := needNumber("pct_change", args[1])
			if err != nil {
				return nil, err
			}
			if old == 0 {
				return nil, nil
			}
			return (cur - old) / old * 100, nil
		},
	})

	// Two-number predicates with the same null-is-false shape.
	cmp2 := func(name, desc string, test func(a, b float64) bool) {
		r.register(&Func{
			Name: name, Category: CategoryDomain, Description: desc,
			MinArgs: 2, MaxArgs: 2,
			Call: func(args []any) (any, error) {
				if args[0] == nil || args[1] == nil {
					return false, nil
				}
				a, err := needNumber(name, args[0])
				if err != nil {
					return nil, err
				}
				b, err := needNumber(name, args[1])
				if err != nil {
					return nil, err
				}
				return test(a, b), nil
			},
		})
	}

	cmp2("price_above_sma", "true when price is above the SMA value", func(p, s float64) bool { return p > s })
	cmp2("price_below_sma", "true when price is below the SMA value", func(p, s float64) bool { return p < s })
	cmp2("price_above_ema", "true when price is above the EMA value", func(p, e float64) bool { return p > e })
	cmp2("price_below_ema", "true when price is below the EMA value", func(p, e float64) bool { return p < e })
	cmp2("stop_hit_long", "true when price has fallen to or through the stop of a long position",
		func(price, stop float64) bool { return price <= stop })
	cmp2("stop_hit_short", "true when price has risen to or through the stop of a short position",
		func(price, stop float64) bool { return price >= stop })

	// One-number thresholds with an optional override.
	threshold := func(name, desc string, def float64, test func(v, th float64) bool) {
		r.register(&Func{
			Name: name, Category: CategoryDomain, Description: desc,
			MinArgs: 1, MaxArgs: 2,
			Call: func(args []any) (any, error) {
				if args[0] == nil {
					return false, nil
				}
				v, err := needNumber(name, args[0])
				if err != nil {
					return nil, err
				}
				th := def
				if len(args) == 2 {
					if th, err = needNumber(name, args[1]); err != nil {
						return nil, err
					}
				}
				return test(v, th), nil
			},
		})
	}

	threshold("rsi_oversold", "true when RSI is below the threshold (default 30)", 30,
		func(v, th float64) bool { return v < th })
	threshold("rsi_overbought", "true when RSI is above the threshold (default 70)", 70,
		func(v, th float64) bool { return v > th })
	threshold("adx_strong", "true when ADX is above the threshold (default 25)", 25,
		func(v, th float64) bool { return v > th })
	threshold("macd_bullish", "true when the MACD histogram is positive", 0,
		func(v, th float64) bool { return v > th })
	threshold("macd_bearish", "true when the MACD histogram is negative", 0,
		func(v, th float64) bool { return v < th })

	r.register(&Func{
		Name: "in_regime", Category: CategoryDomain,
		Description: "true when the current regime equals the expected one, or any of an array of expected regimes",
		MinArgs:     2, MaxArgs: 2,
		Call: func(args []any) (any, error) {
			if args[0] == nil {
				return false, nil
			}
			current, err := needString("in_regime", args[0])
			if err != nil {
				return nil, err
			}
			switch expected := args[1].(type) {
			case nil:
				return false, nil
			case string:
				return current == expected, nil
			case []any:
				arr, err := r.needArray("in_regime", expected)
				if err != nil {
					return nil, err
				}
				for _, e := range arr {
					if s, ok := asString(e); ok && s == current {
						return true, nil
					}
				}
				return false, nil
			}
			return nil, typeMismatch("in_regime", "string or array", args[1])
		},
	})

	r.register(&Func{
		Name: "tp_hit", Category: CategoryDomain,
		Description: "true when price has reached the take-profit for the given direction ('long' or 'short')",
		MinArgs:     3, MaxArgs: 3,
		Call: func(args []any) (any, error) {
			if args[0] == nil || args[1] == nil || args[2] == nil {
				return false, nil
			}
			price, err := needNumber("tp_hit", args[0])
			if err != nil {
				return nil, err
			}
			tp, err := needNumber("tp_hit", args[1])
			if err != nil {
				return nil, err
			}
			dir, err := needString("tp_hit", args[2])
			if err != nil {
				return nil, err
			}
			switch dir {
			case "long":
				return price >= tp, nil
			case "short":
				return price <= tp, nil
			}
			return false, nil
		},
	})

	// Trade-state helpers read the trade object supplied under bot.trade:
	// {open: bool, direction: 'long'|'short', ...}. A null or malformed
	// trade object reads as no open trade.
	tradeBool := func(name, desc string, test func(trade map[string]any) bool) {
		r.register(&Func{
			Name: name, Category: CategoryDomain, Description: desc,
			MinArgs: 1, MaxArgs: 1,
			Call: func(args []any) (any, error) {
				trade, ok := asObject(args[0])
				if !ok {
					return false, nil
				}
				return test(trade), nil
			},
		})
	}

	tradeBool("is_trade_open", "true when the trade object reports an open position", func(trade map[string]any) bool {
		open, ok := trade["open"].(bool)
		return ok && open
	})
	tradeBool("is_long", "true when an open trade is long", func(trade map[string]any) bool {
		open, ok := trade["open"].(bool)
		if !ok || !open {
			return false
		}
		dir, _ := asString(trade["direction"])
		return dir == "long"
	})
	tradeBool("is_short", "true when an open trade is short", func(trade map[string]any) bool {
		open, ok := trade["open"].(bool)
		if !ok || !open {
			return false
		}
		dir, _ := asString(trade["direction"])
		return dir == "short"
	})
}
