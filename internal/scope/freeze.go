package scope

import "encoding/json"

// freezeMap deep-copies a snapshot at build time so later provider
// writes are never observed mid-evaluation. Numbers are widened to
// float64 on the way in, matching the JSON and jq number model.
func freezeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = freezeAny(v)
	}
	return cp
}

func freezeAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return freezeMap(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = freezeAny(item)
		}
		return cp
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case uint:
		return float64(val)
	case uint64:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil
		}
		return f
	default:
		// Strings, bools, float64 and nil are value types.
		return v
	}
}
