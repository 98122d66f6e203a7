package project

// TokenUsage accumulates generation cost per category ("analysis", "bibles",
// "storyboard", "images", "clips", "review"). Values are the loosely-typed
// usage payloads reported by the generation services, so merge semantics are
// structural: numeric fields add, nested objects deep-merge, everything else
// is overwritten by the newer value.
type TokenUsage map[string]any

// Clone returns a deep copy of the usage map.
func (u TokenUsage) Clone() TokenUsage {
	if u == nil {
		return nil
	}
	return TokenUsage(cloneValue(map[string]any(u)).(map[string]any))
}

// Merge returns a new TokenUsage with delta accumulated into a copy of u.
// Counters never go backwards: numbers add, maps recurse, other values
// overwrite.
func (u TokenUsage) Merge(delta TokenUsage) TokenUsage {
	merged := mergeMaps(map[string]any(u), map[string]any(delta))
	return TokenUsage(merged)
}

func mergeMaps(base, delta map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(delta))
	for key, value := range base {
		out[key] = cloneValue(value)
	}
	for key, value := range delta {
		existing, ok := out[key]
		if !ok {
			out[key] = cloneValue(value)
			continue
		}
		out[key] = mergeValues(existing, value)
	}
	return out
}

func mergeValues(base, delta any) any {
	if baseNum, ok := asFloat(base); ok {
		if deltaNum, ok := asFloat(delta); ok {
			return baseNum + deltaNum
		}
	}
	if baseMap, ok := asMap(base); ok {
		if deltaMap, ok := asMap(delta); ok {
			return mergeMaps(baseMap, deltaMap)
		}
	}
	return cloneValue(delta)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case TokenUsage:
		return map[string]any(v), true
	default:
		return nil, false
	}
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = cloneValue(inner)
		}
		return out
	case TokenUsage:
		return cloneValue(map[string]any(v))
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
