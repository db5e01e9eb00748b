package config

// Merge deep-merges override onto base and returns a new map.
//
// Maps on both sides merge recursively. Any other value in override,
// including slices, replaces the value in base. Neither argument is modified
// and the result shares no mutable structure with them.
func Merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = Copy(v)
	}
	for k, v := range override {
		ov, isMap := v.(map[string]any)
		bv, baseIsMap := out[k].(map[string]any)
		if isMap && baseIsMap {
			out[k] = Merge(bv, ov)
			continue
		}
		out[k] = Copy(v)
	}
	return out
}

// Copy returns a deep copy of maps and slices. Scalars are returned as is.
func Copy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = Copy(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Copy(e)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, e := range val {
			out[k] = e
		}
		return out
	default:
		return v
	}
}

// CopyMap deep-copies a map. A nil map yields an empty map.
func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return Copy(m).(map[string]any)
}
