package jsonstore

// values decoded from JSON are maps, slices and scalars. we copy maps and
// slices so that callers can't change the store behind our back.
// other types are shared as-is.

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		res := make([]any, len(v))
		for i, el := range v {
			res[i] = cloneValue(el)
		}
		return res
	}
	return v
}

func cloneMap(m map[string]any) map[string]any {
	res := make(map[string]any, len(m))
	for k, v := range m {
		res[k] = cloneValue(v)
	}
	return res
}

func shallowCopy(m map[string]any) map[string]any {
	res := make(map[string]any, len(m)+1)
	for k, v := range m {
		res[k] = v
	}
	return res
}
