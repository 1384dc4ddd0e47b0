package orchestration

// Context signal extraction. Submission context arrives as loosely
// typed JSON, so numeric signals may decode as float64.

func boolSignal(ctx map[string]interface{}, key string) bool {
	if ctx == nil {
		return false
	}
	b, ok := ctx[key].(bool)
	return ok && b
}

func intSignal(ctx map[string]interface{}, key string) int {
	if ctx == nil {
		return 0
	}
	switch v := ctx[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func stringSlice(ctx map[string]interface{}, key string) []string {
	if ctx == nil {
		return nil
	}
	switch v := ctx[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
