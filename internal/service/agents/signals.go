package agents

// Context signal extraction helpers. Submission context arrives as
// loosely typed JSON, so numeric signals may decode as float64.

func boolSignal(ctx map[string]interface{}, key string) bool {
	if ctx == nil {
		return false
	}
	v, ok := ctx[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
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

func maxScore(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// confidenceFor scales confidence with the number of corroborating
// findings, capped below certainty.
func confidenceFor(findings int) float64 {
	c := 0.5 + 0.1*float64(findings)
	if c > 0.95 {
		c = 0.95
	}
	return c
}
