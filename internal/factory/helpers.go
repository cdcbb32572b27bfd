package factory

import "strings"

// getString reads a string field from an input data map, tolerating absence.
func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key]; ok {
		if s, isStr := v.(string); isStr {
			return s
		}
	}
	return ""
}

// getFloat reads a float64 field, tolerating both float64 and int input
// (JSON-decoded payloads and hand-built test maps use either).
func getFloat(data map[string]interface{}, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// getStringSlice reads a []string field, accepting []interface{} (the shape
// JSON decoding produces) or []string (the shape tests build directly).
func getStringSlice(data map[string]interface{}, key string) []string {
	switch v := data[key].(type) {
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
	}
	return nil
}

// getMap reads a nested map field.
func getMap(data map[string]interface{}, key string) map[string]interface{} {
	if m, ok := data[key].(map[string]interface{}); ok {
		return m
	}
	return nil
}

func nonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}
