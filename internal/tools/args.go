package tools

import (
	"math"
	"strconv"
	"strings"
)

func readString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if value, ok := args[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// readLimit accepts integers, whole floats and numeric strings. Anything
// else, including zero and negatives, means "no cap" and yields 0.
func readLimit(args map[string]any) int {
	if args == nil {
		return 0
	}
	var limit int
	switch typed := args["limit"].(type) {
	case int:
		limit = typed
	case int64:
		limit = int(typed)
	case float64:
		if typed != math.Trunc(typed) || math.IsInf(typed, 0) || math.IsNaN(typed) {
			return 0
		}
		limit = int(typed)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return 0
		}
		limit = parsed
	default:
		return 0
	}
	if limit < 0 {
		return 0
	}
	return limit
}

func readNumber(args map[string]any, key string) (float64, bool) {
	if args == nil {
		return 0, false
	}
	switch typed := args[key].(type) {
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float64:
		return typed, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// readStringList accepts a JSON array of strings or a single string.
func readStringList(args map[string]any, key string) []string {
	if args == nil {
		return nil
	}
	switch typed := args[key].(type) {
	case string:
		if trimmed := strings.TrimSpace(typed); trimmed != "" {
			return []string{trimmed}
		}
	case []string:
		return append([]string{}, typed...)
	case []any:
		results := make([]string, 0, len(typed))
		for _, item := range typed {
			text, ok := item.(string)
			if !ok {
				continue
			}
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				results = append(results, trimmed)
			}
		}
		return results
	}
	return nil
}
