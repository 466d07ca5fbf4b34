package tool

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StringParam returns params[name] as a string. Numbers are formatted without
// a trailing fraction so a customer id sent as 1001 reads "1001".
func StringParam(params map[string]any, name string) string {
	v, ok := params[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := asString(v); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// coerce converts declared parameters between numbers and strings in place.
func coerce(def Definition, args map[string]any) {
	for _, p := range def.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			continue
		}
		switch p.Type {
		case "string":
			if s, ok := asString(v); ok {
				args[p.Name] = strings.TrimSpace(s)
			}
		case "number", "integer":
			if f, ok := asNumber(v); ok {
				args[p.Name] = f
			}
		}
	}
}

func asString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

func asNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "TL"))
		f, err := strconv.ParseFloat(strings.ReplaceAll(cleaned, ",", "."), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
