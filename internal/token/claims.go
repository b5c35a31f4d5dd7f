package token

import (
	"encoding/json"
	"math"
)

// Claims is a decoded token payload. Numbers decode as json.Number.
type Claims map[string]any

func (c Claims) GetString(key string) (string, bool) {
	value, ok := c[key].(string)
	return value, ok
}

// GetInt64 reads an integral number claim regardless of how it was produced:
// decoded (json.Number) or set in-process (int, int64, float64).
func (c Claims) GetInt64(key string) (int64, bool) {
	switch value := c[key].(type) {
	case json.Number:
		n, err := value.Int64()
		return n, err == nil
	case int64:
		return value, true
	case int:
		return int64(value), true
	case float64:
		if value != math.Trunc(value) || math.IsInf(value, 0) {
			return 0, false
		}
		return int64(value), true
	default:
		return 0, false
	}
}
