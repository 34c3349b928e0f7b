package entity

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is a semi-structured session or placement record decoded from JSON.
// Upstream payloads vary in which fields they carry, so lookups accept
// several candidate names and coerce loosely.
type Record map[string]interface{}

// AsRecord returns v as a Record when it is a JSON object.
func AsRecord(v interface{}) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, m != nil
	case map[string]interface{}:
		return Record(m), m != nil
	default:
		return nil, false
	}
}

// Raw returns the value stored under key.
func (r Record) Raw(key string) interface{} {
	return r[key]
}

// String returns the first present, non-empty value among keys rendered as a
// string. Zero numbers and false count as absent.
func (r Record) String(keys ...string) string {
	for _, key := range keys {
		if s, ok := truthyString(r[key]); ok {
			return s
		}
	}
	return ""
}

// Number coerces the value under key to a float64. Missing, non-numeric and
// NaN values yield 0.
func (r Record) Number(key string) float64 {
	return ToNumber(r[key])
}

// Array returns the first value among keys that is a JSON array.
func (r Record) Array(keys ...string) ([]interface{}, bool) {
	for _, key := range keys {
		if arr, ok := r[key].([]interface{}); ok {
			return arr, true
		}
	}
	return nil, false
}

// Strings returns the value under key as a string slice, skipping entries
// that are not non-empty strings.
func (r Record) Strings(key string) []string {
	arr, ok := r[key].([]interface{})
	if !ok {
		if ss, ok := r[key].([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := truthyString(v); ok {
			out = append(out, s)
		}
	}
	return out
}

// ToNumber converts a decoded JSON value to a float64, treating anything
// that is not a finite number as 0.
func ToNumber(v interface{}) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func truthyString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, s != ""
	case float64:
		if s == 0 || math.IsNaN(s) {
			return "", false
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), s != 0
	case int64:
		return strconv.FormatInt(s, 10), s != 0
	case uint64:
		return strconv.FormatUint(s, 10), s != 0
	case json.Number:
		return s.String(), s != "" && s != "0"
	case bool:
		return "true", s
	default:
		return "", false
	}
}
