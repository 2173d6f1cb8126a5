package records

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/taskhub/internal/store"
)

// Input is a decoded request body. JSON null is treated like an absent key.
type Input map[string]any

func (in Input) get(key string) (any, bool) {
	v, ok := in[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether key is present and not null.
func (in Input) Has(key string) bool {
	_, ok := in.get(key)
	return ok
}

func (in Input) stringField(key, fallback string) (string, error) {
	v, ok := in.get(key)
	if !ok {
		return fallback, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid(fmt.Sprintf("Validation Error: %s must be a string", key))
	}
	return s, nil
}

func (in Input) boolField(key string, fallback bool) (bool, error) {
	v, ok := in.get(key)
	if !ok {
		return fallback, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		// Form bodies carry booleans as text.
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed, nil
		}
	}
	return false, invalid(fmt.Sprintf("Validation Error: %s must be a boolean", key))
}

func (in Input) listField(key string) ([]string, error) {
	v, ok := in.get(key)
	if !ok {
		return []string{}, nil
	}
	switch items := v.(type) {
	case string:
		return []string{items}, nil
	case []string:
		return append([]string{}, items...), nil
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, invalid(fmt.Sprintf("Validation Error: %s must be a list of identifiers", key))
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, invalid(fmt.Sprintf("Validation Error: %s must be a list of identifiers", key))
}

// time reads a timestamp given as text or as milliseconds since the epoch.
func (in Input) timeField(key string) (time.Time, error) {
	v, _ := in.get(key)
	switch t := v.(type) {
	case string:
		if ts, ok := parseTime(t); ok {
			return ts, nil
		}
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return time.UnixMilli(int64(t)).UTC(), nil
		}
	}
	return time.Time{}, invalid(fmt.Sprintf("Validation Error: %s must be a valid date", key))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(store.TimeLayout)
}
