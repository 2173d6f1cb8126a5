package query

import (
	"reflect"
	"time"
)

// kind ranks values the way document stores order mixed types.
type kind int

const (
	kindNull kind = iota
	kindNumber
	kindString
	kindObject
	kindArray
	kindBool
)

func kindOf(v any) kind {
	switch v.(type) {
	case nil:
		return kindNull
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return kindNumber
	case string:
		return kindString
	case map[string]any:
		return kindObject
	case []any, []string:
		return kindArray
	case bool:
		return kindBool
	default:
		return kindObject
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}

// parseInstant accepts the timestamp encodings records use on the wire.
func parseInstant(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// compare orders two scalar values. ok is false when the values are of
// different kinds and therefore not comparable by range operators.
func compare(a, b any) (result int, ok bool) {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return 0, false
	}
	switch ka {
	case kindNull:
		return 0, true
	case kindNumber:
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	case kindString:
		sa, sb := a.(string), b.(string)
		if ta, okA := parseInstant(sa); okA {
			if tb, okB := parseInstant(sb); okB {
				return ta.Compare(tb), true
			}
		}
		switch {
		case sa < sb:
			return -1, true
		case sa > sb:
			return 1, true
		}
		return 0, true
	case kindBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0, true
		case !ba:
			return -1, true
		}
		return 1, true
	}
	if equalValues(a, b) {
		return 0, true
	}
	return 0, false
}

// order is a total order used by sorting: values of different kinds are
// ordered by kind rank.
func order(a, b any) int {
	if c, ok := compare(a, b); ok {
		return c
	}
	ka, kb := kindOf(a), kindOf(b)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	}
	return 0
}

func equalValues(a, b any) bool {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case kindNumber, kindString, kindBool, kindNull:
		c, ok := compare(a, b)
		return ok && c == 0
	case kindArray:
		xa, xb := asSlice(a), asSlice(b)
		if len(xa) != len(xb) {
			return false
		}
		for i := range xa {
			if !equalValues(xa[i], xb[i]) {
				return false
			}
		}
		return true
	}
	ma, okA := a.(map[string]any)
	mb, okB := b.(map[string]any)
	if okA && okB {
		if len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, exists := mb[k]
			if !exists || !equalValues(va, vb) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	}
	return nil
}
