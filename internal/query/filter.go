package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Op is a comparison or logical operator in a filter expression.
type Op string

const (
	OpEq     Op = "$eq"
	OpNe     Op = "$ne"
	OpGt     Op = "$gt"
	OpGte    Op = "$gte"
	OpLt     Op = "$lt"
	OpLte    Op = "$lte"
	OpIn     Op = "$in"
	OpNin    Op = "$nin"
	OpExists Op = "$exists"

	OpAnd Op = "$and"
	OpOr  Op = "$or"
	OpNor Op = "$nor"
)

func (o Op) isLogical() bool {
	return o == OpAnd || o == OpOr || o == OpNor
}

func parseComparison(s string) (Op, bool) {
	switch op := Op(s); op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNin, OpExists:
		return op, true
	}
	return "", false
}

// Condition is a single predicate. Field conditions compare the value at
// Field using Op; logical conditions (Field empty) combine Branches.
type Condition struct {
	Field    string
	Op       Op
	Value    any
	Branches []Filter
}

// Filter is a conjunction of conditions. The empty filter matches every
// document.
type Filter []Condition

// ParseFilter decodes a where expression such as
// {"completed": false, "deadline": {"$lt": "2024-01-01T00:00:00Z"}}.
func ParseFilter(raw string) (Filter, error) {
	var expr any
	if err := json.Unmarshal([]byte(raw), &expr); err != nil {
		return nil, malformed("where", "invalid JSON: %v", err)
	}
	obj, ok := expr.(map[string]any)
	if !ok {
		return nil, malformed("where", "expected an object")
	}
	return buildFilter(obj)
}

func buildFilter(obj map[string]any) (Filter, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := make(Filter, 0, len(keys))
	for _, key := range keys {
		value := obj[key]
		if strings.HasPrefix(key, "$") {
			cond, err := buildLogical(Op(key), value)
			if err != nil {
				return nil, err
			}
			f = append(f, cond)
			continue
		}
		conds, err := buildField(key, value)
		if err != nil {
			return nil, err
		}
		f = append(f, conds...)
	}
	return f, nil
}

func buildLogical(op Op, value any) (Condition, error) {
	if !op.isLogical() {
		return Condition{}, malformed("where", "unknown operator %q", string(op))
	}
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return Condition{}, malformed("where", "%s expects a non-empty array", op)
	}
	branches := make([]Filter, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return Condition{}, malformed("where", "%s expects an array of objects", op)
		}
		sub, err := buildFilter(obj)
		if err != nil {
			return Condition{}, err
		}
		branches = append(branches, sub)
	}
	return Condition{Op: op, Branches: branches}, nil
}

func buildField(field string, value any) ([]Condition, error) {
	obj, ok := value.(map[string]any)
	if !ok || !hasOperatorKeys(obj) {
		return []Condition{{Field: field, Op: OpEq, Value: value}}, nil
	}

	ops := make([]string, 0, len(obj))
	for k := range obj {
		if !strings.HasPrefix(k, "$") {
			return nil, malformed("where", "field %q mixes operators and plain keys", field)
		}
		ops = append(ops, k)
	}
	sort.Strings(ops)

	conds := make([]Condition, 0, len(ops))
	for _, name := range ops {
		op, known := parseComparison(name)
		if !known {
			return nil, malformed("where", "unknown operator %q on field %q", name, field)
		}
		operand := obj[name]
		switch op {
		case OpIn, OpNin:
			if _, isArray := operand.([]any); !isArray {
				return nil, malformed("where", "%s on field %q expects an array", op, field)
			}
		case OpExists:
			b, err := truthy(operand)
			if err != nil {
				return nil, malformed("where", "$exists on field %q: %v", field, err)
			}
			operand = b
		}
		conds = append(conds, Condition{Field: field, Op: op, Value: operand})
	}
	return conds, nil
}

func hasOperatorKeys(obj map[string]any) bool {
	for k := range obj {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// truthy reads flag-like operands: booleans, or numbers where non-zero is true.
func truthy(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	}
	return false, fmt.Errorf("expected boolean or number, got %T", v)
}

// Match reports whether doc satisfies every condition in the filter.
func (f Filter) Match(doc map[string]any) bool {
	for _, c := range f {
		if !c.match(doc) {
			return false
		}
	}
	return true
}

func (c Condition) match(doc map[string]any) bool {
	switch c.Op {
	case OpAnd:
		for _, b := range c.Branches {
			if !b.Match(doc) {
				return false
			}
		}
		return true
	case OpOr:
		for _, b := range c.Branches {
			if b.Match(doc) {
				return true
			}
		}
		return false
	case OpNor:
		for _, b := range c.Branches {
			if b.Match(doc) {
				return false
			}
		}
		return true
	}

	value, exists := Lookup(doc, c.Field)
	switch c.Op {
	case OpExists:
		return exists == c.Value.(bool)
	case OpEq:
		return matchesEqual(value, c.Value)
	case OpNe:
		return !matchesEqual(value, c.Value)
	case OpIn:
		return matchesAny(value, c.Value.([]any))
	case OpNin:
		return !matchesAny(value, c.Value.([]any))
	}
	if !exists {
		return false
	}
	return matchesRange(value, c.Op, c.Value)
}

// matchesEqual follows document-store semantics: a scalar operand matches
// an array field when any element equals it.
func matchesEqual(value, operand any) bool {
	if equalValues(value, operand) {
		return true
	}
	if kindOf(value) == kindArray && kindOf(operand) != kindArray {
		for _, e := range asSlice(value) {
			if equalValues(e, operand) {
				return true
			}
		}
	}
	return false
}

func matchesAny(value any, operands []any) bool {
	for _, o := range operands {
		if matchesEqual(value, o) {
			return true
		}
	}
	return false
}

func matchesRange(value any, op Op, operand any) bool {
	if kindOf(value) == kindArray && kindOf(operand) != kindArray {
		for _, e := range asSlice(value) {
			if matchesRange(e, op, operand) {
				return true
			}
		}
		return false
	}
	c, ok := compare(value, operand)
	if !ok {
		return false
	}
	switch op {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

// Lookup resolves a dotted field path inside doc.
func Lookup(doc map[string]any, path string) (any, bool) {
	var current any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
