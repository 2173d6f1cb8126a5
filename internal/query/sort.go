package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SortKey orders documents by one field.
type SortKey struct {
	Field      string
	Descending bool
}

// Sort is an ordered list of sort keys; earlier keys take precedence.
type Sort []SortKey

// ParseSort decodes a sort expression such as {"deadline": 1, "name": -1}.
// Key order in the text is significant, so the object is read token by token.
func ParseSort(raw string) (Sort, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("sort", "invalid JSON: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, malformed("sort", "expected an object")
	}

	var s Sort
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("sort", "invalid JSON: %v", err)
		}
		field, ok := tok.(string)
		if !ok {
			return nil, malformed("sort", "expected a field name")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, malformed("sort", "field %q: %v", field, err)
		}
		desc, err := parseDirection(raw)
		if err != nil {
			return nil, malformed("sort", "field %q: %v", field, err)
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		s = append(s, SortKey{Field: field, Descending: desc})
	}
	if _, err := dec.Token(); err != nil {
		return nil, malformed("sort", "invalid JSON: %v", err)
	}
	if _, err := dec.Token(); err == nil {
		return nil, malformed("sort", "trailing data after object")
	}
	return s, nil
}

func parseDirection(raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		switch n.String() {
		case "1":
			return false, nil
		case "-1":
			return true, nil
		}
		return false, fmt.Errorf("direction must be 1 or -1, got %s", n)
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		switch strings.ToLower(name) {
		case "asc", "ascending":
			return false, nil
		case "desc", "descending":
			return true, nil
		}
		return false, fmt.Errorf("unknown direction %q", name)
	}
	return false, fmt.Errorf("direction must be a number or string")
}

// Less reports whether a sorts before b.
func (s Sort) Less(a, b map[string]any) bool {
	for _, key := range s {
		va, _ := Lookup(a, key.Field)
		vb, _ := Lookup(b, key.Field)
		c := order(va, vb)
		if c == 0 {
			continue
		}
		if key.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}
