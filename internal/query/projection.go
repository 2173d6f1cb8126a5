package query

import (
	"encoding/json"
	"sort"
)

// IDField is the identifier key of every document.
const IDField = "_id"

// Projection selects which fields of a document are returned.
type Projection struct {
	// Fields lists the projected fields, sorted.
	Fields []string
	// Exclude reports whether Fields are dropped rather than kept.
	Exclude bool
	// ExcludeID drops the identifier from an inclusion projection.
	ExcludeID bool
}

// IsZero reports whether the projection returns documents unchanged.
func (p Projection) IsZero() bool {
	return len(p.Fields) == 0 && !p.ExcludeID
}

// ParseProjection decodes a select expression such as {"name": 1, "email": 1}.
func ParseProjection(raw string) (Projection, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return Projection{}, malformed("select", "expected an object of field flags: %v", err)
	}

	var p Projection
	var include, exclude []string
	for field, flag := range obj {
		keep, err := truthy(flag)
		if err != nil {
			return Projection{}, malformed("select", "field %q: %v", field, err)
		}
		if field == IDField {
			p.ExcludeID = !keep
			if keep {
				include = append(include, IDField)
			}
			continue
		}
		if keep {
			include = append(include, field)
		} else {
			exclude = append(exclude, field)
		}
	}

	switch {
	case len(include) > 0 && len(exclude) > 0:
		return Projection{}, malformed("select", "cannot mix inclusion and exclusion")
	case len(exclude) > 0:
		p.Exclude = true
		p.Fields = exclude
		if p.ExcludeID {
			p.Fields = append(p.Fields, IDField)
			p.ExcludeID = false
		}
	default:
		p.Fields = include
		if len(include) == 0 && p.ExcludeID {
			// {"_id": 0} alone behaves as an exclusion of the identifier.
			p.Exclude = true
			p.Fields = []string{IDField}
			p.ExcludeID = false
		}
	}
	sort.Strings(p.Fields)
	return p, nil
}

// Apply returns a copy of doc restricted by the projection.
func (p Projection) Apply(doc map[string]any) map[string]any {
	if p.IsZero() {
		return doc
	}
	if p.Exclude {
		out := make(map[string]any, len(doc))
		for k, v := range doc {
			out[k] = v
		}
		for _, f := range p.Fields {
			delete(out, f)
		}
		return out
	}

	out := make(map[string]any, len(p.Fields)+1)
	if !p.ExcludeID {
		if id, ok := doc[IDField]; ok {
			out[IDField] = id
		}
	}
	for _, f := range p.Fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}
