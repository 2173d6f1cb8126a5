package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

// translator converts between typed queries/documents and BSON for one
// collection. timeFields hold timestamps that are text on the wire and
// BSON dates in the database.
type translator struct {
	timeFields map[string]bool
}

func newTranslator(fields []string) translator {
	t := translator{timeFields: make(map[string]bool, len(fields))}
	for _, f := range fields {
		t.timeFields[f] = true
	}
	return t
}

// filter maps a query.Filter onto a BSON filter document. Conditions on the
// same field are merged into one operator document.
func (t translator) filter(f query.Filter) bson.D {
	out := bson.D{}
	index := make(map[string]int)
	for _, c := range f {
		if c.Field == "" {
			branches := make(bson.A, 0, len(c.Branches))
			for _, b := range c.Branches {
				branches = append(branches, t.filter(b))
			}
			out = append(out, bson.E{Key: string(c.Op), Value: branches})
			continue
		}

		op := bson.E{Key: string(c.Op), Value: t.operand(c.Field, c.Op, c.Value)}
		if i, ok := index[c.Field]; ok {
			ops := out[i].Value.(bson.D)
			out[i].Value = append(ops, op)
			continue
		}
		index[c.Field] = len(out)
		out = append(out, bson.E{Key: c.Field, Value: bson.D{op}})
	}
	return out
}

func (t translator) operand(field string, op query.Op, v any) any {
	switch op {
	case query.OpExists:
		return v
	case query.OpIn, query.OpNin:
		items, _ := v.([]any)
		out := make(bson.A, len(items))
		for i, item := range items {
			out[i] = t.value(field, item)
		}
		return out
	}
	return t.value(field, v)
}

// value converts one wire value to its stored representation.
func (t translator) value(field string, v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if field == store.IDField {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
		return s
	}
	if t.timeFields[field] {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts.UTC()
		}
	}
	return v
}

func (t translator) projection(p query.Projection) bson.D {
	if p.IsZero() {
		return nil
	}
	out := bson.D{}
	flag := 1
	if p.Exclude {
		flag = 0
	}
	for _, f := range p.Fields {
		out = append(out, bson.E{Key: f, Value: flag})
	}
	if p.ExcludeID {
		out = append(out, bson.E{Key: store.IDField, Value: 0})
	}
	return out
}

func (t translator) sort(s query.Sort) bson.D {
	if len(s) == 0 {
		return nil
	}
	out := make(bson.D, 0, len(s))
	for _, k := range s {
		dir := 1
		if k.Descending {
			dir = -1
		}
		out = append(out, bson.E{Key: k.Field, Value: dir})
	}
	return out
}

// toBSON prepares a document for writing.
func (t translator) toBSON(doc store.Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = t.value(k, v)
	}
	return out
}

// fromBSON converts a stored document back to wire values.
func (t translator) fromBSON(m bson.M) store.Document {
	out := make(store.Document, len(m))
	for k, v := range m {
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(store.TimeLayout)
	case time.Time:
		return x.UTC().Format(store.TimeLayout)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case primitive.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plain(e)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = plain(e.Value)
		}
		return out
	}
	return v
}
