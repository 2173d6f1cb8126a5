package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

func parseFilter(t *testing.T, raw string) query.Filter {
	t.Helper()
	f, err := query.ParseFilter(raw)
	require.NoError(t, err)
	return f
}

func TestTranslator_FilterMergesConditionsOnSameField(t *testing.T) {
	tr := newTranslator(nil)
	got := tr.filter(parseFilter(t, `{"age": {"$gte": 18, "$lt": 65}, "name": "Ada"}`))

	want := bson.D{
		{Key: "age", Value: bson.D{
			{Key: "$gte", Value: float64(18)},
			{Key: "$lt", Value: float64(65)},
		}},
		{Key: "name", Value: bson.D{{Key: "$eq", Value: "Ada"}}},
	}
	assert.Equal(t, want, got)
}

func TestTranslator_FilterLogicalOperators(t *testing.T) {
	tr := newTranslator(nil)
	got := tr.filter(parseFilter(t, `{"$or": [{"completed": true}, {"name": "x"}]}`))

	require.Len(t, got, 1)
	assert.Equal(t, "$or", got[0].Key)
	branches, ok := got[0].Value.(bson.A)
	require.True(t, ok)
	assert.Len(t, branches, 2)
	assert.Equal(t, bson.D{{Key: "completed", Value: bson.D{{Key: "$eq", Value: true}}}}, branches[0])
}

func TestTranslator_IdentifiersBecomeObjectIDs(t *testing.T) {
	tr := newTranslator(nil)
	oid := primitive.NewObjectID()

	t.Run("equality", func(t *testing.T) {
		got := tr.filter(parseFilter(t, `{"_id": "`+oid.Hex()+`"}`))
		assert.Equal(t, bson.D{{Key: "_id", Value: bson.D{{Key: "$eq", Value: oid}}}}, got)
	})

	t.Run("in list", func(t *testing.T) {
		got := tr.filter(parseFilter(t, `{"_id": {"$in": ["`+oid.Hex()+`", "not-hex"]}}`))
		ops := got[0].Value.(bson.D)
		assert.Equal(t, bson.A{oid, "not-hex"}, ops[0].Value)
	})

	t.Run("exists untouched", func(t *testing.T) {
		got := tr.filter(parseFilter(t, `{"_id": {"$exists": true}}`))
		ops := got[0].Value.(bson.D)
		assert.Equal(t, true, ops[0].Value)
	})
}

func TestTranslator_TimeFields(t *testing.T) {
	tr := newTranslator([]string{"deadline"})

	got := tr.filter(parseFilter(t, `{"deadline": {"$lt": "2024-05-01T12:00:00Z"}, "name": "2024-05-01T12:00:00Z"}`))
	deadline := got[0].Value.(bson.D)[0].Value
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), deadline)

	// Non-time fields keep their text.
	name := got[1].Value.(bson.D)[0].Value
	assert.Equal(t, "2024-05-01T12:00:00Z", name)
}

func TestTranslator_ProjectionAndSort(t *testing.T) {
	tr := newTranslator(nil)

	assert.Nil(t, tr.projection(query.Projection{}))
	assert.Equal(t,
		bson.D{{Key: "email", Value: 1}, {Key: "name", Value: 1}, {Key: "_id", Value: 0}},
		tr.projection(query.Projection{Fields: []string{"email", "name"}, ExcludeID: true}),
	)
	assert.Equal(t,
		bson.D{{Key: "pendingTasks", Value: 0}},
		tr.projection(query.Projection{Fields: []string{"pendingTasks"}, Exclude: true}),
	)

	assert.Nil(t, tr.sort(nil))
	assert.Equal(t,
		bson.D{{Key: "name", Value: 1}, {Key: "dateCreated", Value: -1}},
		tr.sort(query.Sort{{Field: "name"}, {Field: "dateCreated", Descending: true}}),
	)
}

func TestTranslator_RoundTripDocument(t *testing.T) {
	tr := newTranslator([]string{"deadline", "dateCreated"})
	oid := primitive.NewObjectID()

	doc := store.Document{
		"_id":         oid.Hex(),
		"name":        "write report",
		"deadline":    "2024-05-01T12:00:00.000Z",
		"dateCreated": "2024-04-01T08:30:00.000Z",
		"completed":   false,
	}

	m := tr.toBSON(doc)
	assert.Equal(t, oid, m["_id"])
	assert.IsType(t, time.Time{}, m["deadline"])

	assert.Equal(t, doc, tr.fromBSON(m))
}

func TestPlain(t *testing.T) {
	oid := primitive.NewObjectID()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"object id", oid, oid.Hex()},
		{"datetime", primitive.NewDateTimeFromTime(ts), "2024-01-02T03:04:05.006Z"},
		{"time", ts, "2024-01-02T03:04:05.006Z"},
		{"int32", int32(7), float64(7)},
		{"int64", int64(7), float64(7)},
		{"string", "x", "x"},
		{"array", primitive.A{int32(1), "a"}, []any{float64(1), "a"}},
		{"embedded", primitive.M{"n": int64(2)}, map[string]any{"n": float64(2)}},
		{"ordered", primitive.D{{Key: "n", Value: int32(3)}}, map[string]any{"n": float64(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, plain(tt.in))
		})
	}
}
