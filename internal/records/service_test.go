package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskhub/internal/events"
	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
	"github.com/felixgeelhaar/taskhub/internal/store/memory"
)

type fixture struct {
	store  *memory.Store
	users  *Service
	tasks  *Service
	events *recordingPublisher
}

type recordingPublisher struct {
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ []byte) error {
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	pub := &recordingPublisher{}
	recorder := events.NewRecorder(pub, nil)
	return &fixture{
		store:  s,
		users:  NewService(ServiceConfig{Schema: NewUserSchema(s), Store: s, Events: recorder}),
		tasks:  NewService(ServiceConfig{Schema: NewTaskSchema(), Store: s, Events: recorder}),
		events: pub,
	}
}

func count(t *testing.T, s store.Store, collection string) int64 {
	t.Helper()
	n, err := s.Count(context.Background(), collection, query.Query{})
	require.NoError(t, err)
	return n
}

func assertValidation(t *testing.T, err error, kind Kind, message string) {
	t.Helper()
	ve, ok := IsValidation(err)
	require.True(t, ok, "expected ValidationError, got %v", err)
	assert.Equal(t, kind, ve.Kind)
	assert.Equal(t, message, ve.Message)
}

func TestUsers_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		input   Input
		message string
	}{
		{"both missing", Input{}, "Validation Error: A name is required! An email is required!"},
		{"email missing", Input{"name": "Ada"}, "An email is required!"},
		{"name missing", Input{"email": "ada@example.com"}, "Validation Error: A name is required!"},
		{"null counts as missing", Input{"name": "Ada", "email": nil}, "An email is required!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.users.Create(context.Background(), tt.input)
			assertValidation(t, err, Invalid, tt.message)
			assert.Zero(t, count(t, f.store, UserCollection))
		})
	}
}

func TestUsers_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, Input{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)

	_, err = f.users.Create(ctx, Input{"name": "Other", "email": "ada@example.com"})
	assertValidation(t, err, Conflict, "This email already exists")
	assert.Equal(t, int64(1), count(t, f.store, UserCollection))

	// Exact match only.
	_, err = f.users.Create(ctx, Input{"name": "Upper", "email": "ADA@example.com"})
	assert.NoError(t, err)
}

func TestUsers_UpdateKeepsOwnEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.users.Create(ctx, Input{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)

	updated, err := f.users.Update(ctx, created.ID(), Input{"name": "Ada L.", "email": "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated["name"])
	assert.Equal(t, created.ID(), updated.ID())
	assert.Equal(t, created[DateCreatedField], updated[DateCreatedField])
}

func TestUsers_UpdateToTakenEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, Input{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)
	grace, err := f.users.Create(ctx, Input{"name": "Grace", "email": "grace@example.com"})
	require.NoError(t, err)

	_, err = f.users.Update(ctx, grace.ID(), Input{"name": "Grace", "email": "ada@example.com"})
	assertValidation(t, err, Conflict, "This email already exists")

	found, err := f.users.Get(ctx, grace.ID())
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", found["email"])
}

func TestUsers_PendingTasksDefaultAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.users.Create(ctx, Input{"name": "Ada", "email": "ada@example.com", "pendingTasks": []any{"t1", "t2"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"t1", "t2"}, created["pendingTasks"])

	updated, err := f.users.Update(ctx, created.ID(), Input{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []any{}, updated["pendingTasks"])
}

func TestUsers_WrongTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, Input{"name": 42.0, "email": "ada@example.com"})
	assertValidation(t, err, Invalid, "Validation Error: name must be a string")

	_, err = f.users.Create(ctx, Input{"name": "Ada", "email": "ada@example.com", "pendingTasks": []any{1.0}})
	assertValidation(t, err, Invalid, "Validation Error: pendingTasks must be a list of identifiers")
}

func TestTasks_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		input   Input
		message string
	}{
		{"both missing", Input{"description": "x"}, "Validation Error: A name is required! A deadline is required! "},
		{"name missing", Input{"deadline": "2024-05-01T00:00:00Z"}, "Validation Error: A name is required! "},
		{"deadline missing", Input{"name": "ship"}, "A deadline is required! "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.tasks.Create(context.Background(), tt.input)
			assertValidation(t, err, Invalid, tt.message)
			assert.Zero(t, count(t, f.store, TaskCollection))
		})
	}
}

func TestTasks_Defaults(t *testing.T) {
	f := newFixture(t)

	created, err := f.tasks.Create(context.Background(), Input{"name": "ship", "deadline": "2024-05-01T12:00:00Z"})
	require.NoError(t, err)

	assert.Equal(t, false, created["completed"])
	assert.Equal(t, "unassigned", created["assignedUserName"])
	assert.Equal(t, "", created["assignedUser"])
	assert.Equal(t, "", created["description"])
	assert.Equal(t, "2024-05-01T12:00:00.000Z", created["deadline"])
	assert.NotEmpty(t, created[DateCreatedField])
}

func TestTasks_UpdateIsFullReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.tasks.Create(ctx, Input{
		"name":             "ship",
		"deadline":         "2024-05-01T12:00:00Z",
		"description":      "release 1.0",
		"completed":        true,
		"assignedUser":     "u1",
		"assignedUserName": "Ada",
	})
	require.NoError(t, err)

	updated, err := f.tasks.Update(ctx, created.ID(), Input{"name": "ship", "deadline": "2024-06-01T12:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "", updated["description"])
	assert.Equal(t, false, updated["completed"])
	assert.Equal(t, "", updated["assignedUser"])
	assert.Equal(t, "unassigned", updated["assignedUserName"])
	assert.Equal(t, created.ID(), updated.ID())
}

func TestTasks_DeadlineAndCompletedForms(t *testing.T) {
	tests := []struct {
		name      string
		input     Input
		deadline  string
		completed bool
	}{
		{"epoch millis", Input{"deadline": 1714564800000.0}, "2024-05-01T12:00:00.000Z", false},
		{"offset", Input{"deadline": "2024-05-01T14:00:00+02:00"}, "2024-05-01T12:00:00.000Z", false},
		{"date only", Input{"deadline": "2024-05-01"}, "2024-05-01T00:00:00.000Z", false},
		{"form millis", Input{"deadline": "1714564800000", "completed": "true"}, "2024-05-01T12:00:00.000Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.input["name"] = "ship"
			created, err := f.tasks.Create(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.deadline, created["deadline"])
			assert.Equal(t, tt.completed, created["completed"])
		})
	}
}

func TestTasks_InvalidValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Create(ctx, Input{"name": "ship", "deadline": "next tuesday"})
	assertValidation(t, err, Invalid, "Validation Error: deadline must be a valid date")

	_, err = f.tasks.Create(ctx, Input{"name": "ship", "deadline": "2024-05-01", "completed": "maybe"})
	assertValidation(t, err, Invalid, "Validation Error: completed must be a boolean")
}

func TestList_Count(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.tasks.Create(ctx, Input{"name": fmt.Sprintf("task %d", i), "deadline": "2024-05-01"})
		require.NoError(t, err)
	}

	res, err := f.tasks.List(ctx, url.Values{"count": {"1"}})
	require.NoError(t, err)
	assert.True(t, res.Counted)
	assert.Equal(t, int64(4), res.Count)
	assert.Nil(t, res.Records)

	res, err = f.tasks.List(ctx, url.Values{"count": {"true"}, "where": {`{"name": "task 1"}`}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)
}

func TestList_SkipLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 10; i++ {
		created, err := f.tasks.Create(ctx, Input{"name": fmt.Sprintf("task %d", i), "deadline": "2024-05-01"})
		require.NoError(t, err)
		ids = append(ids, created.ID())
	}

	res, err := f.tasks.List(ctx, url.Values{"skip": {"2"}, "limit": {"3"}})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	for i, doc := range res.Records {
		assert.Equal(t, ids[2+i], doc.ID())
	}

	res, err = f.tasks.List(ctx, url.Values{"skip": {"2"}, "limit": {"3"}, "sort": {`{"name": -1}`}})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "task 7", res.Records[0]["name"])
	assert.Equal(t, "task 5", res.Records[2]["name"])
}

func TestList_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t)

	res, err := f.users.List(context.Background(), url.Values{})
	require.NoError(t, err)
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
}

func TestList_MalformedQuery(t *testing.T) {
	f := newFixture(t)

	for _, params := range []url.Values{
		{"where": {`{"name": `}},
		{"where": {`{"name": {"$regex": "a"}}`}},
		{"select": {`{"name": 1, "email": 0}`}},
	} {
		_, err := f.users.List(context.Background(), params)
		ve, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, Invalid, ve.Kind)
		assert.ErrorIs(t, err, query.ErrMalformedQuery)
	}
}

func TestGetDelete_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Get(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := f.tasks.Create(ctx, Input{"name": "ship", "deadline": "2024-05-01"})
	require.NoError(t, err)

	require.NoError(t, f.tasks.Delete(ctx, created.ID()))
	assert.ErrorIs(t, f.tasks.Delete(ctx, created.ID()), ErrNotFound)

	_, err = f.tasks.Get(ctx, created.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.tasks.Update(ctx, created.ID(), Input{"name": "ship", "deadline": "2024-05-01"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_NotFoundBeforeValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Update(context.Background(), "missing", Input{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.tasks.Create(ctx, Input{
		"name":             "ship",
		"description":      "release",
		"deadline":         "2024-05-01T12:00:00.250Z",
		"completed":        true,
		"assignedUser":     "u1",
		"assignedUserName": "Ada",
	})
	require.NoError(t, err)

	found, err := f.tasks.Get(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, created, found)
	assert.Equal(t, "2024-05-01T12:00:00.250Z", found["deadline"])
}

func TestEventsPublishedAfterWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.users.Create(ctx, Input{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)
	_, err = f.users.Update(ctx, created.ID(), Input{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, f.users.Delete(ctx, created.ID()))

	_, _ = f.users.Create(ctx, Input{})

	assert.Equal(t, []string{"user.created", "user.updated", "user.deleted"}, f.events.keys)
}

type brokenStore struct {
	store.Store
	err error
}

func (b brokenStore) Find(context.Context, string, query.Query) ([]store.Document, error) {
	return nil, b.err
}

func (b brokenStore) Save(context.Context, string, store.Document) (store.Document, error) {
	return nil, b.err
}

func TestStoreFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	cause := errors.New("connection reset by peer")
	broken := brokenStore{Store: memory.New(), err: cause}

	users := NewService(ServiceConfig{Schema: NewUserSchema(broken), Store: broken, Logger: logger})

	_, err := users.List(context.Background(), url.Values{})
	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.ErrorIs(t, err, cause)

	// The uniqueness read fails before anything is saved.
	_, err = users.Create(context.Background(), Input{"name": "Ada", "email": "ada@example.com"})
	assert.ErrorIs(t, err, ErrStoreFailure)
	_, isValidation := IsValidation(err)
	assert.False(t, isValidation)

	var entry map[string]any
	line, _, _ := bytes.Cut(logs.Bytes(), []byte("\n"))
	require.NoError(t, json.Unmarshal(line, &entry))
	assert.Equal(t, "store operation failed", entry["msg"])
	assert.Equal(t, "users", entry["collection"])
	assert.Contains(t, entry["error"], "connection reset")
}

func TestDuplicateFromStoreIsConflict(t *testing.T) {
	dup := brokenStore{Store: memory.New(), err: fmt.Errorf("save tasks: %w", store.ErrDuplicate)}
	tasks := NewService(ServiceConfig{Schema: NewTaskSchema(), Store: dup})

	_, err := tasks.Create(context.Background(), Input{"name": "ship", "deadline": "2024-05-01"})
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, Conflict, ve.Kind)
}

func TestIdentity_PreservesCreation(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	id, at := identity(nil, now)
	assert.Empty(t, id)
	assert.Equal(t, now, at)

	current := store.Document{store.IDField: "abc", DateCreatedField: "2024-02-03T04:05:06.000Z"}
	id, at = identity(current, now)
	assert.Equal(t, "abc", id)
	assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), at)
}
