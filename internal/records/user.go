package records

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

// UserCollection is the store collection holding users.
const UserCollection = "users"

const (
	msgUserNameAndEmailRequired = "Validation Error: A name is required! An email is required!"
	msgUserEmailRequired        = "An email is required!"
	msgUserNameRequired         = "Validation Error: A name is required!"
	msgUserEmailTaken           = "This email already exists"
)

// User is a person tasks can be assigned to.
type User struct {
	ID           string
	Name         string
	Email        string
	PendingTasks []string
	DateCreated  time.Time
}

// Document converts u to its stored form.
func (u User) Document() store.Document {
	pending := make([]any, len(u.PendingTasks))
	for i, id := range u.PendingTasks {
		pending[i] = id
	}
	doc := store.Document{
		"name":           u.Name,
		"email":          u.Email,
		"pendingTasks":   pending,
		DateCreatedField: formatTime(u.DateCreated),
	}
	if u.ID != "" {
		doc[store.IDField] = u.ID
	}
	return doc
}

// UserSchema validates users. Emails are unique; checking needs a store read.
type UserSchema struct {
	store store.Store
	now   func() time.Time
}

// NewUserSchema creates the user schema. s serves the email uniqueness check.
func NewUserSchema(s store.Store) *UserSchema {
	return &UserSchema{store: s, now: time.Now}
}

func (s *UserSchema) Collection() string      { return UserCollection }
func (s *UserSchema) Noun() string            { return "user" }
func (s *UserSchema) Label() string           { return "User" }
func (s *UserSchema) TimeFields() []string    { return []string{DateCreatedField} }
func (s *UserSchema) UniqueFields() []string  { return []string{"email"} }
func (s *UserSchema) ConflictMessage() string { return msgUserEmailTaken }

// Prepare checks name and email, then that no other user owns the email.
// Omitted pendingTasks reset to an empty list.
func (s *UserSchema) Prepare(ctx context.Context, in Input, current store.Document) (store.Document, error) {
	hasName, hasEmail := in.Has("name"), in.Has("email")
	switch {
	case !hasName && !hasEmail:
		return nil, invalid(msgUserNameAndEmailRequired)
	case !hasEmail:
		return nil, invalid(msgUserEmailRequired)
	case !hasName:
		return nil, invalid(msgUserNameRequired)
	}

	var u User
	var err error
	if u.Name, err = in.stringField("name", ""); err != nil {
		return nil, err
	}
	if u.Email, err = in.stringField("email", ""); err != nil {
		return nil, err
	}
	if u.PendingTasks, err = in.listField("pendingTasks"); err != nil {
		return nil, err
	}
	u.ID, u.DateCreated = identity(current, s.now())

	if err := s.checkEmail(ctx, u.Email, u.ID); err != nil {
		return nil, err
	}
	return u.Document(), nil
}

// checkEmail fails when a user other than self owns email.
func (s *UserSchema) checkEmail(ctx context.Context, email, self string) error {
	q := query.Query{
		Filter: query.Filter{{Field: "email", Op: query.OpEq, Value: email}},
		Limit:  1,
	}
	if self != "" {
		q.Filter = append(q.Filter, query.Condition{Field: store.IDField, Op: query.OpNe, Value: self})
	}

	owners, err := s.store.Find(ctx, UserCollection, q)
	if err != nil {
		return fmt.Errorf("check email uniqueness: %w", err)
	}
	if len(owners) > 0 {
		return conflict(msgUserEmailTaken)
	}
	return nil
}

var _ Schema = (*UserSchema)(nil)
