package records

import (
	"context"
	"time"

	"github.com/felixgeelhaar/taskhub/internal/store"
)

// TaskCollection is the store collection holding tasks.
const TaskCollection = "tasks"

const (
	msgTaskNameAndDeadlineRequired = "Validation Error: A name is required! A deadline is required! "
	msgTaskNameRequired            = "Validation Error: A name is required! "
	msgTaskDeadlineRequired        = "A deadline is required! "

	// UnassignedUserName is the assignee name of tasks without an assignee.
	UnassignedUserName = "unassigned"
)

// Task is a unit of work with a deadline, optionally assigned to a user.
// AssignedUser is not checked against the users collection.
type Task struct {
	ID               string
	Name             string
	Description      string
	Deadline         time.Time
	Completed        bool
	AssignedUser     string
	AssignedUserName string
	DateCreated      time.Time
}

// Document converts t to its stored form.
func (t Task) Document() store.Document {
	doc := store.Document{
		"name":             t.Name,
		"description":      t.Description,
		"deadline":         formatTime(t.Deadline),
		"completed":        t.Completed,
		"assignedUser":     t.AssignedUser,
		"assignedUserName": t.AssignedUserName,
		DateCreatedField:   formatTime(t.DateCreated),
	}
	if t.ID != "" {
		doc[store.IDField] = t.ID
	}
	return doc
}

// TaskSchema validates tasks.
type TaskSchema struct {
	now func() time.Time
}

// NewTaskSchema creates the task schema.
func NewTaskSchema() *TaskSchema {
	return &TaskSchema{now: time.Now}
}

func (s *TaskSchema) Collection() string      { return TaskCollection }
func (s *TaskSchema) Noun() string            { return "task" }
func (s *TaskSchema) Label() string           { return "Task" }
func (s *TaskSchema) TimeFields() []string    { return []string{"deadline", DateCreatedField} }
func (s *TaskSchema) UniqueFields() []string  { return nil }
func (s *TaskSchema) ConflictMessage() string { return "This task already exists" }

// Prepare checks name and deadline and fills defaults for everything else.
func (s *TaskSchema) Prepare(_ context.Context, in Input, current store.Document) (store.Document, error) {
	hasName, hasDeadline := in.Has("name"), in.Has("deadline")
	switch {
	case !hasName && !hasDeadline:
		return nil, invalid(msgTaskNameAndDeadlineRequired)
	case !hasName:
		return nil, invalid(msgTaskNameRequired)
	case !hasDeadline:
		return nil, invalid(msgTaskDeadlineRequired)
	}

	var t Task
	var err error
	if t.Name, err = in.stringField("name", ""); err != nil {
		return nil, err
	}
	if t.Deadline, err = in.timeField("deadline"); err != nil {
		return nil, err
	}
	if t.Description, err = in.stringField("description", ""); err != nil {
		return nil, err
	}
	if t.Completed, err = in.boolField("completed", false); err != nil {
		return nil, err
	}
	if t.AssignedUser, err = in.stringField("assignedUser", ""); err != nil {
		return nil, err
	}
	if t.AssignedUserName, err = in.stringField("assignedUserName", UnassignedUserName); err != nil {
		return nil, err
	}
	t.ID, t.DateCreated = identity(current, s.now())

	return t.Document(), nil
}

var _ Schema = (*TaskSchema)(nil)
