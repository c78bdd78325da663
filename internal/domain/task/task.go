// Package task holds the task entity. Every task belongs to exactly one owner
// and is only reachable through owner-scoped repository operations.
package task

import (
	"strings"
	"time"

	"github.com/taskhive/taskhive/internal/domain/errs"
	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// Task represents a single todo item.
type Task struct {
	id          uuid.UUID
	description string
	completed   bool
	owner       uuid.UUID
	createdAt   time.Time
	updatedAt   time.Time
}

// NewTask creates a task for the given owner. The owner always comes from the
// authenticated request identity, never from a client payload.
func NewTask(description string, owner uuid.UUID) (*Task, error) {
	if owner.IsZero() {
		return nil, errs.ErrInvalidInput
	}

	t := &Task{
		id:        uuid.NewUUID(),
		owner:     owner,
		createdAt: time.Now().UTC(),
		updatedAt: time.Now().UTC(),
	}

	if err := t.SetDescription(description); err != nil {
		return nil, err
	}

	return t, nil
}

// Reconstruct rehydrates a task from storage.
func Reconstruct(
	id uuid.UUID,
	description string,
	completed bool,
	owner uuid.UUID,
	createdAt, updatedAt time.Time,
) *Task {
	return &Task{
		id:          id,
		description: description,
		completed:   completed,
		owner:       owner,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the task id.
func (t *Task) ID() uuid.UUID {
	return t.id
}

// Description returns the description text.
func (t *Task) Description() string {
	return t.description
}

// Completed reports whether the task is done.
func (t *Task) Completed() bool {
	return t.completed
}

// Owner returns the owning user id.
func (t *Task) Owner() uuid.UUID {
	return t.owner
}

// CreatedAt returns the creation time.
func (t *Task) CreatedAt() time.Time {
	return t.createdAt
}

// UpdatedAt returns the last modification time.
func (t *Task) UpdatedAt() time.Time {
	return t.updatedAt
}

// SetDescription updates the description. Empty descriptions are rejected.
func (t *Task) SetDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return errs.ErrInvalidInput
	}
	t.description = description
	t.touch()
	return nil
}

// SetCompleted updates the completion flag.
func (t *Task) SetCompleted(completed bool) {
	t.completed = completed
	t.touch()
}

func (t *Task) touch() {
	t.updatedAt = time.Now().UTC()
}
