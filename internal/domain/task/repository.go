package task

import (
	"context"

	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// Sortable fields for list queries.
const (
	SortByCreatedAt   = "createdAt"
	SortByUpdatedAt   = "updatedAt"
	SortByCompleted   = "completed"
	SortByDescription = "description"
)

// Filters narrows and pages a list query. The owner filter itself is not here:
// it is a mandatory argument of every repository operation.
type Filters struct {
	// Completed filters by completion status when non-nil.
	Completed *bool

	// Limit caps the number of returned tasks; 0 means the repository default.
	Limit int

	// Skip is the number of tasks to skip for pagination.
	Skip int

	// SortField is one of the SortBy constants; empty means createdAt.
	SortField string

	// SortAsc sorts ascending when true, descending otherwise.
	SortAsc bool
}

// Repository is the persistence port for tasks. Every operation that touches
// an existing task takes the owner id and filters on (id AND owner), so a
// foreign task behaves exactly like a missing one.
type Repository interface {
	// FindByIDAndOwner loads a task by id scoped to the owner. Returns
	// errs.ErrNotFound for both a missing task and a foreign one.
	FindByIDAndOwner(ctx context.Context, id, owner uuid.UUID) (*Task, error)

	// ListByOwner returns the owner's tasks honoring the filters. Never
	// returns another owner's tasks regardless of the filter values.
	ListByOwner(ctx context.Context, owner uuid.UUID, filters Filters) ([]*Task, error)

	// Save upserts the full task document.
	Save(ctx context.Context, t *Task) error

	// DeleteByIDAndOwner removes a task scoped to the owner. Returns
	// errs.ErrNotFound when no matching document exists.
	DeleteByIDAndOwner(ctx context.Context, id, owner uuid.UUID) (*Task, error)

	// DeleteByOwner removes all of the owner's tasks. Used for the cascade
	// when an account is deleted.
	DeleteByOwner(ctx context.Context, owner uuid.UUID) error
}
