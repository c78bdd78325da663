package user

import (
	"context"

	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// Repository is the persistence port for accounts.
type Repository interface {
	// FindByID loads a user by id. Returns errs.ErrNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail loads a user by lowercased email. Returns errs.ErrNotFound
	// when absent.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Save upserts the full user document. A single save is atomic; there is
	// no multi-document transaction. Returns errs.ErrAlreadyExists on a
	// unique-index violation (duplicate email).
	Save(ctx context.Context, u *User) error

	// Delete removes the user document. Returns errs.ErrNotFound when absent.
	Delete(ctx context.Context, id uuid.UUID) error
}
