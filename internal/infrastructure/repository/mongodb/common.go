// Package mongodb implements the domain repository ports on top of the
// MongoDB driver.
package mongodb

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/taskhive/taskhive/internal/domain/errs"
)

// MaxPaginationLimit caps any requested page size. A query without a limit
// stays unbounded: list endpoints return the full set unless the client pages.
const MaxPaginationLimit = 100

// HandleMongoError maps a MongoDB driver error to a domain error:
//   - nil when err is nil
//   - errs.ErrNotFound when no document matched
//   - errs.ErrAlreadyExists on a unique constraint violation
//   - a wrapped errs.ErrStore for everything else
func HandleMongoError(err error, resourceType string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrNotFound
	}

	if mongo.IsDuplicateKeyError(err) {
		return errs.ErrAlreadyExists
	}

	return fmt.Errorf("%w: %s: %s", errs.ErrStore, resourceType, err.Error())
}

// UpsertOptions returns the standard options for upsert operations.
func UpsertOptions() *options.UpdateOneOptionsBuilder {
	return options.UpdateOne().SetUpsert(true)
}

// ClampLimit caps a requested page size. Zero means no limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	if limit > MaxPaginationLimit {
		return MaxPaginationLimit
	}
	return limit
}
