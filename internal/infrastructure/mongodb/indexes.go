// Package mongodb provides MongoDB infrastructure components including
// connection setup and index management.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names as constants for consistency.
const (
	CollectionUsers = "users"
	CollectionTasks = "tasks"
)

// IndexDefinition describes a MongoDB index to be created.
type IndexDefinition struct {
	Collection string
	Keys       bson.D
	Options    *options.IndexOptionsBuilder
}

// CreateAllIndexes creates all necessary indexes for the application.
// This function is idempotent, calling it multiple times is safe.
func CreateAllIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range GetAllIndexDefinitions() {
		model := mongo.IndexModel{
			Keys:    idx.Keys,
			Options: idx.Options,
		}

		if _, err := db.Collection(idx.Collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on collection %s: %w", idx.Collection, err)
		}
	}

	return nil
}

// GetAllIndexDefinitions returns all index definitions for all collections.
func GetAllIndexDefinitions() []IndexDefinition {
	var indexes []IndexDefinition
	indexes = append(indexes, GetUserIndexes()...)
	indexes = append(indexes, GetTaskIndexes()...)
	return indexes
}

// GetUserIndexes returns index definitions for the users collection.
func GetUserIndexes() []IndexDefinition {
	return []IndexDefinition{
		{
			// Primary key, unique user ID
			Collection: CollectionUsers,
			Keys:       bson.D{{Key: "user_id", Value: 1}},
			Options:    options.Index().SetUnique(true).SetName("idx_users_id_unique"),
		},
		{
			// Login and signup both resolve by email
			Collection: CollectionUsers,
			Keys:       bson.D{{Key: "email", Value: 1}},
			Options:    options.Index().SetUnique(true).SetName("idx_users_email_unique"),
		},
	}
}

// GetTaskIndexes returns index definitions for the tasks collection.
func GetTaskIndexes() []IndexDefinition {
	return []IndexDefinition{
		{
			// Primary key, unique task ID
			Collection: CollectionTasks,
			Keys:       bson.D{{Key: "task_id", Value: 1}},
			Options:    options.Index().SetUnique(true).SetName("idx_tasks_id_unique"),
		},
		{
			// Listing and cascade deletion are owner scoped
			Collection: CollectionTasks,
			Keys:       bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}},
			Options:    options.Index().SetName("idx_tasks_owner_time"),
		},
		{
			// Completed filter combined with the owner scope
			Collection: CollectionTasks,
			Keys:       bson.D{{Key: "owner", Value: 1}, {Key: "completed", Value: 1}},
			Options:    options.Index().SetName("idx_tasks_owner_completed"),
		},
	}
}

// EnsureIndexes is an alias for CreateAllIndexes for semantic clarity.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	return CreateAllIndexes(ctx, db)
}
