package mongodb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/taskhive/taskhive/internal/domain/errs"
	taskdomain "github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// TaskRepository implements task.Repository on a MongoDB collection.
//
// Every read and delete filters on (task_id AND owner) in a single query, so
// a task belonging to someone else is indistinguishable from a task that does
// not exist.
type TaskRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// TaskRepoOption configures TaskRepository.
type TaskRepoOption func(*TaskRepository)

// WithTaskRepoLogger sets the logger for the task repository.
func WithTaskRepoLogger(logger *slog.Logger) TaskRepoOption {
	return func(r *TaskRepository) {
		r.logger = logger
	}
}

// NewTaskRepository creates a MongoDB-backed task repository.
func NewTaskRepository(collection *mongo.Collection, opts ...TaskRepoOption) *TaskRepository {
	r := &TaskRepository{
		collection: collection,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FindByIDAndOwner loads a task by ID scoped to its owner.
func (r *TaskRepository) FindByIDAndOwner(ctx context.Context, id, owner uuid.UUID) (*taskdomain.Task, error) {
	if id.IsZero() || owner.IsZero() {
		return nil, errs.ErrInvalidInput
	}

	filter := ownerScopedFilter(id, owner)
	var doc taskDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.ErrorContext(ctx, "failed to find task",
				slog.String("task_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
		return nil, HandleMongoError(err, "task")
	}

	return documentToTask(&doc)
}

// ListByOwner returns the owner's tasks honoring the filters.
func (r *TaskRepository) ListByOwner(
	ctx context.Context,
	owner uuid.UUID,
	filters taskdomain.Filters,
) ([]*taskdomain.Task, error) {
	if owner.IsZero() {
		return nil, errs.ErrInvalidInput
	}

	filter := bson.M{"owner": owner.String()}
	if filters.Completed != nil {
		filter["completed"] = *filters.Completed
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortFieldToBSON(filters.SortField), Value: listSortDirection(filters)}}).
		SetSkip(int64(max(filters.Skip, 0)))
	if limit := ClampLimit(filters.Limit); limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list tasks",
			slog.String("owner", owner.String()),
			slog.String("error", err.Error()),
		)
		return nil, HandleMongoError(err, "tasks")
	}
	defer cursor.Close(ctx)

	tasks := make([]*taskdomain.Task, 0)
	for cursor.Next(ctx) {
		var doc taskDocument
		if decodeErr := cursor.Decode(&doc); decodeErr != nil {
			return nil, HandleMongoError(decodeErr, "tasks")
		}

		t, convErr := documentToTask(&doc)
		if convErr != nil {
			return nil, convErr
		}
		tasks = append(tasks, t)
	}

	if cursorErr := cursor.Err(); cursorErr != nil {
		return nil, HandleMongoError(cursorErr, "tasks")
	}

	return tasks, nil
}

// Save upserts the full task document keyed by task_id.
func (r *TaskRepository) Save(ctx context.Context, t *taskdomain.Task) error {
	if t == nil || t.ID().IsZero() {
		return errs.ErrInvalidInput
	}

	doc := taskToDocument(t)
	filter := bson.M{"task_id": t.ID().String()}
	update := bson.M{"$set": doc}

	_, err := r.collection.UpdateOne(ctx, filter, update, UpsertOptions())
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to save task",
			slog.String("task_id", t.ID().String()),
			slog.String("error", err.Error()),
		)
	}
	return HandleMongoError(err, "task")
}

// DeleteByIDAndOwner removes a task scoped to its owner and returns the
// removed task.
func (r *TaskRepository) DeleteByIDAndOwner(ctx context.Context, id, owner uuid.UUID) (*taskdomain.Task, error) {
	if id.IsZero() || owner.IsZero() {
		return nil, errs.ErrInvalidInput
	}

	filter := ownerScopedFilter(id, owner)
	var doc taskDocument
	err := r.collection.FindOneAndDelete(ctx, filter).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.ErrorContext(ctx, "failed to delete task",
				slog.String("task_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
		return nil, HandleMongoError(err, "task")
	}

	return documentToTask(&doc)
}

// DeleteByOwner removes all of the owner's tasks. Deleting zero tasks is not
// an error: the cascade must succeed for a user who never created any.
func (r *TaskRepository) DeleteByOwner(ctx context.Context, owner uuid.UUID) error {
	if owner.IsZero() {
		return errs.ErrInvalidInput
	}

	_, err := r.collection.DeleteMany(ctx, bson.M{"owner": owner.String()})
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to cascade delete tasks",
			slog.String("owner", owner.String()),
			slog.String("error", err.Error()),
		)
	}
	return HandleMongoError(err, "tasks")
}

func ownerScopedFilter(id, owner uuid.UUID) bson.M {
	return bson.M{
		"task_id": id.String(),
		"owner":   owner.String(),
	}
}

// sortFieldToBSON maps the API-level sort field names to document fields.
func sortFieldToBSON(field string) string {
	switch field {
	case taskdomain.SortByUpdatedAt:
		return "updated_at"
	case taskdomain.SortByCompleted:
		return "completed"
	case taskdomain.SortByDescription:
		return "description"
	default:
		return "created_at"
	}
}

// listSortDirection resolves the sort order. Without an explicit sortBy the
// list comes back oldest first, matching insertion order.
func listSortDirection(filters taskdomain.Filters) int {
	if filters.SortField == "" || filters.SortAsc {
		return 1
	}
	return -1
}

// taskDocument is the persisted shape of a task.
type taskDocument struct {
	TaskID      string    `bson:"task_id"`
	Description string    `bson:"description"`
	Completed   bool      `bson:"completed"`
	Owner       string    `bson:"owner"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func taskToDocument(t *taskdomain.Task) taskDocument {
	return taskDocument{
		TaskID:      t.ID().String(),
		Description: t.Description(),
		Completed:   t.Completed(),
		Owner:       t.Owner().String(),
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}
}

func documentToTask(doc *taskDocument) (*taskdomain.Task, error) {
	if doc == nil {
		return nil, errs.ErrInvalidInput
	}

	id, err := uuid.ParseUUID(doc.TaskID)
	if err != nil {
		return nil, errs.ErrInvalidInput
	}

	owner, err := uuid.ParseUUID(doc.Owner)
	if err != nil {
		return nil, errs.ErrInvalidInput
	}

	return taskdomain.Reconstruct(
		id,
		doc.Description,
		doc.Completed,
		owner,
		doc.CreatedAt,
		doc.UpdatedAt,
	), nil
}
