package mongodb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/taskhive/taskhive/internal/domain/errs"
	userdomain "github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// UserRepository implements user.Repository on a MongoDB collection.
type UserRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// UserRepoOption configures UserRepository.
type UserRepoOption func(*UserRepository)

// WithUserRepoLogger sets the logger for the user repository.
func WithUserRepoLogger(logger *slog.Logger) UserRepoOption {
	return func(r *UserRepository) {
		r.logger = logger
	}
}

// NewUserRepository creates a MongoDB-backed user repository.
func NewUserRepository(collection *mongo.Collection, opts ...UserRepoOption) *UserRepository {
	r := &UserRepository{
		collection: collection,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FindByID loads a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*userdomain.User, error) {
	if id.IsZero() {
		return nil, errs.ErrInvalidInput
	}

	filter := bson.M{"user_id": id.String()}
	var doc userDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.ErrorContext(ctx, "failed to find user by ID",
				slog.String("user_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
		return nil, HandleMongoError(err, "user")
	}

	return documentToUser(&doc)
}

// FindByEmail loads a user by email. Callers pass the lowercased form; the
// entity lowercases on SetEmail so stored emails are already canonical.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	if email == "" {
		return nil, errs.ErrInvalidInput
	}

	filter := bson.M{"email": email}
	var doc userDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		return nil, HandleMongoError(err, "user")
	}

	return documentToUser(&doc)
}

// Save upserts the full user document keyed by user_id.
func (r *UserRepository) Save(ctx context.Context, u *userdomain.User) error {
	if u == nil || u.ID().IsZero() {
		return errs.ErrInvalidInput
	}

	doc := userToDocument(u)
	filter := bson.M{"user_id": u.ID().String()}
	update := bson.M{"$set": doc}

	_, err := r.collection.UpdateOne(ctx, filter, update, UpsertOptions())
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		r.logger.ErrorContext(ctx, "failed to save user",
			slog.String("user_id", u.ID().String()),
			slog.String("error", err.Error()),
		)
	}
	return HandleMongoError(err, "user")
}

// Delete removes the user document.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if id.IsZero() {
		return errs.ErrInvalidInput
	}

	filter := bson.M{"user_id": id.String()}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to delete user",
			slog.String("user_id", id.String()),
			slog.String("error", err.Error()),
		)
		return HandleMongoError(err, "user")
	}

	if result.DeletedCount == 0 {
		return errs.ErrNotFound
	}

	return nil
}

// userDocument is the persisted shape of a user.
type userDocument struct {
	UserID       string    `bson:"user_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Age          int       `bson:"age"`
	Avatar       []byte    `bson:"avatar,omitempty"`
	Tokens       []string  `bson:"tokens"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func userToDocument(u *userdomain.User) userDocument {
	tokens := u.Tokens()
	if tokens == nil {
		// keep the field present so $set clears stale sessions
		tokens = []string{}
	}

	return userDocument{
		UserID:       u.ID().String(),
		Name:         u.Name(),
		Email:        u.Email(),
		PasswordHash: u.PasswordHash(),
		Age:          u.Age(),
		Avatar:       u.Avatar(),
		Tokens:       tokens,
		CreatedAt:    u.CreatedAt(),
		UpdatedAt:    u.UpdatedAt(),
	}
}

func documentToUser(doc *userDocument) (*userdomain.User, error) {
	if doc == nil {
		return nil, errs.ErrInvalidInput
	}

	id, err := uuid.ParseUUID(doc.UserID)
	if err != nil {
		return nil, errs.ErrInvalidInput
	}

	return userdomain.Reconstruct(
		id,
		doc.Name,
		doc.Email,
		doc.PasswordHash,
		doc.Age,
		doc.Avatar,
		doc.Tokens,
		doc.CreatedAt,
		doc.UpdatedAt,
	), nil
}
