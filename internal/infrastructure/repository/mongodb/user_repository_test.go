package mongodb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/domain/errs"
	userdomain "github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/domain/uuid"
	infra "github.com/taskhive/taskhive/internal/infrastructure/mongodb"
	repo "github.com/taskhive/taskhive/internal/infrastructure/repository/mongodb"
	"github.com/taskhive/taskhive/tests/testutil"
)

func setupUserRepository(t *testing.T) *repo.UserRepository {
	t.Helper()

	db := testutil.SetupTestMongoDB(t)
	require.NoError(t, infra.CreateAllIndexes(context.Background(), db))

	return repo.NewUserRepository(db.Collection(infra.CollectionUsers))
}

func newStoredUser(t *testing.T, r *repo.UserRepository, email string) *userdomain.User {
	t.Helper()

	u, err := userdomain.NewUser("Mike", email, "sturdy-secret", 28)
	require.NoError(t, err)
	require.NoError(t, r.Save(context.Background(), u))
	return u
}

func TestUserRepository_SaveAndFindByID(t *testing.T) {
	r := setupUserRepository(t)
	ctx := context.Background()

	u := newStoredUser(t, r, "mike@example.com")

	found, err := r.FindByID(ctx, u.ID())
	require.NoError(t, err)

	assert.Equal(t, u.ID(), found.ID())
	assert.Equal(t, "Mike", found.Name())
	assert.Equal(t, "mike@example.com", found.Email())
	assert.Equal(t, 28, found.Age())
	assert.Equal(t, u.PasswordHash(), found.PasswordHash())
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	r := setupUserRepository(t)

	_, err := r.FindByID(context.Background(), uuid.NewUUID())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	r := setupUserRepository(t)
	ctx := context.Background()

	u := newStoredUser(t, r, "mike@example.com")

	found, err := r.FindByEmail(ctx, "mike@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID(), found.ID())

	_, err = r.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepository_Save_DuplicateEmail(t *testing.T) {
	r := setupUserRepository(t)
	ctx := context.Background()

	newStoredUser(t, r, "mike@example.com")

	dup, err := userdomain.NewUser("Other Mike", "mike@example.com", "sturdy-secret", 31)
	require.NoError(t, err)

	err = r.Save(ctx, dup)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestUserRepository_Save_UpdatesExisting(t *testing.T) {
	r := setupUserRepository(t)
	ctx := context.Background()

	u := newStoredUser(t, r, "mike@example.com")

	require.NoError(t, u.SetName("Michael"))
	u.AddToken("session-1")
	u.AddToken("session-2")
	require.NoError(t, r.Save(ctx, u))

	found, err := r.FindByID(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, "Michael", found.Name())
	assert.ElementsMatch(t, []string{"session-1", "session-2"}, found.Tokens())
}

func TestUserRepository_Save_ClearsTokens(t *testing.T) {
	r := setupUserRepository(t)
	ctx := context.Background()

	u := newStoredUser(t, r, "mike@example.com")
	u.AddToken("session-1")
	require.NoError(t, r.Save(ctx, u))

	u.ClearTokens()
	require.NoError(t, r.Save(ctx, u))

	found, err := r.FindByID(ctx, u.ID())
	require.NoError(t, err)
	assert.Empty(t, found.Tokens())
}

func TestUserRepository_Save_PersistsAvatar(t *testing.T) {
	r := setupUserRepository(t)
	ctx := context.Background()

	u := newStoredUser(t, r, "mike@example.com")
	u.SetAvatar([]byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, r.Save(ctx, u))

	found, err := r.FindByID(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, found.Avatar())

	found.ClearAvatar()
	require.NoError(t, r.Save(ctx, found))

	found, err = r.FindByID(ctx, u.ID())
	require.NoError(t, err)
	assert.False(t, found.HasAvatar())
}

func TestUserRepository_Delete(t *testing.T) {
	r := setupUserRepository(t)
	ctx := context.Background()

	u := newStoredUser(t, r, "mike@example.com")

	require.NoError(t, r.Delete(ctx, u.ID()))

	_, err := r.FindByID(ctx, u.ID())
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.ErrorIs(t, r.Delete(ctx, u.ID()), errs.ErrNotFound)
}

func TestUserRepository_ZeroIDRejected(t *testing.T) {
	r := setupUserRepository(t)
	ctx := context.Background()

	_, err := r.FindByID(ctx, uuid.UUID(""))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	assert.ErrorIs(t, r.Delete(ctx, uuid.UUID("")), errs.ErrInvalidInput)
	assert.ErrorIs(t, r.Save(ctx, nil), errs.ErrInvalidInput)
}
