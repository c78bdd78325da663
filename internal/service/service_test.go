package service_test

import (
	"context"
	"sync"

	"github.com/taskhive/taskhive/internal/domain/errs"
	"github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// memUserRepo is an in-memory user.Repository with the same contract as the
// MongoDB implementation: upsert by id, unique email, not-found sentinels.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*user.User)}
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id.String()]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email() == email {
			return cloneUser(u), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *memUserRepo) Save(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.users {
		if existing.Email() == u.Email() && id != u.ID().String() {
			return errs.ErrAlreadyExists
		}
	}
	r.users[u.ID().String()] = cloneUser(u)
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id.String()]; !ok {
		return errs.ErrNotFound
	}
	delete(r.users, id.String())
	return nil
}

func cloneUser(u *user.User) *user.User {
	return user.Reconstruct(
		u.ID(), u.Name(), u.Email(), u.PasswordHash(), u.Age(),
		u.Avatar(), u.Tokens(), u.CreatedAt(), u.UpdatedAt(),
	)
}

// memTaskRepo is an in-memory task.Repository with owner-scoped semantics.
type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*task.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]*task.Task)}
}

func (r *memTaskRepo) FindByIDAndOwner(_ context.Context, id, owner uuid.UUID) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id.String()]
	if !ok || t.Owner() != owner {
		return nil, errs.ErrNotFound
	}
	return cloneTask(t), nil
}

func (r *memTaskRepo) ListByOwner(_ context.Context, owner uuid.UUID, filters task.Filters) ([]*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*task.Task
	for _, t := range r.tasks {
		if t.Owner() != owner {
			continue
		}
		if filters.Completed != nil && t.Completed() != *filters.Completed {
			continue
		}
		out = append(out, cloneTask(t))
	}
	return out, nil
}

func (r *memTaskRepo) Save(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[t.ID().String()] = cloneTask(t)
	return nil
}

func (r *memTaskRepo) DeleteByIDAndOwner(_ context.Context, id, owner uuid.UUID) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id.String()]
	if !ok || t.Owner() != owner {
		return nil, errs.ErrNotFound
	}
	delete(r.tasks, id.String())
	return cloneTask(t), nil
}

func (r *memTaskRepo) DeleteByOwner(_ context.Context, owner uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.tasks {
		if t.Owner() == owner {
			delete(r.tasks, id)
		}
	}
	return nil
}

func cloneTask(t *task.Task) *task.Task {
	return task.Reconstruct(
		t.ID(), t.Description(), t.Completed(), t.Owner(), t.CreatedAt(), t.UpdatedAt(),
	)
}

// recordingMailer captures sends so tests can wait for the background email.
type recordingMailer struct {
	welcome      chan string
	cancellation chan string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{
		welcome:      make(chan string, 1),
		cancellation: make(chan string, 1),
	}
}

func (m *recordingMailer) SendWelcome(_ context.Context, email, _ string) error {
	m.welcome <- email
	return nil
}

func (m *recordingMailer) SendCancellation(_ context.Context, email, _ string) error {
	m.cancellation <- email
	return nil
}

// memAvatarCache is an in-memory AvatarCache.
type memAvatarCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	gets, sets, invalidations int
}

func newMemAvatarCache() *memAvatarCache {
	return &memAvatarCache{entries: make(map[string][]byte)}
}

func (c *memAvatarCache) Get(_ context.Context, userID uuid.UUID) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	data, ok := c.entries[userID.String()]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return data, nil
}

func (c *memAvatarCache) Set(_ context.Context, userID uuid.UUID, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sets++
	c.entries[userID.String()] = data
	return nil
}

func (c *memAvatarCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidations++
	delete(c.entries, userID.String())
	return nil
}
