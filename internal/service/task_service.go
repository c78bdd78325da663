package service

import (
	"context"
	"log/slog"

	"github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// TaskUpdates carries the changeable task fields. A nil field means "leave
// unchanged".
type TaskUpdates struct {
	Description *string
	Completed   *bool
}

// TaskService implements the owner-scoped task workflows. The owner comes
// from the authenticated session, never from the request payload, so a task
// can only ever be created and seen within its owner's scope.
type TaskService struct {
	tasks  task.Repository
	logger *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(tasks task.Repository, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		tasks:  tasks,
		logger: logger,
	}
}

// Create stores a new task owned by the given user. A task may be created
// already completed.
func (s *TaskService) Create(
	ctx context.Context,
	owner uuid.UUID,
	description string,
	completed bool,
) (*task.Task, error) {
	t, err := task.NewTask(description, owner)
	if err != nil {
		return nil, err
	}
	if completed {
		t.SetCompleted(true)
	}

	if err = s.tasks.Save(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// List returns the owner's tasks honoring the filters.
func (s *TaskService) List(ctx context.Context, owner uuid.UUID, filters task.Filters) ([]*task.Task, error) {
	return s.tasks.ListByOwner(ctx, owner, filters)
}

// Get loads one task scoped to the owner. A foreign task reads as not found.
func (s *TaskService) Get(ctx context.Context, owner, id uuid.UUID) (*task.Task, error) {
	return s.tasks.FindByIDAndOwner(ctx, id, owner)
}

// Update applies the field updates to the owner's task and persists it.
func (s *TaskService) Update(ctx context.Context, owner, id uuid.UUID, updates TaskUpdates) (*task.Task, error) {
	t, err := s.tasks.FindByIDAndOwner(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	if updates.Description != nil {
		if err = t.SetDescription(*updates.Description); err != nil {
			return nil, err
		}
	}
	if updates.Completed != nil {
		t.SetCompleted(*updates.Completed)
	}

	if err = s.tasks.Save(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// Delete removes the owner's task and returns it.
func (s *TaskService) Delete(ctx context.Context, owner, id uuid.UUID) (*task.Task, error) {
	return s.tasks.DeleteByIDAndOwner(ctx, id, owner)
}
