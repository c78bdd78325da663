package httphandler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive/internal/domain/errs"
	"github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/domain/uuid"
	"github.com/taskhive/taskhive/internal/infrastructure/httpserver"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/service"
)

// taskUpdatableFields is the PATCH allow-list for tasks.
var taskUpdatableFields = map[string]struct{}{
	"description": {},
	"completed":   {},
}

// sortableTaskFields maps the sortBy query field names to repository sort
// fields.
var sortableTaskFields = map[string]string{
	"createdAt":   task.SortByCreatedAt,
	"updatedAt":   task.SortByUpdatedAt,
	"completed":   task.SortByCompleted,
	"description": task.SortByDescription,
}

// CreateTaskRequest represents the request to create a task. Completed is
// optional; a non-boolean value fails binding and rejects the request.
type CreateTaskRequest struct {
	Description string `json:"description" validate:"required"`
	Completed   *bool  `json:"completed"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Owner       string `json:"owner"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ToTaskResponse converts a domain task to its API shape.
func ToTaskResponse(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID().String(),
		Description: t.Description(),
		Completed:   t.Completed(),
		Owner:       t.Owner().String(),
		CreatedAt:   t.CreatedAt().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt().Format(time.RFC3339),
	}
}

// ToTaskListResponse converts a slice of tasks.
func ToTaskListResponse(tasks []*task.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToTaskResponse(t))
	}
	return out
}

// TaskService defines the task operations the handler needs.
// Declared on the consumer side.
type TaskService interface {
	Create(ctx context.Context, owner uuid.UUID, description string, completed bool) (*task.Task, error)
	List(ctx context.Context, owner uuid.UUID, filters task.Filters) ([]*task.Task, error)
	Get(ctx context.Context, owner, id uuid.UUID) (*task.Task, error)
	Update(ctx context.Context, owner, id uuid.UUID, updates service.TaskUpdates) (*task.Task, error)
	Delete(ctx context.Context, owner, id uuid.UUID) (*task.Task, error)
}

// TaskHandler handles task HTTP requests. Every route requires a session and
// operates strictly within the authenticated owner's scope.
type TaskHandler struct {
	tasks TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// RegisterRoutes registers task routes with the router.
func (h *TaskHandler) RegisterRoutes(r *httpserver.Router) {
	r.Auth().POST("/tasks", h.Create)
	r.Auth().GET("/tasks", h.List)
	r.Auth().GET("/tasks/:id", h.Get)
	r.Auth().PATCH("/tasks/:id", h.Update)
	r.Auth().DELETE("/tasks/:id", h.Delete)
}

// Create handles POST /tasks. The owner always comes from the session, a
// client cannot create tasks for someone else.
func (h *TaskHandler) Create(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return httpserver.RespondError(c, err)
	}

	completed := req.Completed != nil && *req.Completed
	t, err := h.tasks.Create(c.Request().Context(), middleware.GetUserID(c), req.Description, completed)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondCreated(c, ToTaskResponse(t))
}

// List handles GET /tasks with optional completed, limit, skip and sortBy
// query parameters. sortBy has the form "field:direction", for example
// "createdAt:desc".
func (h *TaskHandler) List(c echo.Context) error {
	filters, err := parseTaskFilters(c)
	if err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters")
	}

	tasks, err := h.tasks.List(c.Request().Context(), middleware.GetUserID(c), filters)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, ToTaskListResponse(tasks))
}

// Get handles GET /tasks/:id.
func (h *TaskHandler) Get(c echo.Context) error {
	id, err := parseTaskID(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	t, err := h.tasks.Get(c.Request().Context(), middleware.GetUserID(c), id)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, ToTaskResponse(t))
}

// Update handles PATCH /tasks/:id with the same strict allow-list semantics
// as the profile PATCH.
func (h *TaskHandler) Update(c echo.Context) error {
	id, err := parseTaskID(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	var raw map[string]json.RawMessage
	if err = json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}

	if err = rejectUnknownFields(raw, taskUpdatableFields); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_UPDATES", "invalid updates")
	}

	var updates service.TaskUpdates
	for field, value := range raw {
		var unmarshalErr error
		switch field {
		case "description":
			unmarshalErr = json.Unmarshal(value, &updates.Description)
		case "completed":
			unmarshalErr = json.Unmarshal(value, &updates.Completed)
		}
		if unmarshalErr != nil {
			return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		}
	}

	t, err := h.tasks.Update(c.Request().Context(), middleware.GetUserID(c), id, updates)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, ToTaskResponse(t))
}

// Delete handles DELETE /tasks/:id.
func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := parseTaskID(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	t, err := h.tasks.Delete(c.Request().Context(), middleware.GetUserID(c), id)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, ToTaskResponse(t))
}

// parseTaskID reads the :id path parameter. A malformed id cannot match any
// task, so it reads as not found rather than as a validation error.
func parseTaskID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.ParseUUID(c.Param("id"))
	if err != nil {
		return uuid.UUID(""), errs.ErrNotFound
	}
	return id, nil
}

func parseTaskFilters(c echo.Context) (task.Filters, error) {
	var filters task.Filters

	if raw := c.QueryParam("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, err
		}
		filters.Completed = &completed
	}

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filters, strconv.ErrSyntax
		}
		filters.Limit = limit
	}

	if raw := c.QueryParam("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return filters, strconv.ErrSyntax
		}
		filters.Skip = skip
	}

	if raw := c.QueryParam("sortBy"); raw != "" {
		field, asc, err := parseSortBy(raw)
		if err != nil {
			return filters, err
		}
		filters.SortField = field
		filters.SortAsc = asc
	}

	return filters, nil
}

// parseSortBy splits a "field:direction" sort expression.
func parseSortBy(raw string) (string, bool, error) {
	parts := strings.SplitN(raw, ":", 2)

	field, ok := sortableTaskFields[parts[0]]
	if !ok {
		return "", false, echo.ErrBadRequest
	}

	// direction defaults to ascending
	if len(parts) == 1 {
		return field, true, nil
	}

	switch parts[1] {
	case "asc":
		return field, true, nil
	case "desc":
		return field, false, nil
	default:
		return "", false, echo.ErrBadRequest
	}
}

// MockTaskService is an in-memory TaskService for handler tests.
type MockTaskService struct {
	tasks map[string]*task.Task

	// Err forces every operation to fail when set.
	Err error
}

// NewMockTaskService creates a new mock task service.
func NewMockTaskService() *MockTaskService {
	return &MockTaskService{
		tasks: make(map[string]*task.Task),
	}
}

// AddTask seeds the mock with an existing task.
func (m *MockTaskService) AddTask(t *task.Task) {
	m.tasks[t.ID().String()] = t
}

// Create implements TaskService.
func (m *MockTaskService) Create(
	_ context.Context,
	owner uuid.UUID,
	description string,
	completed bool,
) (*task.Task, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	t, err := task.NewTask(description, owner)
	if err != nil {
		return nil, err
	}
	if completed {
		t.SetCompleted(true)
	}
	m.tasks[t.ID().String()] = t
	return t, nil
}

// List implements TaskService.
func (m *MockTaskService) List(_ context.Context, owner uuid.UUID, filters task.Filters) ([]*task.Task, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	out := make([]*task.Task, 0)
	for _, t := range m.tasks {
		if t.Owner() != owner {
			continue
		}
		if filters.Completed != nil && t.Completed() != *filters.Completed {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Get implements TaskService.
func (m *MockTaskService) Get(_ context.Context, owner, id uuid.UUID) (*task.Task, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	t, ok := m.tasks[id.String()]
	if !ok || t.Owner() != owner {
		return nil, errs.ErrNotFound
	}
	return t, nil
}

// Update implements TaskService.
func (m *MockTaskService) Update(
	ctx context.Context,
	owner, id uuid.UUID,
	updates service.TaskUpdates,
) (*task.Task, error) {
	t, err := m.Get(ctx, owner, id)
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
	return t, nil
}

// Delete implements TaskService.
func (m *MockTaskService) Delete(ctx context.Context, owner, id uuid.UUID) (*task.Task, error) {
	t, err := m.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	delete(m.tasks, id.String())
	return t, nil
}
