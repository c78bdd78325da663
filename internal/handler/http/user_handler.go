// Package httphandler contains the HTTP handlers for the public API.
package httphandler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive/internal/avatar"
	"github.com/taskhive/taskhive/internal/domain/errs"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/domain/uuid"
	"github.com/taskhive/taskhive/internal/infrastructure/httpserver"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/service"
)

// avatarFormField is the multipart form field carrying the image.
const avatarFormField = "avatar"

// userUpdatableFields is the PATCH allow-list for profiles.
var userUpdatableFields = map[string]struct{}{
	"name":     {},
	"email":    {},
	"password": {},
	"age":      {},
}

// SignupRequest represents the request to create an account.
type SignupRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Age      int    `json:"age"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse represents a user in API responses. The password hash, the
// session tokens and the avatar bytes never leave the server this way.
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SessionResponse pairs a user with a freshly issued session token.
type SessionResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// ToUserResponse converts a domain user to its API shape.
func ToUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID().String(),
		Name:      u.Name(),
		Email:     u.Email(),
		Age:       u.Age(),
		CreatedAt: u.CreatedAt().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt().Format(time.RFC3339),
	}
}

// UserService defines the account operations the handler needs.
// Declared on the consumer side.
type UserService interface {
	SignUp(ctx context.Context, name, email, password string, age int) (*user.User, string, error)
	Login(ctx context.Context, email, password string) (*user.User, string, error)
	Logout(ctx context.Context, u *user.User, token string) error
	LogoutAll(ctx context.Context, u *user.User) error
	UpdateProfile(ctx context.Context, u *user.User, updates service.UserUpdates) error
	DeleteAccount(ctx context.Context, u *user.User) error
	UploadAvatar(ctx context.Context, u *user.User, filename string, size int64, data []byte) error
	DeleteAvatar(ctx context.Context, u *user.User) error
	GetAvatar(ctx context.Context, userID uuid.UUID) ([]byte, error)
}

// UserHandler handles account HTTP requests.
type UserHandler struct {
	users UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes registers user routes with the router.
func (h *UserHandler) RegisterRoutes(r *httpserver.Router) {
	r.Public().POST("/users", h.SignUp)
	r.Public().POST("/users/login", h.Login)
	r.Public().GET("/users/:id/avatar", h.GetAvatar)

	r.Auth().POST("/users/logout", h.Logout)
	r.Auth().POST("/users/logoutAll", h.LogoutAll)
	r.Auth().GET("/users/me", h.GetMe)
	r.Auth().PATCH("/users/me", h.UpdateMe)
	r.Auth().DELETE("/users/me", h.DeleteMe)
	r.Auth().POST("/users/me/avatar", h.UploadAvatar)
	r.Auth().DELETE("/users/me/avatar", h.DeleteAvatar)
}

// SignUp handles POST /users.
func (h *UserHandler) SignUp(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return httpserver.RespondError(c, err)
	}

	u, token, err := h.users.SignUp(c.Request().Context(), req.Name, req.Email, req.Password, req.Age)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondCreated(c, SessionResponse{
		User:  ToUserResponse(u),
		Token: token,
	})
}

// Login handles POST /users/login.
func (h *UserHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return httpserver.RespondError(c, err)
	}

	u, token, err := h.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, SessionResponse{
		User:  ToUserResponse(u),
		Token: token,
	})
}

// Logout handles POST /users/logout. Only the presented session is revoked.
func (h *UserHandler) Logout(c echo.Context) error {
	u := middleware.GetUser(c)
	token := middleware.GetToken(c)

	if err := h.users.Logout(c.Request().Context(), u, token); err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, nil)
}

// LogoutAll handles POST /users/logoutAll.
func (h *UserHandler) LogoutAll(c echo.Context) error {
	u := middleware.GetUser(c)

	if err := h.users.LogoutAll(c.Request().Context(), u); err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, nil)
}

// GetMe handles GET /users/me.
func (h *UserHandler) GetMe(c echo.Context) error {
	return httpserver.RespondOK(c, ToUserResponse(middleware.GetUser(c)))
}

// UpdateMe handles PATCH /users/me.
//
// The body is decoded as a loose field map first so that any key outside the
// allow-list rejects the whole request before a single field is applied.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}

	if err := rejectUnknownFields(raw, userUpdatableFields); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_UPDATES", "invalid updates")
	}

	var updates service.UserUpdates
	for field, value := range raw {
		var err error
		switch field {
		case "name":
			err = json.Unmarshal(value, &updates.Name)
		case "email":
			err = json.Unmarshal(value, &updates.Email)
		case "password":
			err = json.Unmarshal(value, &updates.Password)
		case "age":
			err = json.Unmarshal(value, &updates.Age)
		}
		if err != nil {
			return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		}
	}

	u := middleware.GetUser(c)
	if err := h.users.UpdateProfile(c.Request().Context(), u, updates); err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, ToUserResponse(u))
}

// DeleteMe handles DELETE /users/me.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	u := middleware.GetUser(c)

	if err := h.users.DeleteAccount(c.Request().Context(), u); err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, ToUserResponse(u))
}

// UploadAvatar handles POST /users/me/avatar. The image arrives as the
// "avatar" multipart form field.
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	fileHeader, err := c.FormFile(avatarFormField)
	if err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_FILE", "avatar file is required")
	}

	// cheap checks before the body is read
	if acceptErr := avatar.Accept(fileHeader.Filename, fileHeader.Size); acceptErr != nil {
		return httpserver.RespondError(c, acceptErr)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return httpserver.RespondError(c, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, avatar.MaxUploadBytes))
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	u := middleware.GetUser(c)
	if err = h.users.UploadAvatar(c.Request().Context(), u, fileHeader.Filename, fileHeader.Size, data); err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, nil)
}

// DeleteAvatar handles DELETE /users/me/avatar.
func (h *UserHandler) DeleteAvatar(c echo.Context) error {
	u := middleware.GetUser(c)

	if err := h.users.DeleteAvatar(c.Request().Context(), u); err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, nil)
}

// GetAvatar handles GET /users/:id/avatar. Public: anyone may fetch any
// user's avatar by id. Responds with the raw PNG, not the JSON envelope.
func (h *UserHandler) GetAvatar(c echo.Context) error {
	id, err := uuid.ParseUUID(c.Param("id"))
	if err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusNotFound, "NOT_FOUND", "avatar not found")
	}

	data, err := h.users.GetAvatar(c.Request().Context(), id)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return c.Blob(http.StatusOK, avatar.ContentType, data)
}

// rejectUnknownFields fails when any key of raw is outside the allow-list.
func rejectUnknownFields(raw map[string]json.RawMessage, allowed map[string]struct{}) error {
	for field := range raw {
		if _, ok := allowed[field]; !ok {
			return echo.ErrBadRequest
		}
	}
	return nil
}

// MockUserService is an in-memory UserService for handler tests.
type MockUserService struct {
	users   map[string]*user.User
	avatars map[string][]byte
	seq     int

	// Err forces every operation to fail when set.
	Err error
}

// NewMockUserService creates a new mock user service.
func NewMockUserService() *MockUserService {
	return &MockUserService{
		users:   make(map[string]*user.User),
		avatars: make(map[string][]byte),
	}
}

// AddUser seeds the mock with an existing user.
func (m *MockUserService) AddUser(u *user.User) {
	m.users[u.ID().String()] = u
}

func (m *MockUserService) nextToken() string {
	m.seq++
	return fmt.Sprintf("mock-session-%d", m.seq)
}

// SignUp implements UserService.
func (m *MockUserService) SignUp(
	_ context.Context,
	name, email, password string,
	age int,
) (*user.User, string, error) {
	if m.Err != nil {
		return nil, "", m.Err
	}

	for _, existing := range m.users {
		if existing.Email() == strings.ToLower(email) {
			return nil, "", errs.ErrAlreadyExists
		}
	}

	u, err := user.NewUser(name, email, password, age)
	if err != nil {
		return nil, "", err
	}

	token := m.nextToken()
	u.AddToken(token)
	m.users[u.ID().String()] = u
	return u, token, nil
}

// Login implements UserService.
func (m *MockUserService) Login(_ context.Context, email, password string) (*user.User, string, error) {
	if m.Err != nil {
		return nil, "", m.Err
	}

	for _, u := range m.users {
		if u.Email() == strings.ToLower(email) {
			if !u.CheckPassword(password) {
				return nil, "", errs.ErrInvalidCredentials
			}
			token := m.nextToken()
			u.AddToken(token)
			return u, token, nil
		}
	}
	return nil, "", errs.ErrInvalidCredentials
}

// Logout implements UserService.
func (m *MockUserService) Logout(_ context.Context, u *user.User, token string) error {
	if m.Err != nil {
		return m.Err
	}
	u.RemoveToken(token)
	return nil
}

// LogoutAll implements UserService.
func (m *MockUserService) LogoutAll(_ context.Context, u *user.User) error {
	if m.Err != nil {
		return m.Err
	}
	u.ClearTokens()
	return nil
}

// UpdateProfile implements UserService.
func (m *MockUserService) UpdateProfile(_ context.Context, u *user.User, updates service.UserUpdates) error {
	if m.Err != nil {
		return m.Err
	}

	if updates.Name != nil {
		if err := u.SetName(*updates.Name); err != nil {
			return err
		}
	}
	if updates.Email != nil {
		if err := u.SetEmail(*updates.Email); err != nil {
			return err
		}
	}
	if updates.Age != nil {
		if err := u.SetAge(*updates.Age); err != nil {
			return err
		}
	}
	if updates.Password != nil {
		if err := u.SetPassword(*updates.Password); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAccount implements UserService.
func (m *MockUserService) DeleteAccount(_ context.Context, u *user.User) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.users, u.ID().String())
	return nil
}

// UploadAvatar implements UserService.
func (m *MockUserService) UploadAvatar(
	_ context.Context,
	u *user.User,
	filename string,
	size int64,
	data []byte,
) error {
	if m.Err != nil {
		return m.Err
	}

	if err := avatar.Accept(filename, size); err != nil {
		return err
	}
	normalized, err := avatar.Normalize(data)
	if err != nil {
		return err
	}
	m.avatars[u.ID().String()] = normalized
	return nil
}

// DeleteAvatar implements UserService.
func (m *MockUserService) DeleteAvatar(_ context.Context, u *user.User) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.avatars, u.ID().String())
	return nil
}

// GetAvatar implements UserService.
func (m *MockUserService) GetAvatar(_ context.Context, userID uuid.UUID) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	data, ok := m.avatars[userID.String()]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return data, nil
}
