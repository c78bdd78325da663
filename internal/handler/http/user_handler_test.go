package httphandler_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/domain/uuid"
	httphandler "github.com/taskhive/taskhive/internal/handler/http"
	"github.com/taskhive/taskhive/internal/infrastructure/httpserver"
	"github.com/taskhive/taskhive/internal/middleware"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = httpserver.NewRequestValidator()
	return e
}

// setupAuthContext puts an authenticated user into the request context the
// way the auth middleware would.
func setupAuthContext(c echo.Context, u *user.User, token string) {
	c.Set(string(middleware.ContextKeyUser), u)
	c.Set(string(middleware.ContextKeyToken), token)
}

func newTestUser(t *testing.T) *user.User {
	t.Helper()
	u, err := user.NewUser("Mike", "mike@example.com", "sturdy-secret", 28)
	require.NoError(t, err)
	return u
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httpserver.Response {
	t.Helper()
	var resp httpserver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUserHandler_SignUp(t *testing.T) {
	t.Run("successful signup", func(t *testing.T) {
		e := newEcho()
		handler := httphandler.NewUserHandler(httphandler.NewMockUserService())

		reqBody := `{"name": "Mike", "email": "Mike@Example.com", "password": "sturdy-secret", "age": 28}`
		req := httptest.NewRequest(stdhttp.MethodPost, "/users", strings.NewReader(reqBody))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, handler.SignUp(c))
		assert.Equal(t, stdhttp.StatusCreated, rec.Code)

		resp := decodeEnvelope(t, rec)
		assert.True(t, resp.Success)

		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var session httphandler.SessionResponse
		require.NoError(t, json.Unmarshal(data, &session))

		assert.Equal(t, "mike@example.com", session.User.Email)
		assert.NotEmpty(t, session.Token)
		assert.NotEmpty(t, session.User.ID)
	})

	t.Run("password is never echoed back", func(t *testing.T) {
		e := newEcho()
		handler := httphandler.NewUserHandler(httphandler.NewMockUserService())

		reqBody := `{"name": "Mike", "email": "mike@example.com", "password": "sturdy-secret", "age": 28}`
		req := httptest.NewRequest(stdhttp.MethodPost, "/users", strings.NewReader(reqBody))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		require.NoError(t, handler.SignUp(e.NewContext(req, rec)))
		assert.NotContains(t, rec.Body.String(), "sturdy-secret")
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"missing name", `{"email": "a@b.com", "password": "sturdy-secret"}`},
			{"missing email", `{"name": "Mike", "password": "sturdy-secret"}`},
			{"malformed email", `{"name": "Mike", "email": "nope", "password": "sturdy-secret"}`},
			{"missing password", `{"name": "Mike", "email": "a@b.com"}`},
			{"short password", `{"name": "Mike", "email": "a@b.com", "password": "short"}`},
			{"forbidden password", `{"name": "Mike", "email": "a@b.com", "password": "password123"}`},
			{"not json", `not json at all`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e := newEcho()
				handler := httphandler.NewUserHandler(httphandler.NewMockUserService())

				req := httptest.NewRequest(stdhttp.MethodPost, "/users", strings.NewReader(tt.body))
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				rec := httptest.NewRecorder()

				require.NoError(t, handler.SignUp(e.NewContext(req, rec)))
				assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
				assert.False(t, decodeEnvelope(t, rec).Success)
			})
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		e := newEcho()
		mock := httphandler.NewMockUserService()
		handler := httphandler.NewUserHandler(mock)

		body := `{"name": "Mike", "email": "mike@example.com", "password": "sturdy-secret", "age": 28}`

		req := httptest.NewRequest(stdhttp.MethodPost, "/users", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		require.NoError(t, handler.SignUp(e.NewContext(req, httptest.NewRecorder())))

		req = httptest.NewRequest(stdhttp.MethodPost, "/users", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		require.NoError(t, handler.SignUp(e.NewContext(req, rec)))

		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	})
}

func TestUserHandler_Login(t *testing.T) {
	signUp := func(t *testing.T, handler *httphandler.UserHandler, e *echo.Echo) {
		t.Helper()
		body := `{"name": "Mike", "email": "mike@example.com", "password": "sturdy-secret", "age": 28}`
		req := httptest.NewRequest(stdhttp.MethodPost, "/users", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		require.NoError(t, handler.SignUp(e.NewContext(req, httptest.NewRecorder())))
	}

	t.Run("successful login", func(t *testing.T) {
		e := newEcho()
		handler := httphandler.NewUserHandler(httphandler.NewMockUserService())
		signUp(t, handler, e)

		body := `{"email": "mike@example.com", "password": "sturdy-secret"}`
		req := httptest.NewRequest(stdhttp.MethodPost, "/users/login", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Login(e.NewContext(req, rec)))
		assert.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.True(t, decodeEnvelope(t, rec).Success)
	})

	t.Run("wrong password and unknown email are the same 400", func(t *testing.T) {
		e := newEcho()
		handler := httphandler.NewUserHandler(httphandler.NewMockUserService())
		signUp(t, handler, e)

		attempt := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(stdhttp.MethodPost, "/users/login", strings.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			require.NoError(t, handler.Login(e.NewContext(req, rec)))
			return rec
		}

		wrongPass := attempt(`{"email": "mike@example.com", "password": "wrong-secret"}`)
		unknown := attempt(`{"email": "nobody@example.com", "password": "sturdy-secret"}`)

		assert.Equal(t, stdhttp.StatusBadRequest, wrongPass.Code)
		assert.Equal(t, stdhttp.StatusBadRequest, unknown.Code)
		assert.JSONEq(t, wrongPass.Body.String(), unknown.Body.String(),
			"responses must not reveal which credential was wrong")
	})
}

func TestUserHandler_Sessions(t *testing.T) {
	t.Run("logout removes only the presented token", func(t *testing.T) {
		e := newEcho()
		mock := httphandler.NewMockUserService()
		handler := httphandler.NewUserHandler(mock)

		u := newTestUser(t)
		u.AddToken("session-a")
		u.AddToken("session-b")
		mock.AddUser(u)

		req := httptest.NewRequest(stdhttp.MethodPost, "/users/logout", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		setupAuthContext(c, u, "session-a")

		require.NoError(t, handler.Logout(c))
		assert.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.False(t, u.HasToken("session-a"))
		assert.True(t, u.HasToken("session-b"))
	})

	t.Run("logoutAll removes every token", func(t *testing.T) {
		e := newEcho()
		mock := httphandler.NewMockUserService()
		handler := httphandler.NewUserHandler(mock)

		u := newTestUser(t)
		u.AddToken("session-a")
		u.AddToken("session-b")
		mock.AddUser(u)

		req := httptest.NewRequest(stdhttp.MethodPost, "/users/logoutAll", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		setupAuthContext(c, u, "session-a")

		require.NoError(t, handler.LogoutAll(c))
		assert.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.Empty(t, u.Tokens())
	})
}

func TestUserHandler_GetMe(t *testing.T) {
	e := newEcho()
	handler := httphandler.NewUserHandler(httphandler.NewMockUserService())

	u := newTestUser(t)
	req := httptest.NewRequest(stdhttp.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, u, "session-a")

	require.NoError(t, handler.GetMe(c))
	assert.Equal(t, stdhttp.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var profile httphandler.UserResponse
	require.NoError(t, json.Unmarshal(data, &profile))
	assert.Equal(t, u.ID().String(), profile.ID)
	assert.Equal(t, "mike@example.com", profile.Email)
}

func TestUserHandler_UpdateMe(t *testing.T) {
	patch := func(t *testing.T, body string) (*httptest.ResponseRecorder, *user.User) {
		t.Helper()

		e := newEcho()
		mock := httphandler.NewMockUserService()
		handler := httphandler.NewUserHandler(mock)

		u := newTestUser(t)
		mock.AddUser(u)

		req := httptest.NewRequest(stdhttp.MethodPatch, "/users/me", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		setupAuthContext(c, u, "session-a")

		require.NoError(t, handler.UpdateMe(c))
		return rec, u
	}

	t.Run("updates allowed fields", func(t *testing.T) {
		rec, u := patch(t, `{"name": "Michael", "age": 29}`)

		assert.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.Equal(t, "Michael", u.Name())
		assert.Equal(t, 29, u.Age())
	})

	t.Run("unknown field rejects everything", func(t *testing.T) {
		rec, u := patch(t, `{"name": "Michael", "location": "Berlin"}`)

		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
		assert.Equal(t, "Mike", u.Name(), "valid fields in the same request are not applied")
	})

	t.Run("id is not updatable", func(t *testing.T) {
		rec, _ := patch(t, `{"id": "123"}`)
		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	})

	t.Run("invalid value", func(t *testing.T) {
		rec, u := patch(t, `{"password": "short"}`)

		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
		assert.True(t, u.CheckPassword("sturdy-secret"))
	})

	t.Run("wrong type", func(t *testing.T) {
		rec, _ := patch(t, `{"age": "twenty"}`)
		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	})
}

func TestUserHandler_DeleteMe(t *testing.T) {
	e := newEcho()
	mock := httphandler.NewMockUserService()
	handler := httphandler.NewUserHandler(mock)

	u := newTestUser(t)
	mock.AddUser(u)

	req := httptest.NewRequest(stdhttp.MethodDelete, "/users/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, u, "session-a")

	require.NoError(t, handler.DeleteMe(c))
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
}

func avatarUploadRequest(t *testing.T, filename string, content []byte) *stdhttp.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(stdhttp.MethodPost, "/users/me/avatar", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	return buf.Bytes()
}

func TestUserHandler_Avatar(t *testing.T) {
	t.Run("upload then fetch", func(t *testing.T) {
		e := newEcho()
		mock := httphandler.NewMockUserService()
		handler := httphandler.NewUserHandler(mock)

		u := newTestUser(t)
		mock.AddUser(u)

		rec := httptest.NewRecorder()
		c := e.NewContext(avatarUploadRequest(t, "me.png", smallPNG(t)), rec)
		setupAuthContext(c, u, "session-a")
		require.NoError(t, handler.UploadAvatar(c))
		assert.Equal(t, stdhttp.StatusOK, rec.Code)

		// public fetch by id
		req := httptest.NewRequest(stdhttp.MethodGet, "/users/"+u.ID().String()+"/avatar", nil)
		rec = httptest.NewRecorder()
		c = e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(u.ID().String())

		require.NoError(t, handler.GetAvatar(c))
		assert.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
		assert.NotEmpty(t, rec.Body.Bytes())
	})

	t.Run("rejects wrong extension", func(t *testing.T) {
		e := newEcho()
		mock := httphandler.NewMockUserService()
		handler := httphandler.NewUserHandler(mock)

		u := newTestUser(t)
		rec := httptest.NewRecorder()
		c := e.NewContext(avatarUploadRequest(t, "notes.txt", []byte("text")), rec)
		setupAuthContext(c, u, "session-a")

		require.NoError(t, handler.UploadAvatar(c))
		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	})

	t.Run("missing form field", func(t *testing.T) {
		e := newEcho()
		handler := httphandler.NewUserHandler(httphandler.NewMockUserService())

		u := newTestUser(t)
		req := httptest.NewRequest(stdhttp.MethodPost, "/users/me/avatar", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		setupAuthContext(c, u, "session-a")

		require.NoError(t, handler.UploadAvatar(c))
		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	})

	t.Run("fetch absent avatar is 404", func(t *testing.T) {
		e := newEcho()
		handler := httphandler.NewUserHandler(httphandler.NewMockUserService())

		id := uuid.NewUUID()
		req := httptest.NewRequest(stdhttp.MethodGet, "/users/"+id.String()+"/avatar", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(id.String())

		require.NoError(t, handler.GetAvatar(c))
		assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	})

	t.Run("delete avatar", func(t *testing.T) {
		e := newEcho()
		mock := httphandler.NewMockUserService()
		handler := httphandler.NewUserHandler(mock)

		u := newTestUser(t)
		mock.AddUser(u)

		rec := httptest.NewRecorder()
		c := e.NewContext(avatarUploadRequest(t, "me.png", smallPNG(t)), rec)
		setupAuthContext(c, u, "session-a")
		require.NoError(t, handler.UploadAvatar(c))

		req := httptest.NewRequest(stdhttp.MethodDelete, "/users/me/avatar", nil)
		rec = httptest.NewRecorder()
		c = e.NewContext(req, rec)
		setupAuthContext(c, u, "session-a")
		require.NoError(t, handler.DeleteAvatar(c))
		assert.Equal(t, stdhttp.StatusOK, rec.Code)

		req = httptest.NewRequest(stdhttp.MethodGet, "/users/"+u.ID().String()+"/avatar", nil)
		rec = httptest.NewRecorder()
		c = e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(u.ID().String())
		require.NoError(t, handler.GetAvatar(c))
		assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	})
}
