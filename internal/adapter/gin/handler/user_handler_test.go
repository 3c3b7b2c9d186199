package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	usecase "user-rest-service/internal/usecase/user"
	pkgerrors "user-rest-service/pkg/errors"
)

// MockUserUsecase is a mock implementation of user.UserUsecase
type MockUserUsecase struct {
	mock.Mock
}

func (m *MockUserUsecase) ListUsers(ctx context.Context) (*usecase.ListUsersResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ListUsersResponse), args.Error(1)
}

func (m *MockUserUsecase) GetUser(ctx context.Context, req usecase.GetUserRequest) (*usecase.GetUserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.GetUserResponse), args.Error(1)
}

func (m *MockUserUsecase) CreateUser(ctx context.Context, req usecase.CreateUserRequest) (*usecase.CreateUserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CreateUserResponse), args.Error(1)
}

func (m *MockUserUsecase) UpdateUser(ctx context.Context, req usecase.UpdateUserRequest) (*usecase.UpdateUserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.UpdateUserResponse), args.Error(1)
}

func (m *MockUserUsecase) DeleteUser(ctx context.Context, req usecase.DeleteUserRequest) (*usecase.DeleteUserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.DeleteUserResponse), args.Error(1)
}

type envelope struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Errors  []pkgerrors.FieldError `json:"errors"`
}

func setupTest(t *testing.T) (*gin.Engine, *MockUserUsecase) {
	gin.SetMode(gin.TestMode)
	mockUsecase := new(MockUserUsecase)
	handler := NewUserHandler(mockUsecase, zaptest.NewLogger(t))

	r := gin.New()
	handler.Register(r.Group("/api/users"))
	return r, mockUsecase
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewBuffer(raw)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestListUsers(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("ListUsers", mock.Anything).Return(&usecase.ListUsersResponse{
			Users: []usecase.User{
				{ID: 1, Name: "User 1", Email: "user1@example.com"},
				{ID: 2, Name: "User 2", Email: "user2@example.com"},
			},
		}, nil)

		w, env := do(t, r, http.MethodGet, "/api/users", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "success", env.Status)
		var users []usecase.User
		require.NoError(t, json.Unmarshal(env.Data, &users))
		assert.Len(t, users, 2)
	})

	t.Run("Empty", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("ListUsers", mock.Anything).Return(&usecase.ListUsersResponse{Users: []usecase.User{}}, nil)

		w, env := do(t, r, http.MethodGet, "/api/users", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, string(env.Data))
	})
}

func TestGetUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("GetUser", mock.Anything, usecase.GetUserRequest{ID: 1}).Return(&usecase.GetUserResponse{
			User: usecase.User{ID: 1, Name: "John Doe", Email: "john@example.com"},
		}, nil)

		w, env := do(t, r, http.MethodGet, "/api/users/1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":1,"name":"John Doe","email":"john@example.com"}`, string(env.Data))
	})

	t.Run("Invalid ID", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		for _, path := range []string{"/api/users/abc", "/api/users/0", "/api/users/-4"} {
			w, env := do(t, r, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, path)
			assert.Equal(t, "error", env.Status)
		}
		mockUsecase.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("Not Found", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("GetUser", mock.Anything, usecase.GetUserRequest{ID: 1}).
			Return(nil, pkgerrors.NewNotFoundError("user", "user not found with id: 1"))

		w, env := do(t, r, http.MethodGet, "/api/users/1", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "error", env.Status)
		assert.Equal(t, "user not found with id: 1", env.Message)
		assert.Empty(t, env.Data)
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("CreateUser", mock.Anything, usecase.CreateUserRequest{
			Name:  "John Doe",
			Email: "john@example.com",
		}).Return(&usecase.CreateUserResponse{
			User: usecase.User{ID: 1, Name: "John Doe", Email: "john@example.com"},
		}, nil)

		w, env := do(t, r, http.MethodPost, "/api/users", map[string]any{
			"id":    99,
			"name":  "John Doe",
			"email": "john@example.com",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "success", env.Status)
		assert.Equal(t, msgUserCreated, env.Message)
		assert.JSONEq(t, `{"id":1,"name":"John Doe","email":"john@example.com"}`, string(env.Data))
	})

	t.Run("Non Numeric Body ID Ignored", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("CreateUser", mock.Anything, usecase.CreateUserRequest{
			Name:  "John Doe",
			Email: "john@example.com",
		}).Return(&usecase.CreateUserResponse{
			User: usecase.User{ID: 1, Name: "John Doe", Email: "john@example.com"},
		}, nil)

		w, env := do(t, r, http.MethodPost, "/api/users", map[string]any{
			"id":    "x",
			"name":  "John Doe",
			"email": "john@example.com",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"id":1,"name":"John Doe","email":"john@example.com"}`, string(env.Data))
	})

	t.Run("Invalid Request Body", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		w, env := do(t, r, http.MethodPost, "/api/users", "invalid json")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, msgBadBody, env.Message)
		mockUsecase.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("Body Too Large", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		mockUsecase := new(MockUserUsecase)
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 16)
			c.Next()
		})
		NewUserHandler(mockUsecase, zaptest.NewLogger(t)).Register(r.Group("/api/users"))

		w, env := do(t, r, http.MethodPost, "/api/users", map[string]any{
			"name":  "a name that is far longer than sixteen bytes",
			"email": "john@example.com",
		})

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, msgBodyTooBig, env.Message)
		mockUsecase.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("Validation Error", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).Return(nil,
			pkgerrors.NewValidationError("invalid user data", pkgerrors.FieldError{Field: "name", Message: "is required"}))

		w, env := do(t, r, http.MethodPost, "/api/users", map[string]any{"email": "john@example.com"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid user data", env.Message)
		assert.Equal(t, []pkgerrors.FieldError{{Field: "name", Message: "is required"}}, env.Errors)
	})

	t.Run("Conflict", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).Return(nil,
			pkgerrors.NewAlreadyExistsError("user", "a user with name John Doe already exists"))

		w, _ := do(t, r, http.MethodPost, "/api/users", map[string]any{"name": "John Doe", "email": "x@example.com"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Usecase Error", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).Return(nil,
			pkgerrors.NewInternalError("failed to create user", errors.New("disk full")))

		w, env := do(t, r, http.MethodPost, "/api/users", map[string]any{"name": "John Doe", "email": "john@example.com"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to create user: disk full", env.Message)
	})
}

func TestUpdateUser(t *testing.T) {
	t.Run("Success uses path id", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("UpdateUser", mock.Anything, usecase.UpdateUserRequest{
			ID:    1,
			Name:  "John Updated",
			Email: "john.updated@example.com",
		}).Return(&usecase.UpdateUserResponse{
			User: usecase.User{ID: 1, Name: "John Updated", Email: "john.updated@example.com"},
		}, nil)

		w, env := do(t, r, http.MethodPut, "/api/users/1", map[string]any{
			"id":    55,
			"name":  "John Updated",
			"email": "john.updated@example.com",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, msgUserUpdated, env.Message)
		mockUsecase.AssertExpectations(t)
	})

	t.Run("Invalid ID", func(t *testing.T) {
		r, _ := setupTest(t)

		w, _ := do(t, r, http.MethodPut, "/api/users/abc", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Not Found", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("UpdateUser", mock.Anything, mock.Anything).Return(nil,
			pkgerrors.NewNotFoundError("user", "user not found with id: 8"))

		w, env := do(t, r, http.MethodPut, "/api/users/8", map[string]any{"name": "n", "email": "n@example.com"})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "user not found with id: 8", env.Message)
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("DeleteUser", mock.Anything, usecase.DeleteUserRequest{ID: 1}).Return(&usecase.DeleteUserResponse{ID: 1}, nil)

		w, env := do(t, r, http.MethodDelete, "/api/users/1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "success", env.Status)
		assert.Equal(t, msgUserDeleted, env.Message)
		assert.Empty(t, env.Data)
	})

	t.Run("Not Found", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("DeleteUser", mock.Anything, usecase.DeleteUserRequest{ID: 2}).Return(nil,
			pkgerrors.NewNotFoundError("user", "user not found with id: 2"))

		w, _ := do(t, r, http.MethodDelete, "/api/users/2", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
