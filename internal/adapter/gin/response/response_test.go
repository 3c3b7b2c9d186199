package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "user-rest-service/pkg/errors"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Envelope
	}{
		{
			name: "validation with fields",
			err:  apperrors.NewValidationError("invalid user data", apperrors.FieldError{Field: "name", Message: "is required"}),
			expected: Envelope{
				Status:  StatusError,
				Message: "invalid user data",
				Errors:  []apperrors.FieldError{{Field: "name", Message: "is required"}},
			},
		},
		{
			name:     "not found",
			err:      apperrors.NewNotFoundError("user", "user not found with id: 3"),
			expected: Envelope{Status: StatusError, Message: "user not found with id: 3"},
		},
		{
			name:     "internal exposes cause",
			err:      apperrors.NewInternalError("failed to create user", errors.New("disk full")),
			expected: Envelope{Status: StatusError, Message: "failed to create user: disk full"},
		},
		{
			name:     "unknown error is hidden",
			err:      errors.New("secret detail"),
			expected: Envelope{Status: StatusError, Message: "Internal Server Error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FromError(tt.err))
		})
	}
}

func TestFail_WritesMappedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, apperrors.NewAlreadyExistsError("user", "a user with name x already exists"))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.NotContains(t, body, "data")
	assert.NotContains(t, body, "errors")
}

func TestSuccess_EmptyListKeepsData(t *testing.T) {
	raw, err := json.Marshal(Success([]int{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","data":[]}`, string(raw))
}
