package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-rest-service/internal/adapter/gin/response"
	"user-rest-service/internal/usecase/user"
	apperrors "user-rest-service/pkg/errors"
	"user-rest-service/pkg/logger"
)

const (
	msgUserCreated = "user created successfully"
	msgUserUpdated = "user updated successfully"
	msgUserDeleted = "user deleted successfully"
	msgBadBody     = "malformed request body"
	msgBodyTooBig  = "request body too large"
	msgBadID       = "user id must be a positive integer"
)

// UserHandler handles HTTP requests for the users resource
type UserHandler struct {
	uc  user.UserUsecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.UserUsecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// UserRequest represents the HTTP request body for creating or replacing a user.
// Any other key, including an id of any type, is ignored.
type UserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Register mounts the user routes on the given group
func (h *UserHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.ListUsers)
	rg.POST("", h.CreateUser)
	rg.GET("/:id", h.GetUser)
	rg.PUT("/:id", h.UpdateUser)
	rg.DELETE("/:id", h.DeleteUser)
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	resp, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, "ListUsers", err)
		return
	}

	response.OK(c, response.Success(resp.Users))
}

// GetUser handles GET /api/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	resp, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.fail(c, "GetUser", err)
		return
	}

	response.OK(c, response.Success(resp.User))
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req UserRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.fail(c, "CreateUser", err)
		return
	}

	response.Created(c, response.SuccessMessage(msgUserCreated, resp.User))
}

// UpdateUser handles PUT /api/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req UserRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.uc.UpdateUser(c.Request.Context(), user.UpdateUserRequest{
		ID:    id,
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.fail(c, "UpdateUser", err)
		return
	}

	response.OK(c, response.SuccessMessage(msgUserUpdated, resp.User))
}

// DeleteUser handles DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if _, err := h.uc.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: id}); err != nil {
		h.fail(c, "DeleteUser", err)
		return
	}

	response.OK(c, response.SuccessMessage(msgUserDeleted, nil))
}

// pathID parses the :id path parameter and writes a 400 when it is not a positive integer
func (h *UserHandler) pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		logger.WithContext(c.Request.Context(), h.log).Warn("invalid user id", zap.String("id", idStr))
		c.JSON(http.StatusBadRequest, response.Error(msgBadID))
		return 0, false
	}
	return id, true
}

// bind decodes the JSON body and writes a 400 when it is malformed, 413 when it is over the cap
func (h *UserHandler) bind(c *gin.Context, req *UserRequest) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	logger.WithContext(c.Request.Context(), h.log).Warn("invalid request body", zap.Error(err))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, response.Error(msgBodyTooBig))
		return false
	}
	c.JSON(http.StatusBadRequest, response.Error(msgBadBody))
	return false
}

// fail renders err as an error envelope with its mapped status
func (h *UserHandler) fail(c *gin.Context, op string, err error) {
	log := logger.WithContext(c.Request.Context(), h.log)
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		log.Error(op+" failed", zap.Error(err))
	} else {
		log.Debug(op+" rejected", zap.Error(err))
	}
	response.Fail(c, err)
}
