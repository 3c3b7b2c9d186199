package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "user-rest-service/pkg/errors"
)

// Envelope statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    any                    `json:"data,omitempty"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
}

// Success builds a success envelope carrying data.
func Success(data any) Envelope {
	return Envelope{Status: StatusSuccess, Data: data}
}

// SuccessMessage builds a success envelope with a message and optional data.
func SuccessMessage(msg string, data any) Envelope {
	return Envelope{Status: StatusSuccess, Message: msg, Data: data}
}

// Error builds an error envelope.
func Error(msg string, fields ...apperrors.FieldError) Envelope {
	return Envelope{Status: StatusError, Message: msg, Errors: fields}
}

// OK writes a 200 response.
func OK(c *gin.Context, env Envelope) {
	c.JSON(http.StatusOK, env)
}

// Created writes a 201 response.
func Created(c *gin.Context, env Envelope) {
	c.JSON(http.StatusCreated, env)
}

// Fail writes the error envelope for err using its mapped HTTP status.
func Fail(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), FromError(err))
}

// Abort stops the handler chain with an error envelope.
func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Error(msg))
}

// FromError converts an application error into an error envelope.
// Unknown errors get a generic message.
func FromError(err error) Envelope {
	var s apperrors.HTTPStatuser
	if !errors.As(err, &s) {
		return Error(http.StatusText(http.StatusInternalServerError))
	}

	var v *apperrors.ValidationError
	if errors.As(err, &v) {
		return Error(v.Message, v.Fields...)
	}
	return Error(err.Error())
}
