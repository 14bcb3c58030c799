package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobdeck/api/internal/pkg/apperror"
)

// Success sends a successful JSON response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 Created response
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 No Content response
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an RFC 7807 error response
func Error(c *gin.Context, err *apperror.AppError) {
	if requestID := c.GetString("request_id"); requestID != "" && err.RequestID == "" {
		err = err.WithRequestID(requestID)
	}
	c.Header("Content-Type", "application/problem+json")
	c.JSON(err.Status, err)
}

// ErrorFromErr converts any error to an AppError and sends the response.
// Unknown errors become opaque internal errors so nothing leaks to clients.
func ErrorFromErr(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		Error(c, appErr)
		return
	}
	Error(c, apperror.InternalError(
		"An unexpected error occurred",
		"Try again later",
	).WithError(err))
}
