package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Tamarin/internal/apperr"
	"github.com/lshigami/Tamarin/internal/dto"
)

// userIDFromQuery reads the acting user from the user_id query parameter.
// It writes the error response itself when the parameter is missing or
// malformed. User identity will move to the auth token once auth lands.
func userIDFromQuery(ctx *gin.Context) (uint, bool) {
	raw := ctx.Query("user_id")
	if raw == "" {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "user_id query parameter is required"})
		return 0, false
	}
	val, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid user_id format"})
		return 0, false
	}
	return uint(val), true
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}

// respondError translates service errors into HTTP statuses.
func respondError(ctx *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrValidationFailed),
		errors.Is(err, apperr.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrInsufficientContent),
		errors.Is(err, apperr.ErrExtractionFailed),
		errors.Is(err, apperr.ErrResponseMalformed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrServiceUnconfigured):
		status = http.StatusServiceUnavailable
	}
	ctx.JSON(status, dto.ErrorResponse{Message: message, Details: []string{err.Error()}})
}
