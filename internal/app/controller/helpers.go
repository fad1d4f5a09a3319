package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/placedir/placedir-backend/internal/app/service"
	apperrors "github.com/placedir/placedir-backend/internal/errors"
	"github.com/placedir/placedir-backend/internal/middleware"
)

// respondServiceError maps a service error onto the HTTP response.
// resource names the request subject for unexpected errors.
func respondServiceError(c *gin.Context, err error, resource string) {
	log := middleware.GetLoggerFromContext(c)

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		log.Warn("Validation failed", map[string]interface{}{
			"fields": verr.Fields,
		})
		apperrors.RespondWithValidationError(c, verr.Fields)
	case errors.Is(err, service.ErrPlaceNotFound):
		apperrors.NotFound(c, apperrors.PlaceNotFound, "Place not found")
	case errors.Is(err, service.ErrRatingPlaceNotFound):
		apperrors.NotFound(c, apperrors.RatingPlaceNotFound, "The place being rated does not exist")
	case errors.Is(err, service.ErrSlugConflict):
		apperrors.Conflict(c, apperrors.PlaceSlugConflict, "Could not assign a unique identifier, please retry")
	case errors.Is(err, service.ErrPlaceVersionConflict):
		apperrors.Conflict(c, apperrors.PlaceVersionConflict, "The place was changed by someone else, reload and retry")
	case errors.Is(err, service.ErrForbidden):
		apperrors.Forbidden(c, apperrors.AuthzOwnerOnly, "Only the owner can modify this place")
	default:
		log.Error("Request failed", err, map[string]interface{}{
			"resource": resource,
		})
		apperrors.RespondWithParsedError(c, err, resource)
	}
}

// requireUserID aborts with 401 when no user was authenticated
func requireUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Warn("Unauthenticated request", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return userID, true
}

// parseIDParam reads a positive numeric path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// queryParams collects typed query values and the fields that failed to parse
type queryParams struct {
	c      *gin.Context
	fields map[string]string
}

func newQueryParams(c *gin.Context) *queryParams {
	return &queryParams{c: c, fields: map[string]string{}}
}

// Int returns the value of name, or nil when absent
func (q *queryParams) Int(name string) *int {
	raw, ok := q.c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		q.fields[name] = "must be an integer"
		return nil
	}
	return &v
}

// Float returns the value of name, or nil when absent
func (q *queryParams) Float(name string) *float64 {
	raw, ok := q.c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		q.fields[name] = "must be a number"
		return nil
	}
	return &v
}

// Bool treats a missing value as false
func (q *queryParams) Bool(name string) bool {
	raw := q.c.Query(name)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.fields[name] = "must be true or false"
		return false
	}
	return v
}

func (q *queryParams) require(name string) {
	if _, ok := q.fields[name]; !ok {
		q.fields[name] = "is required"
	}
}

// ok responds with 400 when any parameter failed
func (q *queryParams) ok() bool {
	if len(q.fields) == 0 {
		return true
	}
	apperrors.RespondWithValidationError(q.c, q.fields)
	return false
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// bindJSON binds the request body or responds with 400
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   apperrors.ValidationInvalidInput,
			"message": "Invalid request data",
			"details": err.Error(),
		})
		return false
	}
	return true
}
