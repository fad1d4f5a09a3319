package errors

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Status  int    // HTTP 상태 코드
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError turns a storage level error into a response code without
// leaking SQL details. resource names what the request was about ("place",
// "rating", "favorite").
func ParseError(err error, resource string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	errLower := strings.ToLower(err.Error())

	// 1. GORM 기본 에러
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Status:  http.StatusNotFound,
			Code:    ResourceNotFound,
			Message: notFoundMessage(resource),
		}
	}

	// 2. Unique constraint (23505)
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}

	// 3. Check constraint (23514)
	if errors.Is(err, gorm.ErrCheckConstraintViolated) || strings.Contains(errLower, "check constraint") {
		if strings.Contains(errLower, "score") {
			return ErrorInfo{
				Status:  http.StatusBadRequest,
				Code:    RatingInvalidScore,
				Message: "Score must be between 1 and 5",
			}
		}
		return ErrorInfo{
			Status:  http.StatusBadRequest,
			Code:    ValidationInvalidInput,
			Message: "Input violates a data constraint",
		}
	}

	// 4. 요청 취소/시간 초과
	if strings.Contains(errLower, "context canceled") || strings.Contains(errLower, "deadline exceeded") {
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    InternalDatabaseError,
			Message: "The request timed out, please try again",
		}
	}

	// 5. 연결 에러
	if strings.Contains(errLower, "connection refused") || strings.Contains(errLower, "no such host") {
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    InternalDatabaseError,
			Message: "Storage is unavailable, please try again later",
		}
	}

	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: defaultMessage(resource),
	}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "slug") {
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    PlaceSlugConflict,
			Message: "That place identifier is already taken, please retry",
		}
	}
	if strings.Contains(errLower, "email") {
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    ResourceAlreadyExists,
			Message: "That email is already registered",
		}
	}
	return ErrorInfo{
		Status:  http.StatusConflict,
		Code:    ResourceAlreadyExists,
		Message: "The record already exists",
	}
}

func notFoundMessage(resource string) string {
	switch resource {
	case "place":
		return "Place not found"
	case "rating":
		return "Rating not found"
	case "user":
		return "User not found"
	default:
		return "Resource not found"
	}
}

func defaultMessage(resource string) string {
	switch resource {
	case "place":
		return "Failed to process the place request"
	case "rating":
		return "Failed to process the rating request"
	case "favorite":
		return "Failed to update favorites"
	default:
		return "Something went wrong, please try again later"
	}
}
