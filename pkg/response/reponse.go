package response

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "circulapp/pkg/errors"
	"circulapp/pkg/logger"
)

var debug bool

// SetDebug toggles diagnostic detail on 5xx bodies. Off in production.
func SetDebug(enabled bool) {
	debug = enabled
}

type ErrorBody struct {
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

type MessageBody struct {
	Message string `json:"message"`
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(total) / limit
		if int(total)%limit > 0 {
			totalPages++
		}
	}

	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

func Success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

func Message(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, MessageBody{Message: message})
}

func Error(c echo.Context, err error) error {
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return handleValidationError(c, validationErr)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body := ErrorBody{
			Message: appErr.Message,
			Code:    appErr.Code,
			Errors:  appErr.Details,
		}
		if appErr.RetryAfter > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
		}
		if appErr.Status >= http.StatusInternalServerError {
			logger.Error("%s %s: %v", c.Request().Method, c.Request().URL.Path, appErr)
			if debug && appErr.Err != nil {
				body.Error = appErr.Err.Error()
			}
		}
		return c.JSON(appErr.Status, body)
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return c.JSON(httpErr.Code, ErrorBody{
			Message: fmt.Sprint(httpErr.Message),
			Code:    codeForStatus(httpErr.Code),
		})
	}

	logger.Error("%s %s: unhandled error: %v", c.Request().Method, c.Request().URL.Path, err)
	body := ErrorBody{
		Message: "An unexpected error occurred",
		Code:    apperrors.CodeInternal,
	}
	if debug {
		body.Error = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, body)
}

// HTTPErrorHandler routes errors returned by handlers and middleware through Error.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if writeErr := Error(c, err); writeErr != nil {
		logger.Error("failed to write error response: %v", writeErr)
	}
}

func handleValidationError(c echo.Context, validationErr validator.ValidationErrors) error {
	details := make([]apperrors.FieldError, 0, len(validationErr))
	for _, err := range validationErr {
		details = append(details, apperrors.FieldError{
			Field:   err.Field(),
			Message: fieldMessage(err),
		})
	}

	return c.JSON(http.StatusBadRequest, ErrorBody{
		Message: "Validation failed",
		Code:    apperrors.CodeValidation,
		Errors:  details,
	})
}

func fieldMessage(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required", "required_without":
		return field + " is required"
	case "min":
		return field + " must be at least " + param
	case "max":
		return field + " must be at most " + param
	case "oneof":
		return field + " must be one of: " + param
	case "email":
		return field + " must be a valid email address"
	case "url":
		return field + " must be a valid URL"
	case "mongoid":
		return field + " must be a valid id"
	case "latitude", "longitude":
		return field + " must be a valid coordinate"
	default:
		return field + " is invalid"
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperrors.CodeBadRequest
	case http.StatusUnauthorized:
		return apperrors.CodeUnauthorized
	case http.StatusForbidden:
		return apperrors.CodeForbidden
	case http.StatusNotFound:
		return apperrors.CodeNotFound
	case http.StatusConflict:
		return apperrors.CodeConflict
	case http.StatusTooManyRequests:
		return apperrors.CodeTooManyRequests
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		if status >= http.StatusInternalServerError {
			return apperrors.CodeInternal
		}
		return http.StatusText(status)
	}
}
