package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"circulapp/pkg/errors"
)

// MaxPage bounds the page query parameter so offsets stay small.
const MaxPage = 10000

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// GetPaginationParams reads page and limit from the query string. Missing
// values fall back to page 1 and defaultLimit; a page outside [1, MaxPage]
// or a limit outside [1, maxLimit] is rejected.
func GetPaginationParams(c echo.Context, defaultLimit, maxLimit int) (PaginationParams, error) {
	var details []errors.FieldError

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > MaxPage {
			details = append(details, errors.FieldError{
				Field:   "page",
				Message: fmt.Sprintf("page must be between 1 and %d", MaxPage),
			})
		} else {
			page = v
		}
	}

	limit := defaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxLimit {
			details = append(details, errors.FieldError{
				Field:   "limit",
				Message: fmt.Sprintf("limit must be between 1 and %d", maxLimit),
			})
		} else {
			limit = v
		}
	}

	if len(details) > 0 {
		return PaginationParams{}, errors.Validation("Invalid query parameters", details...)
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, nil
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.Validation("Invalid query parameters",
			errors.FieldError{Field: name, Message: name + " must be true or false"})
	}
	return &v, nil
}

// QueryTime parses an optional RFC3339 timestamp query parameter.
func QueryTime(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, errors.Validation("Invalid query parameters",
			errors.FieldError{Field: name, Message: name + " must be an ISO8601 timestamp"})
	}
	return &v, nil
}
