package response

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "circulapp/pkg/errors"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorMapsAppError(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, apperrors.EditWindowExpired("Messages can only be edited within 24 hours")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, apperrors.CodeEditWindowExpired, body.Code)
	assert.Equal(t, "Messages can only be edited within 24 hours", body.Message)
}

func TestErrorSetsRetryAfterOnRateLimit(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, apperrors.TooManyRequests("Rate limit exceeded", 2400*time.Millisecond)))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, apperrors.CodeTooManyRequests, decode(t, rec).Code)

	c, rec = newContext()
	require.NoError(t, Error(c, apperrors.Forbidden("no", nil)))
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestErrorHidesInternalDetailUnlessDebug(t *testing.T) {
	cause := stderrors.New("connection reset")

	SetDebug(false)
	c, rec := newContext()
	require.NoError(t, Error(c, apperrors.Internal("Failed to load chats", cause)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, decode(t, rec).Error)

	SetDebug(true)
	t.Cleanup(func() { SetDebug(false) })
	c, rec = newContext()
	require.NoError(t, Error(c, apperrors.Internal("Failed to load chats", cause)))
	assert.Equal(t, "connection reset", decode(t, rec).Error)
}

func TestErrorMapsValidation(t *testing.T) {
	type input struct {
		Emoji string `validate:"required"`
	}
	err := validator.New().Struct(input{})
	require.Error(t, err)

	c, rec := newContext()
	require.NoError(t, Error(c, err))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, apperrors.CodeValidation, body.Code)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "Emoji is required", body.Errors[0].Message)
}

func TestErrorMapsEchoHTTPError(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, Error(c, echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, apperrors.CodeUnauthorized, body.Code)
	assert.Equal(t, "Invalid or expired token", body.Message)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = NewPagination(1, 20, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}
