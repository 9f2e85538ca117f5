package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sellforge/ratings-service/pkg/errors"
	"github.com/sellforge/ratings-service/pkg/logger"
	"github.com/sellforge/ratings-service/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// --- WriteJSON ---

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Response{Data: "ok"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestWriteJSON_ErrorPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: "bad score"},
	})

	resp := decodeBody(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	assert.Equal(t, "bad score", resp.Error.Message)
}

// --- WriteError ---

func TestWriteError_AppError_UsesItsStatusAndCode(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reviews/9", nil)

	WriteError(rec, req, apperrors.NotFound("review", "9"), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestWriteError_SentinelNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, apperrors.Wrap(apperrors.ErrNotFound, "load summary"), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestWriteError_UnknownError_Returns500WithoutLeaking(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, io.ErrUnexpectedEOF, testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "EOF")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-77"))

	WriteError(rec, req, apperrors.InvalidInput("bad view"), testLogger())

	resp := decodeBody(t, rec)
	assert.Equal(t, "corr-77", resp.Error.RequestID)
}

// --- WriteValidationError ---

func TestWriteValidationError_FieldMap(t *testing.T) {
	type form struct {
		Title string `validate:"required"`
		Score int    `validate:"min=1,max=7"`
	}

	err := validator.Validate(form{Score: 9})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Fields)
}

func TestWriteValidationError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, io.ErrUnexpectedEOF)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// --- PaginatedResponse ---

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]string{"a", "b"}, 45, 2, 20)

	assert.Equal(t, 45, resp.TotalCount)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNext)
}

func TestNewPaginatedResponse_LastPage(t *testing.T) {
	resp := NewPaginatedResponse([]string{"a"}, 41, 3, 20)

	assert.Equal(t, 3, resp.TotalPages)
	assert.False(t, resp.HasNext)
}

func TestNewPaginatedResponse_NilData(t *testing.T) {
	resp := NewPaginatedResponse[string](nil, 0, 1, 20)

	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

// --- ParseID ---

func TestParseID_Valid(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseID(rec, "42")

	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestParseID_Invalid(t *testing.T) {
	tests := []string{"abc", "0", "-3", "4.5", ""}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			rec := httptest.NewRecorder()
			_, ok := ParseID(rec, raw)

			assert.False(t, ok)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeBody(t, rec)
			assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
		})
	}
}
