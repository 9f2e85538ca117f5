package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellforge/ratings-service/internal/domain"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
)

func sampleAttribute() *domain.Attribute {
	now := time.Now().UTC()
	return &domain.Attribute{
		ID:        7,
		Name:      "Build quality",
		Slug:      "build-quality",
		MinLabel:  "Flimsy",
		MaxLabel:  "Solid",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAttribute_Success(t *testing.T) {
	router, m := setupRouter(t)

	m.attrs.On("Create", mock.Anything, mock.AnythingOfType("*domain.Attribute")).Return(nil)

	b, _ := json.Marshal(CreateAttributeRequest{
		Name:     "Build quality",
		MinLabel: "Flimsy",
		MaxLabel: "Solid",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attributes", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
	m.attrs.AssertExpectations(t)
}

func TestCreateAttribute_MissingName(t *testing.T) {
	router, _ := setupRouter(t)

	b, _ := json.Marshal(CreateAttributeRequest{MinLabel: "Flimsy"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attributes", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestCreateAttribute_InvalidProductID(t *testing.T) {
	router, _ := setupRouter(t)

	productID := "not-a-uuid"
	b, _ := json.Marshal(CreateAttributeRequest{
		Name:      "Build quality",
		ProductID: &productID,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attributes", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestListAttributes_Success(t *testing.T) {
	router, m := setupRouter(t)

	m.attrs.On("List", mock.Anything, "").Return([]domain.Attribute{*sampleAttribute()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attributes", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
	m.attrs.AssertExpectations(t)
}

func TestListAttributes_ScopedToProduct(t *testing.T) {
	router, m := setupRouter(t)

	m.attrs.On("List", mock.Anything, "prod-100").Return([]domain.Attribute{*sampleAttribute()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attributes?product_id=prod-100", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	m.attrs.AssertExpectations(t)
}

func TestGetAttribute_NotFound(t *testing.T) {
	router, m := setupRouter(t)

	m.attrs.On("GetByID", mock.Anything, int64(99)).Return(nil, apperrors.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attributes/99", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	m.attrs.AssertExpectations(t)
}

func TestUpdateAttribute_Success(t *testing.T) {
	router, m := setupRouter(t)

	m.attrs.On("GetByID", mock.Anything, int64(7)).Return(sampleAttribute(), nil)
	m.attrs.On("Update", mock.Anything, mock.AnythingOfType("*domain.Attribute")).Return(nil)

	newName := "Sturdiness"
	b, _ := json.Marshal(UpdateAttributeRequest{Name: &newName})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/attributes/7", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	m.attrs.AssertExpectations(t)
}

func TestDeleteAttribute_Success(t *testing.T) {
	router, m := setupRouter(t)

	m.attrs.On("GetByID", mock.Anything, int64(7)).Return(sampleAttribute(), nil)
	m.attrs.On("Delete", mock.Anything, int64(7)).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/attributes/7", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	m.attrs.AssertExpectations(t)
}

func TestBulkDeleteAttributes_Success(t *testing.T) {
	router, m := setupRouter(t)

	m.attrs.On("BulkDelete", mock.Anything, []int64{7, 8}).Return(2, nil)

	b, _ := json.Marshal(BulkDeleteRequest{IDs: []int64{7, 8}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attributes/bulk/delete", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), data["deleted"])
	m.attrs.AssertExpectations(t)
}

func TestBulkDeleteAttributes_EmptyIDs(t *testing.T) {
	router, _ := setupRouter(t)

	b, _ := json.Marshal(BulkDeleteRequest{IDs: []int64{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attributes/bulk/delete", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}
