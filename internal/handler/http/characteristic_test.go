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

func sampleCharacteristic() *domain.Characteristic {
	now := time.Now().UTC()
	return &domain.Characteristic{
		ID:   3,
		Name: "Skin type",
		Slug: "skin-type",
		Values: []domain.CharacteristicValue{
			{Key: "dry", Label: "Dry"},
			{Key: "oily", Label: "Oily"},
		},
		FieldType: domain.FieldTypeSelect,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateCharacteristic_Success(t *testing.T) {
	router, m := setupRouter(t)

	m.chars.On("Create", mock.Anything, mock.AnythingOfType("*domain.Characteristic")).Return(nil)

	b, _ := json.Marshal(CreateCharacteristicRequest{
		Name: "Skin type",
		Values: []CharacteristicValueRequest{
			{Key: "dry", Label: "Dry"},
			{Key: "oily", Label: "Oily"},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/characteristics", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
	m.chars.AssertExpectations(t)
}

func TestCreateCharacteristic_MissingValues(t *testing.T) {
	router, _ := setupRouter(t)

	b, _ := json.Marshal(CreateCharacteristicRequest{Name: "Skin type"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/characteristics", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestCreateCharacteristic_ValueMissingLabel(t *testing.T) {
	router, _ := setupRouter(t)

	b, _ := json.Marshal(CreateCharacteristicRequest{
		Name:   "Skin type",
		Values: []CharacteristicValueRequest{{Key: "dry"}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/characteristics", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestCreateCharacteristic_InvalidFieldType(t *testing.T) {
	router, _ := setupRouter(t)

	b, _ := json.Marshal(CreateCharacteristicRequest{
		Name:      "Skin type",
		Values:    []CharacteristicValueRequest{{Key: "dry", Label: "Dry"}},
		FieldType: "checkbox",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/characteristics", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestListCharacteristics_Success(t *testing.T) {
	router, m := setupRouter(t)

	m.chars.On("List", mock.Anything).Return([]domain.Characteristic{*sampleCharacteristic()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/characteristics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
	m.chars.AssertExpectations(t)
}

func TestGetCharacteristic_NotFound(t *testing.T) {
	router, m := setupRouter(t)

	m.chars.On("GetByID", mock.Anything, int64(99)).Return(nil, apperrors.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/characteristics/99", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	m.chars.AssertExpectations(t)
}

func TestUpdateCharacteristic_ReplacesValueSet(t *testing.T) {
	router, m := setupRouter(t)

	m.chars.On("GetByID", mock.Anything, int64(3)).Return(sampleCharacteristic(), nil)
	m.chars.On("Update", mock.Anything, mock.AnythingOfType("*domain.Characteristic")).Return(nil)

	b, _ := json.Marshal(UpdateCharacteristicRequest{
		Values: []CharacteristicValueRequest{
			{Key: "combination", Label: "Combination"},
		},
	})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/characteristics/3", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	m.chars.AssertExpectations(t)
}

func TestDeleteCharacteristic_Success(t *testing.T) {
	router, m := setupRouter(t)

	m.chars.On("Delete", mock.Anything, int64(3)).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/characteristics/3", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	m.chars.AssertExpectations(t)
}

func TestBulkDeleteCharacteristics_Success(t *testing.T) {
	router, m := setupRouter(t)

	m.chars.On("BulkDelete", mock.Anything, []int64{3, 4}).Return(2, nil)

	b, _ := json.Marshal(BulkDeleteRequest{IDs: []int64{3, 4}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/characteristics/bulk/delete", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), data["deleted"])
	m.chars.AssertExpectations(t)
}
