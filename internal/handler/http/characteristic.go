package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/internal/service"
	"github.com/sellforge/ratings-service/pkg/httputil"
	"github.com/sellforge/ratings-service/pkg/validator"
)

// CharacteristicHandler handles HTTP requests for reviewer characteristic
// endpoints.
type CharacteristicHandler struct {
	characteristics *service.CharacteristicService
	logger          *slog.Logger
}

// NewCharacteristicHandler creates a new characteristic HTTP handler.
func NewCharacteristicHandler(characteristics *service.CharacteristicService, logger *slog.Logger) *CharacteristicHandler {
	return &CharacteristicHandler{
		characteristics: characteristics,
		logger:          logger,
	}
}

// CharacteristicValueRequest is one value of a characteristic's value set.
type CharacteristicValueRequest struct {
	Key   string `json:"key" validate:"required,min=1,max=100"`
	Label string `json:"label" validate:"required,min=1,max=255"`
}

// CreateCharacteristicRequest is the JSON request body for creating a
// characteristic.
type CreateCharacteristicRequest struct {
	Name        string                       `json:"name" validate:"required,min=1,max=255"`
	Slug        string                       `json:"slug" validate:"omitempty,max=255"`
	Description string                       `json:"description" validate:"max=1000"`
	Values      []CharacteristicValueRequest `json:"values" validate:"required,min=1,dive"`
	FieldType   string                       `json:"field_type" validate:"omitempty,oneof=select radio"`
}

// UpdateCharacteristicRequest is the JSON request body for updating a
// characteristic. A non-nil values array replaces the whole value set.
type UpdateCharacteristicRequest struct {
	Name        *string                      `json:"name" validate:"omitempty,min=1,max=255"`
	Slug        *string                      `json:"slug" validate:"omitempty,max=255"`
	Description *string                      `json:"description" validate:"omitempty,max=1000"`
	Values      []CharacteristicValueRequest `json:"values" validate:"omitempty,min=1,dive"`
	FieldType   *string                      `json:"field_type" validate:"omitempty,oneof=select radio"`
}

func toDomainValues(values []CharacteristicValueRequest) []domain.CharacteristicValue {
	if values == nil {
		return nil
	}
	out := make([]domain.CharacteristicValue, 0, len(values))
	for _, v := range values {
		out = append(out, domain.CharacteristicValue{Key: v.Key, Label: v.Label})
	}
	return out
}

// CreateCharacteristic handles POST /api/v1/characteristics
func (h *CharacteristicHandler) CreateCharacteristic(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit

	var req CreateCharacteristicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	ch, err := h.characteristics.CreateCharacteristic(r.Context(), &service.CreateCharacteristicInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Values:      toDomainValues(req.Values),
		FieldType:   req.FieldType,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: ch})
}

// ListCharacteristics handles GET /api/v1/characteristics
func (h *CharacteristicHandler) ListCharacteristics(w http.ResponseWriter, r *http.Request) {
	chars, err := h.characteristics.ListCharacteristics(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: chars})
}

// GetCharacteristic handles GET /api/v1/characteristics/{id}
func (h *CharacteristicHandler) GetCharacteristic(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ch, err := h.characteristics.GetCharacteristic(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ch})
}

// UpdateCharacteristic handles PATCH /api/v1/characteristics/{id}
func (h *CharacteristicHandler) UpdateCharacteristic(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateCharacteristicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	ch, err := h.characteristics.UpdateCharacteristic(r.Context(), id, &service.UpdateCharacteristicInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Values:      toDomainValues(req.Values),
		FieldType:   req.FieldType,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ch})
}

// DeleteCharacteristic handles DELETE /api/v1/characteristics/{id}
func (h *CharacteristicHandler) DeleteCharacteristic(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.characteristics.DeleteCharacteristic(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkDeleteCharacteristics handles POST /api/v1/characteristics/bulk/delete
func (h *CharacteristicHandler) BulkDeleteCharacteristics(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit

	var req BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	deleted, err := h.characteristics.BulkDeleteCharacteristics(r.Context(), req.IDs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"deleted": deleted}})
}
