package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sellforge/ratings-service/internal/service"
	"github.com/sellforge/ratings-service/pkg/httputil"
	"github.com/sellforge/ratings-service/pkg/validator"
)

// AttributeHandler handles HTTP requests for scoring attribute endpoints.
type AttributeHandler struct {
	attributes *service.AttributeService
	logger     *slog.Logger
}

// NewAttributeHandler creates a new attribute HTTP handler.
func NewAttributeHandler(attributes *service.AttributeService, logger *slog.Logger) *AttributeHandler {
	return &AttributeHandler{
		attributes: attributes,
		logger:     logger,
	}
}

// CreateAttributeRequest is the JSON request body for creating an attribute.
type CreateAttributeRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Slug        string  `json:"slug" validate:"omitempty,max=255"`
	Description string  `json:"description" validate:"max=1000"`
	MinLabel    string  `json:"min_label" validate:"max=100"`
	MaxLabel    string  `json:"max_label" validate:"max=100"`
	ProductID   *string `json:"product_id" validate:"omitempty,uuid"`
}

// UpdateAttributeRequest is the JSON request body for updating an attribute.
type UpdateAttributeRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Slug        *string `json:"slug" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	MinLabel    *string `json:"min_label" validate:"omitempty,max=100"`
	MaxLabel    *string `json:"max_label" validate:"omitempty,max=100"`
}

// BulkDeleteRequest is the JSON request body for bulk deletes.
type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// CreateAttribute handles POST /api/v1/attributes
func (h *AttributeHandler) CreateAttribute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit

	var req CreateAttributeRequest
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

	attr, err := h.attributes.CreateAttribute(r.Context(), &service.CreateAttributeInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		MinLabel:    req.MinLabel,
		MaxLabel:    req.MaxLabel,
		ProductID:   req.ProductID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: attr})
}

// ListAttributes handles GET /api/v1/attributes
func (h *AttributeHandler) ListAttributes(w http.ResponseWriter, r *http.Request) {
	attrs, err := h.attributes.ListAttributes(r.Context(), r.URL.Query().Get("product_id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: attrs})
}

// GetAttribute handles GET /api/v1/attributes/{id}
func (h *AttributeHandler) GetAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	attr, err := h.attributes.GetAttribute(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: attr})
}

// UpdateAttribute handles PATCH /api/v1/attributes/{id}
func (h *AttributeHandler) UpdateAttribute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateAttributeRequest
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

	attr, err := h.attributes.UpdateAttribute(r.Context(), id, &service.UpdateAttributeInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		MinLabel:    req.MinLabel,
		MaxLabel:    req.MaxLabel,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: attr})
}

// DeleteAttribute handles DELETE /api/v1/attributes/{id}
func (h *AttributeHandler) DeleteAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.attributes.DeleteAttribute(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkDeleteAttributes handles POST /api/v1/attributes/bulk/delete
func (h *AttributeHandler) BulkDeleteAttributes(w http.ResponseWriter, r *http.Request) {
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

	deleted, err := h.attributes.BulkDeleteAttributes(r.Context(), req.IDs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"deleted": deleted}})
}
