// Package http exposes the service over a chi-routed JSON API.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/internal/service"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
	"github.com/sellforge/ratings-service/pkg/httputil"
	"github.com/sellforge/ratings-service/pkg/middleware"
	"github.com/sellforge/ratings-service/pkg/pagination"
	"github.com/sellforge/ratings-service/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	reviews *service.ReviewService
	scoring *service.ScoringService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(reviews *service.ReviewService, scoring *service.ScoringService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		scoring: scoring,
		logger:  logger,
	}
}

// SubmitReviewRequest is the JSON request body for submitting a review.
type SubmitReviewRequest struct {
	AuthorID             string           `json:"author_id" validate:"omitempty,uuid"`
	AuthorName           string           `json:"author_name" validate:"required,min=1,max=255"`
	AuthorEmail          string           `json:"author_email" validate:"omitempty,email"`
	Title                string           `json:"title" validate:"required,min=1,max=255"`
	Summary              string           `json:"summary" validate:"max=500"`
	Body                 string           `json:"body" validate:"required,min=1"`
	OrderID              string           `json:"order_id" validate:"omitempty,max=64"`
	OverallScore         int              `json:"overall_score" validate:"required,min=1,max=7"`
	AttributeScores      map[int64]int    `json:"attribute_scores"`
	CharacteristicValues map[int64]string `json:"characteristic_values"`
}

// UpdateReviewRequest is the JSON request body for an admin review edit.
type UpdateReviewRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=255"`
	Summary *string `json:"summary" validate:"omitempty,max=500"`
	Body    *string `json:"body" validate:"omitempty,min=1"`
	Status  *string `json:"status" validate:"omitempty,oneof=pending approved rejected hidden"`
}

// BulkStatusRequest is the JSON request body for a bulk status change.
type BulkStatusRequest struct {
	IDs    []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
	Status string  `json:"status" validate:"required,oneof=pending approved rejected hidden"`
}

// SubmitReview handles POST /api/v1/products/{productId}/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	productID := chi.URLParam(r, "productId")

	var req SubmitReviewRequest
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

	input := &service.SubmitReviewInput{
		AuthorID:             req.AuthorID,
		AuthorName:           req.AuthorName,
		AuthorEmail:          req.AuthorEmail,
		Title:                req.Title,
		Summary:              req.Summary,
		Body:                 req.Body,
		OrderID:              req.OrderID,
		OverallScore:         req.OverallScore,
		AttributeScores:      req.AttributeScores,
		CharacteristicValues: req.CharacteristicValues,
	}

	review, err := h.reviews.SubmitReview(r.Context(), productID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// ListReviews handles GET /api/v1/products/{productId}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	params := pagination.FromRequest(r)

	input := &service.ListReviewsInput{
		View:    r.URL.Query().Get("view"),
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	// Public listings default to approved; only admins can ask for any
	// other status.
	status := r.URL.Query().Get("status")
	if status == "" {
		status = domain.ReviewStatusApproved
	}
	if status != domain.ReviewStatusApproved && middleware.RoleFromContext(r.Context()) != "admin" {
		httputil.WriteError(w, r, apperrors.Forbidden("listing unapproved reviews requires an admin token"), h.logger)
		return
	}
	input.Status = &status

	listing, err := h.reviews.ListReviews(r.Context(), productID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: listing})
}

// GetSummary handles GET /api/v1/products/{productId}/reviews/summary
func (h *ReviewHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	summary, err := h.scoring.GetSummary(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}

// GetReview handles GET /api/v1/reviews/{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	details, err := h.reviews.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Unapproved reviews are only visible to admins. Report not-found
	// rather than forbidden so the moderation queue stays unenumerable.
	if details.Review.Status != domain.ReviewStatusApproved && middleware.RoleFromContext(r.Context()) != "admin" {
		httputil.WriteError(w, r, apperrors.NotFound("review", chi.URLParam(r, "id")), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: details})
}

// UpdateReview handles PATCH /api/v1/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateReviewRequest
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

	review, err := h.reviews.UpdateReview(r.Context(), id, &service.UpdateReviewInput{
		Title:   req.Title,
		Summary: req.Summary,
		Body:    req.Body,
		Status:  req.Status,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// BulkUpdateStatus handles POST /api/v1/reviews/bulk/status
func (h *ReviewHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit

	var req BulkStatusRequest
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

	updated, err := h.reviews.BulkUpdateStatus(r.Context(), req.IDs, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"updated": len(updated),
		"reviews": updated,
	}})
}

// DeleteReview handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.reviews.DeleteReview(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
