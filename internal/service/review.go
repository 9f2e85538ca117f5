package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sellforge/ratings-service/internal/cache"
	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/internal/event"
	"github.com/sellforge/ratings-service/internal/repository"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
	"github.com/sellforge/ratings-service/pkg/slug"
)

// List view constants. A view reshapes the same snapshot dataset rather than
// querying different tables.
const (
	ViewObjects = "objects"
	ViewDisplay = "display"
	ViewIDs     = "ids"
	ViewSlugs   = "slugs"
	ViewCounts  = "counts"
)

// ProductChecker verifies that a product exists in the catalog.
type ProductChecker interface {
	ProductExists(ctx context.Context, productID string) (bool, error)
}

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	repo            repository.ReviewRepository
	attributes      repository.AttributeRepository
	characteristics repository.CharacteristicRepository
	scoring         *ScoringService
	catalog         ProductChecker
	cache           *cache.Cache
	producer        *event.Producer
	autoApprove     bool
	logger          *slog.Logger
}

// NewReviewService creates a new review service. When autoApprove is set,
// submissions skip moderation and go straight to approved.
func NewReviewService(
	repo repository.ReviewRepository,
	attributes repository.AttributeRepository,
	characteristics repository.CharacteristicRepository,
	scoring *ScoringService,
	catalog ProductChecker,
	cache *cache.Cache,
	producer *event.Producer,
	autoApprove bool,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		repo:            repo,
		attributes:      attributes,
		characteristics: characteristics,
		scoring:         scoring,
		catalog:         catalog,
		cache:           cache,
		producer:        producer,
		autoApprove:     autoApprove,
		logger:          logger,
	}
}

// SubmitReviewInput holds the parameters for submitting a review.
type SubmitReviewInput struct {
	AuthorID             string
	AuthorName           string
	AuthorEmail          string
	Title                string
	Summary              string
	Body                 string
	OrderID              string
	OverallScore         int
	AttributeScores      map[int64]int
	CharacteristicValues map[int64]string
}

// SubmitReview validates and persists a new review. The review row, its
// rating rows (one overall row plus one per scored attribute), its author
// meta rows and the denormalized snapshot are written in a single
// transaction; a failure anywhere leaves no partial rows. On success the
// product aggregate is recomputed and caches are invalidated.
func (s *ReviewService) SubmitReview(ctx context.Context, productID string, input *SubmitReviewInput) (*domain.Review, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.AuthorName == "" {
		return nil, apperrors.InvalidInput("author name is required")
	}
	if input.Title == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	if input.Body == "" {
		return nil, apperrors.InvalidInput("body is required")
	}
	if !domain.IsValidScore(input.OverallScore) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("overall score must be between %d and %d", domain.ScoreMin, domain.ScoreMax))
	}

	exists, err := s.catalog.ProductExists(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("check product exists: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("product", productID)
	}

	ratings, err := s.buildRatings(ctx, productID, input)
	if err != nil {
		return nil, err
	}

	meta, err := s.buildAuthorMeta(ctx, input)
	if err != nil {
		return nil, err
	}

	status := domain.ReviewStatusPending
	if s.autoApprove {
		status = domain.ReviewStatusApproved
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ProductID:   productID,
		AuthorID:    input.AuthorID,
		AuthorName:  input.AuthorName,
		AuthorEmail: input.AuthorEmail,
		Title:       input.Title,
		Slug:        slug.Generate(input.Title),
		Summary:     input.Summary,
		Body:        input.Body,
		Status:      status,
		Verified:    input.OrderID != "",
		TotalScore:  input.OverallScore,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Submit(ctx, review, ratings, meta); err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}

	if _, err := s.scoring.Recalculate(ctx, productID); err != nil {
		s.logger.ErrorContext(ctx, "failed to recalculate product rating after submit",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	s.invalidateReviewCaches(ctx, productID, review.ID)

	if err := s.producer.PublishReviewSubmitted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.submitted event",
			slog.Int64("review_id", review.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.Int64("review_id", review.ID),
		slog.String("product_id", productID),
		slog.String("status", review.Status),
		slog.Bool("verified", review.Verified),
	)

	return review, nil
}

// buildRatings turns the input scores into rating rows: the overall score
// first, then one row per scored attribute in stable ID order. Every scored
// attribute must exist and apply to the product.
func (s *ReviewService) buildRatings(ctx context.Context, productID string, input *SubmitReviewInput) ([]domain.Rating, error) {
	ratings := []domain.Rating{{
		AttributeID: domain.OverallAttributeID,
		Score:       input.OverallScore,
	}}

	if len(input.AttributeScores) == 0 {
		return ratings, nil
	}

	attrs, err := s.attributes.List(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	byID := make(map[int64]*domain.Attribute, len(attrs))
	for i := range attrs {
		byID[attrs[i].ID] = &attrs[i]
	}

	ids := make([]int64, 0, len(input.AttributeScores))
	for id := range input.AttributeScores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		score := input.AttributeScores[id]
		if !domain.IsValidScore(score) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("score for attribute %d must be between %d and %d", id, domain.ScoreMin, domain.ScoreMax))
		}

		attr, ok := byID[id]
		if !ok || !attr.AppliesTo(productID) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("attribute %d does not exist for this product", id))
		}

		ratings = append(ratings, domain.Rating{AttributeID: id, Score: score})
	}

	return ratings, nil
}

// buildAuthorMeta validates the reviewer's characteristic selections against
// the configured value sets and turns them into author meta rows.
func (s *ReviewService) buildAuthorMeta(ctx context.Context, input *SubmitReviewInput) ([]domain.AuthorMeta, error) {
	if len(input.CharacteristicValues) == 0 {
		return []domain.AuthorMeta{}, nil
	}

	chars, err := s.characteristics.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list characteristics: %w", err)
	}
	byID := make(map[int64]*domain.Characteristic, len(chars))
	for i := range chars {
		byID[chars[i].ID] = &chars[i]
	}

	ids := make([]int64, 0, len(input.CharacteristicValues))
	for id := range input.CharacteristicValues {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	meta := make([]domain.AuthorMeta, 0, len(ids))
	for _, id := range ids {
		value := input.CharacteristicValues[id]

		ch, ok := byID[id]
		if !ok {
			return nil, apperrors.InvalidInput(fmt.Sprintf("characteristic %d does not exist", id))
		}
		if !ch.HasValue(value) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("value %q is not allowed for characteristic %q", value, ch.Name))
		}

		meta = append(meta, domain.AuthorMeta{CharacteristicID: id, Value: value})
	}

	return meta, nil
}

// ReviewDetails is a review together with its rating and author meta rows.
type ReviewDetails struct {
	Review     domain.Review       `json:"review"`
	Ratings    []domain.Rating     `json:"ratings"`
	AuthorMeta []domain.AuthorMeta `json:"author_meta"`
}

// GetReview returns a review with its rating and author meta rows.
func (s *ReviewService) GetReview(ctx context.Context, id int64) (*ReviewDetails, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.ReviewKey(id), func(ctx context.Context) (*ReviewDetails, error) {
		review, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get review: %w", err)
		}

		ratings, meta, err := s.repo.GetDetails(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get review details: %w", err)
		}

		return &ReviewDetails{Review: *review, Ratings: ratings, AuthorMeta: meta}, nil
	})
}

// ListReviewsInput holds the parameters for listing a product's reviews.
type ListReviewsInput struct {
	View    string
	Status  *string
	Page    int
	PerPage int
}

// ReviewListing is the reshaped result of a product review listing. Exactly
// one of the view fields is populated, matching View.
type ReviewListing struct {
	View       string                  `json:"view"`
	TotalCount int                     `json:"total_count"`
	Page       int                     `json:"page"`
	PerPage    int                     `json:"per_page"`
	Reviews    []domain.ReviewSnapshot `json:"reviews,omitempty"`
	Display    []DisplayReview         `json:"display,omitempty"`
	IDs        []int64                 `json:"ids,omitempty"`
	Slugs      []string                `json:"slugs,omitempty"`
	Counts     map[string]int          `json:"counts,omitempty"`
}

// DisplayAttributeScore is one scored attribute resolved to its display
// labels.
type DisplayAttributeScore struct {
	AttributeID int64  `json:"attribute_id"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	MinLabel    string `json:"min_label,omitempty"`
	MaxLabel    string `json:"max_label,omitempty"`
}

// DisplayCharacteristic is one reviewer characteristic resolved to its
// display labels. Label falls back to the raw stored key when the value no
// longer resolves.
type DisplayCharacteristic struct {
	CharacteristicID int64  `json:"characteristic_id"`
	Name             string `json:"name"`
	Value            string `json:"value"`
	Label            string `json:"label"`
}

// DisplayReview is a snapshot row with attribute and characteristic labels
// merged in for rendering.
type DisplayReview struct {
	domain.ReviewSnapshot
	Attributes      []DisplayAttributeScore `json:"attributes"`
	Characteristics []DisplayCharacteristic `json:"characteristics"`
}

// cachedReviewList is the shape stored under the review list cache key.
type cachedReviewList struct {
	Snapshots []domain.ReviewSnapshot `json:"snapshots"`
	Total     int                     `json:"total"`
}

// ListReviews returns a product's reviews reshaped by the requested view.
// The default approved listing is served through the cache; filtered or
// paginated queries go straight to the repository.
func (s *ReviewService) ListReviews(ctx context.Context, productID string, input *ListReviewsInput) (*ReviewListing, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	view := input.View
	if view == "" {
		view = ViewObjects
	}

	if view == ViewCounts {
		counts, err := s.repo.CountByStatus(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("count reviews: %w", err)
		}
		total := 0
		for _, c := range counts {
			total += c
		}
		return &ReviewListing{View: ViewCounts, TotalCount: total, Counts: counts}, nil
	}

	filter := repository.ReviewFilter{
		Status:  input.Status,
		Page:    input.Page,
		PerPage: input.PerPage,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}

	snapshots, total, err := s.listSnapshots(ctx, productID, filter)
	if err != nil {
		return nil, err
	}

	listing := &ReviewListing{
		View:       view,
		TotalCount: total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
	}

	switch view {
	case ViewObjects:
		listing.Reviews = snapshots
	case ViewDisplay:
		display, err := s.buildDisplay(ctx, productID, snapshots)
		if err != nil {
			return nil, err
		}
		listing.Display = display
	case ViewIDs:
		ids := make([]int64, 0, len(snapshots))
		for _, snap := range snapshots {
			ids = append(ids, snap.ReviewID)
		}
		listing.IDs = ids
	case ViewSlugs:
		slugs := make([]string, 0, len(snapshots))
		for _, snap := range snapshots {
			slugs = append(slugs, snap.Slug)
		}
		listing.Slugs = slugs
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown view %q", view))
	}

	return listing, nil
}

// listSnapshots fetches snapshot rows, caching only the default approved
// first-page listing. The cache keys are enumerable; arbitrary filter
// combinations would not be, so they bypass the cache.
func (s *ReviewService) listSnapshots(ctx context.Context, productID string, filter repository.ReviewFilter) ([]domain.ReviewSnapshot, int, error) {
	defaultListing := filter.Status != nil &&
		*filter.Status == domain.ReviewStatusApproved &&
		filter.Page == 1 &&
		filter.PerPage == 20

	if !defaultListing {
		return s.repo.ListSnapshotsByProduct(ctx, productID, filter)
	}

	cached, err := cache.GetOrLoad(ctx, s.cache, cache.ReviewListKey(productID), func(ctx context.Context) (cachedReviewList, error) {
		snapshots, total, err := s.repo.ListSnapshotsByProduct(ctx, productID, filter)
		if err != nil {
			return cachedReviewList{}, fmt.Errorf("list review snapshots: %w", err)
		}
		return cachedReviewList{Snapshots: snapshots, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	if cached.Snapshots == nil {
		cached.Snapshots = []domain.ReviewSnapshot{}
	}

	return cached.Snapshots, cached.Total, nil
}

// buildDisplay merges attribute and characteristic labels into snapshot rows.
// Orphaned IDs (taxonomy deleted after submission) fall back to generated
// names and raw value keys instead of failing the listing.
func (s *ReviewService) buildDisplay(ctx context.Context, productID string, snapshots []domain.ReviewSnapshot) ([]DisplayReview, error) {
	attrs, err := cache.GetOrLoad(ctx, s.cache, cache.AttributesKey(productID), func(ctx context.Context) ([]domain.Attribute, error) {
		return s.attributes.List(ctx, productID)
	})
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}

	chars, err := cache.GetOrLoad(ctx, s.cache, cache.CharacteristicsKey(), func(ctx context.Context) ([]domain.Characteristic, error) {
		return s.characteristics.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list characteristics: %w", err)
	}

	attrByID := make(map[int64]*domain.Attribute, len(attrs))
	for i := range attrs {
		attrByID[attrs[i].ID] = &attrs[i]
	}
	charByID := make(map[int64]*domain.Characteristic, len(chars))
	for i := range chars {
		charByID[chars[i].ID] = &chars[i]
	}

	display := make([]DisplayReview, 0, len(snapshots))
	for _, snap := range snapshots {
		row := DisplayReview{
			ReviewSnapshot:  snap,
			Attributes:      make([]DisplayAttributeScore, 0, len(snap.AttributeScores)),
			Characteristics: make([]DisplayCharacteristic, 0, len(snap.CharacteristicValues)),
		}

		attrIDs := make([]int64, 0, len(snap.AttributeScores))
		for id := range snap.AttributeScores {
			attrIDs = append(attrIDs, id)
		}
		sort.Slice(attrIDs, func(i, j int) bool { return attrIDs[i] < attrIDs[j] })

		for _, id := range attrIDs {
			entry := DisplayAttributeScore{
				AttributeID: id,
				Name:        fmt.Sprintf("attribute-%d", id),
				Score:       snap.AttributeScores[id],
			}
			if attr, ok := attrByID[id]; ok {
				entry.Name = attr.Name
				entry.MinLabel = attr.MinLabel
				entry.MaxLabel = attr.MaxLabel
			}
			row.Attributes = append(row.Attributes, entry)
		}

		charIDs := make([]int64, 0, len(snap.CharacteristicValues))
		for id := range snap.CharacteristicValues {
			charIDs = append(charIDs, id)
		}
		sort.Slice(charIDs, func(i, j int) bool { return charIDs[i] < charIDs[j] })

		for _, id := range charIDs {
			value := snap.CharacteristicValues[id]
			entry := DisplayCharacteristic{
				CharacteristicID: id,
				Name:             fmt.Sprintf("characteristic-%d", id),
				Value:            value,
				Label:            value,
			}
			if ch, ok := charByID[id]; ok {
				entry.Name = ch.Name
				entry.Label = ch.LabelFor(value)
			}
			row.Characteristics = append(row.Characteristics, entry)
		}

		display = append(display, row)
	}

	return display, nil
}

// UpdateReviewInput holds the parameters for an admin review edit. Nil fields
// are left unchanged.
type UpdateReviewInput struct {
	Title   *string
	Summary *string
	Body    *string
	Status  *string
}

// UpdateReview applies an admin edit to a review. The snapshot is rebuilt in
// the same transaction; a status change additionally recomputes the product
// aggregate.
func (s *ReviewService) UpdateReview(ctx context.Context, id int64, input *UpdateReviewInput) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review for update: %w", err)
	}

	oldStatus := review.Status

	if input.Title != nil {
		if *input.Title == "" {
			return nil, apperrors.InvalidInput("title must not be empty")
		}
		review.Title = *input.Title
	}
	if input.Summary != nil {
		review.Summary = *input.Summary
	}
	if input.Body != nil {
		if *input.Body == "" {
			return nil, apperrors.InvalidInput("body must not be empty")
		}
		review.Body = *input.Body
	}
	if input.Status != nil {
		if !domain.IsValidStatus(*input.Status) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", *input.Status))
		}
		review.Status = *input.Status
	}

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	statusChanged := review.Status != oldStatus
	if statusChanged {
		if _, err := s.scoring.Recalculate(ctx, review.ProductID); err != nil {
			s.logger.ErrorContext(ctx, "failed to recalculate product rating after status change",
				slog.String("product_id", review.ProductID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.invalidateReviewCaches(ctx, review.ProductID, review.ID)

	if statusChanged {
		if err := s.producer.PublishReviewStatusChanged(ctx, review, oldStatus); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.status_changed event",
				slog.Int64("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.Int64("review_id", review.ID),
		slog.String("status", review.Status),
	)

	return review, nil
}

// BulkUpdateStatus sets the status of multiple reviews in one transaction,
// then recomputes the aggregate of every touched product.
func (s *ReviewService) BulkUpdateStatus(ctx context.Context, ids []int64, status string) ([]domain.Review, error) {
	if len(ids) == 0 {
		return nil, apperrors.InvalidInput("review ids are required")
	}
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", status))
	}

	updated, err := s.repo.BulkUpdateStatus(ctx, ids, status)
	if err != nil {
		return nil, fmt.Errorf("bulk update status: %w", err)
	}

	products := make(map[string]struct{})
	for i := range updated {
		products[updated[i].ProductID] = struct{}{}
		s.invalidateReviewCaches(ctx, updated[i].ProductID, updated[i].ID)
	}

	for productID := range products {
		if _, err := s.scoring.Recalculate(ctx, productID); err != nil {
			s.logger.ErrorContext(ctx, "failed to recalculate product rating after bulk status change",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}

	for i := range updated {
		if err := s.producer.PublishReviewStatusChanged(ctx, &updated[i], ""); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.status_changed event",
				slog.Int64("review_id", updated[i].ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "bulk status update applied",
		slog.Int("requested", len(ids)),
		slog.Int("updated", len(updated)),
		slog.String("status", status),
	)

	return updated, nil
}

// DeleteReview removes a review and its dependent rows in one transaction,
// then recomputes the product aggregate.
func (s *ReviewService) DeleteReview(ctx context.Context, id int64) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if _, err := s.scoring.Recalculate(ctx, review.ProductID); err != nil {
		s.logger.ErrorContext(ctx, "failed to recalculate product rating after delete",
			slog.String("product_id", review.ProductID),
			slog.String("error", err.Error()),
		)
	}

	s.invalidateReviewCaches(ctx, review.ProductID, id)

	if err := s.producer.PublishReviewDeleted(ctx, id, review.ProductID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.Int64("review_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.Int64("review_id", id),
		slog.String("product_id", review.ProductID),
	)

	return nil
}

// invalidateReviewCaches drops the product's cached listing and the single
// review entry after any review write.
func (s *ReviewService) invalidateReviewCaches(ctx context.Context, productID string, reviewID int64) {
	if err := s.cache.Invalidate(ctx, cache.GroupReviews, productID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate review list cache",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.cache.InvalidateReview(ctx, reviewID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate review cache",
			slog.Int64("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}
}
