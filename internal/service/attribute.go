package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sellforge/ratings-service/internal/cache"
	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/internal/repository"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
	"github.com/sellforge/ratings-service/pkg/slug"
)

// AttributeService implements the business logic for scoring attributes.
type AttributeService struct {
	repo   repository.AttributeRepository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewAttributeService creates a new attribute service.
func NewAttributeService(repo repository.AttributeRepository, cache *cache.Cache, logger *slog.Logger) *AttributeService {
	return &AttributeService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// CreateAttributeInput holds the parameters for creating an attribute.
type CreateAttributeInput struct {
	Name        string
	Slug        string
	Description string
	MinLabel    string
	MaxLabel    string
	ProductID   *string
}

// CreateAttribute creates a new scoring attribute. The slug is derived from
// the name when not given. ProductID scopes the attribute to one product;
// nil makes it site-wide.
func (s *AttributeService) CreateAttribute(ctx context.Context, input *CreateAttributeInput) (*domain.Attribute, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("attribute name is required")
	}

	attrSlug := input.Slug
	if attrSlug == "" {
		attrSlug = slug.Generate(input.Name)
	}

	now := time.Now().UTC()
	attr := &domain.Attribute{
		Name:        input.Name,
		Slug:        attrSlug,
		Description: input.Description,
		MinLabel:    input.MinLabel,
		MaxLabel:    input.MaxLabel,
		ProductID:   input.ProductID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, attr); err != nil {
		return nil, fmt.Errorf("create attribute: %w", err)
	}

	s.invalidateTaxonomyCache(ctx, attr.ProductID)

	s.logger.InfoContext(ctx, "attribute created",
		slog.Int64("attribute_id", attr.ID),
		slog.String("slug", attr.Slug),
	)

	return attr, nil
}

// GetAttribute retrieves an attribute by its ID.
func (s *AttributeService) GetAttribute(ctx context.Context, id int64) (*domain.Attribute, error) {
	attr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attribute by id: %w", err)
	}
	return attr, nil
}

// ListAttributes returns all attributes, or the global plus product-scoped
// set when productID is given. The result is cached.
func (s *AttributeService) ListAttributes(ctx context.Context, productID string) ([]domain.Attribute, error) {
	attrs, err := cache.GetOrLoad(ctx, s.cache, cache.AttributesKey(productID), func(ctx context.Context) ([]domain.Attribute, error) {
		return s.repo.List(ctx, productID)
	})
	if err == nil && productID != "" {
		s.cache.TrackAttributeScope(ctx, productID)
	}
	return attrs, err
}

// UpdateAttributeInput holds the parameters for updating an attribute. Nil
// fields are left unchanged. Product scope is fixed at creation.
type UpdateAttributeInput struct {
	Name        *string
	Slug        *string
	Description *string
	MinLabel    *string
	MaxLabel    *string
}

// UpdateAttribute applies a partial update to an attribute.
func (s *AttributeService) UpdateAttribute(ctx context.Context, id int64, input *UpdateAttributeInput) (*domain.Attribute, error) {
	attr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attribute for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("attribute name must not be empty")
		}
		attr.Name = *input.Name
	}
	if input.Slug != nil && *input.Slug != "" {
		attr.Slug = *input.Slug
	}
	if input.Description != nil {
		attr.Description = *input.Description
	}
	if input.MinLabel != nil {
		attr.MinLabel = *input.MinLabel
	}
	if input.MaxLabel != nil {
		attr.MaxLabel = *input.MaxLabel
	}

	if err := s.repo.Update(ctx, attr); err != nil {
		return nil, fmt.Errorf("update attribute: %w", err)
	}

	s.invalidateTaxonomyCache(ctx, attr.ProductID)

	s.logger.InfoContext(ctx, "attribute updated",
		slog.Int64("attribute_id", attr.ID),
		slog.String("slug", attr.Slug),
	)

	return attr, nil
}

// DeleteAttribute removes an attribute. Existing rating rows keep the
// orphaned attribute ID and fall back to it at display time.
func (s *AttributeService) DeleteAttribute(ctx context.Context, id int64) error {
	attr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get attribute for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}

	s.invalidateTaxonomyCache(ctx, attr.ProductID)

	s.logger.InfoContext(ctx, "attribute deleted", slog.Int64("attribute_id", id))

	return nil
}

// BulkDeleteAttributes removes the given attributes, returning how many
// existed.
func (s *AttributeService) BulkDeleteAttributes(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, apperrors.InvalidInput("attribute ids are required")
	}

	deleted, err := s.repo.BulkDelete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete attributes: %w", err)
	}

	// The ids alone do not reveal their scopes, so drop the whole taxonomy
	// group; the unscoped purge covers every tracked scoped list.
	s.invalidateTaxonomyCache(ctx, nil)

	s.logger.InfoContext(ctx, "attributes bulk deleted",
		slog.Int("requested", len(ids)),
		slog.Int("deleted", deleted),
	)

	return deleted, nil
}

func (s *AttributeService) invalidateTaxonomyCache(ctx context.Context, productID *string) {
	scope := ""
	if productID != nil {
		scope = *productID
	}
	if err := s.cache.Invalidate(ctx, cache.GroupTaxonomies, scope); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate taxonomy cache",
			slog.String("error", err.Error()),
		)
	}
}
