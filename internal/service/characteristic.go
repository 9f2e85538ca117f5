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

// CharacteristicService implements the business logic for reviewer
// characteristics.
type CharacteristicService struct {
	repo   repository.CharacteristicRepository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCharacteristicService creates a new characteristic service.
func NewCharacteristicService(repo repository.CharacteristicRepository, cache *cache.Cache, logger *slog.Logger) *CharacteristicService {
	return &CharacteristicService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// CreateCharacteristicInput holds the parameters for creating a
// characteristic.
type CreateCharacteristicInput struct {
	Name        string
	Slug        string
	Description string
	Values      []domain.CharacteristicValue
	FieldType   string
}

// CreateCharacteristic creates a new reviewer characteristic with its value
// set. Value keys must be unique and non-empty.
func (s *CharacteristicService) CreateCharacteristic(ctx context.Context, input *CreateCharacteristicInput) (*domain.Characteristic, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("characteristic name is required")
	}
	if err := validateValueSet(input.Values); err != nil {
		return nil, err
	}

	fieldType := input.FieldType
	if fieldType == "" {
		fieldType = domain.FieldTypeSelect
	}
	if !domain.IsValidFieldType(fieldType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid field type %q", fieldType))
	}

	chSlug := input.Slug
	if chSlug == "" {
		chSlug = slug.Generate(input.Name)
	}

	now := time.Now().UTC()
	ch := &domain.Characteristic{
		Name:        input.Name,
		Slug:        chSlug,
		Description: input.Description,
		Values:      input.Values,
		FieldType:   fieldType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("create characteristic: %w", err)
	}

	s.invalidateTaxonomyCache(ctx)

	s.logger.InfoContext(ctx, "characteristic created",
		slog.Int64("characteristic_id", ch.ID),
		slog.String("slug", ch.Slug),
		slog.Int("values", len(ch.Values)),
	)

	return ch, nil
}

// GetCharacteristic retrieves a characteristic by its ID.
func (s *CharacteristicService) GetCharacteristic(ctx context.Context, id int64) (*domain.Characteristic, error) {
	ch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get characteristic by id: %w", err)
	}
	return ch, nil
}

// ListCharacteristics returns all characteristics. The result is cached.
func (s *CharacteristicService) ListCharacteristics(ctx context.Context) ([]domain.Characteristic, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.CharacteristicsKey(), func(ctx context.Context) ([]domain.Characteristic, error) {
		return s.repo.List(ctx)
	})
}

// UpdateCharacteristicInput holds the parameters for updating a
// characteristic. Nil fields are left unchanged; a non-nil Values replaces
// the whole value set.
type UpdateCharacteristicInput struct {
	Name        *string
	Slug        *string
	Description *string
	Values      []domain.CharacteristicValue
	FieldType   *string
}

// UpdateCharacteristic applies a partial update. Shrinking the value set does
// not touch existing author meta rows; removed keys fall back to raw display.
func (s *CharacteristicService) UpdateCharacteristic(ctx context.Context, id int64, input *UpdateCharacteristicInput) (*domain.Characteristic, error) {
	ch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get characteristic for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("characteristic name must not be empty")
		}
		ch.Name = *input.Name
	}
	if input.Slug != nil && *input.Slug != "" {
		ch.Slug = *input.Slug
	}
	if input.Description != nil {
		ch.Description = *input.Description
	}
	if input.Values != nil {
		if err := validateValueSet(input.Values); err != nil {
			return nil, err
		}
		ch.Values = input.Values
	}
	if input.FieldType != nil {
		if !domain.IsValidFieldType(*input.FieldType) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid field type %q", *input.FieldType))
		}
		ch.FieldType = *input.FieldType
	}

	if err := s.repo.Update(ctx, ch); err != nil {
		return nil, fmt.Errorf("update characteristic: %w", err)
	}

	s.invalidateTaxonomyCache(ctx)

	s.logger.InfoContext(ctx, "characteristic updated",
		slog.Int64("characteristic_id", ch.ID),
		slog.String("slug", ch.Slug),
	)

	return ch, nil
}

// DeleteCharacteristic removes a characteristic. Existing author meta rows
// keep the orphaned ID and fall back to raw keys at display time.
func (s *CharacteristicService) DeleteCharacteristic(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete characteristic: %w", err)
	}

	s.invalidateTaxonomyCache(ctx)

	s.logger.InfoContext(ctx, "characteristic deleted", slog.Int64("characteristic_id", id))

	return nil
}

// BulkDeleteCharacteristics removes the given characteristics, returning how
// many existed.
func (s *CharacteristicService) BulkDeleteCharacteristics(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, apperrors.InvalidInput("characteristic ids are required")
	}

	deleted, err := s.repo.BulkDelete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete characteristics: %w", err)
	}

	s.invalidateTaxonomyCache(ctx)

	s.logger.InfoContext(ctx, "characteristics bulk deleted",
		slog.Int("requested", len(ids)),
		slog.Int("deleted", deleted),
	)

	return deleted, nil
}

// validateValueSet checks that every value has a non-empty unique key.
func validateValueSet(values []domain.CharacteristicValue) error {
	if len(values) == 0 {
		return apperrors.InvalidInput("at least one value is required")
	}

	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v.Key == "" {
			return apperrors.InvalidInput("value keys must not be empty")
		}
		if _, dup := seen[v.Key]; dup {
			return apperrors.InvalidInput(fmt.Sprintf("duplicate value key %q", v.Key))
		}
		seen[v.Key] = struct{}{}
	}

	return nil
}

func (s *CharacteristicService) invalidateTaxonomyCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.GroupTaxonomies, ""); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate taxonomy cache",
			slog.String("error", err.Error()),
		)
	}
}
