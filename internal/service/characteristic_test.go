package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellforge/ratings-service/internal/domain"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
)

func newTestCharacteristicService(t *testing.T) (*CharacteristicService, *mockCharacteristicRepository) {
	t.Helper()
	repo := new(mockCharacteristicRepository)
	return NewCharacteristicService(repo, newTestCache(t), newTestLogger()), repo
}

func skinTypeValues() []domain.CharacteristicValue {
	return []domain.CharacteristicValue{
		{Key: "dry", Label: "Dry"},
		{Key: "oily", Label: "Oily"},
	}
}

func TestCreateCharacteristic_DefaultsFieldType(t *testing.T) {
	svc, repo := newTestCharacteristicService(t)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Characteristic) bool {
		return c.FieldType == domain.FieldTypeSelect && c.Slug == "skin-type"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Characteristic).ID = 3
	}).Return(nil)

	ch, err := svc.CreateCharacteristic(context.Background(), &CreateCharacteristicInput{
		Name:   "Skin Type",
		Values: skinTypeValues(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), ch.ID)
	assert.Equal(t, domain.FieldTypeSelect, ch.FieldType)
	repo.AssertExpectations(t)
}

func TestCreateCharacteristic_EmptyValueSet(t *testing.T) {
	svc, repo := newTestCharacteristicService(t)

	_, err := svc.CreateCharacteristic(context.Background(), &CreateCharacteristicInput{Name: "Skin Type"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateCharacteristic_DuplicateValueKeys(t *testing.T) {
	svc, _ := newTestCharacteristicService(t)

	_, err := svc.CreateCharacteristic(context.Background(), &CreateCharacteristicInput{
		Name: "Skin Type",
		Values: []domain.CharacteristicValue{
			{Key: "dry", Label: "Dry"},
			{Key: "dry", Label: "Very Dry"},
		},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateCharacteristic_InvalidFieldType(t *testing.T) {
	svc, _ := newTestCharacteristicService(t)

	_, err := svc.CreateCharacteristic(context.Background(), &CreateCharacteristicInput{
		Name:      "Skin Type",
		Values:    skinTypeValues(),
		FieldType: "checkbox",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestListCharacteristics_CachesResult(t *testing.T) {
	svc, repo := newTestCharacteristicService(t)

	repo.On("List", mock.Anything).
		Return([]domain.Characteristic{{ID: 3, Name: "Skin type", Values: skinTypeValues()}}, nil).Once()

	first, err := svc.ListCharacteristics(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Value set survives the cache round trip.
	second, err := svc.ListCharacteristics(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, skinTypeValues(), second[0].Values)
	assert.Equal(t, "Dry", second[0].LabelFor("dry"))

	repo.AssertExpectations(t)
}

func TestUpdateCharacteristic_ReplacesValueSet(t *testing.T) {
	svc, repo := newTestCharacteristicService(t)

	existing := &domain.Characteristic{ID: 3, Name: "Skin type", Slug: "skin-type", Values: skinTypeValues(), FieldType: domain.FieldTypeSelect}
	repo.On("GetByID", mock.Anything, int64(3)).Return(existing, nil)

	newValues := []domain.CharacteristicValue{{Key: "combination", Label: "Combination"}}
	repo.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Characteristic) bool {
		return len(c.Values) == 1 && c.Values[0].Key == "combination"
	})).Return(nil)

	ch, err := svc.UpdateCharacteristic(context.Background(), 3, &UpdateCharacteristicInput{
		Values: newValues,
	})
	require.NoError(t, err)
	assert.Equal(t, newValues, ch.Values)
	repo.AssertExpectations(t)
}

func TestUpdateCharacteristic_InvalidValues(t *testing.T) {
	svc, repo := newTestCharacteristicService(t)

	existing := &domain.Characteristic{ID: 3, Name: "Skin type", Values: skinTypeValues()}
	repo.On("GetByID", mock.Anything, int64(3)).Return(existing, nil)

	_, err := svc.UpdateCharacteristic(context.Background(), 3, &UpdateCharacteristicInput{
		Values: []domain.CharacteristicValue{{Key: "", Label: "Blank"}},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestDeleteCharacteristic(t *testing.T) {
	svc, repo := newTestCharacteristicService(t)

	repo.On("Delete", mock.Anything, int64(3)).Return(nil)

	err := svc.DeleteCharacteristic(context.Background(), 3)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestBulkDeleteCharacteristics(t *testing.T) {
	svc, repo := newTestCharacteristicService(t)

	repo.On("BulkDelete", mock.Anything, []int64{3, 4}).Return(2, nil)

	deleted, err := svc.BulkDeleteCharacteristics(context.Background(), []int64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
}
