package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/pkg/database"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
)

func setupAttributeRepo(t *testing.T) (*AttributeRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewAttributeRepository(mock), mock
}

func sampleAttribute() *domain.Attribute {
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	return &domain.Attribute{
		Name:        "Durability",
		Slug:        "durability",
		Description: "How well the product holds up over time",
		MinLabel:    "Fell apart",
		MaxLabel:    "Indestructible",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func attributeColumns() []string {
	return []string{
		"id", "name", "slug", "description", "min_label", "max_label",
		"product_id", "created_at", "updated_at",
	}
}

func TestAttributeRepository_Create_Success(t *testing.T) {
	repo, mock := setupAttributeRepo(t)
	defer mock.Close()

	a := sampleAttribute()

	mock.ExpectQuery("INSERT INTO attributes").
		WithArgs(a.Name, a.Slug, a.Description, a.MinLabel, a.MaxLabel, a.ProductID, a.CreatedAt, a.UpdatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))

	err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeRepository_Create_DuplicateSlug(t *testing.T) {
	repo, mock := setupAttributeRepo(t)
	defer mock.Close()

	a := sampleAttribute()

	mock.ExpectQuery("INSERT INTO attributes").
		WithArgs(a.Name, a.Slug, a.Description, a.MinLabel, a.MaxLabel, a.ProductID, a.CreatedAt, a.UpdatedAt).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), a)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupAttributeRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM attributes WHERE id").
		WithArgs(int64(999)).
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByID(context.Background(), 999)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeRepository_List_ScopedToProduct(t *testing.T) {
	repo, mock := setupAttributeRepo(t)
	defer mock.Close()

	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	pid := "prod-100"
	rows := pgxmock.NewRows(attributeColumns()).
		AddRow(int64(1), "Durability", "durability", "", "", "", nil, now, now).
		AddRow(int64(2), "Fit", "fit", "", "Runs small", "Runs large", &pid, now, now)

	mock.ExpectQuery("SELECT .+ FROM attributes WHERE product_id IS NULL OR product_id").
		WithArgs("prod-100").
		WillReturnRows(rows)

	attrs, err := repo.List(context.Background(), "prod-100")
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Nil(t, attrs[0].ProductID)
	require.NotNil(t, attrs[1].ProductID)
	assert.Equal(t, "prod-100", *attrs[1].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeRepository_List_EmptyIsNotNil(t *testing.T) {
	repo, mock := setupAttributeRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM attributes").
		WillReturnRows(pgxmock.NewRows(attributeColumns()))

	attrs, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, attrs)
	assert.Empty(t, attrs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupAttributeRepo(t)
	defer mock.Close()

	a := sampleAttribute()
	a.ID = 999

	mock.ExpectExec("UPDATE attributes").
		WithArgs(a.Name, a.Slug, a.Description, a.MinLabel, a.MaxLabel, a.ProductID, pgxmock.AnyArg(), a.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), a)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeRepository_Delete_Success(t *testing.T) {
	repo, mock := setupAttributeRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM attributes").
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), 5)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeRepository_BulkDelete(t *testing.T) {
	repo, mock := setupAttributeRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM attributes").
		WithArgs([]int64{1, 2, 3}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	deleted, err := repo.BulkDelete(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributeRepository_BulkDelete_Empty(t *testing.T) {
	repo, mock := setupAttributeRepo(t)
	defer mock.Close()

	deleted, err := repo.BulkDelete(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
