package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellforge/ratings-service/internal/domain"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(client, time.Minute, logger), mr
}

func TestGetOrLoad_MissInvokesLoaderAndStores(t *testing.T) {
	c, mr := setupCache(t)

	calls := 0
	loader := func(ctx context.Context) (*domain.ProductRatingSummary, error) {
		calls++
		return &domain.ProductRatingSummary{ProductID: "prod-1", ReviewCount: 2, AverageRating: 5}, nil
	}

	got, err := GetOrLoad(context.Background(), c, SummaryKey("prod-1"), loader)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ReviewCount)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(SummaryKey("prod-1")))

	// Second read is served from cache.
	got, err = GetOrLoad(context.Background(), c, SummaryKey("prod-1"), loader)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AverageRating)
	assert.Equal(t, 1, calls)
}

func TestGetOrLoad_LoaderErrorPropagates(t *testing.T) {
	c, mr := setupCache(t)

	loader := func(ctx context.Context) ([]domain.ReviewSnapshot, error) {
		return nil, errors.New("db down")
	}

	_, err := GetOrLoad(context.Background(), c, ReviewListKey("prod-1"), loader)
	assert.Error(t, err)
	assert.False(t, mr.Exists(ReviewListKey("prod-1")))
}

func TestGetOrLoad_CorruptEntryIsRewritten(t *testing.T) {
	c, mr := setupCache(t)

	require.NoError(t, mr.Set(CharacteristicsKey(), "{not json"))

	loader := func(ctx context.Context) ([]domain.Characteristic, error) {
		return []domain.Characteristic{{ID: 1, Name: "Skin type"}}, nil
	}

	got, err := GetOrLoad(context.Background(), c, CharacteristicsKey(), loader)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Skin type", got[0].Name)
}

func TestGetOrLoad_RedisDownDegradesToLoader(t *testing.T) {
	c, mr := setupCache(t)
	mr.Close()

	loader := func(ctx context.Context) (int, error) {
		return 7, nil
	}

	got, err := GetOrLoad(context.Background(), c, "ratings:anything", loader)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestInvalidate_ReviewsGroup(t *testing.T) {
	c, mr := setupCache(t)

	require.NoError(t, mr.Set(ReviewListKey("prod-1"), "[]"))
	require.NoError(t, mr.Set(ReviewListKey("prod-2"), "[]"))

	require.NoError(t, c.Invalidate(context.Background(), GroupReviews, "prod-1"))

	assert.False(t, mr.Exists(ReviewListKey("prod-1")))
	assert.True(t, mr.Exists(ReviewListKey("prod-2")))
}

func TestInvalidate_ProductsGroup(t *testing.T) {
	c, mr := setupCache(t)

	require.NoError(t, mr.Set(SummaryKey("prod-1"), "{}"))

	require.NoError(t, c.Invalidate(context.Background(), GroupProducts, "prod-1"))
	assert.False(t, mr.Exists(SummaryKey("prod-1")))
}

func TestInvalidate_TaxonomiesGroup(t *testing.T) {
	c, mr := setupCache(t)

	require.NoError(t, mr.Set(AttributesKey(""), "[]"))
	require.NoError(t, mr.Set(AttributesKey("prod-1"), "[]"))
	require.NoError(t, mr.Set(CharacteristicsKey(), "[]"))

	require.NoError(t, c.Invalidate(context.Background(), GroupTaxonomies, "prod-1"))

	assert.False(t, mr.Exists(AttributesKey("")))
	assert.False(t, mr.Exists(AttributesKey("prod-1")))
	assert.False(t, mr.Exists(CharacteristicsKey()))
}

func TestInvalidate_TaxonomiesGroup_GlobalPurgesTrackedScopes(t *testing.T) {
	c, mr := setupCache(t)

	require.NoError(t, mr.Set(AttributesKey(""), "[]"))
	require.NoError(t, mr.Set(AttributesKey("prod-1"), "[]"))
	require.NoError(t, mr.Set(AttributesKey("prod-2"), "[]"))
	c.TrackAttributeScope(context.Background(), "prod-1")
	c.TrackAttributeScope(context.Background(), "prod-2")

	// A global attribute change must stale the scoped lists too.
	require.NoError(t, c.Invalidate(context.Background(), GroupTaxonomies, ""))

	assert.False(t, mr.Exists(AttributesKey("")))
	assert.False(t, mr.Exists(AttributesKey("prod-1")))
	assert.False(t, mr.Exists(AttributesKey("prod-2")))
	assert.False(t, mr.Exists("ratings:attributes:scopes"))
}

func TestInvalidate_TaxonomiesGroup_ScopedTrimsIndex(t *testing.T) {
	c, mr := setupCache(t)

	require.NoError(t, mr.Set(AttributesKey("prod-1"), "[]"))
	require.NoError(t, mr.Set(AttributesKey("prod-2"), "[]"))
	c.TrackAttributeScope(context.Background(), "prod-1")
	c.TrackAttributeScope(context.Background(), "prod-2")

	require.NoError(t, c.Invalidate(context.Background(), GroupTaxonomies, "prod-1"))

	assert.False(t, mr.Exists(AttributesKey("prod-1")))
	assert.True(t, mr.Exists(AttributesKey("prod-2")))

	members, err := mr.SMembers("ratings:attributes:scopes")
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-2"}, members)
}

func TestTrackAttributeScope_EmptyIDIgnored(t *testing.T) {
	c, mr := setupCache(t)

	c.TrackAttributeScope(context.Background(), "")

	assert.False(t, mr.Exists("ratings:attributes:scopes"))
}

func TestInvalidate_UnknownGroup(t *testing.T) {
	c, _ := setupCache(t)

	err := c.Invalidate(context.Background(), "authors", "x")
	assert.Error(t, err)
}

func TestInvalidateReview(t *testing.T) {
	c, mr := setupCache(t)

	require.NoError(t, mr.Set(ReviewKey(42), "{}"))
	require.NoError(t, c.InvalidateReview(context.Background(), 42))
	assert.False(t, mr.Exists(ReviewKey(42)))
}
