package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Review Status Validation Tests
// ============================================================================

func TestValidStatuses_ContainsAll(t *testing.T) {
	statuses := ValidStatuses()
	expected := []string{
		ReviewStatusPending, ReviewStatusApproved,
		ReviewStatusRejected, ReviewStatusHidden,
	}
	assert.ElementsMatch(t, expected, statuses)
}

func TestIsValidStatus_ValidStatuses(t *testing.T) {
	for _, s := range ValidStatuses() {
		assert.True(t, IsValidStatus(s), "expected %q to be valid", s)
	}
}

func TestIsValidStatus_Invalid(t *testing.T) {
	assert.False(t, IsValidStatus("unknown"))
	assert.False(t, IsValidStatus(""))
	assert.False(t, IsValidStatus("APPROVED"))
}

// ============================================================================
// Score Validation Tests
// ============================================================================

func TestIsValidScore_Bounds(t *testing.T) {
	assert.True(t, IsValidScore(ScoreMin))
	assert.True(t, IsValidScore(4))
	assert.True(t, IsValidScore(ScoreMax))

	assert.False(t, IsValidScore(0))
	assert.False(t, IsValidScore(-1))
	assert.False(t, IsValidScore(ScoreMax+1))
}

// ============================================================================
// AverageScore Tests
// ============================================================================

func TestAverageScore_EmptySetIsZero(t *testing.T) {
	assert.Equal(t, 0, AverageScore(nil))
	assert.Equal(t, 0, AverageScore([]int{}))
}

func TestAverageScore_SingleReview(t *testing.T) {
	assert.Equal(t, 6, AverageScore([]int{6}))
}

func TestAverageScore_RoundsToNearest(t *testing.T) {
	// (6+5)/2 = 5.5 rounds to 6
	assert.Equal(t, 6, AverageScore([]int{6, 5}))
	// (6+5+5)/3 = 5.33 rounds to 5
	assert.Equal(t, 5, AverageScore([]int{6, 5, 5}))
}

func TestAverageScore_ClampsToMinWhileReviewsExist(t *testing.T) {
	// Degenerate totals that round to 0 must still clamp to ScoreMin.
	assert.Equal(t, ScoreMin, AverageScore([]int{0}))
	assert.Equal(t, ScoreMin, AverageScore([]int{0, 0, 1}))
}

func TestAverageScore_Idempotent(t *testing.T) {
	totals := []int{7, 3, 5, 6}
	first := AverageScore(totals)
	second := AverageScore(totals)
	assert.Equal(t, first, second)
}
