package scheduler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymarket-ingestor/internal/models"
)

func TestWinrateNoDecidedBets(t *testing.T) {
	t.Parallel()
	odds, frac := winrate(0, 0)
	assert.Equal(t, "", odds)
	assert.Nil(t, frac)
}

func TestWinrateComputesFraction(t *testing.T) {
	t.Parallel()
	odds, frac := winrate(3, 1)
	assert.Equal(t, "3/4", odds)
	require.NotNil(t, frac)
	assert.True(t, frac.Equal(decimal.RequireFromString("0.75")))
}

func TestHasClosedPositionsInRangeEpochSentinelAlwaysCounts(t *testing.T) {
	t.Parallel()
	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	closed := []models.Position{{LastUpdatedAt: epochStart}}
	assert.True(t, hasClosedPositionsInRange(closed, cutoff))
}

func TestHasClosedPositionsInRangeRespectsCutoff(t *testing.T) {
	t.Parallel()
	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	stale := []models.Position{{LastUpdatedAt: cutoff.AddDate(0, 0, -5)}}
	assert.False(t, hasClosedPositionsInRange(stale, cutoff))

	fresh := []models.Position{{LastUpdatedAt: cutoff.AddDate(0, 0, 1)}}
	assert.True(t, hasClosedPositionsInRange(fresh, cutoff))
}
