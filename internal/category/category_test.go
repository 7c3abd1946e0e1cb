package category

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"polymarket-ingestor/internal/models"
)

func TestClassifyWholeWordMatch(t *testing.T) {
	t.Parallel()
	assert.Equal(t, models.CategoryPolitics, Classify([]string{"Politics", "2026"}))
	assert.Equal(t, models.CategorySports, Classify([]string{"sports"}))
}

func TestClassifyFallsBackToOthers(t *testing.T) {
	t.Parallel()
	assert.Equal(t, models.CategoryOthers, Classify([]string{"Election2026", "Trending"}))
	assert.Equal(t, models.CategoryOthers, Classify(nil))
}

func TestClassifyDoesNotPartialMatch(t *testing.T) {
	t.Parallel()
	// "Sportsball" should not match "SPORTS" — whole-word only.
	assert.Equal(t, models.CategoryOthers, Classify([]string{"Sportsball"}))
}
