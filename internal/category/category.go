// Package category classifies an event's upstream tags into the closed
// set of top-level categories the discovery and reporting layers key on.
package category

import (
	"strings"

	"polymarket-ingestor/internal/models"
)

var known = map[models.EventCategory]bool{
	models.CategoryPolitics:      true,
	models.CategorySports:        true,
	models.CategoryCrypto:        true,
	models.CategoryBusiness:      true,
	models.CategoryEntertainment: true,
	models.CategoryScience:       true,
}

// Classify returns the first tag that whole-word-matches a known category
// name (case-insensitively), or OTHERS if none do.
func Classify(tags []string) models.EventCategory {
	for _, tag := range tags {
		candidate := models.EventCategory(strings.ToUpper(strings.TrimSpace(tag)))
		if known[candidate] {
			return candidate
		}
	}
	return models.CategoryOthers
}
