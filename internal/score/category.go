package score

import (
	"strings"

	"github.com/ppiankov/gigshield/internal/model"
)

// categoryRule is checked in order; the first rule with a matching keyword wins
type categoryRule struct {
	category model.Category
	keywords []string
}

var categoryRules = []categoryRule{
	{model.CategorySafety, []string{"safety", "unsafe", "accident", "incident"}},
	{model.CategoryFraud, []string{"fraud", "scam", "theft", "stolen"}},
	{model.CategoryRatings, []string{"rating", "star", "review", "satisfaction"}},
	{model.CategoryCompletion, []string{"completion", "cancel", "acceptance"}},
}

// CategorizeReason buckets a free-text deactivation reason.
// A reason mentioning both "safety" and "rating" is a safety case.
func CategorizeReason(reason string) model.Category {
	lower := strings.ToLower(reason)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return model.CategoryUnknown
}
