package substitution

import "math"

// Score computes the ethical score of an annotated recipe on a 0-10 scale:
// the fraction of its distinct ingredients that have no suggested
// replacement, times ten, rounded to one decimal place.
//
// A recipe with no ingredients has no defined score; ok is false and callers
// surface a "not applicable" sentinel instead of a number.
func Score(recipe AnnotatedRecipe) (float64, bool) {
	total := len(recipe.Ingredients)
	if total == 0 {
		return 0, false
	}

	fine := 0
	for _, ingredient := range recipe.Ingredients {
		if len(ingredient.Replacements) == 0 {
			fine++
		}
	}

	score := float64(fine) / float64(total) * 10
	return math.Round(score*10) / 10, true
}
