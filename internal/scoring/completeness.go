package scoring

import "github.com/noah-isme/simulacro-api/internal/models"

// IsComplete reports whether every canonical subject has a score.
func IsComplete(subjects map[models.Subject]float64) bool {
	for _, subject := range models.CanonicalSubjects {
		if _, ok := subjects[subject]; !ok {
			return false
		}
	}
	return true
}

// MissingSubjects lists the canonical subjects without a score.
func MissingSubjects(subjects map[models.Subject]float64) []models.Subject {
	var missing []models.Subject
	for _, subject := range models.CanonicalSubjects {
		if _, ok := subjects[subject]; !ok {
			missing = append(missing, subject)
		}
	}
	return missing
}
