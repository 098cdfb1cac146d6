package scoring

import (
	"math"

	"github.com/noah-isme/simulacro-api/internal/models"
)

const (
	// MaxGlobalScore is four regular subjects plus the sciences group, 100 each.
	MaxGlobalScore = 500.0

	regularWeight = 100.0
	scienceWeight = 100.0 / 3.0
)

// Result is the reduction of one student's attempts for one phase.
type Result struct {
	Subjects      map[models.Subject]float64
	GlobalScore   float64
	ValidAttempts int
}

// Aggregate keeps the best percentage per canonical subject and computes the
// weighted global score. Attempts that are incomplete, ungraded or lack a
// subject are skipped, as are labels outside the taxonomy.
func Aggregate(attempts []models.ExamAttempt) Result {
	best := make(map[models.Subject]float64, len(models.CanonicalSubjects))
	valid := 0
	for _, attempt := range attempts {
		if !attempt.Scorable() {
			continue
		}
		pct := attempt.Score.OverallPercentage
		if math.IsNaN(pct) {
			continue
		}
		valid++
		subject, ok := CanonicalSubject(attempt.Subject)
		if !ok {
			continue
		}
		pct = clampPercentage(pct)
		if current, seen := best[subject]; !seen || pct > current {
			best[subject] = pct
		}
	}
	return Result{Subjects: best, GlobalScore: GlobalScore(best), ValidAttempts: valid}
}

// GlobalScore sums subject contributions in canonical order and rounds to two decimals.
func GlobalScore(subjects map[models.Subject]float64) float64 {
	var total float64
	for _, subject := range models.CanonicalSubjects {
		pct, ok := subjects[subject]
		if !ok {
			continue
		}
		total += Contribution(subject, pct)
	}
	return Round2(total)
}

// Contribution is the number of points a subject percentage adds to the global score.
func Contribution(subject models.Subject, percentage float64) float64 {
	return (clampPercentage(percentage) / 100) * Weight(subject)
}

// Weight is the maximum number of points a subject can contribute.
func Weight(subject models.Subject) float64 {
	if subject.IsNaturalScience() {
		return scienceWeight
	}
	return regularWeight
}

// SubjectScores lists the best percentages in canonical order.
func SubjectScores(subjects map[models.Subject]float64) []models.SubjectScore {
	scores := make([]models.SubjectScore, 0, len(subjects))
	for _, subject := range models.CanonicalSubjects {
		if pct, ok := subjects[subject]; ok {
			scores = append(scores, models.SubjectScore{Subject: subject, BestPercentage: pct})
		}
	}
	return scores
}

// SubjectAverages averages each canonical subject over the given score sets.
func SubjectAverages(sets []map[models.Subject]float64) []models.SubjectAverage {
	averages := make([]models.SubjectAverage, 0, len(models.CanonicalSubjects))
	for _, subject := range models.CanonicalSubjects {
		values := make([]float64, 0, len(sets))
		for _, set := range sets {
			if pct, ok := set[subject]; ok {
				values = append(values, pct)
			}
		}
		averages = append(averages, models.SubjectAverage{
			Subject:  subject,
			Average:  Round2(Mean(values)),
			Students: len(values),
		})
	}
	return averages
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPercentage(pct float64) float64 {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
