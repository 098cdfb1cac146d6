package scoring

import (
	"sort"
	"strings"

	"github.com/noah-isme/simulacro-api/internal/models"
)

const unspecifiedTopic = "unspecified"

// Diagnose tallies question outcomes per subject and topic over scorable
// attempts. Diagnostics never influence the global score.
func Diagnose(attempts []models.ExamAttempt) []models.TopicDiagnostic {
	type key struct{ subject, topic string }
	tally := make(map[key]*models.TopicDiagnostic)
	for _, attempt := range attempts {
		if !attempt.Scorable() {
			continue
		}
		subject := NormalizeSubject(strings.TrimSpace(attempt.Subject))
		for _, detail := range attempt.QuestionDetails {
			topic := strings.TrimSpace(detail.Topic)
			if topic == "" {
				topic = unspecifiedTopic
			}
			k := key{subject: subject, topic: topic}
			entry, ok := tally[k]
			if !ok {
				entry = &models.TopicDiagnostic{Subject: subject, Topic: topic}
				tally[k] = entry
			}
			entry.Total++
			if detail.IsCorrect {
				entry.Correct++
			}
		}
	}

	diagnostics := make([]models.TopicDiagnostic, 0, len(tally))
	for _, entry := range tally {
		entry.Percentage = Round2(float64(entry.Correct) / float64(entry.Total) * 100)
		diagnostics = append(diagnostics, *entry)
	}
	sort.Slice(diagnostics, func(i, j int) bool {
		oi, oj := subjectOrder(diagnostics[i].Subject), subjectOrder(diagnostics[j].Subject)
		if oi != oj {
			return oi < oj
		}
		if diagnostics[i].Subject != diagnostics[j].Subject {
			return diagnostics[i].Subject < diagnostics[j].Subject
		}
		return diagnostics[i].Topic < diagnostics[j].Topic
	})
	return diagnostics
}

func subjectOrder(label string) int {
	for i, subject := range models.CanonicalSubjects {
		if string(subject) == label {
			return i
		}
	}
	return len(models.CanonicalSubjects)
}
