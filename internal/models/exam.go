package models

import (
	"strings"
	"time"
)

// Phase identifies one evaluation period of the academic cycle.
type Phase string

const (
	PhaseOne   Phase = "fase1"
	PhaseTwo   Phase = "fase2"
	PhaseThree Phase = "fase3"
)

// Phases lists every evaluation phase in calendar order.
var Phases = []Phase{PhaseOne, PhaseTwo, PhaseThree}

var phaseAliases = map[string]Phase{
	"1":       PhaseOne,
	"i":       PhaseOne,
	"first":   PhaseOne,
	"primera": PhaseOne,
	"2":       PhaseTwo,
	"ii":      PhaseTwo,
	"second":  PhaseTwo,
	"segunda": PhaseTwo,
	"3":       PhaseThree,
	"iii":     PhaseThree,
	"third":   PhaseThree,
	"tercera": PhaseThree,
}

// ParsePhase accepts the stored key ("fase1") and the labels the dashboards
// send ("Fase I", "phase 2", "tercera").
func ParsePhase(raw string) (Phase, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	for _, prefix := range []string{"fase", "phase"} {
		key = strings.TrimPrefix(key, prefix)
	}
	phase, ok := phaseAliases[key]
	return phase, ok
}

// Valid reports whether p is one of the stored phase keys.
func (p Phase) Valid() bool {
	for _, phase := range Phases {
		if p == phase {
			return true
		}
	}
	return false
}

// Subject is one of the canonical subjects used for scoring.
type Subject string

const (
	SubjectMathematics   Subject = "Mathematics"
	SubjectLanguage      Subject = "Language"
	SubjectSocialStudies Subject = "Social Studies"
	SubjectBiology       Subject = "Biology"
	SubjectChemistry     Subject = "Chemistry"
	SubjectPhysics       Subject = "Physics"
	SubjectEnglish       Subject = "English"
)

// CanonicalSubjects is the closed subject taxonomy in reporting order.
var CanonicalSubjects = []Subject{
	SubjectMathematics,
	SubjectLanguage,
	SubjectSocialStudies,
	SubjectBiology,
	SubjectChemistry,
	SubjectPhysics,
	SubjectEnglish,
}

// IsNaturalScience reports membership in the Biology/Chemistry/Physics group.
func (s Subject) IsNaturalScience() bool {
	return s == SubjectBiology || s == SubjectChemistry || s == SubjectPhysics
}

// ExamAttempt is one practice exam instance as stored by the result repository.
type ExamAttempt struct {
	ID              string           `json:"id"`
	StudentID       string           `json:"student_id"`
	Phase           Phase            `json:"phase"`
	Subject         string           `json:"subject"`
	Completed       bool             `json:"completed"`
	Score           *AttemptScore    `json:"score,omitempty"`
	QuestionDetails []QuestionDetail `json:"question_details,omitempty"`
	SubmittedAt     *time.Time       `json:"submitted_at,omitempty"`
}

// AttemptScore holds the graded outcome of an attempt.
type AttemptScore struct {
	OverallPercentage float64 `json:"overall_percentage"`
	CorrectAnswers    int     `json:"correct_answers"`
	TotalQuestions    int     `json:"total_questions"`
}

// QuestionDetail records the outcome of a single question.
type QuestionDetail struct {
	Topic     string `json:"topic"`
	IsCorrect bool   `json:"is_correct"`
}

// Scorable reports whether the attempt takes part in scoring.
func (a ExamAttempt) Scorable() bool {
	return a.Completed && a.Score != nil && strings.TrimSpace(a.Subject) != ""
}
