// Package scoring holds the pure rules that turn exam attempts into subject
// scores, global scores and rankings. Nothing here performs I/O.
package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/simulacro-api/internal/models"
)

// subjectSynonyms is keyed by Fold output.
var subjectSynonyms = map[string]models.Subject{
	"mathematics": models.SubjectMathematics,
	"matematicas": models.SubjectMathematics,
	"matematica":  models.SubjectMathematics,
	"mates":       models.SubjectMathematics,
	"math":        models.SubjectMathematics,
	"maths":       models.SubjectMathematics,

	"language":          models.SubjectLanguage,
	"lenguaje":          models.SubjectLanguage,
	"lengua":            models.SubjectLanguage,
	"lengua castellana": models.SubjectLanguage,
	"castellano":        models.SubjectLanguage,
	"espanol":           models.SubjectLanguage,
	"lectura critica":   models.SubjectLanguage,

	"social studies":                     models.SubjectSocialStudies,
	"sociales":                           models.SubjectSocialStudies,
	"ciencias sociales":                  models.SubjectSocialStudies,
	"sociales y ciudadanas":              models.SubjectSocialStudies,
	"sociales y competencias ciudadanas": models.SubjectSocialStudies,
	"competencias ciudadanas":            models.SubjectSocialStudies,

	"biology":  models.SubjectBiology,
	"biologia": models.SubjectBiology,

	"chemistry": models.SubjectChemistry,
	"quimica":   models.SubjectChemistry,

	"physics": models.SubjectPhysics,
	"fisica":  models.SubjectPhysics,

	"english": models.SubjectEnglish,
	"ingles":  models.SubjectEnglish,
}

// Fold lower-cases s, strips diacritics and collapses inner whitespace.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CanonicalSubject resolves a free-text subject label.
func CanonicalSubject(raw string) (models.Subject, bool) {
	subject, ok := subjectSynonyms[Fold(raw)]
	return subject, ok
}

// NormalizeSubject returns the canonical label for raw, or raw unchanged when
// the label is not part of the taxonomy.
func NormalizeSubject(raw string) string {
	if subject, ok := CanonicalSubject(raw); ok {
		return string(subject)
	}
	return raw
}
