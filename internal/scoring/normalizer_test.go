package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/simulacro-api/internal/models"
)

func TestNormalizeSubjectVariants(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Subject
	}{
		{"biología", models.SubjectBiology},
		{"Biologia", models.SubjectBiology},
		{"  BIOLOGÍA ", models.SubjectBiology},
		{"matematicas", models.SubjectMathematics},
		{"Matemáticas", models.SubjectMathematics},
		{"sociales", models.SubjectSocialStudies},
		{"Ciencias   Sociales", models.SubjectSocialStudies},
		{"Lectura Crítica", models.SubjectLanguage},
		{"Español", models.SubjectLanguage},
		{"Química", models.SubjectChemistry},
		{"fisica", models.SubjectPhysics},
		{"Inglés", models.SubjectEnglish},
		{"Social Studies", models.SubjectSocialStudies},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, string(tt.want), NormalizeSubject(tt.raw))
		})
	}
}

func TestNormalizeSubjectUnknownPassesThrough(t *testing.T) {
	assert.Equal(t, "  Filosofía ", NormalizeSubject("  Filosofía "))
	assert.Equal(t, "", NormalizeSubject(""))
	_, ok := CanonicalSubject("ciencias naturales")
	assert.False(t, ok)
}

func TestNormalizeSubjectIdempotent(t *testing.T) {
	inputs := []string{"biología", "MATEMATICAS", "sociales", "Inglés", "Filosofía", "", "  química  ", "English"}
	for _, subject := range models.CanonicalSubjects {
		inputs = append(inputs, string(subject))
	}
	for _, raw := range inputs {
		once := NormalizeSubject(raw)
		assert.Equal(t, once, NormalizeSubject(once), raw)
	}
}

func TestFoldStripsAccentsAndSpacing(t *testing.T) {
	assert.Equal(t, "manana", Fold(" Mañana "))
	assert.Equal(t, "unica jornada", Fold("Única\tJornada"))
}
