package scoring

import (
	"strings"

	"github.com/noah-isme/simulacro-api/internal/models"
)

// Matches applies every filter dimension conjunctively.
func Matches(student models.Student, filter models.PerformanceFilter) bool {
	if !matchesID(filter.InstitutionID, student.InstitutionID) {
		return false
	}
	if !matchesID(filter.CampusID, student.CampusID) {
		return false
	}
	if !matchesID(filter.GradeID, student.GradeID) {
		return false
	}
	if !Unrestricted(filter.Jornada) && Fold(filter.Jornada) != Fold(student.Jornada) {
		return false
	}
	if filter.AcademicYear > 0 {
		// Records without a determinable year match every year.
		if year, ok := student.Year(); ok && year != filter.AcademicYear {
			return false
		}
	}
	return true
}

// Select returns the students matching filter, preserving input order.
func Select(students []models.Student, filter models.PerformanceFilter) []models.Student {
	selected := make([]models.Student, 0, len(students))
	for _, student := range students {
		if Matches(student, filter) {
			selected = append(selected, student)
		}
	}
	return selected
}

// Unrestricted reports whether a filter value places no restriction.
func Unrestricted(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.EqualFold(value, "all")
}

func matchesID(want, got string) bool {
	if Unrestricted(want) {
		return true
	}
	return strings.TrimSpace(want) == strings.TrimSpace(got)
}
