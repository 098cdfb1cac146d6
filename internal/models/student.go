package models

import "time"

// Student is the directory view of a learner used for scoring and ranking.
type Student struct {
	ID            string     `db:"id" json:"id"`
	FullName      string     `db:"full_name" json:"full_name"`
	InstitutionID string     `db:"institution_id" json:"institution_id"`
	CampusID      string     `db:"campus_id" json:"campus_id"`
	GradeID       string     `db:"grade_id" json:"grade_id"`
	Jornada       string     `db:"jornada" json:"jornada"`
	AcademicYear  *int       `db:"academic_year" json:"academic_year,omitempty"`
	CreatedAt     *time.Time `db:"created_at" json:"created_at,omitempty"`
	Active        bool       `db:"active" json:"active"`
}

// Year returns the academic year of the record, falling back to the creation year.
func (s Student) Year() (int, bool) {
	if s.AcademicYear != nil && *s.AcademicYear > 0 {
		return *s.AcademicYear, true
	}
	if s.CreatedAt != nil && !s.CreatedAt.IsZero() {
		return s.CreatedAt.Year(), true
	}
	return 0, false
}
