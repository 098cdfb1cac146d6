package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/simulacro-api/internal/models"
	"github.com/noah-isme/simulacro-api/internal/scoring"
)

// StudentRepository is the student directory backing population selection.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.full_name, s.institution_id, COALESCE(s.campus_id, '') AS campus_id, COALESCE(s.grade_id, '') AS grade_id,
        COALESCE(s.jornada, '') AS jornada, s.academic_year, s.created_at, s.active`

// List returns active students narrowed by the organisational filters.
// Jornada and academic year are left to the in-memory filter since they need
// accent folding and the missing-year default.
func (r *StudentRepository) List(ctx context.Context, filter models.PerformanceFilter) ([]models.Student, error) {
	conditions := []string{"s.active = ?"}
	args := []interface{}{true}

	if id := strings.TrimSpace(filter.InstitutionID); !scoring.Unrestricted(id) {
		conditions = append(conditions, "s.institution_id = ?")
		args = append(args, id)
	}
	if id := strings.TrimSpace(filter.CampusID); !scoring.Unrestricted(id) {
		conditions = append(conditions, "s.campus_id = ?")
		args = append(args, id)
	}
	if id := strings.TrimSpace(filter.GradeID); !scoring.Unrestricted(id) {
		conditions = append(conditions, "s.grade_id = ?")
		args = append(args, id)
	}

	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM students s WHERE %s ORDER BY s.id", studentColumns, strings.Join(conditions, " AND ")))

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a single student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM students s WHERE s.id = ?", studentColumns))
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}
