package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/simulacro-api/internal/models"
)

// InstitutionRepository lists the organisational groups used by group rankings.
type InstitutionRepository struct {
	db *sqlx.DB
}

// NewInstitutionRepository constructs an InstitutionRepository.
func NewInstitutionRepository(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

// ListInstitutions returns every institution ordered by name.
func (r *InstitutionRepository) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	var institutions []models.Institution
	if err := r.db.SelectContext(ctx, &institutions, "SELECT id, name FROM institutions ORDER BY name, id"); err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	return institutions, nil
}

// ListCampuses returns the campuses of an institution, or all campuses when institutionID is empty.
func (r *InstitutionRepository) ListCampuses(ctx context.Context, institutionID string) ([]models.Campus, error) {
	query := "SELECT id, institution_id, name FROM campuses"
	var args []interface{}
	if institutionID != "" {
		query += " WHERE institution_id = ?"
		args = append(args, institutionID)
	}
	query = r.db.Rebind(query + " ORDER BY name, id")

	var campuses []models.Campus
	if err := r.db.SelectContext(ctx, &campuses, query, args...); err != nil {
		return nil, fmt.Errorf("list campuses: %w", err)
	}
	return campuses, nil
}
