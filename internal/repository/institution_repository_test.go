package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstitutionRepositoryListInstitutions(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewInstitutionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM institutions ORDER BY name, id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("inst-1", "Colegio Andino").AddRow("inst-2", "Liceo Central"))

	institutions, err := repo.ListInstitutions(context.Background())
	require.NoError(t, err)
	assert.Len(t, institutions, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstitutionRepositoryListCampusesScoped(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewInstitutionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, institution_id, name FROM campuses WHERE institution_id = ? ORDER BY name, id")).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "institution_id", "name"}).AddRow("c-1", "inst-1", "Sede Norte"))

	campuses, err := repo.ListCampuses(context.Background(), "inst-1")
	require.NoError(t, err)
	require.Len(t, campuses, 1)
	assert.Equal(t, "Sede Norte", campuses[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
