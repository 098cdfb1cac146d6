package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simulacro-api/internal/models"
)

var studentRowColumns = []string{"id", "full_name", "institution_id", "campus_id", "grade_id", "jornada", "academic_year", "created_at", "active"}

func TestStudentRepositoryListPushesOrganisationalFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("stu-1", "Ana", "inst-1", "campus-1", "11", "Mañana", 2024, time.Now(), true).
		AddRow("stu-2", "Luis", "inst-1", "campus-1", "11", "Tarde", nil, nil, true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students s WHERE s.active = ? AND s.institution_id = ? AND s.grade_id = ? ORDER BY s.id")).
		WithArgs(true, "inst-1", "11").
		WillReturnRows(rows)

	students, err := repo.List(context.Background(), models.PerformanceFilter{InstitutionID: "inst-1", CampusID: "all", GradeID: "11", Jornada: "mañana"})
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.NotNil(t, students[0].AcademicYear)
	assert.Equal(t, 2024, *students[0].AcademicYear)
	assert.Nil(t, students[1].AcademicYear)
	assert.Nil(t, students[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students s WHERE s.id = ?")).
		WithArgs("stu-9").
		WillReturnRows(sqlmock.NewRows(studentRowColumns).AddRow("stu-9", "Eva", "inst-2", "", "10", "Única", nil, nil, true))

	student, err := repo.FindByID(context.Background(), "stu-9")
	require.NoError(t, err)
	assert.Equal(t, "inst-2", student.InstitutionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
