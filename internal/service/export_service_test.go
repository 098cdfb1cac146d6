package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-api/internal/models"
	appErrors "github.com/noah-isme/simulacro-api/pkg/errors"
)

type rankingStub struct {
	entries []models.RankingEntry
	err     error
}

func (r rankingStub) StudentRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.RankingEntry, bool, error) {
	return r.entries, false, r.err
}

func stubEntries() []models.RankingEntry {
	return []models.RankingEntry{
		{Position: 1, Student: models.Student{ID: "s2", FullName: "Ana Gómez", InstitutionID: "inst-a", Jornada: "Mañana"}, GlobalScore: 450, TotalAttemptCount: 9},
		{Position: 2, Student: models.Student{ID: "s1", FullName: "Luis Pérez", InstitutionID: "inst-a"}, GlobalScore: 400.5, TotalAttemptCount: 7},
	}
}

func newTestExportService(entries []models.RankingEntry, cfg ExportConfig) *ExportService {
	svc := NewExportService(rankingStub{entries: entries}, cfg, zap.NewNop(), nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC) }
	return svc
}

func TestExportStudentRankingCSV(t *testing.T) {
	svc := newTestExportService(stubEntries(), ExportConfig{})

	result, err := svc.StudentRanking(context.Background(), models.PerformanceFilter{Phase: models.PhaseOne, InstitutionID: "inst-a"}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "ranking_fase1_inst-a_20240502_103000.csv", result.Filename)
	assert.Equal(t, 2, result.Rows)

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Position,Student ID,Student,Institution,Campus,Grade,Jornada,Global Score,Attempts", lines[0])
	assert.Equal(t, "1,s2,Ana Gómez,inst-a,,,Mañana,450.00,9", lines[1])
}

func TestExportStudentRankingTruncates(t *testing.T) {
	svc := newTestExportService(stubEntries(), ExportConfig{MaxRows: 1})

	result, err := svc.StudentRanking(context.Background(), models.PerformanceFilter{Phase: models.PhaseOne}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, "ranking_fase1_all_20240502_103000.csv", result.Filename)
}

func TestExportStudentRankingDocuments(t *testing.T) {
	svc := newTestExportService(stubEntries(), ExportConfig{})

	pdf, err := svc.StudentRanking(context.Background(), models.PerformanceFilter{Phase: models.PhaseTwo}, ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Payload, []byte("%PDF")))

	xlsx, err := svc.StudentRanking(context.Background(), models.PerformanceFilter{Phase: models.PhaseTwo}, ExportFormatXLSX)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx.Payload, []byte("PK")))
	assert.True(t, strings.HasSuffix(xlsx.Filename, ".xlsx"))
}

func TestExportStudentRankingPropagatesErrors(t *testing.T) {
	svc := NewExportService(rankingStub{err: appErrors.ErrResultStoreUnavailable}, ExportConfig{}, nil, nil, nil, nil)

	_, err := svc.StudentRanking(context.Background(), models.PerformanceFilter{Phase: models.PhaseOne}, ExportFormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrResultStoreUnavailable)

	_, err = svc.StudentRanking(context.Background(), models.PerformanceFilter{Phase: models.PhaseOne}, ExportFormat("docx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, format)

	format, err = ParseExportFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatXLSX, format)

	_, err = ParseExportFormat("odt")
	assert.Error(t, err)
}

func TestGroupAndSubjectDatasets(t *testing.T) {
	groups := GroupRankingDataset([]models.GroupRanking{
		{Position: 1, GroupID: "inst-a", Name: "Colegio A", Average: 425, QualifyingStudents: 2, Population: 3},
	})
	require.Len(t, groups.Rows, 1)
	assert.Equal(t, "425.00", groups.Rows[0]["Average"])
	assert.Equal(t, "3", groups.Rows[0]["Population"])

	subjects := SubjectScoreDataset(&models.StudentPerformance{
		Subjects:        []models.SubjectScore{{Subject: models.SubjectMathematics, BestPercentage: 80}},
		MissingSubjects: []models.Subject{models.SubjectEnglish},
	})
	require.Len(t, subjects.Rows, 2)
	assert.Equal(t, "80.00", subjects.Rows[0]["Best Percentage"])
	assert.Equal(t, "English", subjects.Rows[1]["Subject"])
	assert.Empty(t, subjects.Rows[1]["Best Percentage"])
}
