package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simulacro-api/internal/middleware"
	"github.com/noah-isme/simulacro-api/internal/models"
	"github.com/noah-isme/simulacro-api/internal/service"
	appErrors "github.com/noah-isme/simulacro-api/pkg/errors"
)

type fakePerformanceSrv struct {
	perf       *models.StudentPerformance
	perfErr    error
	students   map[string]models.Student
	ranking    []models.RankingEntry
	rankingHit bool
	groups     []models.GroupRanking
	average    *models.PerformanceAverage
	lastFilter models.PerformanceFilter
	lastPhase  models.Phase
}

func (f *fakePerformanceSrv) StudentPerformance(_ context.Context, studentID string, phase models.Phase) (*models.StudentPerformance, error) {
	f.lastPhase = phase
	return f.perf, f.perfErr
}

func (f *fakePerformanceSrv) StudentProgress(_ context.Context, studentID string) ([]models.StudentPerformance, error) {
	return []models.StudentPerformance{
		{StudentID: studentID, Phase: models.PhaseOne, GlobalScore: &models.GlobalScore{Value: 380}},
		{StudentID: studentID, Phase: models.PhaseTwo, MissingSubjects: []models.Subject{models.SubjectPhysics}},
		{StudentID: studentID, Phase: models.PhaseThree},
	}, nil
}

func (f *fakePerformanceSrv) Diagnostics(_ context.Context, studentID string, phase models.Phase) ([]models.TopicDiagnostic, error) {
	return []models.TopicDiagnostic{{Subject: "Mathematics", Topic: "Geometría", Correct: 3, Total: 4, Percentage: 75}}, nil
}

func (f *fakePerformanceSrv) Student(_ context.Context, studentID string) (*models.Student, error) {
	student, ok := f.students[studentID]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return &student, nil
}

func (f *fakePerformanceSrv) StudentRanking(_ context.Context, filter models.PerformanceFilter) ([]models.RankingEntry, bool, error) {
	f.lastFilter = filter
	return f.ranking, f.rankingHit, f.perfErr
}

func (f *fakePerformanceSrv) InstitutionRanking(_ context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, bool, error) {
	f.lastFilter = filter
	return f.groups, false, nil
}

func (f *fakePerformanceSrv) CampusRanking(_ context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, bool, error) {
	f.lastFilter = filter
	return f.groups, false, nil
}

func (f *fakePerformanceSrv) Average(_ context.Context, filter models.PerformanceFilter) (*models.PerformanceAverage, bool, error) {
	f.lastFilter = filter
	return f.average, true, nil
}

type fakeExporter struct {
	format service.ExportFormat
}

func (f *fakeExporter) StudentRanking(_ context.Context, filter models.PerformanceFilter, format service.ExportFormat) (*service.ExportResult, error) {
	f.format = format
	return &service.ExportResult{Filename: "ranking_fase1_all.csv", ContentType: "text/csv", Format: format, Payload: []byte("Position\n1\n")}, nil
}

type fakeRefresher struct {
	phases []models.Phase
	filter models.PerformanceFilter
}

func (f *fakeRefresher) Request(filter models.PerformanceFilter, phases ...models.Phase) (*service.RefreshTicket, error) {
	f.filter = filter
	f.phases = phases
	return &service.RefreshTicket{JobID: "job-1", Phases: phases}, nil
}

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newPerformanceTestHandler() (*PerformanceHandler, *fakePerformanceSrv, *fakeExporter, *fakeRefresher) {
	srv := &fakePerformanceSrv{
		perf: &models.StudentPerformance{
			StudentID:   "s1",
			Phase:       models.PhaseOne,
			GlobalScore: &models.GlobalScore{StudentID: "s1", Phase: models.PhaseOne, Value: 400, CompletedSubjectCount: 7},
		},
		students: map[string]models.Student{
			"s1": {ID: "s1", InstitutionID: "inst-a"},
			"s9": {ID: "s9", InstitutionID: "inst-b"},
		},
		ranking: []models.RankingEntry{
			{Position: 1, Student: models.Student{ID: "s2"}, GlobalScore: 450},
			{Position: 2, Student: models.Student{ID: "s1"}, GlobalScore: 400},
		},
		groups:  []models.GroupRanking{{Position: 1, GroupID: "inst-a", Average: 425}},
		average: &models.PerformanceAverage{Phase: models.PhaseOne, Average: 400},
	}
	exporter := &fakeExporter{}
	refresher := &fakeRefresher{}
	return NewPerformanceHandler(srv, exporter, refresher, nil), srv, exporter, refresher
}

func performRequest(method, target string, body string, claims *models.JWTClaims, params gin.Params, fn gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Params = params
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	fn(c)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func studentParams(id string) gin.Params {
	return gin.Params{{Key: "id", Value: id}}
}

func TestStudentScoreRequiresPhase(t *testing.T) {
	h, _, _, _ := newPerformanceTestHandler()

	rec := performRequest(http.MethodGet, "/students/s1/score", "", nil, studentParams("s1"), h.StudentScore)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(http.MethodGet, "/students/s1/score?phase=quinta", "", nil, studentParams("s1"), h.StudentScore)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrInvalidPhase.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestStudentScoreSuccess(t *testing.T) {
	h, srv, _, _ := newPerformanceTestHandler()

	rec := performRequest(http.MethodGet, "/students/s1/score?phase=Fase%20I", "", &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}, studentParams("s1"), h.StudentScore)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PhaseOne, srv.lastPhase)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, true, data["qualified"])
	assert.Equal(t, 400.0, data["globalScore"])
	assert.Equal(t, 500.0, data["maxScore"])
}

func TestStudentScoreForbiddenForOtherStudent(t *testing.T) {
	h, _, _, _ := newPerformanceTestHandler()

	rec := performRequest(http.MethodGet, "/students/s2/score?phase=fase1", "", &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}, studentParams("s2"), h.StudentScore)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStudentScoreInstitutionScope(t *testing.T) {
	h, _, _, _ := newPerformanceTestHandler()
	coordinator := &models.JWTClaims{UserID: "c1", Role: models.RoleCoordinator, InstitutionID: "inst-a"}

	rec := performRequest(http.MethodGet, "/students/s9/score?phase=fase1", "", coordinator, studentParams("s9"), h.StudentScore)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = performRequest(http.MethodGet, "/students/s1/score?phase=fase1", "", coordinator, studentParams("s1"), h.StudentScore)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStudentScoreStoreUnavailable(t *testing.T) {
	h, srv, _, _ := newPerformanceTestHandler()
	srv.perfErr = appErrors.ErrResultStoreUnavailable

	rec := performRequest(http.MethodGet, "/students/s1/score?phase=fase1", "", nil, studentParams("s1"), h.StudentScore)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestStudentProgress(t *testing.T) {
	h, _, _, _ := newPerformanceTestHandler()

	rec := performRequest(http.MethodGet, "/students/s1/progress", "", nil, studentParams("s1"), h.StudentProgress)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Phases []struct {
			Phase       string   `json:"phase"`
			Qualified   bool     `json:"qualified"`
			GlobalScore *float64 `json:"globalScore"`
		} `json:"phases"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	require.Len(t, data.Phases, 3)
	assert.True(t, data.Phases[0].Qualified)
	assert.False(t, data.Phases[1].Qualified)
	assert.Nil(t, data.Phases[2].GlobalScore)
}

func TestStudentDiagnostics(t *testing.T) {
	h, _, _, _ := newPerformanceTestHandler()

	rec := performRequest(http.MethodGet, "/students/s1/diagnostics?phase=2", "", nil, studentParams("s1"), h.StudentDiagnostics)
	require.Equal(t, http.StatusOK, rec.Code)
	var data []models.TopicDiagnostic
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, 75.0, data[0].Percentage)
}

func TestStudentRankingPaginationAndCache(t *testing.T) {
	h, srv, _, _ := newPerformanceTestHandler()
	srv.rankingHit = true

	rec := performRequest(http.MethodGet, "/rankings/students?phase=fase2&jornada=Ma%C3%B1ana&academicYear=2024&page=2&pageSize=1", "", nil, nil, h.StudentRanking)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 2, envelope.Pagination.TotalCount)

	var data []models.RankingEntry
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, 2, data[0].Position)

	assert.Equal(t, models.PhaseTwo, srv.lastFilter.Phase)
	assert.Equal(t, "Mañana", srv.lastFilter.Jornada)
	assert.Equal(t, 2024, srv.lastFilter.AcademicYear)
}

func TestStudentRankingValidation(t *testing.T) {
	h, _, _, _ := newPerformanceTestHandler()

	rec := performRequest(http.MethodGet, "/rankings/students", "", nil, nil, h.StudentRanking)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(http.MethodGet, "/rankings/students?phase=fase1&academicYear=twenty", "", nil, nil, h.StudentRanking)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(http.MethodGet, "/rankings/students?phase=fase1&pageSize=10000", "", nil, nil, h.StudentRanking)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentRankingInstitutionScope(t *testing.T) {
	h, srv, _, _ := newPerformanceTestHandler()
	teacher := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher, InstitutionID: "inst-a"}

	rec := performRequest(http.MethodGet, "/rankings/students?phase=fase1&institutionId=all", "", teacher, nil, h.StudentRanking)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inst-a", srv.lastFilter.InstitutionID)

	rec = performRequest(http.MethodGet, "/rankings/students?phase=fase1&institutionId=inst-b", "", teacher, nil, h.StudentRanking)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin, InstitutionID: "inst-a"}
	rec = performRequest(http.MethodGet, "/rankings/students?phase=fase1&institutionId=inst-b", "", admin, nil, h.StudentRanking)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inst-b", srv.lastFilter.InstitutionID)
}

func TestInstitutionRankingIsNotScoped(t *testing.T) {
	h, srv, _, _ := newPerformanceTestHandler()
	rector := &models.JWTClaims{UserID: "r1", Role: models.RoleRector, InstitutionID: "inst-a"}

	rec := performRequest(http.MethodGet, "/rankings/institutions?phase=fase3", "", rector, nil, h.InstitutionRanking)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, srv.lastFilter.InstitutionID)
	assert.Equal(t, false, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestAverages(t *testing.T) {
	h, _, _, _ := newPerformanceTestHandler()

	rec := performRequest(http.MethodGet, "/averages?phase=fase1&gradeId=11", "", nil, nil, h.Averages)
	require.Equal(t, http.StatusOK, rec.Code)
	var data models.PerformanceAverage
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, 400.0, data.Average)
}

func TestExportStudentRanking(t *testing.T) {
	h, _, exporter, _ := newPerformanceTestHandler()

	rec := performRequest(http.MethodGet, "/rankings/students/export?phase=fase1&format=csv", "", nil, nil, h.ExportStudentRanking)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatCSV, exporter.format)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "ranking_fase1_all.csv")

	rec = performRequest(http.MethodGet, "/rankings/students/export?phase=fase1&format=docx", "", nil, nil, h.ExportStudentRanking)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRankings(t *testing.T) {
	h, _, _, refresher := newPerformanceTestHandler()

	rec := performRequest(http.MethodPost, "/rankings/refresh", "", nil, nil, h.RefreshRankings)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, refresher.phases)

	rec = performRequest(http.MethodPost, "/rankings/refresh", `{"phases":["Fase II"],"institutionId":"inst-a"}`, nil, nil, h.RefreshRankings)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []models.Phase{models.PhaseTwo}, refresher.phases)
	assert.Equal(t, "inst-a", refresher.filter.InstitutionID)

	rec = performRequest(http.MethodPost, "/rankings/refresh", `{"phases":["fase8"]}`, nil, nil, h.RefreshRankings)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaginate(t *testing.T) {
	entries := []models.RankingEntry{{Position: 1}, {Position: 2}, {Position: 3}}

	page, pagination := paginate(entries, 0, 0)
	assert.Len(t, page, 3)
	assert.Nil(t, pagination)

	page, pagination = paginate(entries, 2, 2)
	assert.Equal(t, []models.RankingEntry{{Position: 3}}, page)
	assert.Equal(t, 3, pagination.TotalCount)

	page, _ = paginate(entries, 5, 2)
	assert.Empty(t, page)
}
