package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/simulacro-api/internal/dto"
	"github.com/noah-isme/simulacro-api/internal/middleware"
	"github.com/noah-isme/simulacro-api/internal/models"
	"github.com/noah-isme/simulacro-api/internal/scoring"
	"github.com/noah-isme/simulacro-api/internal/service"
	appErrors "github.com/noah-isme/simulacro-api/pkg/errors"
	"github.com/noah-isme/simulacro-api/pkg/response"
)

type performanceService interface {
	StudentPerformance(ctx context.Context, studentID string, phase models.Phase) (*models.StudentPerformance, error)
	StudentProgress(ctx context.Context, studentID string) ([]models.StudentPerformance, error)
	Diagnostics(ctx context.Context, studentID string, phase models.Phase) ([]models.TopicDiagnostic, error)
	Student(ctx context.Context, studentID string) (*models.Student, error)
	StudentRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.RankingEntry, bool, error)
	InstitutionRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, bool, error)
	CampusRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, bool, error)
	Average(ctx context.Context, filter models.PerformanceFilter) (*models.PerformanceAverage, bool, error)
}

type rankingExporter interface {
	StudentRanking(ctx context.Context, filter models.PerformanceFilter, format service.ExportFormat) (*service.ExportResult, error)
}

type rankingRefresher interface {
	Request(filter models.PerformanceFilter, phases ...models.Phase) (*service.RefreshTicket, error)
}

// PerformanceHandler exposes scores, rankings and averages over HTTP.
type PerformanceHandler struct {
	service   performanceService
	exporter  rankingExporter
	refresher rankingRefresher
	validator *validator.Validate
}

// NewPerformanceHandler constructs the handler.
func NewPerformanceHandler(service performanceService, exporter rankingExporter, refresher rankingRefresher, validate *validator.Validate) *PerformanceHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &PerformanceHandler{service: service, exporter: exporter, refresher: refresher, validator: validate}
}

// StudentScore godoc
// @Summary Global score of a student for a phase
// @Tags Performance
// @Produce json
// @Param id path string true "Student ID"
// @Param phase query string true "Phase (fase1, fase2, fase3)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/score [get]
func (h *PerformanceHandler) StudentScore(c *gin.Context) {
	studentID, ok := h.authorizeStudent(c)
	if !ok {
		return
	}
	phase, err := phaseFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	perf, err := h.service.StudentPerformance(c.Request.Context(), studentID, phase)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewStudentScoreResponse(perf, scoring.MaxGlobalScore), nil, timedMeta(c, start))
}

// StudentProgress godoc
// @Summary Global score of a student across every phase
// @Tags Performance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/progress [get]
func (h *PerformanceHandler) StudentProgress(c *gin.Context) {
	studentID, ok := h.authorizeStudent(c)
	if !ok {
		return
	}
	start := time.Now()
	progress, err := h.service.StudentProgress(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewStudentProgressResponse(studentID, progress), nil, timedMeta(c, start))
}

// StudentDiagnostics godoc
// @Summary Per-topic correctness of a student for a phase
// @Tags Performance
// @Produce json
// @Param id path string true "Student ID"
// @Param phase query string true "Phase"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/diagnostics [get]
func (h *PerformanceHandler) StudentDiagnostics(c *gin.Context) {
	studentID, ok := h.authorizeStudent(c)
	if !ok {
		return
	}
	phase, err := phaseFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	diagnostics, err := h.service.Diagnostics(c.Request.Context(), studentID, phase)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, diagnostics, nil, timedMeta(c, start))
}

// StudentRanking godoc
// @Summary Student ranking for a phase
// @Tags Rankings
// @Produce json
// @Param phase query string true "Phase"
// @Param institutionId query string false "Institution ID or all"
// @Param campusId query string false "Campus ID or all"
// @Param gradeId query string false "Grade ID or all"
// @Param jornada query string false "Jornada or all"
// @Param academicYear query string false "Academic year or all"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /rankings/students [get]
func (h *PerformanceHandler) StudentRanking(c *gin.Context) {
	query, filter, ok := h.bindFilter(c, true)
	if !ok {
		return
	}
	start := time.Now()
	entries, hit, err := h.service.StudentRanking(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	page, pagination := paginate(entries, query.Page, query.PageSize)
	response.JSON(c, http.StatusOK, page, pagination, timedMeta(c, start))
}

// InstitutionRanking godoc
// @Summary Institution ranking by mean global score
// @Tags Rankings
// @Produce json
// @Param phase query string true "Phase"
// @Success 200 {object} response.Envelope
// @Router /rankings/institutions [get]
func (h *PerformanceHandler) InstitutionRanking(c *gin.Context) {
	_, filter, ok := h.bindFilter(c, false)
	if !ok {
		return
	}
	start := time.Now()
	groups, hit, err := h.service.InstitutionRanking(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, groups, nil, timedMeta(c, start))
}

// CampusRanking godoc
// @Summary Campus ranking by mean global score
// @Tags Rankings
// @Produce json
// @Param phase query string true "Phase"
// @Param institutionId query string false "Institution ID"
// @Success 200 {object} response.Envelope
// @Router /rankings/campuses [get]
func (h *PerformanceHandler) CampusRanking(c *gin.Context) {
	_, filter, ok := h.bindFilter(c, true)
	if !ok {
		return
	}
	start := time.Now()
	groups, hit, err := h.service.CampusRanking(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, groups, nil, timedMeta(c, start))
}

// Averages godoc
// @Summary Mean global score and per-subject means of a population
// @Tags Rankings
// @Produce json
// @Param phase query string true "Phase"
// @Success 200 {object} response.Envelope
// @Router /averages [get]
func (h *PerformanceHandler) Averages(c *gin.Context) {
	_, filter, ok := h.bindFilter(c, true)
	if !ok {
		return
	}
	start := time.Now()
	summary, hit, err := h.service.Average(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, timedMeta(c, start))
}

// ExportStudentRanking godoc
// @Summary Download the student ranking
// @Tags Rankings
// @Produce text/csv
// @Produce application/pdf
// @Param phase query string true "Phase"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Router /rankings/students/export [get]
func (h *PerformanceHandler) ExportStudentRanking(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	query, filter, ok := h.bindFilter(c, true)
	if !ok {
		return
	}
	format, err := service.ParseExportFormat(query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.StudentRanking(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}

// RefreshRankings godoc
// @Summary Recompute and re-cache rankings in the background
// @Tags Rankings
// @Accept json
// @Produce json
// @Param payload body dto.RefreshRankingsRequest false "Phases to refresh"
// @Success 202 {object} response.Envelope
// @Router /rankings/refresh [post]
func (h *PerformanceHandler) RefreshRankings(c *gin.Context) {
	if h.refresher == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.RefreshRankingsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid refresh payload"))
			return
		}
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload"))
		return
	}
	phases, err := req.ResolvePhases()
	if err != nil {
		response.Error(c, err)
		return
	}
	ticket, err := h.refresher.Request(models.PerformanceFilter{InstitutionID: req.InstitutionID}, phases...)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, ticket, nil)
}

// bindFilter parses population filters. When scoped, staff bound to an
// institution only see their own institution.
func (h *PerformanceHandler) bindFilter(c *gin.Context, scoped bool) (dto.PerformanceQuery, models.PerformanceFilter, bool) {
	var query dto.PerformanceQuery
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return query, models.PerformanceFilter{}, false
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return query, models.PerformanceFilter{}, false
	}
	if err := h.validator.Struct(query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return query, models.PerformanceFilter{}, false
	}
	filter, err := query.ToFilter()
	if err != nil {
		response.Error(c, err)
		return query, models.PerformanceFilter{}, false
	}
	if scoped {
		if claims, ok := middleware.Claims(c); ok && claims.Role != models.RoleAdmin && claims.InstitutionID != "" {
			if !scoring.Unrestricted(filter.InstitutionID) && filter.InstitutionID != claims.InstitutionID {
				response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "institution outside of your scope"))
				return query, models.PerformanceFilter{}, false
			}
			filter.InstitutionID = claims.InstitutionID
		}
	}
	return query, filter, true
}

// authorizeStudent resolves the path student. Students only reach their own
// record; staff bound to an institution only reach its students.
func (h *PerformanceHandler) authorizeStudent(c *gin.Context) (string, bool) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return "", false
	}
	studentID := strings.TrimSpace(c.Param("id"))
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student id is required"))
		return "", false
	}
	claims, ok := middleware.Claims(c)
	if !ok {
		return studentID, true
	}
	switch {
	case claims.Role == models.RoleStudent:
		if claims.UserID != studentID {
			response.Error(c, appErrors.ErrForbidden)
			return "", false
		}
	case claims.Role != models.RoleAdmin && claims.InstitutionID != "":
		student, err := h.service.Student(c.Request.Context(), studentID)
		if err != nil {
			response.Error(c, err)
			return "", false
		}
		if student.InstitutionID != claims.InstitutionID {
			response.Error(c, appErrors.ErrForbidden)
			return "", false
		}
	}
	return studentID, true
}

func phaseFromQuery(c *gin.Context) (models.Phase, error) {
	raw := strings.TrimSpace(c.Query("phase"))
	if raw == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "phase is required")
	}
	phase, ok := models.ParsePhase(raw)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidPhase, fmt.Sprintf("unknown phase %q", raw))
	}
	return phase, nil
}

func timedMeta(c *gin.Context, start time.Time) map[string]interface{} {
	middleware.SetProcessingTime(c, start)
	return middleware.ExtractMeta(c)
}

// paginate slices a ranking without renumbering positions. A zero page size returns everything.
func paginate(entries []models.RankingEntry, page, pageSize int) ([]models.RankingEntry, *models.Pagination) {
	if pageSize <= 0 {
		return entries, nil
	}
	if page <= 0 {
		page = 1
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: len(entries)}
	from := (page - 1) * pageSize
	if from >= len(entries) {
		return []models.RankingEntry{}, pagination
	}
	to := from + pageSize
	if to > len(entries) {
		to = len(entries)
	}
	return entries[from:to], pagination
}
