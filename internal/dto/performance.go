package dto

import (
	"strconv"
	"strings"

	"github.com/noah-isme/simulacro-api/internal/models"
	appErrors "github.com/noah-isme/simulacro-api/pkg/errors"
)

// PerformanceQuery binds the population filters shared by ranking, average and export endpoints.
type PerformanceQuery struct {
	Phase         string `form:"phase" validate:"required"`
	InstitutionID string `form:"institutionId" validate:"omitempty,max=64"`
	CampusID      string `form:"campusId" validate:"omitempty,max=64"`
	GradeID       string `form:"gradeId" validate:"omitempty,max=64"`
	Jornada       string `form:"jornada" validate:"omitempty,max=32"`
	AcademicYear  string `form:"academicYear" validate:"omitempty,max=8"`
	Page          int    `form:"page" validate:"omitempty,min=1"`
	PageSize      int    `form:"pageSize" validate:"omitempty,min=1,max=500"`
	Format        string `form:"format" validate:"omitempty,max=8"`
}

// ToFilter resolves the phase label and academic year into a PerformanceFilter.
func (q PerformanceQuery) ToFilter() (models.PerformanceFilter, error) {
	phase, ok := models.ParsePhase(q.Phase)
	if !ok {
		return models.PerformanceFilter{}, appErrors.Clone(appErrors.ErrInvalidPhase, "unknown phase "+strconv.Quote(q.Phase))
	}
	year, err := parseAcademicYear(q.AcademicYear)
	if err != nil {
		return models.PerformanceFilter{}, err
	}
	return models.PerformanceFilter{
		InstitutionID: strings.TrimSpace(q.InstitutionID),
		CampusID:      strings.TrimSpace(q.CampusID),
		GradeID:       strings.TrimSpace(q.GradeID),
		Jornada:       strings.TrimSpace(q.Jornada),
		AcademicYear:  year,
		Phase:         phase,
	}, nil
}

func parseAcademicYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "academicYear must be a four digit year")
	}
	return year, nil
}

// StudentScoreResponse is the global score view of one student for one phase.
type StudentScoreResponse struct {
	StudentID         string                `json:"studentId"`
	Phase             models.Phase          `json:"phase"`
	Qualified         bool                  `json:"qualified"`
	GlobalScore       *float64              `json:"globalScore"`
	MaxScore          float64               `json:"maxScore"`
	Subjects          []models.SubjectScore `json:"subjects"`
	MissingSubjects   []models.Subject      `json:"missingSubjects"`
	TotalAttemptCount int                   `json:"totalAttemptCount"`
	ValidAttemptCount int                   `json:"validAttemptCount"`
}

// PhaseProgress is one phase of a student's progress.
type PhaseProgress struct {
	Phase           models.Phase     `json:"phase"`
	Qualified       bool             `json:"qualified"`
	GlobalScore     *float64         `json:"globalScore"`
	MissingSubjects []models.Subject `json:"missingSubjects"`
}

// StudentProgressResponse lists a student's global score per phase.
type StudentProgressResponse struct {
	StudentID string          `json:"studentId"`
	Phases    []PhaseProgress `json:"phases"`
}

// NewStudentScoreResponse maps a StudentPerformance for the API.
func NewStudentScoreResponse(perf *models.StudentPerformance, maxScore float64) StudentScoreResponse {
	resp := StudentScoreResponse{
		StudentID:         perf.StudentID,
		Phase:             perf.Phase,
		MaxScore:          maxScore,
		Subjects:          perf.Subjects,
		MissingSubjects:   perf.MissingSubjects,
		TotalAttemptCount: perf.TotalAttemptCount,
		ValidAttemptCount: perf.ValidAttemptCount,
	}
	if resp.MissingSubjects == nil {
		resp.MissingSubjects = []models.Subject{}
	}
	if perf.GlobalScore != nil {
		value := perf.GlobalScore.Value
		resp.Qualified = true
		resp.GlobalScore = &value
	}
	return resp
}

// NewStudentProgressResponse maps per-phase performances for the API.
func NewStudentProgressResponse(studentID string, progress []models.StudentPerformance) StudentProgressResponse {
	phases := make([]PhaseProgress, 0, len(progress))
	for _, perf := range progress {
		item := PhaseProgress{Phase: perf.Phase, MissingSubjects: perf.MissingSubjects}
		if item.MissingSubjects == nil {
			item.MissingSubjects = []models.Subject{}
		}
		if perf.GlobalScore != nil {
			value := perf.GlobalScore.Value
			item.Qualified = true
			item.GlobalScore = &value
		}
		phases = append(phases, item)
	}
	return StudentProgressResponse{StudentID: studentID, Phases: phases}
}

// RefreshRankingsRequest is the optional body of a ranking refresh.
type RefreshRankingsRequest struct {
	Phases        []string `json:"phases" validate:"omitempty,max=3,dive,required"`
	InstitutionID string   `json:"institutionId" validate:"omitempty,max=64"`
}

// ResolvePhases parses the requested phase labels.
func (r RefreshRankingsRequest) ResolvePhases() ([]models.Phase, error) {
	phases := make([]models.Phase, 0, len(r.Phases))
	for _, raw := range r.Phases {
		phase, ok := models.ParsePhase(raw)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidPhase, "unknown phase "+strconv.Quote(raw))
		}
		phases = append(phases, phase)
	}
	return phases, nil
}
