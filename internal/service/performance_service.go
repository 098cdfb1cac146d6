package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-api/internal/models"
	"github.com/noah-isme/simulacro-api/internal/scoring"
	appErrors "github.com/noah-isme/simulacro-api/pkg/errors"
)

// StudentDirectory lists the student population.
type StudentDirectory interface {
	List(ctx context.Context, filter models.PerformanceFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// InstitutionDirectory lists the grouping units used by group rankings.
type InstitutionDirectory interface {
	ListInstitutions(ctx context.Context) ([]models.Institution, error)
	ListCampuses(ctx context.Context, institutionID string) ([]models.Campus, error)
}

// PerformanceServiceParams groups constructor dependencies.
type PerformanceServiceParams struct {
	Collector    *ResultCollector
	Students     StudentDirectory
	Institutions InstitutionDirectory
	Metrics      *MetricsService
	Logger       *zap.Logger
}

// PerformanceService computes global scores, rankings and averages.
type PerformanceService struct {
	collector    *ResultCollector
	students     StudentDirectory
	institutions InstitutionDirectory
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewPerformanceService constructs a PerformanceService.
func NewPerformanceService(params PerformanceServiceParams) *PerformanceService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceService{
		collector:    params.Collector,
		students:     params.Students,
		institutions: params.Institutions,
		metrics:      params.Metrics,
		logger:       logger,
	}
}

type qualifiedStudent struct {
	student  models.Student
	result   scoring.Result
	attempts int
}

// ComputeGlobalScore returns the student's global score for the phase, or nil
// when the student has not completed every canonical subject.
func (s *PerformanceService) ComputeGlobalScore(ctx context.Context, studentID string, phase models.Phase) (*models.GlobalScore, error) {
	perf, err := s.StudentPerformance(ctx, studentID, phase)
	if err != nil {
		return nil, err
	}
	return perf.GlobalScore, nil
}

// StudentPerformance returns the subject breakdown behind a student's global score.
func (s *PerformanceService) StudentPerformance(ctx context.Context, studentID string, phase models.Phase) (*models.StudentPerformance, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := validatePhase(phase); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.metrics.ObserveRanking("student_score", time.Since(start)) }()

	attempts, err := s.fetchStudent(ctx, studentID, phase)
	if err != nil {
		return nil, err
	}
	return buildStudentPerformance(studentID, phase, attempts), nil
}

// StudentProgress returns the student's performance for every phase in order.
func (s *PerformanceService) StudentProgress(ctx context.Context, studentID string) ([]models.StudentPerformance, error) {
	progress := make([]models.StudentPerformance, 0, len(models.Phases))
	for _, phase := range models.Phases {
		perf, err := s.StudentPerformance(ctx, studentID, phase)
		if err != nil {
			return nil, err
		}
		progress = append(progress, *perf)
	}
	return progress, nil
}

// Diagnostics returns per-topic correctness for the student's valid attempts.
func (s *PerformanceService) Diagnostics(ctx context.Context, studentID string, phase models.Phase) ([]models.TopicDiagnostic, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := validatePhase(phase); err != nil {
		return nil, err
	}
	attempts, err := s.fetchStudent(ctx, studentID, phase)
	if err != nil {
		return nil, err
	}
	return scoring.Diagnose(attempts), nil
}

// Student looks up a single student in the directory.
func (s *PerformanceService) Student(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return student, nil
}

// Population returns the students matching the filter, in directory order.
func (s *PerformanceService) Population(ctx context.Context, filter models.PerformanceFilter) ([]models.Student, error) {
	start := time.Now()
	students, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list population: %w", err)
	}
	s.metrics.ObserveDBQuery("students", time.Since(start))
	return scoring.Select(students, filter), nil
}

// ComputeRanking ranks the qualifying students of the population for the phase.
func (s *PerformanceService) ComputeRanking(ctx context.Context, population []models.Student, phase models.Phase) ([]models.RankingEntry, error) {
	if err := validatePhase(phase); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.metrics.ObserveRanking("students", time.Since(start)) }()

	qualified, err := s.qualify(ctx, population, phase)
	if err != nil {
		return nil, err
	}
	entries := make([]models.RankingEntry, 0, len(qualified))
	for _, q := range qualified {
		entries = append(entries, models.RankingEntry{
			Student:               q.student,
			GlobalScore:           q.result.GlobalScore,
			TotalAttemptCount:     q.attempts,
			CompletedSubjectCount: len(q.result.Subjects),
		})
	}
	return scoring.RankStudents(entries), nil
}

// ComputeAverage returns the mean global score of the population's qualifying
// students, or 0 when none qualify.
func (s *PerformanceService) ComputeAverage(ctx context.Context, population []models.Student, phase models.Phase) (float64, error) {
	avg, err := s.average(ctx, population, phase)
	if err != nil {
		return 0, err
	}
	return avg.Average, nil
}

// StudentRanking ranks the students selected by the filter.
func (s *PerformanceService) StudentRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.RankingEntry, error) {
	if err := validatePhase(filter.Phase); err != nil {
		return nil, err
	}
	population, err := s.Population(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.ComputeRanking(ctx, population, filter.Phase)
}

// Average summarises the students selected by the filter, including per-subject means.
func (s *PerformanceService) Average(ctx context.Context, filter models.PerformanceFilter) (*models.PerformanceAverage, error) {
	if err := validatePhase(filter.Phase); err != nil {
		return nil, err
	}
	population, err := s.Population(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.average(ctx, population, filter.Phase)
}

// InstitutionRanking ranks institutions by the mean global score of their qualifying students.
func (s *PerformanceService) InstitutionRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, error) {
	if err := validatePhase(filter.Phase); err != nil {
		return nil, err
	}
	institutions, err := s.institutions.ListInstitutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	groups := make([]groupRef, 0, len(institutions))
	for _, inst := range institutions {
		if !scoring.Unrestricted(filter.InstitutionID) && strings.TrimSpace(filter.InstitutionID) != inst.ID {
			continue
		}
		groups = append(groups, groupRef{id: inst.ID, name: inst.Name})
	}
	return s.rankGroups(ctx, "institutions", filter, groups, func(st models.Student) string { return st.InstitutionID })
}

// CampusRanking ranks campuses by the mean global score of their qualifying students.
func (s *PerformanceService) CampusRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, error) {
	if err := validatePhase(filter.Phase); err != nil {
		return nil, err
	}
	institutionID := ""
	if !scoring.Unrestricted(filter.InstitutionID) {
		institutionID = strings.TrimSpace(filter.InstitutionID)
	}
	campuses, err := s.institutions.ListCampuses(ctx, institutionID)
	if err != nil {
		return nil, fmt.Errorf("list campuses: %w", err)
	}
	groups := make([]groupRef, 0, len(campuses))
	for _, campus := range campuses {
		if !scoring.Unrestricted(filter.CampusID) && strings.TrimSpace(filter.CampusID) != campus.ID {
			continue
		}
		groups = append(groups, groupRef{id: campus.ID, name: campus.Name})
	}
	return s.rankGroups(ctx, "campuses", filter, groups, func(st models.Student) string { return st.CampusID })
}

type groupRef struct {
	id   string
	name string
}

// rankGroups lists every known group, including those without students, and
// appends groups that only appear on student records.
func (s *PerformanceService) rankGroups(ctx context.Context, kind string, filter models.PerformanceFilter, known []groupRef, key func(models.Student) string) ([]models.GroupRanking, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveRanking(kind, time.Since(start)) }()

	population, err := s.Population(ctx, filter)
	if err != nil {
		return nil, err
	}
	qualified, err := s.qualify(ctx, population, filter.Phase)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(known))
	groups := make([]models.GroupRanking, 0, len(known))
	scores := make([][]float64, 0, len(known))
	for _, ref := range known {
		index[ref.id] = len(groups)
		groups = append(groups, models.GroupRanking{GroupID: ref.id, Name: ref.name})
		scores = append(scores, nil)
	}
	slot := func(id string) int {
		if i, ok := index[id]; ok {
			return i
		}
		index[id] = len(groups)
		groups = append(groups, models.GroupRanking{GroupID: id, Name: id})
		scores = append(scores, nil)
		return index[id]
	}

	for _, student := range population {
		if id := key(student); id != "" {
			groups[slot(id)].Population++
		}
	}
	for _, q := range qualified {
		id := key(q.student)
		if id == "" {
			continue
		}
		i := slot(id)
		scores[i] = append(scores[i], q.result.GlobalScore)
	}
	for i := range groups {
		groups[i].QualifyingStudents = len(scores[i])
		groups[i].Average = scoring.Round2(scoring.Mean(scores[i]))
	}
	return scoring.RankGroups(groups), nil
}

func (s *PerformanceService) average(ctx context.Context, population []models.Student, phase models.Phase) (*models.PerformanceAverage, error) {
	if err := validatePhase(phase); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.metrics.ObserveRanking("average", time.Since(start)) }()

	qualified, err := s.qualify(ctx, population, phase)
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(qualified))
	sets := make([]map[models.Subject]float64, 0, len(qualified))
	for _, q := range qualified {
		values = append(values, q.result.GlobalScore)
		sets = append(sets, q.result.Subjects)
	}
	return &models.PerformanceAverage{
		Phase:              phase,
		Average:            scoring.Round2(scoring.Mean(values)),
		QualifyingStudents: len(qualified),
		Population:         len(population),
		Subjects:           scoring.SubjectAverages(sets),
	}, nil
}

// qualify collects and aggregates the population, keeping only students with
// every canonical subject. Input order is preserved.
func (s *PerformanceService) qualify(ctx context.Context, population []models.Student, phase models.Phase) ([]qualifiedStudent, error) {
	collected, err := s.collector.CollectAll(ctx, population, phase)
	if err != nil {
		return nil, err
	}
	qualified := make([]qualifiedStudent, 0, len(collected))
	for _, item := range collected {
		if item.Failed {
			continue
		}
		result := scoring.Aggregate(item.Attempts)
		if !scoring.IsComplete(result.Subjects) {
			continue
		}
		qualified = append(qualified, qualifiedStudent{student: item.Student, result: result, attempts: len(item.Attempts)})
	}
	return qualified, nil
}

func (s *PerformanceService) fetchStudent(ctx context.Context, studentID string, phase models.Phase) ([]models.ExamAttempt, error) {
	attempts, err := s.collector.Collect(ctx, studentID, phase)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.metrics.RecordFetchFailure(phase)
		return nil, storeUnavailable(err)
	}
	return attempts, nil
}

func buildStudentPerformance(studentID string, phase models.Phase, attempts []models.ExamAttempt) *models.StudentPerformance {
	result := scoring.Aggregate(attempts)
	perf := &models.StudentPerformance{
		StudentID:         studentID,
		Phase:             phase,
		Subjects:          scoring.SubjectScores(result.Subjects),
		MissingSubjects:   scoring.MissingSubjects(result.Subjects),
		TotalAttemptCount: len(attempts),
		ValidAttemptCount: result.ValidAttempts,
	}
	if scoring.IsComplete(result.Subjects) {
		perf.GlobalScore = &models.GlobalScore{
			StudentID:             studentID,
			Phase:                 phase,
			Value:                 result.GlobalScore,
			CompletedSubjectCount: len(result.Subjects),
		}
	}
	return perf
}

func validatePhase(phase models.Phase) error {
	if !phase.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidPhase, fmt.Sprintf("unknown phase %q", phase))
	}
	return nil
}
