package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-api/internal/models"
	appErrors "github.com/noah-isme/simulacro-api/pkg/errors"
	"github.com/noah-isme/simulacro-api/pkg/export"
)

// ExportFormat names a rendered ranking document type.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

var exportContentTypes = map[ExportFormat]string{
	ExportFormatCSV:  "text/csv",
	ExportFormatPDF:  "application/pdf",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type studentRankingProvider interface {
	StudentRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.RankingEntry, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type documentRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	MaxRows int
}

// ExportResult is a rendered ranking document.
type ExportResult struct {
	Filename    string
	ContentType string
	Format      ExportFormat
	Rows        int
	Payload     []byte
}

// ExportService renders student rankings into downloadable documents.
type ExportService struct {
	rankings studentRankingProvider
	csv      csvRenderer
	pdf      documentRenderer
	xlsx     documentRenderer
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(rankings studentRankingProvider, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf, xlsx documentRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{
		rankings: rankings,
		csv:      csv,
		pdf:      pdf,
		xlsx:     xlsx,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ParseExportFormat resolves a format name, defaulting to CSV when empty.
func ParseExportFormat(raw string) (ExportFormat, error) {
	format := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if format == "" {
		return ExportFormatCSV, nil
	}
	if _, ok := exportContentTypes[format]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
	return format, nil
}

// StudentRanking renders the filtered student ranking in the requested format.
func (s *ExportService) StudentRanking(ctx context.Context, filter models.PerformanceFilter, format ExportFormat) (*ExportResult, error) {
	contentType, ok := exportContentTypes[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	entries, _, err := s.rankings.StudentRanking(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxRows > 0 && len(entries) > s.cfg.MaxRows {
		s.logger.Info("ranking export truncated", zap.Int("rows", len(entries)), zap.Int("max_rows", s.cfg.MaxRows))
		entries = entries[:s.cfg.MaxRows]
	}

	dataset := RankingDataset(entries)
	title := fmt.Sprintf("Ranking %s", filter.Phase)

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	case ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, title)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}
	return &ExportResult{
		Filename:    s.buildFilename(filter, format),
		ContentType: contentType,
		Format:      format,
		Rows:        len(entries),
		Payload:     payload,
	}, nil
}

// RankingDataset flattens ranking entries into export rows.
func RankingDataset(entries []models.RankingEntry) export.Dataset {
	headers := []string{"Position", "Student ID", "Student", "Institution", "Campus", "Grade", "Jornada", "Global Score", "Attempts"}
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, map[string]string{
			"Position":     strconv.Itoa(entry.Position),
			"Student ID":   entry.Student.ID,
			"Student":      entry.Student.FullName,
			"Institution":  entry.Student.InstitutionID,
			"Campus":       entry.Student.CampusID,
			"Grade":        entry.Student.GradeID,
			"Jornada":      entry.Student.Jornada,
			"Global Score": fmt.Sprintf("%.2f", entry.GlobalScore),
			"Attempts":     strconv.Itoa(entry.TotalAttemptCount),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ExportService) buildFilename(filter models.PerformanceFilter, format ExportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := "all"
	if filter.InstitutionID != "" {
		scope = sanitizeFilename(filter.InstitutionID)
	}
	return fmt.Sprintf("ranking_%s_%s_%s.%s", filter.Phase, scope, timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// GroupRankingDataset flattens institution or campus rankings into export rows.
func GroupRankingDataset(groups []models.GroupRanking) export.Dataset {
	headers := []string{"Position", "ID", "Name", "Average", "Qualifying", "Population"}
	rows := make([]map[string]string, 0, len(groups))
	for _, group := range groups {
		rows = append(rows, map[string]string{
			"Position":   strconv.Itoa(group.Position),
			"ID":         group.GroupID,
			"Name":       group.Name,
			"Average":    fmt.Sprintf("%.2f", group.Average),
			"Qualifying": strconv.Itoa(group.QualifyingStudents),
			"Population": strconv.Itoa(group.Population),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// SubjectScoreDataset lists a student's best percentage per subject, followed
// by the missing subjects with an empty score.
func SubjectScoreDataset(perf *models.StudentPerformance) export.Dataset {
	headers := []string{"Subject", "Best Percentage"}
	rows := make([]map[string]string, 0, len(perf.Subjects)+len(perf.MissingSubjects))
	for _, subject := range perf.Subjects {
		rows = append(rows, map[string]string{
			"Subject":         string(subject.Subject),
			"Best Percentage": fmt.Sprintf("%.2f", subject.BestPercentage),
		})
	}
	for _, missing := range perf.MissingSubjects {
		rows = append(rows, map[string]string{"Subject": string(missing)})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
