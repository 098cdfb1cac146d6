package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/simulacro-api/internal/models"
)

// ExamResultRepository reads practice exam attempts.
type ExamResultRepository struct {
	db *sqlx.DB
}

// NewExamResultRepository constructs an ExamResultRepository.
func NewExamResultRepository(db *sqlx.DB) *ExamResultRepository {
	return &ExamResultRepository{db: db}
}

type examAttemptRow struct {
	ID                string          `db:"id"`
	StudentID         string          `db:"student_id"`
	Phase             string          `db:"phase"`
	Subject           sql.NullString  `db:"subject"`
	Completed         bool            `db:"completed"`
	OverallPercentage sql.NullFloat64 `db:"overall_percentage"`
	CorrectAnswers    sql.NullInt64   `db:"correct_answers"`
	TotalQuestions    sql.NullInt64   `db:"total_questions"`
	QuestionDetails   sql.NullString  `db:"question_details"`
	SubmittedAt       *time.Time      `db:"submitted_at"`
}

// GetPhaseResults returns every attempt stored for the student in the phase.
func (r *ExamResultRepository) GetPhaseResults(ctx context.Context, studentID string, phase models.Phase) ([]models.ExamAttempt, error) {
	query := r.db.Rebind(`SELECT id, student_id, phase, subject, completed, overall_percentage, correct_answers, total_questions, question_details, submitted_at
        FROM exam_attempts
        WHERE student_id = ? AND phase = ?
        ORDER BY submitted_at, id`)

	var rows []examAttemptRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, string(phase)); err != nil {
		return nil, fmt.Errorf("list exam attempts: %w", err)
	}

	attempts := make([]models.ExamAttempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, row.toModel())
	}
	return attempts, nil
}

// Ping checks that the attempts store still answers.
func (r *ExamResultRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (row examAttemptRow) toModel() models.ExamAttempt {
	attempt := models.ExamAttempt{
		ID:          row.ID,
		StudentID:   row.StudentID,
		Phase:       models.Phase(row.Phase),
		Subject:     row.Subject.String,
		Completed:   row.Completed,
		SubmittedAt: row.SubmittedAt,
	}
	if row.OverallPercentage.Valid {
		attempt.Score = &models.AttemptScore{
			OverallPercentage: row.OverallPercentage.Float64,
			CorrectAnswers:    int(row.CorrectAnswers.Int64),
			TotalQuestions:    int(row.TotalQuestions.Int64),
		}
	}
	if row.QuestionDetails.Valid && row.QuestionDetails.String != "" {
		var details []models.QuestionDetail
		// Unreadable details only cost the diagnostic breakdown.
		if err := json.Unmarshal([]byte(row.QuestionDetails.String), &details); err == nil {
			attempt.QuestionDetails = details
		}
	}
	return attempt
}
