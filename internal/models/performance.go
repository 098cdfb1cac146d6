package models

// SubjectScore is the best percentage reached in one canonical subject.
type SubjectScore struct {
	Subject        Subject `json:"subject"`
	BestPercentage float64 `json:"best_percentage"`
}

// GlobalScore is the 0-500 composite for a qualifying student in a phase.
type GlobalScore struct {
	StudentID             string  `json:"student_id"`
	Phase                 Phase   `json:"phase"`
	Value                 float64 `json:"value"`
	CompletedSubjectCount int     `json:"completed_subject_count"`
}

// RankingEntry is one qualifying student in a ranking.
type RankingEntry struct {
	Position              int     `json:"position"`
	Student               Student `json:"student"`
	GlobalScore           float64 `json:"global_score"`
	TotalAttemptCount     int     `json:"total_attempt_count"`
	CompletedSubjectCount int     `json:"completed_subject_count"`
}

// GroupRanking ranks an institution or campus by the mean of its qualifying students.
type GroupRanking struct {
	Position           int     `json:"position"`
	GroupID            string  `json:"group_id"`
	Name               string  `json:"name"`
	Average            float64 `json:"average"`
	QualifyingStudents int     `json:"qualifying_students"`
	Population         int     `json:"population"`
}

// PerformanceFilter narrows the student population. Empty or "all" values do not restrict.
type PerformanceFilter struct {
	InstitutionID string `json:"institution_id,omitempty"`
	CampusID      string `json:"campus_id,omitempty"`
	GradeID       string `json:"grade_id,omitempty"`
	Jornada       string `json:"jornada,omitempty"`
	AcademicYear  int    `json:"academic_year,omitempty"`
	Phase         Phase  `json:"phase"`
}

// SubjectAverage is the mean best percentage of one subject over qualifying students.
type SubjectAverage struct {
	Subject  Subject `json:"subject"`
	Average  float64 `json:"average"`
	Students int     `json:"students"`
}

// PerformanceAverage summarises a population for a phase.
type PerformanceAverage struct {
	Phase              Phase            `json:"phase"`
	Average            float64          `json:"average"`
	QualifyingStudents int              `json:"qualifying_students"`
	Population         int              `json:"population"`
	Subjects           []SubjectAverage `json:"subjects"`
}

// StudentPerformance is the per-student breakdown behind a global score.
type StudentPerformance struct {
	StudentID         string         `json:"student_id"`
	Phase             Phase          `json:"phase"`
	GlobalScore       *GlobalScore   `json:"global_score"`
	Subjects          []SubjectScore `json:"subjects"`
	MissingSubjects   []Subject      `json:"missing_subjects"`
	TotalAttemptCount int            `json:"total_attempt_count"`
	ValidAttemptCount int            `json:"valid_attempt_count"`
}

// TopicDiagnostic aggregates question outcomes for one topic of a subject.
type TopicDiagnostic struct {
	Subject    string  `json:"subject"`
	Topic      string  `json:"topic"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}
