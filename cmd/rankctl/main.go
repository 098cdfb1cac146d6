package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-api/internal/models"
	"github.com/noah-isme/simulacro-api/internal/repository"
	"github.com/noah-isme/simulacro-api/internal/service"
	"github.com/noah-isme/simulacro-api/pkg/config"
	"github.com/noah-isme/simulacro-api/pkg/database"
	"github.com/noah-isme/simulacro-api/pkg/export"
	"github.com/noah-isme/simulacro-api/pkg/logger"
)

type filterFlags struct {
	phase       string
	institution string
	campus      string
	grade       string
	jornada     string
	year        int
}

func (f filterFlags) resolve() (models.PerformanceFilter, error) {
	phase, ok := models.ParsePhase(f.phase)
	if !ok {
		return models.PerformanceFilter{}, fmt.Errorf("unknown phase %q", f.phase)
	}
	return models.PerformanceFilter{
		InstitutionID: strings.TrimSpace(f.institution),
		CampusID:      strings.TrimSpace(f.campus),
		GradeID:       strings.TrimSpace(f.grade),
		Jornada:       strings.TrimSpace(f.jornada),
		AcademicYear:  f.year,
		Phase:         phase,
	}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "rankctl",
		Short:        "Inspect simulacro scores and rankings",
		Long:         "rankctl computes scores and rankings from the configured database and prints them as CSV.",
		SilenceUsage: true,
	}

	var filters filterFlags
	var timeout time.Duration
	rootCmd.PersistentFlags().StringVarP(&filters.phase, "phase", "p", string(models.PhaseOne), "Phase (fase1, fase2, fase3)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall command timeout")

	scoreCmd := &cobra.Command{
		Use:   "score [student id]",
		Short: "Print a student's best percentage per subject and global score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), timeout, func(ctx context.Context, svc *service.PerformanceService) error {
				return runScore(ctx, svc, args[0], filters)
			})
		},
	}

	rankingCmd := &cobra.Command{
		Use:   "ranking",
		Short: "Print the student ranking for a population",
		Long: `Print the student ranking for a population.

Examples:
  rankctl ranking --phase fase1
  rankctl ranking --phase fase2 --institution inst-1 --jornada manana
  rankctl ranking -p fase3 --grade 11 --year 2024`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), timeout, func(ctx context.Context, svc *service.PerformanceService) error {
				return runRanking(ctx, svc, filters)
			})
		},
	}
	rankingCmd.Flags().StringVarP(&filters.institution, "institution", "i", "", "Institution ID")
	rankingCmd.Flags().StringVarP(&filters.campus, "campus", "c", "", "Campus ID")
	rankingCmd.Flags().StringVarP(&filters.grade, "grade", "g", "", "Grade ID")
	rankingCmd.Flags().StringVarP(&filters.jornada, "jornada", "j", "", "Jornada")
	rankingCmd.Flags().IntVarP(&filters.year, "year", "y", 0, "Academic year")

	institutionsCmd := &cobra.Command{
		Use:   "institutions",
		Short: "Print the institution ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), timeout, func(ctx context.Context, svc *service.PerformanceService) error {
				return runInstitutions(ctx, svc, filters)
			})
		},
	}

	var tokenReq service.TokenRequest
	var tokenTTL time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(tokenReq, tokenTTL)
		},
	}
	tokenCmd.Flags().StringVar(&tokenReq.UserID, "user", "", "User ID (the student id for students)")
	tokenCmd.Flags().StringVar((*string)(&tokenReq.Role), "role", string(models.RoleAdmin), "Role (STUDENT, TEACHER, COORDINATOR, RECTOR, ADMIN)")
	tokenCmd.Flags().StringVar(&tokenReq.InstitutionID, "institution", "", "Institution the token is bound to")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(rankingCmd)
	rootCmd.AddCommand(institutionsCmd)
	rootCmd.AddCommand(tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withService(parent context.Context, timeout time.Duration, run func(context.Context, *service.PerformanceService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	collector := service.NewResultCollector(repository.NewExamResultRepository(db), nil, logr, service.ResultCollectorConfig{
		Concurrency: cfg.Ranking.FetchConcurrency,
		Timeout:     cfg.Ranking.FetchTimeout,
	})
	svc := service.NewPerformanceService(service.PerformanceServiceParams{
		Collector:    collector,
		Students:     repository.NewStudentRepository(db),
		Institutions: repository.NewInstitutionRepository(db),
		Logger:       logr.With(zap.String("component", "rankctl")),
	})

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return run(ctx, svc)
}

func runScore(ctx context.Context, svc *service.PerformanceService, studentID string, filters filterFlags) error {
	filter, err := filters.resolve()
	if err != nil {
		return err
	}
	perf, err := svc.StudentPerformance(ctx, studentID, filter.Phase)
	if err != nil {
		return err
	}
	if err := writeCSV(service.SubjectScoreDataset(perf)); err != nil {
		return err
	}
	if perf.GlobalScore == nil {
		fmt.Fprintf(os.Stderr, "%s has not completed every subject in %s\n", studentID, filter.Phase)
		return nil
	}
	fmt.Fprintf(os.Stderr, "global score: %.2f\n", perf.GlobalScore.Value)
	return nil
}

func runRanking(ctx context.Context, svc *service.PerformanceService, filters filterFlags) error {
	filter, err := filters.resolve()
	if err != nil {
		return err
	}
	entries, err := svc.StudentRanking(ctx, filter)
	if err != nil {
		return err
	}
	return writeCSV(service.RankingDataset(entries))
}

func runInstitutions(ctx context.Context, svc *service.PerformanceService, filters filterFlags) error {
	filter, err := filters.resolve()
	if err != nil {
		return err
	}
	groups, err := svc.InstitutionRanking(ctx, filter)
	if err != nil {
		return err
	}
	return writeCSV(service.GroupRankingDataset(groups))
}

func runToken(req service.TokenRequest, ttl time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	tokens := service.NewTokenService(nil, service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Expiry: ttl})
	token, expiresAt, err := tokens.IssueToken(req)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func writeCSV(data export.Dataset) error {
	payload, err := export.NewCSVExporter().Render(data)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(payload)
	return err
}
