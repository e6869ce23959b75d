package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/jmoiron/sqlx"
)

// ReportServiceProvider defines the interface for aggregate reports.
// A nil report with a nil error means the query matched nothing.
type ReportServiceProvider interface {
	MaxPower(ctx context.Context) (*models.PeakReport, error)
	MaxPowerForUser(ctx context.Context, userID int64) (*models.PeakReport, error)
	MaxVO2(ctx context.Context) (*models.PeakReport, error)
	MaxVO2ForUser(ctx context.Context, userID int64) (*models.PeakReport, error)
	BestPowerToWeight(ctx context.Context) (*models.RatioReport, error)
}

// ReportService runs read-only reporting queries across users and performances.
type ReportService struct {
	db *sqlx.DB
}

// NewReportService creates a new ReportService.
func NewReportService(db *sqlx.DB) *ReportService {
	return &ReportService{db: db}
}

// MaxPower returns the performance with the highest power across all users.
func (s *ReportService) MaxPower(ctx context.Context) (*models.PeakReport, error) {
	return s.peak(ctx, models.MetricPower, nil)
}

// MaxPowerForUser returns the user's performance with the highest power.
func (s *ReportService) MaxPowerForUser(ctx context.Context, userID int64) (*models.PeakReport, error) {
	return s.peak(ctx, models.MetricPower, &userID)
}

// MaxVO2 returns the performance with the highest VO2 across all users.
func (s *ReportService) MaxVO2(ctx context.Context) (*models.PeakReport, error) {
	return s.peak(ctx, models.MetricVO2, nil)
}

// MaxVO2ForUser returns the user's performance with the highest VO2.
func (s *ReportService) MaxVO2ForUser(ctx context.Context, userID int64) (*models.PeakReport, error) {
	return s.peak(ctx, models.MetricVO2, &userID)
}

// peak selects the row with the largest non-null metric, oldest first on ties.
// metric must be one of the models.Metric* column names.
func (s *ReportService) peak(ctx context.Context, metric string, userID *int64) (*models.PeakReport, error) {
	switch metric {
	case models.MetricPower, models.MetricVO2:
	default:
		return nil, fmt.Errorf("unsupported report metric %q", metric)
	}

	query := fmt.Sprintf(`
		SELECT p.id_user, u.username, p.id_performance, p.%[1]s AS value, p.date_performance
		FROM performances p
		JOIN users u ON u.id_user = p.id_user
		WHERE p.%[1]s IS NOT NULL`, metric)
	var args []any
	if userID != nil {
		query += " AND p.id_user = ?"
		args = append(args, *userID)
	}
	query += fmt.Sprintf(" ORDER BY p.%s DESC, p.id_performance ASC LIMIT 1", metric)

	var report models.PeakReport
	if err := s.db.GetContext(ctx, &report, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	report.Metric = metric
	return &report, nil
}

// BestPowerToWeight ranks users by their average power-to-weight ratio and
// returns the top one. Users without a positive weight are left out.
func (s *ReportService) BestPowerToWeight(ctx context.Context) (*models.RatioReport, error) {
	const query = `
		SELECT u.id_user, u.username, d.weight, AVG(p.power_max / d.weight) AS ratio
		FROM performances p
		JOIN users u ON u.id_user = p.id_user
		JOIN details d ON d.id_user = u.id_user
		WHERE p.power_max IS NOT NULL AND d.weight > 0
		GROUP BY u.id_user, u.username, d.weight
		ORDER BY ratio DESC, u.id_user ASC
		LIMIT 1`

	var report models.RatioReport
	if err := s.db.GetContext(ctx, &report, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}
