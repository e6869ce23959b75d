package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/athlete-performance-be/internal/apperrors"
	"github.com/isdelr/athlete-performance-be/internal/database"
	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// PerformanceServiceProvider defines the interface for performance services.
// Every lookup is scoped to the owning user.
type PerformanceServiceProvider interface {
	CreatePerformance(ctx context.Context, userID int64, input models.PerformanceInput, at time.Time) (models.Performance, error)
	ListPerformances(ctx context.Context, userID int64) ([]models.Performance, error)
	GetPerformance(ctx context.Context, userID, id int64) (models.Performance, error)
	UpdatePerformance(ctx context.Context, userID, id int64, input models.PerformanceInput) (models.Performance, error)
	DeletePerformance(ctx context.Context, userID, id int64) error
}

const performanceColumns = `id_performance, id_user, power_max, hr_max, vo2_max, rf_max,
	cadence_max, vo2_class, ressenti, date_performance`

// PerformanceService provides business logic for performance records.
type PerformanceService struct {
	db *sqlx.DB
}

// NewPerformanceService creates a new PerformanceService.
func NewPerformanceService(db *sqlx.DB) *PerformanceService {
	return &PerformanceService{db: db}
}

// CreatePerformance records a session for an existing user, stamped with at.
func (s *PerformanceService) CreatePerformance(ctx context.Context, userID int64, input models.PerformanceInput, at time.Time) (models.Performance, error) {
	var perf models.Performance
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		exists, err := userExists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrUserNotFound
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO performances (id_user, power_max, hr_max, vo2_max, rf_max, cadence_max, vo2_class, ressenti, date_performance)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, input.PowerMax, input.HRMax, input.VO2Max, input.RFMax, input.CadenceMax,
			input.VO2Class, input.Feeling, models.NewTimestamp(at))
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to insert performance")
			return fmt.Errorf("failed to create performance: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		perf, err = getPerformance(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return models.Performance{}, err
	}
	return perf, nil
}

// ListPerformances returns every performance of a user in insertion order.
func (s *PerformanceService) ListPerformances(ctx context.Context, userID int64) ([]models.Performance, error) {
	performances := []models.Performance{}
	err := s.db.SelectContext(ctx, &performances,
		"SELECT "+performanceColumns+" FROM performances WHERE id_user = ? ORDER BY id_performance", userID)
	if err != nil {
		return nil, err
	}
	return performances, nil
}

// GetPerformance retrieves one performance owned by userID.
func (s *PerformanceService) GetPerformance(ctx context.Context, userID, id int64) (models.Performance, error) {
	return getPerformance(ctx, s.db, userID, id)
}

// UpdatePerformance replaces the metrics of a performance owned by userID.
// The recorded date is kept.
func (s *PerformanceService) UpdatePerformance(ctx context.Context, userID, id int64, input models.PerformanceInput) (models.Performance, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE performances
		SET power_max = ?, hr_max = ?, vo2_max = ?, rf_max = ?, cadence_max = ?, vo2_class = ?, ressenti = ?
		WHERE id_performance = ? AND id_user = ?`,
		input.PowerMax, input.HRMax, input.VO2Max, input.RFMax, input.CadenceMax, input.VO2Class, input.Feeling,
		id, userID)
	if err != nil {
		log.Error().Err(err).Int64("performance_id", id).Msg("Failed to update performance")
		return models.Performance{}, fmt.Errorf("failed to update performance: %w", err)
	}
	if err := expectAffected(res, apperrors.ErrPerformanceNotFound); err != nil {
		return models.Performance{}, err
	}
	return getPerformance(ctx, s.db, userID, id)
}

// DeletePerformance removes a performance owned by userID.
func (s *PerformanceService) DeletePerformance(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM performances WHERE id_performance = ? AND id_user = ?", id, userID)
	if err != nil {
		log.Error().Err(err).Int64("performance_id", id).Msg("Failed to delete performance")
		return fmt.Errorf("failed to delete performance: %w", err)
	}
	return expectAffected(res, apperrors.ErrPerformanceNotFound)
}

// getPerformance treats a row owned by someone else exactly like a missing one.
func getPerformance(ctx context.Context, q sqlx.QueryerContext, userID, id int64) (models.Performance, error) {
	var perf models.Performance
	err := sqlx.GetContext(ctx, q, &perf,
		"SELECT "+performanceColumns+" FROM performances WHERE id_performance = ? AND id_user = ?", id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Performance{}, apperrors.ErrPerformanceNotFound
		}
		return models.Performance{}, err
	}
	return perf, nil
}
