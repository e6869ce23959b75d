package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/athlete-performance-be/internal/apperrors"
	"github.com/isdelr/athlete-performance-be/internal/database"
	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// DetailsServiceProvider defines the interface for details services.
type DetailsServiceProvider interface {
	CreateDetails(ctx context.Context, userID int64, input models.DetailsInput) (models.Details, error)
	GetDetails(ctx context.Context, userID int64) (models.Details, error)
	UpdateDetails(ctx context.Context, userID int64, input models.DetailsInput) (models.Details, error)
	DeleteDetails(ctx context.Context, userID int64) error
}

// DetailsService provides business logic for a user's physiological details.
type DetailsService struct {
	db *sqlx.DB
}

// NewDetailsService creates a new DetailsService.
func NewDetailsService(db *sqlx.DB) *DetailsService {
	return &DetailsService{db: db}
}

// CreateDetails inserts the details row of an existing user that has none yet.
func (s *DetailsService) CreateDetails(ctx context.Context, userID int64, input models.DetailsInput) (models.Details, error) {
	details := models.Details{
		UserID: userID,
		Gender: input.Gender,
		Age:    input.Age,
		Weight: input.Weight,
		Height: input.Height,
	}

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		exists, err := userExists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrUserNotFound
		}

		if _, err := getDetails(ctx, tx, userID); err == nil {
			return apperrors.ErrDetailsExist
		} else if !errors.Is(err, apperrors.ErrDetailsNotFound) {
			return err
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO details (id_user, gender, age, weight, height) VALUES (?, ?, ?, ?, ?)",
			details.UserID, details.Gender, details.Age, details.Weight, details.Height)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to insert details")
			return fmt.Errorf("failed to create details: %w", err)
		}
		details.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return models.Details{}, err
	}
	return details, nil
}

// GetDetails retrieves the details of a user.
func (s *DetailsService) GetDetails(ctx context.Context, userID int64) (models.Details, error) {
	return getDetails(ctx, s.db, userID)
}

// UpdateDetails replaces every details field of a user.
func (s *DetailsService) UpdateDetails(ctx context.Context, userID int64, input models.DetailsInput) (models.Details, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE details SET gender = ?, age = ?, weight = ?, height = ? WHERE id_user = ?",
		input.Gender, input.Age, input.Weight, input.Height, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to update details")
		return models.Details{}, fmt.Errorf("failed to update details: %w", err)
	}
	if err := expectAffected(res, apperrors.ErrDetailsNotFound); err != nil {
		return models.Details{}, err
	}
	return getDetails(ctx, s.db, userID)
}

// DeleteDetails removes the details of a user.
func (s *DetailsService) DeleteDetails(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM details WHERE id_user = ?", userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to delete details")
		return fmt.Errorf("failed to delete details: %w", err)
	}
	return expectAffected(res, apperrors.ErrDetailsNotFound)
}

func getDetails(ctx context.Context, q sqlx.QueryerContext, userID int64) (models.Details, error) {
	var details models.Details
	err := sqlx.GetContext(ctx, q, &details,
		"SELECT id_details, id_user, gender, age, weight, height FROM details WHERE id_user = ? ORDER BY id_details LIMIT 1", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Details{}, apperrors.ErrDetailsNotFound
		}
		return models.Details{}, err
	}
	return details, nil
}

// expectAffected turns a write that touched no row into notFound.
func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
