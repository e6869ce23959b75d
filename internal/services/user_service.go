package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/athlete-performance-be/internal/apperrors"
	"github.com/isdelr/athlete-performance-be/internal/auth"
	"github.com/isdelr/athlete-performance-be/internal/database"
	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, input models.UserInput) (models.User, error)
	Login(ctx context.Context, username, password string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByToken(ctx context.Context, token string) (models.User, error)
	UpdateUser(ctx context.Context, id int64, input models.UserInput) (models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Public projection of a user row; the password hash is left out.
const userColumns = "id_user, username, nom, prenom, email, token, token_expires_at, role"

// UserService provides business logic for user management.
type UserService struct {
	db     *sqlx.DB
	tokens *auth.TokenManager
}

// NewUserService creates a new UserService.
func NewUserService(db *sqlx.DB, tokens *auth.TokenManager) *UserService {
	return &UserService{db: db, tokens: tokens}
}

// Register creates a user, hashing the password and issuing its first token.
func (s *UserService) Register(ctx context.Context, input models.UserInput) (models.User, error) {
	if err := checkUserExists(ctx, s.db, input.Username, input.Email, 0); err != nil {
		return models.User{}, err
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Username: input.Username,
		Name:     input.Name,
		Surname:  input.Surname,
		Email:    input.Email,
		Role:     input.Role,
	}

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (username, nom, prenom, email, password, role) VALUES (?, ?, ?, ?, ?, ?)",
			user.Username, user.Name, user.Surname, user.Email, hashed, user.Role)
		if err != nil {
			log.Error().Err(err).Str("username", user.Username).Msg("Failed to insert user")
			return apperrors.ErrUserExists
		}
		if user.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		return s.issueToken(ctx, tx, &user)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Login verifies credentials and replaces the user's stored token with a fresh one.
func (s *UserService) Login(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT "+userColumns+", password FROM users WHERE username = ?", username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperrors.ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return models.User{}, apperrors.ErrInvalidCredentials
	}
	user.PasswordHash = ""

	if err := s.issueToken(ctx, s.db, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// issueToken generates a token for user and persists it with its expiry.
func (s *UserService) issueToken(ctx context.Context, exec sqlx.ExecerContext, user *models.User) error {
	token, expiresAt, err := s.tokens.Generate(*user)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	expires := models.NewTimestamp(expiresAt)
	_, err = exec.ExecContext(ctx,
		"UPDATE users SET token = ?, token_expires_at = ? WHERE id_user = ?", token, expires, user.ID)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	expiresText := expires.UTC().Format(models.TimeLayout)
	user.Token = &token
	user.TokenExpiresAt = &expiresText
	return nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE id_user = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperrors.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByToken resolves a bearer token by exact match on the stored token.
func (s *UserService) GetUserByToken(ctx context.Context, token string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE token = ?", token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperrors.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// UpdateUser replaces every user field except the id and the token.
// The password is always re-hashed from the supplied plaintext.
func (s *UserService) UpdateUser(ctx context.Context, id int64, input models.UserInput) (models.User, error) {
	exists, err := userExists(ctx, s.db, id)
	if err != nil {
		return models.User{}, err
	}
	if !exists {
		return models.User{}, apperrors.ErrUserNotFound
	}

	if err := checkUserExists(ctx, s.db, input.Username, input.Email, id); err != nil {
		return models.User{}, err
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE users SET username = ?, nom = ?, prenom = ?, email = ?, password = ?, role = ? WHERE id_user = ?",
		input.Username, input.Name, input.Surname, input.Email, hashed, input.Role, id)
	if err != nil {
		log.Error().Err(err).Int64("user_id", id).Msg("Failed to update user")
		if isUniqueViolation(err) {
			return models.User{}, apperrors.ErrUserExists
		}
		return models.User{}, fmt.Errorf("failed to update user: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// DeleteUser removes a user together with their details and performances.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		exists, err := userExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrUserNotFound
		}

		for _, stmt := range []string{
			"DELETE FROM performances WHERE id_user = ?",
			"DELETE FROM details WHERE id_user = ?",
			"DELETE FROM users WHERE id_user = ?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				log.Error().Err(err).Int64("user_id", id).Msg("Failed to delete user")
				return fmt.Errorf("failed to delete user: %w", err)
			}
		}
		return nil
	})
}

// Exists reports whether a user with id exists.
func (s *UserService) Exists(ctx context.Context, id int64) (bool, error) {
	return userExists(ctx, s.db, id)
}

// PurgeExpiredTokens clears stored tokens whose expiry is at or before now.
func (s *UserService) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET token = NULL, token_expires_at = NULL WHERE token_expires_at IS NOT NULL AND token_expires_at <= ?",
		models.NewTimestamp(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func userExists(ctx context.Context, q sqlx.QueryerContext, id int64) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, "SELECT EXISTS(SELECT 1 FROM users WHERE id_user = ?)", id); err != nil {
		return false, err
	}
	return exists, nil
}

// checkUserExists reports a conflict when username or email belongs to a user
// other than excludeID. The username is checked first.
func checkUserExists(ctx context.Context, q sqlx.QueryerContext, username, email string, excludeID int64) error {
	const query = `
		SELECT
			EXISTS(SELECT 1 FROM users WHERE username = ? AND id_user <> ?) AS username_exists,
			EXISTS(SELECT 1 FROM users WHERE email = ? AND id_user <> ?) AS email_exists`

	var usernameExists, emailExists bool
	err := q.QueryRowxContext(ctx, query, username, excludeID, email, excludeID).Scan(&usernameExists, &emailExists)
	if err != nil {
		return err
	}

	switch {
	case usernameExists:
		return apperrors.ErrUsernameExists
	case emailExists:
		return apperrors.ErrEmailExists
	default:
		return nil
	}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
