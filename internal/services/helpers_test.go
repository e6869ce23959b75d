package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/athlete-performance-be/internal/auth"
	"github.com/isdelr/athlete-performance-be/internal/database"
	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newUserService(db *sqlx.DB) *UserService {
	return NewUserService(db, auth.NewTokenManager(testSecret, time.Hour))
}

func userInput(name, role string) models.UserInput {
	return models.UserInput{
		Username: name,
		Name:     "Name " + name,
		Surname:  "Surname " + name,
		Email:    name + "@example.com",
		Password: "pw-" + name,
		Role:     role,
	}
}

func mustRegister(t *testing.T, svc *UserService, name, role string) models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), userInput(name, role))
	require.NoError(t, err)
	return user
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func stringPtr(v string) *string { return &v }
