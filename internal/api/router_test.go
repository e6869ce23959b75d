package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/athlete-performance-be/internal/auth"
	"github.com/isdelr/athlete-performance-be/internal/database"
	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/isdelr/athlete-performance-be/internal/services"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

type testServer struct {
	t      *testing.T
	db     *sqlx.DB
	router http.Handler
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	tokens := auth.NewTokenManager(testSecret, time.Hour)
	router := NewRouter(Dependencies{
		DB:                 db,
		Tokens:             tokens,
		UserService:        services.NewUserService(db, tokens),
		DetailsService:     services.NewDetailsService(db),
		PerformanceService: services.NewPerformanceService(db),
		ReportService:      services.NewReportService(db),
		AllowedOrigins:     []string{"http://localhost:3000"},
	})
	return &testServer{t: t, db: db, router: router, tokens: tokens}
}

func (s *testServer) do(method, path, token string, payload any) *httptest.ResponseRecorder {
	s.t.Helper()
	var body bytes.Buffer
	switch p := payload.(type) {
	case nil:
	case string:
		body.WriteString(p)
	default:
		require.NoError(s.t, json.NewEncoder(&body).Encode(p))
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(username, role string) models.User {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/admin/users/", "", map[string]string{
		"username": username,
		"nom":      "Nom",
		"prenom":   "Prenom",
		"email":    username + "@example.com",
		"password": "secret-" + username,
		"role":     role,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[models.User](s.t, rec)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorBody(code int, message string) string {
	return fmt.Sprintf(`{"code":%d,"message":%q}`, code, message)
}

func TestWelcomeAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")

	rec = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("database is closed") }

func TestHealthUnavailable(t *testing.T) {
	router := NewRouter(Dependencies{DB: failingPinger{}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestRegisterAndRecordPerformance(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/admin/users/", "", map[string]string{
		"username": "amy", "email": "amy@example.com", "password": "secret", "role": "athlete",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotZero(t, raw["id_user"])
	assert.NotEmpty(t, raw["token"])
	assert.NotContains(t, raw, "password")
	amyToken := raw["token"].(string)

	rec = s.do(http.MethodPost, "/performance/performances/", amyToken, map[string]any{"power_max": 250})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	perf := decodeBody[models.Performance](t, rec)
	require.NotNil(t, perf.PowerMax)
	assert.Equal(t, 250.0, *perf.PowerMax)
	assert.False(t, perf.DatePerformance.IsZero())
	assert.WithinDuration(t, time.Now(), perf.DatePerformance.Time, time.Minute)

	bob := s.register("bob", models.RoleAthlete)
	path := fmt.Sprintf("/performance/performances/%d", perf.ID)

	rec = s.do(http.MethodGet, path, *bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, errorBody(404, "performance not found"), rec.Body.String())

	rec = s.do(http.MethodPut, path, *bob.Token, map[string]any{"power_max": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, path, *bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/performance/performances/", *bob.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(http.MethodPut, path, amyToken, map[string]any{"power_max": 260, "ressenti": 8})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[models.Performance](t, rec)
	assert.Equal(t, 260.0, *updated.PowerMax)
	assert.Equal(t, 8, *updated.Feeling)

	rec = s.do(http.MethodDelete, path, amyToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"performance deleted"}`, rec.Body.String())

	rec = s.do(http.MethodDelete, path, amyToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	amy := s.register("amy", models.RoleAthlete)
	s.register("bob", models.RoleAthlete)
	path := fmt.Sprintf("/admin/users/%d", amy.ID)

	t.Run("GetIsIdempotent", func(t *testing.T) {
		first := s.do(http.MethodGet, path, "", nil)
		second := s.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.NotContains(t, first.Body.String(), "password")
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/admin/users/", "", map[string]string{
			"username": "amy", "email": "new@example.com", "password": "pw", "role": "athlete",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, errorBody(409, "username already exists"), rec.Body.String())
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/admin/users/", "", map[string]string{
			"username": "new", "email": "bob@example.com", "password": "pw", "role": "athlete",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, errorBody(409, "email already exists"), rec.Body.String())
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/admin/users/", "", map[string]string{
			"username": "cal", "email": "not-an-email", "password": "pw", "role": "referee",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/admin/users/", "", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, errorBody(400, "bad request"), rec.Body.String())
	})

	t.Run("InvalidID", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/admin/users/abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, errorBody(400, "invalid id"), rec.Body.String())
	})

	t.Run("UpdateKeepsToken", func(t *testing.T) {
		rec := s.do(http.MethodPut, path, "", map[string]string{
			"username": "amy", "nom": "Amelia", "email": "amy@example.com", "password": "changed", "role": "athlete",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decodeBody[models.User](t, rec)
		assert.Equal(t, "Amelia", updated.Name)
		assert.Equal(t, amy.Token, updated.Token)
	})

	t.Run("DeleteThenMissing", func(t *testing.T) {
		rec := s.do(http.MethodDelete, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"user deleted"}`, rec.Body.String())

		rec = s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = s.do(http.MethodDelete, path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, errorBody(404, "user not found"), rec.Body.String())
	})
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "amy", "email": "amy@example.com", "password": "secret", "role": "coach",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decodeBody[models.User](t, rec)

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "amy", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, errorBody(401, "invalid credentials"), rec.Body.String())

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "amy", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loggedIn := decodeBody[models.User](t, rec)
	require.NotNil(t, loggedIn.Token)
	assert.NotEqual(t, *registered.Token, *loggedIn.Token)

	rec = s.do(http.MethodGet, "/performance/performances/", *registered.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "replaced token is rejected")

	rec = s.do(http.MethodGet, "/performance/performances/", *loggedIn.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	s := newTestServer(t)
	amy := s.register("amy", models.RoleAthlete)

	expiredTokens := auth.NewTokenManager(testSecret, -time.Minute)
	expired, _, err := expiredTokens.Generate(amy)
	require.NoError(t, err)
	_, err = s.db.Exec("UPDATE users SET token = ? WHERE id_user = ?", expired, amy.ID)
	require.NoError(t, err)

	foreign, _, err := auth.NewTokenManager("other-secret", time.Hour).Generate(amy)
	require.NoError(t, err)

	testCases := []struct {
		name           string
		header         string
		expectedStatus int
		expectedBody   string
	}{
		{"MissingHeader", "", http.StatusUnauthorized, errorBody(401, "missing bearer token")},
		{"WrongScheme", "Basic abc", http.StatusUnauthorized, errorBody(401, "malformed authorization header")},
		{"UnknownToken", "Bearer not-a-token", http.StatusUnauthorized, errorBody(401, "invalid or expired token")},
		{"ExpiredStoredToken", "Bearer " + expired, http.StatusUnauthorized, errorBody(401, "invalid or expired token")},
		{"ForeignSignature", "Bearer " + foreign, http.StatusUnauthorized, errorBody(401, "invalid or expired token")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/performance/performances/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.JSONEq(t, tc.expectedBody, rec.Body.String())
		})
	}
}

func TestDetailsEndpoints(t *testing.T) {
	s := newTestServer(t)
	amy := s.register("amy", models.RoleAthlete)
	path := fmt.Sprintf("/admin/details/%d", amy.ID)
	payload := map[string]any{"gender": "F", "age": 29, "weight": 57.5, "height": 166}

	rec := s.do(http.MethodPost, "/admin/details/9999", "", payload)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, errorBody(404, "user not found"), rec.Body.String())

	rec = s.do(http.MethodPost, path, "", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[models.Details](t, rec)
	assert.Equal(t, amy.ID, created.UserID)

	rec = s.do(http.MethodPost, path, "", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)

	payload["weight"] = 59.0
	rec = s.do(http.MethodPut, path, "", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 59.0, decodeBody[models.Details](t, rec).Weight)

	rec = s.do(http.MethodPut, path, "", map[string]any{"gender": "F", "age": 29, "weight": 0, "height": 166})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodDelete, path, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, errorBody(404, "details not found"), rec.Body.String())
}

func TestReportEndpoints(t *testing.T) {
	s := newTestServer(t)
	coach := s.register("coach", models.RoleCoach)
	amy := s.register("amy", models.RoleAthlete)
	bob := s.register("bob", models.RoleAthlete)

	rec := s.do(http.MethodGet, "/performance/performances/puissance/details", *coach.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"no performance data available"}`, rec.Body.String())

	for _, p := range []struct {
		token string
		body  map[string]any
	}{
		{*amy.Token, map[string]any{"power_max": 300, "vo2_max": 50}},
		{*bob.Token, map[string]any{"power_max": 280, "vo2_max": 63}},
	} {
		rec := s.do(http.MethodPost, "/performance/performances/", p.token, p.body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	for _, d := range []struct {
		id     int64
		weight float64
	}{{amy.ID, 60}, {bob.ID, 50}} {
		rec := s.do(http.MethodPost, fmt.Sprintf("/admin/details/%d", d.id), "", map[string]any{
			"gender": "F", "age": 30, "weight": d.weight, "height": 170,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	t.Run("AthleteForbiddenOnGlobalReports", func(t *testing.T) {
		for _, path := range []string{"puissance/details", "VO2max/details", "poidspuissance/details"} {
			rec := s.do(http.MethodGet, "/performance/performances/"+path, *amy.Token, nil)
			assert.Equal(t, http.StatusForbidden, rec.Code, path)
			assert.JSONEq(t, errorBody(403, "insufficient role"), rec.Body.String())
		}
	})

	t.Run("CoachSeesGlobalMaxima", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/performance/performances/puissance/details", *coach.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		peak := decodeBody[models.PeakReport](t, rec)
		assert.Equal(t, amy.ID, peak.UserID)
		assert.Equal(t, 300.0, peak.Value)

		rec = s.do(http.MethodGet, "/performance/performances/VO2max/details", *coach.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, bob.ID, decodeBody[models.PeakReport](t, rec).UserID)

		rec = s.do(http.MethodGet, "/performance/performances/poidspuissance/details", *coach.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		ratio := decodeBody[models.RatioReport](t, rec)
		assert.Equal(t, bob.ID, ratio.UserID)
		assert.InDelta(t, 5.6, ratio.Ratio, 1e-9)
	})

	t.Run("PerUserReports", func(t *testing.T) {
		own := fmt.Sprintf("/performance/performances/puissance/detail/%d", amy.ID)
		other := fmt.Sprintf("/performance/performances/VO2max/detail/%d", bob.ID)

		rec := s.do(http.MethodGet, own, *amy.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 300.0, decodeBody[models.PeakReport](t, rec).Value)

		rec = s.do(http.MethodGet, other, *amy.Token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = s.do(http.MethodGet, other, *coach.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 63.0, decodeBody[models.PeakReport](t, rec).Value)

		rec = s.do(http.MethodGet, fmt.Sprintf("/performance/performances/puissance/detail/%d", coach.ID), *coach.Token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"no performance data available"}`, rec.Body.String())
	})
}
