package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/isdelr/athlete-performance-be/internal/auth"
	"github.com/isdelr/athlete-performance-be/internal/database"
	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/isdelr/athlete-performance-be/internal/services"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sqlx.DB
	users *services.UserService
	perfs *services.PerformanceService
	amy   models.User
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	users := services.NewUserService(db, auth.NewTokenManager("secret", time.Hour))
	amy, err := users.Register(context.Background(), models.UserInput{
		Username: "amy", Email: "amy@example.com", Password: "pw", Role: models.RoleAthlete,
	})
	require.NoError(t, err)

	return &fixture{
		db:    db,
		users: users,
		perfs: services.NewPerformanceService(db),
		amy:   amy,
		dir:   t.TempDir(),
	}
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644))
}

func (f *fixture) importer(dryRun bool, now time.Time) *Importer {
	return New(f.users, f.perfs, Options{
		DryRun: dryRun,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return now },
	})
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func resultByName(t *testing.T, s *Summary, name string) FileResult {
	t.Helper()
	for _, r := range s.Files {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result for %s", name)
	return FileResult{}
}

func TestRunImportsDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	amyFile := "sbj_" + itoa(f.amy.ID) + ".json"
	f.write(t, amyFile, `[
		{"power.max": 312.5, "hr.max": 188, "vo2.max": 55.1, "vo2.class": [74, 88], "ressenti": 8},
		{"power.max": 290, "rf.max": 42, "cadence.max": 96}
	]`)
	f.write(t, "sbj_999.json", `{"power.max": 100}`)
	f.write(t, "sbj_"+itoa(f.amy.ID)+"_broken.json", `{}`)
	f.write(t, "notes.txt", "hello")
	require.NoError(t, os.Mkdir(filepath.Join(f.dir, "archive"), 0o755))

	summary, err := f.importer(false, now).Run(ctx, f.dir)
	require.NoError(t, err)

	assert.Len(t, summary.Files, 4)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 3, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 2, summary.Inserted)

	imported := resultByName(t, summary, amyFile)
	assert.Equal(t, StatusImported, imported.Status)
	assert.Equal(t, f.amy.ID, imported.UserID)

	unknown := resultByName(t, summary, "sbj_999.json")
	assert.Equal(t, StatusSkipped, unknown.Status)
	assert.ErrorIs(t, unknown.Err, ErrUnknownUser)

	assert.ErrorIs(t, resultByName(t, summary, "notes.txt").Err, ErrBadFileName)

	perfs, err := f.perfs.ListPerformances(ctx, f.amy.ID)
	require.NoError(t, err)
	require.Len(t, perfs, 2)

	first := perfs[0]
	assert.Equal(t, 312.5, *first.PowerMax)
	assert.Equal(t, 188.0, *first.HRMax)
	assert.Equal(t, "[74,88]", *first.VO2Class)
	assert.Equal(t, 8, *first.Feeling)
	assert.True(t, now.Equal(first.DatePerformance.Time))

	second := perfs[1]
	assert.Nil(t, second.HRMax)
	assert.Equal(t, "[]", *second.VO2Class)
	assert.Equal(t, 5, *second.Feeling)
}

func TestRunReportsMalformedJSON(t *testing.T) {
	f := newFixture(t)
	f.write(t, "sbj_"+itoa(f.amy.ID)+".json", `{"power.max": `)

	summary, err := f.importer(false, time.Now()).Run(context.Background(), f.dir)
	require.NoError(t, err)

	require.Len(t, summary.Files, 1)
	assert.Equal(t, StatusFailed, summary.Files[0].Status)
	assert.Error(t, summary.Files[0].Err)
	assert.Equal(t, 1, summary.Failed)

	var count int
	require.NoError(t, f.db.Get(&count, "SELECT COUNT(*) FROM performances"))
	assert.Zero(t, count)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.write(t, "sbj_"+itoa(f.amy.ID)+".json", `{"power.max": 200}`)

	summary, err := f.importer(true, time.Now()).Run(context.Background(), f.dir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Inserted)

	var count int
	require.NoError(t, f.db.Get(&count, "SELECT COUNT(*) FROM performances"))
	assert.Zero(t, count)
}

func TestRunMissingDirectory(t *testing.T) {
	f := newFixture(t)
	_, err := f.importer(false, time.Now()).Run(context.Background(), filepath.Join(f.dir, "missing"))
	assert.Error(t, err)
}

type failingRecorder struct{}

func (failingRecorder) CreatePerformance(context.Context, int64, models.PerformanceInput, time.Time) (models.Performance, error) {
	return models.Performance{}, errors.New("database is locked")
}

func TestRunStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.write(t, "sbj_"+itoa(f.amy.ID)+".json", `{"power.max": 200}`)

	im := New(f.users, failingRecorder{}, Options{Logger: zerolog.Nop()})
	summary, err := im.Run(context.Background(), f.dir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Inserted)
}

func TestParseRecords(t *testing.T) {
	testCases := []struct {
		name    string
		data    string
		count   int
		wantErr bool
	}{
		{"SingleObject", `{"power.max": 1}`, 1, false},
		{"Array", `[{"power.max": 1}, {"hr.max": 2}]`, 2, false},
		{"EmptyArray", `[]`, 0, false},
		{"LeadingWhitespace", "\n  [{}]", 1, false},
		{"Truncated", `[{"power.max": 1}`, 0, true},
		{"WrongType", `{"power.max": "fast"}`, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inputs, err := parseRecords([]byte(tc.data))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, inputs, tc.count)
		})
	}
}
