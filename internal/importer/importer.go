// Package importer loads performance records from sbj_<user id>.json files.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/rs/zerolog"
)

const defaultFeeling = 5

var fileNamePattern = regexp.MustCompile(`^sbj_(\d+)\.json$`)

var (
	ErrBadFileName = errors.New("file name does not match sbj_<id>.json")
	ErrUnknownUser = errors.New("user does not exist")
)

// UserChecker reports whether a user id exists.
type UserChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// PerformanceRecorder stores one performance for a user.
type PerformanceRecorder interface {
	CreatePerformance(ctx context.Context, userID int64, input models.PerformanceInput, at time.Time) (models.Performance, error)
}

// Status is the outcome of importing one file.
type Status string

const (
	StatusImported Status = "imported"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// FileResult describes what happened to one directory entry.
type FileResult struct {
	Name     string
	UserID   int64
	Inserted int
	Status   Status
	Err      error
}

// Summary aggregates the results of a run.
type Summary struct {
	Files    []FileResult
	Imported int
	Skipped  int
	Failed   int
	Inserted int
}

func (s *Summary) add(res FileResult) {
	s.Files = append(s.Files, res)
	s.Inserted += res.Inserted
	switch res.Status {
	case StatusImported:
		s.Imported++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}

// Options tune an Importer.
type Options struct {
	// DryRun parses and checks every file without writing anything.
	DryRun bool
	Logger zerolog.Logger
	Now    func() time.Time
}

// Importer walks a directory of exported sessions and records them.
type Importer struct {
	users  UserChecker
	perfs  PerformanceRecorder
	dryRun bool
	log    zerolog.Logger
	now    func() time.Time
}

// New creates an Importer.
func New(users UserChecker, perfs PerformanceRecorder, opts Options) *Importer {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Importer{
		users:  users,
		perfs:  perfs,
		dryRun: opts.DryRun,
		log:    opts.Logger,
		now:    now,
	}
}

// record is one session as exported by the measurement tooling.
type record struct {
	PowerMax   *float64        `json:"power.max"`
	HRMax      *float64        `json:"hr.max"`
	VO2Max     *float64        `json:"vo2.max"`
	RFMax      *float64        `json:"rf.max"`
	CadenceMax *float64        `json:"cadence.max"`
	VO2Class   json.RawMessage `json:"vo2.class"`
	Feeling    *int            `json:"ressenti"`
}

func (r record) input() (models.PerformanceInput, error) {
	class := "[]"
	if len(r.VO2Class) > 0 && !bytes.Equal(r.VO2Class, []byte("null")) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, r.VO2Class); err != nil {
			return models.PerformanceInput{}, err
		}
		class = buf.String()
	}

	feeling := defaultFeeling
	if r.Feeling != nil {
		feeling = *r.Feeling
	}

	return models.PerformanceInput{
		PowerMax:   r.PowerMax,
		HRMax:      r.HRMax,
		VO2Max:     r.VO2Max,
		RFMax:      r.RFMax,
		CadenceMax: r.CadenceMax,
		VO2Class:   &class,
		Feeling:    &feeling,
	}, nil
}

// Run imports every matching file of dir in name order. It fails only when the
// directory cannot be read or ctx is cancelled; per-file problems land in the summary.
func (im *Importer) Run(ctx context.Context, dir string) (*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read import directory: %w", err)
	}

	summary := &Summary{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if entry.IsDir() {
			continue
		}

		res := im.importFile(ctx, filepath.Join(dir, entry.Name()))
		summary.add(res)

		event := im.log.Info()
		switch res.Status {
		case StatusSkipped:
			event = im.log.Warn().Err(res.Err)
		case StatusFailed:
			event = im.log.Error().Err(res.Err)
		}
		event.Str("file", res.Name).Int64("user_id", res.UserID).Int("inserted", res.Inserted).
			Str("status", string(res.Status)).Bool("dry_run", im.dryRun).Msg("Processed import file")
	}
	return summary, nil
}

func (im *Importer) importFile(ctx context.Context, path string) FileResult {
	res := FileResult{Name: filepath.Base(path)}

	match := fileNamePattern.FindStringSubmatch(res.Name)
	if match == nil {
		res.Status, res.Err = StatusSkipped, ErrBadFileName
		return res
	}
	userID, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		res.Status, res.Err = StatusSkipped, ErrBadFileName
		return res
	}
	res.UserID = userID

	data, err := os.ReadFile(path)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	inputs, err := parseRecords(data)
	if err != nil {
		res.Status, res.Err = StatusFailed, fmt.Errorf("invalid JSON: %w", err)
		return res
	}

	exists, err := im.users.Exists(ctx, userID)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	if !exists {
		res.Status, res.Err = StatusSkipped, ErrUnknownUser
		return res
	}

	at := im.now()
	for _, input := range inputs {
		if !im.dryRun {
			if _, err := im.perfs.CreatePerformance(ctx, userID, input, at); err != nil {
				res.Status, res.Err = StatusFailed, err
				return res
			}
		}
		res.Inserted++
	}
	res.Status = StatusImported
	return res
}

// parseRecords accepts either a single object or an array of objects.
func parseRecords(data []byte) ([]models.PerformanceInput, error) {
	data = bytes.TrimSpace(data)

	var records []record
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	} else {
		var single record
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, err
		}
		records = []record{single}
	}

	inputs := make([]models.PerformanceInput, 0, len(records))
	for i, r := range records {
		input, err := r.input()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}
