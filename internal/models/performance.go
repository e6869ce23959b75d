package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// TimeLayout is the textual timestamp format stored in the database.
// It matches SQLite's CURRENT_TIMESTAMP, so stored values sort lexically.
const TimeLayout = "2006-01-02 15:04:05"

// Performance is one recorded session. Every metric is optional.
type Performance struct {
	ID              int64     `json:"id_performance" db:"id_performance"`
	UserID          int64     `json:"id_user" db:"id_user"`
	PowerMax        *float64  `json:"power_max" db:"power_max"`
	HRMax           *float64  `json:"hr_max" db:"hr_max"`
	VO2Max          *float64  `json:"vo2_max" db:"vo2_max"`
	RFMax           *float64  `json:"rf_max" db:"rf_max"`
	CadenceMax      *float64  `json:"cadence_max" db:"cadence_max"`
	VO2Class        *string   `json:"vo2_class" db:"vo2_class"`
	Feeling         *int      `json:"ressenti" db:"ressenti"` // subjective effort rating
	DatePerformance Timestamp `json:"date_performance" db:"date_performance"`
}

// PerformanceInput carries the client-writable performance fields.
type PerformanceInput struct {
	PowerMax   *float64 `json:"power_max" validate:"omitempty,gte=0"`
	HRMax      *float64 `json:"hr_max" validate:"omitempty,gte=0"`
	VO2Max     *float64 `json:"vo2_max" validate:"omitempty,gte=0"`
	RFMax      *float64 `json:"rf_max" validate:"omitempty,gte=0"`
	CadenceMax *float64 `json:"cadence_max" validate:"omitempty,gte=0"`
	VO2Class   *string  `json:"vo2_class"`
	Feeling    *int     `json:"ressenti" validate:"omitempty,gte=0,lte=10"`
}

// Timestamp is a UTC time stored as TimeLayout text.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to whole seconds in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

// Scan implements sql.Scanner.
func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.Time = time.Time{}
		return nil
	case time.Time:
		ts.Time = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", src)
	}
}

func (ts *Timestamp) parse(s string) error {
	for _, layout := range []string{TimeLayout, time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			ts.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// Value implements driver.Valuer.
func (ts Timestamp) Value() (driver.Value, error) {
	return ts.UTC().Format(TimeLayout), nil
}
