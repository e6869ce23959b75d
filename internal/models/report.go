package models

// Report metric names.
const (
	MetricPower = "power_max"
	MetricVO2   = "vo2_max"
)

// PeakReport is the performance holding the highest value of one metric.
type PeakReport struct {
	UserID          int64     `json:"id_user" db:"id_user"`
	Username        string    `json:"username" db:"username"`
	PerformanceID   int64     `json:"id_performance" db:"id_performance"`
	Metric          string    `json:"metric" db:"-"`
	Value           float64   `json:"value" db:"value"`
	DatePerformance Timestamp `json:"date_performance" db:"date_performance"`
}

// RatioReport is a user's average power-to-weight ratio.
type RatioReport struct {
	UserID   int64   `json:"id_user" db:"id_user"`
	Username string  `json:"username" db:"username"`
	Weight   float64 `json:"weight" db:"weight"`
	Ratio    float64 `json:"ratio" db:"ratio"`
}
