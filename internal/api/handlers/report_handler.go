package handlers

import (
	"context"
	"net/http"

	"github.com/isdelr/athlete-performance-be/internal/apperrors"
	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/isdelr/athlete-performance-be/internal/services"
	"github.com/rs/zerolog/log"
)

const noDataMessage = "no performance data available"

// ReportHandler serves the aggregate performance reports.
type ReportHandler struct {
	service services.ReportServiceProvider
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(service services.ReportServiceProvider) *ReportHandler {
	return &ReportHandler{service: service}
}

// MaxPower reports the highest power across all users.
func (h *ReportHandler) MaxPower(w http.ResponseWriter, r *http.Request) error {
	report, err := h.service.MaxPower(r.Context())
	return respondReport(w, report, err)
}

// MaxPowerForUser reports a single user's highest power.
func (h *ReportHandler) MaxPowerForUser(w http.ResponseWriter, r *http.Request) error {
	return h.forUser(w, r, h.service.MaxPowerForUser)
}

// MaxVO2 reports the highest VO2 across all users.
func (h *ReportHandler) MaxVO2(w http.ResponseWriter, r *http.Request) error {
	report, err := h.service.MaxVO2(r.Context())
	return respondReport(w, report, err)
}

// MaxVO2ForUser reports a single user's highest VO2.
func (h *ReportHandler) MaxVO2ForUser(w http.ResponseWriter, r *http.Request) error {
	return h.forUser(w, r, h.service.MaxVO2ForUser)
}

// BestPowerToWeight reports the user with the best average power-to-weight ratio.
func (h *ReportHandler) BestPowerToWeight(w http.ResponseWriter, r *http.Request) error {
	report, err := h.service.BestPowerToWeight(r.Context())
	return respondReport(w, report, err)
}

// forUser lets a coach query anyone and an athlete only themselves.
func (h *ReportHandler) forUser(w http.ResponseWriter, r *http.Request, query func(context.Context, int64) (*models.PeakReport, error)) error {
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	userID, err := parseID(r, "user_id")
	if err != nil {
		return err
	}

	if !caller.IsCoach() && caller.ID != userID {
		log.Warn().Int64("user_id", caller.ID).Int64("target_id", userID).Msg("Athlete requested another user's report")
		return apperrors.ErrForbidden
	}
	report, err := query(r.Context(), userID)
	return respondReport(w, report, err)
}

func respondReport[T any](w http.ResponseWriter, report *T, err error) error {
	if err != nil {
		return err
	}
	if report == nil {
		return respond(w, http.StatusOK, messageResponse{Message: noDataMessage})
	}
	return respond(w, http.StatusOK, report)
}
