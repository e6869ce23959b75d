package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/athlete-performance-be/internal/apperrors"
	"github.com/isdelr/athlete-performance-be/internal/auth"
	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/isdelr/athlete-performance-be/internal/services"
	"github.com/rs/zerolog/log"
)

// PerformanceHandler serves the caller's own performance records.
// Routes using it must sit behind auth.Middleware.
type PerformanceHandler struct {
	service services.PerformanceServiceProvider
	now     func() time.Time
}

// NewPerformanceHandler creates a new PerformanceHandler.
func NewPerformanceHandler(service services.PerformanceServiceProvider) *PerformanceHandler {
	return &PerformanceHandler{service: service, now: time.Now}
}

func currentUser(r *http.Request) (models.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return models.User{}, apperrors.ErrMissingToken
	}
	return user, nil
}

func (h *PerformanceHandler) Create(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var input models.PerformanceInput
	if err := decode(w, r, &input); err != nil {
		return err
	}

	perf, err := h.service.CreatePerformance(r.Context(), user.ID, input, h.now())
	if err != nil {
		return err
	}

	log.Debug().Int64("user_id", user.ID).Int64("performance_id", perf.ID).Msg("Performance recorded")
	return respond(w, http.StatusCreated, perf)
}

func (h *PerformanceHandler) List(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	perfs, err := h.service.ListPerformances(r.Context(), user.ID)
	if err != nil {
		return err
	}
	return respond(w, http.StatusOK, perfs)
}

func (h *PerformanceHandler) Get(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	id, err := parseID(r, "id")
	if err != nil {
		return err
	}

	perf, err := h.service.GetPerformance(r.Context(), user.ID, id)
	if err != nil {
		return err
	}
	return respond(w, http.StatusOK, perf)
}

func (h *PerformanceHandler) Update(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	id, err := parseID(r, "id")
	if err != nil {
		return err
	}

	var input models.PerformanceInput
	if err := decode(w, r, &input); err != nil {
		return err
	}

	perf, err := h.service.UpdatePerformance(r.Context(), user.ID, id, input)
	if err != nil {
		return err
	}
	return respond(w, http.StatusOK, perf)
}

func (h *PerformanceHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	id, err := parseID(r, "id")
	if err != nil {
		return err
	}

	if err := h.service.DeletePerformance(r.Context(), user.ID, id); err != nil {
		return err
	}
	return respond(w, http.StatusOK, messageResponse{Message: "performance deleted"})
}
