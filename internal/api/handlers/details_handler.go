package handlers

import (
	"net/http"

	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/isdelr/athlete-performance-be/internal/services"
)

// DetailsHandler handles HTTP requests for a user's physiological details.
type DetailsHandler struct {
	service services.DetailsServiceProvider
}

// NewDetailsHandler creates a new DetailsHandler.
func NewDetailsHandler(service services.DetailsServiceProvider) *DetailsHandler {
	return &DetailsHandler{service: service}
}

func (h *DetailsHandler) Create(w http.ResponseWriter, r *http.Request) error {
	userID, err := parseID(r, "user_id")
	if err != nil {
		return err
	}

	var input models.DetailsInput
	if err := decode(w, r, &input); err != nil {
		return err
	}

	details, err := h.service.CreateDetails(r.Context(), userID, input)
	if err != nil {
		return err
	}
	return respond(w, http.StatusCreated, details)
}

func (h *DetailsHandler) Get(w http.ResponseWriter, r *http.Request) error {
	userID, err := parseID(r, "user_id")
	if err != nil {
		return err
	}

	details, err := h.service.GetDetails(r.Context(), userID)
	if err != nil {
		return err
	}
	return respond(w, http.StatusOK, details)
}

func (h *DetailsHandler) Update(w http.ResponseWriter, r *http.Request) error {
	userID, err := parseID(r, "user_id")
	if err != nil {
		return err
	}

	var input models.DetailsInput
	if err := decode(w, r, &input); err != nil {
		return err
	}

	details, err := h.service.UpdateDetails(r.Context(), userID, input)
	if err != nil {
		return err
	}
	return respond(w, http.StatusOK, details)
}

func (h *DetailsHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	userID, err := parseID(r, "user_id")
	if err != nil {
		return err
	}

	if err := h.service.DeleteDetails(r.Context(), userID); err != nil {
		return err
	}
	return respond(w, http.StatusOK, messageResponse{Message: "details deleted"})
}
