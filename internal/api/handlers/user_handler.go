package handlers

import (
	"net/http"

	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/isdelr/athlete-performance-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// Create registers a user and returns it with its first token.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) error {
	var input models.UserInput
	if err := decode(w, r, &input); err != nil {
		return err
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		log.Warn().Err(err).Str("username", input.Username).Msg("Failed to register user")
		return err
	}

	log.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("User registered")
	return respond(w, http.StatusCreated, user)
}

// Login verifies credentials and returns the user with a fresh token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) error {
	var creds models.Credentials
	if err := decode(w, r, &creds); err != nil {
		return err
	}

	user, err := h.service.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		log.Warn().Err(err).Str("username", creds.Username).Msg("Failed authentication attempt")
		return err
	}
	return respond(w, http.StatusOK, user)
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(r, "id")
	if err != nil {
		return err
	}

	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		return err
	}
	return respond(w, http.StatusOK, user)
}

// Update replaces every writable field of a user.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(r, "id")
	if err != nil {
		return err
	}

	var input models.UserInput
	if err := decode(w, r, &input); err != nil {
		return err
	}

	user, err := h.service.UpdateUser(r.Context(), id, input)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", id).Msg("Failed to update user")
		return err
	}
	return respond(w, http.StatusOK, user)
}

// Delete removes a user together with its details and performances.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(r, "id")
	if err != nil {
		return err
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		return err
	}

	log.Info().Int64("user_id", id).Msg("User deleted")
	return respond(w, http.StatusOK, messageResponse{Message: "user deleted"})
}
