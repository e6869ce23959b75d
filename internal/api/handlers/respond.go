package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/isdelr/athlete-performance-be/internal/apperrors"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// HandlerFunc is an http.HandlerFunc that reports failures by returning them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrap adapts h to http.HandlerFunc, writing any returned error with WriteError.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			WriteError(w, err)
		}
	}
}

// WriteError writes err as a {"code","message"} JSON body with its mapped status.
func WriteError(w http.ResponseWriter, err error) {
	status := apperrors.Status(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apperrors.New(status, apperrors.Message(err)))
}

type messageResponse struct {
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.ErrBadRequest
	}

	if err := validate.Struct(dst); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			return apperrors.Validation(invalid)
		}
		return err
	}
	return nil
}

func parseID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ErrInvalidID
	}
	return id, nil
}
