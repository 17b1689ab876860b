package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/govcontools/ratedesk/internal/rates"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, map[string]string{"error": message})
}

func writeValidationErrors(w http.ResponseWriter, r *http.Request, errs []string) {
	writeJSON(w, r, http.StatusBadRequest, map[string][]string{"errors": errs})
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeCalculationError maps engine and store errors to HTTP statuses.
func writeCalculationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rates.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, errNoActiveRates):
		writeError(w, r, http.StatusNotFound, "Company rates not configured")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("calculation failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
