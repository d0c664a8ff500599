package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
)

type errorResponse struct {
	Error         string `json:"error"`
	Field         string `json:"field,omitempty"`
	DaysRemaining int    `json:"days_remaining,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses: validation 400,
// unmet gates 422, missing records 404, registry conflicts 409, upstream
// sheet failures 502.
func writeError(w http.ResponseWriter, err error) {
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Reason, Field: verr.Field})
		return
	}

	var gerr *common.GateError
	if errors.As(err, &gerr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:         gerr.Reason,
			DaysRemaining: gerr.DaysRemaining,
		})
		return
	}

	switch {
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, common.ErrDuplicateEntry):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "duplicate entry"})
	default:
		var serr *common.ExternalServiceError
		if errors.As(err, &serr) {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: serr.Error()})
			return
		}
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return common.NewValidationError("body", err.Error())
	}
	return nil
}
