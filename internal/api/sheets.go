package api

import (
	"errors"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
)

func (s *Server) handleListSheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := s.engine.ListSheets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sheets": sheets})
}

type createSheetRequest struct {
	Year       int    `json:"year"`
	Quarter    int    `json:"quarter"`
	Group      string `json:"group"`
	DocumentID string `json:"document_id"`
	TabName    string `json:"tab_name"`
}

// createSheetResponse is the only place the webhook token ever leaves the
// system; the model hides it from every other serialization.
type createSheetResponse struct {
	Sheet        *model.QuarterlySheet `json:"sheet"`
	WebhookToken string                `json:"webhook_token"`
}

func (s *Server) handleCreateSheet(w http.ResponseWriter, r *http.Request) {
	var req createSheetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sheet := &model.QuarterlySheet{
		Year:       req.Year,
		Quarter:    req.Quarter,
		Group:      model.Group(req.Group),
		DocumentID: req.DocumentID,
		TabName:    req.TabName,
	}
	if err := s.engine.RegisterSheet(r.Context(), sheet); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSheetResponse{
		Sheet:        sheet,
		WebhookToken: sheet.WebhookToken,
	})
}

type patchSheetRequest struct {
	SyncStatus string `json:"sync_status"`
}

func (s *Server) handlePatchSheet(w http.ResponseWriter, r *http.Request) {
	sheetID, err := sheetIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req patchSheetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.SetSheetStatus(r.Context(), sheetID, model.SyncStatus(req.SyncStatus)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSheet(w http.ResponseWriter, r *http.Request) {
	sheetID, err := sheetIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.DeleteSheet(r.Context(), sheetID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSheetSync is the edit-webhook target: the sheet's script posts here
// after a human edit, and the engine pulls the rows back in.
func (s *Server) handleSheetSync(w http.ResponseWriter, r *http.Request) {
	sheetID, err := sheetIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	token := r.Header.Get("X-Webhook-Token")
	if err := s.engine.VerifyWebhookToken(r.Context(), sheetID, token); err != nil {
		var verr *common.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid webhook token"})
			return
		}
		writeError(w, err)
		return
	}

	summary, err := s.engine.Ingest(r.Context(), sheetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func sheetIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	sheetID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, common.NewValidationError("id", "must be an integer")
	}
	return sheetID, nil
}
