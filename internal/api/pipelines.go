package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/engine"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
)

// defaultActor names mutations arriving without an explicit actor.
const defaultActor = "api"

type pipelineResponse struct {
	Pipeline  *model.Pipeline         `json:"pipeline"`
	Forecasts []model.MonthlyForecast `json:"forecasts,omitempty"`
}

func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	filter := service.PipelineFilter{}

	query := r.URL.Query()
	if raw := query.Get("sheet_id"); raw != "" {
		sheetID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, common.NewValidationError("sheet_id", "must be an integer"))
			return
		}
		filter.SheetID = &sheetID
	}
	if raw := query.Get("ids"); raw != "" {
		filter.IDs = strings.Split(raw, ",")
	}
	filter.Limit = queryInt(query.Get("limit"), 100)
	filter.Offset = queryInt(query.Get("offset"), 0)

	pipelines, err := s.engine.ListPipelines(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pipelines": pipelines})
}

func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, forecasts, err := s.engine.GetPipeline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pipelineResponse{Pipeline: p, Forecasts: forecasts})
}

type patchPipelineRequest struct {
	Assignee  *string `json:"assignee,omitempty"`
	Publisher *string `json:"publisher,omitempty"`
	Zone      *string `json:"zone,omitempty"`

	Status *string `json:"status,omitempty"`

	StartingDate            *string `json:"starting_date,omitempty"`
	ClearStartingDate       bool    `json:"clear_starting_date,omitempty"`
	ActualStartingDate      *string `json:"actual_starting_date,omitempty"`
	ClearActualStartingDate bool    `json:"clear_actual_starting_date,omitempty"`

	MaxGross        *decimal.Decimal `json:"max_gross,omitempty"`
	RevenueShare    *decimal.Decimal `json:"revenue_share,omitempty"`
	ProgressPercent *decimal.Decimal `json:"progress_percent,omitempty"`

	NextAction  *string `json:"next_action,omitempty"`
	ActionNotes *string `json:"action_notes,omitempty"`

	Actor string `json:"actor,omitempty"`
}

func (r patchPipelineRequest) toPatch() (engine.FieldPatch, error) {
	patch := engine.FieldPatch{
		Assignee:                r.Assignee,
		Publisher:               r.Publisher,
		Zone:                    r.Zone,
		ClearStartingDate:       r.ClearStartingDate,
		ClearActualStartingDate: r.ClearActualStartingDate,
		NextAction:              r.NextAction,
		ActionNotes:             r.ActionNotes,
	}

	if r.Status != nil {
		status, ok := model.ParseStage(*r.Status)
		if !ok {
			return patch, common.NewValidationError("status", "unrecognized stage")
		}
		patch.Status = &status
	}

	parseDate := func(field string, raw *string) (*time.Time, error) {
		if raw == nil {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", *raw)
		if err != nil {
			return nil, common.NewValidationError(field, "expected YYYY-MM-DD")
		}
		return &t, nil
	}
	var err error
	if patch.StartingDate, err = parseDate("starting_date", r.StartingDate); err != nil {
		return patch, err
	}
	if patch.ActualStartingDate, err = parseDate("actual_starting_date", r.ActualStartingDate); err != nil {
		return patch, err
	}

	toNull := func(d *decimal.Decimal) *decimal.NullDecimal {
		if d == nil {
			return nil
		}
		nd := decimal.NewNullDecimal(*d)
		return &nd
	}
	patch.MaxGross = toNull(r.MaxGross)
	patch.RevenueShare = toNull(r.RevenueShare)
	patch.ProgressPercent = toNull(r.ProgressPercent)

	return patch, nil
}

func (s *Server) handlePatchPipeline(w http.ResponseWriter, r *http.Request) {
	var req patchPipelineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := s.engine.UpdateFields(r.Context(), chi.URLParam(r, "id"), patch, actorOr(req.Actor))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pipelineResponse{Pipeline: p})
}

func (s *Server) handleDeletePipeline(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

func (s *Server) handleConfirmTransition(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Action != "confirm" && req.Action != "decline" {
		writeError(w, common.NewValidationError("action", `must be "confirm" or "decline"`))
		return
	}

	p, err := s.engine.ConfirmTransition(r.Context(), chi.URLParam(r, "id"),
		req.Action == "confirm", req.Notes, actorOr(req.Actor))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pipelineResponse{Pipeline: p})
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	filter := service.ActivityFilter{
		Limit:  queryInt(r.URL.Query().Get("limit"), 50),
		Offset: queryInt(r.URL.Query().Get("offset"), 0),
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		activityType := model.ActivityType(raw)
		if !activityType.IsValid() {
			writeError(w, common.NewValidationError("type", "unknown activity type"))
			return
		}
		filter.Type = &activityType
	}

	entries, total, err := s.engine.GetActivity(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":     entries,
		"total":    total,
		"has_more": filter.Offset+len(entries) < total,
	})
}

type noteRequest struct {
	Notes string `json:"notes"`
	Actor string `json:"actor,omitempty"`
}

func (s *Server) handlePostActivity(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	entry, err := s.engine.AppendNote(r.Context(), chi.URLParam(r, "id"), req.Notes, actorOr(req.Actor))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func actorOr(actor string) string {
	if actor == "" {
		return defaultActor
	}
	return actor
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return n
	}
	return fallback
}
