package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quizdeck/internal/app/apiresp"
	"quizdeck/internal/store"
)

type Handler struct {
	svc contentService
}

type contentService interface {
	CreateModule(ctx context.Context, in CreateModuleInput) (*store.ModuleRow, error)
	ListModules(ctx context.Context, companyID int64) []store.ModuleRow
	UpdateModule(ctx context.Context, in UpdateModuleInput) (*store.ModuleRow, error)
	ReorderModule(ctx context.Context, companyID, moduleID int64, newIndex int) error
	DeleteModule(ctx context.Context, companyID, moduleID int64) error

	CreateExercise(ctx context.Context, in CreateExerciseInput) (*store.ExerciseRow, error)
	ListExercises(ctx context.Context, moduleID int64) []store.ExerciseRow
	UpdateExercise(ctx context.Context, in UpdateExerciseInput) (*store.ExerciseRow, error)
	ReorderExercise(ctx context.Context, moduleID, exerciseID int64, newIndex int) error
	DeleteExercise(ctx context.Context, moduleID, exerciseID int64) error

	CreateAlternative(ctx context.Context, in CreateAlternativeInput) (*store.AlternativeRow, error)
	ListAlternatives(ctx context.Context, exerciseID int64) []store.AlternativeRow
	UpdateAlternative(ctx context.Context, in UpdateAlternativeInput) (*store.AlternativeRow, error)
	ReorderAlternative(ctx context.Context, exerciseID, alternativeID int64, newIndex int) error
	DeleteAlternative(ctx context.Context, exerciseID, alternativeID int64) error
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createModuleRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ModuleType  string `json:"module_type"`
	Unlocked    bool   `json:"unlocked"`
}

type updateModuleRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ModuleType  *string `json:"module_type"`
	Unlocked    *bool   `json:"unlocked"`
}

type createExerciseRequest struct {
	Question    string   `json:"question"`
	ImageURLs   []string `json:"image_urls"`
	VideoURL    *string  `json:"video_url"`
	MediaLayout *string  `json:"media_layout"`
	Weight      float64  `json:"weight"`
}

type updateExerciseRequest struct {
	Question    *string   `json:"question"`
	ImageURLs   *[]string `json:"image_urls"`
	VideoURL    *string   `json:"video_url"`
	MediaLayout *string   `json:"media_layout"`
	Weight      *float64  `json:"weight"`
}

type createAlternativeRequest struct {
	Content     string   `json:"content"`
	IsCorrect   bool     `json:"is_correct"`
	Explanation *string  `json:"explanation"`
	ImageURLs   []string `json:"image_urls"`
}

type updateAlternativeRequest struct {
	Content     *string   `json:"content"`
	IsCorrect   *bool     `json:"is_correct"`
	Explanation *string   `json:"explanation"`
	ImageURLs   *[]string `json:"image_urls"`
}

type reorderRequest struct {
	NewIndex int `json:"new_index"`
}

func (h *Handler) CreateModule(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathID(w, r, "companyID")
	if !ok {
		return
	}
	var req createModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.svc.CreateModule(r.Context(), CreateModuleInput{
		CompanyID:   companyID,
		Title:       req.Title,
		Description: req.Description,
		ModuleType:  req.ModuleType,
		Unlocked:    req.Unlocked,
	})
	if err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathID(w, r, "companyID")
	if !ok {
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.ListModules(r.Context(), companyID))
}

func (h *Handler) UpdateModule(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathID(w, r, "companyID")
	if !ok {
		return
	}
	moduleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.svc.UpdateModule(r.Context(), UpdateModuleInput{
		CompanyID:   companyID,
		ModuleID:    moduleID,
		Title:       req.Title,
		Description: req.Description,
		ModuleType:  req.ModuleType,
		Unlocked:    req.Unlocked,
	})
	if err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) ReorderModule(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathID(w, r, "companyID")
	if !ok {
		return
	}
	moduleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.ReorderModule(r.Context(), companyID, moduleID, req.NewIndex); err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.ListModules(r.Context(), companyID))
}

func (h *Handler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathID(w, r, "companyID")
	if !ok {
		return
	}
	moduleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteModule(r.Context(), companyID, moduleID); err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

func (h *Handler) CreateExercise(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := pathID(w, r, "moduleID")
	if !ok {
		return
	}
	var req createExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.svc.CreateExercise(r.Context(), CreateExerciseInput{
		ModuleID:    moduleID,
		Question:    req.Question,
		ImageURLs:   req.ImageURLs,
		VideoURL:    req.VideoURL,
		MediaLayout: req.MediaLayout,
		Weight:      req.Weight,
	})
	if err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) ListExercises(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := pathID(w, r, "moduleID")
	if !ok {
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.ListExercises(r.Context(), moduleID))
}

func (h *Handler) UpdateExercise(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := pathID(w, r, "moduleID")
	if !ok {
		return
	}
	exerciseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.svc.UpdateExercise(r.Context(), UpdateExerciseInput{
		ModuleID:    moduleID,
		ExerciseID:  exerciseID,
		Question:    req.Question,
		ImageURLs:   req.ImageURLs,
		VideoURL:    req.VideoURL,
		MediaLayout: req.MediaLayout,
		Weight:      req.Weight,
	})
	if err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) ReorderExercise(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := pathID(w, r, "moduleID")
	if !ok {
		return
	}
	exerciseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.ReorderExercise(r.Context(), moduleID, exerciseID, req.NewIndex); err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.ListExercises(r.Context(), moduleID))
}

func (h *Handler) DeleteExercise(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := pathID(w, r, "moduleID")
	if !ok {
		return
	}
	exerciseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteExercise(r.Context(), moduleID, exerciseID); err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

func (h *Handler) CreateAlternative(w http.ResponseWriter, r *http.Request) {
	exerciseID, ok := pathID(w, r, "exerciseID")
	if !ok {
		return
	}
	var req createAlternativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.svc.CreateAlternative(r.Context(), CreateAlternativeInput{
		ExerciseID:  exerciseID,
		Content:     req.Content,
		IsCorrect:   req.IsCorrect,
		Explanation: req.Explanation,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) ListAlternatives(w http.ResponseWriter, r *http.Request) {
	exerciseID, ok := pathID(w, r, "exerciseID")
	if !ok {
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.ListAlternatives(r.Context(), exerciseID))
}

func (h *Handler) UpdateAlternative(w http.ResponseWriter, r *http.Request) {
	exerciseID, ok := pathID(w, r, "exerciseID")
	if !ok {
		return
	}
	alternativeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateAlternativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.svc.UpdateAlternative(r.Context(), UpdateAlternativeInput{
		ExerciseID:    exerciseID,
		AlternativeID: alternativeID,
		Content:       req.Content,
		IsCorrect:     req.IsCorrect,
		Explanation:   req.Explanation,
		ImageURLs:     req.ImageURLs,
	})
	if err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) ReorderAlternative(w http.ResponseWriter, r *http.Request) {
	exerciseID, ok := pathID(w, r, "exerciseID")
	if !ok {
		return
	}
	alternativeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.ReorderAlternative(r.Context(), exerciseID, alternativeID, req.NewIndex); err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, h.svc.ListAlternatives(r.Context(), exerciseID))
}

func (h *Handler) DeleteAlternative(w http.ResponseWriter, r *http.Request) {
	exerciseID, ok := pathID(w, r, "exerciseID")
	if !ok {
		return
	}
	alternativeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteAlternative(r.Context(), exerciseID, alternativeID); err != nil {
		writeContentError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, nil)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeContentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, ErrLastAlternative), errors.Is(err, ErrSoleCorrect):
		apiresp.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrConstraintViolation):
		apiresp.WriteError(w, r, http.StatusConflict, "conflicting concurrent edit, please retry")
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, err.Error())
	}
}
