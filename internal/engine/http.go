package engine

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/slidequiz/engine/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for quiz session operations.
type HTTPHandlers struct {
	manager *Manager
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers over the session manager.
func NewHTTPHandlers(manager *Manager, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		manager: manager,
		logger:  logger.With().Str("component", "engine_http").Logger(),
	}
}

// CreateSession handles POST /v1/sessions
func (h *HTTPHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	eng := h.manager.Create(r.Context())
	h.respondJSON(w, http.StatusCreated, map[string]any{
		"sessionId":     eng.Session().ID(),
		"deckTitle":     eng.Deck().Title,
		"quizSlides":    len(eng.Deck().QuizSlides()),
		"deckPossible":  eng.Deck().TotalPossible(),
		"score":         eng.Session().Score(),
		"totalPossible": eng.Session().TotalPossible(),
	})
}

// GetScore handles GET /v1/sessions/{id}/score
func (h *HTTPHandlers) GetScore(w http.ResponseWriter, r *http.Request) {
	// Attaching instead of looking up means a reloaded presentation gets its
	// persisted totals back without an extra create round-trip.
	eng := h.manager.GetOrCreate(r.Context(), r.PathValue("id"))
	h.respondJSON(w, http.StatusOK, map[string]int{
		"score":         eng.Session().Score(),
		"totalPossible": eng.Session().TotalPossible(),
	})
}

// EnterQuestion handles POST /v1/sessions/{id}/questions/{qid}/enter
func (h *HTTPHandlers) EnterQuestion(w http.ResponseWriter, r *http.Request) {
	eng := h.manager.GetOrCreate(r.Context(), r.PathValue("id"))
	res, err := eng.EnterQuestion(r.Context(), r.PathValue("qid"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// SubmitAnswer handles POST /v1/sessions/{id}/questions/{qid}/answer
func (h *HTTPHandlers) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayIndex *int `json:"displayIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DisplayIndex == nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "displayIndex is required")
		return
	}

	eng := h.manager.GetOrCreate(r.Context(), r.PathValue("id"))
	res, err := eng.SubmitAnswer(r.Context(), r.PathValue("qid"), *req.DisplayIndex)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// SkipQuestion handles POST /v1/sessions/{id}/questions/{qid}/skip
func (h *HTTPHandlers) SkipQuestion(w http.ResponseWriter, r *http.Request) {
	eng := h.manager.GetOrCreate(r.Context(), r.PathValue("id"))
	if err := eng.Skip(r.Context(), r.PathValue("qid")); err != nil {
		h.respondEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LeaveQuestion handles POST /v1/sessions/{id}/questions/{qid}/leave
func (h *HTTPHandlers) LeaveQuestion(w http.ResponseWriter, r *http.Request) {
	eng := h.manager.GetOrCreate(r.Context(), r.PathValue("id"))
	eng.LeaveQuestion(r.PathValue("qid"))
	w.WriteHeader(http.StatusNoContent)
}

// RestartQuiz handles POST /v1/sessions/{id}/restart
func (h *HTTPHandlers) RestartQuiz(w http.ResponseWriter, r *http.Request) {
	eng := h.manager.GetOrCreate(r.Context(), r.PathValue("id"))
	if err := eng.Restart(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("restart failed")
		httperrors.RespondInternalError(w, "failed to restart quiz")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSlideNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSlideNotFound, err.Error())
	case errors.Is(err, ErrNotQuizSlide):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeNotQuizSlide, err.Error())
	case errors.Is(err, ErrAlreadyAnswered):
		httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyAnswered, err.Error())
	case errors.Is(err, ErrQuestionNotActive):
		httperrors.RespondConflict(w, httperrors.ErrCodeQuestionNotActive, err.Error())
	case errors.Is(err, ErrNoShuffleOrder):
		httperrors.RespondConflict(w, httperrors.ErrCodeSubmitFailed, err.Error())
	default:
		h.logger.Error().Err(err).Msg("engine operation failed")
		httperrors.RespondInternalError(w, "quiz operation failed")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("encode response failed")
	}
}
