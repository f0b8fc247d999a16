package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/csereviewer/exam-engine/internal/config"
	"github.com/csereviewer/exam-engine/internal/exam"
)

// Handlers bundles the exam engine endpoints.
type Handlers struct {
	svc      *exam.Service
	sessions *exam.Manager
	logger   zerolog.Logger
}

func NewHandlers(svc *exam.Service, sessions *exam.Manager, logger zerolog.Logger) *Handlers {
	return &Handlers{
		svc:      svc,
		sessions: sessions,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// NewHTTPServer wires all routes (health, metrics, exam API, timer feed).
func NewHTTPServer(cfg *config.App, h *Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/exams/{type}", h.StartExam)
	mux.HandleFunc("GET /v1/exams/{type}", h.GetSession)
	mux.HandleFunc("GET /v1/exams/{type}/categories", h.GetCategories)
	mux.HandleFunc("GET /v1/exams/{type}/time-limit", h.GetTimeLimit)
	mux.HandleFunc("GET /v1/exams/{type}/progress", h.GetSessionProgress)
	mux.HandleFunc("POST /v1/exams/{type}/answers", h.PostAnswer)
	mux.HandleFunc("POST /v1/exams/{type}/position", h.PostPosition)
	mux.HandleFunc("POST /v1/exams/{type}/pause", h.PauseExam)
	mux.HandleFunc("POST /v1/exams/{type}/resume", h.ResumeExam)
	mux.HandleFunc("POST /v1/exams/{type}/submit", h.SubmitExam)

	mux.HandleFunc("GET /v1/progress/{type}", h.GetSavedProgress)
	mux.HandleFunc("DELETE /v1/progress/{type}", h.ClearSavedProgress)

	mux.HandleFunc("GET /v1/results/latest", h.GetLatestResult)
	mux.HandleFunc("GET /v1/banks/{track}/counts", h.GetBankCounts)

	mux.HandleFunc("GET /ws/exams/{type}/timer", h.WatchTimer)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

// StartExam generates a fresh session, or restores the saved one when the
// resume query flag is set and a snapshot exists.
func (h *Handlers) StartExam(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	resume := r.URL.Query().Get("resume") == "true"

	session, resumed, err := h.sessions.Start(r.Context(), t, resume)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"session": session,
		"resumed": resumed,
	})
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	session, err := h.sessions.Session(t)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	categories, err := h.svc.Categories(t)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handlers) GetTimeLimit(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count < 0 {
		h.writeJSON(w, http.StatusBadRequest, errorBody("invalid count"))
		return
	}
	seconds, err := h.svc.AdaptedTimeLimit(t, count)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"seconds": seconds})
}

func (h *Handlers) GetSessionProgress(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	progress, answered, err := h.sessions.Progress(t)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"categories":    progress,
		"answeredCount": answered,
	})
}

func (h *Handlers) PostAnswer(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	var body struct {
		QuestionID string `json:"questionId"`
		OptionID   string `json:"optionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.QuestionID == "" {
		h.writeJSON(w, http.StatusBadRequest, errorBody("invalid answer payload"))
		return
	}
	if err := h.sessions.Answer(r.Context(), t, body.QuestionID, body.OptionID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) PostPosition(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	var body struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody("invalid position payload"))
		return
	}
	if err := h.sessions.Navigate(r.Context(), t, body.Index); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) PauseExam(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Pause(t); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ResumeExam(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Resume(t); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SubmitExam(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	result, err := h.sessions.Submit(r.Context(), t)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetSavedProgress(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.LoadProgress(r.Context(), t)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if snap == nil {
		h.writeJSON(w, http.StatusNotFound, errorBody("no saved progress"))
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) ClearSavedProgress(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}
	if err := h.svc.ClearProgress(r.Context(), t); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetLatestResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.LatestResult(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if result == nil {
		h.writeJSON(w, http.StatusNotFound, errorBody("no result yet"))
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetBankCounts(w http.ResponseWriter, r *http.Request) {
	track, err := exam.ParseType(r.PathValue("track"))
	if err != nil || track == exam.TypePractice {
		h.writeJSON(w, http.StatusBadRequest, errorBody("unknown track"))
		return
	}
	h.writeJSON(w, http.StatusOK, h.svc.AvailableCounts(track))
}

func (h *Handlers) examType(w http.ResponseWriter, r *http.Request) (exam.Type, bool) {
	t, err := exam.ParseType(r.PathValue("type"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody("unknown exam type"))
		return "", false
	}
	return t, true
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrNoQuestionsAvailable):
		h.writeJSON(w, http.StatusServiceUnavailable, errorBody("no questions available"))
	case errors.Is(err, exam.ErrNoActiveSession):
		h.writeJSON(w, http.StatusNotFound, errorBody("no active session"))
	case errors.Is(err, exam.ErrUnknownQuestion):
		h.writeJSON(w, http.StatusBadRequest, errorBody("question not in session"))
	case errors.Is(err, exam.ErrIndexOutOfRange):
		h.writeJSON(w, http.StatusBadRequest, errorBody("index out of range"))
	case errors.Is(err, exam.ErrUnknownExamType):
		h.writeJSON(w, http.StatusBadRequest, errorBody("unknown exam type"))
	default:
		h.logger.Error().Err(err).Msg("request failed")
		h.writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn().Err(err).Msg("response encode failed")
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
