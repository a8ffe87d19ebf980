// Package handler exposes the interview simulator as a JSON HTTP API.
package handler

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/vinsol/interviewsim/internal/adaptive"
	appI18n "github.com/vinsol/interviewsim/internal/i18n"
	"github.com/vinsol/interviewsim/internal/model"
	"github.com/vinsol/interviewsim/internal/scoring"
	"github.com/vinsol/interviewsim/internal/speech"
	"github.com/vinsol/interviewsim/internal/store"
)

// maxAudioBytes bounds an uploaded answer recording.
const maxAudioBytes = 32 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store       *store.Store
	engine      *scoring.Engine
	transcriber speech.Transcriber
	tts         speech.Synthesizer

	locks sessionLocks
}

// New creates a Handler. transcriber and tts may be nil, which disables
// the audio endpoints and spoken questions respectively.
func New(s *store.Store, engine *scoring.Engine, transcriber speech.Transcriber, tts speech.Synthesizer) *Handler {
	return &Handler{store: s, engine: engine, transcriber: transcriber, tts: tts}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Post("/api/sessions", h.handleCreateSession)
	r.Get("/api/sessions/{sessionID}", h.handleGetSession)
	r.Get("/api/sessions/{sessionID}/question", h.handleNextQuestion)
	r.Post("/api/sessions/{sessionID}/answers", h.handleSubmitTranscript)
	r.Post("/api/sessions/{sessionID}/answers/audio", h.handleSubmitAudio)
	r.Post("/api/sessions/{sessionID}/pause", h.handleSetStatus(model.StatusPaused))
	r.Post("/api/sessions/{sessionID}/resume", h.handleSetStatus(model.StatusActive))
	r.Post("/api/sessions/{sessionID}/complete", h.handleSetStatus(model.StatusCompleted))

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleReviewer, model.UserRoleAdmin))
		r.Get("/api/sessions", h.handleListSessions)
		r.Post("/api/answers/{answerID}/override", h.handleOverrideScore)
		r.Get("/api/export", h.handleExport)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleAdmin))
		r.Post("/api/users", h.handleCreateUser)
	})
}

// sessionLocks serializes answer scoring within a session while keeping
// sessions independent of each other.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (l *sessionLocks) forSession(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrTranscriptionFailed):
		status = http.StatusBadGateway
	case errors.Is(err, model.ErrExternalTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, model.ErrExternalService):
		status = http.StatusBadGateway
	case errors.Is(err, sql.ErrNoRows):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func urlID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", model.ErrInvalidInput, name)
	}
	return id, nil
}

type createSessionRequest struct {
	Candidate  string           `json:"candidate"`
	Role       string           `json:"role"`
	Difficulty model.Difficulty `json:"difficulty,omitempty"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	if req.Candidate == "" || req.Role == "" {
		respondError(w, fmt.Errorf("%w: candidate and role are required", model.ErrInvalidInput))
		return
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = h.engine.Config().Adaptive.InitialDifficulty
	}
	if !difficulty.Valid() {
		respondError(w, fmt.Errorf("%w: unknown difficulty %q", model.ErrInvalidInput, req.Difficulty))
		return
	}

	available, err := h.store.ListQuestions(req.Role, "")
	if err != nil {
		respondError(w, err)
		return
	}
	if len(available) == 0 {
		respondError(w, fmt.Errorf("%w: no questions for role %q", model.ErrInvalidInput, req.Role))
		return
	}

	id, err := h.store.CreateSession(req.Candidate, req.Role, difficulty)
	if err != nil {
		respondError(w, err)
		return
	}
	sess, err := h.store.GetSession(id)
	if err != nil {
		respondError(w, err)
		return
	}
	slog.Info("session started", "session", id, "candidate", req.Candidate, "role", req.Role, "difficulty", difficulty)
	respondJSON(w, http.StatusCreated, sess)
}

type sessionViewResponse struct {
	*model.SessionView
	Summary string `json:"summary,omitempty"`
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := urlID(r, "sessionID")
	if err != nil {
		respondError(w, err)
		return
	}
	view, err := h.store.GetSessionView(sessionID)
	if err != nil {
		respondError(w, err)
		return
	}
	resp := sessionViewResponse{SessionView: view}
	if view.Stats != nil {
		resp.Summary = appI18n.Td(r.Context(), "summary.overall", map[string]any{
			"Score":     fmt.Sprintf("%.2f", view.Stats.AvgCombined),
			"Strongest": view.Stats.Strongest,
			"Weakest":   view.Stats.Weakest,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSetStatus(target model.SessionStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := urlID(r, "sessionID")
		if err != nil {
			respondError(w, err)
			return
		}
		sess, err := h.store.GetSession(sessionID)
		if err != nil {
			respondError(w, err)
			return
		}
		if !statusTransitionAllowed(sess.Status, target) {
			respondJSON(w, http.StatusConflict, map[string]string{
				"error": fmt.Sprintf("cannot move session from %s to %s", sess.Status, target),
			})
			return
		}
		if err := h.store.UpdateSessionStatus(sessionID, target); err != nil {
			respondError(w, err)
			return
		}
		sess, err = h.store.GetSession(sessionID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, sess)
	}
}

// statusTransitionAllowed encodes the session lifecycle: active
// sessions pause or complete, paused sessions resume or complete, and
// completed is terminal.
func statusTransitionAllowed(from, to model.SessionStatus) bool {
	switch from {
	case model.StatusActive:
		return to == model.StatusPaused || to == model.StatusCompleted
	case model.StatusPaused:
		return to == model.StatusActive || to == model.StatusCompleted
	}
	return false
}

type questionResponse struct {
	Question model.Question `json:"question"`
	AudioB64 string         `json:"audio_b64,omitempty"`
}

// handleNextQuestion picks an unasked question at the session's current
// difficulty. When the level is exhausted it widens to any difficulty
// before giving up. With ?speech=1 the response carries synthesized
// question audio; synthesis failures fall back to text only.
func (h *Handler) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID, err := urlID(r, "sessionID")
	if err != nil {
		respondError(w, err)
		return
	}
	sess, err := h.store.GetSession(sessionID)
	if err != nil {
		respondError(w, err)
		return
	}
	if sess.Status != model.StatusActive {
		respondJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("session is %s", sess.Status),
		})
		return
	}

	q, err := h.pickQuestion(sess)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := questionResponse{Question: q}
	if r.URL.Query().Get("speech") == "1" && h.tts != nil {
		audio, err := h.tts.Synthesize(r.Context(), q.Text)
		if err != nil {
			slog.Warn("question synthesis failed, serving text only", "question", q.ID, "error", err)
		} else {
			resp.AudioB64 = base64.StdEncoding.EncodeToString(audio)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) pickQuestion(sess model.InterviewSession) (model.Question, error) {
	asked, err := h.store.AskedQuestionIDs(sess.ID)
	if err != nil {
		return model.Question{}, err
	}
	candidates, err := h.unaskedQuestions(sess.Role, sess.Difficulty, asked)
	if err != nil {
		return model.Question{}, err
	}
	if len(candidates) == 0 {
		// Current level exhausted, widen to the whole role bank.
		candidates, err = h.unaskedQuestions(sess.Role, "", asked)
		if err != nil {
			return model.Question{}, err
		}
	}
	if len(candidates) == 0 {
		return model.Question{}, fmt.Errorf("%w: question bank exhausted for session %d", model.ErrInvalidInput, sess.ID)
	}
	return candidates[rand.IntN(len(candidates))], nil
}

func (h *Handler) unaskedQuestions(role string, difficulty model.Difficulty, asked map[int64]bool) ([]model.Question, error) {
	questions, err := h.store.ListQuestions(role, difficulty)
	if err != nil {
		return nil, err
	}
	var out []model.Question
	for _, q := range questions {
		if !asked[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

type submitTranscriptRequest struct {
	QuestionID int64            `json:"question_id"`
	Transcript model.Transcript `json:"transcript"`
}

type answerResponse struct {
	Answer     model.Answer          `json:"answer"`
	Score      model.ScoreBreakdown  `json:"score"`
	Metrics    model.DeliveryMetrics `json:"metrics"`
	Difficulty model.Difficulty      `json:"next_difficulty"`
	Trend      model.Trend           `json:"trend"`
}

func (h *Handler) handleSubmitTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID, err := urlID(r, "sessionID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req submitTranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	tr := req.Transcript
	speech.MarkFillers(&tr, h.engine.Config().FillerWords)
	h.scoreAnswer(w, r, sessionID, req.QuestionID, tr)
}

// handleSubmitAudio accepts a multipart recording, transcribes it with
// bounded retries, and scores the result.
func (h *Handler) handleSubmitAudio(w http.ResponseWriter, r *http.Request) {
	if h.transcriber == nil {
		respondJSON(w, http.StatusNotImplemented, map[string]string{"error": "transcription is not configured"})
		return
	}
	sessionID, err := urlID(r, "sessionID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		respondError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	questionID, err := strconv.ParseInt(r.FormValue("question_id"), 10, 64)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid question_id", model.ErrInvalidInput))
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, fmt.Errorf("%w: audio file is required", model.ErrInvalidInput))
		return
	}
	defer file.Close()

	tr, err := h.transcriber.Transcribe(r.Context(), io.LimitReader(file, maxAudioBytes), header.Filename)
	if err != nil {
		respondError(w, err)
		return
	}
	h.scoreAnswer(w, r, sessionID, questionID, tr)
}

// scoreAnswer runs the evaluation pipeline and advances the session's
// difficulty. Scoring is serialized per session so positions and the
// rolling score window stay consistent.
func (h *Handler) scoreAnswer(w http.ResponseWriter, r *http.Request, sessionID, questionID int64, tr model.Transcript) {
	lock := h.locks.forSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := h.store.GetSession(sessionID)
	if err != nil {
		respondError(w, err)
		return
	}
	if sess.Status != model.StatusActive {
		respondJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("session is %s", sess.Status),
		})
		return
	}
	question, err := h.store.GetQuestion(questionID)
	if err != nil {
		respondError(w, err)
		return
	}

	breakdown, metrics, err := h.engine.Evaluate(r.Context(), question, tr)
	if err != nil {
		respondError(w, err)
		return
	}

	count, err := h.store.AnswerCount(sessionID)
	if err != nil {
		respondError(w, err)
		return
	}
	answer := model.Answer{
		SessionID:  sessionID,
		QuestionID: questionID,
		Position:   count + 1,
		Transcript: tr,
	}
	answer.ID, err = h.store.AddAnswer(answer)
	if err != nil {
		respondError(w, err)
		return
	}
	breakdown.AnswerID = answer.ID
	breakdown.ID, err = h.store.InsertScore(breakdown)
	if err != nil {
		respondError(w, err)
		return
	}

	cfg := h.engine.Config().Adaptive
	recent, err := h.store.RecentAuthoritativeScores(sessionID, cfg.Window)
	if err != nil {
		respondError(w, err)
		return
	}
	// Drop the score we just inserted; Observe appends it.
	if len(recent) > 0 {
		recent = recent[:len(recent)-1]
	}
	selector := adaptive.Resume(cfg, sess.Difficulty, recent)
	selector, trend := selector.Observe(breakdown.Combined)
	if err := h.store.UpdateSessionProgress(sessionID, selector.Level, trend); err != nil {
		respondError(w, err)
		return
	}

	slog.Info("answer scored",
		"session", sessionID, "question", questionID, "position", answer.Position,
		"combined", breakdown.Combined, "degraded", breakdown.Degraded,
		"difficulty", selector.Level, "trend", trend)

	respondJSON(w, http.StatusCreated, answerResponse{
		Answer:     answer,
		Score:      breakdown,
		Metrics:    metrics,
		Difficulty: selector.Level,
		Trend:      trend,
	})
}
