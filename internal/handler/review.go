package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vinsol/interviewsim/internal/model"
)

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

type overrideRequest struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// handleOverrideScore records a reviewer's score next to the system
// score. The system score stays visible for the audit trail, and the
// override feeds back into the session's difficulty trajectory.
func (h *Handler) handleOverrideScore(w http.ResponseWriter, r *http.Request) {
	answerID, err := urlID(r, "answerID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	if req.Score < 0 || req.Score > 1 {
		respondError(w, fmt.Errorf("%w: score must be in [0,1]", model.ErrInvalidInput))
		return
	}

	answer, err := h.store.GetAnswer(answerID)
	if err != nil {
		respondError(w, err)
		return
	}

	lock := h.locks.forSession(answer.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := h.store.OverrideScore(answerID, req.Score, req.Comment); err != nil {
		respondError(w, err)
		return
	}

	reviewer := model.UserFromContext(r.Context())
	slog.Info("score overridden",
		"answer", answerID, "session", answer.SessionID,
		"score", req.Score, "reviewer", reviewer.Username)

	score, err := h.store.GetScore(answerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, score)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ExportAllSessions()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, model.SessionsExport{
		GeneratedAt: time.Now(),
		NumSessions: len(results),
		Results:     results,
	})
}

type createUserRequest struct {
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Password    string         `json:"password"`
	Role        model.UserRole `json:"role"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, fmt.Errorf("%w: username and password are required", model.ErrInvalidInput))
		return
	}
	if req.Role != model.UserRoleReviewer && req.Role != model.UserRoleAdmin {
		respondError(w, fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, req.Role))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, err)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	id, err := h.store.CreateUser(model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	user, err := h.store.GetUserByID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	user.PasswordHash = ""
	respondJSON(w, http.StatusCreated, user)
}
