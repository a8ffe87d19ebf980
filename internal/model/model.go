package model

import (
	"context"
	"strings"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleReviewer can override scores and export results.
	UserRoleReviewer UserRole = "reviewer"
	// UserRoleAdmin can additionally manage users.
	UserRoleAdmin UserRole = "admin"
)

// User represents a reviewer account.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session token.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Harder returns the next difficulty up, capped at hard.
func (d Difficulty) Harder() Difficulty {
	switch d {
	case DifficultyEasy:
		return DifficultyMedium
	case DifficultyMedium:
		return DifficultyHard
	}
	return DifficultyHard
}

// Easier returns the next difficulty down, floored at easy.
func (d Difficulty) Easier() Difficulty {
	switch d {
	case DifficultyHard:
		return DifficultyMedium
	case DifficultyMedium:
		return DifficultyEasy
	}
	return DifficultyEasy
}

// SessionStatus represents the status of an interview session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
)

// Trend indicates the direction of recent performance.
type Trend string

const (
	TrendAdvancing  Trend = "advancing"
	TrendHolding    Trend = "holding"
	TrendRegressing Trend = "regressing"
)

// Question represents an interview question. Questions are immutable once
// imported; the question bank is owned by the content files.
type Question struct {
	ID          int64      `json:"id"`
	Role        string     `json:"role"`
	Text        string     `json:"text"`
	Difficulty  Difficulty `json:"difficulty"`
	Keywords    []string   `json:"keywords"`
	ModelAnswer string     `json:"model_answer"`
	FollowupIDs []int64    `json:"followup_ids,omitempty"`
}

// Token is a single timestamped transcript token. Start and End are
// offsets in seconds from the beginning of the recording.
type Token struct {
	Text   string  `json:"text"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Filler bool    `json:"filler,omitempty"`
}

// Transcript is the timestamped token sequence produced by the
// speech-to-text collaborator. Immutable once recorded on an answer.
type Transcript struct {
	Tokens []Token `json:"tokens"`
}

// Text joins all tokens into a single string.
func (t Transcript) Text() string {
	words := make([]string, len(t.Tokens))
	for i, tok := range t.Tokens {
		words[i] = tok.Text
	}
	return strings.Join(words, " ")
}

// Duration returns the span from the first token's start to the last
// token's end, in seconds. Zero for an empty transcript.
func (t Transcript) Duration() float64 {
	if len(t.Tokens) == 0 {
		return 0
	}
	return t.Tokens[len(t.Tokens)-1].End - t.Tokens[0].Start
}

// FillerCount returns the number of tokens flagged as fillers.
func (t Transcript) FillerCount() int {
	n := 0
	for _, tok := range t.Tokens {
		if tok.Filler {
			n++
		}
	}
	return n
}

// DeliveryMetrics holds raw delivery measurements derived from a
// transcript. Recomputed on demand, never stored independently.
type DeliveryMetrics struct {
	TokenCount     int     `json:"token_count"`
	FillerCount    int     `json:"filler_count"`
	FillerRate     float64 `json:"filler_rate"`
	AvgPause       float64 `json:"avg_pause"`
	WordsPerMinute float64 `json:"words_per_minute"`
}

// ScoreBreakdown holds the sub-scores and combined score for one answer.
// All scores are in [0,1]. A reviewer override is stored alongside the
// system score and never replaces it.
type ScoreBreakdown struct {
	ID              int64      `json:"id"`
	AnswerID        int64      `json:"answer_id"`
	Lexical         float64    `json:"lexical"`
	Semantic        float64    `json:"semantic"`
	Delivery        float64    `json:"delivery"`
	Combined        float64    `json:"combined"`
	Degraded        bool       `json:"degraded"`
	Recommendations []string   `json:"recommendations"`
	ReviewerScore   *float64   `json:"reviewer_score,omitempty"`
	ReviewerComment string     `json:"reviewer_comment,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
}

// Overridden reports whether a reviewer has supplied an override.
func (s ScoreBreakdown) Overridden() bool {
	return s.ReviewerScore != nil
}

// Authoritative returns the score used for reporting: the reviewer
// override when present, otherwise the system combined score.
func (s ScoreBreakdown) Authoritative() float64 {
	if s.ReviewerScore != nil {
		return *s.ReviewerScore
	}
	return s.Combined
}

// Answer records one scored response within a session.
type Answer struct {
	ID         int64      `json:"id"`
	SessionID  int64      `json:"session_id"`
	QuestionID int64      `json:"question_id"`
	Position   int        `json:"position"`
	Transcript Transcript `json:"transcript"`
	CreatedAt  time.Time  `json:"created_at"`
}

// InterviewSession represents one candidate's practice session.
type InterviewSession struct {
	ID          int64         `json:"id"`
	Candidate   string        `json:"candidate"`
	Role        string        `json:"role"`
	Status      SessionStatus `json:"status"`
	Difficulty  Difficulty    `json:"difficulty"`
	Trend       Trend         `json:"trend"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// AnswerView combines an answer with its question and score for display.
type AnswerView struct {
	Answer   Answer          `json:"answer"`
	Question Question        `json:"question"`
	Score    *ScoreBreakdown `json:"score,omitempty"`
}

// SessionView is a read-only snapshot of a session with all answers.
type SessionView struct {
	Session InterviewSession `json:"session"`
	Answers []AnswerView     `json:"answers"`
	Stats   *SessionStats    `json:"stats,omitempty"`
}

// QuestionImport is used for loading questions from JSON files.
type QuestionImport struct {
	Role        string     `json:"role"`
	Text        string     `json:"text"`
	Difficulty  Difficulty `json:"difficulty"`
	Keywords    []string   `json:"keywords"`
	ModelAnswer string     `json:"model_answer"`
}
