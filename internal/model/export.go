package model

import "time"

// SessionsExport is the top-level JSON structure for result export.
type SessionsExport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	NumSessions int             `json:"num_sessions"`
	Results     []SessionResult `json:"results"`
}

// SessionResult holds one session's data for export.
type SessionResult struct {
	SessionID       int64          `json:"session_id"`
	Candidate       string         `json:"candidate"`
	Role            string         `json:"role"`
	Status          SessionStatus  `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	FinalDifficulty Difficulty     `json:"final_difficulty"`
	Trend           Trend          `json:"trend"`
	Stats           *SessionStats  `json:"stats,omitempty"`
	Answers         []AnswerResult `json:"answers"`
}

// AnswerResult holds per-answer data for export.
type AnswerResult struct {
	Position        int        `json:"position"`
	QuestionText    string     `json:"question_text"`
	Difficulty      Difficulty `json:"difficulty"`
	Transcript      string     `json:"transcript"`
	AnsweredAt      time.Time  `json:"answered_at"`
	Lexical         float64    `json:"lexical"`
	Semantic        float64    `json:"semantic"`
	Delivery        float64    `json:"delivery"`
	Combined        float64    `json:"combined"`
	Degraded        bool       `json:"degraded"`
	Recommendations []string   `json:"recommendations"`
	ReviewerScore   *float64   `json:"reviewer_score,omitempty"`
	ReviewerComment string     `json:"reviewer_comment,omitempty"`
	Authoritative   float64    `json:"authoritative"`
}
