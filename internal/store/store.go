// Package store persists the question bank, interview sessions, answers
// and scores in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vinsol/interviewsim/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT '[]',
		model_answer TEXT NOT NULL DEFAULT '',
		followup_ids TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS interview_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		candidate TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		difficulty TEXT NOT NULL,
		trend TEXT NOT NULL DEFAULT 'holding',
		started_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		transcript TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (session_id, position),
		FOREIGN KEY (session_id) REFERENCES interview_sessions(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		answer_id INTEGER NOT NULL UNIQUE,
		lexical REAL NOT NULL DEFAULT 0,
		semantic REAL NOT NULL DEFAULT 0,
		delivery REAL NOT NULL DEFAULT 0,
		combined REAL NOT NULL DEFAULT 0,
		degraded INTEGER NOT NULL DEFAULT 0,
		recommendations TEXT NOT NULL DEFAULT '[]',
		reviewer_score REAL,
		reviewer_comment TEXT NOT NULL DEFAULT '',
		reviewed_at DATETIME,
		FOREIGN KEY (answer_id) REFERENCES answers(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'reviewer',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS bank_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertQuestion stores a question and returns its ID.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	keywords, err := json.Marshal(q.Keywords)
	if err != nil {
		return 0, err
	}
	followups, err := json.Marshal(q.FollowupIDs)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO questions (role, text, difficulty, keywords, model_answer, followup_ids)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.Role, q.Text, q.Difficulty, string(keywords), q.ModelAnswer, string(followups),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanQuestion(row interface{ Scan(...any) error }) (model.Question, error) {
	var q model.Question
	var keywords, followups string
	if err := row.Scan(&q.ID, &q.Role, &q.Text, &q.Difficulty, &keywords, &q.ModelAnswer, &followups); err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(keywords), &q.Keywords); err != nil {
		return q, fmt.Errorf("decode keywords for question %d: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(followups), &q.FollowupIDs); err != nil {
		return q, fmt.Errorf("decode followups for question %d: %w", q.ID, err)
	}
	return q, nil
}

const questionCols = `id, role, text, difficulty, keywords, model_answer, followup_ids`

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	row := s.db.QueryRow(`SELECT `+questionCols+` FROM questions WHERE id = ?`, id)
	return scanQuestion(row)
}

// ListQuestions returns questions matching the given filters. Empty
// strings mean no filtering on that field.
func (s *Store) ListQuestions(role string, difficulty model.Difficulty) ([]model.Question, error) {
	query := `SELECT ` + questionCols + ` FROM questions WHERE 1=1`
	var args []any
	if role != "" {
		query += ` AND role = ?`
		args = append(args, role)
	}
	if difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, difficulty)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionCount returns the number of questions in the bank.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// ClearQuestions removes the entire question bank. Used when the bank
// file changed and gets re-imported.
func (s *Store) ClearQuestions() error {
	_, err := s.db.Exec(`DELETE FROM questions`)
	return err
}

// CreateSession creates an interview session starting at the given
// difficulty.
func (s *Store) CreateSession(candidate, role string, difficulty model.Difficulty) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO interview_sessions (candidate, role, status, difficulty, trend, started_at)
		 VALUES (?, ?, 'active', ?, 'holding', ?)`,
		candidate, role, difficulty, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const sessionCols = `id, candidate, role, status, difficulty, trend, started_at, completed_at`

// GetSession returns a session by ID.
func (s *Store) GetSession(id int64) (model.InterviewSession, error) {
	var sess model.InterviewSession
	err := s.db.QueryRow(
		`SELECT `+sessionCols+` FROM interview_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Candidate, &sess.Role, &sess.Status, &sess.Difficulty,
		&sess.Trend, &sess.StartedAt, &sess.CompletedAt)
	return sess, err
}

// UpdateSessionStatus updates the session status. Completing a session
// records the completion time.
func (s *Store) UpdateSessionStatus(id int64, status model.SessionStatus) error {
	query := `UPDATE interview_sessions SET status = ? WHERE id = ?`
	args := []any{status, id}
	if status == model.StatusCompleted {
		query = `UPDATE interview_sessions SET status = ?, completed_at = ? WHERE id = ?`
		args = []any{status, time.Now(), id}
	}
	_, err := s.db.Exec(query, args...)
	return err
}

// UpdateSessionProgress records the session's current difficulty and
// performance trend after an answer is scored.
func (s *Store) UpdateSessionProgress(id int64, difficulty model.Difficulty, trend model.Trend) error {
	_, err := s.db.Exec(
		`UPDATE interview_sessions SET difficulty = ?, trend = ? WHERE id = ?`,
		difficulty, trend, id,
	)
	return err
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]model.InterviewSession, error) {
	rows, err := s.db.Query(`SELECT ` + sessionCols + ` FROM interview_sessions ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.InterviewSession
	for rows.Next() {
		var sess model.InterviewSession
		if err := rows.Scan(&sess.ID, &sess.Candidate, &sess.Role, &sess.Status, &sess.Difficulty,
			&sess.Trend, &sess.StartedAt, &sess.CompletedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AddAnswer stores an answer with its transcript at the next position in
// the session.
func (s *Store) AddAnswer(a model.Answer) (int64, error) {
	transcript, err := json.Marshal(a.Transcript)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO answers (session_id, question_id, position, transcript, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.SessionID, a.QuestionID, a.Position, string(transcript), time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanAnswer(row interface{ Scan(...any) error }) (model.Answer, error) {
	var a model.Answer
	var transcript string
	if err := row.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.Position, &transcript, &a.CreatedAt); err != nil {
		return a, err
	}
	if err := json.Unmarshal([]byte(transcript), &a.Transcript); err != nil {
		return a, fmt.Errorf("decode transcript for answer %d: %w", a.ID, err)
	}
	return a, nil
}

const answerCols = `id, session_id, question_id, position, transcript, created_at`

// GetAnswer returns an answer by ID.
func (s *Store) GetAnswer(id int64) (model.Answer, error) {
	row := s.db.QueryRow(`SELECT `+answerCols+` FROM answers WHERE id = ?`, id)
	return scanAnswer(row)
}

// AnswersForSession returns a session's answers in interview order.
func (s *Store) AnswersForSession(sessionID int64) ([]model.Answer, error) {
	rows, err := s.db.Query(
		`SELECT `+answerCols+` FROM answers WHERE session_id = ? ORDER BY position`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// AnswerCount returns the number of answers recorded for a session.
func (s *Store) AnswerCount(sessionID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM answers WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

// AskedQuestionIDs returns the IDs of questions already asked in a
// session, so the selector never repeats one.
func (s *Store) AskedQuestionIDs(sessionID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(`SELECT question_id FROM answers WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	asked := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		asked[id] = true
	}
	return asked, rows.Err()
}

// InsertScore stores the system score for an answer. Each answer is
// scored exactly once.
func (s *Store) InsertScore(sc model.ScoreBreakdown) (int64, error) {
	recs, err := json.Marshal(sc.Recommendations)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO scores (answer_id, lexical, semantic, delivery, combined, degraded, recommendations)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.AnswerID, sc.Lexical, sc.Semantic, sc.Delivery, sc.Combined, sc.Degraded, string(recs),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const scoreCols = `id, answer_id, lexical, semantic, delivery, combined, degraded,
	recommendations, reviewer_score, reviewer_comment, reviewed_at`

// GetScore returns the score for an answer, or nil if not yet scored.
func (s *Store) GetScore(answerID int64) (*model.ScoreBreakdown, error) {
	var sc model.ScoreBreakdown
	var recs string
	err := s.db.QueryRow(
		`SELECT `+scoreCols+` FROM scores WHERE answer_id = ?`, answerID,
	).Scan(&sc.ID, &sc.AnswerID, &sc.Lexical, &sc.Semantic, &sc.Delivery, &sc.Combined,
		&sc.Degraded, &recs, &sc.ReviewerScore, &sc.ReviewerComment, &sc.ReviewedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(recs), &sc.Recommendations); err != nil {
		return nil, fmt.Errorf("decode recommendations for answer %d: %w", answerID, err)
	}
	return &sc, nil
}

// OverrideScore records a reviewer override next to the system score.
// The system score is kept untouched for the audit trail.
func (s *Store) OverrideScore(answerID int64, score float64, comment string) error {
	res, err := s.db.Exec(
		`UPDATE scores SET reviewer_score = ?, reviewer_comment = ?, reviewed_at = ?
		 WHERE answer_id = ?`,
		score, comment, time.Now(), answerID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecentAuthoritativeScores returns the last n scores of a session in
// interview order, oldest first. Reviewer overrides take precedence over
// system scores, so a review can shift the difficulty trajectory.
func (s *Store) RecentAuthoritativeScores(sessionID int64, n int) ([]float64, error) {
	rows, err := s.db.Query(
		`SELECT COALESCE(sc.reviewer_score, sc.combined)
		 FROM scores sc JOIN answers a ON a.id = sc.answer_id
		 WHERE a.session_id = ?
		 ORDER BY a.position DESC LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var scores []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		scores = append(scores, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(scores)-1; i < j; i, j = i+1, j-1 {
		scores[i], scores[j] = scores[j], scores[i]
	}
	return scores, nil
}

// GetSessionView builds a full snapshot of a session with all answers,
// their questions and scores, plus aggregate stats.
func (s *Store) GetSessionView(sessionID int64) (*model.SessionView, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.AnswersForSession(sessionID)
	if err != nil {
		return nil, err
	}

	var views []model.AnswerView
	for _, a := range answers {
		q, err := s.GetQuestion(a.QuestionID)
		if err != nil {
			return nil, err
		}
		score, err := s.GetScore(a.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, model.AnswerView{
			Answer:   a,
			Question: q,
			Score:    score,
		})
	}

	return &model.SessionView{
		Session: sess,
		Answers: views,
		Stats:   model.ComputeStats(views),
	}, nil
}
