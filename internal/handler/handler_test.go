package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vinsol/interviewsim/internal/config"
	appI18n "github.com/vinsol/interviewsim/internal/i18n"
	"github.com/vinsol/interviewsim/internal/model"
	"github.com/vinsol/interviewsim/internal/scoring"
	"github.com/vinsol/interviewsim/internal/store"
)

// fixedScorer returns a constant similarity, so combined scores in
// tests are predictable.
type fixedScorer struct {
	score float64
}

func (f fixedScorer) Similarity(ctx context.Context, text, reference string) (float64, error) {
	return f.score, nil
}

type testEnv struct {
	store  *store.Store
	server *httptest.Server
}

func newTestEnv(t *testing.T, similarity float64) *testEnv {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	engine, err := scoring.NewEngine(config.Default(), fixedScorer{score: similarity})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	h := New(s, engine, nil, nil)
	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{store: s, server: srv}
}

func (e *testEnv) seedQuestions(t *testing.T, n int, difficulty model.Difficulty) []int64 {
	t.Helper()
	var ids []int64
	for i := 0; i < n; i++ {
		id, err := e.store.InsertQuestion(model.Question{
			Role:        "backend",
			Text:        fmt.Sprintf("Describe concept %d in depth.", i),
			Difficulty:  difficulty,
			Keywords:    []string{"index", "latency"},
			ModelAnswer: "An index keeps lookups fast at the cost of write latency.",
		})
		if err != nil {
			t.Fatalf("seed question: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func (e *testEnv) seedReviewer(t *testing.T, role model.UserRole) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	id, err := e.store.CreateUser(model.User{
		Username:     "rev-" + string(role),
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("seed reviewer: %v", err)
	}
	token, err := e.store.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("seed token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

// wordyTranscript builds an evenly timed transcript from repeated
// words, long enough to avoid the short-answer recommendation.
func wordyTranscript(words ...string) model.Transcript {
	var tr model.Transcript
	for i, w := range words {
		start := float64(i) * 0.45
		tr.Tokens = append(tr.Tokens, model.Token{Text: w, Start: start, End: start + 0.4})
	}
	return tr
}

func answerBody(questionID int64) map[string]any {
	words := []string{"an", "index", "keeps", "lookups", "fast", "while", "each", "write", "pays", "extra", "latency"}
	return map[string]any{
		"question_id": questionID,
		"transcript":  wordyTranscript(words...),
	}
}

func TestCreateSessionValidation(t *testing.T) {
	env := newTestEnv(t, 0.9)
	env.seedQuestions(t, 3, model.DifficultyMedium)

	resp := env.do(t, "POST", "/api/sessions", "", map[string]string{"candidate": "ada"}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("missing role: status %d", resp.StatusCode)
	}

	resp = env.do(t, "POST", "/api/sessions", "",
		map[string]string{"candidate": "ada", "role": "backend", "difficulty": "extreme"}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad difficulty: status %d", resp.StatusCode)
	}

	resp = env.do(t, "POST", "/api/sessions", "",
		map[string]string{"candidate": "ada", "role": "frontend"}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("empty bank for role: status %d", resp.StatusCode)
	}

	var sess model.InterviewSession
	resp = env.do(t, "POST", "/api/sessions", "",
		map[string]string{"candidate": "ada", "role": "backend"}, &sess)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	if sess.Difficulty != model.DifficultyMedium {
		t.Errorf("default difficulty = %q, want medium", sess.Difficulty)
	}
	if sess.Status != model.StatusActive {
		t.Errorf("status = %q, want active", sess.Status)
	}
}

func TestAnswerFlowAdvancesDifficulty(t *testing.T) {
	env := newTestEnv(t, 0.95)
	qIDs := env.seedQuestions(t, 5, model.DifficultyMedium)

	var sess model.InterviewSession
	env.do(t, "POST", "/api/sessions", "",
		map[string]string{"candidate": "ada", "role": "backend"}, &sess)

	var last answerResponse
	for i := 0; i < 3; i++ {
		resp := env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/answers", sess.ID), "",
			answerBody(qIDs[i]), &last)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("answer %d: status %d", i, resp.StatusCode)
		}
		if last.Answer.Position != i+1 {
			t.Errorf("answer %d: position %d", i, last.Answer.Position)
		}
	}

	if last.Trend != model.TrendAdvancing {
		t.Errorf("trend = %q, want advancing", last.Trend)
	}
	if last.Difficulty != model.DifficultyHard {
		t.Errorf("difficulty = %q, want hard", last.Difficulty)
	}

	stored, err := env.store.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.Difficulty != model.DifficultyHard || stored.Trend != model.TrendAdvancing {
		t.Errorf("persisted progress = %q/%q", stored.Difficulty, stored.Trend)
	}

	var view sessionViewResponse
	resp := env.do(t, "GET", fmt.Sprintf("/api/sessions/%d", sess.ID), "", nil, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session view: status %d", resp.StatusCode)
	}
	if len(view.Answers) != 3 {
		t.Errorf("view answers = %d, want 3", len(view.Answers))
	}
	if view.Summary == "" {
		t.Errorf("scored session should carry a summary")
	}
}

func TestAnswerRejectedWhenPaused(t *testing.T) {
	env := newTestEnv(t, 0.9)
	qIDs := env.seedQuestions(t, 2, model.DifficultyMedium)

	var sess model.InterviewSession
	env.do(t, "POST", "/api/sessions", "",
		map[string]string{"candidate": "ada", "role": "backend"}, &sess)
	env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/pause", sess.ID), "", nil, nil)

	resp := env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/answers", sess.ID), "",
		answerBody(qIDs[0]), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("paused session answer: status %d", resp.StatusCode)
	}

	// Resume and the same answer goes through.
	env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/resume", sess.ID), "", nil, nil)
	resp = env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/answers", sess.ID), "",
		answerBody(qIDs[0]), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("resumed session answer: status %d", resp.StatusCode)
	}
}

func TestCompletedSessionIsTerminal(t *testing.T) {
	env := newTestEnv(t, 0.9)
	env.seedQuestions(t, 1, model.DifficultyMedium)

	var sess model.InterviewSession
	env.do(t, "POST", "/api/sessions", "",
		map[string]string{"candidate": "ada", "role": "backend"}, &sess)
	env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/complete", sess.ID), "", nil, nil)

	resp := env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/resume", sess.ID), "", nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("resume after complete: status %d", resp.StatusCode)
	}
}

func TestNextQuestionSkipsAsked(t *testing.T) {
	env := newTestEnv(t, 0.9)
	qIDs := env.seedQuestions(t, 2, model.DifficultyMedium)

	var sess model.InterviewSession
	env.do(t, "POST", "/api/sessions", "",
		map[string]string{"candidate": "ada", "role": "backend"}, &sess)

	env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/answers", sess.ID), "",
		answerBody(qIDs[0]), nil)

	var qresp questionResponse
	resp := env.do(t, "GET", fmt.Sprintf("/api/sessions/%d/question", sess.ID), "", nil, &qresp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("next question: status %d", resp.StatusCode)
	}
	if qresp.Question.ID != qIDs[1] {
		t.Errorf("question = %d, want the unasked %d", qresp.Question.ID, qIDs[1])
	}
	if qresp.AudioB64 != "" {
		t.Errorf("no synthesizer configured, audio should be empty")
	}

	// With the whole bank asked, the session has nothing left to serve.
	env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/answers", sess.ID), "",
		answerBody(qIDs[1]), nil)
	resp = env.do(t, "GET", fmt.Sprintf("/api/sessions/%d/question", sess.ID), "", nil, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("exhausted bank: status %d", resp.StatusCode)
	}
}

func TestOverrideRequiresReviewer(t *testing.T) {
	env := newTestEnv(t, 0.5)
	qIDs := env.seedQuestions(t, 1, model.DifficultyMedium)

	var sess model.InterviewSession
	env.do(t, "POST", "/api/sessions", "",
		map[string]string{"candidate": "ada", "role": "backend"}, &sess)
	var ans answerResponse
	env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/answers", sess.ID), "",
		answerBody(qIDs[0]), &ans)

	body := map[string]any{"score": 0.9, "comment": "better than scored"}
	path := fmt.Sprintf("/api/answers/%d/override", ans.Answer.ID)

	resp := env.do(t, "POST", path, "", body, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status %d", resp.StatusCode)
	}

	token := env.seedReviewer(t, model.UserRoleReviewer)
	var sc model.ScoreBreakdown
	resp = env.do(t, "POST", path, token, body, &sc)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("override: status %d", resp.StatusCode)
	}
	if sc.ReviewerScore == nil || *sc.ReviewerScore != 0.9 {
		t.Errorf("reviewer score = %v", sc.ReviewerScore)
	}
	if sc.Combined == 0.9 {
		t.Errorf("system score should be untouched")
	}

	resp = env.do(t, "POST", path, token, map[string]any{"score": 1.5}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("out-of-range override: status %d", resp.StatusCode)
	}
}

func TestExportGatedAndComplete(t *testing.T) {
	env := newTestEnv(t, 0.8)
	qIDs := env.seedQuestions(t, 1, model.DifficultyMedium)

	var sess model.InterviewSession
	env.do(t, "POST", "/api/sessions", "",
		map[string]string{"candidate": "ada", "role": "backend"}, &sess)
	env.do(t, "POST", fmt.Sprintf("/api/sessions/%d/answers", sess.ID), "",
		answerBody(qIDs[0]), nil)

	resp := env.do(t, "GET", "/api/export", "", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status %d", resp.StatusCode)
	}

	token := env.seedReviewer(t, model.UserRoleReviewer)
	var export model.SessionsExport
	resp = env.do(t, "GET", "/api/export", token, nil, &export)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d", resp.StatusCode)
	}
	if export.NumSessions != 1 || len(export.Results) != 1 {
		t.Fatalf("export = %+v", export)
	}
	if len(export.Results[0].Answers) != 1 {
		t.Errorf("expected 1 exported answer")
	}
}

func TestCreateUserAdminOnly(t *testing.T) {
	env := newTestEnv(t, 0.5)

	body := createUserRequest{Username: "newrev", Password: "pw", Role: model.UserRoleReviewer}

	reviewerToken := env.seedReviewer(t, model.UserRoleReviewer)
	resp := env.do(t, "POST", "/api/users", reviewerToken, body, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("reviewer creating user: status %d", resp.StatusCode)
	}

	adminToken := env.seedReviewer(t, model.UserRoleAdmin)
	var created model.User
	resp = env.do(t, "POST", "/api/users", adminToken, body, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin creating user: status %d", resp.StatusCode)
	}
	if created.Username != "newrev" || created.PasswordHash != "" {
		t.Errorf("created = %+v", created)
	}
}
