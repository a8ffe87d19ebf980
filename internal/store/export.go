package store

import (
	"fmt"

	"github.com/vinsol/interviewsim/internal/model"
)

// ExportAllSessions builds export-ready results for every session. The
// export carries both the system score and any reviewer override, with
// the authoritative value resolved per answer.
func (s *Store) ExportAllSessions() ([]model.SessionResult, error) {
	sessions, err := s.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var results []model.SessionResult
	for _, sess := range sessions {
		view, err := s.GetSessionView(sess.ID)
		if err != nil {
			return nil, fmt.Errorf("get session %d: %w", sess.ID, err)
		}

		var answers []model.AnswerResult
		for _, av := range view.Answers {
			ar := model.AnswerResult{
				Position:     av.Answer.Position,
				QuestionText: av.Question.Text,
				Difficulty:   av.Question.Difficulty,
				Transcript:   av.Answer.Transcript.Text(),
				AnsweredAt:   av.Answer.CreatedAt,
			}
			if av.Score != nil {
				ar.Lexical = av.Score.Lexical
				ar.Semantic = av.Score.Semantic
				ar.Delivery = av.Score.Delivery
				ar.Combined = av.Score.Combined
				ar.Degraded = av.Score.Degraded
				ar.Recommendations = av.Score.Recommendations
				ar.ReviewerScore = av.Score.ReviewerScore
				ar.ReviewerComment = av.Score.ReviewerComment
				ar.Authoritative = av.Score.Authoritative()
			}
			answers = append(answers, ar)
		}

		results = append(results, model.SessionResult{
			SessionID:       sess.ID,
			Candidate:       sess.Candidate,
			Role:            sess.Role,
			Status:          sess.Status,
			StartedAt:       sess.StartedAt,
			CompletedAt:     sess.CompletedAt,
			FinalDifficulty: sess.Difficulty,
			Trend:           sess.Trend,
			Stats:           view.Stats,
			Answers:         answers,
		})
	}

	return results, nil
}
