package scoring

import (
	"context"
	"fmt"

	"github.com/vinsol/interviewsim/internal/config"
	"github.com/vinsol/interviewsim/internal/model"
)

// Engine runs the full evaluation pipeline for one answer. It is
// stateless and safe for concurrent use across sessions.
type Engine struct {
	cfg    config.Config
	scorer SimilarityScorer
}

// NewEngine validates the configuration and returns an Engine. The
// similarity scorer may be nil, in which case every semantic score is a
// degraded lexical fallback.
func NewEngine(cfg config.Config, scorer SimilarityScorer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, scorer: scorer}, nil
}

// Config returns the engine's validated configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Evaluate scores a transcript against a question and returns the
// breakdown plus the raw delivery metrics. Recomputing with the same
// transcript and configuration yields the same scores, except that the
// semantic score depends on the external scorer.
func (e *Engine) Evaluate(ctx context.Context, q model.Question, tr model.Transcript) (model.ScoreBreakdown, model.DeliveryMetrics, error) {
	if len(tr.Tokens) == 0 {
		return model.ScoreBreakdown{}, model.DeliveryMetrics{}, fmt.Errorf("%w: empty transcript", model.ErrInvalidInput)
	}

	lexical, err := KeywordCoverage(tr, q.Keywords, e.cfg.StemKeywords)
	if err != nil {
		return model.ScoreBreakdown{}, model.DeliveryMetrics{}, fmt.Errorf("lexical matcher: %w", err)
	}

	metrics, err := AnalyzeDelivery(tr, e.cfg.Delivery)
	if err != nil {
		return model.ScoreBreakdown{}, model.DeliveryMetrics{}, fmt.Errorf("delivery analyzer: %w", err)
	}
	delivery := NormalizeDelivery(metrics, e.cfg.Delivery)

	sem := SemanticScore(ctx, e.scorer, tr.Text(), q.ModelAnswer, lexical, e.cfg.SimilarityTimeout)

	combined := Combine(lexical, sem.Score, delivery, e.cfg.Weights)

	breakdown := model.ScoreBreakdown{
		Lexical:  lexical,
		Semantic: sem.Score,
		Delivery: delivery,
		Combined: combined,
		Degraded: sem.Degraded,
	}
	breakdown.Recommendations = Recommendations(ctx, RecommendationInput{
		Lexical:   lexical,
		Semantic:  sem.Score,
		Delivery:  delivery,
		Combined:  combined,
		Metrics:   metrics,
		MinTokens: e.cfg.MinAnswerTokens,
	})
	return breakdown, metrics, nil
}
