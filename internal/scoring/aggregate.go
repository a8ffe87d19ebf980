package scoring

import (
	"context"

	"github.com/vinsol/interviewsim/internal/config"
	appI18n "github.com/vinsol/interviewsim/internal/i18n"
	"github.com/vinsol/interviewsim/internal/model"
)

// Recommendation thresholds. Sub-scores below these draw a corresponding
// recommendation; a combined score at or above strongAnswer draws praise.
const (
	weakSubScore = 0.5
	strongAnswer = 0.85
)

// Combine returns the weighted sum of the three sub-scores. With weights
// summing to 1.0 and sub-scores in [0,1] the result is already in [0,1];
// it is clamped anyway to absorb float rounding.
func Combine(lexical, semantic, delivery float64, w config.Weights) float64 {
	return clamp01(w.Lexical*lexical + w.Semantic*semantic + w.Delivery*delivery)
}

// RecommendationInput carries everything the threshold rules look at.
type RecommendationInput struct {
	Lexical   float64
	Semantic  float64
	Delivery  float64
	Combined  float64
	Metrics   model.DeliveryMetrics
	MinTokens int
}

// Recommendations applies the threshold rules and returns localized
// recommendation texts. The localizer comes from ctx.
func Recommendations(ctx context.Context, in RecommendationInput) []string {
	var recs []string

	if in.Delivery < weakSubScore {
		if in.Metrics.FillerCount > 0 {
			recs = append(recs, appI18n.Td(ctx, "rec.reduce_fillers", map[string]any{"Count": in.Metrics.FillerCount}))
		}
		if in.Metrics.WordsPerMinute > 0 {
			recs = append(recs, appI18n.T(ctx, "rec.steady_pace"))
		}
		if in.Metrics.AvgPause > 0 {
			recs = append(recs, appI18n.T(ctx, "rec.shorter_pauses"))
		}
	}
	if in.Lexical < weakSubScore {
		recs = append(recs, appI18n.T(ctx, "rec.cover_keywords"))
	}
	if in.Semantic < weakSubScore {
		recs = append(recs, appI18n.T(ctx, "rec.stay_on_topic"))
	}
	if in.MinTokens > 0 && in.Metrics.TokenCount < in.MinTokens {
		recs = append(recs, appI18n.T(ctx, "rec.elaborate"))
	}
	if in.Combined >= strongAnswer {
		recs = append(recs, appI18n.T(ctx, "rec.strong_answer"))
	}
	return recs
}
