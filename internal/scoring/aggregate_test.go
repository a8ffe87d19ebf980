package scoring

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/vinsol/interviewsim/internal/config"
	appI18n "github.com/vinsol/interviewsim/internal/i18n"
	"github.com/vinsol/interviewsim/internal/model"
)

func i18nCtx(t *testing.T) context.Context {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}
	return appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer("en"))
}

func TestCombineWeightedSum(t *testing.T) {
	w := config.Weights{Lexical: 0.25, Semantic: 0.5, Delivery: 0.25}
	got := Combine(0.8, 0.6, 0.4, w)
	want := 0.25*0.8 + 0.5*0.6 + 0.25*0.4
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Combine = %v, want %v", got, want)
	}
}

func TestCombineRange(t *testing.T) {
	weights := []config.Weights{
		{Lexical: 1, Semantic: 0, Delivery: 0},
		{Lexical: 0.25, Semantic: 0.5, Delivery: 0.25},
		{Lexical: 1.0 / 3, Semantic: 1.0 / 3, Delivery: 1.0 / 3},
	}
	scores := []float64{0, 0.25, 0.5, 0.75, 1}
	for _, w := range weights {
		for _, l := range scores {
			for _, s := range scores {
				for _, d := range scores {
					got := Combine(l, s, d, w)
					if got < 0 || got > 1 {
						t.Fatalf("Combine(%v,%v,%v,%+v) = %v outside [0,1]", l, s, d, w, got)
					}
				}
			}
		}
	}
}

func TestCombineMonotonic(t *testing.T) {
	w := config.Weights{Lexical: 0.25, Semantic: 0.5, Delivery: 0.25}
	base := Combine(0.5, 0.5, 0.5, w)
	for _, bump := range []struct {
		name    string
		l, s, d float64
	}{
		{"lexical", 0.6, 0.5, 0.5},
		{"semantic", 0.5, 0.6, 0.5},
		{"delivery", 0.5, 0.5, 0.6},
	} {
		if got := Combine(bump.l, bump.s, bump.d, w); got < base {
			t.Errorf("raising %s lowered combined score: %v < %v", bump.name, got, base)
		}
	}
}

func TestRecommendationsLowDelivery(t *testing.T) {
	ctx := i18nCtx(t)
	recs := Recommendations(ctx, RecommendationInput{
		Lexical:  0.8,
		Semantic: 0.8,
		Delivery: 0.3,
		Combined: 0.65,
		Metrics: model.DeliveryMetrics{
			TokenCount:     100,
			FillerCount:    9,
			FillerRate:     0.09,
			AvgPause:       2.0,
			WordsPerMinute: 210,
		},
	})
	joined := strings.Join(recs, " | ")
	if !strings.Contains(joined, "filler words") {
		t.Errorf("expected a reduce-fillers recommendation, got %q", joined)
	}
	if !strings.Contains(joined, "9") {
		t.Errorf("expected filler count interpolated, got %q", joined)
	}
}

func TestRecommendationsWeakContent(t *testing.T) {
	ctx := i18nCtx(t)
	recs := Recommendations(ctx, RecommendationInput{
		Lexical:  0.2,
		Semantic: 0.3,
		Delivery: 0.9,
		Combined: 0.4,
		Metrics:  model.DeliveryMetrics{TokenCount: 120, WordsPerMinute: 130},
	})
	joined := strings.Join(recs, " | ")
	if !strings.Contains(joined, "key points") {
		t.Errorf("expected a cover-keywords recommendation, got %q", joined)
	}
	if !strings.Contains(joined, "focused") {
		t.Errorf("expected a stay-on-topic recommendation, got %q", joined)
	}
}

func TestRecommendationsShortAnswer(t *testing.T) {
	ctx := i18nCtx(t)
	recs := Recommendations(ctx, RecommendationInput{
		Lexical:   0.9,
		Semantic:  0.9,
		Delivery:  0.9,
		Combined:  0.9,
		Metrics:   model.DeliveryMetrics{TokenCount: 12, WordsPerMinute: 130},
		MinTokens: 60,
	})
	joined := strings.Join(recs, " | ")
	if !strings.Contains(joined, "Expand") {
		t.Errorf("expected an elaborate recommendation, got %q", joined)
	}
	if !strings.Contains(joined, "Strong answer") {
		t.Errorf("expected strong-answer praise, got %q", joined)
	}
}

func TestRecommendationsNoneForSolidMidAnswer(t *testing.T) {
	ctx := i18nCtx(t)
	recs := Recommendations(ctx, RecommendationInput{
		Lexical:  0.7,
		Semantic: 0.7,
		Delivery: 0.7,
		Combined: 0.7,
		Metrics:  model.DeliveryMetrics{TokenCount: 150, WordsPerMinute: 130},
	})
	if len(recs) != 0 {
		t.Errorf("expected no recommendations, got %v", recs)
	}
}
