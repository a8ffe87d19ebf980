package scoring

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// SimilarityScorer is the external semantic-similarity capability.
// Implementations return a similarity in [0,1] (values outside the range
// are clamped by the caller).
type SimilarityScorer interface {
	Similarity(ctx context.Context, text, reference string) (float64, error)
}

// SemanticResult is the outcome of the semantic scoring step.
type SemanticResult struct {
	Score float64
	// Degraded is set when the external call failed or timed out and
	// the score fell back to the lexical score.
	Degraded bool
}

// SemanticScore compares the transcript text against the model answer via
// the external scorer, under the given timeout. On any failure it falls
// back to the lexical score and flags the result degraded; it never
// returns an error, so a similarity outage cannot stall the pipeline.
func SemanticScore(ctx context.Context, scorer SimilarityScorer, text, reference string, lexical float64, timeout time.Duration) SemanticResult {
	if scorer == nil {
		return SemanticResult{Score: lexical, Degraded: true}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sim, err := scorer.Similarity(ctx, text, reference)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("similarity call timed out, falling back to lexical score", "timeout", timeout)
		} else {
			slog.Warn("similarity call failed, falling back to lexical score", "error", err)
		}
		return SemanticResult{Score: lexical, Degraded: true}
	}
	return SemanticResult{Score: clamp01(sim)}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
