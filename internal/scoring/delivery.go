package scoring

import (
	"fmt"

	"github.com/vinsol/interviewsim/internal/config"
	"github.com/vinsol/interviewsim/internal/model"
)

// AnalyzeDelivery computes raw delivery metrics from a timestamped
// transcript: filler rate, average pause above the configured threshold,
// and speaking rate in words per minute.
func AnalyzeDelivery(tr model.Transcript, cfg config.Delivery) (model.DeliveryMetrics, error) {
	n := len(tr.Tokens)
	if n == 0 {
		return model.DeliveryMetrics{}, fmt.Errorf("%w: transcript has no tokens", model.ErrInvalidInput)
	}
	duration := tr.Duration()
	if duration <= 0 {
		return model.DeliveryMetrics{}, fmt.Errorf("%w: transcript duration is not positive", model.ErrInvalidInput)
	}

	m := model.DeliveryMetrics{
		TokenCount:  n,
		FillerCount: tr.FillerCount(),
	}
	m.FillerRate = float64(m.FillerCount) / float64(n)
	m.WordsPerMinute = float64(n) / (duration / 60.0)

	var pauseSum float64
	var pauses int
	for i := 1; i < n; i++ {
		gap := tr.Tokens[i].Start - tr.Tokens[i-1].End
		if gap > cfg.PauseThreshold {
			pauseSum += gap
			pauses++
		}
	}
	if pauses > 0 {
		m.AvgPause = pauseSum / float64(pauses)
	}
	return m, nil
}

// NormalizeDelivery maps raw metrics into a single [0,1] delivery score:
// the mean of the band scores for speaking rate, filler rate, and average
// pause. Deterministic for a given transcript and configuration.
func NormalizeDelivery(m model.DeliveryMetrics, cfg config.Delivery) float64 {
	rate := bandScore(m.WordsPerMinute, cfg.SpeakingRate)
	filler := bandScore(m.FillerRate, cfg.FillerRate)
	pause := bandScore(m.AvgPause, cfg.AvgPause)
	return (rate + filler + pause) / 3.0
}

// bandScore is the linear-clamp function: 1.0 inside [IdealMin, IdealMax],
// degrading linearly to 0.0 at the outer bounds.
func bandScore(x float64, b config.Band) float64 {
	switch {
	case x >= b.IdealMin && x <= b.IdealMax:
		return 1.0
	case x < b.IdealMin:
		if x <= b.Min || b.IdealMin == b.Min {
			return 0.0
		}
		return (x - b.Min) / (b.IdealMin - b.Min)
	default:
		if x >= b.Max || b.IdealMax == b.Max {
			return 0.0
		}
		return (b.Max - x) / (b.Max - b.IdealMax)
	}
}
