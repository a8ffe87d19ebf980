package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/vinsol/interviewsim/internal/config"
	"github.com/vinsol/interviewsim/internal/model"
)

func TestAnalyzeDelivery(t *testing.T) {
	cfg := config.Default().Delivery

	// 4 tokens over 2 seconds -> 120 wpm, one filler, one 1s pause.
	tr := model.Transcript{Tokens: []model.Token{
		{Text: "um", Start: 0.0, End: 0.25, Filler: true},
		{Text: "channels", Start: 0.25, End: 0.5},
		{Text: "synchronize", Start: 1.5, End: 1.75},
		{Text: "goroutines", Start: 1.75, End: 2.0},
	}}

	m, err := AnalyzeDelivery(tr, cfg)
	if err != nil {
		t.Fatalf("AnalyzeDelivery: %v", err)
	}
	if m.TokenCount != 4 {
		t.Errorf("TokenCount = %d, want 4", m.TokenCount)
	}
	if m.FillerCount != 1 {
		t.Errorf("FillerCount = %d, want 1", m.FillerCount)
	}
	if math.Abs(m.FillerRate-0.25) > 1e-9 {
		t.Errorf("FillerRate = %v, want 0.25", m.FillerRate)
	}
	if math.Abs(m.WordsPerMinute-120) > 1e-9 {
		t.Errorf("WordsPerMinute = %v, want 120", m.WordsPerMinute)
	}
	if math.Abs(m.AvgPause-1.0) > 1e-9 {
		t.Errorf("AvgPause = %v, want 1.0", m.AvgPause)
	}
}

func TestAnalyzeDeliveryIgnoresShortGaps(t *testing.T) {
	cfg := config.Default().Delivery

	tr := model.Transcript{Tokens: []model.Token{
		{Text: "a", Start: 0.0, End: 0.2},
		{Text: "b", Start: 0.5, End: 0.7}, // 0.3s gap, below 0.5s threshold
		{Text: "c", Start: 0.8, End: 1.0},
	}}
	m, err := AnalyzeDelivery(tr, cfg)
	if err != nil {
		t.Fatalf("AnalyzeDelivery: %v", err)
	}
	if m.AvgPause != 0 {
		t.Errorf("AvgPause = %v, want 0 (gaps below threshold)", m.AvgPause)
	}
}

func TestAnalyzeDeliveryInvalidInput(t *testing.T) {
	cfg := config.Default().Delivery

	if _, err := AnalyzeDelivery(model.Transcript{}, cfg); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("empty transcript: expected ErrInvalidInput, got %v", err)
	}

	// All tokens at the same instant: zero duration.
	tr := model.Transcript{Tokens: []model.Token{{Text: "a"}, {Text: "b"}}}
	if _, err := AnalyzeDelivery(tr, cfg); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("zero duration: expected ErrInvalidInput, got %v", err)
	}
}

func TestBandScore(t *testing.T) {
	b := config.Band{Min: 60, IdealMin: 110, IdealMax: 160, Max: 230}

	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"inside band", 130, 1.0},
		{"at ideal min", 110, 1.0},
		{"at ideal max", 160, 1.0},
		{"below min", 40, 0.0},
		{"at min", 60, 0.0},
		{"halfway up", 85, 0.5},
		{"above max", 250, 0.0},
		{"halfway down", 195, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bandScore(tt.x, b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("bandScore(%v) = %v, want %v", tt.x, got, tt.want)
			}
		})
	}
}

func TestBandScoreDegenerateEdges(t *testing.T) {
	// Ideal band starting at the hard minimum: values below score 0.
	b := config.Band{Min: 0, IdealMin: 0, IdealMax: 0.03, Max: 0.15}
	if got := bandScore(0, b); got != 1.0 {
		t.Errorf("bandScore(0) = %v, want 1.0", got)
	}
	if got := bandScore(0.15, b); got != 0.0 {
		t.Errorf("bandScore(0.15) = %v, want 0.0", got)
	}
	mid := bandScore(0.09, b)
	if math.Abs(mid-0.5) > 1e-9 {
		t.Errorf("bandScore(0.09) = %v, want 0.5", mid)
	}
}

func TestNormalizeDeliveryDeterministic(t *testing.T) {
	cfg := config.Default().Delivery
	m := model.DeliveryMetrics{
		TokenCount:     40,
		FillerCount:    2,
		FillerRate:     0.05,
		AvgPause:       0.8,
		WordsPerMinute: 130,
	}
	first := NormalizeDelivery(m, cfg)
	for i := 0; i < 5; i++ {
		if got := NormalizeDelivery(m, cfg); got != first {
			t.Fatalf("NormalizeDelivery not deterministic: %v vs %v", got, first)
		}
	}
	if first < 0 || first > 1 {
		t.Errorf("NormalizeDelivery = %v, outside [0,1]", first)
	}
}
