// Package config holds the scoring configuration: aggregation weights,
// delivery target bands, adaptive thresholds, and collaborator limits.
// Invariants are checked once at load time; a violation is fatal.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"

	"github.com/vinsol/interviewsim/internal/model"
)

const weightEpsilon = 1e-9

// Weights are the aggregation weights for the three sub-scores.
// They must sum to 1.0.
type Weights struct {
	Lexical  float64 `mapstructure:"lexical"`
	Semantic float64 `mapstructure:"semantic"`
	Delivery float64 `mapstructure:"delivery"`
}

// Band describes a linear-clamp scoring band: values inside
// [IdealMin, IdealMax] score 1.0, degrading linearly to 0.0 at Min and Max.
type Band struct {
	Min      float64 `mapstructure:"min"`
	IdealMin float64 `mapstructure:"ideal_min"`
	IdealMax float64 `mapstructure:"ideal_max"`
	Max      float64 `mapstructure:"max"`
}

func (b Band) validate(name string) error {
	if !(b.Min <= b.IdealMin && b.IdealMin <= b.IdealMax && b.IdealMax <= b.Max) {
		return fmt.Errorf("%w: band %s must satisfy min <= ideal_min <= ideal_max <= max", model.ErrInvalidConfig, name)
	}
	return nil
}

// Delivery configures the delivery analyzer.
type Delivery struct {
	// PauseThreshold is the minimum inter-token gap (seconds) counted
	// as a pause.
	PauseThreshold float64 `mapstructure:"pause_threshold"`
	SpeakingRate   Band    `mapstructure:"speaking_rate"`
	FillerRate     Band    `mapstructure:"filler_rate"`
	AvgPause       Band    `mapstructure:"avg_pause"`
}

// Adaptive configures the difficulty selector.
type Adaptive struct {
	// Window is the number of recent combined scores in the rolling
	// average.
	Window int `mapstructure:"window"`
	// Advance is the rolling-average threshold above which difficulty
	// increases one level.
	Advance float64 `mapstructure:"advance"`
	// Regress is the threshold below which difficulty decreases.
	Regress float64 `mapstructure:"regress"`
	// InitialDifficulty is used when the candidate does not pick one.
	InitialDifficulty model.Difficulty `mapstructure:"initial_difficulty"`
}

// Config is the full scoring configuration.
type Config struct {
	Weights  Weights  `mapstructure:"weights"`
	Delivery Delivery `mapstructure:"delivery"`
	Adaptive Adaptive `mapstructure:"adaptive"`

	// StemKeywords enables suffix-stripping keyword matching instead of
	// exact word matching.
	StemKeywords bool `mapstructure:"stem_keywords"`

	// FillerWords are the disfluency tokens flagged during
	// transcription.
	FillerWords []string `mapstructure:"filler_words"`

	// MinAnswerTokens is the token count below which an answer draws an
	// "elaborate" recommendation.
	MinAnswerTokens int `mapstructure:"min_answer_tokens"`

	// SimilarityTimeout bounds the external semantic-similarity call.
	SimilarityTimeout time.Duration `mapstructure:"similarity_timeout"`

	// TranscribeRetries bounds speech-to-text attempts before
	// surfacing a transcription failure.
	TranscribeRetries int `mapstructure:"transcribe_retries"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Weights: Weights{Lexical: 0.25, Semantic: 0.5, Delivery: 0.25},
		Delivery: Delivery{
			PauseThreshold: 0.5,
			SpeakingRate:   Band{Min: 60, IdealMin: 110, IdealMax: 160, Max: 230},
			FillerRate:     Band{Min: 0, IdealMin: 0, IdealMax: 0.03, Max: 0.15},
			AvgPause:       Band{Min: 0, IdealMin: 0, IdealMax: 1.0, Max: 3.0},
		},
		Adaptive: Adaptive{
			Window:            3,
			Advance:           0.75,
			Regress:           0.4,
			InitialDifficulty: model.DifficultyMedium,
		},
		FillerWords: []string{
			"um", "uh", "like", "you know", "so", "well", "basically",
			"literally", "sort of", "kind of", "right", "okay", "actually",
			"honestly", "essentially", "pretty much", "i mean",
		},
		MinAnswerTokens:   60,
		SimilarityTimeout: 10 * time.Second,
		TranscribeRetries: 3,
	}
}

// Load returns the default configuration overridden by the "scoring"
// section of the given viper instance, validated.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if v != nil && v.IsSet("scoring") {
		if err := v.UnmarshalKey("scoring", &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse scoring section: %v", model.ErrInvalidConfig, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks all configuration invariants.
func (c Config) Validate() error {
	w := c.Weights
	for _, p := range []struct {
		name string
		v    float64
	}{{"lexical", w.Lexical}, {"semantic", w.Semantic}, {"delivery", w.Delivery}} {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("%w: weight %s = %v outside [0,1]", model.ErrInvalidConfig, p.name, p.v)
		}
	}
	if sum := w.Lexical + w.Semantic + w.Delivery; math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("%w: weights sum to %v, want 1.0", model.ErrInvalidConfig, sum)
	}

	if c.Delivery.PauseThreshold <= 0 {
		return fmt.Errorf("%w: pause_threshold must be positive", model.ErrInvalidConfig)
	}
	if err := c.Delivery.SpeakingRate.validate("speaking_rate"); err != nil {
		return err
	}
	if err := c.Delivery.FillerRate.validate("filler_rate"); err != nil {
		return err
	}
	if err := c.Delivery.AvgPause.validate("avg_pause"); err != nil {
		return err
	}

	a := c.Adaptive
	if a.Window < 1 {
		return fmt.Errorf("%w: adaptive window must be at least 1", model.ErrInvalidConfig)
	}
	if a.Advance < 0 || a.Advance > 1 || a.Regress < 0 || a.Regress > 1 {
		return fmt.Errorf("%w: adaptive thresholds must be in [0,1]", model.ErrInvalidConfig)
	}
	if a.Regress >= a.Advance {
		return fmt.Errorf("%w: regress threshold %v must be below advance threshold %v", model.ErrInvalidConfig, a.Regress, a.Advance)
	}
	if !a.InitialDifficulty.Valid() {
		return fmt.Errorf("%w: unknown initial difficulty %q", model.ErrInvalidConfig, a.InitialDifficulty)
	}

	if c.SimilarityTimeout <= 0 {
		return fmt.Errorf("%w: similarity_timeout must be positive", model.ErrInvalidConfig)
	}
	if c.TranscribeRetries < 1 {
		return fmt.Errorf("%w: transcribe_retries must be at least 1", model.ErrInvalidConfig)
	}
	return nil
}
