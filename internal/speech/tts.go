package speech

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vinsol/interviewsim/internal/model"
)

// Synthesizer produces spoken audio for a question's text. Failures are
// not retried; the caller serves the question as text only.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// OpenAISynthesizer generates question audio through an
// OpenAI-compatible speech endpoint.
type OpenAISynthesizer struct {
	api   *openai.Client
	model string
	voice string
}

// NewSynthesizer creates a text-to-speech client.
func NewSynthesizer(baseURL, apiKey, modelName, voice string) *OpenAISynthesizer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAISynthesizer{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
		voice: voice,
	}
}

// Synthesize returns MP3 audio for the given text.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(s.model),
		Input: text,
		Voice: openai.SpeechVoice(s.voice),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: speech synthesis: %v", model.ErrExternalService, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: read synthesized audio: %v", model.ErrExternalService, err)
	}
	return audio, nil
}
