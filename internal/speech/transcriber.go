// Package speech holds the speech collaborators: transcription of
// candidate audio into timestamped tokens and synthesis of question
// audio. Both sit behind small interfaces so tests inject deterministic
// doubles.
package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vinsol/interviewsim/internal/model"
)

// Transcriber converts recorded audio into a timestamped transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (model.Transcript, error)
}

// WhisperTranscriber transcribes audio through an OpenAI-compatible
// Whisper endpoint and flags filler tokens.
type WhisperTranscriber struct {
	api     *openai.Client
	model   string
	fillers []string
}

// NewWhisperTranscriber creates a transcriber. fillerWords is the
// configured disfluency list used to flag tokens.
func NewWhisperTranscriber(baseURL, apiKey, modelName string, fillerWords []string) *WhisperTranscriber {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &WhisperTranscriber{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		fillers: fillerWords,
	}
}

// Transcribe requests a verbose transcription with word timestamps and
// converts it into the internal transcript form. When the endpoint does
// not return word timings, token times are spread evenly across the
// reported duration.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (model.Transcript, error) {
	resp, err := t.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   audio,
		FilePath: filename,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.Transcript{}, fmt.Errorf("%w: transcription: %v", model.ErrExternalTimeout, err)
		}
		return model.Transcript{}, fmt.Errorf("%w: transcription: %v", model.ErrExternalService, err)
	}

	var tr model.Transcript
	if len(resp.Words) > 0 {
		for _, w := range resp.Words {
			tr.Tokens = append(tr.Tokens, model.Token{
				Text:  strings.TrimSpace(w.Word),
				Start: w.Start,
				End:   w.End,
			})
		}
	} else {
		tr = spreadTokens(resp.Text, resp.Duration)
	}
	MarkFillers(&tr, t.fillers)
	return tr, nil
}

// spreadTokens distributes the words of a plain transcription evenly
// over the audio duration.
func spreadTokens(text string, duration float64) model.Transcript {
	words := strings.Fields(text)
	var tr model.Transcript
	if len(words) == 0 {
		return tr
	}
	per := duration / float64(len(words))
	for i, w := range words {
		start := float64(i) * per
		tr.Tokens = append(tr.Tokens, model.Token{Text: w, Start: start, End: start + per})
	}
	return tr
}

// MarkFillers flags tokens that match the filler list, including
// multi-word fillers like "you know" (every token of the phrase is
// flagged). Matching is case-insensitive on punctuation-trimmed tokens.
func MarkFillers(tr *model.Transcript, fillerWords []string) {
	if len(tr.Tokens) == 0 || len(fillerWords) == 0 {
		return
	}
	words := make([]string, len(tr.Tokens))
	for i, tok := range tr.Tokens {
		words[i] = strings.Trim(strings.ToLower(tok.Text), ".,;:!?\"'")
	}
	for _, f := range fillerWords {
		parts := strings.Fields(strings.ToLower(f))
		if len(parts) == 0 {
			continue
		}
		for i := 0; i+len(parts) <= len(words); i++ {
			match := true
			for j, p := range parts {
				if words[i+j] != p {
					match = false
					break
				}
			}
			if match {
				for j := range parts {
					tr.Tokens[i+j].Filler = true
				}
			}
		}
	}
}
