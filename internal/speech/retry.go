package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vinsol/interviewsim/internal/model"
)

// RetryTranscriber wraps a Transcriber with a bounded retry loop.
// Exhausting all attempts surfaces ErrTranscriptionFailed to the caller,
// which decides whether to allow re-recording.
type RetryTranscriber struct {
	inner    Transcriber
	attempts int
}

// NewRetryTranscriber wraps inner with the given attempt limit
// (minimum 1).
func NewRetryTranscriber(inner Transcriber, attempts int) *RetryTranscriber {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryTranscriber{inner: inner, attempts: attempts}
}

// Transcribe buffers the audio once, then retries the inner transcriber
// up to the attempt limit. Invalid-input failures and context
// cancellation are not retried.
func (r *RetryTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (model.Transcript, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return model.Transcript{}, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return model.Transcript{}, fmt.Errorf("%w: empty audio", model.ErrInvalidInput)
	}

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		tr, err := r.inner.Transcribe(ctx, bytes.NewReader(data), filename)
		if err == nil {
			return tr, nil
		}
		lastErr = err
		if errors.Is(err, model.ErrInvalidInput) || ctx.Err() != nil {
			return model.Transcript{}, err
		}
		slog.Warn("transcription attempt failed",
			"attempt", attempt, "max_attempts", r.attempts, "error", err)
	}
	return model.Transcript{}, fmt.Errorf("%w after %d attempts: %v",
		model.ErrTranscriptionFailed, r.attempts, lastErr)
}
