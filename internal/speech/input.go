package speech

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
)

type Recorder interface {
	RecordAuto(ctx context.Context) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32, lang string) (string, error)
}

// Microphone records one turn from the default input device and transcribes it.
type Microphone struct {
	Recorder    Recorder
	Transcriber Transcriber
	// Lang returns the current recognition language.
	Lang func() string
}

func (m *Microphone) Listen(ctx context.Context) (string, error) {
	pcm, err := m.Recorder.RecordAuto(ctx)
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}
	log.Debug("Recorded", "samples", len(pcm))

	return transcribe(ctx, m.Transcriber, pcm, m.lang())
}

func (m *Microphone) lang() string {
	if m.Lang == nil {
		return ""
	}
	return m.Lang()
}

// Unavailable is the input used when no recogniser is configured.
type Unavailable struct{}

func (Unavailable) Listen(context.Context) (string, error) { return "", ErrUnsupported }

type Decoder interface {
	Decode(data []byte, format string) ([]float32, error)
}

// Clips transcribes audio clips uploaded by remote clients.
type Clips struct {
	Decoder     Decoder
	Transcriber Transcriber
}

func (c *Clips) Transcribe(ctx context.Context, data []byte, format, lang string) (string, error) {
	if c == nil || c.Transcriber == nil {
		return "", ErrUnsupported
	}
	pcm, err := c.Decoder.Decode(data, format)
	if err != nil {
		return "", fmt.Errorf("decode clip: %w", err)
	}
	return transcribe(ctx, c.Transcriber, pcm, lang)
}

func transcribe(ctx context.Context, t Transcriber, pcm []float32, lang string) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}
	text, err := t.Transcribe(ctx, pcm, lang)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return strings.TrimSpace(text), nil
}
