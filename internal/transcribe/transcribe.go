package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mgpai22/sruti/internal/audio"
	"github.com/mgpai22/sruti/internal/subtitle"
)

// Result is a transcript in cue form. Segment times are relative to the
// start of the transcribed file.
type Result struct {
	Segments []subtitle.Segment
	Language string
	Duration time.Duration
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// ConcurrentTranscriber transcribes the pieces of a chunked file in
// parallel and returns them merged on one timeline.
type ConcurrentTranscriber interface {
	Transcriber
	TranscribeWithChunks(
		ctx context.Context,
		chunks []audio.ChunkInfo,
		concurrency int,
	) (*Result, error)
}

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

type Options struct {
	Language           string // spoken language; empty lets the service detect it
	TranscriptLanguage string // language of the cue text, "native" or empty keeps the spoken one
	Model              string
	Prompt             string // vocabulary or context hint
}

func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Transcriber, error) {
	switch Provider(strings.ToLower(string(provider))) {
	case ProviderGemini:
		return NewGeminiTranscriber(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranscriber(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported transcription provider: %s", provider)
	}
}

// WriteResult writes the segments once per extension as base.<ext>
// and returns the files written.
func WriteResult(result *Result, base string, exts []string) ([]string, error) {
	sub := subtitle.FromSegments(result.Segments)

	var written []string
	for _, ext := range exts {
		format := subtitle.Format(ext)
		writer, err := subtitle.NewWriter(format)
		if err != nil {
			return written, err
		}
		path := base + subtitle.GetExtensionForFormat(format)
		if err := writer.Write(sub, path); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
