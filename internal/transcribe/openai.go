package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/sruti/internal/audio"
	"github.com/mgpai22/sruti/internal/subtitle"
)

// the Audio API rejects uploads above 25 MB
const openAIMaxUpload = 25 << 20

const defaultOpenAIModel = "whisper-1"

// OpenAITranscriber uses the OpenAI Audio API. whisper-1 returns timed
// segments; the gpt-4o transcribe models only return text, which becomes a
// single cue spanning the file.
type OpenAITranscriber struct {
	client  openai.Client
	model   string
	options Options
}

type verboseSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json body shared by transcriptions and translations
type verboseResponse struct {
	Text     string           `json:"text"`
	Segments []verboseSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAITranscriber(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAITranscriber{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		options: opts,
	}, nil
}

func (t *OpenAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}
	if info.Size() > openAIMaxUpload {
		return nil, fmt.Errorf(
			"audio file is %d MB, above the %d MB upload limit: transcribe in chunks",
			info.Size()>>20,
			openAIMaxUpload>>20,
		)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	// ffprobe is only a fallback for responses without a duration
	duration, _ := audio.GetDuration(ctx, audioPath)

	raw, text, err := t.request(ctx, file)
	if err != nil {
		return nil, err
	}

	language := t.options.Language
	if t.toEnglish() {
		language = "en"
	}

	segments, resp, err := parseVerboseJSON(raw, duration)
	if err != nil {
		// plain json from the gpt-4o models, or a body we could not read
		segments = fallbackSegment(text, duration)
	} else {
		if resp.Duration > 0 {
			duration = secondsToDuration(resp.Duration)
		}
		if language == "" {
			language = resp.Language
		}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("OpenAI returned no transcript for %s", audioPath)
	}

	return &Result{
		Segments: segments,
		Language: language,
		Duration: duration,
	}, nil
}

// request uploads the file to the transcription or translation endpoint and
// returns the raw body plus its text field.
func (t *OpenAITranscriber) request(ctx context.Context, file *os.File) (string, string, error) {
	if t.toEnglish() {
		params := openai.AudioTranslationNewParams{
			File:           file,
			Model:          openai.AudioModel(t.model),
			ResponseFormat: openai.AudioTranslationNewParamsResponseFormatVerboseJSON,
		}
		if t.options.Prompt != "" {
			params.Prompt = openai.String(t.options.Prompt)
		}
		resp, err := t.client.Audio.Translations.New(ctx, params)
		if err != nil {
			return "", "", fmt.Errorf("translation failed: %w", err)
		}
		return resp.RawJSON(), resp.Text, nil
	}

	params := openai.AudioTranscriptionNewParams{
		File:  file,
		Model: openai.AudioModel(t.model),
	}
	if t.timed() {
		params.ResponseFormat = openai.AudioResponseFormatVerboseJSON
		params.TimestampGranularities = []string{"segment"}
	} else {
		params.ResponseFormat = openai.AudioResponseFormatJSON
	}
	if t.options.Language != "" {
		params.Language = openai.String(t.options.Language)
	}
	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.RawJSON(), resp.Text, nil
}

// toEnglish reports whether the translations endpoint should be used.
func (t *OpenAITranscriber) toEnglish() bool {
	lang := strings.ToLower(strings.TrimSpace(t.options.TranscriptLanguage))
	return lang == "english" || lang == "en"
}

// only whisper-1 supports verbose_json with segment timestamps
func (t *OpenAITranscriber) timed() bool {
	return !strings.HasPrefix(t.model, "gpt-4o")
}

func parseVerboseJSON(raw string, fallback time.Duration) ([]subtitle.Segment, verboseResponse, error) {
	var resp verboseResponse
	if strings.TrimSpace(raw) == "" {
		return nil, resp, fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, resp, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	if len(resp.Segments) == 0 {
		if strings.TrimSpace(resp.Text) == "" {
			return nil, resp, fmt.Errorf("no segments or text in response")
		}
		if resp.Duration > 0 {
			fallback = secondsToDuration(resp.Duration)
		}
		return fallbackSegment(resp.Text, fallback), resp, nil
	}

	segments := make([]subtitle.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, subtitle.Segment{
			StartTime: secondsToDuration(seg.Start),
			EndTime:   secondsToDuration(seg.End),
			Text:      text,
		})
	}
	return segments, resp, nil
}

func fallbackSegment(text string, duration time.Duration) []subtitle.Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return []subtitle.Segment{{StartTime: 0, EndTime: duration, Text: text}}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (t *OpenAITranscriber) TranscribeWithChunks(
	ctx context.Context,
	chunks []audio.ChunkInfo,
	concurrency int,
) (*Result, error) {
	return transcribeChunks(ctx, t, chunks, concurrency, t.options.Language)
}

func (t *OpenAITranscriber) Close() error {
	return nil
}
