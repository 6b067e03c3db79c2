package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/mgpai22/sruti/internal/audio"
	"github.com/mgpai22/sruti/internal/subtitle"
)

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*")

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiTranscriber uploads the audio through the Files API and asks the
// model for a JSON list of timed cues.
type GeminiTranscriber struct {
	client  *genai.Client
	model   string
	options Options
}

// cue as the model is asked to return it, times in seconds
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func NewGeminiTranscriber(ctx context.Context, apiKey string, opts Options) (*GeminiTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiTranscriber{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	uploaded, err := t.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio file: %w", err)
	}
	defer func() {
		// the request context may already be cancelled here
		_, _ = t.client.Files.Delete(context.WithoutCancel(ctx), uploaded.Name, nil)
	}()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcriptionPrompt(t.options)),
			genai.NewPartFromURI(uploaded.URI, uploaded.MIMEType),
		}, genai.RoleUser),
	}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	segments, err := segmentsFromText(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
	}

	duration, _ := audio.GetDuration(ctx, audioPath)

	return &Result{
		Segments: segments,
		Language: t.options.Language,
		Duration: duration,
	}, nil
}

func (t *GeminiTranscriber) TranscribeWithChunks(ctx context.Context, chunks []audio.ChunkInfo, concurrency int) (*Result, error) {
	return transcribeChunks(ctx, t, chunks, concurrency, t.options.Language)
}

func transcriptionPrompt(opts Options) string {
	var sb strings.Builder

	sb.WriteString("Transcribe this audio as subtitles. ")
	sb.WriteString("Split it into short cues of one sentence or phrase each. ")
	sb.WriteString("Answer with a JSON array of objects with 'start', 'end' and 'text' fields, ")
	sb.WriteString("where 'start' and 'end' are seconds from the beginning of the audio, as numbers. ")

	if opts.Language != "" {
		fmt.Fprintf(&sb, "The speech is in %s. ", opts.Language)
	}
	if lang := strings.TrimSpace(opts.TranscriptLanguage); lang != "" && !strings.EqualFold(lang, "native") {
		fmt.Fprintf(&sb, "Write the cue text in %s. ", lang)
	}
	if opts.Prompt != "" {
		sb.WriteString(opts.Prompt)
		sb.WriteString(" ")
	}

	sb.WriteString("Return only the JSON array, without markdown.")
	return sb.String()
}

// segmentsFromText turns the model's answer into cues, dropping empty ones.
func segmentsFromText(text string) ([]subtitle.Segment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	found, err := extractTranscriptSegments(cleanJSONResponse(text))
	if err != nil {
		return nil, fmt.Errorf("%w (response: %s)", err, truncateString(text, 200))
	}

	segments := make([]subtitle.Segment, 0, len(found))
	for _, ts := range found {
		cue := strings.TrimSpace(ts.Text)
		if cue == "" {
			continue
		}
		segments = append(segments, subtitle.Segment{
			StartTime: secondsToDuration(ts.Start),
			EndTime:   secondsToDuration(ts.End),
			Text:      cue,
		})
	}
	return segments, nil
}

// extractTranscriptSegments finds the first JSON array of segments in text.
// Models sometimes wrap the array in prose or in an object, so every '[' and
// '{' is tried as the start of a JSON value until one yields segments.
func extractTranscriptSegments(text string) ([]transcriptSegment, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err != nil {
			continue
		}
		if segments, ok := findSegments(raw, 0); ok {
			return segments, nil
		}
	}
	return nil, fmt.Errorf("no transcript segments found in response")
}

// well-known wrapper keys are tried before the rest
var segmentKeys = []string{"segments", "transcript", "data"}

func findSegments(raw json.RawMessage, depth int) ([]transcriptSegment, bool) {
	if depth > 4 {
		return nil, false
	}

	var segments []transcriptSegment
	if err := json.Unmarshal(raw, &segments); err == nil {
		return segments, validateSegments(segments)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keyRank(keys[i]) < keyRank(keys[j]) ||
			(keyRank(keys[i]) == keyRank(keys[j]) && keys[i] < keys[j])
	})

	for _, k := range keys {
		if segments, ok := findSegments(obj[k], depth+1); ok {
			return segments, true
		}
	}
	return nil, false
}

func keyRank(k string) int {
	for i, known := range segmentKeys {
		if k == known {
			return i
		}
	}
	return len(segmentKeys)
}

// validateSegments reports whether at least one segment carries data.
func validateSegments(segments []transcriptSegment) bool {
	for _, s := range segments {
		if s.Text != "" || s.Start != 0 || s.End != 0 {
			return true
		}
	}
	return false
}

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	// remove ```json and ``` markers
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	s = strings.TrimSpace(s)

	return s
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (t *GeminiTranscriber) Close() error {
	return nil
}
