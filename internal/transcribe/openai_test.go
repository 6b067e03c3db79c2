package transcribe

import (
	"context"
	"testing"
	"time"
)

func TestParseVerboseJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback time.Duration
		want     []struct {
			start, end time.Duration
			text       string
		}
		wantErr bool
	}{
		{
			name: "segments",
			raw: `{"text": "Hello world. Goodbye.", "language": "en", "duration": 5.5,
				"segments": [
					{"start": 1.5, "end": 3.0, "text": "Hello world."},
					{"start": 3.0, "end": 5.5, "text": " Goodbye. "}
				]}`,
			fallback: 10 * time.Second,
			want: []struct {
				start, end time.Duration
				text       string
			}{
				{1500 * time.Millisecond, 3 * time.Second, "Hello world."},
				{3 * time.Second, 5500 * time.Millisecond, "Goodbye."},
			},
		},
		{
			name: "blank segments dropped",
			raw: `{"text": "Hello", "segments": [
				{"start": 0, "end": 0.5, "text": ""},
				{"start": 0.5, "end": 1.5, "text": "Hello"},
				{"start": 1.5, "end": 2, "text": "   "}
			]}`,
			want: []struct {
				start, end time.Duration
				text       string
			}{
				{500 * time.Millisecond, 1500 * time.Millisecond, "Hello"},
			},
		},
		{
			name:     "text only uses response duration",
			raw:      `{"text": "No segments here.", "duration": 10.5}`,
			fallback: 15 * time.Second,
			want: []struct {
				start, end time.Duration
				text       string
			}{
				{0, 10500 * time.Millisecond, "No segments here."},
			},
		},
		{
			name:     "null segments use fallback duration",
			raw:      `{"text": "Text only.", "segments": null}`,
			fallback: 4 * time.Second,
			want: []struct {
				start, end time.Duration
				text       string
			}{
				{0, 4 * time.Second, "Text only."},
			},
		},
		{name: "empty body", raw: "", wantErr: true},
		{name: "truncated", raw: `{"text": "incomplete`, wantErr: true},
		{name: "nothing transcribed", raw: `{"text": "", "segments": []}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, _, err := parseVerboseJSON(tt.raw, tt.fallback)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseVerboseJSON() = %v, want error", segments)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseVerboseJSON() error = %v", err)
			}
			if len(segments) != len(tt.want) {
				t.Fatalf("got %d segments, want %d", len(segments), len(tt.want))
			}
			for i, w := range tt.want {
				s := segments[i]
				if s.StartTime != w.start || s.EndTime != w.end || s.Text != w.text {
					t.Errorf("segment %d = %v-%v %q, want %v-%v %q",
						i, s.StartTime, s.EndTime, s.Text, w.start, w.end, w.text)
				}
			}
		})
	}
}

func TestParseVerboseJSONKeepsLanguage(t *testing.T) {
	_, resp, err := parseVerboseJSON(`{"task": "transcribe", "language": "german",
		"duration": 8.47, "text": "Hallo.", "segments": [
		{"id": 0, "seek": 0, "start": 0.0, "end": 3.32, "text": "Hallo.",
		 "tokens": [50364, 13], "temperature": 0.0, "avg_logprob": -0.28,
		 "compression_ratio": 1.23, "no_speech_prob": 0.009}]}`, 0)
	if err != nil {
		t.Fatalf("parseVerboseJSON() error = %v", err)
	}
	if resp.Language != "german" || resp.Duration != 8.47 {
		t.Errorf("response = %+v, want language and duration kept", resp)
	}
}

func TestOpenAIRouting(t *testing.T) {
	tests := []struct {
		model, transcriptLang string
		toEnglish, timed      bool
	}{
		{"whisper-1", "english", true, true},
		{"whisper-1", " EN ", true, true},
		{"whisper-1", "native", false, true},
		{"whisper-1", "", false, true},
		{"gpt-4o-transcribe", "", false, false},
		{"gpt-4o-mini-transcribe", "spanish", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.model+"/"+tt.transcriptLang, func(t *testing.T) {
			tr := &OpenAITranscriber{model: tt.model, options: Options{TranscriptLanguage: tt.transcriptLang}}
			if got := tr.toEnglish(); got != tt.toEnglish {
				t.Errorf("toEnglish() = %v, want %v", got, tt.toEnglish)
			}
			if got := tr.timed(); got != tt.timed {
				t.Errorf("timed() = %v, want %v", got, tt.timed)
			}
		})
	}
}

func TestNewOpenAITranscriber(t *testing.T) {
	if _, err := NewOpenAITranscriber(context.Background(), "", Options{}); err == nil {
		t.Error("expected error without API key")
	}

	tr, err := NewOpenAITranscriber(context.Background(), "fake-key", Options{})
	if err != nil {
		t.Fatalf("NewOpenAITranscriber() error = %v", err)
	}
	if tr.model != defaultOpenAIModel {
		t.Errorf("model = %q, want %q", tr.model, defaultOpenAIModel)
	}

	if _, err := tr.Transcribe(context.Background(), "/nonexistent/audio.mp3"); err == nil {
		t.Error("expected error for missing audio file")
	}
}

func TestFallbackSegment(t *testing.T) {
	if got := fallbackSegment("  ", time.Second); got != nil {
		t.Errorf("fallbackSegment(blank) = %v, want nil", got)
	}
	got := fallbackSegment(" hi ", 2*time.Second)
	if len(got) != 1 || got[0].Text != "hi" || got[0].EndTime != 2*time.Second {
		t.Errorf("fallbackSegment() = %+v", got)
	}
}
