package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestParseSRTFile(t *testing.T) {
	content := "\ufeff" + `1
00:00:01,000 --> 00:00:04,000
Hello, world!

2
00:00:05,500 --> 00:00:08,200
This is a test.
With multiple lines.

3
00:00:10,000 --> 00:00:12,500
Final subtitle.
`
	file, err := Open(writeTemp(t, "test.srt", content))
	if err != nil {
		t.Fatalf("failed to open SRT file: %v", err)
	}

	if file.Format() != FormatSRT {
		t.Errorf("expected format SRT, got %s", file.Format())
	}

	sub := file.Subtitle()
	if len(sub.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(sub.Entries))
	}

	if sub.Entries[0].StartTime != 1*time.Second {
		t.Errorf("entry 0: expected start 1s, got %v", sub.Entries[0].StartTime)
	}
	if sub.Entries[0].EndTime != 4*time.Second {
		t.Errorf("entry 0: expected end 4s, got %v", sub.Entries[0].EndTime)
	}
	if sub.Entries[0].Text != "Hello, world!" {
		t.Errorf("entry 0: expected 'Hello, world!', got %q", sub.Entries[0].Text)
	}

	expectedText := "This is a test.\nWith multiple lines."
	if sub.Entries[1].Text != expectedText {
		t.Errorf("entry 1: expected %q, got %q", expectedText, sub.Entries[1].Text)
	}
	if sub.Entries[2].Index != 3 {
		t.Errorf("entry 2: expected index 3, got %d", sub.Entries[2].Index)
	}

	if err := file.SetText(0, "Modified text"); err != nil {
		t.Errorf("SetText failed: %v", err)
	}
	if file.Subtitle().Entries[0].Text != "Modified text" {
		t.Errorf("SetText did not update text")
	}
	if err := file.SetText(3, "out of range"); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestParseVTTFile(t *testing.T) {
	content := `WEBVTT

NOTE this block
spans two lines

1
00:00:01.000 --> 00:00:04.000
Hello, world!

2
00:00:05.500 --> 00:00:08.200 align:start
This is a test.
With multiple lines.

01:10.000 --> 01:12.500
No cue identifier, no hours.
`
	file, err := Open(writeTemp(t, "test.vtt", content))
	if err != nil {
		t.Fatalf("failed to open VTT file: %v", err)
	}

	if file.Format() != FormatVTT {
		t.Errorf("expected format VTT, got %s", file.Format())
	}

	sub := file.Subtitle()
	if len(sub.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(sub.Entries))
	}

	if sub.Entries[0].StartTime != 1*time.Second {
		t.Errorf("entry 0: expected start 1s, got %v", sub.Entries[0].StartTime)
	}
	if sub.Entries[1].EndTime != 8200*time.Millisecond {
		t.Errorf("entry 1: expected end 8.2s, got %v", sub.Entries[1].EndTime)
	}
	if sub.Entries[2].StartTime != 70*time.Second {
		t.Errorf("entry 2: expected start 1m10s, got %v", sub.Entries[2].StartTime)
	}
	if sub.Entries[2].Text != "No cue identifier, no hours." {
		t.Errorf("entry 2: unexpected text %q", sub.Entries[2].Text)
	}
}

func TestOpenUnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "test.ass", "[Script Info]\n")
	if _, err := Open(path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestWriters(t *testing.T) {
	sub := FromSegments([]Segment{
		{StartTime: 0, EndTime: 1500 * time.Millisecond, Text: "Hello"},
		{StartTime: 2 * time.Second, EndTime: 3 * time.Second, Text: ""},
		{StartTime: time.Hour + 2*time.Second, EndTime: time.Hour + 4*time.Second, Text: "two\nlines"},
	})
	if len(sub.Entries) != 2 {
		t.Fatalf("FromSegments kept %d entries, want 2", len(sub.Entries))
	}

	tests := []struct {
		format Format
		want   string
	}{
		{
			FormatSRT,
			"1\n00:00:00,000 --> 00:00:01,500\nHello\n\n2\n01:00:02,000 --> 01:00:04,000\ntwo\nlines\n\n",
		},
		{
			FormatVTT,
			"WEBVTT\n\n00:00:00.000 --> 00:00:01.500\nHello\n\n01:00:02.000 --> 01:00:04.000\ntwo\nlines\n\n",
		},
		{
			FormatTXT,
			"Hello\ntwo lines\n",
		},
	}

	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			writer, err := NewWriter(tt.format)
			if err != nil {
				t.Fatalf("NewWriter(%s) failed: %v", tt.format, err)
			}
			path := filepath.Join(dir, "nested", "out"+GetExtensionForFormat(tt.format))
			if err := writer.Write(sub, path); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read output: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("output = %q, want %q", string(data), tt.want)
			}
			if got, ok := GetFormatFromExtension(path); !ok || got != tt.format {
				t.Errorf("GetFormatFromExtension(%q) = %s, %v", path, got, ok)
			}
		})
	}
}

func TestSRTRoundTripThenRescale(t *testing.T) {
	path := writeTemp(t, "talk.srt", "1\n00:00:01,000 --> 00:00:02,000\nHi\n")

	file, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := file.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := RescaleFile(path, 1.5); err != nil {
		t.Fatalf("RescaleFile failed: %v", err)
	}

	file, err = Open(path)
	if err != nil {
		t.Fatalf("Open after rescale failed: %v", err)
	}
	entry := file.Subtitle().Entries[0]
	if entry.StartTime != 1500*time.Millisecond || entry.EndTime != 3*time.Second {
		t.Errorf("rescaled entry = %v --> %v, want 1.5s --> 3s", entry.StartTime, entry.EndTime)
	}
	if !strings.Contains(entry.Text, "Hi") {
		t.Errorf("text lost after rescale: %q", entry.Text)
	}
}

func TestGetFormatFromExtensionUnknown(t *testing.T) {
	for _, path := range []string{"talk.ass", "talk.json", "talk"} {
		if f, ok := GetFormatFromExtension(path); ok {
			t.Errorf("GetFormatFromExtension(%q) = %s, want not ok", path, f)
		}
	}
	if f, ok := GetFormatFromExtension("TALK.SRT"); !ok || f != FormatSRT {
		t.Errorf("extension match should ignore case, got %s", f)
	}
}

func TestOpenRejectsTXT(t *testing.T) {
	if _, err := Open(writeTemp(t, "talk.txt", "hello\n")); err == nil {
		t.Error("expected error for a plain text transcript")
	}
}
