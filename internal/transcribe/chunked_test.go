package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mgpai22/sruti/internal/audio"
	"github.com/mgpai22/sruti/internal/subtitle"
)

// answers every chunk with one segment spanning its first second
type fakeTranscriber struct {
	failOn string
	calls  atomic.Int32
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	f.calls.Add(1)
	if audioPath == f.failOn {
		return nil, errors.New("boom")
	}
	return &Result{Segments: []subtitle.Segment{
		{StartTime: 0, EndTime: time.Second, Text: audioPath},
	}}, nil
}

func testChunks(n int) []audio.ChunkInfo {
	chunks, _ := audio.PlanChunks(time.Duration(n)*time.Minute, time.Minute)
	for i := range chunks {
		chunks[i].Path = filepath.Join("chunks", string(rune('a'+i))+".mp3")
	}
	return chunks
}

func TestTranscribeChunksMergesInOrder(t *testing.T) {
	chunks := testChunks(5)
	fake := &fakeTranscriber{}

	result, err := transcribeChunks(context.Background(), fake, chunks, 3, "de")
	if err != nil {
		t.Fatalf("transcribeChunks() error = %v", err)
	}

	if len(result.Segments) != len(chunks) {
		t.Fatalf("got %d segments, want %d", len(result.Segments), len(chunks))
	}
	for i, seg := range result.Segments {
		if seg.Text != chunks[i].Path {
			t.Errorf("segment %d text = %q, want %q", i, seg.Text, chunks[i].Path)
		}
		if seg.StartTime != chunks[i].StartTime {
			t.Errorf("segment %d start = %v, want %v", i, seg.StartTime, chunks[i].StartTime)
		}
	}
	if result.Duration != 5*time.Minute {
		t.Errorf("Duration = %v, want 5m", result.Duration)
	}
	if result.Language != "de" {
		t.Errorf("Language = %q, want de", result.Language)
	}
}

func TestTranscribeChunksFailure(t *testing.T) {
	chunks := testChunks(4)
	fake := &fakeTranscriber{failOn: chunks[1].Path}

	_, err := transcribeChunks(context.Background(), fake, chunks, 1, "")
	if err == nil {
		t.Fatal("expected error from failing chunk")
	}
	if got := fake.calls.Load(); got > 3 {
		t.Errorf("expected remaining chunks to be cancelled, got %d calls", got)
	}
}

func TestTranscribeChunksEmpty(t *testing.T) {
	result, err := transcribeChunks(context.Background(), &fakeTranscriber{}, nil, 2, "")
	if err != nil || len(result.Segments) != 0 {
		t.Errorf("transcribeChunks(nil) = %+v, %v", result, err)
	}
}

func TestTranscribeChunksCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := transcribeChunks(ctx, &fakeTranscriber{}, testChunks(3), 2, ""); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestWriteResult(t *testing.T) {
	result := &Result{Segments: []subtitle.Segment{
		{StartTime: 0, EndTime: 1500 * time.Millisecond, Text: "Hallo"},
		{StartTime: 2 * time.Second, EndTime: 3 * time.Second, Text: "Welt"},
	}}

	base := filepath.Join(t.TempDir(), "talk")
	written, err := WriteResult(result, base, []string{"srt", "txt"})
	if err != nil {
		t.Fatalf("WriteResult() error = %v", err)
	}
	if len(written) != 2 || written[0] != base+".srt" || written[1] != base+".txt" {
		t.Fatalf("written = %v", written)
	}

	srt, err := os.ReadFile(base + ".srt")
	if err != nil {
		t.Fatalf("failed to read srt: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\nHallo\n\n2\n00:00:02,000 --> 00:00:03,000\nWelt\n\n"
	if string(srt) != want {
		t.Errorf("srt = %q, want %q", srt, want)
	}

	if _, err := WriteResult(result, base, []string{"lrc"}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	tr, err := Factory(ctx, Provider("OpenAI"), "fake-key", Options{Model: "gpt-4o-transcribe"})
	if err != nil {
		t.Fatalf("Factory(openai) error = %v", err)
	}
	if _, ok := tr.(ConcurrentTranscriber); !ok {
		t.Errorf("%T should implement ConcurrentTranscriber", tr)
	}

	if _, err := Factory(ctx, Provider("whisper"), "fake-key", Options{}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := Factory(ctx, ProviderGemini, "", Options{}); err == nil {
		t.Error("expected error without API key")
	}
}
