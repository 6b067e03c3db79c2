package whisper

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mgpai22/sruti/internal/config"
)

func baseRequest() Request {
	return Request{
		WavPath:  "/tmp/talk.wav",
		Model:    "/models/ggml-base.bin",
		Language: "de",
		Advanced: config.Advanced{Threads: 4, Processors: 1},
	}
}

func TestBuildArgsBasic(t *testing.T) {
	req := baseRequest()
	req.Translate = true
	req.Outputs = []string{"txt", "vtt"}

	got, err := BuildArgs(req)
	if err != nil {
		t.Fatalf("BuildArgs() error = %v", err)
	}
	want := []string{
		"-f", "/tmp/talk.wav", "-m", "/models/ggml-base.bin", "-l", "de",
		"--translate", "--output-txt", "--output-vtt",
		"--threads", "4", "--processors", "1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs() =\n %q\nwant\n %q", got, want)
	}
}

func TestBuildArgsOthersAndAdvanced(t *testing.T) {
	req := baseRequest()
	req.Outputs = []string{"srt"}
	req.Others = `--prompt "hello world" -bs 2`
	req.Advanced.OffsetT = config.Int(0)
	req.Advanced.MaxContext = config.Int(-1)
	req.Advanced.Temperature = config.Float(0.2)
	req.Advanced.GrammarPenalty = config.Float(100)
	req.Advanced.SplitOnWord = true
	req.Advanced.NoGPU = false
	req.Advanced.FontPath = "/fonts/Courier New.ttf"
	req.Advanced.OVEDevice = "CPU"

	got, err := BuildArgs(req)
	if err != nil {
		t.Fatalf("BuildArgs() error = %v", err)
	}
	want := []string{
		"-f", "/tmp/talk.wav", "-m", "/models/ggml-base.bin", "-l", "de",
		"--output-srt",
		"--prompt", "hello world", "-bs", "2",
		"--threads", "4", "--processors", "1",
		"--offset-t", "0",
		"--max-context", "-1",
		"--split-on-word",
		"--temperature", "0.2",
		"--font-path", "/fonts/Courier New.ttf",
		"--ov-e-device", "CPU",
		"--grammar-penalty", "100",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs() =\n %q\nwant\n %q", got, want)
	}
}

func TestBuildArgsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Basic.Model = "m.bin"
	cfg.Basic.OutputTXT = true
	cfg.Basic.OutputVTT = true
	cfg.Basic.SpeedUp = 2

	got, err := BuildArgs(NewRequest(cfg, "a.wav"))
	if err != nil {
		t.Fatalf("BuildArgs() error = %v", err)
	}
	joined := strings.Join(got, " ")
	if !strings.Contains(joined, "--output-srt") {
		t.Errorf("speed-up should force srt output: %q", joined)
	}
	if strings.Contains(joined, "--output-txt") || strings.Contains(joined, "--output-vtt") {
		t.Errorf("speed-up should drop txt and vtt: %q", joined)
	}
}

func TestBuildArgsErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Request)
	}{
		{"no wav", func(r *Request) { r.WavPath = "" }},
		{"no model", func(r *Request) { r.Model = "" }},
		{"bad output", func(r *Request) { r.Outputs = []string{"lrc"} }},
		{"unbalanced quote", func(r *Request) { r.Others = `--prompt "oops` }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.modify(&req)
			if _, err := BuildArgs(req); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "whisper-cli")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("failed to write fake binary: %v", err)
	}

	got, err := Locate(bin)
	if err != nil || got != bin {
		t.Errorf("Locate(override) = %q, %v", got, err)
	}

	t.Setenv(envWhisperPath, bin)
	got, err = Locate("")
	if err != nil || got != bin {
		t.Errorf("Locate(env) = %q, %v", got, err)
	}

	_, err = Locate(filepath.Join(dir, "missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Locate(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRenameOutputs(t *testing.T) {
	stage := t.TempDir()
	outDir := t.TempDir()
	wav := filepath.Join(stage, "talk.wav")

	for _, ext := range []string{"txt", "srt"} {
		if err := os.WriteFile(OutputPath(wav, ext), []byte(ext), 0644); err != nil {
			t.Fatalf("failed to write output: %v", err)
		}
	}

	base := filepath.Join(outDir, "talk")
	produced, err := RenameOutputs(wav, base, []string{"txt", "srt", "vtt"}, nil)
	if err != nil {
		t.Fatalf("RenameOutputs() error = %v", err)
	}

	want := []string{base + ".txt", base + ".srt"}
	if !reflect.DeepEqual(produced, want) {
		t.Errorf("produced = %v, want %v", produced, want)
	}
	for _, p := range want {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("missing %s: %v", p, err)
			continue
		}
		if string(data) != strings.TrimPrefix(filepath.Ext(p), ".") {
			t.Errorf("%s has content %q", p, data)
		}
	}
	if _, err := os.Stat(OutputPath(wav, "txt")); !os.IsNotExist(err) {
		t.Error("source output should be gone after rename")
	}
}
