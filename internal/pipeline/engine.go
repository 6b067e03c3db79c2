package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mgpai22/sruti/internal/audio"
	"github.com/mgpai22/sruti/internal/config"
	"github.com/mgpai22/sruti/internal/logging"
	"github.com/mgpai22/sruti/internal/process"
	"github.com/mgpai22/sruti/internal/transcribe"
	"github.com/mgpai22/sruti/internal/whisper"
)

// Engine turns prepared audio into output files at job.Base.<ext>.
type Engine interface {
	Name() string
	// AudioOptions describes the audio the engine wants from ffmpeg.
	AudioOptions() audio.ResampleOptions
	Transcribe(ctx context.Context, job Job, staging *Staging, audioPath string) ([]string, error)
}

// WhisperEngine drives the whisper-cli binary.
type WhisperEngine struct {
	Binary string
	logger *logging.Logger
}

// NewWhisperEngine locates whisper-cli and checks that the model exists.
func NewWhisperEngine(cfg config.Config, logger *logging.Logger) (*WhisperEngine, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.Basic.Model == "" {
		return nil, fmt.Errorf("no model file set")
	}
	if _, err := os.Stat(cfg.Basic.Model); err != nil {
		return nil, fmt.Errorf("model file not found: %s", cfg.Basic.Model)
	}

	bin, err := whisper.Locate(cfg.Basic.WhisperBin)
	if err != nil {
		return nil, err
	}
	return &WhisperEngine{Binary: bin, logger: logger.Named("whisper")}, nil
}

func (e *WhisperEngine) Name() string { return config.EngineWhisperCPP }

func (e *WhisperEngine) AudioOptions() audio.ResampleOptions {
	return audio.DefaultResampleOptions()
}

func (e *WhisperEngine) Transcribe(ctx context.Context, job Job, staging *Staging, wavPath string) ([]string, error) {
	args, err := whisper.BuildArgs(whisper.NewRequest(job.Config, wavPath))
	if err != nil {
		return nil, err
	}

	cmd := process.Command{Path: e.Binary, Args: args, Dir: job.InputDir}
	e.logger.Infow("Running whisper", "command", cmd.String())

	if err := process.Run(ctx, cmd, toolSink(e.logger, "whisper")); err != nil {
		return nil, fmt.Errorf("whisper-cli failed: %w", err)
	}

	return whisper.RenameOutputs(wavPath, job.Base, job.Outputs, e.logger)
}

// RemoteEngine sends audio to a transcription API. Files larger than
// MaxUpload are cut into ChunkDuration pieces first when the transcriber
// supports chunked input.
type RemoteEngine struct {
	Provider      transcribe.Provider
	Transcriber   transcribe.Transcriber
	ChunkDuration time.Duration
	MaxUpload     int64
	Concurrency   int
	logger        *logging.Logger
}

func NewRemoteEngine(provider transcribe.Provider, t transcribe.Transcriber, logger *logging.Logger) *RemoteEngine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &RemoteEngine{
		Provider:      provider,
		Transcriber:   t,
		ChunkDuration: 10 * time.Minute,
		MaxUpload:     24 << 20,
		Concurrency:   3,
		logger:        logger.Named(string(provider)),
	}
}

func (e *RemoteEngine) Name() string { return string(e.Provider) }

func (e *RemoteEngine) AudioOptions() audio.ResampleOptions {
	return audio.CompressedOptions()
}

func (e *RemoteEngine) Transcribe(ctx context.Context, job Job, staging *Staging, audioPath string) ([]string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("prepared audio missing: %w", err)
	}

	var result *transcribe.Result
	ct, canChunk := e.Transcriber.(transcribe.ConcurrentTranscriber)
	if canChunk && e.ChunkDuration > 0 && info.Size() > e.MaxUpload {
		chunkDir := filepath.Join(staging.Dir, "chunks")
		chunks, err := audio.ChunkAudio(ctx, audioPath, e.ChunkDuration, chunkDir, e.Concurrency)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk audio: %w", err)
		}
		defer func() {
			if err := audio.CleanupChunks(chunks); err != nil {
				e.logger.Warnw("Failed to remove audio chunks", "error", err)
			}
		}()
		e.logger.Infow("Transcribing in chunks", "chunks", len(chunks), "provider", e.Provider)
		result, err = ct.TranscribeWithChunks(ctx, chunks, e.Concurrency)
		if err != nil {
			return nil, fmt.Errorf("transcription failed: %w", err)
		}
	} else {
		e.logger.Infow("Transcribing", "provider", e.Provider, "bytes", info.Size())
		result, err = e.Transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			return nil, fmt.Errorf("transcription failed: %w", err)
		}
	}

	e.logger.Infow("Transcription received", "segments", len(result.Segments))
	if len(job.Outputs) == 0 {
		for _, seg := range result.Segments {
			e.logger.Infow(seg.Text, "start", seg.StartTime, "end", seg.EndTime)
		}
		return nil, nil
	}

	return transcribe.WriteResult(result, job.Base, job.Outputs)
}

// toolSink logs each console line of an external tool.
func toolSink(logger *logging.Logger, tool string) process.LineSink {
	return func(line string) {
		if line == "" {
			return
		}
		logger.Infow(line, "tool", tool)
	}
}
