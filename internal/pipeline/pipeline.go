package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mgpai22/sruti/internal/audio"
	"github.com/mgpai22/sruti/internal/config"
	"github.com/mgpai22/sruti/internal/logging"
	"github.com/mgpai22/sruti/internal/subtitle"
	"github.com/mgpai22/sruti/internal/translate"
)

// Result summarises a finished run.
type Result struct {
	Outputs    []string
	Rescaled   string // SRT rewritten for the speed-up, if any
	Translated string // translated subtitle, if any
	Elapsed    time.Duration
}

// Pipeline runs resample, transcribe, rename, rescale and an optional
// translation for one input file.
type Pipeline struct {
	engine      Engine
	outputDir   string
	translator  translate.Translator
	translateTo string
	concurrency int
	logger      *logging.Logger
}

type Option func(*Pipeline)

// WithOutputDir writes outputs to dir instead of next to the input.
func WithOutputDir(dir string) Option {
	return func(p *Pipeline) { p.outputDir = dir }
}

// WithTranslation translates the finished subtitle into lang.
func WithTranslation(t translate.Translator, lang string, concurrency int) Option {
	return func(p *Pipeline) {
		p.translator = t
		p.translateTo = lang
		p.concurrency = concurrency
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func New(engine Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:      engine,
		concurrency: 3,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the job. The staging directory holding intermediate audio
// is removed on every return path, including cancellation.
func (p *Pipeline) Run(ctx context.Context, cfg config.Config) (res *Result, err error) {
	start := time.Now()

	job, err := NewJob(cfg, p.outputDir)
	if err != nil {
		return nil, err
	}

	logger := p.logger.With("input", filepath.Base(job.Input), "engine", p.engine.Name())
	if len(job.Outputs) == 0 {
		logger.Warnw("No output format selected, transcript is only logged")
	}

	staging, err := NewStaging(filepath.Dir(job.Base))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := staging.Close(); cerr != nil {
			logger.Warnw("Failed to remove staging dir", "dir", staging.Dir, "error", cerr)
		} else {
			logger.Debugw("Temporary audio removed", "dir", staging.Dir)
		}
	}()

	speedUp, scaled := job.SpeedUp()

	opts := p.engine.AudioOptions()
	opts.Tempo = speedUp
	opts.FFmpegPath = cfg.Basic.FFmpegBin
	audioPath := staging.Path(job.Name() + "." + opts.Format)

	logger.Infow("Converting audio", "speed_up", speedUp, "format", opts.Format)
	if err := audio.Resample(ctx, job.Input, audioPath, opts, toolSink(logger, "ffmpeg")); err != nil {
		return nil, cancelled(ctx, err)
	}

	outputs, err := p.engine.Transcribe(ctx, job, staging, audioPath)
	if err != nil {
		return nil, cancelled(ctx, err)
	}
	res = &Result{Outputs: outputs}

	srtPath := job.Base + ".srt"
	if scaled {
		logger.Infow("Adjusting SRT timestamps for speed-up", "factor", speedUp)
		if _, statErr := os.Stat(srtPath); statErr != nil {
			logger.Warnw("No SRT file found to adjust", "path", srtPath)
		} else {
			if err := subtitle.RescaleFile(srtPath, speedUp); err != nil {
				return res, fmt.Errorf("failed to rescale subtitles: %w", err)
			}
			res.Rescaled = srtPath
			logger.Infow("Adjusted SRT file saved", "path", srtPath)
		}
	}

	if p.translator != nil {
		src := firstSubtitle(res.Outputs)
		if src == "" {
			logger.Warnw("No SRT or VTT output to translate", "target_language", p.translateTo)
		} else {
			dst := translate.OutputPath(src, p.translateTo, false)
			if _, err := translate.TranslateFile(ctx, p.translator, src, dst,
				translate.FileOptions{Concurrency: p.concurrency}, logger); err != nil {
				return res, cancelled(ctx, err)
			}
			res.Translated = dst
		}
	}

	res.Elapsed = time.Since(start)
	logger.Infow("Done", "outputs", len(res.Outputs), "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// firstSubtitle picks the SRT output, or VTT when there is no SRT.
func firstSubtitle(paths []string) string {
	var vtt string
	for _, p := range paths {
		switch format, _ := subtitle.GetFormatFromExtension(p); format {
		case subtitle.FormatSRT:
			return p
		case subtitle.FormatVTT:
			if vtt == "" {
				vtt = p
			}
		}
	}
	return vtt
}

// cancelled reports a context cancellation as such rather than as the
// tool failure it caused.
func cancelled(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
