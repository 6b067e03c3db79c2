package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/sruti/internal/config"
)

// Job is one transcription run, fixed when it starts.
type Job struct {
	Config   config.Config
	Input    string   // absolute path of the media file
	InputDir string   // whisper-cli runs here
	Base     string   // output path without extension
	Outputs  []string // requested extensions
}

// NewJob validates cfg and derives the job paths. Outputs go next to the
// input unless outputDir is set.
func NewJob(cfg config.Config, outputDir string) (Job, error) {
	if err := cfg.Validate(); err != nil {
		return Job{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Basic.File == "" {
		return Job{}, errors.New("no input file")
	}

	input, err := filepath.Abs(cfg.Basic.File)
	if err != nil {
		return Job{}, fmt.Errorf("failed to resolve input path: %w", err)
	}
	info, err := os.Stat(input)
	if err != nil {
		return Job{}, fmt.Errorf("input file not found: %s", input)
	}
	if info.IsDir() {
		return Job{}, fmt.Errorf("input is a directory: %s", input)
	}

	inputDir := filepath.Dir(input)
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	dir := inputDir
	if outputDir != "" {
		if dir, err = filepath.Abs(outputDir); err != nil {
			return Job{}, fmt.Errorf("failed to resolve output dir: %w", err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Job{}, fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	return Job{
		Config:   cfg,
		Input:    input,
		InputDir: inputDir,
		Base:     filepath.Join(dir, name),
		Outputs:  cfg.Basic.Outputs(),
	}, nil
}

// Name is the input's file name without extension.
func (j Job) Name() string {
	return filepath.Base(j.Base)
}

// SpeedUp reports the tempo factor and whether it changes anything.
func (j Job) SpeedUp() (float64, bool) {
	f := j.Config.Basic.SpeedUp
	return f, f != 1.0
}

// Staging is a scratch directory for intermediate audio. Close removes it
// and everything in it.
type Staging struct {
	Dir string
}

// NewStaging creates the scratch directory next to the outputs so that
// moving results out of it is a plain rename, falling back to the system
// temp dir when that location is not writable.
func NewStaging(near string) (*Staging, error) {
	dir, err := os.MkdirTemp(near, ".sruti-")
	if err != nil {
		dir, err = os.MkdirTemp("", "sruti-")
		if err != nil {
			return nil, fmt.Errorf("failed to create staging dir: %w", err)
		}
	}
	return &Staging{Dir: dir}, nil
}

// Path returns name inside the staging directory.
func (s *Staging) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

func (s *Staging) Close() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	return os.RemoveAll(s.Dir)
}
