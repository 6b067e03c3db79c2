package whisper

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/mgpai22/sruti/internal/config"
	"github.com/mgpai22/sruti/internal/logging"
)

const envWhisperPath = "SRUTI_WHISPER_PATH"

var ErrNotFound = errors.New("whisper-cli not found")

// Request is one whisper-cli invocation.
type Request struct {
	WavPath   string
	Model     string
	Language  string
	Translate bool
	Outputs   []string // txt, srt, vtt
	Others    string   // extra arguments, shell quoted
	Advanced  config.Advanced
}

// NewRequest builds a request from the basic and advanced options.
func NewRequest(cfg config.Config, wavPath string) Request {
	return Request{
		WavPath:   wavPath,
		Model:     cfg.Basic.Model,
		Language:  cfg.Basic.Language,
		Translate: cfg.Basic.Translate,
		Outputs:   cfg.Basic.Outputs(),
		Others:    cfg.Basic.Others,
		Advanced:  cfg.Advanced,
	}
}

// Locate finds the whisper-cli binary. Lookup order: override,
// SRUTI_WHISPER_PATH, ./whisper-cli, then $PATH.
func Locate(override string) (string, error) {
	name := "whisper-cli" + executableSuffix()

	for _, candidate := range []string{override, os.Getenv(envWhisperPath)} {
		if candidate == "" {
			continue
		}
		if !isFile(candidate) {
			return "", fmt.Errorf("%w at %s", ErrNotFound, candidate)
		}
		return candidate, nil
	}

	if isFile(name) {
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", err
		}
		return abs, nil
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: set --whisper-bin or %s", ErrNotFound, envWhisperPath)
}

// BuildArgs renders the whisper-cli argument list, binary excluded.
func BuildArgs(req Request) ([]string, error) {
	if req.WavPath == "" {
		return nil, errors.New("no input audio")
	}
	if req.Model == "" {
		return nil, errors.New("no model file")
	}

	lang := req.Language
	if lang == "" {
		lang = "en"
	}

	args := []string{"-f", req.WavPath, "-m", req.Model, "-l", lang}
	if req.Translate {
		args = append(args, "--translate")
	}
	for _, ext := range req.Outputs {
		switch ext {
		case "txt", "srt", "vtt":
			args = append(args, "--output-"+ext)
		default:
			return nil, fmt.Errorf("unsupported output format %q", ext)
		}
	}

	others, err := shlex.Split(req.Others)
	if err != nil {
		return nil, fmt.Errorf("invalid extra arguments %q: %w", req.Others, err)
	}
	args = append(args, others...)

	for _, opt := range advancedOptions(req.Advanced) {
		args = append(args, opt.render()...)
	}

	return args, nil
}

// option is one advanced flag; value is nil for a switch.
type option struct {
	key   string
	value *string
	on    bool
}

func (o option) render() []string {
	flag := "--" + strings.ReplaceAll(o.key, "_", "-")
	if o.value == nil {
		if o.on {
			return []string{flag}
		}
		return nil
	}
	return []string{flag, *o.value}
}

func intOpt(key string, v *int) option {
	if v == nil {
		return option{key: key}
	}
	s := strconv.Itoa(*v)
	return option{key: key, value: &s}
}

func floatOpt(key string, v *float64) option {
	if v == nil {
		return option{key: key}
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	return option{key: key, value: &s}
}

func strOpt(key, v string) option {
	if v == "" {
		return option{key: key}
	}
	return option{key: key, value: &v}
}

func boolOpt(key string, v bool) option {
	return option{key: key, on: v}
}

// advancedOptions lists the advanced flags in the order whisper-cli
// documents them.
func advancedOptions(a config.Advanced) []option {
	threads, processors := a.Threads, a.Processors
	return []option{
		intOpt("threads", &threads),
		intOpt("processors", &processors),
		intOpt("offset_t", a.OffsetT),
		intOpt("offset_n", a.OffsetN),
		intOpt("duration", a.Duration),
		intOpt("max_context", a.MaxContext),
		intOpt("max_len", a.MaxLen),
		boolOpt("split_on_word", a.SplitOnWord),
		intOpt("best_of", a.BestOf),
		intOpt("beam_size", a.BeamSize),
		intOpt("audio_ctx", a.AudioCtx),
		floatOpt("word_thold", a.WordThold),
		floatOpt("entropy_thold", a.EntropyThold),
		floatOpt("logprob_thold", a.LogprobThold),
		floatOpt("temperature", a.Temperature),
		floatOpt("temperature_inc", a.TemperatureInc),
		boolOpt("debug_mode", a.DebugMode),
		boolOpt("diarize", a.Diarize),
		boolOpt("tinydiarize", a.Tinydiarize),
		boolOpt("no_fallback", a.NoFallback),
		boolOpt("output_lrc", a.OutputLRC),
		boolOpt("output_words", a.OutputWords),
		strOpt("font_path", a.FontPath),
		boolOpt("output_csv", a.OutputCSV),
		boolOpt("output_json", a.OutputJSON),
		boolOpt("output_json_full", a.OutputJSONFull),
		strOpt("output_file", a.OutputFile),
		boolOpt("no_prints", a.NoPrints),
		boolOpt("print_special", a.PrintSpecial),
		boolOpt("print_colors", a.PrintColors),
		boolOpt("print_progress", a.PrintProgress),
		boolOpt("no_timestamps", a.NoTimestamps),
		boolOpt("detect_language", a.DetectLanguage),
		strOpt("prompt", a.Prompt),
		strOpt("ov_e_device", a.OVEDevice),
		strOpt("dtw", a.DTW),
		boolOpt("log_score", a.LogScore),
		boolOpt("no_gpu", a.NoGPU),
		boolOpt("flash_attn", a.FlashAttn),
		strOpt("suppress_regex", a.SuppressRegex),
		strOpt("grammar", a.Grammar),
		strOpt("grammar_rule", a.GrammarRule),
		floatOpt("grammar_penalty", a.GrammarPenalty),
	}
}

// OutputPath is where whisper-cli writes the ext output for wavPath:
// the full WAV file name with the extension appended.
func OutputPath(wavPath, ext string) string {
	return wavPath + "." + ext
}

// RenameOutputs moves each whisper output for wavPath to base.<ext>.
// A missing output is logged and skipped. Returns the paths produced.
func RenameOutputs(wavPath, base string, exts []string, logger *logging.Logger) ([]string, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	var produced []string
	for _, ext := range exts {
		src := OutputPath(wavPath, ext)
		dst := base + "." + ext

		if !isFile(src) {
			logger.Warnw("output file not found", "format", strings.ToUpper(ext), "path", src)
			continue
		}
		if err := moveFile(src, dst); err != nil {
			return produced, fmt.Errorf("failed to rename %s output: %w", ext, err)
		}
		logger.Infow("renamed output", "format", strings.ToUpper(ext), "from", src, "to", dst)
		produced = append(produced, dst)
	}
	return produced, nil
}

// moveFile renames src to dst, copying when they live on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
