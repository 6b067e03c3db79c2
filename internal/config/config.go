package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything a transcription job needs. It is loaded once and
// then passed around by value.
type Config struct {
	Basic    Basic    `yaml:"basic"`
	Advanced Advanced `yaml:"advanced"`
}

// Basic holds the options shown on the main form.
type Basic struct {
	File       string  `yaml:"file"`
	Model      string  `yaml:"model"`
	Language   string  `yaml:"language"`
	Translate  bool    `yaml:"translate"` // whisper.cpp translation to English
	OutputTXT  bool    `yaml:"output_txt"`
	OutputSRT  bool    `yaml:"output_srt"`
	OutputVTT  bool    `yaml:"output_vtt"`
	SpeedUp    float64 `yaml:"speed_up"`
	Others     string  `yaml:"others"` // extra whisper-cli arguments, shell quoted
	Engine     string  `yaml:"engine"` // whisper-cpp, openai or gemini
	WhisperBin string  `yaml:"whisper_bin"`
	FFmpegBin  string  `yaml:"ffmpeg_bin"`
	LogLevel   string  `yaml:"log_level"`
}

// Advanced mirrors the whisper-cli flags. Pointer fields are optional: nil
// leaves the flag off and whisper-cli uses its own default.
type Advanced struct {
	Threads    int `yaml:"threads"`
	Processors int `yaml:"processors"`

	OffsetT        *int     `yaml:"offset_t,omitempty"`
	OffsetN        *int     `yaml:"offset_n,omitempty"`
	Duration       *int     `yaml:"duration,omitempty"`
	MaxContext     *int     `yaml:"max_context,omitempty"`
	MaxLen         *int     `yaml:"max_len,omitempty"`
	BestOf         *int     `yaml:"best_of,omitempty"`
	BeamSize       *int     `yaml:"beam_size,omitempty"`
	AudioCtx       *int     `yaml:"audio_ctx,omitempty"`
	WordThold      *float64 `yaml:"word_thold,omitempty"`
	EntropyThold   *float64 `yaml:"entropy_thold,omitempty"`
	LogprobThold   *float64 `yaml:"logprob_thold,omitempty"`
	Temperature    *float64 `yaml:"temperature,omitempty"`
	TemperatureInc *float64 `yaml:"temperature_inc,omitempty"`
	GrammarPenalty *float64 `yaml:"grammar_penalty,omitempty"`

	SplitOnWord    bool `yaml:"split_on_word"`
	DebugMode      bool `yaml:"debug_mode"`
	Diarize        bool `yaml:"diarize"`
	Tinydiarize    bool `yaml:"tinydiarize"`
	NoFallback     bool `yaml:"no_fallback"`
	OutputLRC      bool `yaml:"output_lrc"`
	OutputWords    bool `yaml:"output_words"`
	OutputCSV      bool `yaml:"output_csv"`
	OutputJSON     bool `yaml:"output_json"`
	OutputJSONFull bool `yaml:"output_json_full"`
	NoPrints       bool `yaml:"no_prints"`
	PrintSpecial   bool `yaml:"print_special"`
	PrintColors    bool `yaml:"print_colors"`
	PrintProgress  bool `yaml:"print_progress"`
	NoTimestamps   bool `yaml:"no_timestamps"`
	DetectLanguage bool `yaml:"detect_language"`
	LogScore       bool `yaml:"log_score"`
	NoGPU          bool `yaml:"no_gpu"`
	FlashAttn      bool `yaml:"flash_attn"`

	FontPath      string `yaml:"font_path"`
	OutputFile    string `yaml:"output_file"`
	Prompt        string `yaml:"prompt"`
	OVEDevice     string `yaml:"ov_e_device"`
	DTW           string `yaml:"dtw"`
	SuppressRegex string `yaml:"suppress_regex"`
	Grammar       string `yaml:"grammar"`
	GrammarRule   string `yaml:"grammar_rule"`
}

const (
	EngineWhisperCPP = "whisper-cpp"
	EngineOpenAI     = "openai"
	EngineGemini     = "gemini"

	MinSpeedUp = 0.1
	MaxSpeedUp = 10.0
)

// Languages accepted by whisper.cpp's -l flag, in the order whisper lists them.
var Languages = []string{
	"en", "zh", "de", "es", "ru", "ko", "fr", "ja", "pt", "tr", "pl", "ca", "nl",
	"ar", "sv", "it", "id", "hi", "fi", "vi", "iw", "uk", "el", "ms", "cs", "ro",
	"da", "hu", "ta", "no", "th", "ur", "hr", "bg", "lt", "la", "mi", "ml", "cy",
	"sk", "te", "fa", "lv", "bn", "sr", "az", "sl", "kn", "et", "mk", "br", "eu",
	"is", "hy", "ne", "mn", "bs", "kk", "sq", "sw", "gl", "mr", "pa", "si", "km",
	"sn", "yo", "so", "af", "oc", "ka", "be", "tg", "sd", "gu", "am", "yi", "lo",
	"uz", "fo", "ht", "ps", "tk", "nn", "mt", "sa", "lb", "my", "bo", "tl", "mg",
	"as", "tt", "haw", "ln", "ha", "ba", "jw", "su",
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "sruti")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with the same defaults whisper-cli uses.
func Default() Config {
	return Config{
		Basic: Basic{
			Language: "en",
			SpeedUp:  1.0,
			Engine:   EngineWhisperCPP,
			LogLevel: "info",
		},
		Advanced: Advanced{
			Threads:    4,
			Processors: 1,
			OVEDevice:  "CPU",
		},
	}
}

// Load reads a YAML config file on top of the defaults. Tilde (~) in file
// paths is expanded to the user's home directory.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Basic.File = expandTilde(cfg.Basic.File)
	cfg.Basic.Model = expandTilde(cfg.Basic.Model)
	cfg.Basic.WhisperBin = expandTilde(cfg.Basic.WhisperBin)
	cfg.Basic.FFmpegBin = expandTilde(cfg.Basic.FFmpegBin)
	cfg.Advanced.FontPath = expandTilde(cfg.Advanced.FontPath)

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when the file
// does not exist.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes the config as YAML, creating the parent directory. The file
// is written to a temp file and renamed so a crash never leaves it truncated.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// Validate checks the config for invalid values. It does not touch the
// file system; input and model existence are checked when a job starts.
func (c Config) Validate() error {
	b := c.Basic

	if math.IsNaN(b.SpeedUp) || b.SpeedUp < MinSpeedUp || b.SpeedUp > MaxSpeedUp {
		return fmt.Errorf("speed_up must be between %.1f and %.1f, got %v", MinSpeedUp, MaxSpeedUp, b.SpeedUp)
	}

	if b.Language != "auto" && !slices.Contains(Languages, b.Language) {
		return fmt.Errorf("unsupported language %q", b.Language)
	}

	switch b.Engine {
	case EngineWhisperCPP, EngineOpenAI, EngineGemini:
	default:
		return fmt.Errorf("engine must be %s, %s, or %s, got %q", EngineWhisperCPP, EngineOpenAI, EngineGemini, b.Engine)
	}

	switch strings.ToLower(b.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", b.LogLevel)
	}

	a := c.Advanced
	if a.Threads < 1 || a.Threads > 64 {
		return fmt.Errorf("threads must be between 1 and 64, got %d", a.Threads)
	}
	if a.Processors < 1 || a.Processors > 64 {
		return fmt.Errorf("processors must be between 1 and 64, got %d", a.Processors)
	}
	if a.BestOf != nil && (*a.BestOf < 1 || *a.BestOf > 10) {
		return fmt.Errorf("best_of must be between 1 and 10, got %d", *a.BestOf)
	}
	if a.BeamSize != nil && (*a.BeamSize < 1 || *a.BeamSize > 10) {
		return fmt.Errorf("beam_size must be between 1 and 10, got %d", *a.BeamSize)
	}
	if a.MaxContext != nil && *a.MaxContext < -1 {
		return fmt.Errorf("max_context must be >= -1, got %d", *a.MaxContext)
	}
	for name, v := range map[string]*int{
		"offset_t":  a.OffsetT,
		"offset_n":  a.OffsetN,
		"duration":  a.Duration,
		"max_len":   a.MaxLen,
		"audio_ctx": a.AudioCtx,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", name, *v)
		}
	}
	for name, v := range map[string]*float64{
		"word_thold":      a.WordThold,
		"temperature":     a.Temperature,
		"temperature_inc": a.TemperatureInc,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, *v)
		}
	}

	return nil
}

// Outputs returns the whisper output extensions the user asked for.
// A speed-up other than 1.0 always produces SRT only, since that is the
// only format whose timecodes get rescaled.
func (b Basic) Outputs() []string {
	if b.SpeedUp != 1.0 {
		return []string{"srt"}
	}
	var outs []string
	if b.OutputTXT {
		outs = append(outs, "txt")
	}
	if b.OutputSRT {
		outs = append(outs, "srt")
	}
	if b.OutputVTT {
		outs = append(outs, "vtt")
	}
	return outs
}

// Int and Float return pointers for the optional Advanced fields.
func Int(v int) *int { return &v }

func Float(v float64) *float64 { return &v }

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
