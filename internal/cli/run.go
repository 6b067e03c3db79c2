package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sruti/internal/audio"
	"github.com/mgpai22/sruti/internal/config"
	"github.com/mgpai22/sruti/internal/logging"
	"github.com/mgpai22/sruti/internal/pipeline"
	"github.com/mgpai22/sruti/internal/transcribe"
	"github.com/mgpai22/sruti/internal/translate"
)

var runCmd = &cobra.Command{
	Use:   "run [media_file]",
	Short: "Transcribe an audio or video file",
	Long: `Transcribe the given audio or video file.

The file is converted to 16 kHz mono WAV with ffmpeg, optionally sped up
with --speed-up, and passed to whisper-cli. Outputs are written next to the
input (or to --output) as <name>.txt, <name>.srt and <name>.vtt.

With a speed-up other than 1.0 only SRT is produced and its timestamps are
stretched back to the original timeline.

Options not given on the command line come from the config file
(see 'sruti config init'). --save-config stores the effective options.

Examples:
  sruti run talk.mp4 -m ggml-base.en.bin --srt
  sruti run lecture.mkv -m ggml-small.bin -l de --txt --vtt
  sruti run podcast.mp3 --speed-up 1.5 --others "--max-len 42"
  sruti run talk.mp4 --engine gemini --srt --translate-to japanese`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("model", "m", "", "Path to the GGML model file")
	f.StringP("language", "l", "", "Spoken language code, or 'auto' (see 'sruti languages')")
	f.Bool("translate", false, "Translate the speech to English")
	f.Bool("txt", false, "Write a plain text transcript")
	f.Bool("srt", false, "Write SRT subtitles")
	f.Bool("vtt", false, "Write WebVTT subtitles")
	f.Float64P("speed-up", "s", 1.0, "Speed up the audio before transcription (0.1-10.0)")
	f.String("others", "", "Extra whisper-cli arguments, shell quoted")
	f.StringP("engine", "e", "", "Transcription engine (whisper-cpp, openai, gemini)")
	f.String("whisper-bin", "", "Path to whisper-cli (or set SRUTI_WHISPER_PATH)")
	f.String("ffmpeg-bin", "", "Path to ffmpeg (or set SRUTI_FFMPEG_PATH)")
	f.IntP("threads", "t", 0, "Number of whisper threads")
	f.IntP("processors", "p", 0, "Number of whisper processors")
	f.Int("beam-size", 0, "Beam size for beam search")
	f.Int("max-len", 0, "Maximum segment length in characters")
	f.String("prompt", "", "Initial prompt")

	f.StringP("api-key", "k", "", "API key for remote engines (or set GEMINI_API_KEY/OPENAI_API_KEY)")
	f.String("remote-model", "", "Model for remote engines (provider-specific, uses sensible defaults)")
	f.String("transcript-language", "native", "Transcript language for remote engines ('native' keeps the spoken language)")
	f.Bool("model-override", false, "Allow any custom model, bypassing provider model validation")

	f.String("translate-to", "", "Translate the finished subtitles into this language")
	f.String("translate-provider", "gemini", "Translation provider (gemini, openai, anthropic)")
	f.String("translate-model", "", "Model to use for translation")
	f.Int("concurrency", 3, "Number of parallel remote workers")

	f.Bool("save-config", false, "Save the effective options to the config file")
}

// loadRunConfig merges the config file with the flags the user set.
func loadRunConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if len(args) == 1 {
		cfg.Basic.File = args[0]
	}

	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}
	integer := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	optInt := func(name string, dst **int) {
		if f.Changed(name) {
			v, _ := f.GetInt(name)
			*dst = config.Int(v)
		}
	}

	str("model", &cfg.Basic.Model)
	str("language", &cfg.Basic.Language)
	boolean("translate", &cfg.Basic.Translate)
	boolean("txt", &cfg.Basic.OutputTXT)
	boolean("srt", &cfg.Basic.OutputSRT)
	boolean("vtt", &cfg.Basic.OutputVTT)
	if f.Changed("speed-up") {
		cfg.Basic.SpeedUp, _ = f.GetFloat64("speed-up")
	}
	str("others", &cfg.Basic.Others)
	str("engine", &cfg.Basic.Engine)
	str("whisper-bin", &cfg.Basic.WhisperBin)
	str("ffmpeg-bin", &cfg.Basic.FFmpegBin)
	integer("threads", &cfg.Advanced.Threads)
	integer("processors", &cfg.Advanced.Processors)
	optInt("beam-size", &cfg.Advanced.BeamSize)
	optInt("max-len", &cfg.Advanced.MaxLen)
	str("prompt", &cfg.Advanced.Prompt)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadRunConfig(cmd, args)
	if err != nil {
		return err
	}
	logger = logging.NewLoggerWithLevel(cfg.Basic.LogLevel, verbose)

	if save, _ := cmd.Flags().GetBool("save-config"); save {
		if err := config.Save(cfg, configPath); err != nil {
			return err
		}
		logger.Infow("Saved config", "path", configPath)
	}

	if cfg.Basic.File == "" {
		return fmt.Errorf("no input file: pass one as an argument or set basic.file in %s", configPath)
	}

	if !audio.IsMediaFile(cfg.Basic.File) {
		logger.Warnw("Unrecognised media extension, passing it to ffmpeg anyway", "file", cfg.Basic.File)
	}

	engine, err := buildEngine(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	outputDir, _ := cmd.Flags().GetString("output")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithOutputDir(outputDir),
	}

	if target, _ := cmd.Flags().GetString("translate-to"); target != "" {
		translator, err := buildTranslator(ctx, cmd, cfg.Basic.Language, target)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithTranslation(translator, target, concurrency))
	}

	logger.Infow("Starting transcription",
		"input", cfg.Basic.File,
		"engine", engine.Name(),
		"language", cfg.Basic.Language,
		"speed_up", cfg.Basic.SpeedUp,
		"outputs", strings.Join(cfg.Basic.Outputs(), ","),
	)

	res, err := pipeline.New(engine, opts...).Run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Transcription finished in %s\n", res.Elapsed.Round(1e6))
	for _, out := range res.Outputs {
		abs, _ := filepath.Abs(out)
		fmt.Printf("  %s\n", abs)
	}
	if res.Translated != "" {
		abs, _ := filepath.Abs(res.Translated)
		fmt.Printf("  %s (translated)\n", abs)
	}
	return nil
}

func buildEngine(ctx context.Context, cmd *cobra.Command, cfg config.Config) (pipeline.Engine, error) {
	if cfg.Basic.Engine == config.EngineWhisperCPP {
		engine, err := pipeline.NewWhisperEngine(cfg, logger)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}

	provider := cfg.Basic.Engine
	apiKeyFlag, _ := cmd.Flags().GetString("api-key")
	model, _ := cmd.Flags().GetString("remote-model")
	override, _ := cmd.Flags().GetBool("model-override")
	transcriptLang, _ := cmd.Flags().GetString("transcript-language")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	if cfg.Basic.Translate {
		transcriptLang = "english"
	}
	if provider == config.EngineOpenAI && !isValidOpenAITranscriptLanguage(transcriptLang) {
		return nil, fmt.Errorf(
			"OpenAI can only transcribe in the spoken language or English, got %q: use --translate-to instead",
			transcriptLang,
		)
	}
	if err := checkModel(provider, model, true, override); err != nil {
		return nil, err
	}

	apiKey, err := resolveAPIKey(provider, apiKeyFlag)
	if err != nil {
		return nil, err
	}

	language := cfg.Basic.Language
	if language == "auto" {
		language = ""
	}

	t, err := transcribe.Factory(ctx, transcribe.Provider(provider), apiKey, transcribe.Options{
		Language:           language,
		TranscriptLanguage: transcriptLang,
		Model:              model,
		Prompt:             cfg.Advanced.Prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	engine := pipeline.NewRemoteEngine(transcribe.Provider(provider), t, logger)
	engine.Concurrency = concurrency
	return engine, nil
}

func buildTranslator(ctx context.Context, cmd *cobra.Command, inputLang, targetLang string) (translate.Translator, error) {
	provider, _ := cmd.Flags().GetString("translate-provider")
	model, _ := cmd.Flags().GetString("translate-model")
	override, _ := cmd.Flags().GetBool("model-override")
	apiKeyFlag, _ := cmd.Flags().GetString("api-key")

	if inputLang == "auto" {
		inputLang = ""
	}
	if inputLang != "" && strings.EqualFold(strings.TrimSpace(inputLang), strings.TrimSpace(targetLang)) {
		return nil, fmt.Errorf("input language %q and target language %q cannot be the same", inputLang, targetLang)
	}
	if err := checkModel(provider, model, false, override); err != nil {
		return nil, err
	}

	apiKey, err := resolveAPIKey(provider, apiKeyFlag)
	if err != nil {
		return nil, err
	}

	translator, err := translate.Factory(ctx, translate.Provider(provider), apiKey, translate.Options{
		InputLanguage:  inputLang,
		TargetLanguage: targetLang,
		Model:          model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}
	return translator, nil
}
