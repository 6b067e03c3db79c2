package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sruti/internal/audio"
	"github.com/mgpai22/sruti/internal/config"
)

var resampleCmd = &cobra.Command{
	Use:   "resample [media_file]",
	Short: "Convert a media file to audio whisper.cpp can read",
	Long: `Run only the ffmpeg step of a transcription: convert any audio or
video file to 16 kHz mono WAV, optionally sped up.

Other formats are available for inspection or for upload elsewhere:
wav, mp3, aac, flac.

Examples:
  sruti resample talk.mp4
  sruti resample talk.mp4 --speed-up 1.5 -o fast.wav
  sruti resample talk.mp4 -f mp3 -b 64k`,
	Args: cobra.ExactArgs(1),
	RunE: runResample,
}

func init() {
	rootCmd.AddCommand(resampleCmd)

	resampleCmd.Flags().
		StringP("format", "f", "wav", "Output audio format (wav, mp3, aac, flac)")
	resampleCmd.Flags().
		IntP("sample-rate", "r", 16000, "Sample rate in Hz (e.g., 16000, 44100, 48000)")
	resampleCmd.Flags().
		IntP("channels", "c", 1, "Number of audio channels (1=mono, 2=stereo)")
	resampleCmd.Flags().
		StringP("bitrate", "b", "", "Bitrate for lossy formats (e.g., 64k, 128k)")
	resampleCmd.Flags().
		Float64P("speed-up", "s", 1.0, "Speed up the audio (0.1-10.0)")
	resampleCmd.Flags().
		String("ffmpeg-bin", "", "Path to ffmpeg (or set SRUTI_FFMPEG_PATH)")
}

func runResample(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	format, _ := cmd.Flags().GetString("format")
	sampleRate, _ := cmd.Flags().GetInt("sample-rate")
	channels, _ := cmd.Flags().GetInt("channels")
	bitrate, _ := cmd.Flags().GetString("bitrate")
	speedUp, _ := cmd.Flags().GetFloat64("speed-up")
	ffmpegBin, _ := cmd.Flags().GetString("ffmpeg-bin")
	outputPath, _ := cmd.Flags().GetString("output")

	if speedUp < config.MinSpeedUp || speedUp > config.MaxSpeedUp {
		return fmt.Errorf("speed-up must be between %.1f and %.1f, got %v", config.MinSpeedUp, config.MaxSpeedUp, speedUp)
	}
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("sample-rate and channels must be positive")
	}

	if !audio.IsMediaFile(inputPath) {
		logger.Warnw("Unrecognised media extension, passing it to ffmpeg anyway", "file", inputPath)
	}

	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "." + format
	}
	if same, _ := samePath(inputPath, outputPath); same {
		return fmt.Errorf("output %s would overwrite the input, use --output", outputPath)
	}

	logger.Infow("Resampling audio",
		"input", inputPath,
		"output", outputPath,
		"format", format,
		"sample_rate", sampleRate,
		"channels", channels,
		"speed_up", speedUp,
	)

	opts := audio.ResampleOptions{
		Format:     format,
		SampleRate: sampleRate,
		Channels:   channels,
		Bitrate:    bitrate,
		Tempo:      speedUp,
		FFmpegPath: ffmpegBin,
	}

	sink := func(line string) { logger.Debugw(line, "tool", "ffmpeg") }
	if err := audio.Resample(cmd.Context(), inputPath, outputPath, opts, sink); err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Audio written: %s\n", absOutput)

	return nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
