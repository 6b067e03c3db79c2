package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/sruti/internal/ffmpeg"
	"github.com/mgpai22/sruti/internal/process"
)

// atempo accepts factors in [0.5, 100] per filter instance
const minAtempo = 0.5

// settings for converting media into audio a recognizer can read
type ResampleOptions struct {
	Format     string  // Output format (wav, mp3, aac, flac)
	SampleRate int     // Sample rate in Hz
	Channels   int     // Number of channels (1=mono, 2=stereo)
	Bitrate    string  // Bitrate for lossy formats (e.g., "64k")
	Tempo      float64 // Playback speed factor; 0 or 1 leaves speed alone
	FFmpegPath string  // Overrides binary discovery when set
}

// 16 kHz mono 16-bit PCM, what whisper.cpp expects
func DefaultResampleOptions() ResampleOptions {
	return ResampleOptions{
		Format:     "wav",
		SampleRate: 16000,
		Channels:   1,
		Tempo:      1.0,
	}
}

// compact mp3 for upload to remote APIs
func CompressedOptions() ResampleOptions {
	return ResampleOptions{
		Format:     "mp3",
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "64k",
		Tempo:      1.0,
	}
}

// AtempoFilter builds an ffmpeg audio filter for the given speed factor,
// chaining instances for factors below what a single atempo accepts.
// Returns "" for a factor of 0 or 1.
func AtempoFilter(tempo float64) string {
	if tempo == 0 || tempo == 1 {
		return ""
	}

	var stages []string
	for tempo < minAtempo {
		stages = append(stages, "atempo="+formatFactor(minAtempo))
		tempo /= minAtempo
	}
	stages = append(stages, "atempo="+formatFactor(tempo))
	return strings.Join(stages, ",")
}

func formatFactor(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ResampleArgs returns the ffmpeg arguments (without the binary) that
// convert inputPath into outputPath.
func ResampleArgs(inputPath, outputPath string, opts ResampleOptions) ([]string, error) {
	kwargs := ffmpeg.KwArgs{
		"vn": "",              // No video
		"ar": opts.SampleRate, // Sample rate
		"ac": opts.Channels,   // Channels
	}

	switch opts.Format {
	case "wav", "":
		kwargs["c:a"] = "pcm_s16le"
	case "mp3":
		kwargs["c:a"] = "libmp3lame"
	case "aac":
		kwargs["c:a"] = "aac"
	case "flac":
		kwargs["c:a"] = "flac"
	default:
		return nil, fmt.Errorf("unsupported audio format %q: use wav, mp3, aac, or flac", opts.Format)
	}
	if opts.Bitrate != "" && (opts.Format == "mp3" || opts.Format == "aac") {
		kwargs["b:a"] = opts.Bitrate
	}

	if opts.Tempo < 0 {
		return nil, fmt.Errorf("tempo must be positive, got %v", opts.Tempo)
	}
	if filter := AtempoFilter(opts.Tempo); filter != "" {
		kwargs["af"] = filter
	}

	return ffmpeg.Input(inputPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		GetArgs(), nil
}

// Resample converts any audio or video file ffmpeg understands, streaming
// ffmpeg's console output to sink.
func Resample(
	ctx context.Context,
	inputPath, outputPath string,
	opts ResampleOptions,
	sink process.LineSink,
) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	args, err := ResampleArgs(inputPath, outputPath, opts)
	if err != nil {
		return err
	}

	paths, err := ffmpegbin.Resolve(opts.FFmpegPath)
	if err != nil {
		return err
	}

	cmd := process.Command{Path: paths.FFmpeg, Args: args}
	if err := process.Run(ctx, cmd, sink); err != nil {
		return fmt.Errorf("ffmpeg conversion failed: %w", err)
	}

	return nil
}

// JSON output from ffprobe
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// duration of an audio/video file
func GetDuration(ctx context.Context, filePath string) (time.Duration, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return 0, fmt.Errorf("file not found: %s", filePath)
	}

	ffprobePath, err := ffmpegbin.FFprobePath()
	if err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		filePath,
	)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbeDuration(out.Bytes())
}

func parseProbeDuration(data []byte) (time.Duration, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

var videoExts = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true, ".wmv": true,
	".flv": true, ".webm": true, ".m4v": true, ".mpeg": true, ".mpg": true,
	".3gp": true, ".ts": true,
}

var audioExts = map[string]bool{
	".mp3": true, ".wav": true, ".aac": true, ".flac": true, ".ogg": true,
	".m4a": true, ".wma": true, ".aiff": true, ".opus": true,
}

// checks if the file is a video based on extension
func IsVideoFile(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// checks if the file is an audio file based on extension
func IsAudioFile(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}

// checks if the file is either audio or video
func IsMediaFile(path string) bool {
	return IsAudioFile(path) || IsVideoFile(path)
}
