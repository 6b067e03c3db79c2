package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sruti/internal/config"
	"github.com/mgpai22/sruti/internal/logging"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sruti",
	Short: "Local speech-to-text with whisper.cpp",
	Long: `Sruti is a CLI front-end for whisper.cpp.

It converts any audio or video file to 16 kHz mono WAV with ffmpeg
(optionally sped up), runs whisper-cli with your options, names the
transcripts after the input file and fixes subtitle timings when the
audio was sped up.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogger(verbose)
	},
}

// Execute runs the CLI. Ctrl-C cancels the running job and stops any
// ffmpeg or whisper-cli child process.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output path")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", config.DefaultPath(), "Config file")
}
