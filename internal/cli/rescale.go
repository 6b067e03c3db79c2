package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sruti/internal/subtitle"
)

var rescaleCmd = &cobra.Command{
	Use:   "rescale [subtitle_file]",
	Short: "Multiply every SRT timecode by a factor",
	Long: `Rewrite every HH:MM:SS,mmm timecode in a subtitle file, multiplied by
--factor. Everything else in the file is left byte for byte.

This is the step 'sruti run' applies after transcribing sped-up audio:
audio played 1.5x faster gives timings that must be stretched by 1.5.

The file is rewritten in place unless --output is given.

Examples:
  sruti rescale talk.srt --factor 1.5
  sruti rescale talk.srt --factor 0.5 -o half.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runRescale,
}

func init() {
	rootCmd.AddCommand(rescaleCmd)

	rescaleCmd.Flags().Float64P("factor", "f", 0, "Factor to multiply timecodes by (required)")
	_ = rescaleCmd.MarkFlagRequired("factor")
}

func runRescale(cmd *cobra.Command, args []string) error {
	path := args[0]
	factor, _ := cmd.Flags().GetFloat64("factor")
	outputPath, _ := cmd.Flags().GetString("output")

	if err := subtitle.ValidateFactor(factor); err != nil {
		return err
	}

	if outputPath == "" || outputPath == path {
		if err := subtitle.RescaleFile(path, factor); err != nil {
			return err
		}
		outputPath = path
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read subtitle file: %w", err)
		}
		rescaled, err := subtitle.Rescale(string(data), factor)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, []byte(rescaled), 0644); err != nil {
			return fmt.Errorf("failed to write subtitle file: %w", err)
		}
	}

	logger.Infow("Rescaled subtitle timecodes", "file", outputPath, "factor", factor)

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Subtitles rescaled: %s\n", absOutput)
	return nil
}
