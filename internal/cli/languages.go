package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sruti/internal/config"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the language codes whisper.cpp accepts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "auto (detect the spoken language)")
		const perLine = 13
		for i := 0; i < len(config.Languages); i += perLine {
			end := min(i+perLine, len(config.Languages))
			fmt.Fprintln(out, strings.Join(config.Languages[i:end], " "))
		}
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
