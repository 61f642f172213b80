package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/byAyes/wbot/internal/bot/console"
	"github.com/byAyes/wbot/internal/core/media"
)

var (
	fetchAudio  bool
	fetchOutput string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url|terms...>",
	Short: "Run one media request locally and save the result",
	Long: `Run the same pipeline the bot uses (search, provider fallback, validation,
transcoding) without Telegram. Status updates are printed and the delivered
file is copied to the output directory.

Examples:
  wbot fetch https://youtu.be/dQw4w9WgXcQ
  wbot fetch -a never gonna give you up
  wbot fetch -o ~/Downloads https://www.instagram.com/reel/xyz/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := console.New(fetchOutput)
		a, err := newApp(cfg, out)
		if err != nil {
			return err
		}
		defer a.tracker.Stop()
		// nothing animates on a terminal
		a.pipeline.StatusInterval = 0

		kind := media.KindVideo
		if fetchAudio {
			kind = media.KindAudio
		}
		req := media.NewRequest(strings.Join(args, " "), kind, "console", "0")

		if err := a.pipeline.Run(cmd.Context(), req); err != nil {
			return err
		}
		for _, path := range out.Saved() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Saved"), path)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVarP(&fetchAudio, "audio", "a", false, "fetch the audio track as mp3")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", ".", "directory for the delivered file")
	rootCmd.AddCommand(fetchCmd)
}
