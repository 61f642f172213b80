package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/byAyes/wbot/internal/core/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create wbot config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if initForce {
			if err := config.Save(config.DefaultConfig()); err != nil {
				return err
			}
		} else if err := config.Init(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Saved"), config.SavePath())
		fmt.Fprintln(cmd.OutOrStdout(), "Set TELEGRAM_APP_ID, TELEGRAM_APP_HASH and TELEGRAM_BOT_TOKEN (or edit the file) before `wbot run`.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
