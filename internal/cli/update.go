package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/byAyes/wbot/internal/core/version"
)

const (
	repoOwner = "byAyes"
	repoName  = "wbot"
)

var updateCheckOnly bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update wbot to the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		return selfUpdate(cmd.Context(), cmd.OutOrStdout(), updateCheckOnly)
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "only report whether a newer release exists")
	rootCmd.AddCommand(updateCmd)
}

func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, err
	}
	return selfupdate.NewUpdater(selfupdate.Config{
		Source: source,
	})
}

// selfUpdate replaces the running binary with the latest GitHub release.
// A restarted bot (`.reset`) picks the new binary up.
func selfUpdate(ctx context.Context, out io.Writer, checkOnly bool) error {
	updater, err := newUpdater()
	if err != nil {
		return err
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return fmt.Errorf("no releases found for %s/%s", repoOwner, repoName)
	}

	current := strings.TrimPrefix(version.Version, "v")
	if current == "dev" {
		fmt.Fprintf(out, "Development build, latest release is %s\n", latest.Version())
		return nil
	}
	if latest.LessOrEqual(current) {
		fmt.Fprintf(out, "Already up to date (v%s)\n", current)
		return nil
	}
	if checkOnly {
		fmt.Fprintf(out, "%s v%s -> %s\n", color.YellowString("Update available:"), current, latest.Version())
		return nil
	}

	fmt.Fprintf(out, "Updating from v%s to %s...\n", current, latest.Version())
	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	fmt.Fprintf(out, "%s %s\n", color.GreenString("Updated to"), latest.Version())
	return nil
}
