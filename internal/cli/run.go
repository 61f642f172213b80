package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/byAyes/wbot/internal/bot"
	"github.com/byAyes/wbot/internal/bot/telegram"
	"github.com/byAyes/wbot/internal/core/birthday"
	"github.com/byAyes/wbot/internal/core/jobs"
	"github.com/byAyes/wbot/internal/core/version"
	"github.com/byAyes/wbot/internal/server"
)

// jobBacklog is how many requests may wait for a free worker
const jobBacklog = 100

var (
	runPort     int
	runNoServer bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Telegram and serve commands",
	Long: `Connect to Telegram with the configured bot token and answer commands.

Commands (in any chat the bot can read):
  .p .play .d .descargar <url|terms>   download a video
  .a .audio <url|terms>                download the audio track
  .spotify .s .sp <terms>              look up a song and ask for confirmation
  .yt <terms>                          look up a video and ask for confirmation
  si (quoting the prompt)              confirm a suggested download
  .bd DD-MM-YYYY                       save your birthday
  .cumpleaños                          list upcoming birthdays
  .reset                               restart the bot

A liveness server (health, jobs, metrics) listens on PORT unless disabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = runPort
		}
		if runNoServer {
			cfg.Server.Disabled = true
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		restarter := bot.NewRestarter(cancel)

		adapter, err := telegram.New(telegram.Config{
			AppID:       cfg.Telegram.AppID,
			AppHash:     cfg.Telegram.AppHash,
			BotToken:    cfg.Telegram.BotToken,
			SessionFile: cfg.Telegram.SessionFile,
		}, nil)
		if err != nil {
			return err
		}

		a, err := newApp(cfg, adapter)
		if err != nil {
			return err
		}
		defer a.tracker.Stop()

		birthdays, err := birthday.NewStore(cfg.BirthdaysFile)
		if err != nil {
			return err
		}

		queue := jobs.NewQueue(cfg.Pipeline.MaxConcurrent, jobBacklog, a.pipeline.Run)
		queue.Start()

		adapter.SetHandler(bot.New(adapter, a.text, a.pipeline, queue, a.tracker, birthdays, restarter))

		log.Info().
			Str("component", "run").
			Str("version", version.Version).
			Str("language", cfg.Language).
			Int("workers", cfg.Pipeline.MaxConcurrent).
			Msg("starting wbot")

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return adapter.Run(gctx)
		})
		if !cfg.Server.Disabled {
			srv := server.NewServer(cfg.Server.Port, cfg.Server.APIKey, queue)
			g.Go(srv.Start)
			g.Go(func() error {
				<-gctx.Done()
				log.Info().Str("component", "run").Msg("shutting down server")
				shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
				defer stop()
				return srv.Stop(shutdownCtx)
			})
		}

		runErr := g.Wait()
		queue.Stop()

		if restarter.Requested() {
			pid, err := restarter.Spawn()
			if err != nil {
				return fmt.Errorf("restart failed: %w", err)
			}
			log.Info().Str("component", "run").Int("pid", pid).Msg("♻️ restarted")
			return nil
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().IntVarP(&runPort, "port", "p", 0, "HTTP listen port (default: 3000, env PORT)")
	runCmd.Flags().BoolVar(&runNoServer, "no-server", false, "do not start the liveness server")
	rootCmd.AddCommand(runCmd)
}
