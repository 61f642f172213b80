package cli

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/chat"
	"github.com/byAyes/wbot/internal/core/config"
	"github.com/byAyes/wbot/internal/core/confirm"
	"github.com/byAyes/wbot/internal/core/delivery"
	"github.com/byAyes/wbot/internal/core/downloader"
	"github.com/byAyes/wbot/internal/core/i18n"
	"github.com/byAyes/wbot/internal/core/pipeline"
	"github.com/byAyes/wbot/internal/core/provider"
	"github.com/byAyes/wbot/internal/core/retry"
)

// staleWorkspaceAge is how old a leftover scratch workspace must be before
// start-up removes it.
const staleWorkspaceAge = time.Hour

// app is the media side of wbot, shared by `run` and `fetch`
type app struct {
	cfg      *config.Config
	text     *i18n.Translations
	scratch  *downloader.Scratch
	pipeline *pipeline.Pipeline
	tracker  *confirm.Tracker
}

// newApp wires providers, acquisition, transcoding and delivery around m.
func newApp(cfg *config.Config, m chat.Messenger) (*app, error) {
	text := i18n.T(cfg.Language)

	scratch, err := downloader.NewScratch(cfg.ScratchDir)
	if err != nil {
		return nil, err
	}
	if n, err := scratch.Sweep(staleWorkspaceAge); err != nil {
		log.Warn().Str("component", "scratch").Err(err).Msg("sweep failed")
	} else if n > 0 {
		log.Info().Str("component", "scratch").Int("removed", n).Msg("removed stale workspaces")
	}

	tool := downloader.NewTool(cfg.Providers.ToolPath, cfg.Providers.ToolTimeout, cfg.Providers.UserAgent)
	if !tool.Available() {
		log.Warn().Str("component", "tool").Str("path", cfg.Providers.ToolPath).Msg("extraction tool not found, tool fallbacks will fail")
	}
	if !downloader.FFmpegAvailable() {
		log.Info().Str("component", "transcode").Msg("ffmpeg not found, using embedded wasm build")
	}

	providers := provider.NewSet(provider.SetConfig{
		PrimaryURL:     cfg.Providers.Primary.BaseURL,
		PrimaryKey:     cfg.Providers.Primary.APIKey,
		SecondaryURL:   cfg.Providers.Secondary.BaseURL,
		SecondaryKey:   cfg.Providers.Secondary.APIKey,
		AlternativeURL: cfg.Providers.Alternative.BaseURL,
		Timeout:        cfg.Providers.Timeout,
		UserAgent:      cfg.Providers.UserAgent,
	}, tool, scratch)
	for _, c := range []*provider.APIClient{providers.Primary, providers.Secondary, providers.Alternative} {
		if !c.Configured() {
			log.Warn().Str("component", "provider").Str("provider", c.Name()).Msg("gateway not configured, it will be skipped")
		}
	}

	validator := downloader.NewValidator("ffprobe")

	a := &app{
		cfg:     cfg,
		text:    text,
		scratch: scratch,
	}
	a.tracker = confirm.NewTracker(cfg.Pipeline.ConfirmTTL, func(c confirm.Context) {
		a.pipeline.NotifyExpired(c)
	})
	a.pipeline = &pipeline.Pipeline{
		Messenger: m,
		Text:      text,
		Policy: retry.Policy{
			MaxAttempts:   cfg.Retry.MaxAttempts,
			Delay:         cfg.Retry.Delay,
			Exponential:   cfg.Retry.Exponential,
			MaxDelay:      cfg.Retry.MaxDelay,
			RetryNotFound: cfg.Retry.ShouldRetryNotFound(),
		},
		Providers:      providers,
		Scratch:        scratch,
		Acquirer:       downloader.NewAcquirer(tool, validator, cfg.Providers.UserAgent, cfg.Providers.DownloadTimeout),
		Transcoder:     downloader.NewTranscoder(validator, cfg.Pipeline.ForceReencode),
		Deliverer:      delivery.NewRouter(m, cfg.Pipeline.InlineLimitBytes(), text.Media.SizeNotice),
		Tracker:        a.tracker,
		StatusInterval: cfg.Pipeline.StatusInterval,
	}
	return a, nil
}
