// Package pipeline turns a media request into a delivered file: search,
// resolve through the provider chain, acquire, transcode and send.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/chat"
	"github.com/byAyes/wbot/internal/core/confirm"
	"github.com/byAyes/wbot/internal/core/downloader"
	"github.com/byAyes/wbot/internal/core/i18n"
	"github.com/byAyes/wbot/internal/core/media"
	"github.com/byAyes/wbot/internal/core/metrics"
	"github.com/byAyes/wbot/internal/core/provider"
	"github.com/byAyes/wbot/internal/core/retry"
)

// Acquirer fetches a resolved source into a workspace as a validated artifact
type Acquirer interface {
	Acquire(ctx context.Context, ws *downloader.Workspace, src downloader.Source) (*media.Artifact, error)
}

// Transcoder converts an artifact to its target container
type Transcoder interface {
	Transcode(ctx context.Context, art *media.Artifact) (*media.Artifact, error)
}

// Deliverer sends an artifact and removes it
type Deliverer interface {
	Deliver(ctx context.Context, target chat.Target, art *media.Artifact, caption string) error
}

// Pipeline holds everything a request needs. All fields are required
// except Tracker, which only Lookup and Suggest use.
type Pipeline struct {
	Messenger  chat.Messenger
	Text       *i18n.Translations
	Policy     retry.Policy
	Providers  *provider.Set
	Scratch    *downloader.Scratch
	Acquirer   Acquirer
	Transcoder Transcoder
	Deliverer  Deliverer
	Tracker    *confirm.Tracker
	// StatusInterval paces the ellipsis animation; zero disables it
	StatusInterval time.Duration
}

// Run executes one media request end to end. Every outcome is reported in
// the conversation; the returned error is for logs and job status only.
func (p *Pipeline) Run(ctx context.Context, req media.Request) (err error) {
	start := time.Now()
	target := chat.Target{ConversationID: req.ConversationID, ReplyTo: req.MessageID}
	st := newStatus(p.Messenger, target, p.StatusInterval)
	logger := log.With().Str("component", "pipeline").Str("request", req.ID).Str("kind", string(req.Kind)).Logger()

	p.react(ctx, req, chat.ReactionWorking)
	defer func() {
		result := "ok"
		if err != nil {
			result = resultLabel(err)
			st.set(ctx, p.failureText(err))
			p.react(ctx, req, chat.ReactionFailed)
			logger.Error().Err(err).Str("result", result).Msg("request failed")
		} else {
			p.react(ctx, req, chat.ReactionDone)
			logger.Info().Dur("took", time.Since(start)).Msg("request delivered")
		}
		metrics.PipelineRuns.WithLabelValues(result).Inc()
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	ws, err := p.Scratch.Workspace(req.ID)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to clean workspace")
		}
	}()

	onFallback := func(from, to string, _ error) {
		st.set(ctx, p.Text.Media.TryingAlternate)
	}

	title := req.Source
	if !req.IsURL() {
		st.set(ctx, fmt.Sprintf(p.Text.Media.Searching, req.Source))
		hit, _, err := retry.Run(ctx, p.Policy, "search", searchSteps(p.Providers.VideoSearch, req.Source), onFallback)
		if err != nil {
			return err
		}
		if hit.URL == "" {
			return fmt.Errorf("search hit without url: %w", provider.ErrNotFound)
		}
		req = req.WithSource(hit.URL)
		if hit.Title != "" {
			title = hit.Title
		}
	}

	route := p.Providers.Registry.Match(req.Source)
	if route == nil || len(route.Resolvers) == 0 {
		return fmt.Errorf("no route for %s: %w", req.Source, provider.ErrFatal)
	}

	st.set(ctx, p.Text.Media.Resolving)
	res, from, err := retry.Run(ctx, p.Policy, "resolve:"+route.Name, resolveSteps(route.Resolvers, req), onFallback)
	if err != nil {
		return err
	}
	if res.Title != "" {
		title = res.Title
	}
	kind := req.Kind.OrVideo()
	if res.Kind != media.KindUnspecified {
		kind = res.Kind
	}
	logger.Info().Str("route", route.Name).Str("provider", from).Str("delivered_kind", string(kind)).Msg("resolved")

	stop := st.animate(ctx, fmt.Sprintf(p.Text.Media.Downloading, title))
	art, err := p.Acquirer.Acquire(ctx, ws, downloader.Source{
		Link:      res.DownloadLink,
		LocalPath: res.LocalPath,
		PageURL:   req.Source,
		Title:     title,
		Kind:      kind,
	})
	stop()
	if err != nil {
		return err
	}

	stop = st.animate(ctx, p.Text.Media.Processing)
	art, err = p.Transcoder.Transcode(ctx, art)
	stop()
	if err != nil {
		return err
	}

	st.set(ctx, p.Text.Media.Sending)
	caption, done := p.Text.Media.CaptionVideo, p.Text.Media.DoneVideo
	if art.Kind == media.KindAudio {
		caption, done = p.Text.Media.CaptionAudio, p.Text.Media.DoneAudio
	}
	if err := p.Deliverer.Deliver(ctx, target, art, caption); err != nil {
		return err
	}
	st.set(ctx, done)
	return nil
}

// Lookup searches music metadata and asks whether to download the song
func (p *Pipeline) Lookup(ctx context.Context, req media.Request) error {
	return p.prompt(ctx, req, "music", p.Providers.MusicSearch, p.Text.Music.Searching, confirm.FeatureSong, songPrompt)
}

// Suggest searches videos and asks whether to download audio or video
func (p *Pipeline) Suggest(ctx context.Context, req media.Request) error {
	return p.prompt(ctx, req, "suggest", p.Providers.VideoSearch, p.Text.Search.Searching, confirm.FeatureMedia, mediaPrompt)
}

func (p *Pipeline) prompt(
	ctx context.Context,
	req media.Request,
	op string,
	searchers []provider.Searcher,
	searching string,
	feature confirm.Feature,
	render func(*i18n.Translations, *provider.SearchHit) string,
) (err error) {
	target := chat.Target{ConversationID: req.ConversationID, ReplyTo: req.MessageID}
	st := newStatus(p.Messenger, target, p.StatusInterval)
	p.react(ctx, req, chat.ReactionWorking)
	defer func() {
		if err != nil {
			st.set(ctx, p.failureText(err))
			p.react(ctx, req, chat.ReactionFailed)
			log.Error().Err(err).Str("component", "pipeline").Str("op", op).Msg("prompt failed")
			return
		}
		p.react(ctx, req, chat.ReactionDone)
	}()

	st.set(ctx, fmt.Sprintf(searching, req.Source))
	hit, _, err := retry.Run(ctx, p.Policy, op, searchSteps(searchers, req.Source), func(string, string, error) {
		st.set(ctx, p.Text.Media.TryingAlternate)
	})
	if err != nil {
		return err
	}
	if feature == confirm.FeatureMedia && hit.URL == "" {
		return fmt.Errorf("search hit without url: %w", provider.ErrNotFound)
	}

	body := render(p.Text, hit)
	promptID, err := p.Messenger.SendText(ctx, target, body)
	if err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}
	if p.Tracker == nil {
		return nil
	}
	_, err = p.Tracker.Arm(confirm.Context{
		ConversationID: req.ConversationID,
		PromptID:       promptID,
		RequestID:      req.MessageID,
		Feature:        feature,
		Body:           body,
	})
	return err
}

// ConfirmRequest builds the request a resolved prompt stands for. msg is
// the reply that resolved it and becomes the message the request answers.
// When the prompt lacks the needed field the user is told and ok is false.
func (p *Pipeline) ConfirmRequest(ctx context.Context, msg chat.Message, res *confirm.Resolution) (req media.Request, ok bool) {
	switch res.Context.Feature {
	case confirm.FeatureSong:
		fields := res.Fields
		if fields.Artist == p.Text.Music.Unknown {
			fields.Artist = ""
		}
		if fields.Title != "" && fields.Title != p.Text.Music.Unknown {
			return media.NewRequest(fields.Query(), media.KindAudio, msg.ConversationID, msg.MessageID), true
		}
	case confirm.FeatureMedia:
		if res.Fields.URL != "" {
			return media.NewRequest(res.Fields.URL, res.Reply.Kind(), msg.ConversationID, msg.MessageID), true
		}
	}

	if _, err := p.Messenger.SendText(ctx, msg.ReplyTarget(), p.Text.Confirm.MissingField); err != nil {
		log.Warn().Err(err).Str("component", "pipeline").Msg("failed to send missing field notice")
	}
	p.react(ctx, media.Request{ConversationID: msg.ConversationID, MessageID: msg.MessageID}, chat.ReactionFailed)
	return media.Request{}, false
}

// NotifyExpired tells the conversation a prompt went unanswered. It is the
// tracker's expiry callback.
func (p *Pipeline) NotifyExpired(c confirm.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := p.Messenger.SendText(ctx, c.Target(), p.Text.Confirm.Expired); err != nil {
		log.Warn().Err(err).Str("component", "pipeline").Str("prompt", c.PromptID).Msg("failed to send expiry notice")
	}
}

func (p *Pipeline) react(ctx context.Context, req media.Request, emoji string) {
	if req.MessageID == "" {
		return
	}
	if err := p.Messenger.React(ctx, req.ConversationID, req.MessageID, emoji); err != nil {
		log.Debug().Err(err).Str("component", "pipeline").Msg("reaction failed")
	}
}

// failureText maps an error to the one message the user sees for it
func (p *Pipeline) failureText(err error) string {
	e := p.Text.Errors
	var exhausted *retry.ExhaustedError
	switch {
	case errors.Is(err, media.ErrArtifactInvalid):
		return e.Invalid
	case errors.Is(err, media.ErrTranscodeFailed):
		return e.Transcode
	case errors.Is(err, media.ErrDeliveryFailed):
		return e.Delivery
	case errors.As(err, &exhausted):
		if exhausted.AllNotFound() {
			return e.NotFound
		}
		return e.Exhausted
	case errors.Is(err, provider.ErrNotFound):
		return e.NotFound
	}
	return e.Generic
}

func resultLabel(err error) string {
	var exhausted *retry.ExhaustedError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, media.ErrArtifactInvalid):
		return "invalid"
	case errors.Is(err, media.ErrTranscodeFailed):
		return "transcode_failed"
	case errors.Is(err, media.ErrDeliveryFailed):
		return "delivery_failed"
	case errors.As(err, &exhausted):
		if exhausted.AllNotFound() {
			return "not_found"
		}
		return "exhausted"
	case errors.Is(err, provider.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func searchSteps(searchers []provider.Searcher, term string) []retry.Step[*provider.SearchHit] {
	steps := make([]retry.Step[*provider.SearchHit], 0, len(searchers))
	for _, s := range searchers {
		steps = append(steps, retry.Step[*provider.SearchHit]{
			Provider: s.Name(),
			Call: func(ctx context.Context) (*provider.SearchHit, error) {
				return s.Search(ctx, term)
			},
		})
	}
	return steps
}

func resolveSteps(resolvers []provider.Resolver, req media.Request) []retry.Step[*provider.Result] {
	steps := make([]retry.Step[*provider.Result], 0, len(resolvers))
	for _, r := range resolvers {
		steps = append(steps, retry.Step[*provider.Result]{
			Provider: r.Name(),
			Call: func(ctx context.Context) (*provider.Result, error) {
				return r.Resolve(ctx, req)
			},
		})
	}
	return steps
}
