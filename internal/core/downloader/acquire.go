package downloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/media"
)

// Source is what a provider handed over: either a file already in the
// workspace or a link to fetch.
type Source struct {
	Link      string
	LocalPath string
	PageURL   string
	Title     string
	Kind      media.Kind
}

// DefaultDownloadTimeout bounds a direct transfer when none is configured
const DefaultDownloadTimeout = 10 * time.Minute

// Acquirer turns a Source into a validated artifact inside a workspace
type Acquirer struct {
	Client    *http.Client
	Tool      *Tool
	Validator Validator
	UserAgent string
}

// NewAcquirer wires an acquirer with its own streaming client. timeout
// bounds one direct transfer, headers and body included.
func NewAcquirer(tool *Tool, validator Validator, userAgent string, timeout time.Duration) *Acquirer {
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	return &Acquirer{
		Client:    NewHTTPClient(timeout),
		Tool:      tool,
		Validator: validator,
		UserAgent: userAgent,
	}
}

// Acquire fetches src into ws and validates it. Links with an audio/video
// content type are streamed directly; anything else, or a failed stream,
// goes through the extraction tool. An invalid file is deleted and the
// error wraps media.ErrArtifactInvalid.
func (a *Acquirer) Acquire(ctx context.Context, ws *Workspace, src Source) (*media.Artifact, error) {
	path, err := a.fetch(ctx, ws, src)
	if err != nil {
		return nil, err
	}

	art, err := Validate(ctx, a.Validator, path, src.Kind.OrVideo())
	if err != nil {
		return nil, err
	}
	art.Title = src.Title
	log.Info().
		Str("component", "acquire").
		Str("format", art.Format).
		Str("size", formatBytes(art.Size)).
		Msg("artifact validated")
	return art, nil
}

func (a *Acquirer) fetch(ctx context.Context, ws *Workspace, src Source) (string, error) {
	logger := log.With().Str("component", "acquire").Str("workspace", ws.Dir).Logger()

	if src.LocalPath != "" {
		return RenameByMagicBytes(src.LocalPath), nil
	}
	if src.Link == "" {
		return "", fmt.Errorf("acquire: source has neither link nor file")
	}

	info, err := Head(ctx, a.Client, src.Link, a.UserAgent)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("probe failed, using extraction tool")
	case !info.IsMedia():
		logger.Info().Str("content_type", info.ContentType).Msg("link is not media, using extraction tool")
	default:
		output := ws.Path("direct." + info.Ext)
		n, err := Stream(ctx, a.Client, info.FinalURL, a.UserAgent, output)
		if err == nil {
			logger.Info().Str("size", formatBytes(n)).Msg("direct transfer finished")
			return RenameByMagicBytes(output), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warn().Err(err).Msg("direct transfer failed, using extraction tool")
	}

	return a.fetchWithTool(ctx, ws, src)
}

func (a *Acquirer) fetchWithTool(ctx context.Context, ws *Workspace, src Source) (string, error) {
	if a.Tool == nil || !a.Tool.Available() {
		return "", fmt.Errorf("acquire: direct transfer impossible and extraction tool unavailable")
	}
	target := src.PageURL
	if target == "" {
		target = src.Link
	}
	out, err := a.Tool.Fetch(ctx, target, src.Kind.OrVideo(), ws.Dir)
	if err != nil {
		return "", fmt.Errorf("acquire: %w", err)
	}
	return out.Path, nil
}
