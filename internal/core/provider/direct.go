package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/byAyes/wbot/internal/core/downloader"
	"github.com/byAyes/wbot/internal/core/media"
)

// DirectResolver handles links that already point at an audio or video file.
// Anything else is reported as not found so the chain moves on.
type DirectResolver struct {
	Client    *http.Client
	UserAgent string
}

// NewDirectResolver creates a resolver whose HEAD probes time out after timeout
func NewDirectResolver(timeout time.Duration, userAgent string) *DirectResolver {
	return &DirectResolver{
		Client:    downloader.NewHTTPClient(timeout),
		UserAgent: userAgent,
	}
}

func (d *DirectResolver) Name() string {
	return "direct"
}

func (d *DirectResolver) Resolve(ctx context.Context, req media.Request) (*Result, error) {
	info, err := downloader.Head(ctx, d.Client, req.Source, d.UserAgent)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("direct: %v: %w", err, classifyHead(err))
	}
	if !info.IsMedia() {
		return nil, fmt.Errorf("direct: content type %q is not media: %w", info.ContentType, ErrNotFound)
	}

	return &Result{
		Provider:     d.Name(),
		DownloadLink: info.FinalURL,
		PageURL:      req.Source,
		Title:        info.Title(),
		Kind:         req.Kind,
	}, nil
}

func classifyHead(err error) error {
	var se *downloader.StatusError
	if errors.As(err, &se) {
		if c := classifyHTTP(se.Code); c != nil {
			return c
		}
	}
	return ErrTransient
}
