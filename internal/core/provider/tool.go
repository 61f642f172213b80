package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/byAyes/wbot/internal/core/downloader"
	"github.com/byAyes/wbot/internal/core/media"
)

// ToolResolver runs the generic extraction tool straight into the request's
// scratch workspace. It is the last resort of every chain.
type ToolResolver struct {
	Tool    *downloader.Tool
	Scratch *downloader.Scratch
}

func (t *ToolResolver) Name() string {
	return "tool"
}

func (t *ToolResolver) Resolve(ctx context.Context, req media.Request) (*Result, error) {
	if !t.Tool.Available() {
		return nil, fmt.Errorf("tool: %s not installed: %w", t.Tool.Path, ErrRejected)
	}

	ws, err := t.Scratch.Workspace(req.ID)
	if err != nil {
		return nil, fmt.Errorf("tool: %v: %w", err, ErrFatal)
	}

	out, err := t.Tool.Fetch(ctx, req.Source, req.Kind.OrVideo(), ws.Dir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, downloader.ErrUnsupportedURL) {
			return nil, fmt.Errorf("tool: %v: %w", err, ErrNotFound)
		}
		return nil, fmt.Errorf("tool: %v: %w", err, ErrTransient)
	}

	return &Result{
		Provider:  t.Name(),
		LocalPath: out.Path,
		PageURL:   req.Source,
		Title:     out.Title,
		Kind:      req.Kind,
	}, nil
}
