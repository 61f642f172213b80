package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/media"
)

// ErrUnsupportedURL means the extraction tool has no extractor for the link
var ErrUnsupportedURL = errors.New("unsupported url")

// Tool wraps a yt-dlp compatible extraction binary
type Tool struct {
	Path      string
	Timeout   time.Duration
	UserAgent string
}

// ToolOutput is the file the tool wrote and the title it reported
type ToolOutput struct {
	Path  string
	Title string
}

// NewTool returns a tool runner; an empty path means "yt-dlp" on PATH
func NewTool(path string, timeout time.Duration, userAgent string) *Tool {
	if path == "" {
		path = "yt-dlp"
	}
	return &Tool{Path: path, Timeout: timeout, UserAgent: userAgent}
}

// Available checks if the tool is installed
func (t *Tool) Available() bool {
	_, err := exec.LookPath(t.Path)
	return err == nil
}

// toolFormat picks the tool's format selector for a kind
func toolFormat(kind media.Kind) string {
	if kind == media.KindAudio {
		return "bestaudio/best"
	}
	return "best[ext=mp4]/best"
}

// Fetch downloads pageURL into dir as tool.<ext>. The output name is fixed
// per workspace so concurrent requests cannot collide.
func (t *Tool) Fetch(ctx context.Context, pageURL string, kind media.Kind, dir string) (*ToolOutput, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	userAgent := t.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	outputTemplate := filepath.Join(dir, "tool.%(ext)s")
	args := []string{
		"-f", toolFormat(kind),
		"--no-playlist",
		"--no-progress",
		"--no-simulate",
		"--print", "title",
		"--user-agent", userAgent,
		"-o", outputTemplate,
		pageURL,
	}

	logger := log.With().Str("component", "tool").Str("url", pageURL).Logger()
	logger.Debug().Strs("args", args).Msg("running extraction tool")

	cmd := exec.CommandContext(ctx, t.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		logger.Warn().Err(err).Str("stderr", lastLine(msg)).Msg("extraction tool failed")
		if strings.Contains(msg, "Unsupported URL") {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, pageURL)
		}
		return nil, fmt.Errorf("%s failed: %w: %s", filepath.Base(t.Path), err, lastLine(msg))
	}

	matches, err := filepath.Glob(filepath.Join(dir, "tool.*"))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("%s produced no file", filepath.Base(t.Path))
	}
	// Leftover .part files sort after the finished file
	path := matches[0]
	for _, m := range matches {
		if !strings.HasSuffix(m, ".part") && !strings.HasSuffix(m, ".ytdl") {
			path = m
			break
		}
	}

	logger.Info().Str("file", filepath.Base(path)).Dur("took", time.Since(start)).Msg("extraction tool finished")
	return &ToolOutput{
		Path:  path,
		Title: strings.TrimSpace(firstLine(stdout.String())),
	}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
