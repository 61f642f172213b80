package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/byAyes/wbot/internal/core/media"
)

// HeadInfo is what a HEAD probe learned about a link
type HeadInfo struct {
	ContentType string
	FinalURL    string
	Size        int64
	Kind        media.Kind
	Ext         string
}

// IsMedia reports whether the link serves audio or video
func (h *HeadInfo) IsMedia() bool {
	return h.Kind != media.KindUnspecified
}

// Title derives a display title from the final URL's file name
func (h *HeadInfo) Title() string {
	u, err := url.Parse(h.FinalURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// Head issues a HEAD request and classifies the response by Content-Type.
func Head(ctx context.Context, client *http.Client, rawURL, userAgent string) (*HeadInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	info := &HeadInfo{
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
		Size:        resp.ContentLength,
	}
	info.Kind, info.Ext = detectMediaType(info.ContentType, info.FinalURL)
	return info, nil
}

// detectMediaType determines the media kind from the Content-Type header,
// falling back to the URL extension when the header is generic.
func detectMediaType(contentType, urlStr string) (media.Kind, string) {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))

	switch {
	case strings.HasPrefix(contentType, "video/"):
		ext := strings.TrimPrefix(contentType, "video/")
		switch ext {
		case "mp4", "webm":
		case "quicktime":
			ext = "mov"
		case "x-matroska":
			ext = "mkv"
		default:
			ext = "mp4"
		}
		return media.KindVideo, ext

	case strings.HasPrefix(contentType, "audio/"):
		ext := strings.TrimPrefix(contentType, "audio/")
		switch ext {
		case "mpeg", "mp3":
			ext = "mp3"
		case "mp4", "x-m4a", "aac":
			ext = "m4a"
		case "ogg", "opus":
			ext = "ogg"
		case "x-wav", "wave":
			ext = "wav"
		case "x-flac":
			ext = "flac"
		}
		return media.KindAudio, ext

	case contentType != "" && contentType != "application/octet-stream" && contentType != "binary/octet-stream":
		return media.KindUnspecified, ""
	}

	// Generic binary: trust the extension
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return media.KindUnspecified, ""
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsedURL.Path), "."))
	switch ext {
	case "mp4", "webm", "mov", "mkv", "m4v":
		return media.KindVideo, ext
	case "mp3", "m4a", "aac", "ogg", "opus", "wav", "flac":
		return media.KindAudio, ext
	}
	return media.KindUnspecified, ""
}
