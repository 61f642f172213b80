package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/byAyes/wbot/internal/core/downloader"
	"github.com/byAyes/wbot/internal/core/media"
)

// APIClient talks to a scraping gateway exposing /search/{service} and
// /dow/{service}. Upstream payloads are loosely shaped (result vs data,
// array vs object) so fields are read with gjson paths.
type APIClient struct {
	name    string
	baseURL string
	apiKey  string
	http    *resty.Client
}

// NewAPIClient creates a gateway client. The client never retries on its own.
func NewAPIClient(name, baseURL, apiKey string, timeout time.Duration, userAgent string) *APIClient {
	if userAgent == "" {
		userAgent = downloader.DefaultUserAgent
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &APIClient{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "application/json"),
	}
}

// Name returns the client name used in logs and metrics
func (c *APIClient) Name() string {
	return c.name
}

// Configured reports whether a base URL was set
func (c *APIClient) Configured() bool {
	return c.baseURL != ""
}

func (c *APIClient) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%s: base url not configured: %w", c.name, ErrRejected)
	}
	if c.apiKey != "" {
		params["apikey"] = c.apiKey
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s %s: %v: %w", c.name, path, err, ErrTransient)
	}
	if err := classifyHTTP(resp.StatusCode()); err != nil {
		return nil, fmt.Errorf("%s %s: status %d: %w", c.name, path, resp.StatusCode(), err)
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s %s: response is not json: %w", c.name, path, ErrTransient)
	}
	if st := gjson.GetBytes(body, "status"); st.Exists() && !st.Bool() {
		return nil, fmt.Errorf("%s %s: status false: %w", c.name, path, ErrNotFound)
	}
	return body, nil
}

// Search calls /search/{service} and returns every hit in upstream order.
func (c *APIClient) Search(ctx context.Context, service, term string) ([]SearchHit, error) {
	body, err := c.get(ctx, "/search/"+service, map[string]string{"query": term})
	if err != nil {
		return nil, err
	}

	list := gjson.GetBytes(body, "result")
	if !list.IsArray() {
		list = gjson.GetBytes(body, "data")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%s search %s: no result list: %w", c.name, service, ErrNotFound)
	}

	var hits []SearchHit
	for _, item := range list.Array() {
		hit := SearchHit{
			Title:     first(item, "title", "name"),
			Author:    first(item, "autor", "author.name", "author", "artist", "artists.0.name", "channel"),
			Album:     first(item, "album", "album.name"),
			Duration:  first(item, "duration.timestamp", "timestamp", "duration"),
			URL:       first(item, "url", "link"),
			Thumbnail: first(item, "image", "thumbnail"),
		}
		if hit.URL == "" && hit.Title == "" {
			continue
		}
		hits = append(hits, hit)
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("%s search %s: empty result: %w", c.name, service, ErrNotFound)
	}
	return hits, nil
}

// Download calls /dow/{service} for a page URL and returns the direct link.
func (c *APIClient) Download(ctx context.Context, service, pageURL string) (*Result, error) {
	body, err := c.get(ctx, "/dow/"+service, map[string]string{"url": pageURL})
	if err != nil {
		return nil, err
	}

	data := gjson.GetBytes(body, "data")
	if data.IsArray() {
		data = data.Get("0")
	}
	res := &Result{
		Provider:     c.name,
		DownloadLink: first(data, "dl", "download", "url"),
		PageURL:      pageURL,
		Title:        first(data, "title"),
		Author:       first(data, "author", "artist"),
		Duration:     first(data, "duration"),
	}
	if err := res.validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// InstagramDL calls the alternative gateway's /api/d/igdl.
func (c *APIClient) InstagramDL(ctx context.Context, pageURL string) (*Result, error) {
	body, err := c.get(ctx, "/api/d/igdl", map[string]string{"url": pageURL})
	if err != nil {
		return nil, err
	}

	item := gjson.GetBytes(body, "data.0")
	res := &Result{
		Provider:     c.name,
		DownloadLink: item.Get("url").String(),
		PageURL:      pageURL,
		Title:        strings.TrimSuffix(item.Get("filename").String(), ".mp4"),
	}
	if err := res.validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// first returns the first non-empty string among paths
func first(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := r.Get(p)
		if v.Exists() && v.Type != gjson.JSON {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// APISearcher searches one gateway service and keeps the first hit
type APISearcher struct {
	Client  *APIClient
	Service string
}

func (s *APISearcher) Name() string {
	return s.Client.Name() + "/" + s.Service
}

func (s *APISearcher) Search(ctx context.Context, term string) (*SearchHit, error) {
	hits, err := s.Client.Search(ctx, s.Service, term)
	if err != nil {
		return nil, err
	}
	return &hits[0], nil
}

// APIResolver downloads through /dow/{service}, choosing the service by kind
type APIResolver struct {
	Client       *APIClient
	AudioService string
	VideoService string
	// Normalize rewrites the page URL before the call
	Normalize func(string) string
	// Kind, when set, is what the service always returns regardless of
	// the requested kind (the spotify service only serves mp3)
	Kind media.Kind
}

func (r *APIResolver) Name() string {
	return r.Client.Name() + "/" + r.VideoService
}

func (r *APIResolver) Resolve(ctx context.Context, req media.Request) (*Result, error) {
	service := r.VideoService
	if req.Kind == media.KindAudio && r.AudioService != "" {
		service = r.AudioService
	}
	target := req.Source
	if r.Normalize != nil {
		target = r.Normalize(target)
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", target, ErrFatal)
	}

	res, err := r.Client.Download(ctx, service, target)
	if err != nil {
		return nil, err
	}
	res.Provider = r.Name()
	res.Kind = req.Kind
	if r.Kind != media.KindUnspecified {
		res.Kind = r.Kind
	}
	return res, nil
}

// InstagramResolver uses the alternative gateway for Instagram posts and reels
type InstagramResolver struct {
	Client *APIClient
}

func (r *InstagramResolver) Name() string {
	return r.Client.Name() + "/igdl"
}

func (r *InstagramResolver) Resolve(ctx context.Context, req media.Request) (*Result, error) {
	res, err := r.Client.InstagramDL(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	res.Provider = r.Name()
	res.Kind = req.Kind
	return res, nil
}
