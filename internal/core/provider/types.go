// Package provider holds the upstream clients that turn a search term or a
// page URL into something downloadable.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/byAyes/wbot/internal/core/media"
)

// Status is the outcome of one provider attempt
type Status string

const (
	StatusOK        Status = "ok"
	StatusNotFound  Status = "not_found"
	StatusTransient Status = "transient"
	StatusRejected  Status = "rejected"
	StatusFatal     Status = "fatal"
)

var (
	// ErrTransient is a network failure, a 5xx/429, or an unparsable body.
	// The attempt may be retried.
	ErrTransient = errors.New("provider unavailable")
	// ErrNotFound is a well-formed response without a usable result.
	ErrNotFound = errors.New("provider has no result")
	// ErrRejected means this provider will not serve the request (bad key,
	// unsupported link, missing configuration). Retrying it is pointless but
	// the next provider may still succeed.
	ErrRejected = errors.New("provider rejected request")
	// ErrFatal ends the whole fallback chain.
	ErrFatal = errors.New("request cannot be served")
)

// StatusOf classifies an error returned by a Searcher or Resolver.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrFatal):
		return StatusFatal
	case errors.Is(err, ErrRejected):
		return StatusRejected
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	default:
		return StatusTransient
	}
}

// classifyHTTP maps an upstream status code to a sentinel, nil for 2xx.
func classifyHTTP(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound, code == http.StatusGone:
		return ErrNotFound
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return ErrTransient
	default:
		return ErrRejected
	}
}

// Result is the successful outcome of a resolve call. Exactly one of
// DownloadLink and LocalPath is set.
type Result struct {
	Provider     string
	DownloadLink string
	LocalPath    string
	PageURL      string
	Title        string
	Author       string
	Duration     string
	Kind         media.Kind
}

func (r *Result) validate() error {
	if r == nil || (r.DownloadLink == "" && r.LocalPath == "") {
		return fmt.Errorf("%s: empty result: %w", r.providerName(), ErrNotFound)
	}
	return nil
}

func (r *Result) providerName() string {
	if r == nil {
		return "provider"
	}
	return r.Provider
}

// SearchHit is the first match of a search
type SearchHit struct {
	Title     string
	Author    string
	Album     string
	Duration  string
	URL       string
	Thumbnail string
}

// Searcher turns a free-text term into a hit
type Searcher interface {
	Name() string
	Search(ctx context.Context, term string) (*SearchHit, error)
}

// Resolver turns a page URL (req.Source) into a downloadable result
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, req media.Request) (*Result, error)
}
