package provider

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Route is an ordered chain of resolvers for a family of hosts
type Route struct {
	Name      string
	Resolvers []Resolver
	// Match optionally narrows the route by path (e.g. Spotify tracks only)
	Match func(u *url.URL) bool
}

// Registry maps hostnames to resolver chains. Unknown hosts and direct
// file links go to the fallback chain.
type Registry struct {
	byHost   map[string]*Route
	fallback *Route
}

// directMediaExtensions bypass host routing
var directMediaExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".mkv": true, ".m4v": true,
	".mp3": true, ".m4a": true, ".aac": true, ".ogg": true, ".opus": true,
	".wav": true, ".flac": true,
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byHost: map[string]*Route{}}
}

// Register adds a route for the given hostnames
func (r *Registry) Register(route *Route, hosts ...string) {
	for _, host := range hosts {
		r.byHost[strings.ToLower(host)] = route
	}
}

// RegisterFallback sets the chain for direct files and unknown hosts
func (r *Registry) RegisterFallback(route *Route) {
	r.fallback = route
}

// Match finds the route for a URL using hostname lookup. It returns nil
// only when the URL does not parse and no fallback is registered.
func (r *Registry) Match(rawURL string) *Route {
	u, err := url.Parse(rawURL)
	if err != nil {
		return r.fallback
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if directMediaExtensions[ext] {
		return r.fallback
	}

	host := strings.ToLower(u.Hostname())
	if route := r.lookup(host, u); route != nil {
		return route
	}
	if strings.HasPrefix(host, "www.") {
		if route := r.lookup(host[4:], u); route != nil {
			return route
		}
	}
	if strings.HasPrefix(host, "m.") {
		if route := r.lookup(host[2:], u); route != nil {
			return route
		}
	}
	// Country subdomains such as es.pinterest.com
	if i := strings.IndexByte(host, '.'); i == 2 {
		if route := r.lookup(host[3:], u); route != nil {
			return route
		}
	}

	return r.fallback
}

func (r *Registry) lookup(host string, u *url.URL) *Route {
	route, ok := r.byHost[host]
	if !ok {
		return nil
	}
	if route.Match != nil && !route.Match(u) {
		return nil
	}
	return route
}

// Routes returns all unique registered routes
func (r *Registry) Routes() []*Route {
	seen := make(map[string]bool)
	var result []*Route
	for _, route := range r.byHost {
		if !seen[route.Name] {
			seen[route.Name] = true
			result = append(result, route)
		}
	}
	if r.fallback != nil && !seen[r.fallback.Name] {
		result = append(result, r.fallback)
	}
	return result
}

var pinterestCountry = regexp.MustCompile(`//([a-z]{2})\.pinterest\.com`)

// NormalizePinterest strips two-letter country subdomains, which the
// gateway does not accept.
func NormalizePinterest(raw string) string {
	return pinterestCountry.ReplaceAllString(raw, "//pinterest.com")
}

var spotifyTrack = regexp.MustCompile(`^(?:/intl-[a-z]{2})?/track/[a-zA-Z0-9]+/?$`)

// IsSpotifyTrack reports whether u is a Spotify track page. Albums,
// playlists and bare /track/ paths do not match.
func IsSpotifyTrack(u *url.URL) bool {
	return spotifyTrack.MatchString(u.Path)
}
