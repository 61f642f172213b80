package provider

import (
	"time"

	"github.com/byAyes/wbot/internal/core/downloader"
	"github.com/byAyes/wbot/internal/core/media"
)

// Set is every provider the pipeline can call, wired from configuration
type Set struct {
	Registry    *Registry
	VideoSearch []Searcher
	MusicSearch []Searcher
	Primary     *APIClient
	Secondary   *APIClient
	Alternative *APIClient
}

// SetConfig carries what NewSet needs from the application config
type SetConfig struct {
	PrimaryURL     string
	PrimaryKey     string
	SecondaryURL   string
	SecondaryKey   string
	AlternativeURL string
	Timeout        time.Duration
	UserAgent      string
}

// NewSet builds the gateway clients and the per-host fallback chains.
// Unconfigured gateways stay in the chains and reject immediately, so the
// executor moves past them without retrying.
func NewSet(cfg SetConfig, tool *downloader.Tool, scratch *downloader.Scratch) *Set {
	primary := NewAPIClient("primary", cfg.PrimaryURL, cfg.PrimaryKey, cfg.Timeout, cfg.UserAgent)
	secondary := NewAPIClient("secondary", cfg.SecondaryURL, cfg.SecondaryKey, cfg.Timeout, cfg.UserAgent)
	alternative := NewAPIClient("alternative", cfg.AlternativeURL, "", cfg.Timeout, cfg.UserAgent)

	toolResolver := &ToolResolver{Tool: tool, Scratch: scratch}
	direct := NewDirectResolver(cfg.Timeout, cfg.UserAgent)

	reg := NewRegistry()
	reg.Register(&Route{
		Name: "youtube",
		Resolvers: []Resolver{
			&APIResolver{Client: primary, AudioService: "ytmp3v2", VideoService: "ytmp4v2"},
			&APIResolver{Client: secondary, AudioService: "ytmp3v2", VideoService: "ytmp4v2"},
			toolResolver,
		},
	}, "youtube.com", "youtu.be", "music.youtube.com")
	reg.Register(&Route{
		Name: "instagram",
		Resolvers: []Resolver{
			&InstagramResolver{Client: alternative},
			toolResolver,
		},
	}, "instagram.com")
	reg.Register(&Route{
		Name: "pinterest",
		Resolvers: []Resolver{
			&APIResolver{Client: primary, VideoService: "pinterest", Normalize: NormalizePinterest},
			&APIResolver{Client: secondary, VideoService: "pinterest", Normalize: NormalizePinterest},
			toolResolver,
		},
	}, "pinterest.com", "pin.it")
	reg.Register(&Route{
		Name:  "spotify",
		Match: IsSpotifyTrack,
		Resolvers: []Resolver{
			&APIResolver{Client: primary, VideoService: "spotify", Kind: media.KindAudio},
			&APIResolver{Client: secondary, VideoService: "spotify", Kind: media.KindAudio},
		},
	}, "open.spotify.com")
	reg.RegisterFallback(&Route{
		Name:      "generic",
		Resolvers: []Resolver{direct, toolResolver},
	})

	return &Set{
		Registry: reg,
		VideoSearch: []Searcher{
			&APISearcher{Client: primary, Service: "yt"},
			&APISearcher{Client: secondary, Service: "yt"},
		},
		MusicSearch: []Searcher{
			&APISearcher{Client: primary, Service: "spotify"},
			&APISearcher{Client: secondary, Service: "spotify"},
		},
		Primary:     primary,
		Secondary:   secondary,
		Alternative: alternative,
	}
}
