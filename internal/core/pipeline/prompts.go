package pipeline

import (
	"fmt"
	"strings"

	"github.com/byAyes/wbot/internal/core/i18n"
	"github.com/byAyes/wbot/internal/core/provider"
)

func orUnknown(v, unknown string) string {
	if strings.TrimSpace(v) == "" {
		return unknown
	}
	return v
}

// songPrompt lists a music hit and asks for a yes. The labels are what
// confirm.ExtractFields reads back when the reply arrives.
func songPrompt(t *i18n.Translations, hit *provider.SearchHit) string {
	u := t.Music.Unknown
	var b strings.Builder
	fmt.Fprintf(&b, "🎵 *%s:* %s\n", t.Music.TitleLabel, orUnknown(hit.Title, u))
	fmt.Fprintf(&b, "🎤 *%s:* %s\n", t.Music.ArtistLabel, orUnknown(hit.Author, u))
	fmt.Fprintf(&b, "💺 *%s:* %s\n", t.Music.AlbumLabel, orUnknown(hit.Album, u))
	fmt.Fprintf(&b, "⏳ *%s:* %s\n", t.Music.DurationLabel, orUnknown(hit.Duration, u))
	fmt.Fprintf(&b, "🔗 *%s:* %s\n\n", t.Music.LinkLabel, orUnknown(hit.URL, u))
	b.WriteString(t.Music.Question)
	return b.String()
}

// mediaPrompt lists a video hit and asks for audio or video
func mediaPrompt(t *i18n.Translations, hit *provider.SearchHit) string {
	u := t.Music.Unknown
	var b strings.Builder
	fmt.Fprintf(&b, "🎵 *%s:* %s\n", t.Music.TitleLabel, orUnknown(hit.Title, u))
	fmt.Fprintf(&b, "👤 *%s:* %s\n", t.Search.AuthorLabel, orUnknown(hit.Author, u))
	fmt.Fprintf(&b, "⏳ *%s:* %s\n", t.Music.DurationLabel, orUnknown(hit.Duration, u))
	fmt.Fprintf(&b, "🔗 *%s:* %s\n\n", t.Music.LinkLabel, hit.URL)
	b.WriteString(t.Search.Question)
	return b.String()
}
