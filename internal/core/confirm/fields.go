package confirm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/byAyes/wbot/internal/core/media"
)

// Fields are the values a prompt body carries
type Fields struct {
	Title  string
	Artist string
	URL    string
}

// Query is the search input the fields stand for: "Title Artist", or the
// raw URL when the prompt has no title.
func (f Fields) Query() string {
	if f.Title != "" {
		return strings.TrimSpace(f.Title + " " + f.Artist)
	}
	return f.URL
}

// Empty reports whether nothing could be extracted
func (f Fields) Empty() bool {
	return f.Title == "" && f.URL == ""
}

var (
	titlePattern  = regexp.MustCompile(`(?mi)^[^\n:]*?(?:t[ií]tulo|title)\**\s*:\s*\**\s*(.+?)\s*$`)
	artistPattern = regexp.MustCompile(`(?mi)^[^\n:]*?(?:artista|autor|artist|author)\**\s*:\s*\**\s*(.+?)\s*$`)
	urlPattern    = regexp.MustCompile(`https?://[^\s*)\]]+`)
)

// ExtractFields reads title, artist and the first URL from a prompt body.
// Markdown emphasis around labels and values is ignored.
func ExtractFields(body string) Fields {
	f := Fields{}
	if m := titlePattern.FindStringSubmatch(body); m != nil {
		f.Title = cleanValue(m[1])
	}
	if m := artistPattern.FindStringSubmatch(body); m != nil {
		f.Artist = cleanValue(m[1])
	}
	f.URL = urlPattern.FindString(body)
	return f
}

func cleanValue(v string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(v), "*_"))
}

// Reply is how an inbound text answers a prompt
type Reply int

const (
	ReplyNone Reply = iota
	ReplyYes
	ReplyAudio
	ReplyVideo
)

// Kind maps an audio/video reply to a media kind
func (r Reply) Kind() media.Kind {
	switch r {
	case ReplyAudio:
		return media.KindAudio
	case ReplyVideo:
		return media.KindVideo
	}
	return media.KindUnspecified
}

// Fold lower-cases s, strips accents and surrounding punctuation.
func Fold(s string) string {
	// transformers keep state, so each call builds its own chain
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.TrimSpace(out))
	return strings.TrimFunc(out, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// ParseReply classifies a message text as a prompt answer.
func ParseReply(text string) Reply {
	switch Fold(text) {
	case "si", "yes":
		return ReplyYes
	case "audio":
		return ReplyAudio
	case "video":
		return ReplyVideo
	}
	return ReplyNone
}
