package media

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Kind is the media flavour a request asks for
type Kind string

const (
	KindUnspecified Kind = ""
	KindAudio       Kind = "audio"
	KindVideo       Kind = "video"
)

// OrVideo resolves an unspecified kind to video, the default of every
// fetch command.
func (k Kind) OrVideo() Kind {
	if k == KindUnspecified {
		return KindVideo
	}
	return k
}

// TargetFormat is the container delivered for this kind
func (k Kind) TargetFormat() string {
	if k == KindAudio {
		return "mp3"
	}
	return "mp4"
}

// MIME is the content type sent with a delivered artifact of this kind
func (k Kind) MIME() string {
	if k == KindAudio {
		return "audio/mpeg"
	}
	return "video/mp4"
}

// Request is one user ask. It is a value and is never modified after
// NewRequest; derived requests are built with WithSource.
type Request struct {
	ID             string
	Source         string
	Kind           Kind
	ConversationID string
	MessageID      string
}

// NewRequest builds a request with a fresh ID. The ID also namespaces the
// request's scratch workspace.
func NewRequest(source string, kind Kind, conversationID, messageID string) Request {
	return Request{
		ID:             uuid.NewString(),
		Source:         strings.TrimSpace(source),
		Kind:           kind,
		ConversationID: conversationID,
		MessageID:      messageID,
	}
}

// WithSource returns a copy pointing at a different source, keeping the ID.
func (r Request) WithSource(source string) Request {
	r.Source = source
	return r
}

// IsURL reports whether Source is an absolute http(s) URL.
func (r Request) IsURL() bool {
	return IsURL(r.Source)
}

// IsURL reports whether s is an absolute http(s) URL.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Artifact is a file on local disk produced by acquisition. Validated is
// false until probing succeeds.
type Artifact struct {
	Path      string
	Kind      Kind
	Format    string
	Size      int64
	Title     string
	Validated bool
}

var (
	// ErrArtifactInvalid means the acquired file failed probing and was removed.
	ErrArtifactInvalid = errors.New("artifact failed validation")
	// ErrTranscodeFailed means the encoder could not produce the target format.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrDeliveryFailed means the messaging channel rejected the send.
	ErrDeliveryFailed = errors.New("delivery failed")
)

var (
	urlRegex   = regexp.MustCompile(`https?://[^\s]+`)
	spaceRegex = regexp.MustCompile(`\s+`)
)

// SanitizeFilename turns a title into something safe to use as a document name
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
		"\n", " ",
		"\r", "",
	)
	result := replacer.Replace(name)
	result = urlRegex.ReplaceAllString(result, "")
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	result = spaceRegex.ReplaceAllString(result, " ")

	// 60 runes keeps multi-byte titles under the 255 byte filename limit
	const maxRunes = 60
	runes := []rune(result)
	if len(runes) > maxRunes {
		result = string(runes[:maxRunes])
	}

	return strings.TrimSpace(result)
}
