package confirm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byAyes/wbot/internal/core/chat"
	"github.com/byAyes/wbot/internal/core/media"
)

const songPrompt = "🎵 *Título:* Imagine\n🎤 *Artista:* John Lennon\n💺 *Álbum:* Imagine\n⏳ *Duración:* 3:03\n🔗 *Enlace:* https://open.spotify.com/track/7pKfPomDEeI4TPT6EOYjn9\n\n¿Quieres descargar la canción? Escribe 'si'"

const mediaPrompt = "🎵 *Título:* Imagine\n👤 *Autor:* John Lennon\n⏳ *Duración:* 3:04\n🔗 *Enlace:* https://youtu.be/YkgkThdzX-8\n\n¿Descargar como audio o video? Responde \"audio\" o \"video\"."

func reply(conv, text, quoted string) chat.Message {
	m := chat.Message{ConversationID: conv, MessageID: "r-" + text, Text: text}
	if quoted != "" {
		m.Quoted = &chat.Quoted{ID: quoted}
	}
	return m
}

func TestExtractFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Fields
	}{
		{
			name: "song prompt with markdown",
			body: songPrompt,
			want: Fields{Title: "Imagine", Artist: "John Lennon", URL: "https://open.spotify.com/track/7pKfPomDEeI4TPT6EOYjn9"},
		},
		{
			name: "plain labels",
			body: "Título: Imagine\nArtista: John Lennon",
			want: Fields{Title: "Imagine", Artist: "John Lennon"},
		},
		{
			name: "search prompt uses Autor",
			body: mediaPrompt,
			want: Fields{Title: "Imagine", Artist: "John Lennon", URL: "https://youtu.be/YkgkThdzX-8"},
		},
		{
			name: "url only",
			body: "Enlace: https://example.com/a.mp4",
			want: Fields{URL: "https://example.com/a.mp4"},
		},
		{
			name: "nothing",
			body: "hola",
			want: Fields{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFields(tt.body))
		})
	}
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "Imagine John Lennon", Fields{Title: "Imagine", Artist: "John Lennon"}.Query())
	assert.Equal(t, "Imagine", Fields{Title: "Imagine"}.Query())
	assert.Equal(t, "https://x.y/z", Fields{URL: "https://x.y/z"}.Query())
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		text string
		want Reply
	}{
		{"si", ReplyYes},
		{"Sí", ReplyYes},
		{"  SI! ", ReplyYes},
		{"¡sí!", ReplyYes},
		{"Audio", ReplyAudio},
		{"video.", ReplyVideo},
		{"si quiero", ReplyNone},
		{"no", ReplyNone},
		{"", ReplyNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseReply(tt.text), tt.text)
	}
	assert.Equal(t, media.KindAudio, ReplyAudio.Kind())
	assert.Equal(t, media.KindUnspecified, ReplyYes.Kind())
}

func TestQuotedReplyResolvesOnce(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	defer tr.Stop()

	_, err := tr.Arm(Context{ConversationID: "c1", PromptID: "p1", Feature: FeatureSong, Body: songPrompt})
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Armed())

	res, err := tr.Resolve(reply("c1", "Sí", "p1"))
	require.NoError(t, err)
	assert.Equal(t, "Imagine John Lennon", res.Fields.Query())
	assert.Equal(t, StateResolved, res.Context.State)
	assert.Equal(t, ReplyYes, res.Reply)

	_, err = tr.Resolve(reply("c1", "si", "p1"))
	assert.ErrorIs(t, err, ErrUnmatched)
	assert.Zero(t, tr.Armed())
}

func TestExpiryNotifiesAndLateReplyIsNoop(t *testing.T) {
	expired := make(chan Context, 1)
	tr := NewTracker(20*time.Millisecond, func(c Context) { expired <- c })
	defer tr.Stop()

	_, err := tr.Arm(Context{ConversationID: "c1", PromptID: "p1", Feature: FeatureSong, Body: songPrompt})
	require.NoError(t, err)

	select {
	case c := <-expired:
		assert.Equal(t, "p1", c.PromptID)
		assert.Equal(t, StateExpired, c.State)
	case <-time.After(2 * time.Second):
		t.Fatal("expiry notice never fired")
	}

	_, err = tr.Resolve(reply("c1", "si", "p1"))
	assert.ErrorIs(t, err, ErrExpired)

	_, err = tr.Resolve(reply("c1", "si", ""))
	assert.ErrorIs(t, err, ErrUnmatched)
}

func TestResolveChecksWindowBeforeTimerFires(t *testing.T) {
	tr := NewTracker(time.Hour, nil)
	defer tr.Stop()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	_, err := tr.Arm(Context{ConversationID: "c1", PromptID: "p1", Feature: FeatureSong, Body: songPrompt})
	require.NoError(t, err)

	tr.now = func() time.Time { return base.Add(time.Hour) }
	_, err = tr.Resolve(reply("c1", "si", "p1"))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestUnquotedReplyNeedsExactlyOneArmedPrompt(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	defer tr.Stop()

	_, err := tr.Arm(Context{ConversationID: "c1", PromptID: "p1", Feature: FeatureSong, Body: songPrompt})
	require.NoError(t, err)
	_, err = tr.Arm(Context{ConversationID: "c1", PromptID: "p2", Feature: FeatureMedia, Body: mediaPrompt})
	require.NoError(t, err)

	_, err = tr.Resolve(reply("c1", "si", ""))
	assert.ErrorIs(t, err, ErrUnmatched, "two armed prompts are ambiguous")

	res, err := tr.Resolve(reply("c1", "video", "p2"))
	require.NoError(t, err)
	assert.Equal(t, media.KindVideo, res.Reply.Kind())
	assert.Equal(t, "https://youtu.be/YkgkThdzX-8", res.Fields.URL)

	res, err = tr.Resolve(reply("c1", "si", ""))
	require.NoError(t, err)
	assert.Equal(t, "p1", res.Context.PromptID)

	_, err = tr.Resolve(reply("c2", "si", ""))
	assert.ErrorIs(t, err, ErrUnmatched)
}

func TestReplyMustFitFeature(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	defer tr.Stop()

	_, err := tr.Arm(Context{ConversationID: "c1", PromptID: "p1", Feature: FeatureSong, Body: songPrompt})
	require.NoError(t, err)

	_, err = tr.Resolve(reply("c1", "audio", "p1"))
	assert.ErrorIs(t, err, ErrUnmatched)
	_, err = tr.Resolve(reply("c1", "gracias", "p1"))
	assert.ErrorIs(t, err, ErrUnmatched)
	assert.Equal(t, 1, tr.Armed())
}

func TestNewerPromptSupersedesOlder(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	defer tr.Stop()

	_, err := tr.Arm(Context{ConversationID: "c1", PromptID: "p1", Feature: FeatureSong, Body: songPrompt})
	require.NoError(t, err)
	_, err = tr.Arm(Context{ConversationID: "c1", PromptID: "p2", Feature: FeatureSong, Body: songPrompt})
	require.NoError(t, err)

	_, err = tr.Resolve(reply("c1", "si", "p1"))
	assert.ErrorIs(t, err, ErrUnmatched)

	res, err := tr.Resolve(reply("c1", "si", "p2"))
	require.NoError(t, err)
	assert.Equal(t, "p2", res.Context.PromptID)
}

func TestArmRejectsBodiesWithoutFields(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	defer tr.Stop()

	_, err := tr.Arm(Context{ConversationID: "c1", PromptID: "p1", Feature: FeatureSong, Body: "¿Quieres descargar la canción?"})
	assert.Error(t, err)
	_, err = tr.Arm(Context{ConversationID: "c1", Feature: FeatureSong, Body: songPrompt})
	assert.Error(t, err)
}

func TestStopSuppressesExpiry(t *testing.T) {
	fired := make(chan struct{}, 1)
	tr := NewTracker(10*time.Millisecond, func(Context) { fired <- struct{}{} })

	_, err := tr.Arm(Context{ConversationID: "c1", PromptID: "p1", Feature: FeatureSong, Body: songPrompt})
	require.NoError(t, err)
	tr.Stop()

	select {
	case <-fired:
		t.Fatal("expiry fired after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}
