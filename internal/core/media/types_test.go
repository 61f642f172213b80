package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Imagine", "Imagine"},
		{"separators", "AC/DC: Back in Black", "AC-DC- Back in Black"},
		{"stars from markdown", "*Imagine*", "Imagine"},
		{"embedded url", "watch https://youtu.be/x now", "watch now"},
		{"dots and spaces", "  ..hidden.. ", "hidden"},
		{"newlines", "line one\nline two", "line one line two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenameTruncatesRunes(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("á", 100))
	assert.Equal(t, 60, len([]rune(got)))
}

func TestRequest(t *testing.T) {
	r := NewRequest("  https://youtu.be/abc ", KindUnspecified, "c1", "m1")
	assert.NotEmpty(t, r.ID)
	assert.True(t, r.IsURL())
	assert.Equal(t, KindVideo, r.Kind.OrVideo())

	d := r.WithSource("Imagine John Lennon")
	assert.Equal(t, r.ID, d.ID)
	assert.False(t, d.IsURL())
	assert.Equal(t, "https://youtu.be/abc", r.Source)

	assert.NotEqual(t, r.ID, NewRequest("x", KindAudio, "c1", "m2").ID)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("http://example.com/a.mp4"))
	assert.False(t, IsURL("ftp://example.com/a.mp4"))
	assert.False(t, IsURL("imagine john lennon"))
	assert.False(t, IsURL("https://"))
}

func TestKindFormats(t *testing.T) {
	assert.Equal(t, "mp3", KindAudio.TargetFormat())
	assert.Equal(t, "mp4", KindVideo.TargetFormat())
	assert.Equal(t, "audio/mpeg", KindAudio.MIME())
}
