// Package delivery sends finished artifacts back to the conversation.
package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/chat"
	"github.com/byAyes/wbot/internal/core/media"
	"github.com/byAyes/wbot/internal/core/metrics"
)

// DefaultInlineLimit is the size from which a video goes out as a document
const DefaultInlineLimit int64 = 15 * 1024 * 1024

// Router picks the presentation of an artifact by kind and size
type Router struct {
	Messenger chat.Messenger
	// InlineLimit is compared with >=, so a file of exactly this size is a document
	InlineLimit int64
	// SizeNotice is a format string taking the size in MB
	SizeNotice string
}

// NewRouter creates a router. A non-positive limit uses DefaultInlineLimit.
func NewRouter(m chat.Messenger, inlineLimit int64, sizeNotice string) *Router {
	if inlineLimit <= 0 {
		inlineLimit = DefaultInlineLimit
	}
	return &Router{Messenger: m, InlineLimit: inlineLimit, SizeNotice: sizeNotice}
}

// Mode reports how an artifact of this kind and size is sent
func (r *Router) Mode(kind media.Kind, size int64) chat.MediaKind {
	if kind == media.KindAudio {
		return chat.MediaAudio
	}
	if size >= r.InlineLimit {
		return chat.MediaDocument
	}
	return chat.MediaVideo
}

// Deliver sends art to target and removes the file afterwards, whatever the
// outcome of the send.
func (r *Router) Deliver(ctx context.Context, target chat.Target, art *media.Artifact, caption string) (err error) {
	defer func() {
		if rmErr := os.Remove(art.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn().Err(rmErr).Str("component", "delivery").Str("path", art.Path).Msg("failed to remove delivered file")
		}
	}()

	info, err := os.Stat(art.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", media.ErrDeliveryFailed, err)
	}
	art.Size = info.Size()

	mode := r.Mode(art.Kind, art.Size)
	m := chat.Media{
		Kind:    mode,
		Path:    art.Path,
		Caption: caption,
		MIME:    art.Kind.OrVideo().MIME(),
	}

	if mode == chat.MediaDocument {
		if r.SizeNotice != "" {
			notice := fmt.Sprintf(r.SizeNotice, float64(art.Size)/(1024*1024))
			if _, err := r.Messenger.SendText(ctx, target, notice); err != nil {
				log.Warn().Err(err).Str("component", "delivery").Msg("failed to send size notice")
			}
		}
		m.Filename = documentName(art)
	}

	if _, err := r.Messenger.SendMedia(ctx, target, m); err != nil {
		return fmt.Errorf("%w: %v", media.ErrDeliveryFailed, err)
	}

	metrics.Deliveries.WithLabelValues(string(mode)).Inc()
	metrics.DeliveredBytes.Add(float64(art.Size))
	log.Info().
		Str("component", "delivery").
		Str("conversation", target.ConversationID).
		Str("mode", string(mode)).
		Int64("bytes", art.Size).
		Msg("artifact delivered")
	return nil
}

func documentName(art *media.Artifact) string {
	ext := art.Format
	if ext == "" {
		ext = art.Kind.OrVideo().TargetFormat()
	}
	name := media.SanitizeFilename(art.Title)
	if name == "" {
		name = "video"
	}
	if filepath.Ext(name) == "."+ext {
		return name
	}
	return name + "." + ext
}
