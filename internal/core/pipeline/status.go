package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/chat"
)

// status is the single progress message of a request. The first update
// sends it, later updates edit it in place.
type status struct {
	mu       sync.Mutex
	m        chat.Messenger
	target   chat.Target
	id       string
	interval time.Duration
}

func newStatus(m chat.Messenger, target chat.Target, interval time.Duration) *status {
	return &status{m: m, target: target, interval: interval}
}

func (s *status) set(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id == "" {
		id, err := s.m.SendText(ctx, s.target, text)
		if err != nil {
			log.Warn().Err(err).Str("component", "pipeline").Msg("failed to send status message")
			return
		}
		s.id = id
		return
	}
	if err := s.m.EditText(ctx, s.target.ConversationID, s.id, text); err != nil {
		log.Debug().Err(err).Str("component", "pipeline").Msg("failed to edit status message")
	}
}

// animate shows text with a growing ellipsis until the returned stop is
// called. stop waits for the ticker goroutine, so no edit lands after it.
func (s *status) animate(ctx context.Context, text string) (stop func()) {
	s.set(ctx, text)
	if s.interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		dots := 0
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				dots = dots%3 + 1
				s.set(ctx, text+strings.Repeat(".", dots))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
		})
	}
}
