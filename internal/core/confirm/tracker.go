// Package confirm keeps the prompts that wait for a yes/audio/video reply.
// Contexts live in memory, keyed by conversation and prompt message, and
// expire on their own after a TTL.
package confirm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/chat"
	"github.com/byAyes/wbot/internal/core/metrics"
)

var (
	// ErrUnmatched means the message answers no armed prompt
	ErrUnmatched = errors.New("no matching confirmation")
	// ErrExpired means the prompt's window closed before the reply
	ErrExpired = errors.New("confirmation expired")
)

// Feature names what a prompt will start once confirmed
type Feature string

const (
	// FeatureSong re-enters the pipeline with "Title Artist" as an audio search
	FeatureSong Feature = "song"
	// FeatureMedia downloads the prompt's URL in the kind the reply picks
	FeatureMedia Feature = "media"
)

// State is the lifecycle of a context
type State string

const (
	StateArmed      State = "armed"
	StateResolved   State = "resolved"
	StateExpired    State = "expired"
	StateSuperseded State = "superseded"
)

// Context is one armed prompt
type Context struct {
	ConversationID string
	PromptID       string
	// RequestID is the message that triggered the prompt
	RequestID string
	SenderID  string
	Feature   Feature
	Body      string
	CreatedAt time.Time
	TTL       time.Duration
	State     State
}

// Target addresses the prompt message itself
func (c Context) Target() chat.Target {
	return chat.Target{ConversationID: c.ConversationID, ReplyTo: c.PromptID}
}

// Resolution is a confirmed prompt with the values needed to act on it
type Resolution struct {
	Context Context
	Fields  Fields
	Reply   Reply
}

type key struct {
	conversation string
	prompt       string
}

type entry struct {
	ctx   Context
	timer *time.Timer
}

// ExpireFunc is called once per context whose TTL elapsed unanswered
type ExpireFunc func(Context)

// Tracker holds armed prompts
type Tracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	entries  map[key]*entry
	onExpire ExpireFunc
	now      func() time.Time
	stopped  bool
}

// NewTracker creates a tracker whose prompts expire after ttl
func NewTracker(ttl time.Duration, onExpire ExpireFunc) *Tracker {
	return &Tracker{
		ttl:      ttl,
		entries:  make(map[key]*entry),
		onExpire: onExpire,
		now:      time.Now,
	}
}

// Arm registers a prompt. An older armed prompt of the same feature in the
// same conversation is superseded and will no longer resolve.
func (t *Tracker) Arm(c Context) (Context, error) {
	if c.ConversationID == "" || c.PromptID == "" {
		return Context{}, fmt.Errorf("confirm: prompt needs a conversation and message id")
	}
	if ExtractFields(c.Body).Empty() {
		return Context{}, fmt.Errorf("confirm: prompt body carries no title or url")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return Context{}, fmt.Errorf("confirm: tracker stopped")
	}

	for k, e := range t.entries {
		if k.conversation == c.ConversationID && e.ctx.Feature == c.Feature && e.ctx.State == StateArmed {
			t.finish(k, e, StateSuperseded)
		}
	}

	c.CreatedAt = t.now()
	c.TTL = t.ttl
	c.State = StateArmed
	k := key{c.ConversationID, c.PromptID}
	e := &entry{ctx: c}
	e.timer = time.AfterFunc(t.ttl, func() { t.expire(k, e) })
	t.entries[k] = e

	log.Debug().Str("component", "confirm").Str("conversation", c.ConversationID).Str("prompt", c.PromptID).Str("feature", string(c.Feature)).Msg("prompt armed")
	return c, nil
}

// Resolve matches an inbound message against the armed prompts. The reply
// has to quote the prompt, or the conversation must hold exactly one armed
// prompt. A context resolves at most once.
func (t *Tracker) Resolve(msg chat.Message) (*Resolution, error) {
	reply := ParseReply(msg.Text)
	if reply == ReplyNone {
		return nil, ErrUnmatched
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	k, e, err := t.find(msg)
	if err != nil {
		return nil, err
	}

	if !replyFits(e.ctx.Feature, reply) {
		return nil, ErrUnmatched
	}
	if t.now().Sub(e.ctx.CreatedAt) >= e.ctx.TTL {
		// The timer has not fired yet; the window is closed all the same
		return nil, ErrExpired
	}

	t.finish(k, e, StateResolved)
	return &Resolution{
		Context: e.ctx,
		Fields:  ExtractFields(e.ctx.Body),
		Reply:   reply,
	}, nil
}

func (t *Tracker) find(msg chat.Message) (key, *entry, error) {
	if msg.Quoted != nil && msg.Quoted.ID != "" {
		k := key{msg.ConversationID, msg.Quoted.ID}
		e, ok := t.entries[k]
		if !ok {
			return key{}, nil, ErrUnmatched
		}
		if e.ctx.State == StateExpired {
			return key{}, nil, ErrExpired
		}
		return k, e, nil
	}

	var (
		foundKey key
		found    *entry
		armed    int
	)
	for k, e := range t.entries {
		if k.conversation != msg.ConversationID || e.ctx.State != StateArmed {
			continue
		}
		armed++
		foundKey, found = k, e
	}
	if armed != 1 {
		return key{}, nil, ErrUnmatched
	}
	return foundKey, found, nil
}

func replyFits(f Feature, r Reply) bool {
	if f == FeatureSong {
		return r == ReplyYes
	}
	return r == ReplyAudio || r == ReplyVideo
}

// finish moves an entry to a terminal state. Expired entries stay for one
// more TTL so late replies are recognised as late rather than unmatched.
// Callers hold t.mu.
func (t *Tracker) finish(k key, e *entry, state State) {
	e.timer.Stop()
	e.ctx.State = state
	metrics.Confirmations.WithLabelValues(string(state)).Inc()
	if state != StateExpired {
		delete(t.entries, k)
		return
	}
	e.timer = time.AfterFunc(t.ttl, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if cur, ok := t.entries[k]; ok && cur == e {
			delete(t.entries, k)
		}
	})
}

func (t *Tracker) expire(k key, e *entry) {
	t.mu.Lock()
	cur, ok := t.entries[k]
	if !ok || cur != e || e.ctx.State != StateArmed || t.stopped {
		t.mu.Unlock()
		return
	}
	t.finish(k, e, StateExpired)
	ctx := e.ctx
	t.mu.Unlock()

	log.Debug().Str("component", "confirm").Str("conversation", ctx.ConversationID).Str("prompt", ctx.PromptID).Msg("prompt expired")
	if t.onExpire != nil {
		t.onExpire(ctx)
	}
}

// Armed returns the number of prompts still waiting for a reply
func (t *Tracker) Armed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.entries {
		if e.ctx.State == StateArmed {
			n++
		}
	}
	return n
}

// Stop cancels every timer. No expiry notices are sent afterwards.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for k, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, k)
	}
}
