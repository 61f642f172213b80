package chat

import (
	"context"
	"fmt"
	"sync"
)

// Sent is one call recorded by Recorder
type Sent struct {
	Op             string // "text", "edit", "media", "react"
	ConversationID string
	MessageID      string
	ReplyTo        string
	Text           string
	Media          *Media
}

// Recorder is an in-memory Messenger. The console adapter and tests build on it.
type Recorder struct {
	mu     sync.Mutex
	nextID int
	calls  []Sent

	// FailMedia makes SendMedia return this error
	FailMedia error
	// OnMedia runs before SendMedia returns, while the file still exists
	OnMedia func(m Media)
}

func (r *Recorder) id() string {
	r.nextID++
	return fmt.Sprintf("out-%d", r.nextID)
}

func (r *Recorder) SendText(_ context.Context, to Target, text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.id()
	r.calls = append(r.calls, Sent{Op: "text", ConversationID: to.ConversationID, MessageID: id, ReplyTo: to.ReplyTo, Text: text})
	return id, nil
}

func (r *Recorder) EditText(_ context.Context, conversationID, messageID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Sent{Op: "edit", ConversationID: conversationID, MessageID: messageID, Text: text})
	return nil
}

func (r *Recorder) SendMedia(_ context.Context, to Target, m Media) (string, error) {
	if r.OnMedia != nil {
		r.OnMedia(m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailMedia != nil {
		return "", r.FailMedia
	}
	id := r.id()
	mc := m
	r.calls = append(r.calls, Sent{Op: "media", ConversationID: to.ConversationID, MessageID: id, ReplyTo: to.ReplyTo, Text: m.Caption, Media: &mc})
	return id, nil
}

func (r *Recorder) React(_ context.Context, conversationID, messageID, emoji string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Sent{Op: "react", ConversationID: conversationID, MessageID: messageID, Text: emoji})
	return nil
}

// Calls returns a copy of everything recorded so far
func (r *Recorder) Calls() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.calls))
	copy(out, r.calls)
	return out
}

// Filter returns recorded calls of one op
func (r *Recorder) Filter(op string) []Sent {
	var out []Sent
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Texts returns the text of every send and edit, in order
func (r *Recorder) Texts() []string {
	var out []string
	for _, c := range r.Calls() {
		if c.Op == "text" || c.Op == "edit" {
			out = append(out, c.Text)
		}
	}
	return out
}
