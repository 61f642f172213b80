// Package chat is the platform-neutral view of the messaging channel the bot
// talks through.
package chat

import "context"

// Reactions used to mark the state of a command message
const (
	ReactionWorking = "⌛"
	ReactionDone    = "✅"
	ReactionFailed  = "❌"
)

// Quoted is the message an inbound message replies to
type Quoted struct {
	ID   string
	Text string
}

// Message is one inbound chat message
type Message struct {
	ConversationID string
	MessageID      string
	SenderID       string
	SenderName     string
	Text           string
	Quoted         *Quoted
}

// Target addresses a reply: the conversation and, optionally, the message it quotes
type Target struct {
	ConversationID string
	ReplyTo        string
}

// ReplyTarget returns a Target that quotes m.
func (m Message) ReplyTarget() Target {
	return Target{ConversationID: m.ConversationID, ReplyTo: m.MessageID}
}

// MediaKind is how a file is presented by the channel
type MediaKind string

const (
	MediaAudio    MediaKind = "audio"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// Media is an outbound file
type Media struct {
	Kind     MediaKind
	Path     string
	Caption  string
	MIME     string
	Filename string
}

// Messenger is what the pipeline and command handlers need from a channel.
// Message IDs are opaque strings owned by the adapter.
type Messenger interface {
	SendText(ctx context.Context, to Target, text string) (string, error)
	EditText(ctx context.Context, conversationID, messageID, text string) error
	SendMedia(ctx context.Context, to Target, m Media) (string, error)
	React(ctx context.Context, conversationID, messageID, emoji string) error
}

// Handler consumes inbound messages
type Handler interface {
	HandleMessage(ctx context.Context, msg Message)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, msg Message)

func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) { f(ctx, msg) }
