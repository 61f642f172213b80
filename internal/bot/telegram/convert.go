package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/tg"

	"github.com/byAyes/wbot/internal/core/chat"
)

// toMessage converts an inbound Telegram message. Outgoing messages and
// messages without text are skipped.
func toMessage(e tg.Entities, msg tg.MessageClass) (chat.Message, bool) {
	m, ok := msg.(*tg.Message)
	if !ok || m.Out || strings.TrimSpace(m.Message) == "" {
		return chat.Message{}, false
	}
	conv, ok := conversationID(m.PeerID)
	if !ok {
		return chat.Message{}, false
	}

	out := chat.Message{
		ConversationID: conv,
		MessageID:      strconv.Itoa(m.ID),
		Text:           m.Message,
	}

	sender := m.PeerID
	if from, ok := m.GetFromID(); ok {
		sender = from
	}
	if u, ok := sender.(*tg.PeerUser); ok {
		out.SenderID = strconv.FormatInt(u.UserID, 10)
		if user, ok := e.Users[u.UserID]; ok {
			out.SenderName = displayName(user)
		}
	}

	if h, ok := m.ReplyTo.(*tg.MessageReplyHeader); ok {
		if id, ok := h.GetReplyToMsgID(); ok {
			out.Quoted = &chat.Quoted{ID: strconv.Itoa(id)}
		}
	}
	return out, true
}

func displayName(u *tg.User) string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// sentID is sentMessageID as a chat message ID. A send whose reply
// carries no recognisable message is an error, since later edits and
// deletes would target message 0.
func sentID(updates tg.UpdatesClass) (string, error) {
	id, ok := sentMessageID(updates)
	if !ok {
		return "", fmt.Errorf("no message id in %T", updates)
	}
	return strconv.Itoa(id), nil
}

// sentMessageID finds the ID of the message created by a send call
func sentMessageID(updates tg.UpdatesClass) (int, bool) {
	var list []tg.UpdateClass
	switch u := updates.(type) {
	case *tg.UpdateShortSentMessage:
		return u.ID, true
	case *tg.Updates:
		list = u.Updates
	case *tg.UpdatesCombined:
		list = u.Updates
	default:
		return 0, false
	}

	for _, upd := range list {
		switch v := upd.(type) {
		case *tg.UpdateMessageID:
			return v.ID, true
		case *tg.UpdateNewMessage:
			if m, ok := v.Message.(*tg.Message); ok {
				return m.ID, true
			}
		case *tg.UpdateNewChannelMessage:
			if m, ok := v.Message.(*tg.Message); ok {
				return m.ID, true
			}
		}
	}
	return 0, false
}
