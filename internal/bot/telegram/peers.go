package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gotd/td/tg"
)

// Conversation IDs are "user:<id>", "chat:<id>" or "channel:<id>".

func conversationID(peer tg.PeerClass) (string, bool) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return "user:" + strconv.FormatInt(p.UserID, 10), true
	case *tg.PeerChat:
		return "chat:" + strconv.FormatInt(p.ChatID, 10), true
	case *tg.PeerChannel:
		return "channel:" + strconv.FormatInt(p.ChannelID, 10), true
	}
	return "", false
}

func parseConversationID(id string) (kind string, n int64, err error) {
	kind, raw, ok := strings.Cut(id, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed conversation id %q", id)
	}
	n, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed conversation id %q: %w", id, err)
	}
	switch kind {
	case "user", "chat", "channel":
		return kind, n, nil
	}
	return "", 0, fmt.Errorf("unknown conversation kind %q", kind)
}

// peerCache remembers access hashes seen in updates. Telegram needs them
// to address users and channels.
type peerCache struct {
	mu    sync.RWMutex
	peers map[string]tg.InputPeerClass
}

func newPeerCache() *peerCache {
	return &peerCache{peers: make(map[string]tg.InputPeerClass)}
}

func (c *peerCache) remember(e tg.Entities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, u := range e.Users {
		c.peers["user:"+strconv.FormatInt(id, 10)] = &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
	}
	for id := range e.Chats {
		c.peers["chat:"+strconv.FormatInt(id, 10)] = &tg.InputPeerChat{ChatID: id}
	}
	for id, ch := range e.Channels {
		c.peers["channel:"+strconv.FormatInt(id, 10)] = &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
	}
}

// resolve returns the input peer for a conversation. Basic groups need no
// access hash, so they resolve even when never seen.
func (c *peerCache) resolve(conversation string) (tg.InputPeerClass, error) {
	c.mu.RLock()
	p, ok := c.peers[conversation]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	kind, id, err := parseConversationID(conversation)
	if err != nil {
		return nil, err
	}
	if kind == "chat" {
		return &tg.InputPeerChat{ChatID: id}, nil
	}
	return nil, fmt.Errorf("unknown peer %s", conversation)
}
