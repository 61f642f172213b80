// Package telegram connects the bot to Telegram over MTProto with a bot
// token, using gotd.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/chat"
)

// Config holds the bot credentials
type Config struct {
	AppID       int
	AppHash     string
	BotToken    string
	SessionFile string
}

func (c Config) validate() error {
	switch {
	case c.AppID == 0 || c.AppHash == "":
		return errors.New("telegram app id and hash are required")
	case c.BotToken == "":
		return errors.New("telegram bot token is required")
	case c.SessionFile == "":
		return errors.New("telegram session file is required")
	}
	return nil
}

// Adapter is a chat.Messenger backed by a Telegram bot account
type Adapter struct {
	cfg     Config
	client  *telegram.Client
	peers   *peerCache
	handler chat.Handler

	mu    sync.RWMutex
	api   *tg.Client
	base  context.Context
	ready chan struct{}
	wg    sync.WaitGroup
}

// New creates an adapter. Inbound messages go to handler, each on its own
// goroutine.
func New(cfg Config, handler chat.Handler) (*Adapter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SessionFile), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	a := &Adapter{
		cfg:     cfg,
		peers:   newPeerCache(),
		handler: handler,
		ready:   make(chan struct{}),
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		a.dispatch(ctx, e, u.Message)
		return nil
	})
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		a.dispatch(ctx, e, u.Message)
		return nil
	})

	a.client = telegram.NewClient(cfg.AppID, cfg.AppHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionFile},
		UpdateHandler:  dispatcher,
	})
	return a, nil
}

// SetHandler replaces the inbound handler. Call before Run.
func (a *Adapter) SetHandler(h chat.Handler) {
	a.handler = h
}

// dispatch hands a message to the handler under the adapter's run context,
// which outlives the update callback.
func (a *Adapter) dispatch(_ context.Context, e tg.Entities, raw tg.MessageClass) {
	a.peers.remember(e)
	msg, ok := toMessage(e, raw)
	if !ok || a.handler == nil {
		return
	}
	a.mu.RLock()
	ctx := a.base
	a.mu.RUnlock()
	if ctx == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("component", "telegram").Interface("panic", r).Msg("handler panicked")
			}
		}()
		a.handler.HandleMessage(ctx, msg)
	}()
}

// Run connects, logs in with the bot token when the session is not yet
// authorized, and serves updates until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	a.mu.Lock()
	a.base = ctx
	a.mu.Unlock()

	err := a.client.Run(ctx, func(ctx context.Context) error {
		status, err := a.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to check auth status: %w", err)
		}
		if !status.Authorized {
			if _, err := a.client.Auth().Bot(ctx, a.cfg.BotToken); err != nil {
				return fmt.Errorf("bot login failed: %w", err)
			}
		}

		self, err := a.client.Self(ctx)
		if err != nil {
			return fmt.Errorf("failed to get bot account: %w", err)
		}
		log.Info().Str("component", "telegram").Str("username", self.Username).Int64("id", self.ID).Msg("connected to Telegram")

		a.mu.Lock()
		a.api = a.client.API()
		a.mu.Unlock()
		close(a.ready)

		<-ctx.Done()
		return ctx.Err()
	})
	a.wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *Adapter) raw() (*tg.Client, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.api == nil {
		return nil, errors.New("telegram client is not connected")
	}
	return a.api, nil
}

func replyTo(id string) tg.InputReplyToClass {
	n, err := strconv.Atoi(id)
	if id == "" || err != nil {
		return nil
	}
	return &tg.InputReplyToMessage{ReplyToMsgID: n}
}

func messageID(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("malformed message id %q: %w", id, err)
	}
	return n, nil
}

// SendText implements chat.Messenger
func (a *Adapter) SendText(ctx context.Context, to chat.Target, text string) (string, error) {
	api, err := a.raw()
	if err != nil {
		return "", err
	}
	peer, err := a.peers.resolve(to.ConversationID)
	if err != nil {
		return "", err
	}

	req := &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  text,
		RandomID: rand.Int64(),
	}
	if r := replyTo(to.ReplyTo); r != nil {
		req.SetReplyTo(r)
	}
	updates, err := api.MessagesSendMessage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	id, err := sentID(updates)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return id, nil
}

// EditText implements chat.Messenger
func (a *Adapter) EditText(ctx context.Context, conversationID, msgID, text string) error {
	api, err := a.raw()
	if err != nil {
		return err
	}
	peer, err := a.peers.resolve(conversationID)
	if err != nil {
		return err
	}
	id, err := messageID(msgID)
	if err != nil {
		return err
	}

	req := &tg.MessagesEditMessageRequest{Peer: peer, ID: id}
	req.SetMessage(text)
	if _, err := api.MessagesEditMessage(ctx, req); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// SendMedia implements chat.Messenger. The file is uploaded in parts and
// sent as a video, an audio track or a plain document.
func (a *Adapter) SendMedia(ctx context.Context, to chat.Target, m chat.Media) (string, error) {
	api, err := a.raw()
	if err != nil {
		return "", err
	}
	peer, err := a.peers.resolve(to.ConversationID)
	if err != nil {
		return "", err
	}

	file, err := uploader.NewUploader(api).FromPath(ctx, m.Path)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(m.Path), err)
	}

	doc := &tg.InputMediaUploadedDocument{
		File:       file,
		MimeType:   m.MIME,
		Attributes: documentAttributes(m),
	}
	if m.Kind == chat.MediaDocument {
		doc.SetForceFile(true)
	}

	req := &tg.MessagesSendMediaRequest{
		Peer:     peer,
		Media:    doc,
		Message:  m.Caption,
		RandomID: rand.Int64(),
	}
	if r := replyTo(to.ReplyTo); r != nil {
		req.SetReplyTo(r)
	}
	updates, err := api.MessagesSendMedia(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send media: %w", err)
	}
	id, err := sentID(updates)
	if err != nil {
		return "", fmt.Errorf("send media: %w", err)
	}
	return id, nil
}

func documentAttributes(m chat.Media) []tg.DocumentAttributeClass {
	name := m.Filename
	if name == "" {
		name = filepath.Base(m.Path)
	}
	attrs := []tg.DocumentAttributeClass{&tg.DocumentAttributeFilename{FileName: name}}
	switch m.Kind {
	case chat.MediaVideo:
		attrs = append(attrs, &tg.DocumentAttributeVideo{SupportsStreaming: true})
	case chat.MediaAudio:
		attrs = append(attrs, &tg.DocumentAttributeAudio{})
	}
	return attrs
}

// React implements chat.Messenger
func (a *Adapter) React(ctx context.Context, conversationID, msgID, emoji string) error {
	api, err := a.raw()
	if err != nil {
		return err
	}
	peer, err := a.peers.resolve(conversationID)
	if err != nil {
		return err
	}
	id, err := messageID(msgID)
	if err != nil {
		return err
	}

	req := &tg.MessagesSendReactionRequest{Peer: peer, MsgID: id}
	req.SetReaction([]tg.ReactionClass{&tg.ReactionEmoji{Emoticon: emoji}})
	if _, err := api.MessagesSendReaction(ctx, req); err != nil {
		return fmt.Errorf("send reaction: %w", err)
	}
	return nil
}

// Ready is closed once the bot is logged in
func (a *Adapter) Ready() <-chan struct{} {
	return a.ready
}
