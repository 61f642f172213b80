package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/birthday"
	"github.com/byAyes/wbot/internal/core/chat"
	"github.com/byAyes/wbot/internal/core/confirm"
	"github.com/byAyes/wbot/internal/core/i18n"
	"github.com/byAyes/wbot/internal/core/jobs"
	"github.com/byAyes/wbot/internal/core/media"
	"github.com/byAyes/wbot/internal/core/metrics"
)

// Pipeline is the part of pipeline.Pipeline the handlers call directly
type Pipeline interface {
	Lookup(ctx context.Context, req media.Request) error
	Suggest(ctx context.Context, req media.Request) error
	ConfirmRequest(ctx context.Context, msg chat.Message, res *confirm.Resolution) (media.Request, bool)
}

// Enqueuer accepts media requests for background execution
type Enqueuer interface {
	Add(ctx context.Context, req media.Request) (*jobs.Job, error)
}

// Resolver matches replies to armed prompts
type Resolver interface {
	Resolve(msg chat.Message) (*confirm.Resolution, error)
}

// Restarter restarts the process
type Restarter interface {
	Restart() error
}

// Bot dispatches classified messages
type Bot struct {
	Messenger chat.Messenger
	Text      *i18n.Translations
	Pipeline  Pipeline
	Jobs      Enqueuer
	Tracker   Resolver
	Birthdays *birthday.Store
	Restarter Restarter

	now func() time.Time
}

// New creates a bot. Birthdays and Restarter may be nil, which disables
// those commands.
func New(m chat.Messenger, text *i18n.Translations, p Pipeline, q Enqueuer, tracker Resolver, birthdays *birthday.Store, restarter Restarter) *Bot {
	return &Bot{
		Messenger: m,
		Text:      text,
		Pipeline:  p,
		Jobs:      q,
		Tracker:   tracker,
		Birthdays: birthdays,
		Restarter: restarter,
		now:       time.Now,
	}
}

// HandleMessage implements chat.Handler
func (b *Bot) HandleMessage(ctx context.Context, msg chat.Message) {
	cmd, args := Classify(msg.Text)
	if cmd == CmdNone {
		return
	}
	metrics.Commands.WithLabelValues(string(cmd)).Inc()
	log.Debug().
		Str("component", "bot").
		Str("conversation", msg.ConversationID).
		Str("sender", msg.SenderID).
		Str("command", string(cmd)).
		Msg("command received")

	switch cmd {
	case CmdVideo, CmdAudio:
		b.fetch(ctx, msg, cmd, args)
	case CmdMusic:
		b.search(ctx, msg, args, b.Text.Music.Usage, b.Pipeline.Lookup)
	case CmdSearch:
		b.search(ctx, msg, args, b.Text.Search.Usage, b.Pipeline.Suggest)
	case CmdReply:
		b.reply(ctx, msg)
	case CmdBirthdaySet:
		b.saveBirthday(ctx, msg, args)
	case CmdBirthdayList:
		b.listBirthdays(ctx, msg)
	case CmdReset:
		b.reset(ctx, msg)
	}
}

func (b *Bot) send(ctx context.Context, msg chat.Message, text string) {
	if _, err := b.Messenger.SendText(ctx, msg.ReplyTarget(), text); err != nil {
		log.Warn().Err(err).Str("component", "bot").Str("conversation", msg.ConversationID).Msg("failed to send reply")
	}
}

func (b *Bot) enqueue(ctx context.Context, msg chat.Message, req media.Request) {
	job, err := b.Jobs.Add(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("component", "bot").Str("request", req.ID).Msg("failed to queue request")
		b.send(ctx, msg, b.Text.Errors.Generic)
		if err := b.Messenger.React(ctx, msg.ConversationID, msg.MessageID, chat.ReactionFailed); err != nil {
			log.Debug().Err(err).Str("component", "bot").Msg("reaction failed")
		}
		return
	}
	log.Info().Str("component", "bot").Str("job", job.ID).Str("kind", string(req.Kind)).Msg("request queued")
}

func (b *Bot) fetch(ctx context.Context, msg chat.Message, cmd Command, args string) {
	if args == "" {
		b.send(ctx, msg, b.Text.Media.Usage)
		return
	}
	b.enqueue(ctx, msg, media.NewRequest(args, cmd.Kind(), msg.ConversationID, msg.MessageID))
}

func (b *Bot) search(ctx context.Context, msg chat.Message, args, usage string, run func(context.Context, media.Request) error) {
	if args == "" {
		b.send(ctx, msg, usage)
		return
	}
	req := media.NewRequest(args, media.KindUnspecified, msg.ConversationID, msg.MessageID)
	if err := run(ctx, req); err != nil {
		log.Debug().Err(err).Str("component", "bot").Msg("search prompt ended with error")
	}
}

func (b *Bot) reply(ctx context.Context, msg chat.Message) {
	res, err := b.Tracker.Resolve(msg)
	switch {
	case errors.Is(err, confirm.ErrUnmatched), errors.Is(err, confirm.ErrExpired):
		// Replies that answer nothing, or answer too late, are ignored
		log.Debug().Err(err).Str("component", "bot").Str("conversation", msg.ConversationID).Msg("reply ignored")
		return
	case err != nil:
		log.Error().Err(err).Str("component", "bot").Msg("failed to resolve reply")
		return
	}

	req, ok := b.Pipeline.ConfirmRequest(ctx, msg, res)
	if !ok {
		return
	}
	b.enqueue(ctx, msg, req)
}

func (b *Bot) saveBirthday(ctx context.Context, msg chat.Message, args string) {
	t := b.Text.Birthday
	if b.Birthdays == nil {
		return
	}
	parts := strings.Fields(args)
	if len(parts) != 1 {
		b.send(ctx, msg, t.Usage)
		return
	}

	d, err := birthday.ParseDate(parts[0])
	if err != nil {
		switch {
		case errors.Is(err, birthday.ErrBadChars):
			b.send(ctx, msg, t.BadChars)
		case errors.Is(err, birthday.ErrInvalidMonth):
			b.send(ctx, msg, t.InvalidMonth)
		case errors.Is(err, birthday.ErrInvalidDay):
			b.send(ctx, msg, t.InvalidDay)
		default:
			b.send(ctx, msg, t.BadDate)
		}
		return
	}

	month := t.MonthName(d.Month)
	mention := mentionOf(msg)
	updated, err := b.Birthdays.Upsert(birthday.Entry{
		UserID:   msg.SenderID,
		Mention:  mention,
		Birthday: d.String(),
		Month:    month,
	})
	if err != nil {
		log.Error().Err(err).Str("component", "bot").Msg("failed to save birthday")
		b.send(ctx, msg, t.SaveFailed)
		return
	}
	if updated {
		b.send(ctx, msg, fmt.Sprintf(t.Updated, d.Day, month, d.Year))
		return
	}
	b.send(ctx, msg, fmt.Sprintf(t.Saved, mention, d.Day, month))
}

func mentionOf(msg chat.Message) string {
	if msg.SenderName != "" {
		return "@" + strings.TrimPrefix(msg.SenderName, "@")
	}
	return "@" + msg.SenderID
}

func (b *Bot) listBirthdays(ctx context.Context, msg chat.Message) {
	t := b.Text.Birthday
	if b.Birthdays == nil {
		return
	}
	upcoming, err := b.Birthdays.Upcoming(b.now())
	if err != nil {
		log.Error().Err(err).Str("component", "bot").Msg("failed to list birthdays")
		b.send(ctx, msg, t.ListFailed)
		return
	}
	if len(upcoming) == 0 {
		b.send(ctx, msg, t.Empty)
		return
	}

	var sb strings.Builder
	sb.WriteString(t.Header)
	sb.WriteString("\n")
	for _, u := range upcoming {
		sb.WriteString("\n")
		month := t.MonthName(u.Birth.Month)
		if u.Days == 0 {
			fmt.Fprintf(&sb, t.Today, u.Mention, u.Birth.Day, month)
			continue
		}
		fmt.Fprintf(&sb, t.Line, u.Mention, u.Birth.Day, month, u.Days)
	}
	b.send(ctx, msg, sb.String())
}

func (b *Bot) reset(ctx context.Context, msg chat.Message) {
	if b.Restarter == nil {
		return
	}
	b.send(ctx, msg, b.Text.Reset.Restarting)
	log.Warn().Str("component", "bot").Str("sender", msg.SenderID).Msg("restart requested")
	if err := b.Restarter.Restart(); err != nil {
		log.Error().Err(err).Str("component", "bot").Msg("restart failed")
		b.send(ctx, msg, b.Text.Reset.Failed)
	}
}
