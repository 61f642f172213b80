package bot

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byAyes/wbot/internal/core/birthday"
	"github.com/byAyes/wbot/internal/core/chat"
	"github.com/byAyes/wbot/internal/core/confirm"
	"github.com/byAyes/wbot/internal/core/i18n"
	"github.com/byAyes/wbot/internal/core/jobs"
	"github.com/byAyes/wbot/internal/core/media"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text     string
		wantCmd  Command
		wantArgs string
	}{
		{".p https://youtu.be/abc", CmdVideo, "https://youtu.be/abc"},
		{"  .PLAY   imagine   lennon ", CmdVideo, "imagine lennon"},
		{".d", CmdVideo, ""},
		{".descargar https://x.y/z.mp4", CmdVideo, "https://x.y/z.mp4"},
		{".a imagine", CmdAudio, "imagine"},
		{".spotify imagine", CmdMusic, "imagine"},
		{".s imagine", CmdMusic, "imagine"},
		{".sp imagine", CmdMusic, "imagine"},
		{".yt imagine", CmdSearch, "imagine"},
		{".bd 15-08-1990", CmdBirthdaySet, "15-08-1990"},
		{".cumpleaños", CmdBirthdayList, ""},
		{".CUMPLEAÑOS", CmdBirthdayList, ""},
		{".reset", CmdReset, ""},
		{".reset now", CmdNone, ""},
		{"si", CmdReply, ""},
		{"Sí!", CmdReply, ""},
		{"audio", CmdReply, ""},
		{"VIDEO", CmdReply, ""},
		{".spam", CmdNone, ""},
		{".playlist x", CmdNone, ""},
		{"hola .p", CmdNone, ""},
		{"", CmdNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args := Classify(tt.text)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

type fakeQueue struct {
	mu   sync.Mutex
	reqs []media.Request
	err  error
}

func (q *fakeQueue) Add(_ context.Context, req media.Request) (*jobs.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.reqs = append(q.reqs, req)
	return &jobs.Job{ID: req.ID, Status: jobs.StatusQueued}, nil
}

type fakePipeline struct {
	lookups  []media.Request
	suggests []media.Request
	confirms []*confirm.Resolution
}

func (p *fakePipeline) Lookup(_ context.Context, req media.Request) error {
	p.lookups = append(p.lookups, req)
	return nil
}

func (p *fakePipeline) Suggest(_ context.Context, req media.Request) error {
	p.suggests = append(p.suggests, req)
	return nil
}

func (p *fakePipeline) ConfirmRequest(_ context.Context, msg chat.Message, res *confirm.Resolution) (media.Request, bool) {
	p.confirms = append(p.confirms, res)
	return media.NewRequest(res.Fields.Query(), media.KindAudio, msg.ConversationID, msg.MessageID), true
}

type fakeRestarter struct {
	calls int
	err   error
}

func (r *fakeRestarter) Restart() error {
	r.calls++
	return r.err
}

type fixture struct {
	bot      *Bot
	rec      *chat.Recorder
	queue    *fakeQueue
	pipe     *fakePipeline
	tracker  *confirm.Tracker
	restarts *fakeRestarter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := birthday.NewStore(filepath.Join(t.TempDir(), "birthdays.json"))
	require.NoError(t, err)

	f := &fixture{
		rec:      &chat.Recorder{},
		queue:    &fakeQueue{},
		pipe:     &fakePipeline{},
		tracker:  confirm.NewTracker(time.Minute, nil),
		restarts: &fakeRestarter{},
	}
	t.Cleanup(f.tracker.Stop)
	f.bot = New(f.rec, i18n.T("es"), f.pipe, f.queue, f.tracker, store, f.restarts)
	f.bot.now = func() time.Time { return time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC) }
	return f
}

func msg(text string) chat.Message {
	return chat.Message{ConversationID: "c1", MessageID: "m1", SenderID: "u1", SenderName: "ana", Text: text}
}

func TestFetchCommandsQueueRequests(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleMessage(context.Background(), msg(".p https://youtu.be/abc"))
	f.bot.HandleMessage(context.Background(), msg(".a imagine"))

	require.Len(t, f.queue.reqs, 2)
	assert.Equal(t, media.KindVideo, f.queue.reqs[0].Kind)
	assert.Equal(t, "https://youtu.be/abc", f.queue.reqs[0].Source)
	assert.Equal(t, "m1", f.queue.reqs[0].MessageID)
	assert.Equal(t, media.KindAudio, f.queue.reqs[1].Kind)
	assert.NotEqual(t, f.queue.reqs[0].ID, f.queue.reqs[1].ID)
}

func TestEmptyArgumentsGetUsage(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleMessage(context.Background(), msg(".p"))
	f.bot.HandleMessage(context.Background(), msg(".spotify"))
	f.bot.HandleMessage(context.Background(), msg(".yt"))

	assert.Empty(t, f.queue.reqs)
	assert.Empty(t, f.pipe.lookups)
	assert.Equal(t, []string{f.bot.Text.Media.Usage, f.bot.Text.Music.Usage, f.bot.Text.Search.Usage}, f.rec.Texts())
}

func TestQueueFullIsReported(t *testing.T) {
	f := newFixture(t)
	f.queue.err = jobs.ErrQueueFull
	f.bot.HandleMessage(context.Background(), msg(".p imagine"))

	assert.Equal(t, []string{f.bot.Text.Errors.Generic}, f.rec.Texts())
	reacts := f.rec.Filter("react")
	require.Len(t, reacts, 1)
	assert.Equal(t, chat.ReactionFailed, reacts[0].Text)
}

func TestSearchCommandsCallPipeline(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleMessage(context.Background(), msg(".sp imagine"))
	f.bot.HandleMessage(context.Background(), msg(".yt imagine"))

	require.Len(t, f.pipe.lookups, 1)
	assert.Equal(t, "imagine", f.pipe.lookups[0].Source)
	require.Len(t, f.pipe.suggests, 1)
}

func TestReplyResolvesArmedPrompt(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracker.Arm(confirm.Context{
		ConversationID: "c1",
		PromptID:       "p1",
		Feature:        confirm.FeatureSong,
		Body:           "🎵 *Título:* Imagine\n🎤 *Artista:* John Lennon\n\n¿Quieres descargar la canción? Escribe 'si'",
	})
	require.NoError(t, err)

	reply := msg("sí")
	reply.Quoted = &chat.Quoted{ID: "p1"}
	f.bot.HandleMessage(context.Background(), reply)
	f.bot.HandleMessage(context.Background(), reply)

	require.Len(t, f.pipe.confirms, 1)
	require.Len(t, f.queue.reqs, 1)
	assert.Equal(t, "Imagine John Lennon", f.queue.reqs[0].Source)
}

func TestReplyWithoutPromptIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleMessage(context.Background(), msg("si"))

	assert.Empty(t, f.rec.Calls())
	assert.Empty(t, f.queue.reqs)
}

func TestBirthdaySaveAndUpdate(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleMessage(context.Background(), msg(".bd 15-08-1990"))
	f.bot.HandleMessage(context.Background(), msg(".bd 20-08-1990"))

	assert.Equal(t, []string{
		"¡He guardado tu cumpleaños! @ana, te recordaré el 15 de agosto.",
		"He actualizado tu fecha de cumpleaños a: 20 de agosto de 1990.",
	}, f.rec.Texts())
}

func TestBirthdayValidation(t *testing.T) {
	tests := []struct {
		text string
		want func(i18n.BirthdayTranslations) string
	}{
		{".bd", func(b i18n.BirthdayTranslations) string { return b.Usage }},
		{".bd 1 2", func(b i18n.BirthdayTranslations) string { return b.Usage }},
		{".bd 15/08/1990", func(b i18n.BirthdayTranslations) string { return b.BadDate }},
		{".bd aa-08-1990", func(b i18n.BirthdayTranslations) string { return b.BadChars }},
		{".bd 15-13-1990", func(b i18n.BirthdayTranslations) string { return b.InvalidMonth }},
		{".bd 31-02-1990", func(b i18n.BirthdayTranslations) string { return b.InvalidDay }},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			f := newFixture(t)
			f.bot.HandleMessage(context.Background(), msg(tt.text))
			assert.Equal(t, []string{tt.want(f.bot.Text.Birthday)}, f.rec.Texts())
		})
	}
}

func TestBirthdayList(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleMessage(context.Background(), msg(".cumpleaños"))
	assert.Equal(t, []string{f.bot.Text.Birthday.Empty}, f.rec.Texts())

	_, err := f.bot.Birthdays.Upsert(birthday.Entry{UserID: "u1", Mention: "@ana", Birthday: "20-08-1990"})
	require.NoError(t, err)
	_, err = f.bot.Birthdays.Upsert(birthday.Entry{UserID: "u2", Mention: "@luis", Birthday: "15-08-1985"})
	require.NoError(t, err)

	f.bot.HandleMessage(context.Background(), msg(".cumpleaños"))
	texts := f.rec.Texts()
	require.Len(t, texts, 2)
	assert.Equal(t,
		"🎂 *Próximos Cumpleaños* 🎂\n\n"+
			"🎉 @luis - *15 de agosto* (¡Hoy!)\n"+
			"🎁 @ana - *20 de agosto* (Faltan 5 días)",
		texts[1])
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleMessage(context.Background(), msg(".reset"))
	assert.Equal(t, 1, f.restarts.calls)
	assert.Equal(t, []string{"Reiniciando..."}, f.rec.Texts())

	f.restarts.err = errors.New("no")
	f.bot.HandleMessage(context.Background(), msg(".reset"))
	assert.Equal(t, f.bot.Text.Reset.Failed, f.rec.Texts()[2])
}

func TestProcessRestarter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRestarter(cancel)
	assert.False(t, r.Requested())

	require.NoError(t, r.Restart())
	assert.True(t, r.Requested())
	assert.Error(t, ctx.Err())

	assert.Error(t, (&ProcessRestarter{}).Restart())
}

func TestProcessRestarterSpawn(t *testing.T) {
	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	r := &ProcessRestarter{
		Executable: func() (string, error) { return truePath, nil },
	}
	pid, err := r.Spawn()
	require.NoError(t, err)
	assert.Positive(t, pid)

	r.Executable = func() (string, error) { return "", errors.New("gone") }
	_, err = r.Spawn()
	assert.Error(t, err)
}
