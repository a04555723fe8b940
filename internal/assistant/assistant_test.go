package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/task-assistant/internal/compose"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/nlp"
	"github.com/nhle/task-assistant/internal/store"
	"github.com/nhle/task-assistant/internal/testutil"
)

type sentMessage struct {
	Channel model.Channel
	To      string
	Text    string
}

// fakeOutbound records messages; sendFn, when set, decides the result.
type fakeOutbound struct {
	mu     sync.Mutex
	sent   []sentMessage
	sendFn func(ch model.Channel, to, text string) error
}

func (f *fakeOutbound) Send(_ context.Context, ch model.Channel, to, text string) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentMessage{Channel: ch, To: to, Text: text})
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ch, to, text)
	}
	return nil
}

func (f *fakeOutbound) last(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func mexicoCity(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	return loc
}

type fixture struct {
	a     *Assistant
	store store.Store
	out   *fakeOutbound
	loc   *time.Location
	now   time.Time
}

// newFixture builds an assistant whose clock reads Tuesday 2026-03-10
// 10:00 in Mexico City.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc := mexicoCity(t)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)
	s := testutil.NewTestStore(t)
	out := &fakeOutbound{}
	a := New(s, nlp.NewInterpreter(nlp.NewClassifier()), out,
		clockwork.NewFakeClockAt(now), loc, zap.NewNop())
	return &fixture{a: a, store: s, out: out, loc: loc, now: now}
}

func (f *fixture) say(t *testing.T, from, text string) string {
	t.Helper()
	err := f.a.HandleMessage(context.Background(), Inbound{
		Channel:     model.ChannelConsole,
		From:        from,
		Text:        text,
		ProfileName: "Pablo",
	})
	require.NoError(t, err)
	return f.out.last(t).Text
}

func TestHandlerTableCoversEveryIntent(t *testing.T) {
	f := newFixture(t)
	for i := nlp.Unknown; i < nlp.NumIntents; i++ {
		assert.NotNil(t, f.a.handlers[i], i.String())
	}
}

func TestCreateTaskEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.say(t, "+5215550001", "Recuérdame comprar leche mañana urgente")
	assert.Contains(t, reply, `"comprar leche"`)
	assert.Contains(t, reply, "11/03/2026 12:00")
	assert.Contains(t, reply, compose.PriorityLabel(model.PriorityHigh))

	user, err := f.store.GetUserByAddress(ctx, "+5215550001")
	require.NoError(t, err)
	assert.Equal(t, "Pablo", user.Name)
	assert.True(t, user.Active)
	assert.Equal(t, "America/Mexico_City", user.Timezone)

	tasks, err := f.store.FindTasks(ctx, store.TaskFilter{OwnerID: user.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "comprar leche", task.Title)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, model.TaskStatusPending, task.Status)
	require.NotNil(t, task.DueAt)
	assert.True(t, time.Date(2026, 3, 11, 12, 0, 0, 0, f.loc).Equal(*task.DueAt))
	require.NotNil(t, task.Origin)
	assert.Equal(t, "Recuérdame comprar leche mañana urgente", task.Origin.RawInput)
	assert.Equal(t, "CREATE_TASK", task.Origin.Intent)

	reminders, err := f.store.ListReminders(ctx, store.ReminderFilter{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	for _, r := range reminders {
		require.NotNil(t, r.TaskID)
		assert.Equal(t, task.ID, *r.TaskID)
		assert.Equal(t, model.ChannelConsole, r.Channel)
		assert.False(t, r.Sent)
	}
}

func TestProvisionReusesExistingUser(t *testing.T) {
	f := newFixture(t)

	f.say(t, "+5215550001", "hola")
	reply := f.say(t, "+5215550001", "hola")
	assert.Equal(t, compose.Greeting("Pablo"), reply)

	users, err := f.store.ListActiveUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestProvisionDefaultName(t *testing.T) {
	f := newFixture(t)
	err := f.a.HandleMessage(context.Background(), Inbound{
		Channel: model.ChannelWhatsApp,
		From:    "+5215550002",
		Text:    "hola",
	})
	require.NoError(t, err)

	msg := f.out.last(t)
	assert.Equal(t, model.ChannelWhatsApp, msg.Channel)
	assert.Equal(t, "+5215550002", msg.To)
	assert.Equal(t, compose.Greeting(model.DefaultUserName), msg.Text)
}

func TestEmptyMessageIsIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.a.HandleMessage(context.Background(), Inbound{From: "+52", Text: "  "}))
	assert.Empty(t, f.out.sent)
}

func TestSmallTalkReplies(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, compose.Help(), f.say(t, "+52", "ayuda"))
	assert.Equal(t, compose.Fallback(), f.say(t, "+52", "algo cualquiera"))
}

func TestCreateWithoutTitleAsks(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.store, "+52")

	res := nlp.Result{
		Intent:   nlp.CreateTask,
		Entities: nlp.Entities{Title: nlp.UntitledTask, Priority: model.PriorityMedium},
	}
	reply, err := f.a.handleCreate(context.Background(), user, res, f.now)
	require.NoError(t, err)
	assert.Equal(t, compose.AskTitle(), reply)

	tasks, err := f.store.FindTasks(context.Background(), store.TaskFilter{OwnerID: user.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

// reminderFailingStore stores the first reminder and fails the rest.
type reminderFailingStore struct {
	store.Store
	created int
}

func (f *reminderFailingStore) CreateReminder(ctx context.Context, r model.Reminder) (*model.Reminder, error) {
	f.created++
	if f.created > 1 {
		return nil, errors.New("database is locked")
	}
	return f.Store.CreateReminder(ctx, r)
}

func TestCreateRemovesTaskWhenReminderFails(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.store, "+52")
	f.a.store = &reminderFailingStore{Store: f.store}

	due := f.now.AddDate(0, 0, 2)
	res := nlp.Result{
		Intent:   nlp.CreateTask,
		Entities: nlp.Entities{Title: "renovar pasaporte", Due: &due, Priority: model.PriorityMedium},
	}
	_, err := f.a.handleCreate(context.Background(), user, res, f.now)
	require.Error(t, err)

	tasks, err := f.store.FindTasks(context.Background(), store.TaskFilter{OwnerID: user.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	reminders, err := f.store.ListReminders(context.Background(), store.ReminderFilter{UserID: user.ID, IncludeSent: true})
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) GetUserByAddress(context.Context, string) (*model.User, error) {
	return nil, f.err
}

func TestStoreFailureApologizes(t *testing.T) {
	boom := errors.New("database is locked")
	out := &fakeOutbound{}
	a := New(failingStore{err: boom}, nlp.NewInterpreter(nlp.NewClassifier()), out,
		clockwork.NewFakeClock(), time.UTC, zap.NewNop())

	err := a.HandleMessage(context.Background(), Inbound{
		Channel: model.ChannelWhatsApp,
		From:    "+52",
		Text:    "lista mis tareas",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, compose.Apology(), out.last(t).Text)
}

func TestReplyDeliveryFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("unreachable")
	f.out.sendFn = func(model.Channel, string, string) error { return boom }

	err := f.a.HandleMessage(context.Background(), Inbound{
		Channel: model.ChannelConsole,
		From:    "+52",
		Text:    "hola",
	})
	assert.ErrorIs(t, err, boom)
}
