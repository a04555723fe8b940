package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/store"
	"github.com/nhle/task-assistant/internal/testutil"
)

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	mx, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, mx)

	user, n, err := seedDemo(ctx, s, seedYAML, now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "Pablo", user.Name)
	assert.Equal(t, model.ChannelWhatsApp, user.Channel)
	assert.True(t, user.IsAdmin)

	tasks, err := s.FindTasks(ctx, store.TaskFilter{OwnerID: user.ID, Sort: store.PendingOrder})
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, "Revisar correos", tasks[0].Title)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
	assert.True(t, now.Add(2*time.Hour).Equal(*tasks[0].DueAt))

	assert.Equal(t, "Reunión con equipo", tasks[1].Title)
	assert.True(t, time.Date(2026, 3, 11, 10, 0, 0, 0, mx).Equal(*tasks[1].DueAt))
	assert.True(t, time.Date(2026, 3, 12, 18, 0, 0, 0, mx).Equal(*tasks[2].DueAt))

	reminders, err := s.ListReminders(ctx, store.ReminderFilter{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, reminders, 3)
	assert.True(t, now.Add(90*time.Minute).Equal(reminders[0].RemindAt))
	assert.Equal(t, tasks[0].ID, *reminders[0].TaskID)
}

func TestSeedDemoReusesUser(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	first, _, err := seedDemo(ctx, s, seedYAML, now)
	require.NoError(t, err)
	second, _, err := seedDemo(ctx, s, seedYAML, now)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSeedDemoRejectsBadDuration(t *testing.T) {
	data := []byte(`
user: {name: Ana, address: "ana@example.com", channel: email}
tasks:
  - title: Algo
    due_in: pronto
`)
	_, _, err := seedDemo(context.Background(), testutil.NewTestStore(t), data, time.Now())
	assert.ErrorContains(t, err, "due_in")
}
