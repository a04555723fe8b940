package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/store"
	"github.com/nhle/task-assistant/internal/testutil"
)

func mexicoNow(t *testing.T) time.Time {
	t.Helper()
	mx, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	return time.Date(2026, 3, 10, 10, 0, 0, 0, mx)
}

func TestAddTaskSchedulesReminders(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	user := testutil.NewTestUser(t, s, "console:ana")
	now := mexicoNow(t)

	task, err := addTask(ctx, s, user, "Pagar la luz", "mañana a las 9", model.PriorityHigh, now)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	require.NotNil(t, task.DueAt)
	assert.True(t, time.Date(2026, 3, 11, 9, 0, 0, 0, now.Location()).Equal(*task.DueAt))

	reminders, err := s.ListReminders(ctx, store.ReminderFilter{UserID: user.ID, TaskID: &task.ID})
	require.NoError(t, err)
	require.Len(t, reminders, 1, "the day-before reminder would fire in the past")
	assert.True(t, task.DueAt.Add(-time.Hour).Equal(reminders[0].RemindAt))

	_, err = addTask(ctx, s, user, "Algo", "", "altisima", now)
	assert.Error(t, err)
}

func TestEditTask(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	user := testutil.NewTestUser(t, s, "console:ana")
	now := mexicoNow(t)

	task, err := addTask(ctx, s, user, "Pagar la luz", "", "", now)
	require.NoError(t, err)

	err = editTask(ctx, s, user, task.ID, taskEdit{Title: "Pagar el agua", Due: "2026-03-12 18:00", Priority: model.PriorityLow}, now)
	require.NoError(t, err)

	got, err := s.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pagar el agua", got.Title)
	assert.Equal(t, model.PriorityLow, got.Priority)
	require.NotNil(t, got.DueAt)
	assert.True(t, time.Date(2026, 3, 12, 18, 0, 0, 0, now.Location()).Equal(*got.DueAt))

	other := testutil.NewTestUser(t, s, "console:beto")
	assert.Error(t, editTask(ctx, s, other, task.ID, taskEdit{Title: "x"}, now))
}

func TestCompleteTaskClosesOverdue(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	user := testutil.NewTestUser(t, s, "console:ana")
	now := mexicoNow(t)

	late, err := s.CreateTask(ctx, model.Task{UserID: user.ID, Title: "Renovar pasaporte", DueAt: testutil.TimePtr(now.Add(-time.Hour)), CreatedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = s.MarkOverdue(ctx, now)
	require.NoError(t, err)

	pending, err := addTask(ctx, s, user, "Comprar pan", "", "", now)
	require.NoError(t, err)

	require.NoError(t, completeTask(ctx, s, user, late.ID, now))
	require.NoError(t, completeTask(ctx, s, user, pending.ID, now))

	for _, id := range []string{late.ID, pending.ID} {
		got, err := s.GetTaskByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusDone, got.Status)
		assert.NotNil(t, got.CompletedAt)
	}

	assert.ErrorIs(t, completeTask(ctx, s, user, late.ID, now), store.ErrInvalidTransition)
}

func TestListAndRemoveTasks(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	user := testutil.NewTestUser(t, s, "console:ana")
	now := mexicoNow(t)

	keep, err := addTask(ctx, s, user, "Comprar pan", "2026-03-11 08:30", "", now)
	require.NoError(t, err)
	gone, err := addTask(ctx, s, user, "Lavar el coche", "", model.PriorityLow, now)
	require.NoError(t, err)
	done, err := addTask(ctx, s, user, "Llamar a mamá", "", "", now)
	require.NoError(t, err)
	require.NoError(t, completeTask(ctx, s, user, done.ID, now))

	require.NoError(t, removeTask(ctx, s, user, gone.ID))
	_, err = s.GetTaskByID(ctx, gone.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var out bytes.Buffer
	require.NoError(t, listTasks(ctx, s, user, now.Location(), false, &out))
	assert.Contains(t, out.String(), keep.ID)
	assert.Contains(t, out.String(), "2026-03-11 08:30")
	assert.NotContains(t, out.String(), gone.ID)
	assert.NotContains(t, out.String(), done.ID)

	out.Reset()
	require.NoError(t, listTasks(ctx, s, user, now.Location(), true, &out))
	assert.Contains(t, out.String(), done.ID)
}
