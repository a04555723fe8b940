package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/task-assistant/internal/compose"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/nlp"
	"github.com/nhle/task-assistant/internal/store"
)

func (a *Assistant) handleCreate(ctx context.Context, user *model.User, res nlp.Result, now time.Time) (string, error) {
	e := res.Entities
	if e.Title == nlp.UntitledTask {
		return compose.AskTitle(), nil
	}

	task, err := a.store.CreateTask(ctx, model.Task{
		UserID:   user.ID,
		Title:    e.Title,
		DueAt:    e.Due,
		Priority: e.Priority,
		Origin: &model.Origin{
			RawInput: res.Text,
			Intent:   res.Intent.String(),
			Entities: e.Map(),
		},
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}

	for _, r := range DeriveReminders(*task, now, user.Channel) {
		if _, err := a.store.CreateReminder(ctx, r); err != nil {
			// Drop the task (and, by cascade, any reminder already made) so
			// the user can simply retry.
			if delErr := a.store.DeleteTask(ctx, task.ID); delErr != nil {
				a.logger.Error("removing task after reminder failure",
					zap.String("task", task.ID), zap.Error(delErr))
			}
			return "", fmt.Errorf("scheduling reminder for task %s: %w", task.ID, err)
		}
	}

	a.logger.Info("task created",
		zap.String("user", user.ID),
		zap.String("task", task.ID),
		zap.String("priority", string(task.Priority)),
		zap.Bool("due", task.HasDue()),
	)
	return compose.TaskCreated(*task, now.Location()), nil
}

// handleList shows the pending tasks due on the requested day, today when
// none was named. Positions are those of the full pending listing, so they
// stay valid for "completar N".
func (a *Assistant) handleList(ctx context.Context, user *model.User, res nlp.Result, now time.Time) (string, error) {
	items, err := a.PendingListing(ctx, user.ID)
	if err != nil {
		return "", err
	}

	start := startOfDay(now)
	if day := res.Entities.Day; day != nil {
		start = startOfDay(day.In(now.Location()))
	}
	end := start.AddDate(0, 0, 1)

	var onDay []compose.Listed
	for _, it := range items {
		if due := it.Task.DueAt; due != nil && !due.Before(start) && due.Before(end) {
			onDay = append(onDay, it)
		}
	}
	return compose.TaskList(onDay, &start, now.Location()), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (a *Assistant) handleComplete(ctx context.Context, user *model.User, res nlp.Result, now time.Time) (string, error) {
	n := res.Entities.Ordinal
	task, pending, err := a.ResolveOrdinal(ctx, user.ID, n)
	switch {
	case errors.Is(err, ErrAmbiguous):
		return compose.AskOrdinalComplete(), nil
	case errors.Is(err, ErrReferenceNotFound):
		return compose.NoSuchTask(n, pending), nil
	case err != nil:
		return "", err
	}

	err = a.store.TransitionTask(ctx, task.ID, model.TaskStatusPending, model.TaskStatusDone, now)
	switch {
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrNotFound):
		return compose.TaskChanged(n), nil
	case err != nil:
		return "", err
	}
	return compose.TaskCompleted(task), nil
}

func (a *Assistant) handleDelete(ctx context.Context, user *model.User, res nlp.Result, _ time.Time) (string, error) {
	n := res.Entities.Ordinal
	task, pending, err := a.ResolveOrdinal(ctx, user.ID, n)
	switch {
	case errors.Is(err, ErrAmbiguous):
		return compose.AskOrdinalDelete(), nil
	case errors.Is(err, ErrReferenceNotFound):
		return compose.NoSuchTask(n, pending), nil
	case err != nil:
		return "", err
	}

	err = a.store.DeleteTask(ctx, task.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return compose.TaskChanged(n), nil
	case err != nil:
		return "", err
	}
	return compose.TaskDeleted(task), nil
}

func (a *Assistant) handleHelp(context.Context, *model.User, nlp.Result, time.Time) (string, error) {
	return compose.Help(), nil
}

func (a *Assistant) handleGreeting(_ context.Context, user *model.User, _ nlp.Result, _ time.Time) (string, error) {
	return compose.Greeting(user.Name), nil
}

func (a *Assistant) handleUnknown(context.Context, *model.User, nlp.Result, time.Time) (string, error) {
	return compose.Fallback(), nil
}
