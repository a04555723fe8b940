package assistant

import (
	"time"

	"github.com/nhle/task-assistant/internal/model"
)

// reminderTimes returns when a task due at due is reminded, earliest first:
// the same wall-clock time on the previous calendar day in loc, and one
// hour before.
func reminderTimes(due time.Time, loc *time.Location) []time.Time {
	local := due.In(loc)
	return []time.Time{local.AddDate(0, 0, -1), local.Add(-time.Hour)}
}

// DeriveReminders returns the reminders to create for a new task: one a day
// before and one an hour before it is due. The day before is a calendar day
// in now's location, so it keeps the wall-clock time across DST changes.
// Reminders that would not fire strictly after now are skipped. Tasks
// without a due time get none.
func DeriveReminders(task model.Task, now time.Time, ch model.Channel) []model.Reminder {
	if task.DueAt == nil {
		return nil
	}

	var out []model.Reminder
	for _, at := range reminderTimes(*task.DueAt, now.Location()) {
		if !at.After(now) {
			continue
		}
		taskID := task.ID
		out = append(out, model.Reminder{
			UserID:    task.UserID,
			TaskID:    &taskID,
			RemindAt:  at,
			Channel:   ch,
			CreatedAt: now,
		})
	}
	return out
}
