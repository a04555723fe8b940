package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/task-assistant/internal/model"
)

const reminderColumns = `id, user_id, task_id, remind_at, channel, message, sent, sent_at, created_at`

// CreateReminder inserts a new unsent reminder.
func (s *SQLiteStore) CreateReminder(ctx context.Context, r model.Reminder) (*model.Reminder, error) {
	if r.UserID == "" {
		return nil, fmt.Errorf("reminder owner must not be empty")
	}
	if r.RemindAt.IsZero() {
		return nil, fmt.Errorf("reminder time must be set")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Channel == "" {
		r.Channel = model.ChannelWhatsApp
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.RemindAt = utc(r.RemindAt)
	r.CreatedAt = utc(r.CreatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.TaskID, r.RemindAt, string(r.Channel), r.Message,
		boolToInt(r.Sent), utcPtr(r.SentAt), r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating reminder: %w", err)
	}
	return &r, nil
}

// GetDueReminders returns unsent reminders with remind_at <= now, oldest
// first, each joined with its owner and (if any) its task.
func (s *SQLiteStore) GetDueReminders(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]model.DueReminder, error) {
	query := "SELECT " + reminderColumns + ` FROM reminders
		WHERE sent = 0 AND remind_at <= ?
		ORDER BY remind_at ASC, id ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	reminders, err := s.queryReminders(ctx, query, utc(now))
	if err != nil {
		return nil, fmt.Errorf("querying due reminders: %w", err)
	}

	users := make(map[string]*model.User)
	due := make([]model.DueReminder, 0, len(reminders))
	for _, r := range reminders {
		u, ok := users[r.UserID]
		if !ok {
			u, err = s.GetUserByID(ctx, r.UserID)
			if err != nil {
				return nil, err
			}
			users[r.UserID] = u
		}

		item := model.DueReminder{Reminder: r, User: *u}
		if r.TaskID != nil {
			task, err := s.GetTaskByID(ctx, *r.TaskID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			item.Task = task
		}
		due = append(due, item)
	}
	return due, nil
}

// MarkReminderSent flips an unsent reminder to sent. It reports false
// when the reminder was already marked, so a reminder is marked once.
func (s *SQLiteStore) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE reminders SET sent = 1, sent_at = ? WHERE id = ? AND sent = 0",
		utc(at), id,
	)
	if err != nil {
		return false, fmt.Errorf("marking reminder %s sent: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// ListReminders returns a user's reminders ordered by remind_at.
func (s *SQLiteStore) ListReminders(ctx context.Context, filter ReminderFilter) ([]model.Reminder, error) {
	query := "SELECT " + reminderColumns + " FROM reminders WHERE user_id = ?"
	args := []interface{}{filter.UserID}
	if filter.TaskID != nil {
		query += " AND task_id = ?"
		args = append(args, *filter.TaskID)
	}
	if !filter.IncludeSent {
		query += " AND sent = 0"
	}
	query += " ORDER BY remind_at ASC, id ASC"

	reminders, err := s.queryReminders(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	return reminders, nil
}

// DeleteReminder removes a reminder by ID.
func (s *SQLiteStore) DeleteReminder(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reminders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting reminder %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	return notFoundIfNone(rows, "reminder", id)
}

func (s *SQLiteStore) queryReminders(ctx context.Context, query string, args ...interface{}) ([]model.Reminder, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reminder row: %w", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// scanReminder scans a reminder row selected with reminderColumns.
func scanReminder(row rowScanner) (model.Reminder, error) {
	var (
		r       model.Reminder
		channel string
		sent    int
		taskID  *string
		sentAt  *time.Time
	)
	err := row.Scan(
		&r.ID, &r.UserID, &taskID, &r.RemindAt, &channel, &r.Message,
		&sent, &sentAt, &r.CreatedAt,
	)
	if err != nil {
		return model.Reminder{}, err
	}
	r.TaskID = taskID
	r.Channel = model.Channel(channel)
	r.Sent = sent != 0
	r.SentAt = sentAt
	return r, nil
}
