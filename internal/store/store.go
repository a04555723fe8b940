package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/task-assistant/internal/model"
)

var (
	// ErrNotFound is returned when a row addressed by ID does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a task is not in the state a
	// transition requires, including when it was changed concurrently.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// SortKey orders task queries by one field.
type SortKey struct {
	Field string // "due_at", "priority", "created_at", "updated_at", "title"
	Desc  bool
}

// PendingOrder is the canonical order of a user's pending listing: earliest
// due first with undated tasks last, then higher priority, then oldest.
var PendingOrder = []SortKey{
	{Field: "due_at"},
	{Field: "priority", Desc: true},
	{Field: "created_at"},
}

// TaskFilter controls filtering, sorting, and pagination for task queries.
// DueFrom and DueTo form a half-open range [DueFrom, DueTo).
type TaskFilter struct {
	OwnerID  string
	Statuses []model.TaskStatus
	DueFrom  *time.Time
	DueTo    *time.Time
	Sort     []SortKey
	Limit    int
}

// ReminderFilter narrows reminder listings.
type ReminderFilter struct {
	UserID      string
	TaskID      *string
	IncludeSent bool
}

// Store defines the persistence interface for users, tasks and reminders.
type Store interface {
	// === Users ===

	CreateUser(ctx context.Context, user model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByAddress(ctx context.Context, address string) (*model.User, error)
	ListActiveUsers(ctx context.Context) ([]model.User, error)
	ListAdmins(ctx context.Context) ([]model.User, error)
	ClaimDigest(ctx context.Context, userID, localDate string) (bool, error)

	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	FindTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) error
	TransitionTask(ctx context.Context, id string, from, to model.TaskStatus, at time.Time) error
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	DeleteTask(ctx context.Context, id string) error

	// === Reminders ===

	CreateReminder(ctx context.Context, reminder model.Reminder) (*model.Reminder, error)
	GetDueReminders(ctx context.Context, now time.Time, limit int) ([]model.DueReminder, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)
	ListReminders(ctx context.Context, filter ReminderFilter) ([]model.Reminder, error)
	DeleteReminder(ctx context.Context, id string) error

	// === Stats ===

	Stats(ctx context.Context) (Stats, error)
}

// Stats summarizes the store contents for status reporting.
type Stats struct {
	Users           int `json:"users" db:"users"`
	PendingTasks    int `json:"pending_tasks" db:"pending_tasks"`
	OverdueTasks    int `json:"overdue_tasks" db:"overdue_tasks"`
	UnsentReminders int `json:"unsent_reminders" db:"unsent_reminders"`
}
