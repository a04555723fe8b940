package model

import (
	"encoding/json"
	"time"
)

// Priority is the urgency level of a task.
type Priority string

// Priority levels.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank returns a sortable weight for the priority; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is one of the known levels.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task statuses. Deletion removes the row instead of recording a state.
const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusOverdue TaskStatus = "overdue"
)

// Origin records the message a task was created from.
type Origin struct {
	RawInput string            `json:"raw_input"`
	Intent   string            `json:"intent"`
	Entities map[string]string `json:"entities,omitempty"`
}

// Task is a user-owned unit of work with an optional due time.
type Task struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	DueAt       *time.Time `json:"due_at,omitempty" db:"due_at"`
	Priority    Priority   `json:"priority" db:"priority"`
	Status      TaskStatus `json:"status" db:"status"`
	Origin      *Origin    `json:"origin,omitempty" db:"-"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// HasDue reports whether the task carries a due time.
func (t Task) HasDue() bool {
	return t.DueAt != nil
}

// MarshalOrigin encodes the origin for storage. A nil origin encodes as "".
func MarshalOrigin(o *Origin) (string, error) {
	if o == nil {
		return "", nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalOrigin decodes a stored origin. An empty string yields nil.
func UnmarshalOrigin(raw string) (*Origin, error) {
	if raw == "" {
		return nil, nil
	}
	var o Origin
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, err
	}
	return &o, nil
}
