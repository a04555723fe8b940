package model

import "time"

// Channel identifies an outbound/inbound messaging transport.
type Channel string

// Supported channels.
const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
	ChannelConsole  Channel = "console"
)

// Reminder is a scheduled notification, usually bound to a task.
// Sent flips to true exactly once.
type Reminder struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	TaskID    *string    `json:"task_id,omitempty" db:"task_id"`
	RemindAt  time.Time  `json:"remind_at" db:"remind_at"`
	Channel   Channel    `json:"channel" db:"channel"`
	Message   string     `json:"message" db:"message"`
	Sent      bool       `json:"sent" db:"sent"`
	SentAt    *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// DueReminder is an unsent reminder joined with the data needed to render
// and deliver it.
type DueReminder struct {
	Reminder
	Task *Task
	User User
}
