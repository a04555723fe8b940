package model

import "time"

// DefaultUserName is used when an inbound message carries no profile name.
const DefaultUserName = "Usuario"

// User owns tasks and reminders and is reachable at Address over Channel.
type User struct {
	ID       string  `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Address  string  `json:"address" db:"address"`
	Channel  Channel `json:"channel" db:"channel"`
	Timezone string  `json:"timezone" db:"timezone"`
	Active   bool    `json:"active" db:"active"`
	IsAdmin  bool    `json:"is_admin" db:"is_admin"`

	// LastDigestOn is the user's local date (YYYY-MM-DD) of the last digest.
	LastDigestOn string    `json:"last_digest_on" db:"last_digest_on"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Location resolves the user's timezone, falling back to fallback when the
// stored name is empty or unknown.
func (u User) Location(fallback *time.Location) *time.Location {
	if u.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
