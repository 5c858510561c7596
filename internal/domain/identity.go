package domain

import "time"

// Account is a stored credential record.
type Account struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	Username     string    `json:"username" bson:"username"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Identity is the authenticated caller passed into every lifecycle operation.
type Identity struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// AuthState is delivered to auth-state subscribers. Identity is nil after
// sign-out.
type AuthState struct {
	Identity *Identity `json:"identity"`
	At       time.Time `json:"at"`
}

// ─── Events ─────────────────────────────────────────────────────────────────

// EventType names a published event.
type EventType string

const (
	EventSignedUp       EventType = "auth.signed_up"
	EventSignedIn       EventType = "auth.signed_in"
	EventSignedOut      EventType = "auth.signed_out"
	EventQuestCompleted EventType = "quest.completed"
	EventMoodLogged     EventType = "mood.logged"
	EventBadgeUnlocked  EventType = "badge.unlocked"
	EventLevelUp        EventType = "level.up"
)

// IsAuth reports whether the event changes auth state.
func (t EventType) IsAuth() bool {
	return t == EventSignedUp || t == EventSignedIn || t == EventSignedOut
}

// Event is a per-user notification of something that happened.
type Event struct {
	Type   EventType      `json:"type"`
	UserID string         `json:"user_id"`
	At     time.Time      `json:"at"`
	Data   map[string]any `json:"data,omitempty"`
}
