package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Store is the per-user document store: one progress document per user,
// one daily quest document per (user, date), one mood document per
// (user, date), plus the notification log.
//
// Getters return (nil, nil) when the document does not exist.
// Failures are wrapped with Remote so callers can match ErrRemoteFailure.
type Store interface {
	GetProgress(ctx context.Context, userID string) (*UserProgress, error)
	PutProgress(ctx context.Context, p UserProgress) error

	GetDailyQuests(ctx context.Context, userID, date string) (*DailyQuestAssignment, error)
	PutDailyQuests(ctx context.Context, a DailyQuestAssignment) error

	GetMood(ctx context.Context, userID, date string) (*MoodEntry, error)
	PutMood(ctx context.Context, m MoodEntry) error
	// RecentMoods returns up to limit entries, newest date first.
	RecentMoods(ctx context.Context, userID string, limit int) ([]MoodEntry, error)
	// MoodsBetween returns entries with from <= date <= to, oldest first.
	MoodsBetween(ctx context.Context, userID, from, to string) ([]MoodEntry, error)

	InsertNotification(ctx context.Context, n Notification) error
	NotificationCountSince(ctx context.Context, userID string, since time.Time) (int, error)
	PendingNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkNotificationShown(ctx context.Context, userID, id string) error

	// RunInTx runs fn against a transactional view of the store. Every
	// write made through the view commits together or not at all.
	RunInTx(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}

// AccountStore persists sign-in credentials and revoked sessions.
type AccountStore interface {
	// CreateAccount returns ErrEmailTaken when the email is in use.
	CreateAccount(ctx context.Context, a Account) error
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByID(ctx context.Context, id string) (*Account, error)

	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	// PruneRevokedTokens forgets revocations of tokens that expired before cutoff.
	PruneRevokedTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher delivers progression and auth-state events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
