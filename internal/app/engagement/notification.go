package engagement

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zennify/zennify/internal/domain"
)

// NotificationService manages celebratory notifications.
//   - Max MaxPerDay notifications per user per day (hard cap)
//   - Nothing between QuietStart and QuietEnd in the configured timezone
//   - Only level ups and badge unlocks notify; streak loss never does
type NotificationService struct {
	*core
	policy domain.NotificationPolicy
}

// NewNotificationService creates a notification service with default policy.
func NewNotificationService(store domain.Store, opts ...Option) *NotificationService {
	return NewNotificationServiceWithPolicy(store, domain.DefaultNotificationPolicy(), opts...)
}

// NewNotificationServiceWithPolicy creates a notification service with custom policy.
func NewNotificationServiceWithPolicy(store domain.Store, policy domain.NotificationPolicy, opts ...Option) *NotificationService {
	return &NotificationService{core: newCore(store, "notifications", opts), policy: policy}
}

// Create stores a notification if policy allows it.
// Returns the notification ID ("" if suppressed by policy) and any error.
func (n *NotificationService) Create(ctx context.Context, notif domain.Notification) (string, error) {
	now := n.now()
	if n.isQuietHour(now.In(n.loc)) {
		return "", nil
	}

	todayCount, err := n.TodayCount(ctx, notif.UserID)
	if err != nil {
		return "", fmt.Errorf("count today: %w", err)
	}
	if todayCount >= n.policy.MaxPerDay {
		return "", nil
	}

	notif.ID = uuid.New().String()
	notif.CreatedAt = now
	notif.Shown = false
	if err := n.store.InsertNotification(ctx, notif); err != nil {
		n.logFailure("insert_notification", notif.UserID, err)
		return "", fmt.Errorf("insert notification: %w", err)
	}
	return notif.ID, nil
}

// Pending returns unshown notifications, oldest first.
func (n *NotificationService) Pending(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := n.store.PendingNotifications(ctx, userID, limit)
	n.logFailure("pending_notifications", userID, err)
	if out == nil && err == nil {
		out = []domain.Notification{}
	}
	return out, err
}

// MarkShown marks a notification as shown.
func (n *NotificationService) MarkShown(ctx context.Context, userID, id string) error {
	if id == "" {
		return domain.Invalid("id", "required")
	}
	err := n.store.MarkNotificationShown(ctx, userID, id)
	n.logFailure("mark_notification_shown", userID, err)
	return err
}

// TodayCount returns how many notifications were created for the user
// since local midnight.
func (n *NotificationService) TodayCount(ctx context.Context, userID string) (int, error) {
	local := n.now().In(n.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, n.loc)
	return n.store.NotificationCountSince(ctx, userID, midnight)
}

// Policy returns the current notification policy.
func (n *NotificationService) Policy() domain.NotificationPolicy {
	return n.policy
}

// isQuietHour returns true if the given time falls within quiet hours.
func (n *NotificationService) isQuietHour(t time.Time) bool {
	startHour, startMin := parseHHMM(n.policy.QuietStart)
	endHour, endMin := parseHHMM(n.policy.QuietEnd)

	timeMinutes := t.Hour()*60 + t.Minute()
	startMinutes := startHour*60 + startMin
	endMinutes := endHour*60 + endMin

	if startMinutes == endMinutes {
		return false
	}
	if startMinutes > endMinutes {
		// Wraps midnight: e.g., 22:00 – 08:00
		return timeMinutes >= startMinutes || timeMinutes < endMinutes
	}
	return timeMinutes >= startMinutes && timeMinutes < endMinutes
}

// parseHHMM parses "HH:MM" into hour and minute.
func parseHHMM(s string) (int, int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h, m
}
