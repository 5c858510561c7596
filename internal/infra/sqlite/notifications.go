package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/zennify/zennify/internal/domain"
)

// ─── Notifications ──────────────────────────────────────────────────────────

// InsertNotification creates a new notification.
func (d *DB) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := d.q.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, body, created_at, shown)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Body, n.CreatedAt.Unix(), n.Shown,
	)
	return domain.Remote("insert notification", err)
}

// NotificationCountSince returns how many notifications the user received at or after since.
func (d *DB) NotificationCountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := d.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND created_at >= ?`,
		userID, since.Unix(),
	).Scan(&count)
	return count, domain.Remote("count notifications", err)
}

// PendingNotifications returns unshown notifications, oldest first.
func (d *DB) PendingNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT id, user_id, type, title, body, created_at, shown
		 FROM notifications WHERE user_id = ? AND shown = 0
		 ORDER BY created_at ASC, id ASC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, domain.Remote("pending notifications", err)
	}
	defer rows.Close()

	notifs := []domain.Notification{}
	for rows.Next() {
		n, err := scanNotifRows(rows)
		if err != nil {
			return nil, domain.Remote("scan notification", err)
		}
		notifs = append(notifs, *n)
	}
	return notifs, domain.Remote("scan notifications", rows.Err())
}

// MarkNotificationShown marks a notification as shown. Unknown ids are ignored.
func (d *DB) MarkNotificationShown(ctx context.Context, userID, id string) error {
	_, err := d.q.ExecContext(ctx,
		`UPDATE notifications SET shown = 1 WHERE id = ? AND user_id = ?`, id, userID,
	)
	return domain.Remote("mark notification shown", err)
}

func scanNotifRows(rows *sql.Rows) (*domain.Notification, error) {
	var n domain.Notification
	var typ string
	var createdAt int64
	err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Body, &createdAt, &n.Shown)
	if err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(typ)
	n.CreatedAt = unixOrZero(createdAt)
	return &n, nil
}
