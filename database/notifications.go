package database

import (
	"context"
	"fmt"
	"time"

	"incident-reporter/models"

	"github.com/google/uuid"
)

// CreateNotification persists one notification row under the sub-store
// matching the recipient identity and returns the stored record.
func (d *Database) CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	identity := models.Identity{UserID: n.UserID, DeviceID: n.DeviceID}
	if !identity.Valid() {
		return nil, models.NewValidationError("userId|deviceId")
	}
	if n.Kind != models.NotificationNew && n.Kind != models.NotificationUpdate {
		return nil, models.NewValidationError("kind")
	}

	stored := *n
	stored.ID = uuid.New().String()
	stored.Read = false
	stored.ReadAt = nil
	stored.CreatedAt = time.Now().UTC()

	var err error
	if identity.IsDevice() {
		_, err = d.db.ExecContext(ctx, "INSERT INTO device_notifications (id, device_id, title, report_id, kind, `read`, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			stored.ID, stored.DeviceID, stored.Title, stored.ReportID, stored.Kind, stored.Read, stored.CreatedAt)
	} else {
		_, err = d.db.ExecContext(ctx, "INSERT INTO user_notifications (id, user_id, title, report_id, kind, `read`, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			stored.ID, stored.UserID, stored.Title, stored.ReportID, stored.Kind, stored.Read, stored.CreatedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}

	return &stored, nil
}

// ListNotifications returns one recipient's notifications, newest first,
// windowed by limit/skip.
func (d *Database) ListNotifications(ctx context.Context, identity models.Identity, limit, skip int) (*models.NotificationList, error) {
	if !identity.Valid() {
		return nil, models.NewValidationError("userId|deviceId")
	}
	if limit <= 0 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	table, col, id := notificationTarget(identity)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", table, col)
	if err := d.db.QueryRowContext(ctx, countQuery, id).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := fmt.Sprintf("SELECT id, %s, title, report_id, kind, `read`, read_at, created_at FROM %s WHERE %s = ? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		col, table, col)
	rows, err := d.db.QueryContext(ctx, query, id, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var recipient string
		if err := rows.Scan(&n.ID, &recipient, &n.Title, &n.ReportID, &n.Kind, &n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if identity.IsDevice() {
			n.DeviceID = recipient
		} else {
			n.UserID = recipient
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.NotificationList{
		Notifications: notifications,
		Pagination: models.Pagination{
			Total:   total,
			Limit:   limit,
			Skip:    skip,
			HasMore: skip+len(notifications) < total,
		},
	}, nil
}

// MarkRead toggles one notification's read state. The id must belong to
// the given recipient identity; otherwise ErrNotFound.
func (d *Database) MarkRead(ctx context.Context, id string, identity models.Identity, read bool) error {
	if !identity.Valid() {
		return models.NewValidationError("userId|deviceId")
	}

	table, col, recipient := notificationTarget(identity)

	var readAt interface{}
	if read {
		readAt = time.Now().UTC()
	}

	query := fmt.Sprintf("UPDATE %s SET `read` = ?, read_at = ? WHERE id = ? AND %s = ?", table, col)
	result, err := d.db.ExecContext(ctx, query, read, readAt, id, recipient)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification for the identity as read
// and returns how many rows changed.
func (d *Database) MarkAllRead(ctx context.Context, identity models.Identity) (int, error) {
	if !identity.Valid() {
		return 0, models.NewValidationError("userId|deviceId")
	}

	table, col, recipient := notificationTarget(identity)

	query := fmt.Sprintf("UPDATE %s SET `read` = TRUE, read_at = ? WHERE %s = ? AND `read` = FALSE", table, col)
	result, err := d.db.ExecContext(ctx, query, time.Now().UTC(), recipient)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(affected), nil
}

// DeleteNotification removes one notification owned by the identity.
func (d *Database) DeleteNotification(ctx context.Context, id string, identity models.Identity) error {
	if !identity.Valid() {
		return models.NewValidationError("userId|deviceId")
	}

	table, col, recipient := notificationTarget(identity)

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND %s = ?", table, col)
	result, err := d.db.ExecContext(ctx, query, id, recipient)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountUnread returns the identity's unread notification count.
func (d *Database) CountUnread(ctx context.Context, identity models.Identity) (int, error) {
	if !identity.Valid() {
		return 0, models.NewValidationError("userId|deviceId")
	}

	table, col, recipient := notificationTarget(identity)

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND `read` = FALSE", table, col)
	if err := d.db.QueryRowContext(ctx, query, recipient).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func notificationTarget(identity models.Identity) (table, col, id string) {
	if identity.IsDevice() {
		return "device_notifications", "device_id", identity.DeviceID
	}
	return "user_notifications", "user_id", identity.UserID
}
