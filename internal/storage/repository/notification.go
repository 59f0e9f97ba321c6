package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/affirmation-service/internal/models"
)

// CreateNotification сохраняет запись об отправленном уведомлении и возвращает её ID.
func (s *Storage) CreateNotification(ctx context.Context, n models.Notification) (int, error) {
	const op = "storage.CreateNotification"
	if err := ctxDone(ctx, op); err != nil {
		return 0, err
	}

	var data []byte
	if len(n.Data) > 0 {
		var err error
		if data, err = json.Marshal(n.Data); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	var id int
	query := `INSERT INTO notifications (user_uid, title, body, type, data)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query, n.UserUID, n.Title, n.Body, n.Type, data).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// ListNotifications возвращает уведомления пользователя, новые первыми, и их общее количество.
func (s *Storage) ListNotifications(ctx context.Context, userUID string, limit, offset int) ([]*models.Notification, int, error) {
	const op = "storage.ListNotifications"
	if err := ctxDone(ctx, op); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_uid = $1`, userUID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT id, user_uid, title, body, type, is_read, data, created_at
			  FROM notifications
			  WHERE user_uid = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Notification, 0, limit)
	for rows.Next() {
		n := &models.Notification{}
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserUID, &n.Title, &n.Body, &n.Type, &n.IsRead, &data, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, 0, fmt.Errorf("%s: %w", op, err)
			}
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// MarkNotificationRead помечает уведомление прочитанным, если оно принадлежит пользователю.
// Чужое или несуществующее уведомление даёт ErrNotFound.
func (s *Storage) MarkNotificationRead(ctx context.Context, id int, userUID string) error {
	const op = "storage.MarkNotificationRead"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_uid = $2`, id, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, res)
}
