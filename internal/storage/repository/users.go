package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/affirmation-service/internal/models"
)

const userColumns = `uid, email, username, password_hash, role, fcm_token, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var token sql.NullString
	if err := row.Scan(&u.UUID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &token, &u.CreatedAt); err != nil {
		return nil, err
	}
	if token.Valid {
		u.FCMToken = &token.String
	}
	return u, nil
}

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	if err := ctxDone(ctx, op); err != nil {
		return "", err
	}

	var newID string
	query := `INSERT INTO users (email, username, password_hash, role)
			  VALUES ($1, $2, $3, $4)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role).Scan(&newID); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		return nil, wrapNoRows(op, err)
	}
	return u, nil
}

// GetUserByIdentifier возвращает пользователя по email или username.
func (s *Storage) GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	const op = "storage.GetUserByIdentifier"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR username = $1 LIMIT 1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, identifier))
	if err != nil {
		return nil, wrapNoRows(op, err)
	}
	return u, nil
}

// SetDeviceToken сохраняет токен устройства пользователя.
func (s *Storage) SetDeviceToken(ctx context.Context, userUID, token string) error {
	const op = "storage.SetDeviceToken"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET fcm_token = $2 WHERE uid = $1`, userUID, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, res)
}

// ClearDeviceToken удаляет токен устройства пользователя.
func (s *Storage) ClearDeviceToken(ctx context.Context, userUID string) error {
	const op = "storage.ClearDeviceToken"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET fcm_token = NULL WHERE uid = $1`, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, res)
}

// ListUsersWithDeviceToken возвращает до limit пользователей с токеном устройства,
// чей UID больше afterUID (пустая строка — с начала). Порядок — по UID.
func (s *Storage) ListUsersWithDeviceToken(ctx context.Context, afterUID string, limit int) ([]*models.User, error) {
	const op = "storage.ListUsersWithDeviceToken"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	after := sql.NullString{String: afterUID, Valid: afterUID != ""}
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE fcm_token IS NOT NULL AND fcm_token <> ''
			    AND ($1::uuid IS NULL OR uid > $1::uuid)
			  ORDER BY uid
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, after, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
