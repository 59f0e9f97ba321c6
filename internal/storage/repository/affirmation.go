package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/affirmation-service/internal/models"
)

const affirmationColumns = `id, content, audio_url, category, created_by, is_premium, created_at`

func scanAffirmation(row interface{ Scan(...any) error }) (*models.Affirmation, error) {
	a := &models.Affirmation{}
	var audio, category sql.NullString
	if err := row.Scan(&a.ID, &a.Content, &audio, &category, &a.CreatedBy, &a.IsPremium, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.AudioURL = audio.String
	a.Category = category.String
	return a, nil
}

func (s *Storage) queryAffirmations(ctx context.Context, op, query string, args ...any) ([]*models.Affirmation, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Affirmation
	for rows.Next() {
		a, err := scanAffirmation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateAffirmation сохраняет аффирмацию и возвращает её с присвоенным ID.
func (s *Storage) CreateAffirmation(ctx context.Context, a models.Affirmation) (*models.Affirmation, error) {
	const op = "storage.CreateAffirmation"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO affirmations (content, audio_url, category, created_by, is_premium)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING ` + affirmationColumns
	saved, err := scanAffirmation(s.DB.QueryRowContext(ctx, query,
		a.Content, nullIfEmpty(a.AudioURL), nullIfEmpty(a.Category), a.CreatedBy, a.IsPremium))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

// GetAffirmation возвращает аффирмацию по ID.
func (s *Storage) GetAffirmation(ctx context.Context, id int) (*models.Affirmation, error) {
	const op = "storage.GetAffirmation"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + affirmationColumns + ` FROM affirmations WHERE id = $1`
	a, err := scanAffirmation(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapNoRows(op, err)
	}
	return a, nil
}

// ListAffirmations возвращает все аффирмации.
func (s *Storage) ListAffirmations(ctx context.Context) ([]*models.Affirmation, error) {
	const op = "storage.ListAffirmations"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}
	return s.queryAffirmations(ctx, op, `SELECT `+affirmationColumns+` FROM affirmations ORDER BY id`)
}

// ListVisibleAffirmations возвращает обычные аффирмации и премиальные аффирмации пользователя.
func (s *Storage) ListVisibleAffirmations(ctx context.Context, userUID string) ([]*models.Affirmation, error) {
	const op = "storage.ListVisibleAffirmations"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}
	query := `SELECT ` + affirmationColumns + `
			  FROM affirmations
			  WHERE is_premium = false OR created_by = $1
			  ORDER BY created_at DESC, id DESC`
	return s.queryAffirmations(ctx, op, query, userUID)
}

// CreateHistory сохраняет факт просмотра аффирмации.
func (s *Storage) CreateHistory(ctx context.Context, userUID string, affirmationID int) (*models.AffirmationHistory, error) {
	const op = "storage.CreateHistory"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	h := &models.AffirmationHistory{}
	query := `INSERT INTO affirmation_history (user_uid, affirmation_id)
			  VALUES ($1, $2)
			  RETURNING id, user_uid, affirmation_id, seen_at, is_completed`
	if err := s.DB.QueryRowContext(ctx, query, userUID, affirmationID).
		Scan(&h.ID, &h.UserUID, &h.AffirmationID, &h.SeenAt, &h.IsCompleted); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return h, nil
}

// GetHistory возвращает запись истории по ID.
func (s *Storage) GetHistory(ctx context.Context, id int) (*models.AffirmationHistory, error) {
	const op = "storage.GetHistory"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	h := &models.AffirmationHistory{}
	query := `SELECT id, user_uid, affirmation_id, seen_at, is_completed
			  FROM affirmation_history WHERE id = $1`
	if err := s.DB.QueryRowContext(ctx, query, id).
		Scan(&h.ID, &h.UserUID, &h.AffirmationID, &h.SeenAt, &h.IsCompleted); err != nil {
		return nil, wrapNoRows(op, err)
	}
	return h, nil
}

// ListHistory возвращает историю просмотров пользователя, новые первыми.
func (s *Storage) ListHistory(ctx context.Context, userUID string) ([]*models.AffirmationHistory, error) {
	const op = "storage.ListHistory"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, user_uid, affirmation_id, seen_at, is_completed
			  FROM affirmation_history
			  WHERE user_uid = $1
			  ORDER BY seen_at DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AffirmationHistory
	for rows.Next() {
		h := &models.AffirmationHistory{}
		if err := rows.Scan(&h.ID, &h.UserUID, &h.AffirmationID, &h.SeenAt, &h.IsCompleted); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CompleteHistory помечает запись истории выполненной.
func (s *Storage) CompleteHistory(ctx context.Context, id int) error {
	const op = "storage.CompleteHistory"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE affirmation_history SET is_completed = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, res)
}
