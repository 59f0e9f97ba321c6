package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/affirmation-service/internal/models"
)

const subscriptionColumns = `id, user_uid, plan, start_date, end_date, is_active,
	stripe_subscription_id, stripe_customer_id, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var subID, customerID sql.NullString
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.Plan, &sub.StartDate, &sub.EndDate, &sub.IsActive,
		&subID, &customerID, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	sub.StripeSubscriptionID = subID.String
	sub.StripeCustomerID = customerID.String
	return sub, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// GetSubscriptionByUser возвращает подписку пользователя либо ErrNotFound.
func (s *Storage) GetSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByUser"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_uid = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		return nil, wrapNoRows(op, err)
	}
	return sub, nil
}

// UpsertSubscription создаёт подписку пользователя или полностью перезаписывает существующую.
// Для несуществующего пользователя возвращает ErrNotFound.
// Выполняется одним запросом, поэтому конкурентные вызовы для одного пользователя
// не создают дубликатов.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.UpsertSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO subscriptions (user_uid, plan, start_date, end_date, is_active,
			      stripe_subscription_id, stripe_customer_id, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			  ON CONFLICT (user_uid) DO UPDATE SET
			      plan = EXCLUDED.plan,
			      start_date = EXCLUDED.start_date,
			      end_date = EXCLUDED.end_date,
			      is_active = EXCLUDED.is_active,
			      stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			      stripe_customer_id = EXCLUDED.stripe_customer_id,
			      updated_at = NOW()
			  RETURNING ` + subscriptionColumns
	saved, err := scanSubscription(s.DB.QueryRowContext(ctx, query,
		sub.UserUID, sub.Plan, sub.StartDate, sub.EndDate, sub.IsActive,
		nullIfEmpty(sub.StripeSubscriptionID), nullIfEmpty(sub.StripeCustomerID)))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

// DeactivateSubscription выставляет is_active = false. Возвращает ErrNotFound, если подписки нет.
func (s *Storage) DeactivateSubscription(ctx context.Context, userUID string) error {
	const op = "storage.DeactivateSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE subscriptions SET is_active = false, updated_at = NOW() WHERE user_uid = $1`, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, res)
}

// ListSubscriptions возвращает страницу всех подписок и их общее количество.
func (s *Storage) ListSubscriptions(ctx context.Context, limit, offset int) ([]*models.Subscription, int, error) {
	const op = "storage.ListSubscriptions"
	if err := ctxDone(ctx, op); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  ORDER BY updated_at DESC, id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}
