package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cnstrctnetwork/cnstrct/internal/billing"
	"github.com/cnstrctnetwork/cnstrct/internal/database"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AppendEvent(ctx context.Context, e *billing.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (event_type, type, stripe_event_id, data, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	var data any
	if len(e.Data) > 0 {
		data = string(e.Data)
	}

	if _, err := s.db.ExecContext(ctx, query, e.EventType, e.Type, e.StripeEventID, data, e.CreatedAt, e.ModifiedAt); err != nil {
		return fmt.Errorf("inserting webhook event: %w", err)
	}

	return nil
}

func (s *Store) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var id string

	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", billing.ErrUserNotFound
		}

		return "", fmt.Errorf("looking up user: %w", err)
	}

	return id, nil
}

// The conflict target keeps the existing row id; every other column is
// replaced with the incoming values.
const upsertSubscriptionQuery = `
	INSERT INTO subscriptions (
		stripe_id, user_id, price_id, stripe_price_id, currency, interval, status,
		current_period_start, current_period_end, cancel_at_period_end, amount, started_at,
		customer_id, metadata, canceled_at, ended_at
	)
	VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (stripe_id) DO UPDATE SET
		user_id              = EXCLUDED.user_id,
		price_id             = EXCLUDED.price_id,
		stripe_price_id      = EXCLUDED.stripe_price_id,
		currency             = EXCLUDED.currency,
		interval             = EXCLUDED.interval,
		status               = EXCLUDED.status,
		current_period_start = EXCLUDED.current_period_start,
		current_period_end   = EXCLUDED.current_period_end,
		cancel_at_period_end = EXCLUDED.cancel_at_period_end,
		amount               = EXCLUDED.amount,
		started_at           = EXCLUDED.started_at,
		customer_id          = EXCLUDED.customer_id,
		metadata             = EXCLUDED.metadata,
		canceled_at          = EXCLUDED.canceled_at,
		ended_at             = EXCLUDED.ended_at,
		updated_at           = NOW()`

func (s *Store) UpsertSubscription(ctx context.Context, sub *billing.Subscription) error {
	metadata, err := encodeMetadata(sub.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, upsertSubscriptionQuery,
		sub.StripeID, sub.UserID, sub.PriceID, sub.StripePriceID, sub.Currency, sub.Interval, sub.Status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.Amount, sub.StartedAt,
		sub.CustomerID, metadata, sub.CanceledAt, sub.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting subscription: %w", err)
	}

	return nil
}

// UpdateSubscription leaves unknown subscriptions alone: Stripe may send an
// update before the matching created event has been stored.
func (s *Store) UpdateSubscription(ctx context.Context, stripeID string, u billing.SubscriptionUpdate) error {
	metadata, err := encodeMetadata(u.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE subscriptions
		SET status = $1, current_period_start = $2, current_period_end = $3,
			cancel_at_period_end = $4, metadata = $5, canceled_at = $6, ended_at = $7,
			updated_at = NOW()
		WHERE stripe_id = $8`

	_, err = s.db.ExecContext(ctx, query,
		u.Status, u.CurrentPeriodStart, u.CurrentPeriodEnd, u.CancelAtPeriodEnd, metadata,
		u.CanceledAt, u.EndedAt, stripeID,
	)
	if err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}

	return nil
}

func (s *Store) UpdateSubscriptionStatus(ctx context.Context, stripeID, status string) error {
	query := `UPDATE subscriptions SET status = $1, updated_at = NOW() WHERE stripe_id = $2`

	if _, err := s.db.ExecContext(ctx, query, status, stripeID); err != nil {
		return fmt.Errorf("updating subscription status: %w", err)
	}

	return nil
}

// A session without user metadata keeps whatever user the subscription was
// already linked to.
const applyCheckoutQuery = `
	UPDATE subscriptions
	SET metadata = $1, user_id = COALESCE(NULLIF($2, '')::uuid, user_id), status = $3,
		current_period_start = $4, current_period_end = $5, cancel_at_period_end = $6,
		updated_at = NOW()
	WHERE stripe_id = $7`

func (s *Store) ApplyCheckout(ctx context.Context, stripeID string, u billing.CheckoutUpdate) error {
	metadata, err := encodeMetadata(u.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, applyCheckoutQuery,
		metadata, u.UserID, u.Status, u.CurrentPeriodStart, u.CurrentPeriodEnd, u.CancelAtPeriodEnd, stripeID,
	)
	if err != nil {
		return fmt.Errorf("applying checkout: %w", err)
	}

	return nil
}

func (s *Store) GetSubscription(ctx context.Context, stripeID string) (*billing.Subscription, error) {
	query := `
		SELECT stripe_id, COALESCE(user_id::text, ''), COALESCE(price_id, ''), COALESCE(stripe_price_id, ''),
			COALESCE(currency, ''), COALESCE(interval, ''), status,
			COALESCE(current_period_start, 0), COALESCE(current_period_end, 0), cancel_at_period_end,
			amount, COALESCE(started_at, 0), COALESCE(customer_id, ''), metadata, canceled_at, ended_at
		FROM subscriptions
		WHERE stripe_id = $1`

	var (
		sub      billing.Subscription
		metadata []byte
	)

	err := s.db.QueryRowContext(ctx, query, stripeID).Scan(
		&sub.StripeID, &sub.UserID, &sub.PriceID, &sub.StripePriceID, &sub.Currency, &sub.Interval, &sub.Status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd,
		&sub.Amount, &sub.StartedAt, &sub.CustomerID, &metadata, &sub.CanceledAt, &sub.EndedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || database.IsInvalidInput(err) {
			return nil, billing.ErrSubscriptionNotFound
		}

		return nil, fmt.Errorf("getting subscription: %w", err)
	}

	if err := json.Unmarshal(metadata, &sub.Metadata); err != nil {
		return nil, fmt.Errorf("decoding subscription metadata: %w", err)
	}

	return &sub, nil
}

func (s *Store) ClearUserSubscription(ctx context.Context, email string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET subscription = NULL WHERE email = $1`, email); err != nil {
		return fmt.Errorf("clearing user subscription: %w", err)
	}

	return nil
}

func encodeMetadata(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}

	return string(b), nil
}
