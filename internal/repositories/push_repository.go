package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// PushRepository stores web-push subscriptions per user.
type PushRepository interface {
	SaveSubscription(ctx context.Context, sub models.PushSubscription) error
	SubscriptionsFor(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID, endpoint string) error
}

// PushRepo is a sqlx implementation of PushRepository.
type PushRepo struct {
	db *sqlx.DB
}

// NewPushRepo constructs a PushRepo.
func NewPushRepo(db *sqlx.DB) *PushRepo {
	return &PushRepo{db: db}
}

// SaveSubscription upserts a browser subscription keyed by endpoint.
func (r *PushRepo) SaveSubscription(ctx context.Context, sub models.PushSubscription) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, endpoint) DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth`,
		sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth)
	return err
}

// SubscriptionsFor returns every registered subscription for the user.
func (r *PushRepo) SubscriptionsFor(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	err := r.db.SelectContext(ctx, &subs, `SELECT * FROM push_subscriptions WHERE user_id=$1`, userID)
	return subs, err
}

// DeleteSubscription drops a stale subscription, typically after a push
// endpoint starts rejecting deliveries.
func (r *PushRepo) DeleteSubscription(ctx context.Context, userID, endpoint string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE user_id=$1 AND endpoint=$2`, userID, endpoint)
	return err
}
