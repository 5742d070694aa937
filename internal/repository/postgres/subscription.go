package postgres

import (
	"context"

	"github.com/clinicore/clinicore/internal/domain/subscription"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
	"github.com/clinicore/clinicore/internal/types"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id,
			tenant_id,
			plan_id,
			plan_slug,
			billing_cycle,
			seat_count,
			subscription_status,
			current_period_start,
			current_period_end,
			trial_end,
			monthly_price,
			currency,
			region_id,
			failed_payment_count,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		)
		VALUES (
			:id,
			:tenant_id,
			:plan_id,
			:plan_slug,
			:billing_cycle,
			:seat_count,
			:subscription_status,
			:current_period_start,
			:current_period_end,
			:trial_end,
			:monthly_price,
			:currency,
			:region_id,
			:failed_payment_count,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	r.logger.Debugw("creating subscription",
		"subscription_id", s.ID,
		"tenant_id", s.TenantID,
		"plan_slug", s.PlanSlug,
	)

	_, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A subscription already exists for this tenant").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Unable to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE id = :id
		AND tenant_id = :tenant_id
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
}

func (r *subscriptionRepository) GetByTenant(ctx context.Context) (*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE tenant_id = :tenant_id
		AND status = :status
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusActive,
	})
}

func (r *subscriptionRepository) getOne(ctx context.Context, query string, args map[string]interface{}) (*subscription.Subscription, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to fetch subscription").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}

	var s subscription.Subscription
	if err := rows.StructScan(&s); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to read subscription").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	query := `
		UPDATE subscriptions
		SET plan_id = :plan_id,
		plan_slug = :plan_slug,
		billing_cycle = :billing_cycle,
		seat_count = :seat_count,
		subscription_status = :subscription_status,
		current_period_start = :current_period_start,
		current_period_end = :current_period_end,
		trial_end = :trial_end,
		monthly_price = :monthly_price,
		currency = :currency,
		region_id = :region_id,
		failed_payment_count = :failed_payment_count,
		updated_at = :updated_at,
		updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
	`

	result, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		r.logger.Errorw("failed to update subscription", "error", err, "subscription_id", s.ID)
		return ierr.WithError(err).
			WithHint("Unable to update subscription").
			Mark(ierr.ErrDatabase)
	}

	rowsAffected, err := result.RowsAffected()
	if err == nil && rowsAffected == 0 {
		return ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// IncrementFailedPayments keeps the counter correct under concurrent
// failure events: the bump happens in SQL, not as a read-modify-write.
func (r *subscriptionRepository) IncrementFailedPayments(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE subscriptions
		SET failed_payment_count = failed_payment_count + 1,
		subscription_status = :status_past_due,
		updated_at = now()
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND subscription_status != :status_cancelled
		RETURNING failed_payment_count
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"id":               id,
		"tenant_id":        types.GetTenantID(ctx),
		"status_past_due":  types.SubscriptionStatusPastDue,
		"status_cancelled": types.SubscriptionStatusCancelled,
	})
	if err != nil {
		r.logger.Errorw("failed to increment failed payment count", "error", err, "subscription_id", id)
		return 0, ierr.WithError(err).
			WithHint("Unable to record payment failure").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	// zero rows means the subscription was cancelled in the meantime
	if !rows.Next() {
		return 0, nil
	}

	var count int
	if err := rows.Scan(&count); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Unable to read failed payment count").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *subscriptionRepository) CreateEvent(ctx context.Context, e *subscription.Event) error {
	query := `
		INSERT INTO subscription_events (
			id,
			tenant_id,
			subscription_id,
			event_type,
			detail,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		)
		VALUES (
			:id,
			:tenant_id,
			:subscription_id,
			:event_type,
			:detail,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, e)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Unable to record subscription event").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) ListEvents(ctx context.Context, subscriptionID string, limit, offset int) ([]*subscription.Event, error) {
	query := `
		SELECT * FROM subscription_events
		WHERE subscription_id = :subscription_id
		AND tenant_id = :tenant_id
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"subscription_id": subscriptionID,
		"tenant_id":       types.GetTenantID(ctx),
		"limit":           limit,
		"offset":          offset,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to list subscription events").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var events []*subscription.Event
	for rows.Next() {
		var e subscription.Event
		if err := rows.StructScan(&e); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unable to read subscription event").
				Mark(ierr.ErrDatabase)
		}
		events = append(events, &e)
	}
	return events, nil
}
