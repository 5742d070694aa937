package postgres

import (
	"context"

	"github.com/clinicore/clinicore/internal/domain/webhookevent"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
	"github.com/clinicore/clinicore/internal/types"
)

type webhookEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{db: db, logger: logger}
}

// Create inserts the event record. The (tenant_id, provider, event_id) unique
// constraint is the deduplication gate: a second delivery of the same gateway
// event fails here with ErrAlreadyExists regardless of how many handlers race.
func (r *webhookEventRepository) Create(ctx context.Context, e *webhookevent.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (
			id,
			tenant_id,
			provider,
			event_id,
			event_type,
			payload,
			event_status,
			retry_count,
			last_error,
			processed_at,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		)
		VALUES (
			:id,
			:tenant_id,
			:provider,
			:event_id,
			:event_type,
			:payload,
			:event_status,
			:retry_count,
			:last_error,
			:processed_at,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, e)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Event already processed").
				WithReportableDetails(map[string]any{
					"provider": e.Provider,
					"event_id": e.EventID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		r.logger.Errorw("failed to create webhook event", "error", err, "event_id", e.EventID)
		return ierr.WithError(err).
			WithHint("Unable to record webhook event").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *webhookEventRepository) Get(ctx context.Context, id string) (*webhookevent.WebhookEvent, error) {
	query := `
		SELECT * FROM webhook_events
		WHERE id = :id
		AND tenant_id = :tenant_id
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to fetch webhook event").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("webhook event not found").
			WithHint("Webhook event not found").
			Mark(ierr.ErrNotFound)
	}

	var e webhookevent.WebhookEvent
	if err := rows.StructScan(&e); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to read webhook event").
			Mark(ierr.ErrDatabase)
	}
	return &e, nil
}

func (r *webhookEventRepository) Update(ctx context.Context, e *webhookevent.WebhookEvent) error {
	query := `
		UPDATE webhook_events
		SET event_status = :event_status,
		retry_count = :retry_count,
		last_error = :last_error,
		processed_at = :processed_at,
		updated_at = :updated_at,
		updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
	`

	result, err := r.db.NamedExecContext(ctx, query, e)
	if err != nil {
		r.logger.Errorw("failed to update webhook event", "error", err, "event_id", e.ID)
		return ierr.WithError(err).
			WithHint("Unable to update webhook event").
			Mark(ierr.ErrDatabase)
	}

	rowsAffected, err := result.RowsAffected()
	if err == nil && rowsAffected == 0 {
		return ierr.NewError("webhook event not found").
			WithHint("Webhook event not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *webhookEventRepository) ListFailed(ctx context.Context, limit, offset int) ([]*webhookevent.WebhookEvent, error) {
	query := `
		SELECT * FROM webhook_events
		WHERE tenant_id = :tenant_id
		AND event_status = :event_status
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"tenant_id":    types.GetTenantID(ctx),
		"event_status": types.WebhookEventStatusFailed,
		"limit":        limit,
		"offset":       offset,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to list failed webhook events").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var events []*webhookevent.WebhookEvent
	for rows.Next() {
		var e webhookevent.WebhookEvent
		if err := rows.StructScan(&e); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unable to read webhook event").
				Mark(ierr.ErrDatabase)
		}
		events = append(events, &e)
	}
	return events, nil
}
