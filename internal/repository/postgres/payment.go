package postgres

import (
	"context"

	"github.com/clinicore/clinicore/internal/domain/payment"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
	"github.com/clinicore/clinicore/internal/types"
)

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (
			id,
			tenant_id,
			internal_order_id,
			gateway,
			gateway_order_id,
			gateway_payment_id,
			subscription_id,
			amount,
			currency,
			payment_status,
			failure_reason,
			refunded_amount,
			attempt_count,
			succeeded_at,
			failed_at,
			refunded_at,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		)
		VALUES (
			:id,
			:tenant_id,
			:internal_order_id,
			:gateway,
			:gateway_order_id,
			:gateway_payment_id,
			:subscription_id,
			:amount,
			:currency,
			:payment_status,
			:failure_reason,
			:refunded_amount,
			:attempt_count,
			:succeeded_at,
			:failed_at,
			:refunded_at,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	r.logger.Debugw("creating payment",
		"payment_id", p.ID,
		"tenant_id", p.TenantID,
	)

	_, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A payment with this order id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		r.logger.Errorw("failed to create payment", "error", err)
		return ierr.WithError(err).
			WithHint("Unable to create payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	query := `
		SELECT * FROM payments
		WHERE id = :id
		AND tenant_id = :tenant_id
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
}

func (r *paymentRepository) GetByInternalOrderID(ctx context.Context, internalOrderID string) (*payment.Payment, error) {
	query := `
		SELECT * FROM payments
		WHERE internal_order_id = :internal_order_id
		AND tenant_id = :tenant_id
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"internal_order_id": internalOrderID,
		"tenant_id":         types.GetTenantID(ctx),
	})
}

func (r *paymentRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*payment.Payment, error) {
	query := `
		SELECT * FROM payments
		WHERE gateway_order_id = :gateway_order_id
		AND tenant_id = :tenant_id
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"gateway_order_id": gatewayOrderID,
		"tenant_id":        types.GetTenantID(ctx),
	})
}

func (r *paymentRepository) getOne(ctx context.Context, query string, args map[string]interface{}) (*payment.Payment, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		r.logger.Errorw("failed to get payment", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Unable to fetch payment").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("payment not found").
			WithHint("Payment not found").
			Mark(ierr.ErrNotFound)
	}

	var p payment.Payment
	if err := rows.StructScan(&p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to read payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	query := `
		UPDATE payments
		SET gateway_order_id = :gateway_order_id,
		gateway_payment_id = :gateway_payment_id,
		payment_status = :payment_status,
		failure_reason = :failure_reason,
		refunded_amount = :refunded_amount,
		attempt_count = :attempt_count,
		succeeded_at = :succeeded_at,
		failed_at = :failed_at,
		refunded_at = :refunded_at,
		updated_at = :updated_at,
		updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
	`

	result, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		r.logger.Errorw("failed to update payment", "error", err, "payment_id", p.ID)
		return ierr.WithError(err).
			WithHint("Unable to update payment").
			Mark(ierr.ErrDatabase)
	}

	rowsAffected, err := result.RowsAffected()
	if err == nil && rowsAffected == 0 {
		return ierr.NewError("payment not found").
			WithHint("Payment not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// ReserveRefund is the concurrency gate for refunds: the guard in the
// WHERE clause makes the cumulative cap a single atomic statement, so two
// concurrent refunds of the same balance cannot both pass it.
func (r *paymentRepository) ReserveRefund(ctx context.Context, id string, amount int64) (*payment.Payment, error) {
	query := `
		UPDATE payments
		SET refunded_amount = refunded_amount + :refund_amount,
		payment_status = CASE
			WHEN refunded_amount + :refund_amount >= amount THEN :status_refunded
			ELSE :status_partial
		END,
		refunded_at = now(),
		updated_at = now(),
		updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND refunded_amount + :refund_amount <= amount
		RETURNING *
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"id":              id,
		"tenant_id":       types.GetTenantID(ctx),
		"refund_amount":   amount,
		"status_refunded": types.PaymentStatusRefunded,
		"status_partial":  types.PaymentStatusPartiallyRefunded,
		"updated_by":      types.GetUserID(ctx),
	})
	if err != nil {
		r.logger.Errorw("failed to reserve refund", "error", err, "payment_id", id)
		return nil, ierr.WithError(err).
			WithHint("Unable to reserve refund").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("refund exceeds refundable amount").
			WithHint("Cumulative refunds cannot exceed the original payment amount").
			WithReportableDetails(map[string]any{
				"payment_id": id,
				"requested":  amount,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	var p payment.Payment
	if err := rows.StructScan(&p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to read payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) ReleaseRefund(ctx context.Context, id string, amount int64) error {
	query := `
		UPDATE payments
		SET refunded_amount = refunded_amount - :refund_amount,
		payment_status = CASE
			WHEN refunded_amount - :refund_amount > 0 THEN :status_partial
			ELSE :status_completed
		END,
		refunded_at = CASE
			WHEN refunded_amount - :refund_amount > 0 THEN refunded_at
			ELSE NULL
		END,
		updated_at = now()
		WHERE id = :id
		AND tenant_id = :tenant_id
	`

	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               id,
		"tenant_id":        types.GetTenantID(ctx),
		"refund_amount":    amount,
		"status_partial":   types.PaymentStatusPartiallyRefunded,
		"status_completed": types.PaymentStatusCompleted,
	})
	if err != nil {
		r.logger.Errorw("failed to release reserved refund", "error", err, "payment_id", id)
		return ierr.WithError(err).
			WithHint("Unable to release reserved refund").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) List(ctx context.Context, limit, offset int) ([]*payment.Payment, error) {
	query := `
		SELECT * FROM payments
		WHERE tenant_id = :tenant_id
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"limit":     limit,
		"offset":    offset,
	})
	if err != nil {
		r.logger.Errorw("failed to list payments", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Unable to list payments").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		var p payment.Payment
		if err := rows.StructScan(&p); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unable to read payment").
				Mark(ierr.ErrDatabase)
		}
		payments = append(payments, &p)
	}
	return payments, nil
}
