package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `id::text, customer_id::text, email, total_cents, currency, status, payment_status, stripe_session_id, shipping_address, COALESCE(carrier, ''), COALESCE(tracking_number, ''), line_items, created_at`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, err
	}
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO orders (customer_id, email, total_cents, currency, status, payment_status, stripe_session_id, shipping_address, line_items)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+orderColumns,
		o.CustomerID, o.Email, o.TotalCents, o.Currency, o.Status, o.PaymentStatus, o.StripeSessionID, addr, lines)
	out, err := scanOrder(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("order repo: create session=%s error=%v", o.StripeSessionID, err)
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
}

func (r *postgresRepo) GetByStripeSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE stripe_session_id = $1", sessionID))
}

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.Order, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	q := "SELECT " + orderColumns + " FROM orders"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *postgresRepo) SetShipped(ctx context.Context, id, carrier, trackingNumber string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET status = $1, carrier = $2, tracking_number = $3
WHERE id = $4
`, domain.OrderShipped, carrier, trackingNumber, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SetStatus(ctx context.Context, id, status string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Summarize(ctx context.Context) (*Summary, error) {
	summary := &Summary{CountsByStatus: make(map[string]int)}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary.CountsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(total_cents), 0) FROM orders WHERE payment_status = $1
`, domain.PaymentPaid).Scan(&summary.RevenueCents); err != nil {
		return nil, err
	}
	return summary, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var addr, lines []byte
	if err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.Email,
		&o.TotalCents,
		&o.Currency,
		&o.Status,
		&o.PaymentStatus,
		&o.StripeSessionID,
		&addr,
		&o.Carrier,
		&o.TrackingNumber,
		&lines,
		&o.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(addr) > 0 {
		_ = json.Unmarshal(addr, &o.ShippingAddress)
	}
	if len(lines) > 0 {
		_ = json.Unmarshal(lines, &o.Lines)
	}
	return &o, nil
}
