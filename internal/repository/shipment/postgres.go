package shipment

import (
	"context"
	"encoding/json"
	"errors"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgres returns the shipment store. order_id is a real foreign key to
// orders, not a metadata side channel.
func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const shipmentColumns = `id::text, order_id::text, carrier, service, tracking_number, label_url, status, address_from, address_to, created_at`

func (r *postgresRepo) Create(ctx context.Context, s domain.Shipment) (*domain.Shipment, error) {
	from, err := json.Marshal(s.AddressFrom)
	if err != nil {
		return nil, err
	}
	to, err := json.Marshal(s.AddressTo)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO shipments (order_id, carrier, service, tracking_number, label_url, status, address_from, address_to)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+shipmentColumns,
		s.OrderID, s.Carrier, s.Service, s.TrackingNumber, s.LabelURL, s.Status, from, to)
	return scanShipment(row)
}

func (r *postgresRepo) GetByOrder(ctx context.Context, orderID string) (*domain.Shipment, error) {
	return scanShipment(r.pool.QueryRow(ctx,
		"SELECT "+shipmentColumns+" FROM shipments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1", orderID))
}

func scanShipment(row pgx.Row) (*domain.Shipment, error) {
	var s domain.Shipment
	var from, to []byte
	if err := row.Scan(
		&s.ID,
		&s.OrderID,
		&s.Carrier,
		&s.Service,
		&s.TrackingNumber,
		&s.LabelURL,
		&s.Status,
		&from,
		&to,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(from) > 0 {
		_ = json.Unmarshal(from, &s.AddressFrom)
	}
	if len(to) > 0 {
		_ = json.Unmarshal(to, &s.AddressTo)
	}
	return &s, nil
}
