package cart

import (
	"context"
	"encoding/json"
	"errors"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres returns the customer-cart store. Rows are scoped by owner in
// every statement so one customer can never touch another's items; the
// (owner_id, product_id) unique index backs the one-item-per-product rule.
func NewPostgres(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) List(ctx context.Context, ownerID string) ([]domain.CartItem, error) {
	const q = `
SELECT id::text, owner_id, product_id::text, quantity, snapshot, created_at, updated_at
FROM cart_items
WHERE owner_id = $1
ORDER BY created_at ASC
`
	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *postgresStore) Upsert(ctx context.Context, ownerID, productID string, quantity int, snap *domain.ProductSnapshot) (*domain.CartItem, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	found := true
	var itemID string
	var existingQty int
	err = tx.QueryRow(ctx, `
SELECT id::text, quantity
FROM cart_items
WHERE owner_id = $1 AND product_id = $2
`, ownerID, productID).Scan(&itemID, &existingQty)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		found = false
	}

	snapJSON, err := marshalSnapshot(snap)
	if err != nil {
		return nil, err
	}

	var item *domain.CartItem
	if found {
		row := tx.QueryRow(ctx, `
UPDATE cart_items
SET quantity = quantity + $1, snapshot = $2, updated_at = now()
WHERE id = $3
RETURNING id::text, owner_id, product_id::text, quantity, snapshot, created_at, updated_at
`, quantity, snapJSON, itemID)
		item, err = scanItem(row)
	} else {
		row := tx.QueryRow(ctx, `
INSERT INTO cart_items (owner_id, product_id, quantity, snapshot)
VALUES ($1, $2, $3, $4)
RETURNING id::text, owner_id, product_id::text, quantity, snapshot, created_at, updated_at
`, ownerID, productID, quantity, snapJSON)
		item, err = scanItem(row)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *postgresStore) SetQuantity(ctx context.Context, ownerID, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, ownerID, itemID)
	}
	cmd, err := s.pool.Exec(ctx, `
UPDATE cart_items
SET quantity = $1, updated_at = now()
WHERE id = $2 AND owner_id = $3
`, quantity, itemID, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *postgresStore) Remove(ctx context.Context, ownerID, itemID string) error {
	cmd, err := s.pool.Exec(ctx, `
DELETE FROM cart_items
WHERE id = $1 AND owner_id = $2
`, itemID, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *postgresStore) Clear(ctx context.Context, ownerID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE owner_id = $1`, ownerID)
	return err
}

func scanItem(row pgx.Row) (*domain.CartItem, error) {
	var item domain.CartItem
	var snapJSON []byte
	if err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.ProductID,
		&item.Quantity,
		&snapJSON,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(snapJSON) > 0 {
		var snap domain.ProductSnapshot
		if err := json.Unmarshal(snapJSON, &snap); err == nil {
			item.Snapshot = &snap
		}
	}
	return &item, nil
}

func marshalSnapshot(snap *domain.ProductSnapshot) ([]byte, error) {
	if snap == nil {
		return nil, nil
	}
	return json.Marshal(snap)
}
