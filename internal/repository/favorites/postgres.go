package favorites

import (
	"context"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) List(ctx context.Context, ownerID string) ([]domain.FavoriteItem, error) {
	const q = `
SELECT id::text, owner_id, product_id::text, created_at
FROM favorites
WHERE owner_id = $1
ORDER BY created_at DESC
`
	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.FavoriteItem
	for rows.Next() {
		var f domain.FavoriteItem
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.ProductID, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

// Add inserts with ON CONFLICT DO NOTHING so concurrent duplicate adds stay
// a no-op instead of racing the read-then-write.
func (s *postgresStore) Add(ctx context.Context, ownerID, productID string) (bool, error) {
	cmd, err := s.pool.Exec(ctx, `
INSERT INTO favorites (owner_id, product_id)
VALUES ($1, $2)
ON CONFLICT (owner_id, product_id) DO NOTHING
`, ownerID, productID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *postgresStore) Remove(ctx context.Context, ownerID, productID string) error {
	cmd, err := s.pool.Exec(ctx, `
DELETE FROM favorites
WHERE owner_id = $1 AND product_id = $2
`, ownerID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *postgresStore) Clear(ctx context.Context, ownerID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM favorites WHERE owner_id = $1`, ownerID)
	return err
}
