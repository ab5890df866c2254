package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
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

const productColumns = `id::text, slug, names, descriptions, COALESCE(category, ''), price_cents, currency, stock, COALESCE(image_url, ''), created_at`

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.Product, error) {
	var (
		conds []string
		args  []interface{}
	)
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_each_text(names) n WHERE lower(n.value) LIKE $%d)", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	q := "SELECT " + productColumns + " FROM products"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	return scanProductRow(row)
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE slug = $1", slug)
	return scanProductRow(row)
}

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO products (slug, names, descriptions, category, price_cents, currency, stock, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+productColumns, in.Slug, in.Names, in.Descriptions, nullable(in.Category), in.PriceCents, in.Currency, in.Stock, nullable(in.ImageURL))
	p, err := scanProductRow(row)
	if err != nil {
		r.logger.Printf("product repo: create slug=%s error=%v", in.Slug, err)
	}
	return p, err
}

func (r *postgresRepo) Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error) {
	sets := []string{}
	args := []interface{}{}
	add := func(expr string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}
	if in.Names != nil {
		add("names = $%d", in.Names)
	}
	if in.Descriptions != nil {
		add("descriptions = $%d", in.Descriptions)
	}
	if in.Category != nil {
		add("category = $%d", *in.Category)
	}
	if in.PriceCents != nil {
		add("price_cents = $%d", *in.PriceCents)
	}
	if in.Stock != nil {
		add("stock = $%d", *in.Stock)
	}
	if in.ImageURL != nil {
		add("image_url = $%d", *in.ImageURL)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), productColumns)
	return scanProductRow(r.pool.QueryRow(ctx, q, args...))
}

// DecrementStock is a single guarded UPDATE, never read-then-write. A row
// with insufficient stock is left untouched and reported as ErrForbidden.
func (r *postgresRepo) DecrementStock(ctx context.Context, id string, quantity int) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE products
SET stock = stock - $1
WHERE id = $2 AND stock >= $1
`, quantity, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrForbidden
	}
	return nil
}

func scanProduct(rows pgx.Rows) (*domain.Product, error) {
	return scanProductRow(rows)
}

func scanProductRow(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Names,
		&p.Descriptions,
		&p.Category,
		&p.PriceCents,
		&p.Currency,
		&p.Stock,
		&p.ImageURL,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
