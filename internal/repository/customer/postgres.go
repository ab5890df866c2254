package customer

import (
	"context"
	"encoding/json"
	"errors"
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

const customerColumns = `id::text, email, password_hash, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(locale, ''), is_admin, addresses, created_at`

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	addrs, err := json.Marshal(c.Addresses)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO customers (email, password_hash, first_name, last_name, locale, addresses)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+customerColumns,
		strings.ToLower(c.Email), c.PasswordHash, c.FirstName, c.LastName, c.Locale, addrs)
	out, err := scanCustomer(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("customer repo: create email=%s error=%v", c.Email, err)
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = $1", id))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE email = $1", strings.ToLower(strings.TrimSpace(email))))
}

func (r *postgresRepo) List(ctx context.Context, limit, offset int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		"SELECT "+customerColumns+" FROM customers ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *postgresRepo) UpdateProfile(ctx context.Context, id, firstName, lastName, locale string) (*domain.Customer, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE customers
SET first_name = $1, last_name = $2, locale = $3
WHERE id = $4
RETURNING `+customerColumns, firstName, lastName, locale, id)
	return scanCustomer(row)
}

func (r *postgresRepo) SetAddresses(ctx context.Context, id string, addrs []domain.Address) error {
	b, err := json.Marshal(addrs)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE customers SET addresses = $1 WHERE id = $2`, b, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var addrs []byte
	if err := row.Scan(
		&c.ID,
		&c.Email,
		&c.PasswordHash,
		&c.FirstName,
		&c.LastName,
		&c.Locale,
		&c.IsAdmin,
		&addrs,
		&c.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(addrs) > 0 {
		_ = json.Unmarshal(addrs, &c.Addresses)
	}
	return &c, nil
}
