package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Ledger owns all mutations of a product's quantity on hand. Reservations
// and releases are single conditional statements executed server-side, so
// concurrent callers can never drive a quantity negative.
type Ledger interface {
	Get(ctx context.Context, productID string) (Product, error)
	Put(ctx context.Context, p Product) (Product, error)
	Reserve(ctx context.Context, productID string, quantity int) (Product, error)
	Release(ctx context.Context, productID string, quantity int) (Product, error)
}

type PostgresLedger struct {
	pool DBPool
}

func NewPostgresLedger(pool DBPool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

const productColumns = `id, name, image_url, price, quantity, created_at, updated_at`

func (r *PostgresLedger) Get(ctx context.Context, productID string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, productID)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresLedger) Put(ctx context.Context, p Product) (Product, error) {
	if p.Quantity < 0 {
		return Product{}, ErrInvalidQuantity
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (id, name, image_url, price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name=EXCLUDED.name, image_url=EXCLUDED.image_url,
		    price=EXCLUDED.price, quantity=EXCLUDED.quantity, updated_at=now()
		RETURNING `+productColumns,
		p.ID, p.Name, p.ImageURL, p.Price, p.Quantity)
	return scanProduct(row)
}

// Reserve decrements quantity on hand by the requested amount. The
// quantity >= requested predicate runs inside the UPDATE, so two
// concurrent reservations can never both win the same stock.
func (r *PostgresLedger) Reserve(ctx context.Context, productID string, quantity int) (Product, error) {
	if quantity <= 0 {
		return Product{}, ErrInvalidQuantity
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE products
		SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
		RETURNING `+productColumns,
		productID, quantity)
	p, err := scanProduct(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Product{}, err
	}

	// Zero rows means either the product is unknown or the stock is short.
	if _, getErr := r.Get(ctx, productID); getErr != nil {
		return Product{}, getErr
	}
	return Product{}, fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
}

// Release credits a prior reservation back. It does not guard against
// double release; the caller tracks what it reserved.
func (r *PostgresLedger) Release(ctx context.Context, productID string, quantity int) (Product, error) {
	if quantity <= 0 {
		return Product{}, ErrInvalidQuantity
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE products
		SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		productID, quantity)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return Product{}, err
	}
	return p, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.ImageURL, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
