package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound        = errors.New("cart line not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Repository maintains per-user cart lines. Every mutation takes the
// authenticated user id and verifies ownership in the statement itself,
// so a bare line id from a request can never touch another user's cart.
type Repository interface {
	UpsertLine(ctx context.Context, userID, productID string, quantity int) (Line, error)
	SetQuantity(ctx context.Context, userID, lineID string, quantity int) (Line, error)
	Remove(ctx context.Context, userID, lineID string) (*Line, error)
	DeleteFor(ctx context.Context, userID, productID string) error
	ListFor(ctx context.Context, userID string) ([]LineView, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const lineColumns = `id, user_id, product_id, quantity, created_at`

// UpsertLine merges quantities when the user already has a line for the
// product instead of creating a duplicate.
func (r *PostgresRepository) UpsertLine(ctx context.Context, userID, productID string, quantity int) (Line, error) {
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO cart_lines (id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity = cart_lines.quantity + EXCLUDED.quantity
		RETURNING `+lineColumns,
		uuid.NewString(), userID, productID, quantity)
	return scanLine(row)
}

func (r *PostgresRepository) SetQuantity(ctx context.Context, userID, lineID string, quantity int) (Line, error) {
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE cart_lines SET quantity = $3
		WHERE id = $1 AND user_id = $2
		RETURNING `+lineColumns,
		lineID, userID, quantity)
	line, err := scanLine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, ErrNotFound
		}
		return Line{}, err
	}
	return line, nil
}

// Remove deletes the line and returns it. A line that is already gone is
// not an error; the caller gets (nil, nil).
func (r *PostgresRepository) Remove(ctx context.Context, userID, lineID string) (*Line, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM cart_lines
		WHERE id = $1 AND user_id = $2
		RETURNING `+lineColumns,
		lineID, userID)
	line, err := scanLine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

// DeleteFor clears the user's line for a product once it has been folded
// into an order. Silently no-ops when the line is already gone.
func (r *PostgresRepository) DeleteFor(ctx context.Context, userID, productID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	return err
}

func (r *PostgresRepository) ListFor(ctx context.Context, userID string) ([]LineView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at,
		       p.name, p.image_url, p.price, p.quantity
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("select cart lines: %w", err)
	}
	defer rows.Close()

	var views []LineView
	for rows.Next() {
		var v LineView
		if err := rows.Scan(&v.ID, &v.UserID, &v.ProductID, &v.Quantity, &v.CreatedAt,
			&v.Product.Name, &v.Product.ImageURL, &v.Product.Price, &v.Product.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return views, nil
}

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt)
	return l, err
}
