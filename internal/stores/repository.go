package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockledger/internal/platform/db"
)

// Repository provides PostgreSQL persistence for stores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a store.
func (r *Repository) Create(ctx context.Context, title string) (Store, error) {
	var s Store
	err := r.pool.QueryRow(ctx,
		`INSERT INTO stores (title) VALUES ($1) RETURNING id, title, created_at`, title,
	).Scan(&s.ID, &s.Title, &s.CreatedAt)
	if err != nil {
		if db.IsCode(err, db.CodeUniqueViolation) {
			return Store{}, ErrDuplicateTitle
		}
		return Store{}, err
	}
	return s, nil
}

// Get loads a store by id.
func (r *Repository) Get(ctx context.Context, id int64) (Store, error) {
	var s Store
	err := r.pool.QueryRow(ctx, `SELECT id, title, created_at FROM stores WHERE id = $1`, id).
		Scan(&s.ID, &s.Title, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Store{}, ErrStoreNotFound
		}
		return Store{}, err
	}
	return s, nil
}

// List returns a page of stores and the filtered total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Store, int, error) {
	whereClause := ""
	var args []any
	argPos := 1
	if filter.StoreIDs != nil {
		whereClause = fmt.Sprintf("WHERE id = ANY($%d)", argPos)
		args = append(args, filter.StoreIDs)
		argPos++
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM stores %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, title, created_at
		FROM stores
		%s
		ORDER BY id
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]Store, 0, filter.Limit)
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}
