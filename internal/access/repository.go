package access

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads principals from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadPrincipal reads the user's company role and store roles.
func (r *Repository) LoadPrincipal(ctx context.Context, userID int64) (Principal, error) {
	p := Principal{UserID: userID, StoreRoles: make(map[int64]StoreRole)}
	var role string
	err := r.pool.QueryRow(ctx, `SELECT company_role::text FROM users WHERE id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrUserNotFound
		}
		return Principal{}, err
	}
	p.CompanyRole = CompanyRole(role)

	rows, err := r.pool.Query(ctx, `SELECT store_id, role::text FROM role_user_in_store WHERE user_id = $1`, userID)
	if err != nil {
		return Principal{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var storeID int64
		var storeRole string
		if err := rows.Scan(&storeID, &storeRole); err != nil {
			return Principal{}, err
		}
		p.StoreRoles[storeID] = StoreRole(storeRole)
	}
	return p, rows.Err()
}
