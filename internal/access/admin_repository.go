package access

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/stockledger/internal/platform/db"
)

// GetUser loads a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	var role string
	err := r.pool.QueryRow(ctx, `SELECT id, email, company_role::text FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	u.CompanyRole = CompanyRole(role)
	return u, nil
}

// StoreExists reports whether the store is present.
func (r *Repository) StoreExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stores WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// StoreWithUsers loads the store and its members.
func (r *Repository) StoreWithUsers(ctx context.Context, storeID int64) (StoreWithUsers, error) {
	out := StoreWithUsers{Users: []StoreMember{}}
	err := r.pool.QueryRow(ctx, `SELECT id, title FROM stores WHERE id = $1`, storeID).Scan(&out.ID, &out.Title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoreWithUsers{}, ErrStoreNotFound
		}
		return StoreWithUsers{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.company_role::text, rs.role::text
		FROM role_user_in_store rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.store_id = $1
		ORDER BY u.id`, storeID)
	if err != nil {
		return StoreWithUsers{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var m StoreMember
		var companyRole, storeRole string
		if err := rows.Scan(&m.ID, &m.Email, &companyRole, &storeRole); err != nil {
			return StoreWithUsers{}, err
		}
		m.CompanyRole = CompanyRole(companyRole)
		m.Role = StoreRole(storeRole)
		out.Users = append(out.Users, m)
	}
	return out, rows.Err()
}

// InsertStoreRole grants a store role.
func (r *Repository) InsertStoreRole(ctx context.Context, storeID, userID int64, role StoreRole) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_user_in_store (user_id, store_id, role)
		VALUES ($1, $2, $3::store_role)`, userID, storeID, string(role))
	return translateRoleError(err)
}

// UpdateStoreRole replaces an existing store role.
func (r *Repository) UpdateStoreRole(ctx context.Context, storeID, userID int64, role StoreRole) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE role_user_in_store SET role = $3::store_role
		WHERE store_id = $1 AND user_id = $2`, storeID, userID, string(role))
	if err != nil {
		return translateRoleError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStoreRoleNotFound
	}
	return nil
}

// DeleteStoreRole removes a store role.
func (r *Repository) DeleteStoreRole(ctx context.Context, storeID, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM role_user_in_store WHERE store_id = $1 AND user_id = $2`, storeID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStoreRoleNotFound
	}
	return nil
}

// UpdateCompanyRole sets the user's company role.
func (r *Repository) UpdateCompanyRole(ctx context.Context, userID int64, role CompanyRole) (User, error) {
	var u User
	var stored string
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET company_role = $2::company_role
		WHERE id = $1
		RETURNING id, email, company_role::text`, userID, string(role)).Scan(&u.ID, &u.Email, &stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	u.CompanyRole = CompanyRole(stored)
	return u, nil
}

// translateRoleError maps constraint violations on role_user_in_store. The
// foreign keys only fire when a user or store is deleted concurrently.
func translateRoleError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsCode(err, db.CodeUniqueViolation):
		return ErrStoreRoleExists
	case db.IsCode(err, db.CodeForeignKeyViolation):
		if strings.HasSuffix(db.ConstraintName(err), "user_id_fkey") {
			return ErrUserNotFound
		}
		return ErrStoreNotFound
	}
	return err
}
