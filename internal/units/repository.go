package units

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockledger/internal/platform/db"
)

// Repository provides PostgreSQL persistence for units.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const unitColumns = `
	u.id, u.title, u.description, u.measurement::text, u.quantity, u.average_cost_price,
	u.retail_price, u.store_id, u.created_at,
	i.id, i.key_100, i.key_300, i.key_1280, i.status::text`

const unitFrom = `
	FROM units u
	LEFT JOIN unit_images i ON i.id = u.main_image_id`

// Create inserts a unit with zeroed ledger fields.
func (r *Repository) Create(ctx context.Context, input CreateUnitInput) (Unit, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO units (title, description, measurement, store_id)
		VALUES ($1, $2, $3::unit_measurement, $4)
		RETURNING id`,
		input.Title, input.Description, string(input.Measurement), input.StoreID,
	).Scan(&id)
	if err != nil {
		if db.IsCode(err, db.CodeForeignKeyViolation) {
			return Unit{}, ErrStoreNotFound
		}
		return Unit{}, err
	}
	return r.Get(ctx, id)
}

// Get loads a unit with its main image.
func (r *Repository) Get(ctx context.Context, id int64) (Unit, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+unitColumns+unitFrom+" WHERE u.id = $1", id)
	u, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Unit{}, ErrUnitNotFound
		}
		return Unit{}, err
	}
	return u, nil
}

// List returns a page of a store's units and the filtered total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Unit, int, error) {
	conditions := []string{"u.store_id = $1"}
	args := []any{filter.StoreID}
	argPos := 2

	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(u.title ILIKE $%d OR u.description ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+search+"%")
		argPos++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM units u "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s %s %s ORDER BY u.id LIMIT $%d OFFSET $%d",
		unitColumns, unitFrom, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]Unit, 0, filter.Limit)
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, u)
	}
	return list, total, rows.Err()
}

// UpdateDetails changes title and description. Ledger fields are untouched.
func (r *Repository) UpdateDetails(ctx context.Context, id int64, input UpdateUnitInput) (Unit, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE units
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description)
		WHERE id = $1`,
		id, input.Title, input.Description,
	)
	if err != nil {
		return Unit{}, err
	}
	if tag.RowsAffected() == 0 {
		return Unit{}, ErrUnitNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a unit that no ledger transaction references.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM units WHERE id = $1`, id)
	if err != nil {
		if db.IsCode(err, db.CodeForeignKeyViolation) {
			return ErrUnitHasTransactions
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnitNotFound
	}
	return nil
}

// HasTransactions reports whether ledger rows reference the unit.
func (r *Repository) HasTransactions(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM actions_transactions WHERE unit_id = $1)`, id).Scan(&exists)
	return exists, err
}

// GetByIDs returns existence/ownership refs for the given ids. Missing ids are
// simply absent from the result.
func (r *Repository) GetByIDs(ctx context.Context, ids []int64) ([]Ref, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, store_id, quantity FROM units WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := make([]Ref, 0, len(ids))
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.StoreID, &ref.Quantity); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func scanUnit(row pgx.Row) (Unit, error) {
	var (
		u           Unit
		measurement string
		imageID     *int64
		key100      *string
		key300      *string
		key1280     *string
		imageStatus *string
	)
	err := row.Scan(
		&u.ID, &u.Title, &u.Description, &measurement, &u.Quantity, &u.AverageCostPrice,
		&u.RetailPrice, &u.StoreID, &u.CreatedAt,
		&imageID, &key100, &key300, &key1280, &imageStatus,
	)
	if err != nil {
		return Unit{}, err
	}
	u.Measurement = Measurement(measurement)
	if imageID != nil {
		u.MainImage = &Image{ID: *imageID, Key100: key100, Key300: key300, Key1280: key1280}
		if imageStatus != nil {
			u.MainImage.Status = *imageStatus
		}
	}
	return u, nil
}
