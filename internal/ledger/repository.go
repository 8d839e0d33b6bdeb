package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/platform/db"
	"github.com/odyssey-erp/stockledger/internal/units"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations of one batch transaction.
type TxRepository interface {
	LockUnits(ctx context.Context, ids []int64) ([]UnitState, error)
	ApplyUnitChanges(ctx context.Context, changes []UnitChange) ([]UnitSnapshot, error)
	InsertAction(ctx context.Context, kind ActionKind, storeID int64) (Action, error)
	InsertTransactions(ctx context.Context, rows []Transaction) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a read-committed transaction. Batches
// touching the same unit queue on its row lock and see the committed row.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) LockUnits(ctx context.Context, ids []int64) ([]UnitState, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, store_id, quantity, average_cost_price, retail_price
		FROM units
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make([]UnitState, 0, len(ids))
	for rows.Next() {
		var s UnitState
		if err := rows.Scan(&s.ID, &s.StoreID, &s.Quantity, &s.AverageCostPrice, &s.RetailPrice); err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

// ApplyUnitChanges updates every unit in one statement. All arithmetic runs
// against the persisted row; the self-joined snapshot b yields the values the
// row held before the update.
func (t *txRepo) ApplyUnitChanges(ctx context.Context, changes []UnitChange) ([]UnitSnapshot, error) {
	ids := make([]int64, len(changes))
	deltas := make([]string, len(changes))
	costs := make([]*string, len(changes))
	retails := make([]*string, len(changes))
	for i, c := range changes {
		ids[i] = c.UnitID
		deltas[i] = c.QuantityDelta.String()
		costs[i] = decimalText(c.CostPrice)
		retails[i] = decimalText(c.RetailPrice)
	}

	rows, err := t.tx.Query(ctx, `
		UPDATE units u
		SET quantity = u.quantity + c.quantity_delta,
		    average_cost_price = CASE
		        WHEN c.cost_price IS NULL THEN u.average_cost_price
		        ELSE COALESCE(
		            (u.average_cost_price * u.quantity + c.cost_price * c.quantity_delta)
		                / NULLIF(u.quantity + c.quantity_delta, 0),
		            u.average_cost_price)
		    END,
		    retail_price = COALESCE(c.retail_price, u.retail_price)
		FROM unnest($1::bigint[], $2::text[]::numeric[], $3::text[]::numeric[], $4::text[]::numeric[])
		        AS c(unit_id, quantity_delta, cost_price, retail_price),
		     (SELECT id, quantity, retail_price FROM units WHERE id = ANY($1) FOR UPDATE) b
		WHERE u.id = c.unit_id AND b.id = u.id
		RETURNING u.id, u.store_id, u.quantity, u.average_cost_price, u.retail_price,
		          b.quantity, b.retail_price`,
		ids, deltas, costs, retails,
	)
	if err != nil {
		return nil, translateWriteError(err)
	}
	defer rows.Close()

	snapshots := make([]UnitSnapshot, 0, len(changes))
	for rows.Next() {
		var s UnitSnapshot
		if err := rows.Scan(
			&s.ID, &s.StoreID, &s.Quantity, &s.AverageCostPrice, &s.RetailPrice,
			&s.PreviousQuantity, &s.PreviousRetailPrice,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, translateWriteError(err)
	}
	return snapshots, nil
}

func (t *txRepo) InsertAction(ctx context.Context, kind ActionKind, storeID int64) (Action, error) {
	a := Action{Kind: kind, StoreID: storeID}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO actions (title, store_id)
		VALUES ($1::action_kind, $2)
		RETURNING id, created_at`,
		string(kind), storeID,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return Action{}, translateWriteError(err)
	}
	return a, nil
}

// InsertTransactions writes all rows in one statement ordered by line_no.
func (t *txRepo) InsertTransactions(ctx context.Context, rows []Transaction) error {
	if len(rows) == 0 {
		return nil
	}
	lineNos := make([]int32, len(rows))
	unitIDs := make([]int64, len(rows))
	quantities := make([]*string, len(rows))
	costs := make([]*string, len(rows))
	retails := make([]*string, len(rows))
	previous := make([]*string, len(rows))
	discounts := make([]*string, len(rows))
	for i, row := range rows {
		lineNos[i] = int32(row.LineNo)
		unitIDs[i] = row.UnitID
		quantities[i] = nullDecimalText(row.QuantityDelta)
		costs[i] = nullDecimalText(row.CostPrice)
		retails[i] = nullDecimalText(row.RetailPrice)
		previous[i] = nullDecimalText(row.PreviousRetailPrice)
		discounts[i] = nullDecimalText(row.DiscountPrice)
	}
	first := rows[0]

	_, err := t.tx.Exec(ctx, `
		INSERT INTO actions_transactions (
			line_no, unit_id, quantity_delta, cost_price, retail_price,
			previous_retail_price, discount_price,
			action, user_id, action_id, store_id, created_at
		)
		SELECT l.line_no, l.unit_id, l.quantity_delta, l.cost_price, l.retail_price,
		       l.previous_retail_price, l.discount_price,
		       $8::action_kind, $9, $10, $11, $12
		FROM unnest(
			$1::int[], $2::bigint[],
			$3::text[]::numeric[], $4::text[]::numeric[], $5::text[]::numeric[],
			$6::text[]::numeric[], $7::text[]::numeric[]
		) AS l(line_no, unit_id, quantity_delta, cost_price, retail_price, previous_retail_price, discount_price)
		ORDER BY l.line_no`,
		lineNos, unitIDs, quantities, costs, retails, previous, discounts,
		string(first.Kind), first.UserID, first.ActionID, first.StoreID, first.CreatedAt,
	)
	if err != nil {
		return translateWriteError(err)
	}
	return nil
}

// CountActions counts actions matching the filter, ignoring the page window.
func (r *Repository) CountActions(ctx context.Context, filter ActionFilter) (int, error) {
	whereClause, args, _ := actionConditions(filter)
	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM actions a "+whereClause, args...).Scan(&total)
	return total, err
}

// ListActions returns a page of actions with the units each one touched.
func (r *Repository) ListActions(ctx context.Context, filter ActionFilter) ([]ActionSummary, error) {
	whereClause, args, argPos := actionConditions(filter)
	query := fmt.Sprintf(`
		SELECT a.id, a.title::text, a.store_id, s.title, a.created_at
		FROM actions a
		JOIN stores s ON s.id = a.store_id
		%s
		ORDER BY a.id DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]ActionSummary, 0, filter.Limit)
	index := make(map[int64]int)
	ids := make([]int64, 0, filter.Limit)
	for rows.Next() {
		var s ActionSummary
		var kind string
		if err := rows.Scan(&s.ID, &kind, &s.StoreID, &s.StoreTitle, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Kind = ActionKind(kind)
		s.Transactions = []UnitTitle{}
		index[s.ID] = len(summaries)
		ids = append(ids, s.ID)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return summaries, nil
	}

	unitRows, err := r.pool.Query(ctx, `
		SELECT t.action_id, u.id, u.title
		FROM actions_transactions t
		JOIN units u ON u.id = t.unit_id
		WHERE t.action_id = ANY($1)
		ORDER BY t.action_id, t.line_no`, ids)
	if err != nil {
		return nil, err
	}
	defer unitRows.Close()
	for unitRows.Next() {
		var actionID int64
		var ut UnitTitle
		if err := unitRows.Scan(&actionID, &ut.UnitID, &ut.Title); err != nil {
			return nil, err
		}
		pos := index[actionID]
		summaries[pos].Transactions = append(summaries[pos].Transactions, ut)
	}
	return summaries, unitRows.Err()
}

// GetAction loads an action header.
func (r *Repository) GetAction(ctx context.Context, id int64) (Action, error) {
	var a Action
	var kind string
	err := r.pool.QueryRow(ctx, `SELECT id, title::text, store_id, created_at FROM actions WHERE id = $1`, id).
		Scan(&a.ID, &kind, &a.StoreID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Action{}, ErrActionNotFound
		}
		return Action{}, err
	}
	a.Kind = ActionKind(kind)
	return a, nil
}

// ListTransactions returns an action's rows joined with their units, in
// submission order.
func (r *Repository) ListTransactions(ctx context.Context, actionID int64) ([]TransactionDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.line_no, t.quantity_delta, t.cost_price, t.retail_price,
		       t.previous_retail_price, t.discount_price, t.action::text,
		       t.unit_id, t.user_id, t.action_id, t.store_id, t.created_at,
		       u.title, u.description,
		       i.id, i.key_100, i.key_300, i.key_1280, i.status::text
		FROM actions_transactions t
		JOIN units u ON u.id = t.unit_id
		LEFT JOIN unit_images i ON i.id = u.main_image_id
		WHERE t.action_id = $1
		ORDER BY t.line_no`, actionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []TransactionDetail
	for rows.Next() {
		var (
			d           TransactionDetail
			kind        string
			imageID     *int64
			key100      *string
			key300      *string
			key1280     *string
			imageStatus *string
		)
		if err := rows.Scan(
			&d.ID, &d.LineNo, &d.QuantityDelta, &d.CostPrice, &d.RetailPrice,
			&d.PreviousRetailPrice, &d.DiscountPrice, &kind,
			&d.UnitID, &d.UserID, &d.ActionID, &d.StoreID, &d.CreatedAt,
			&d.Unit.Title, &d.Unit.Description,
			&imageID, &key100, &key300, &key1280, &imageStatus,
		); err != nil {
			return nil, err
		}
		d.Kind = ActionKind(kind)
		d.Unit.ID = d.UnitID
		if imageID != nil {
			d.Unit.MainImage = &units.Image{ID: *imageID, Key100: key100, Key300: key300, Key1280: key1280}
			if imageStatus != nil {
				d.Unit.MainImage.Status = *imageStatus
			}
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func actionConditions(filter ActionFilter) (string, []any, int) {
	var conditions []string
	var args []any
	argPos := 1
	if filter.StoreID != nil {
		conditions = append(conditions, fmt.Sprintf("a.store_id = $%d", argPos))
		args = append(args, *filter.StoreID)
		argPos++
	}
	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("a.title = $%d::action_kind", argPos))
		args = append(args, string(*filter.Kind))
		argPos++
	}
	if len(conditions) == 0 {
		return "", args, argPos
	}
	return "WHERE " + strings.Join(conditions, " AND "), args, argPos
}

func translateWriteError(err error) error {
	switch {
	case db.IsCode(err, db.CodeCheckViolation):
		return ErrInsufficientStock
	case db.IsCode(err, db.CodeForeignKeyViolation) && strings.HasSuffix(db.ConstraintName(err), "unit_id_fkey"):
		return ErrUnitNotFound
	}
	return err
}

func decimalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func nullDecimalText(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}
