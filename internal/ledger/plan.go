package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/access"
)

type field uint8

const (
	fieldQuantity field = 1 << iota
	fieldCost
	fieldRetail
	fieldDiscount
)

// kindRule describes one action kind: the line fields it requires, the
// direction it moves stock and who may submit it.
type kindRule struct {
	fields    field
	direction int
	roles     []access.StoreRole
}

var (
	managerOnly = []access.StoreRole{access.StoreRoleManager}
	salesFloor  = []access.StoreRole{access.StoreRoleManager, access.StoreRoleSeller}
)

var rules = map[ActionKind]kindRule{
	KindAddStock:    {fields: fieldQuantity | fieldCost | fieldRetail, direction: 1, roles: managerOnly},
	KindSales:       {fields: fieldQuantity | fieldDiscount, direction: -1, roles: salesFloor},
	KindSalesReturn: {fields: fieldQuantity | fieldDiscount, direction: 1, roles: salesFloor},
	KindWriteOff:    {fields: fieldQuantity, direction: -1, roles: managerOnly},
	KindNewPrice:    {fields: fieldRetail, direction: 0, roles: managerOnly},
	KindStockReturn: {fields: fieldQuantity | fieldCost, direction: -1, roles: managerOnly},
}

var minAmount = decimal.RequireFromString("0.01")

// lineField pairs a submitted value with the decimal places its column
// stores.
type lineField struct {
	flag  field
	name  string
	scale int32
	value *decimal.Decimal
}

func lineFields(line LineItem) []lineField {
	return []lineField{
		{fieldQuantity, "quantity_delta", 4, line.QuantityDelta},
		{fieldCost, "cost_price", 6, line.CostPrice},
		{fieldRetail, "retail_price", 2, line.RetailPrice},
		{fieldDiscount, "discount_price", 2, line.DiscountPrice},
	}
}

// validateLines checks every line against the kind's shape. Lines are
// numbered from 1 in errors.
func validateLines(kind ActionKind, lines []LineItem) error {
	rule := rules[kind]
	if len(lines) == 0 {
		return ErrEmptyBatch
	}
	for i, line := range lines {
		if line.UnitID < 1 {
			return &LineItemError{Line: i + 1, Field: "unit_id", Reason: "must be >= 1"}
		}
		for _, f := range lineFields(line) {
			required := rule.fields&f.flag != 0
			switch {
			case required && f.value == nil:
				return &LineItemError{Line: i + 1, Field: f.name, Reason: "is required"}
			case required && f.value.LessThan(minAmount):
				return &LineItemError{Line: i + 1, Field: f.name, Reason: "must be >= 0.01"}
			case required && !f.value.Equal(f.value.Truncate(f.scale)):
				return &LineItemError{Line: i + 1, Field: f.name, Reason: fmt.Sprintf("allows at most %d decimal places", f.scale)}
			case !required && f.value != nil:
				return &LineItemError{Line: i + 1, Field: f.name, Reason: "is not allowed for " + string(kind)}
			}
		}
	}
	return nil
}

func duplicateUnitIDs(lines []LineItem) []int64 {
	seen := make(map[int64]int, len(lines))
	var dups []int64
	for _, line := range lines {
		seen[line.UnitID]++
		if seen[line.UnitID] == 2 {
			dups = append(dups, line.UnitID)
		}
	}
	return dups
}

func unitIDs(lines []LineItem) []int64 {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.UnitID]; ok {
			continue
		}
		seen[line.UnitID] = struct{}{}
		ids = append(ids, line.UnitID)
	}
	return ids
}

// checkOwnership reports units missing from owners or owned by another store.
// owners maps unit id to store id.
func checkOwnership(storeID int64, ids []int64, owners map[int64]int64) error {
	var missing, foreign []int64
	for _, id := range ids {
		owner, ok := owners[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case owner != storeID:
			foreign = append(foreign, id)
		}
	}
	if len(missing) > 0 {
		return newUnitIDsError(ErrUnitNotFound, missing)
	}
	if len(foreign) > 0 {
		return newUnitIDsError(ErrUnitBelongsToAnotherStore, foreign)
	}
	return nil
}

// unitChanges folds the lines into one change per unit, in first-seen order.
func unitChanges(kind ActionKind, lines []LineItem) []UnitChange {
	rule := rules[kind]
	index := make(map[int64]int, len(lines))
	changes := make([]UnitChange, 0, len(lines))
	for _, line := range lines {
		pos, ok := index[line.UnitID]
		if !ok {
			pos = len(changes)
			index[line.UnitID] = pos
			changes = append(changes, UnitChange{UnitID: line.UnitID})
		}
		c := &changes[pos]
		if line.QuantityDelta != nil && rule.direction != 0 {
			c.QuantityDelta = c.QuantityDelta.Add(line.QuantityDelta.Mul(decimal.NewFromInt(int64(rule.direction))))
		}
		switch kind {
		case KindAddStock:
			c.CostPrice = line.CostPrice
			c.RetailPrice = line.RetailPrice
		case KindNewPrice:
			c.RetailPrice = line.RetailPrice
		}
	}
	return changes
}

// checkStock rejects changes that would take a unit below zero, evaluating all
// lines of the batch against the same starting quantity.
func checkStock(changes []UnitChange, quantities map[int64]decimal.Decimal) error {
	var short []int64
	for _, c := range changes {
		if !c.QuantityDelta.IsNegative() {
			continue
		}
		if quantities[c.UnitID].Add(c.QuantityDelta).IsNegative() {
			short = append(short, c.UnitID)
		}
	}
	if len(short) > 0 {
		return newUnitIDsError(ErrInsufficientStock, short)
	}
	return nil
}

func nullable(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func present(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// buildTransactions produces one row per line in submission order, reading
// unit-derived prices from the post-update snapshots.
func buildTransactions(action Action, userID int64, lines []LineItem, snapshots map[int64]UnitSnapshot) []Transaction {
	rows := make([]Transaction, 0, len(lines))
	for i, line := range lines {
		snap := snapshots[line.UnitID]
		row := Transaction{
			LineNo:    i + 1,
			Kind:      action.Kind,
			UnitID:    line.UnitID,
			UserID:    userID,
			ActionID:  action.ID,
			StoreID:   action.StoreID,
			CreatedAt: action.CreatedAt,
		}
		switch action.Kind {
		case KindAddStock:
			row.QuantityDelta = nullable(line.QuantityDelta)
			row.CostPrice = nullable(line.CostPrice)
			row.RetailPrice = nullable(line.RetailPrice)
		case KindSales, KindSalesReturn:
			row.QuantityDelta = nullable(line.QuantityDelta)
			row.CostPrice = present(snap.AverageCostPrice)
			row.RetailPrice = present(snap.RetailPrice)
			row.DiscountPrice = nullable(line.DiscountPrice)
		case KindWriteOff:
			row.QuantityDelta = nullable(line.QuantityDelta)
			row.CostPrice = present(snap.AverageCostPrice)
			row.RetailPrice = present(snap.RetailPrice)
		case KindNewPrice:
			row.RetailPrice = present(snap.RetailPrice)
			row.PreviousRetailPrice = present(snap.PreviousRetailPrice)
		case KindStockReturn:
			row.QuantityDelta = nullable(line.QuantityDelta)
			row.CostPrice = nullable(line.CostPrice)
		}
		rows = append(rows, row)
	}
	return rows
}
