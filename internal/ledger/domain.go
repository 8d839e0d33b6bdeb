package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/units"
)

// ActionKind selects the transition a batch applies to its units.
type ActionKind string

const (
	KindAddStock    ActionKind = "addStock"
	KindSales       ActionKind = "sales"
	KindSalesReturn ActionKind = "salesReturn"
	KindWriteOff    ActionKind = "writeOff"
	KindNewPrice    ActionKind = "newPrice"
	KindStockReturn ActionKind = "stockReturn"
)

// ParseActionKind returns the kind named by s.
func ParseActionKind(s string) (ActionKind, error) {
	kind := ActionKind(s)
	if _, ok := rules[kind]; !ok {
		return "", ErrUnknownActionKind
	}
	return kind, nil
}

// LineItem is one submitted line. Which price fields are required depends on
// the batch kind; the rest must be nil.
type LineItem struct {
	UnitID        int64            `json:"unit_id"`
	QuantityDelta *decimal.Decimal `json:"quantity_delta,omitempty"`
	CostPrice     *decimal.Decimal `json:"cost_price,omitempty"`
	RetailPrice   *decimal.Decimal `json:"retail_price,omitempty"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
}

// BatchInput is an ordered list of line items applied to one store.
type BatchInput struct {
	StoreID        int64
	Kind           ActionKind
	Lines          []LineItem
	IdempotencyKey string
}

// Action is the immutable header of a batch.
type Action struct {
	ID        int64      `json:"id"`
	Kind      ActionKind `json:"title"`
	StoreID   int64      `json:"store_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// Transaction is one immutable ledger row.
type Transaction struct {
	ID                  int64               `json:"id"`
	LineNo              int                 `json:"line_no"`
	QuantityDelta       decimal.NullDecimal `json:"quantity_delta"`
	CostPrice           decimal.NullDecimal `json:"cost_price"`
	RetailPrice         decimal.NullDecimal `json:"retail_price"`
	PreviousRetailPrice decimal.NullDecimal `json:"previous_retail_price"`
	DiscountPrice       decimal.NullDecimal `json:"discount_price"`
	Kind                ActionKind          `json:"action"`
	UnitID              int64               `json:"unit_id"`
	UserID              int64               `json:"user_id"`
	ActionID            int64               `json:"action_id"`
	StoreID             int64               `json:"store_id"`
	CreatedAt           time.Time           `json:"created_at"`
}

// UnitState is a unit's ledger fields as locked at the start of a batch.
type UnitState struct {
	ID               int64
	StoreID          int64
	Quantity         decimal.Decimal
	AverageCostPrice decimal.Decimal
	RetailPrice      decimal.Decimal
}

// UnitChange is the per-unit update pushed down to the store. CostPrice and
// RetailPrice are nil when the kind leaves those fields alone.
type UnitChange struct {
	UnitID        int64
	QuantityDelta decimal.Decimal
	CostPrice     *decimal.Decimal
	RetailPrice   *decimal.Decimal
}

// UnitSnapshot pairs a unit's post-update state with the pre-update values
// needed for audit fields.
type UnitSnapshot struct {
	UnitState
	PreviousQuantity    decimal.Decimal
	PreviousRetailPrice decimal.Decimal
}

// ActionFilter narrows the action listing. A nil StoreID lists every store.
type ActionFilter struct {
	StoreID *int64
	Kind    *ActionKind
	Offset  int
	Limit   int
}

// UnitTitle is the compact unit projection shown in listings.
type UnitTitle struct {
	UnitID int64  `json:"unit_id"`
	Title  string `json:"title"`
}

// ActionSummary is a listed action with the units it touched.
type ActionSummary struct {
	ID           int64       `json:"id"`
	Kind         ActionKind  `json:"title"`
	StoreID      int64       `json:"store_id"`
	StoreTitle   string      `json:"store_title"`
	CreatedAt    time.Time   `json:"created_at"`
	Transactions []UnitTitle `json:"transactions"`
}

// TransactionUnit is the unit detail attached to a transaction.
type TransactionUnit struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	MainImage   *units.Image `json:"main_image"`
}

// TransactionDetail is a transaction joined with its unit.
type TransactionDetail struct {
	Transaction
	Unit TransactionUnit `json:"unit"`
}

// ActionDetail is an action with its transactions in submission order.
type ActionDetail struct {
	Action
	Transactions []TransactionDetail `json:"transactions"`
}
