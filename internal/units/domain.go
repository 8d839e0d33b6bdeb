package units

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Measurement is how a unit is counted.
type Measurement string

const (
	MeasurementPieces Measurement = "pieces"
	MeasurementMeters Measurement = "meters"
)

var (
	// ErrUnitNotFound indicates the unit does not exist.
	ErrUnitNotFound = errors.New("units: unit not found")
	// ErrUnitHasTransactions blocks deleting units referenced by the ledger.
	ErrUnitHasTransactions = errors.New("units: unit has ledger transactions")
	// ErrStoreNotFound indicates the target store does not exist.
	ErrStoreNotFound = errors.New("units: store not found")
)

// Image is a resized unit picture.
type Image struct {
	ID      int64   `json:"id"`
	Key100  *string `json:"key_100"`
	Key300  *string `json:"key_300"`
	Key1280 *string `json:"key_1280"`
	Status  string  `json:"status"`
}

// Unit is a stock-keeping item owned by a store. Quantity, AverageCostPrice
// and RetailPrice change only through the ledger.
type Unit struct {
	ID               int64           `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Measurement      Measurement     `json:"measurement"`
	Quantity         decimal.Decimal `json:"quantity"`
	AverageCostPrice decimal.Decimal `json:"average_cost_price"`
	RetailPrice      decimal.Decimal `json:"retail_price"`
	StoreID          int64           `json:"store_id"`
	MainImage        *Image          `json:"main_image"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Ref is the existence/ownership projection the ledger checks batches against.
type Ref struct {
	ID       int64
	StoreID  int64
	Quantity decimal.Decimal
}

// CreateUnitInput is the payload for a new unit.
type CreateUnitInput struct {
	StoreID     int64       `json:"store_id" validate:"required,min=1"`
	Title       string      `json:"title" validate:"required,max=100"`
	Description string      `json:"description" validate:"max=100"`
	Measurement Measurement `json:"measurement" validate:"omitempty,oneof=pieces meters"`
}

// UpdateUnitInput edits descriptive fields only.
type UpdateUnitInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=100"`
}

// ListFilter narrows a store's unit listing.
type ListFilter struct {
	StoreID int64
	Search  string
	Offset  int
	Limit   int
}
