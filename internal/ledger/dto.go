package ledger

import "github.com/shopspring/decimal"

type submitRequest struct {
	StoreID      int64             `json:"store_id" validate:"required,min=1"`
	Action       string            `json:"action" validate:"required,oneof=addStock sales salesReturn writeOff newPrice stockReturn"`
	Transactions []lineItemRequest `json:"transactions" validate:"required,min=1,dive"`
}

type lineItemRequest struct {
	UnitID        int64            `json:"unit_id" validate:"required,min=1"`
	QuantityDelta *decimal.Decimal `json:"quantity_delta"`
	CostPrice     *decimal.Decimal `json:"cost_price"`
	RetailPrice   *decimal.Decimal `json:"retail_price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
}

type submitResponse struct {
	ID int64 `json:"id"`
}

func (r submitRequest) toInput(idempotencyKey string) BatchInput {
	lines := make([]LineItem, len(r.Transactions))
	for i, tr := range r.Transactions {
		lines[i] = LineItem{
			UnitID:        tr.UnitID,
			QuantityDelta: tr.QuantityDelta,
			CostPrice:     tr.CostPrice,
			RetailPrice:   tr.RetailPrice,
			DiscountPrice: tr.DiscountPrice,
		}
	}
	return BatchInput{
		StoreID:        r.StoreID,
		Kind:           ActionKind(r.Action),
		Lines:          lines,
		IdempotencyKey: idempotencyKey,
	}
}
