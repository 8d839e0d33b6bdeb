package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Action"

var exportHeader = []any{
	"Line", "Unit ID", "Unit", "Quantity", "Cost price", "Retail price",
	"Previous retail price", "Discount price", "Recorded at",
}

// ExportActionXLSX renders an action and its transactions as a workbook.
func ExportActionXLSX(detail ActionDetail) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	summary := []any{"Action", detail.ID, "Kind", string(detail.Kind), "Store", detail.StoreID, "Created at", detail.CreatedAt.UTC().Format("2006-01-02 15:04:05")}
	if err := f.SetSheetRow(exportSheet, "A1", &summary); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A3", &exportHeader); err != nil {
		return nil, err
	}

	for i, tr := range detail.Transactions {
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return nil, err
		}
		row := []any{
			tr.LineNo, tr.UnitID, tr.Unit.Title,
			cellValue(tr.QuantityDelta), cellValue(tr.CostPrice), cellValue(tr.RetailPrice),
			cellValue(tr.PreviousRetailPrice), cellValue(tr.DiscountPrice),
			tr.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ledger: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return d.Decimal.InexactFloat64()
}
