package ledger

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportActionXLSX(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	detail := ActionDetail{
		Action: Action{ID: 12, Kind: KindNewPrice, StoreID: 1, CreatedAt: created},
		Transactions: []TransactionDetail{
			{
				Transaction: Transaction{
					LineNo:              1,
					UnitID:              3,
					RetailPrice:         decimal.NewNullDecimal(dec("140")),
					PreviousRetailPrice: decimal.NewNullDecimal(dec("100")),
					CreatedAt:           created,
				},
				Unit: TransactionUnit{ID: 3, Title: "Socket"},
			},
		},
	}

	data, err := ExportActionXLSX(detail)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "newPrice", rows[0][3])
	require.Equal(t, "Line", rows[2][0])
	require.Equal(t, "Socket", rows[3][2])
	require.Equal(t, "140", rows[3][5])
	require.Equal(t, "100", rows[3][6])
}
