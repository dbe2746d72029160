package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	appreport "github.com/retail/backend/internal/application/report"
	"github.com/retail/backend/internal/domain/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExcelWriter_SalesWorkbook(t *testing.T) {
	day := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	period := report.Period{From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)}
	lines := []report.SaleLine{
		{SaleID: uuid.New(), SaleDate: day, Kind: "SINGLE", ProductName: "Bag", Quantity: 2,
			PricePerUnit: decimal.NewFromInt(100), LineTotal: decimal.NewFromInt(200), CogsDh: decimal.NewFromInt(108)},
		{SaleID: uuid.New(), SaleDate: day, Kind: "BUNDLE", IsPromo: true, ProductName: "Cap", Quantity: 1,
			PricePerUnit: decimal.RequireFromString("49.50"), LineTotal: decimal.RequireFromString("49.50"), CogsDh: decimal.NewFromInt(20)},
	}

	data, err := NewExcelWriter().SalesWorkbook(period, lines)
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{salesSheet}, f.GetSheetList())

	rows, err := f.GetRows(salesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Product", rows[0][4])
	assert.Equal(t, "2026-03-04 10:30", rows[1][0])
	assert.Equal(t, "Bag", rows[1][4])
	assert.Equal(t, "TRUE", rows[2][3])

	qty, err := f.GetCellValue(salesSheet, "F4")
	require.NoError(t, err)
	assert.Equal(t, "3", qty)
	revenue, err := f.GetCellValue(salesSheet, "H4", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "249.5", revenue)
	assert.Contains(t, rows[3][0], "2026-03-01 to 2026-03-31")
}

func TestExcelWriter_MovementsWorkbook(t *testing.T) {
	lines := []appreport.MovementLine{
		{OccurredAt: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), ProductName: "Bag", Type: "ADJUSTMENT",
			Quantity: -2, PreviousQty: 10, NewQty: 8, Reason: "DAMAGE", Notes: "torn strap"},
	}

	data, err := NewExcelWriter().MovementsWorkbook(lines)
	require.NoError(t, err)

	rows, err := open(t, data).GetRows(movementsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2026-03-04 09:00", "Bag", "ADJUSTMENT", "-2", "10", "8", "DAMAGE", "", "torn strap"}, rows[1])
}

func TestExcelWriter_EmptyExport(t *testing.T) {
	data, err := NewExcelWriter().MovementsWorkbook(nil)
	require.NoError(t, err)

	rows, err := open(t, data).GetRows(movementsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
