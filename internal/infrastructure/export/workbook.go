package export

import (
	"bytes"
	"fmt"

	appreport "github.com/retail/backend/internal/application/report"
	"github.com/retail/backend/internal/domain/report"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	salesSheet     = "Sales"
	movementsSheet = "Movements"
	dateLayout     = "2006-01-02 15:04"
	moneyFormat    = "#,##0.00"
)

var (
	salesHeader = []any{"Date", "Sale", "Kind", "Promo", "Product", "Quantity", "Price / unit (DH)", "Line total (DH)", "COGS (DH)"}
	movesHeader = []any{"Date", "Product", "Type", "Quantity", "Before", "After", "Reason", "Reference", "Notes"}
)

// ExcelWriter renders report rows as xlsx workbooks
type ExcelWriter struct{}

// NewExcelWriter creates a new ExcelWriter
func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{}
}

// SalesWorkbook renders one row per sold line followed by a totals row
func (w *ExcelWriter) SalesWorkbook(period report.Period, lines []report.SaleLine) ([]byte, error) {
	f, err := newWorkbook(salesSheet, salesHeader)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		units   int
		revenue = decimal.Zero
		cogs    = decimal.Zero
	)
	for i, l := range lines {
		row := []any{
			l.SaleDate.Format(dateLayout),
			l.SaleID.String(),
			l.Kind,
			l.IsPromo,
			l.ProductName,
			l.Quantity,
			l.PricePerUnit.InexactFloat64(),
			l.LineTotal.InexactFloat64(),
			l.CogsDh.InexactFloat64(),
		}
		if err := setRow(f, salesSheet, i+2, row); err != nil {
			return nil, err
		}
		units += l.Quantity
		revenue = revenue.Add(l.LineTotal)
		cogs = cogs.Add(l.CogsDh)
	}

	totalRow := len(lines) + 2
	totals := []any{fmt.Sprintf("Total %s to %s", period.From.Format("2006-01-02"), period.To.Format("2006-01-02")),
		nil, nil, nil, nil, units, nil, revenue.InexactFloat64(), cogs.InexactFloat64()}
	if err := setRow(f, salesSheet, totalRow, totals); err != nil {
		return nil, err
	}
	if err := formatMoney(f, salesSheet, "G2", fmt.Sprintf("I%d", totalRow)); err != nil {
		return nil, err
	}
	return render(f)
}

// MovementsWorkbook renders the stock movement log
func (w *ExcelWriter) MovementsWorkbook(lines []appreport.MovementLine) ([]byte, error) {
	f, err := newWorkbook(movementsSheet, movesHeader)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for i, m := range lines {
		row := []any{
			m.OccurredAt.Format(dateLayout),
			m.ProductName,
			m.Type,
			m.Quantity,
			m.PreviousQty,
			m.NewQty,
			m.Reason,
			m.Reference,
			m.Notes,
		}
		if err := setRow(f, movementsSheet, i+2, row); err != nil {
			return nil, err
		}
	}
	return render(f)
}

// newWorkbook creates a file whose only sheet is named sheet and carries a bold header
func newWorkbook(sheet string, header []any) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze header: %w", err)
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func formatMoney(f *excelize.File, sheet, from, to string) error {
	format := moneyFormat
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}
	return f.SetCellStyle(sheet, from, to, style)
}

func render(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

var _ appreport.WorkbookWriter = (*ExcelWriter)(nil)
