package report

import (
	"fmt"
	"io"

	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	sheetName  = "Summary"
	dateLayout = "2006-01-02"
)

// XLSXExporter renders a financial summary as a single-sheet workbook
type XLSXExporter struct {
	currency string
	logger   *zap.Logger
}

// NewXLSXExporter creates a new exporter. Amounts are labelled with currency.
func NewXLSXExporter(currency string, logger *zap.Logger) *XLSXExporter {
	return &XLSXExporter{currency: currency, logger: logger}
}

// Filename returns the suggested download name for a summary
func (e *XLSXExporter) Filename(summary *entity.FinancialSummary) string {
	return fmt.Sprintf("summary_%s_%s.xlsx",
		summary.Start.Format(dateLayout),
		summary.End.Format(dateLayout))
}

// Export writes the workbook to w
func (e *XLSXExporter) Export(summary *entity.FinancialSummary, w io.Writer) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("Failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	// the end bound is exclusive; show the last day it covers
	lastDay := summary.End.AddDate(0, 0, -1)
	rows := [][]interface{}{
		{"Period start", summary.Start.Format(dateLayout)},
		{"Period end", lastDay.Format(dateLayout)},
		{"Currency", e.currency},
		{},
		{"Item", "Amount"},
		{"Total income", amount(summary.TotalIncome)},
		{"Ledger expenses", amount(summary.TotalLedgerExpenses)},
		{"Approved personal requests", amount(summary.TotalPersonalApproved)},
		{"Total expenses", amount(summary.TotalExpenses)},
		{"Remaining", amount(summary.Remaining)},
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := e.styleSheet(f); err != nil {
		e.logger.Warn("Failed to style summary sheet", zap.Error(err))
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (e *XLSXExporter) styleSheet(f *excelize.File) error {
	if err := f.SetColWidth(sheetName, "A", "A", 30); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "B", 18); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A5", "B5", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A10", "B10", bold); err != nil {
		return err
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, "B6", "B10", money)
}

// amount converts to float64 for the cell value; two decimals are exact at
// the magnitudes a personal ledger deals with
func amount(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
