// Package report renders verified ledger entries into the two artifacts the
// approval workflow needs: a human-readable narrative and a templated XLSX
// expense sheet. No extraction or reconciliation logic lives here.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/finops-tools/reimburse-helper/internal/reconcile"
)

const sheetName = "Reimbursement"

// Assembler maps ledger entries to report output. CostCenter and Category
// are fixed codes stamped on every spreadsheet row.
type Assembler struct {
	CostCenter string
	Category   string
}

// Narrative returns the approval text: one line per vendor with display
// name, description and USD amount, then a grand total line.
func (a Assembler) Narrative(entries []reconcile.LedgerEntry) string {
	var b strings.Builder
	total := decimal.Zero
	for _, e := range entries {
		fmt.Fprintf(&b, "%s (%s): USD %s\n", e.Vendor.DisplayName(), e.Vendor.Description(), e.USDAmount.StringFixed(2))
		total = total.Add(e.USDAmount)
	}
	fmt.Fprintf(&b, "Total: USD %s\n", total.StringFixed(2))
	return b.String()
}

// Workbook builds the templated expense sheet: one row per ledger entry
// with period start, cost-center code, category label, vendor display name
// and the RMB amount actually charged to the card.
func (a Assembler) Workbook(entries []reconcile.LedgerEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{"Period Start", "Cost Center", "Category", "Vendor", "Amount (RMB)"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	for row, e := range entries {
		values := []any{
			e.PeriodStart.Format("2006-01-02"),
			a.CostCenter,
			a.Category,
			e.Vendor.DisplayName(),
			e.RMBAmount.StringFixed(2),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

// WorkbookBytes renders the workbook to XLSX bytes.
func (a Assembler) WorkbookBytes(entries []reconcile.LedgerEntry) ([]byte, error) {
	f, err := a.Workbook(entries)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
