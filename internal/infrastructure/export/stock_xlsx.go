// Package export renders stock reports as spreadsheets
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/cobrify/stock-service/internal/application"
)

// XLSXContentType is the MIME type of the workbooks written here
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const stockSheet = "Stock"

var stockHeadings = []string{"Item", "Type", "Unit", "Stock"}

// StockByBranchFilename names the download for a branch filter
func StockByBranchFilename(branch string) string {
	if branch == "" {
		branch = "all"
	}
	return fmt.Sprintf("stock-%s.xlsx", branch)
}

// WriteStockByBranch writes one row per item to w as an xlsx workbook
func WriteStockByBranch(w io.Writer, rows []application.BranchStockDTO) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", stockSheet); err != nil {
		return err
	}

	for i, h := range stockHeadings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(stockSheet, cell, h); err != nil {
			return err
		}
	}

	for i, row := range rows {
		values := []any{row.Name, row.ItemKind, row.Unit, row.Stock}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(stockSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", row.ItemID, err)
		}
	}

	if err := f.SetPanes(stockSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}
