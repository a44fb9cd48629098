package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "data"

const columnWidth = 25

// WriteXLSX writes t as a single-sheet workbook. The header row and first
// column are bold; every cell is Arial 10 with wrapped text and a thin
// bottom border.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for r, values := range append([][]string{t.Header()}, t.Rows...) {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if len(t.Columns) == 0 {
		_, err := f.WriteTo(w)
		return err
	}

	plain, err := f.NewStyle(cellStyleFor(false))
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	bold, err := f.NewStyle(cellStyleFor(true))
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(t.Columns))
	if err != nil {
		return err
	}
	lastRow := len(t.Rows) + 1

	if err := f.SetColWidth(SheetName, "A", lastCol, columnWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if lastRow > 1 {
		if err := f.SetCellStyle(SheetName, "A2", fmt.Sprintf("%s%d", lastCol, lastRow), plain); err != nil {
			return fmt.Errorf("style cells: %w", err)
		}
		if err := f.SetCellStyle(SheetName, "A2", fmt.Sprintf("A%d", lastRow), bold); err != nil {
			return fmt.Errorf("style first column: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	_, err = f.WriteTo(w)
	return err
}

func cellStyleFor(bold bool) *excelize.Style {
	return &excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10, Bold: bold},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	}
}
