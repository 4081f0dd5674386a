package tabular

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/insighthub/pkg/dataset"
)

// sheetName is the worksheet exports write to. Imports read the first sheet
// whatever its name.
const sheetName = "Data"

func readXLSX(r io.Reader) (*dataset.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	body := rows[1:]
	for used := usedRows(f, sheets[0]); len(body)+1 < used; {
		body = append(body, nil)
	}
	return fromText(rows[0], body)
}

// usedRows returns the last row of the sheet's recorded used range, or 0 when
// the workbook has none. Trailing rows of empty cells only show up there.
func usedRows(f *excelize.File, sheet string) int {
	ref, err := f.GetSheetDimension(sheet)
	if err != nil || ref == "" {
		return 0
	}
	_, row, err := excelize.CellNameToCoordinates(ref[strings.LastIndex(ref, ":")+1:])
	if err != nil {
		return 0
	}
	return row
}

// writeXLSX writes numbers as numeric cells, dates as ISO text and leaves
// nulls empty. The used range covers every row, null or not.
func writeXLSX(w io.Writer, t *dataset.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	for i, name := range t.Schema.Names() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheetName, cell, name); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for r, row := range t.Rows {
		for i, v := range row {
			if v.IsNull() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if n, ok := v.Float(); ok {
				err = f.SetCellFloat(sheetName, cell, n, -1, 64)
			} else {
				err = f.SetCellStr(sheetName, cell, v.String())
			}
			if err != nil {
				return fmt.Errorf("writing row %d: %w", r+1, err)
			}
		}
	}
	last, err := excelize.CoordinatesToCellName(max(len(t.Schema), 1), len(t.Rows)+1)
	if err != nil {
		return err
	}
	if err := f.SetSheetDimension(sheetName, "A1:"+last); err != nil {
		return fmt.Errorf("setting used range: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
