package spreadsheet

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"crmetl/internal/table"
)

// ErrNoSheet is returned when a workbook has no worksheet to read.
var ErrNoSheet = errors.New("spreadsheet: workbook has no sheets")

// XLSX reads one worksheet of an Office Open XML workbook. Sheet defaults to
// the first sheet. Dates come back as their Excel serial numbers.
type XLSX struct {
	Sheet string
}

func (x XLSX) Parse(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := x.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, ErrNoSheet
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table.New(nil, nil), nil
	}
	return buildTable(rows[0], rows[1:]), nil
}
