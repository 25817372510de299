package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"communitycentre/internal/attendance"
)

// XLSX writes a workbook with one sheet per day, newest day first.
func XLSX(w io.Writer, records []attendance.Record, opts Options) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	opts = opts.withDefaults()

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, day := range GroupByDay(records, opts.Location) {
		sheet := day.Key()
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("add sheet %s: %w", sheet, err)
		}

		if err := setRow(f, sheet, 1, columns); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", "E1", bold); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
		for j, r := range day.Records {
			if err := setRow(f, sheet, j+2, row(r, opts.Location)); err != nil {
				return err
			}
		}
		if err := f.SetColWidth(sheet, "E", "E", 60); err != nil {
			return fmt.Errorf("size notes column: %w", err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
