package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// BuildResultsWorkbook renders result rows into a single-sheet xlsx file.
func BuildResultsWorkbook(items []Result) ([]byte, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"result_id", "module_id", "user_id", "score", "max_score", "percent", "taken_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, it := range items {
		row := i + 2
		percent := 0.0
		if it.MaxScore > 0 {
			percent = 100 * it.Score / it.MaxScore
		}
		values := []any{
			it.ID,
			it.ModuleID,
			it.UserID,
			it.Score,
			it.MaxScore,
			fmt.Sprintf("%.1f", percent),
			it.TakenAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
