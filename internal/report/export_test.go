package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestBuildResultsWorkbook(t *testing.T) {
	taken := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	items := []Result{
		{ID: 1, ModuleID: 4, UserID: 7, Score: 8, MaxScore: 10, TakenAt: taken},
		{ID: 2, ModuleID: 4, UserID: 9, Score: 5, MaxScore: 10, TakenAt: taken},
	}

	data, err := BuildResultsWorkbook(items)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)

	if got, _ := f.GetCellValue(sheet, "A1"); got != "result_id" {
		t.Fatalf("expected header result_id, got %q", got)
	}
	if got, _ := f.GetCellValue(sheet, "D2"); got != "8" {
		t.Fatalf("expected score 8, got %q", got)
	}
	if got, _ := f.GetCellValue(sheet, "F2"); got != "80.0" {
		t.Fatalf("expected percent 80.0, got %q", got)
	}
	if got, _ := f.GetCellValue(sheet, "G3"); got != "2026-03-01 09:30:00" {
		t.Fatalf("unexpected taken_at cell %q", got)
	}
}

func TestBuildResultsWorkbookEmpty(t *testing.T) {
	data, err := BuildResultsWorkbook(nil)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the header row, got %d rows", len(rows))
	}
}
