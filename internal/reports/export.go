package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	sheetUdhaar  = "Udhaar"
	sheetPending = "Pending"
)

var exportHeader = []any{"Order", "Customer", "Job date", "Assignee", "Total", "Advance", "Collected", "Outstanding"}

// ExportXLSX writes the udhaar and pending tabs as a workbook.
func (s *Service) ExportXLSX(ctx context.Context, userID int64, w io.Writer) error {
	dash, err := s.Build(ctx, userID)
	if err != nil {
		return err
	}
	return WriteWorkbook(dash, w)
}

// WriteWorkbook renders dash into an xlsx workbook.
func WriteWorkbook(dash *Dashboard, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetUdhaar); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetPending); err != nil {
		return fmt.Errorf("export: new sheet: %w", err)
	}

	if err := writeRows(f, sheetUdhaar, dash.Udhaar, func(r OrderRow) float64 { return r.Udhaar.InexactFloat64() }); err != nil {
		return err
	}
	if err := writeRows(f, sheetPending, dash.Pending, func(r OrderRow) float64 { return r.Pending.InexactFloat64() }); err != nil {
		return err
	}
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows []OrderRow, outstanding func(OrderRow) float64) error {
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.OrderID,
			r.CustomerName,
			r.JobDate.String(),
			r.Assignee,
			r.Total.InexactFloat64(),
			r.Advance.InexactFloat64(),
			r.Collected.InexactFloat64(),
			outstanding(r),
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("export: row %d: %w", i+1, err)
		}
	}
	return nil
}
