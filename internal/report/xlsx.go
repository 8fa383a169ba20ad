// Package report renders payroll summaries as XLSX workbooks for the
// accounting handover.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/attendance-engine/internal/payroll"
)

// Row is one user's payroll line for the reported month.
type Row struct {
	UID         string
	DisplayName string
	Position    string
	HourlyRate  int64
	Breakdown   payroll.Breakdown
}

// Payroll describes one month of payroll data across all users.
type Payroll struct {
	Year  int
	Month time.Month
	Rows  []Row
}

const (
	summarySheet = "Summary"
	detailSheet  = "Sessions"
)

// WritePayrollXLSX renders the workbook: a per-user summary sheet and a
// per-session detail sheet.
func WritePayrollXLSX(w io.Writer, data Payroll) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(detailSheet); err != nil {
		return fmt.Errorf("failed to create detail sheet: %w", err)
	}

	if err := writeSummary(f, data); err != nil {
		return err
	}
	if err := writeSessions(f, data); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, data Payroll) error {
	headers := []string{"UID", "Name", "Position", "Hourly Rate", "Hours", "Earnings"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(summarySheet, cell, header); err != nil {
			return fmt.Errorf("failed to write summary header: %w", err)
		}
	}

	for idx, row := range data.Rows {
		line := idx + 2
		values := []any{
			row.UID,
			row.DisplayName,
			row.Position,
			row.HourlyRate,
			payroll.RoundHours(row.Breakdown.Hours),
			payroll.FloorAmount(row.Breakdown.Amount),
		}
		for i, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+i, line)
			if err := f.SetCellValue(summarySheet, cell, value); err != nil {
				return fmt.Errorf("failed to write summary row: %w", err)
			}
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "B", 18); err != nil {
		return fmt.Errorf("failed to size summary columns: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "C", "F", 14); err != nil {
		return fmt.Errorf("failed to size summary columns: %w", err)
	}
	return nil
}

func writeSessions(f *excelize.File, data Payroll) error {
	headers := []string{"UID", "Name", "Start", "End", "Hours", "Multiplier", "Amount"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(detailSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write detail header: %w", err)
		}
	}

	line := 2
	for _, row := range data.Rows {
		for _, session := range row.Breakdown.Sessions {
			values := []any{
				row.UID,
				row.DisplayName,
				session.Start.Format("2006-01-02 15:04"),
				session.End.Format("2006-01-02 15:04"),
				payroll.RoundHours(session.Hours),
				session.Multiplier,
				payroll.FloorAmount(session.Amount),
			}
			for i, value := range values {
				cell := fmt.Sprintf("%c%d", 'A'+i, line)
				if err := f.SetCellValue(detailSheet, cell, value); err != nil {
					return fmt.Errorf("failed to write detail row: %w", err)
				}
			}
			line++
		}
	}

	if err := f.SetColWidth(detailSheet, "A", "D", 18); err != nil {
		return fmt.Errorf("failed to size detail columns: %w", err)
	}
	if err := f.SetColWidth(detailSheet, "E", "G", 12); err != nil {
		return fmt.Errorf("failed to size detail columns: %w", err)
	}
	return nil
}

// Filename returns the canonical attachment name for the reported month.
func Filename(data Payroll) string {
	return fmt.Sprintf("payroll_%04d-%02d.xlsx", data.Year, int(data.Month))
}
