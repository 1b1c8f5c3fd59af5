package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"openwfm/api/internal/money"
)

// PayrollRow is one export line per session, never aggregated.
type PayrollRow struct {
	EmployeeID    string `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	Date          string `json:"date"`
	Project       string `json:"project"`
	Hours         string `json:"hours"`
	BaseRate      string `json:"base_rate"`
	Multiplier    string `json:"multiplier"`
	EffectiveRate string `json:"effective_rate"`
	Amount        string `json:"amount"`
	Billable      string `json:"billable"`
}

var payrollHeader = []string{
	"Employee ID", "Employee Name", "Pay Period Start", "Pay Period End",
	"Date", "Project", "Hours", "Base Rate", "Multiplier", "Effective Rate",
	"Amount", "Billable",
}

// PayrollRows builds the deterministic payroll export for the range: one row
// per session, ordered by date ascending then clock-in ascending.
func (s *FinancialService) PayrollRows(ctx context.Context, scope Scope, from, to string) ([]PayrollRow, error) {
	entries, rates, err := s.load(ctx, scope, from, to)
	if err != nil {
		return nil, err
	}

	rows := make([]PayrollRow, 0, len(entries))
	for _, e := range entries {
		var base money.Amount
		if alloc, ok := rates.allocations[e.UserID+":"+e.ProjectID]; ok {
			base = money.FromDecimal(alloc.HourlyRate)
		} else if e.Project != nil {
			base = money.FromDecimal(e.Project.DefaultRate)
		}
		mult := OvertimeMultiplier(e.Date, rates.policy)
		effective := base.MulFloat(mult)
		hours := money.HoursFromMinutes(e.DurationMinutes)

		employeeID := e.UserID
		employeeName := e.UserID
		if e.User != nil {
			employeeName = e.User.DisplayName()
			if e.User.EmployeeCode != "" {
				employeeID = e.User.EmployeeCode
			}
		}
		project := e.ProjectID
		if e.Project != nil {
			project = e.Project.Name
		}
		billable := "Y"
		if !e.Billable() {
			billable = "N"
		}

		rows = append(rows, PayrollRow{
			EmployeeID:    employeeID,
			EmployeeName:  employeeName,
			PeriodStart:   from,
			PeriodEnd:     to,
			Date:          e.Date,
			Project:       project,
			Hours:         hours.String(),
			BaseRate:      base.String(),
			Multiplier:    strconv.FormatFloat(mult, 'f', -1, 64),
			EffectiveRate: effective.String(),
			Amount:        hours.Mul(effective).String(),
			Billable:      billable,
		})
	}
	return rows, nil
}

// PayrollCSV renders the rows as a quoted CSV document.
func PayrollCSV(rows []PayrollRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(payrollHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.EmployeeID, r.EmployeeName, r.PeriodStart, r.PeriodEnd,
			r.Date, r.Project, r.Hours, r.BaseRate, r.Multiplier,
			r.EffectiveRate, r.Amount, r.Billable,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// PayrollXLSX renders the rows as an Excel workbook.
func PayrollXLSX(rows []PayrollRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Payroll"
	f.SetSheetName("Sheet1", sheet)

	for i, h := range payrollHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for rowIdx, r := range rows {
		values := []string{
			r.EmployeeID, r.EmployeeName, r.PeriodStart, r.PeriodEnd,
			r.Date, r.Project, r.Hours, r.BaseRate, r.Multiplier,
			r.EffectiveRate, r.Amount, r.Billable,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	for i := range payrollHeader {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 16)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write payroll workbook: %w", err)
	}
	return &buf, nil
}
