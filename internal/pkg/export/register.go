package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	RegisterSheet     = "Register"
	XLSXContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultExcelSheet = "Sheet1"
)

// Row pairs a record with the registry fields a human reader needs.
type Row struct {
	EmployeeCode string
	EmployeeName string
	Record       payroll.PayrollRecord
}

var registerHeaders = []string{
	"Employee Code", "Employee Name", "Hours Worked", "Standard Hours",
	"Base Pay", "Gross Pay", "Employee Pension", "Income Tax", "Military Tax",
	"Total Deductions", "Net Pay", "Employer Pension", "Employer Cost", "Status", "Warnings",
}

// WritePeriodRegister renders one row per record followed by a totals row.
func WritePeriodRegister(w io.Writer, periodKey string, rows []Row, agg payroll.PeriodAggregate) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(RegisterSheet); err != nil {
		return fmt.Errorf("failed to create register sheet: %w", err)
	}
	if err := f.DeleteSheet(defaultExcelSheet); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(RegisterSheet)
	if err != nil {
		return fmt.Errorf("failed to locate register sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := f.SetCellValue(RegisterSheet, "A1", "Payroll register "+periodKey); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	for i, header := range registerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		if err := f.SetCellValue(RegisterSheet, cell, header); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(registerHeaders), 3)
	if err := f.SetCellStyle(RegisterSheet, "A3", lastHeader, headerStyle); err != nil {
		return err
	}

	rowIndex := 4
	for _, row := range rows {
		rec := row.Record
		values := []interface{}{
			row.EmployeeCode,
			row.EmployeeName,
			rec.HoursWorked.InexactFloat64(),
			rec.Basis.StandardMonthlyHours,
			money(rec.Earnings.BasePay),
			money(rec.Earnings.GrossPay),
			money(rec.Deductions.EmployeePensionContribution),
			money(rec.Deductions.PersonalIncomeTax),
			money(rec.Deductions.MilitaryTax),
			money(rec.Deductions.TotalDeductions),
			money(rec.Summary.NetPay),
			money(rec.Summary.EmployerPensionContribution),
			money(rec.Summary.EmployerCost),
			string(rec.Status),
			strings.Join(rec.Warnings, ", "),
		}
		if err := setRow(f, rowIndex, values); err != nil {
			return err
		}
		rowIndex++
	}

	totals := []interface{}{
		"TOTAL", fmt.Sprintf("%d records", agg.RecordCount), nil, nil, nil,
		money(agg.TotalGross),
		money(agg.DeductionsByKind.EmployeePensionContribution),
		money(agg.DeductionsByKind.PersonalIncomeTax),
		money(agg.DeductionsByKind.MilitaryTax),
		money(agg.TotalDeductions),
		money(agg.TotalNet),
		money(agg.TotalEmployerPension),
		money(agg.TotalEmployerCost),
	}
	if err := setRow(f, rowIndex, totals); err != nil {
		return err
	}
	lastTotal, _ := excelize.CoordinatesToCellName(len(totals), rowIndex)
	if err := f.SetCellStyle(RegisterSheet, fmt.Sprintf("A%d", rowIndex), lastTotal, headerStyle); err != nil {
		return err
	}

	if err := f.SetColWidth(RegisterSheet, "A", "B", 22); err != nil {
		return err
	}

	return f.Write(w)
}

func setRow(f *excelize.File, rowIndex int, values []interface{}) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, rowIndex)
		if err := f.SetCellValue(RegisterSheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

// money keeps whole amounts as integers so spreadsheet sums stay exact.
func money(d decimal.Decimal) interface{} {
	if d.Equal(d.Truncate(0)) {
		return d.IntPart()
	}
	return d.InexactFloat64()
}
