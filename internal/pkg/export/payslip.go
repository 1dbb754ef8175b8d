package export

import (
	"fmt"
	"io"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const PDFContentType = "application/pdf"

// WritePayslip renders a single-page payslip for one record.
func WritePayslip(w io.Writer, row Row) error {
	rec := row.Record

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s (%s)", row.EmployeeName, row.EmployeeCode))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s", rec.PeriodKey()))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Hours worked: %s of %d standard", rec.HoursWorked.String(), rec.Basis.StandardMonthlyHours))
	pdf.Ln(10)

	section(pdf, "Earnings", [][2]string{
		{"Base pay", amount(rec.Earnings.BasePay)},
		{"Bonuses", amount(rec.Earnings.Bonuses)},
		{"Allowances", amount(rec.Earnings.Allowances)},
		{"Gross pay", amount(rec.Earnings.GrossPay)},
	})
	section(pdf, "Deductions", [][2]string{
		{"Pension contribution", amount(rec.Deductions.EmployeePensionContribution)},
		{"Personal income tax", amount(rec.Deductions.PersonalIncomeTax)},
		{"Military tax", amount(rec.Deductions.MilitaryTax)},
		{"Total deductions", amount(rec.Deductions.TotalDeductions)},
	})

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(100, 8, "Net pay", "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, amount(rec.Summary.NetPay), "T", 1, "R", false, 0, "")

	for _, warning := range rec.Warnings {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.Cell(0, 6, "Note: "+warningText(warning))
		pdf.Ln(5)
	}

	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, title string, lines [][2]string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range lines {
		pdf.CellFormat(100, 7, line[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, line[1], "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(0)
}

func warningText(code string) string {
	switch code {
	case payroll.WarningNegativeNet:
		return "deductions exceed gross pay"
	case payroll.WarningPremiumHoursUnpaid:
		return "overtime, night, evening or holiday hours are paid at the flat hourly rate"
	}
	return code
}
