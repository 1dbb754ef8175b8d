package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// TaxPolicy - Statutory rates and thresholds applied to every calculation
type TaxPolicy struct {
	CompanyID                       string
	PersonalIncomeTaxRate           decimal.Decimal
	MilitaryTaxRate                 decimal.Decimal
	EmployerPensionContributionRate decimal.Decimal
	EmployeePensionContributionRate decimal.Decimal
	MinimumWage                     decimal.Decimal // carried through, not enforced
	TaxFreeMinimum                  decimal.Decimal
	CreatedAt                       time.Time
	UpdatedAt                       time.Time
}

// DefaultTaxPolicy returns the statutory defaults used when a company has not saved its own policy.
func DefaultTaxPolicy() TaxPolicy {
	return TaxPolicy{
		PersonalIncomeTaxRate:           decimal.RequireFromString("0.18"),
		MilitaryTaxRate:                 decimal.RequireFromString("0.015"),
		EmployerPensionContributionRate: decimal.RequireFromString("0.22"),
		EmployeePensionContributionRate: decimal.RequireFromString("0.0025"),
		MinimumWage:                     decimal.NewFromInt(8000),
		TaxFreeMinimum:                  decimal.NewFromInt(2690),
	}
}

// Validate checks that every rate is a fraction in [0, 1] and every amount is non-negative.
func (p TaxPolicy) Validate() error {
	var errs validator.ValidationErrors

	rates := []struct {
		field string
		value decimal.Decimal
	}{
		{"personalIncomeTaxRate", p.PersonalIncomeTaxRate},
		{"militaryTaxRate", p.MilitaryTaxRate},
		{"employerPensionContributionRate", p.EmployerPensionContributionRate},
		{"employeePensionContributionRate", p.EmployeePensionContributionRate},
	}
	for _, r := range rates {
		if !validator.IsFraction(r.value) {
			errs = append(errs, validator.ValidationError{Field: r.field, Message: "must be between 0 and 1"})
		}
	}
	if !validator.IsNonNegative(p.MinimumWage) {
		errs = append(errs, validator.ValidationError{Field: "minimumWage", Message: "must be non-negative"})
	}
	if !validator.IsNonNegative(p.TaxFreeMinimum) {
		errs = append(errs, validator.ValidationError{Field: "taxFreeMinimum", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CompensationTerms - What an employee is paid for a full standard month
type CompensationTerms struct {
	EmployeeID string
	BaseSalary decimal.Decimal
}

// PayrollStatus enum
type PayrollStatus string

const (
	PayrollStatusCalculated PayrollStatus = "calculated"
	PayrollStatusApproved   PayrollStatus = "approved"
	PayrollStatusPaid       PayrollStatus = "paid"
)

func (s PayrollStatus) IsValid() bool {
	switch s {
	case PayrollStatusCalculated, PayrollStatusApproved, PayrollStatusPaid:
		return true
	}
	return false
}

// Locked reports whether the status blocks a non-forced recalculation.
func (s PayrollStatus) Locked() bool {
	return s == PayrollStatusApproved || s == PayrollStatusPaid
}

// Warning codes attached to a record
const (
	WarningNegativeNet        = "negative_net"
	WarningPremiumHoursUnpaid = "premium_hours_unpaid"
)

// HoursBreakdown - Premium-eligible sub-totals of hoursWorked.
// Recorded for visibility only; pay uses total hours at the flat rate.
type HoursBreakdown struct {
	Overtime decimal.Decimal `json:"overtime"`
	Night    decimal.Decimal `json:"night"`
	Evening  decimal.Decimal `json:"evening"`
	Holiday  decimal.Decimal `json:"holiday"`
}

func (h HoursBreakdown) HasPremiumHours() bool {
	return h.Overtime.IsPositive() || h.Night.IsPositive() || h.Evening.IsPositive() || h.Holiday.IsPositive()
}

type Earnings struct {
	BasePay    decimal.Decimal `json:"basePay"`
	Bonuses    decimal.Decimal `json:"bonuses"`
	Allowances decimal.Decimal `json:"allowances"`
	GrossPay   decimal.Decimal `json:"grossPay"`
}

type Deductions struct {
	EmployeePensionContribution decimal.Decimal `json:"employeePensionContribution"`
	PersonalIncomeTax           decimal.Decimal `json:"personalIncomeTax"`
	MilitaryTax                 decimal.Decimal `json:"militaryTax"`
	TotalDeductions             decimal.Decimal `json:"totalDeductions"`
}

type PaySummary struct {
	NetPay                      decimal.Decimal `json:"netPay"`
	EmployerPensionContribution decimal.Decimal `json:"employerPensionContribution"`
	EmployerCost                decimal.Decimal `json:"employerCost"`
}

// CalculationBasis - Intermediate values the amounts were derived from
type CalculationBasis struct {
	StandardMonthlyHours int             `json:"standardMonthlyHours"`
	HourlyRate           decimal.Decimal `json:"hourlyRate"`
	TaxableIncome        decimal.Decimal `json:"taxableIncome"`
}

// Calculation - Output of the calculator for one employee and one period
type Calculation struct {
	Earnings   Earnings
	Deductions Deductions
	Summary    PaySummary
	Basis      CalculationBasis
	Warnings   []string
}

// PayrollRecord - Persisted result for one (employee, period)
type PayrollRecord struct {
	ID             string
	CompanyID      string
	EmployeeID     string
	Period         Period
	HoursWorked    decimal.Decimal
	HoursBreakdown HoursBreakdown
	Earnings       Earnings
	Deductions     Deductions
	Summary        PaySummary
	Basis          CalculationBasis
	Status         PayrollStatus
	Warnings       []string
	CalculatedAt   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PeriodKey is the natural-key component of the record.
func (r PayrollRecord) PeriodKey() string {
	return r.Period.Key()
}

// RunFailure - One employee the run could not calculate
type RunFailure struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
}

// Skip reasons
const (
	SkipReasonAlreadyCalculated = "already_calculated"
	SkipReasonStatusLocked      = "status_locked"
)

type RunSkip struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
}

// RunSummary - Outcome of one batch run
type RunSummary struct {
	CompanyID           string       `json:"companyId"`
	PeriodKey           string       `json:"periodKey"`
	EmployeesConsidered int          `json:"employeesConsidered"`
	EmployeesCalculated int          `json:"employeesCalculated"`
	EmployeesSkipped    int          `json:"employeesSkipped"`
	EmployeesFailed     int          `json:"employeesFailed"`
	Skipped             []RunSkip    `json:"skipped"`
	Failures            []RunFailure `json:"failures"`
	Cancelled           bool         `json:"cancelled"`
	StartedAt           time.Time    `json:"startedAt"`
	FinishedAt          time.Time    `json:"finishedAt"`
}

// DeductionTotals - Period totals per deduction kind
type DeductionTotals struct {
	EmployeePensionContribution decimal.Decimal `json:"employeePensionContribution"`
	PersonalIncomeTax           decimal.Decimal `json:"personalIncomeTax"`
	MilitaryTax                 decimal.Decimal `json:"militaryTax"`
}

// PeriodAggregate - Totals over every record of one period
type PeriodAggregate struct {
	PeriodKey            string          `json:"periodKey"`
	RecordCount          int             `json:"recordCount"`
	TotalGross           decimal.Decimal `json:"totalGross"`
	TotalDeductions      decimal.Decimal `json:"totalDeductions"`
	TotalNet             decimal.Decimal `json:"totalNet"`
	TotalEmployerPension decimal.Decimal `json:"totalEmployerPension"`
	TotalEmployerCost    decimal.Decimal `json:"totalEmployerCost"`
	DeductionsByKind     DeductionTotals `json:"deductionsByKind"`
	CalculatedCount      int             `json:"calculatedCount"`
	ApprovedCount        int             `json:"approvedCount"`
	PaidCount            int             `json:"paidCount"`
}
