package payroll

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// PayrollCalculator computes one employee's pay for one period. It holds no state and does no I/O.
type PayrollCalculator struct {
}

func NewPayrollCalculator() *PayrollCalculator {
	return &PayrollCalculator{}
}

// Compute applies the flat hourly formula followed by pension and tax deductions.
// Every currency amount is rounded half-up to a whole unit.
func (c *PayrollCalculator) Compute(
	comp payroll.CompensationTerms,
	hoursWorked decimal.Decimal,
	standardMonthlyHours int,
	policy payroll.TaxPolicy,
) (payroll.Calculation, error) {
	if standardMonthlyHours <= 0 {
		return payroll.Calculation{}, fmt.Errorf("%w: got %d", payroll.ErrInvalidCalendar, standardMonthlyHours)
	}
	if err := c.validateInputs(comp, hoursWorked, policy); err != nil {
		return payroll.Calculation{}, err
	}

	std := decimal.NewFromInt(int64(standardMonthlyHours))

	// Earnings
	basePay := roundDiv(comp.BaseSalary.Mul(hoursWorked), std)
	bonuses := decimal.Zero
	allowances := decimal.Zero
	grossPay := basePay.Add(bonuses).Add(allowances)

	// Pension contributions; only the employee share is withheld
	employeePension := roundMoney(grossPay.Mul(policy.EmployeePensionContributionRate))
	employerPension := roundMoney(grossPay.Mul(policy.EmployerPensionContributionRate))

	// Both taxes share one base
	taxableIncome := decimal.Max(decimal.Zero, grossPay.Sub(policy.TaxFreeMinimum))
	incomeTax := roundMoney(taxableIncome.Mul(policy.PersonalIncomeTaxRate))
	militaryTax := roundMoney(taxableIncome.Mul(policy.MilitaryTaxRate))

	totalDeductions := employeePension.Add(incomeTax).Add(militaryTax)
	netPay := grossPay.Sub(totalDeductions)
	employerCost := grossPay.Add(employerPension)

	calc := payroll.Calculation{
		Earnings: payroll.Earnings{
			BasePay:    basePay,
			Bonuses:    bonuses,
			Allowances: allowances,
			GrossPay:   grossPay,
		},
		Deductions: payroll.Deductions{
			EmployeePensionContribution: employeePension,
			PersonalIncomeTax:           incomeTax,
			MilitaryTax:                 militaryTax,
			TotalDeductions:             totalDeductions,
		},
		Summary: payroll.PaySummary{
			NetPay:                      netPay,
			EmployerPensionContribution: employerPension,
			EmployerCost:                employerCost,
		},
		Basis: payroll.CalculationBasis{
			StandardMonthlyHours: standardMonthlyHours,
			HourlyRate:           comp.BaseSalary.DivRound(std, 2),
			TaxableIncome:        taxableIncome,
		},
		Warnings: []string{},
	}

	if netPay.IsNegative() {
		calc.Warnings = append(calc.Warnings, payroll.WarningNegativeNet)
	}

	return calc, nil
}

func (c *PayrollCalculator) validateInputs(comp payroll.CompensationTerms, hoursWorked decimal.Decimal, policy payroll.TaxPolicy) error {
	var errs validator.ValidationErrors

	if !validator.IsNonNegative(comp.BaseSalary) {
		errs = append(errs, validator.ValidationError{Field: "baseSalary", Message: "must be non-negative"})
	}
	if !validator.IsNonNegative(hoursWorked) {
		errs = append(errs, validator.ValidationError{Field: "hoursWorked", Message: "must be non-negative"})
	}
	if err := policy.Validate(); err != nil {
		var policyErrs validator.ValidationErrors
		if !errors.As(err, &policyErrs) {
			return err
		}
		errs = append(errs, policyErrs...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// roundMoney rounds half away from zero to a whole currency unit.
// Amounts here are never negative, so this is round-half-up.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// roundDiv returns num/den rounded half-up to an integer without any intermediate
// precision loss. num must be non-negative and den positive.
func roundDiv(num, den decimal.Decimal) decimal.Decimal {
	q, r := num.QuoRem(den, 0)
	if r.Mul(two).GreaterThanOrEqual(den) {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q
}
