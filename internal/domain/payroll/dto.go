package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== TAX POLICY DTOs ==========

type TaxPolicyResponse struct {
	CompanyID                       string          `json:"companyId"`
	PersonalIncomeTaxRate           decimal.Decimal `json:"personalIncomeTaxRate"`
	MilitaryTaxRate                 decimal.Decimal `json:"militaryTaxRate"`
	EmployerPensionContributionRate decimal.Decimal `json:"employerPensionContributionRate"`
	EmployeePensionContributionRate decimal.Decimal `json:"employeePensionContributionRate"`
	MinimumWage                     decimal.Decimal `json:"minimumWage"`
	TaxFreeMinimum                  decimal.Decimal `json:"taxFreeMinimum"`
	IsDefault                       bool            `json:"isDefault"`
}

type UpdateTaxPolicyRequest struct {
	PersonalIncomeTaxRate           *decimal.Decimal `json:"personalIncomeTaxRate,omitempty"`
	MilitaryTaxRate                 *decimal.Decimal `json:"militaryTaxRate,omitempty"`
	EmployerPensionContributionRate *decimal.Decimal `json:"employerPensionContributionRate,omitempty"`
	EmployeePensionContributionRate *decimal.Decimal `json:"employeePensionContributionRate,omitempty"`
	MinimumWage                     *decimal.Decimal `json:"minimumWage,omitempty"`
	TaxFreeMinimum                  *decimal.Decimal `json:"taxFreeMinimum,omitempty"`
}

// Apply overlays the non-nil fields of the request onto base.
func (r UpdateTaxPolicyRequest) Apply(base TaxPolicy) TaxPolicy {
	if r.PersonalIncomeTaxRate != nil {
		base.PersonalIncomeTaxRate = *r.PersonalIncomeTaxRate
	}
	if r.MilitaryTaxRate != nil {
		base.MilitaryTaxRate = *r.MilitaryTaxRate
	}
	if r.EmployerPensionContributionRate != nil {
		base.EmployerPensionContributionRate = *r.EmployerPensionContributionRate
	}
	if r.EmployeePensionContributionRate != nil {
		base.EmployeePensionContributionRate = *r.EmployeePensionContributionRate
	}
	if r.MinimumWage != nil {
		base.MinimumWage = *r.MinimumWage
	}
	if r.TaxFreeMinimum != nil {
		base.TaxFreeMinimum = *r.TaxFreeMinimum
	}
	return base
}

// ========== RUN DTOs ==========

type RunPayrollRequest struct {
	PeriodKey           string   `json:"periodKey"`
	DepartmentID        *string  `json:"departmentId,omitempty"`
	EmployeeIDs         []string `json:"employeeIds,omitempty"` // Empty = every employee matching the other filters
	IncludeInactive     bool     `json:"includeInactive"`
	RecalculateExisting bool     `json:"recalculateExisting"`
	Force               bool     `json:"force"`
}

func (r *RunPayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.PeriodKey) {
		errs = append(errs, validator.ValidationError{Field: "periodKey", Message: "is required"})
	} else if _, err := ParsePeriodKey(r.PeriodKey); err != nil {
		errs = append(errs, validator.ValidationError{Field: "periodKey", Message: "must be in YYYY-MM format"})
	}
	if r.DepartmentID != nil && validator.IsEmpty(*r.DepartmentID) {
		errs = append(errs, validator.ValidationError{Field: "departmentId", Message: "must not be blank"})
	}
	for _, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employeeIds", Message: "must not contain blank ids"})
			break
		}
	}
	if r.Force && !r.RecalculateExisting {
		errs = append(errs, validator.ValidationError{Field: "force", Message: "requires recalculateExisting"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type StandardHoursResponse struct {
	PeriodKey            string `json:"periodKey"`
	WorkingDays          int    `json:"workingDays"`
	StandardMonthlyHours int    `json:"standardMonthlyHours"`
}

// ========== RECORD DTOs ==========

type UpdateRecordStatusRequest struct {
	RecordIDs []string `json:"recordIds"`
	Status    string   `json:"status"`
}

func (r *UpdateRecordStatusRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.RecordIDs) == 0 {
		errs = append(errs, validator.ValidationError{Field: "recordIds", Message: "at least one record is required"})
	}
	if !PayrollStatus(r.Status).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "must be 'calculated', 'approved' or 'paid'"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayrollRecordResponse struct {
	ID             string           `json:"id"`
	EmployeeID     string           `json:"employeeId"`
	Period         Period           `json:"period"`
	PeriodKey      string           `json:"periodKey"`
	HoursWorked    decimal.Decimal  `json:"hoursWorked"`
	HoursBreakdown HoursBreakdown   `json:"hoursBreakdown"`
	Earnings       Earnings         `json:"earnings"`
	Deductions     Deductions       `json:"deductions"`
	Summary        PaySummary       `json:"summary"`
	Basis          CalculationBasis `json:"basis"`
	Status         string           `json:"status"`
	Warnings       []string         `json:"warnings"`
	CalculatedAt   time.Time        `json:"calculatedAt"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// ExportFile - A rendered report ready to be streamed to the client
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
