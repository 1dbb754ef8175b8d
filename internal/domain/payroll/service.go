package payroll

import (
	"context"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/shopspring/decimal"
)

type PayrollService interface {
	// Tax policy
	GetTaxPolicy(ctx context.Context) (TaxPolicyResponse, error)
	UpdateTaxPolicy(ctx context.Context, req UpdateTaxPolicyRequest) (TaxPolicyResponse, error)

	// Runs
	RunPayroll(ctx context.Context, req RunPayrollRequest) (RunSummary, error)
	GetStandardHours(ctx context.Context, periodKey string) (StandardHoursResponse, error)

	// Records
	GetPayrollRecord(ctx context.Context, id string) (PayrollRecordResponse, error)
	FindPayrollRecord(ctx context.Context, employeeID, periodKey string) (PayrollRecordResponse, error)
	ListPayrollRecords(ctx context.Context, periodKey string) ([]PayrollRecordResponse, error)
	UpdateRecordStatus(ctx context.Context, req UpdateRecordStatusRequest) (int64, error)
	DeletePayrollRecord(ctx context.Context, id string) error

	// Reports
	GetPeriodAggregate(ctx context.Context, periodKey string) (PeriodAggregate, error)
	ExportPeriodRegister(ctx context.Context, periodKey string) (ExportFile, error)
	GeneratePayslip(ctx context.Context, employeeID, periodKey string) (ExportFile, error)
}

// Calculator turns compensation terms and hours into pay amounts without any I/O.
type Calculator interface {
	Compute(comp CompensationTerms, hoursWorked decimal.Decimal, standardMonthlyHours int, policy TaxPolicy) (Calculation, error)
}

// WorkingCalendar yields the standard number of hours in a month.
type WorkingCalendar interface {
	WorkingDays(year, month int) int
	StandardMonthlyHours(year, month int) int
}

// RunInput - One batch run for one company and period
type RunInput struct {
	CompanyID           string
	Period              Period
	Filter              employee.Filter
	RecalculateExisting bool
	Force               bool
	Policy              TaxPolicy
}

type Runner interface {
	Run(ctx context.Context, in RunInput) (RunSummary, error)
}

// EventPublisher notifies downstream consumers about finished runs.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, summary RunSummary) error
}

// Transactor runs fn so that every repository call made with the ctx it receives shares one unit of work.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
