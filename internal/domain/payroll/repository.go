package payroll

import "context"

// PayrollRepository stores at most one record per (employee, period).
// All methods include companyID so a tenant can never read or overwrite another tenant's records.
type PayrollRepository interface {
	// Upsert inserts a new record or replaces the calculated fields of the existing one.
	// ID, CreatedAt and Status of an existing record are preserved.
	// An existing approved or paid record is only rewritten when overrideLocked is set,
	// otherwise it is left untouched and ErrPayrollRecordLocked is returned.
	Upsert(ctx context.Context, record PayrollRecord, overrideLocked bool) (PayrollRecord, error)
	GetByID(ctx context.Context, id string, companyID string) (PayrollRecord, error)
	FindByEmployeePeriod(ctx context.Context, companyID, employeeID, periodKey string) (PayrollRecord, error)
	ListByPeriod(ctx context.Context, companyID, periodKey string) ([]PayrollRecord, error)
	AggregateByPeriod(ctx context.Context, companyID, periodKey string) (PeriodAggregate, error)

	// Workflow actions performed outside the engine.
	// A paid record can't leave paid: UpdateStatus then fails with ErrPayrollRecordLocked and changes nothing.
	UpdateStatus(ctx context.Context, companyID string, ids []string, status PayrollStatus) (int64, error)
	// Delete refuses paid records with ErrCannotDeletePaidRecord.
	Delete(ctx context.Context, id string, companyID string) error
}

// TaxPolicyRepository stores the policy in force for each company.
type TaxPolicyRepository interface {
	Get(ctx context.Context, companyID string) (TaxPolicy, error)
	Upsert(ctx context.Context, policy TaxPolicy) (TaxPolicy, error)
	ListCompanyIDs(ctx context.Context) ([]string, error)
}
