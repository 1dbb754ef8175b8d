package employee

import "context"

// EmployeeRepository is the read side of the employee registry.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)
	ListForPayroll(ctx context.Context, companyID string, filter Filter) ([]Employee, error)
}
