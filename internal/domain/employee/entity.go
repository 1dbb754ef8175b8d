package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee - Registry view used by payroll. Salary is nil when no compensation terms are configured.
type Employee struct {
	ID               string
	CompanyID        string
	DepartmentID     *string
	EmployeeCode     string
	FullName         string
	EmploymentStatus EmploymentStatus
	BaseSalary       *decimal.Decimal
	HireDate         time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

func (e Employee) IsActive() bool {
	return e.EmploymentStatus == EmploymentStatusActive
}

// HasCompensation reports whether a base salary is on file.
func (e Employee) HasCompensation() bool {
	return e.BaseSalary != nil
}

// Filter narrows the employees selected for a payroll run.
type Filter struct {
	DepartmentID    *string
	EmployeeIDs     []string
	IncludeInactive bool
}

// Matches applies the filter in memory, mirroring the SQL predicate.
func (f Filter) Matches(e Employee) bool {
	if !f.IncludeInactive && !e.IsActive() {
		return false
	}
	if f.DepartmentID != nil {
		if e.DepartmentID == nil || *e.DepartmentID != *f.DepartmentID {
			return false
		}
	}
	if len(f.EmployeeIDs) > 0 {
		for _, id := range f.EmployeeIDs {
			if id == e.ID {
				return true
			}
		}
		return false
	}
	return true
}
