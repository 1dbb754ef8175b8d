package auth

import "github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"

// Role carried in the access token "role" claim
type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

func (r Role) IsValid() bool {
	return validator.IsInSlice(string(r), []string{string(RoleOwner), string(RoleManager), string(RoleEmployee)})
}

// CanViewPayroll reports whether the role may read payroll records and reports.
func (r Role) CanViewPayroll() bool {
	return r == RoleOwner || r == RoleManager
}

// CanManagePayroll reports whether the role may run payroll, change the tax policy or stamp records.
func (r Role) CanManagePayroll() bool {
	return r == RoleOwner
}
