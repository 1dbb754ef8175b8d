package timesheet

import "context"

// TimesheetRepository exposes monthly hour totals. Employees without entries are simply absent.
type TimesheetRepository interface {
	GetMonthlyHours(ctx context.Context, companyID string, year, month int, employeeIDs []string) (map[string]MonthlyHours, error)
}
