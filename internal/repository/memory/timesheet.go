package memory

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/timesheet"
)

// TimesheetRepository keeps raw day entries and summarizes them on read.
type TimesheetRepository struct {
	mu   sync.RWMutex
	days []timesheet.Day
}

func NewTimesheetRepository(days ...timesheet.Day) *TimesheetRepository {
	return &TimesheetRepository{days: append([]timesheet.Day(nil), days...)}
}

func (r *TimesheetRepository) Add(days ...timesheet.Day) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days = append(r.days, days...)
}

func (r *TimesheetRepository) GetMonthlyHours(ctx context.Context, companyID string, year, month int, employeeIDs []string) (map[string]timesheet.MonthlyHours, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]struct{}, len(employeeIDs))
	for _, id := range employeeIDs {
		wanted[id] = struct{}{}
	}

	var matched []timesheet.Day
	for _, d := range r.days {
		if d.CompanyID != companyID || d.Year != year || d.Month != month {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[d.EmployeeID]; !ok {
				continue
			}
		}
		matched = append(matched, d)
	}
	return timesheet.Summarize(matched), nil
}
