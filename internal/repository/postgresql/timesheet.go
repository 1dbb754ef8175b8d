package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type timesheetRepository struct {
	db *database.DB
}

func NewTimesheetRepository(db *database.DB) timesheet.TimesheetRepository {
	return &timesheetRepository{db: db}
}

// GetMonthlyHours sums the day entries of one month per employee. Employees without entries are absent from the map.
func (r *timesheetRepository) GetMonthlyHours(ctx context.Context, companyID string, year, month int, employeeIDs []string) (map[string]timesheet.MonthlyHours, error) {
	result := make(map[string]timesheet.MonthlyHours)
	if len(employeeIDs) == 0 {
		return result, nil
	}

	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id::text,
			   COALESCE(SUM(hours), 0),
			   COALESCE(SUM(overtime_hours), 0),
			   COALESCE(SUM(night_hours), 0),
			   COALESCE(SUM(evening_hours), 0),
			   COALESCE(SUM(hours) FILTER (WHERE day_code = 'holiday'), 0)
		FROM timesheet_days
		WHERE company_id = $1
			AND EXTRACT(YEAR FROM work_date) = $2
			AND EXTRACT(MONTH FROM work_date) = $3
			AND employee_id::text = ANY($4)
		GROUP BY employee_id
	`

	rows, err := q.Query(ctx, query, companyID, year, month, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly hours: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m timesheet.MonthlyHours
		if err := rows.Scan(&m.EmployeeID, &m.TotalHours, &m.OvertimeHours, &m.NightHours, &m.EveningHours, &m.HolidayHours); err != nil {
			return nil, fmt.Errorf("failed to scan monthly hours: %w", err)
		}
		m.DaysByCode = make(map[timesheet.DayCode]int)
		result[m.EmployeeID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get monthly hours: %w", err)
	}

	codes, err := q.Query(ctx, `
		SELECT employee_id::text, day_code, COUNT(*)
		FROM timesheet_days
		WHERE company_id = $1
			AND EXTRACT(YEAR FROM work_date) = $2
			AND EXTRACT(MONTH FROM work_date) = $3
			AND employee_id::text = ANY($4)
		GROUP BY employee_id, day_code
	`, companyID, year, month, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count day codes: %w", err)
	}
	defer codes.Close()

	for codes.Next() {
		var employeeID string
		var code timesheet.DayCode
		var count int
		if err := codes.Scan(&employeeID, &code, &count); err != nil {
			return nil, fmt.Errorf("failed to scan day code count: %w", err)
		}
		if m, ok := result[employeeID]; ok {
			m.DaysByCode[code] = count
		}
	}

	return result, codes.Err()
}
