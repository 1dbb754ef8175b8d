package timesheet

import "github.com/shopspring/decimal"

// DayCode classifies a timesheet day entry
type DayCode string

const (
	DayCodeWork         DayCode = "work"
	DayCodeOvertime     DayCode = "overtime"
	DayCodeHoliday      DayCode = "holiday"
	DayCodeSick         DayCode = "sick"
	DayCodeVacation     DayCode = "vacation"
	DayCodeBusinessTrip DayCode = "business_trip"
	DayCodeAbsent       DayCode = "absent"
)

// MonthlyHours - Per-employee totals for one month.
// TotalHours already contains every sub-total below.
type MonthlyHours struct {
	EmployeeID    string
	TotalHours    decimal.Decimal
	OvertimeHours decimal.Decimal
	NightHours    decimal.Decimal
	EveningHours  decimal.Decimal
	HolidayHours  decimal.Decimal
	DaysByCode    map[DayCode]int
}

// Day - One timesheet entry
type Day struct {
	EmployeeID    string
	CompanyID     string
	Year          int
	Month         int
	Day           int
	Code          DayCode
	Hours         decimal.Decimal
	OvertimeHours decimal.Decimal
	NightHours    decimal.Decimal
	EveningHours  decimal.Decimal
}

// Summarize folds a month of day entries into MonthlyHours keyed by employee.
func Summarize(days []Day) map[string]MonthlyHours {
	result := make(map[string]MonthlyHours)
	for _, d := range days {
		m, ok := result[d.EmployeeID]
		if !ok {
			m = MonthlyHours{EmployeeID: d.EmployeeID, DaysByCode: make(map[DayCode]int)}
		}
		m.TotalHours = m.TotalHours.Add(d.Hours)
		m.OvertimeHours = m.OvertimeHours.Add(d.OvertimeHours)
		m.NightHours = m.NightHours.Add(d.NightHours)
		m.EveningHours = m.EveningHours.Add(d.EveningHours)
		if d.Code == DayCodeHoliday {
			m.HolidayHours = m.HolidayHours.Add(d.Hours)
		}
		m.DaysByCode[d.Code]++
		result[d.EmployeeID] = m
	}
	return result
}
