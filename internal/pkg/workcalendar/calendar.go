package workcalendar

import "time"

const DefaultHoursPerDay = 8

// Calendar counts working days as Monday through Friday, minus any configured holidays.
type Calendar struct {
	hoursPerDay int
	holidays    map[string]struct{}
}

type Option func(*Calendar)

// WithHoursPerDay overrides the default 8-hour working day.
func WithHoursPerDay(h int) Option {
	return func(c *Calendar) {
		if h > 0 {
			c.hoursPerDay = h
		}
	}
}

// WithHolidays excludes the given dates (any time of day) from the working-day count.
func WithHolidays(dates ...time.Time) Option {
	return func(c *Calendar) {
		for _, d := range dates {
			c.holidays[d.Format("2006-01-02")] = struct{}{}
		}
	}
}

func New(opts ...Option) *Calendar {
	c := &Calendar{
		hoursPerDay: DefaultHoursPerDay,
		holidays:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WorkingDays returns the number of working days in the month, or 0 for an invalid month.
func (c *Calendar) WorkingDays(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	days := 0
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}
		if _, ok := c.holidays[d.Format("2006-01-02")]; ok {
			continue
		}
		days++
	}
	return days
}

// StandardMonthlyHours is WorkingDays x hours per day.
func (c *Calendar) StandardMonthlyHours(year, month int) int {
	return c.WorkingDays(year, month) * c.hoursPerDay
}

// StandardMonthlyHours uses the default calendar with no holidays.
func StandardMonthlyHours(year, month int) int {
	return New().StandardMonthlyHours(year, month)
}
