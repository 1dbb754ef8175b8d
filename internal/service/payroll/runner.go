package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/keylock"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

type outcomeKind int

const (
	outcomeCalculated outcomeKind = iota
	outcomeSkipped
	outcomeFailed
)

type outcome struct {
	kind   outcomeKind
	reason string
}

// PayrollRunner calculates and stores records for every selected employee of a period.
// A failure for one employee is recorded in the summary and never aborts the run.
type PayrollRunner struct {
	payrollRepo   payroll.PayrollRepository
	employeeRepo  employee.EmployeeRepository
	timesheetRepo timesheet.TimesheetRepository
	calendar      payroll.WorkingCalendar
	calculator    payroll.Calculator
	locks         *keylock.KeyedMutex
	concurrency   int
	logger        *slog.Logger
	now           func() time.Time
}

func NewPayrollRunner(
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	timesheetRepo timesheet.TimesheetRepository,
	calendar payroll.WorkingCalendar,
	calculator payroll.Calculator,
	concurrency int,
	logger *slog.Logger,
) *PayrollRunner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollRunner{
		payrollRepo:   payrollRepo,
		employeeRepo:  employeeRepo,
		timesheetRepo: timesheetRepo,
		calendar:      calendar,
		calculator:    calculator,
		locks:         keylock.New(),
		concurrency:   concurrency,
		logger:        logger,
		now:           time.Now,
	}
}

// Run processes one period. The returned error is non-nil only when the run could not
// start (bad input, registry unavailable) or was cancelled; in the latter case the
// summary still describes the employees processed before cancellation.
func (r *PayrollRunner) Run(ctx context.Context, in payroll.RunInput) (payroll.RunSummary, error) {
	summary := payroll.RunSummary{
		CompanyID: in.CompanyID,
		PeriodKey: in.Period.Key(),
		Skipped:   []payroll.RunSkip{},
		Failures:  []payroll.RunFailure{},
		StartedAt: r.now(),
	}

	if in.CompanyID == "" {
		return summary, payroll.ErrCompanyIDRequired
	}
	if !in.Period.IsValid() {
		return summary, fmt.Errorf("%w: %s", payroll.ErrInvalidPeriod, in.Period.Key())
	}
	if err := in.Policy.Validate(); err != nil {
		return summary, err
	}

	std := r.calendar.StandardMonthlyHours(in.Period.Year, in.Period.Month)
	if std <= 0 {
		return summary, fmt.Errorf("%w: %s has %d standard hours", payroll.ErrInvalidCalendar, in.Period.Key(), std)
	}

	employees, err := r.employeeRepo.ListForPayroll(ctx, in.CompanyID, in.Filter)
	if err != nil {
		return summary, fmt.Errorf("failed to get employees: %w", err)
	}
	summary.EmployeesConsidered = len(employees)

	employeeIDs := make([]string, 0, len(employees))
	for _, emp := range employees {
		employeeIDs = append(employeeIDs, emp.ID)
	}
	hours, err := r.timesheetRepo.GetMonthlyHours(ctx, in.CompanyID, in.Period.Year, in.Period.Month, employeeIDs)
	if err != nil {
		return summary, fmt.Errorf("failed to get timesheet hours: %w", err)
	}

	r.logger.Info("Payroll run started",
		"company_id", in.CompanyID,
		"period", summary.PeriodKey,
		"employees", len(employees),
		"standard_hours", std,
		"recalculate", in.RecalculateExisting,
		"force", in.Force,
	)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for _, emp := range employees {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := r.processEmployee(ctx, in, emp, hours[emp.ID], std)

			mu.Lock()
			defer mu.Unlock()
			switch res.kind {
			case outcomeCalculated:
				summary.EmployeesCalculated++
			case outcomeSkipped:
				summary.EmployeesSkipped++
				summary.Skipped = append(summary.Skipped, payroll.RunSkip{EmployeeID: emp.ID, Reason: res.reason})
			case outcomeFailed:
				summary.EmployeesFailed++
				summary.Failures = append(summary.Failures, payroll.RunFailure{EmployeeID: emp.ID, Reason: res.reason})
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(summary.Skipped, func(i, j int) bool { return summary.Skipped[i].EmployeeID < summary.Skipped[j].EmployeeID })
	sort.Slice(summary.Failures, func(i, j int) bool { return summary.Failures[i].EmployeeID < summary.Failures[j].EmployeeID })
	summary.FinishedAt = r.now()

	if err := ctx.Err(); err != nil {
		summary.Cancelled = true
		r.logger.Warn("Payroll run cancelled",
			"company_id", in.CompanyID,
			"period", summary.PeriodKey,
			"calculated", summary.EmployeesCalculated,
			"error", err,
		)
		return summary, err
	}

	r.logger.Info("Payroll run completed",
		"company_id", in.CompanyID,
		"period", summary.PeriodKey,
		"calculated", summary.EmployeesCalculated,
		"skipped", summary.EmployeesSkipped,
		"failed", summary.EmployeesFailed,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
	return summary, nil
}

func (r *PayrollRunner) processEmployee(ctx context.Context, in payroll.RunInput, emp employee.Employee, hours timesheet.MonthlyHours, std int) outcome {
	periodKey := in.Period.Key()

	unlock := r.locks.Lock(in.CompanyID + "|" + emp.ID + "|" + periodKey)
	defer unlock()

	existing, err := r.payrollRepo.FindByEmployeePeriod(ctx, in.CompanyID, emp.ID, periodKey)
	if err != nil && !errors.Is(err, payroll.ErrPayrollRecordNotFound) {
		return r.fail(emp.ID, periodKey, fmt.Errorf("failed to check existing payroll record: %w", err))
	}
	if err == nil {
		if !in.RecalculateExisting {
			return outcome{kind: outcomeSkipped, reason: payroll.SkipReasonAlreadyCalculated}
		}
		if existing.Status.Locked() && !in.Force {
			return outcome{kind: outcomeSkipped, reason: payroll.SkipReasonStatusLocked}
		}
	}

	if !emp.HasCompensation() {
		return r.fail(emp.ID, periodKey, payroll.ErrCompensationNotFound)
	}
	comp := payroll.CompensationTerms{EmployeeID: emp.ID, BaseSalary: *emp.BaseSalary}

	calc, err := r.calculator.Compute(comp, hours.TotalHours, std, in.Policy)
	if err != nil {
		return r.fail(emp.ID, periodKey, fmt.Errorf("failed to calculate payroll: %w", err))
	}

	breakdown := payroll.HoursBreakdown{
		Overtime: hours.OvertimeHours,
		Night:    hours.NightHours,
		Evening:  hours.EveningHours,
		Holiday:  hours.HolidayHours,
	}
	warnings := append([]string{}, calc.Warnings...)
	if breakdown.HasPremiumHours() {
		warnings = append(warnings, payroll.WarningPremiumHoursUnpaid)
	}

	record := payroll.PayrollRecord{
		CompanyID:      in.CompanyID,
		EmployeeID:     emp.ID,
		Period:         in.Period,
		HoursWorked:    hours.TotalHours,
		HoursBreakdown: breakdown,
		Earnings:       calc.Earnings,
		Deductions:     calc.Deductions,
		Summary:        calc.Summary,
		Basis:          calc.Basis,
		Status:         payroll.PayrollStatusCalculated,
		Warnings:       warnings,
		CalculatedAt:   r.now(),
	}
	// The store re-checks the status atomically; a record approved since the lookup above is not overwritten.
	if _, err := r.payrollRepo.Upsert(ctx, record, in.Force); err != nil {
		if errors.Is(err, payroll.ErrPayrollRecordLocked) {
			return outcome{kind: outcomeSkipped, reason: payroll.SkipReasonStatusLocked}
		}
		return r.fail(emp.ID, periodKey, fmt.Errorf("failed to save payroll record: %w", err))
	}

	return outcome{kind: outcomeCalculated}
}

func (r *PayrollRunner) fail(employeeID, periodKey string, err error) outcome {
	r.logger.Error("Payroll calculation failed", "employee_id", employeeID, "period", periodKey, "error", err)
	return outcome{kind: outcomeFailed, reason: err.Error()}
}
