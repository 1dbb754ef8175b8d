package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
)

// CompanyRunner runs a payroll batch for one company outside of a request.
type CompanyRunner interface {
	RunForCompany(ctx context.Context, companyID string, req payroll.RunPayrollRequest) (payroll.RunSummary, error)
}

type CompanyLister interface {
	ListCompanyIDs(ctx context.Context) ([]string, error)
}

type PayrollJobs struct {
	runner    CompanyRunner
	companies CompanyLister
	logger    *slog.Logger
	now       func() time.Time
}

func NewPayrollJobs(runner CompanyRunner, companies CompanyLister, logger *slog.Logger) *PayrollJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollJobs{
		runner:    runner,
		companies: companies,
		logger:    logger,
		now:       time.Now,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("auto_run_previous_period", interval, j.AutoRunPreviousPeriod)
}

// AutoRunPreviousPeriod calculates the last closed month for every known company.
// Existing records are left alone, so repeated runs only fill in missing employees.
func (j *PayrollJobs) AutoRunPreviousPeriod(ctx context.Context) error {
	period := payroll.PeriodOf(j.now().UTC()).Previous()

	companyIDs, err := j.companies.ListCompanyIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	j.logger.Info("Cron: Starting payroll auto-run", "period", period.Key(), "companies", len(companyIDs))

	var errs []error
	for _, companyID := range companyIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		summary, err := j.runner.RunForCompany(ctx, companyID, payroll.RunPayrollRequest{PeriodKey: period.Key()})
		if err != nil {
			j.logger.Error("Cron: Payroll auto-run failed", "company_id", companyID, "period", period.Key(), "error", err)
			errs = append(errs, fmt.Errorf("company %s: %w", companyID, err))
			continue
		}

		j.logger.Info("Cron: Payroll auto-run completed",
			"company_id", companyID,
			"period", summary.PeriodKey,
			"calculated", summary.EmployeesCalculated,
			"skipped", summary.EmployeesSkipped,
			"failed", summary.EmployeesFailed,
		)
	}

	return errors.Join(errs...)
}
