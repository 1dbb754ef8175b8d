package payroll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/export"
	"github.com/go-chi/jwtauth/v5"
)

type PayrollServiceImpl struct {
	payrollRepo   payroll.PayrollRepository
	taxPolicyRepo payroll.TaxPolicyRepository
	employeeRepo  employee.EmployeeRepository
	runner        payroll.Runner
	calendar      payroll.WorkingCalendar
	publisher     payroll.EventPublisher
	transactor    payroll.Transactor
	defaultPolicy payroll.TaxPolicy
	logger        *slog.Logger
}

func NewPayrollService(
	payrollRepo payroll.PayrollRepository,
	taxPolicyRepo payroll.TaxPolicyRepository,
	employeeRepo employee.EmployeeRepository,
	runner payroll.Runner,
	calendar payroll.WorkingCalendar,
	publisher payroll.EventPublisher,
	transactor payroll.Transactor,
	defaultPolicy payroll.TaxPolicy,
	logger *slog.Logger,
) *PayrollServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollServiceImpl{
		payrollRepo:   payrollRepo,
		taxPolicyRepo: taxPolicyRepo,
		employeeRepo:  employeeRepo,
		runner:        runner,
		calendar:      calendar,
		publisher:     publisher,
		transactor:    transactor,
		defaultPolicy: defaultPolicy,
		logger:        logger,
	}
}

// Helper to get company_id and user_id from JWT context
func getClaimsFromContext(ctx context.Context) (companyID, userID string, err error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", "", payroll.ErrCompanyIDRequired
	}

	userID, _ = claims["user_id"].(string)

	return companyID, userID, nil
}

// ========== TAX POLICY ==========

// resolvePolicy returns the company's saved policy, or the configured default when none is saved.
func (s *PayrollServiceImpl) resolvePolicy(ctx context.Context, companyID string) (payroll.TaxPolicy, bool, error) {
	policy, err := s.taxPolicyRepo.Get(ctx, companyID)
	if err != nil {
		if errors.Is(err, payroll.ErrTaxPolicyNotFound) {
			policy = s.defaultPolicy
			policy.CompanyID = companyID
			return policy, true, nil
		}
		return payroll.TaxPolicy{}, false, fmt.Errorf("failed to get tax policy: %w", err)
	}
	return policy, false, nil
}

func (s *PayrollServiceImpl) GetTaxPolicy(ctx context.Context) (payroll.TaxPolicyResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.TaxPolicyResponse{}, err
	}

	policy, isDefault, err := s.resolvePolicy(ctx, companyID)
	if err != nil {
		return payroll.TaxPolicyResponse{}, err
	}

	return mapToPolicyResponse(policy, isDefault), nil
}

func (s *PayrollServiceImpl) UpdateTaxPolicy(ctx context.Context, req payroll.UpdateTaxPolicyRequest) (payroll.TaxPolicyResponse, error) {
	companyID, userID, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.TaxPolicyResponse{}, err
	}

	current, _, err := s.resolvePolicy(ctx, companyID)
	if err != nil {
		return payroll.TaxPolicyResponse{}, err
	}

	updated := req.Apply(current)
	if err := updated.Validate(); err != nil {
		return payroll.TaxPolicyResponse{}, err
	}

	saved, err := s.taxPolicyRepo.Upsert(ctx, updated)
	if err != nil {
		return payroll.TaxPolicyResponse{}, fmt.Errorf("failed to save tax policy: %w", err)
	}

	s.logger.Info("Tax policy updated", "company_id", companyID, "user_id", userID)
	return mapToPolicyResponse(saved, false), nil
}

// ========== RUNS ==========

func (s *PayrollServiceImpl) RunPayroll(ctx context.Context, req payroll.RunPayrollRequest) (payroll.RunSummary, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunSummary{}, err
	}

	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunSummary{}, err
	}

	return s.RunForCompany(ctx, companyID, req)
}

// RunForCompany runs payroll without JWT claims. Used by the scheduler.
func (s *PayrollServiceImpl) RunForCompany(ctx context.Context, companyID string, req payroll.RunPayrollRequest) (payroll.RunSummary, error) {
	period, err := payroll.ParsePeriodKey(req.PeriodKey)
	if err != nil {
		return payroll.RunSummary{}, err
	}

	policy, _, err := s.resolvePolicy(ctx, companyID)
	if err != nil {
		return payroll.RunSummary{}, err
	}

	summary, err := s.runner.Run(ctx, payroll.RunInput{
		CompanyID: companyID,
		Period:    period,
		Filter: employee.Filter{
			DepartmentID:    req.DepartmentID,
			EmployeeIDs:     req.EmployeeIDs,
			IncludeInactive: req.IncludeInactive,
		},
		RecalculateExisting: req.RecalculateExisting,
		Force:               req.Force,
		Policy:              policy,
	})
	if err != nil && !summary.Cancelled {
		return summary, err
	}

	if s.publisher != nil {
		// the request context may already be cancelled
		if pubErr := s.publisher.PublishRunCompleted(context.WithoutCancel(ctx), summary); pubErr != nil {
			s.logger.Error("Failed to publish payroll run event", "company_id", companyID, "period", summary.PeriodKey, "error", pubErr)
		}
	}

	return summary, err
}

func (s *PayrollServiceImpl) GetStandardHours(ctx context.Context, periodKey string) (payroll.StandardHoursResponse, error) {
	period, err := payroll.ParsePeriodKey(periodKey)
	if err != nil {
		return payroll.StandardHoursResponse{}, err
	}

	return payroll.StandardHoursResponse{
		PeriodKey:            period.Key(),
		WorkingDays:          s.calendar.WorkingDays(period.Year, period.Month),
		StandardMonthlyHours: s.calendar.StandardMonthlyHours(period.Year, period.Month),
	}, nil
}

// ========== RECORDS ==========

func (s *PayrollServiceImpl) GetPayrollRecord(ctx context.Context, id string) (payroll.PayrollRecordResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	record, err := s.payrollRepo.GetByID(ctx, id, companyID)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	return mapToRecordResponse(record), nil
}

func (s *PayrollServiceImpl) FindPayrollRecord(ctx context.Context, employeeID, periodKey string) (payroll.PayrollRecordResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	period, err := payroll.ParsePeriodKey(periodKey)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	record, err := s.payrollRepo.FindByEmployeePeriod(ctx, companyID, employeeID, period.Key())
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	return mapToRecordResponse(record), nil
}

func (s *PayrollServiceImpl) ListPayrollRecords(ctx context.Context, periodKey string) ([]payroll.PayrollRecordResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	period, err := payroll.ParsePeriodKey(periodKey)
	if err != nil {
		return nil, err
	}

	records, err := s.payrollRepo.ListByPeriod(ctx, companyID, period.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll records: %w", err)
	}

	return mapToRecordResponses(records), nil
}

func (s *PayrollServiceImpl) UpdateRecordStatus(ctx context.Context, req payroll.UpdateRecordStatusRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	companyID, userID, err := getClaimsFromContext(ctx)
	if err != nil {
		return 0, err
	}

	target := payroll.PayrollStatus(req.Status)
	var updated int64
	err = s.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		for _, id := range req.RecordIDs {
			if _, err := s.payrollRepo.GetByID(txCtx, id, companyID); err != nil {
				return err
			}
		}

		// the repository refuses to move a paid record under its own lock
		n, err := s.payrollRepo.UpdateStatus(txCtx, companyID, req.RecordIDs, target)
		if err != nil {
			if errors.Is(err, payroll.ErrPayrollRecordLocked) {
				return err
			}
			return fmt.Errorf("failed to update payroll status: %w", err)
		}
		if n == 0 {
			return payroll.ErrPayrollRecordNotFound
		}
		updated = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Payroll records status updated", "company_id", companyID, "user_id", userID, "status", target, "count", updated)
	return updated, nil
}

func (s *PayrollServiceImpl) DeletePayrollRecord(ctx context.Context, id string) error {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return err
	}

	// paid records are refused by the repository
	if err := s.payrollRepo.Delete(ctx, id, companyID); err != nil {
		return err
	}

	s.logger.Info("Payroll record deleted", "company_id", companyID, "record_id", id)
	return nil
}

// ========== REPORTS ==========

func (s *PayrollServiceImpl) GetPeriodAggregate(ctx context.Context, periodKey string) (payroll.PeriodAggregate, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PeriodAggregate{}, err
	}

	period, err := payroll.ParsePeriodKey(periodKey)
	if err != nil {
		return payroll.PeriodAggregate{}, err
	}

	return s.payrollRepo.AggregateByPeriod(ctx, companyID, period.Key())
}

func (s *PayrollServiceImpl) ExportPeriodRegister(ctx context.Context, periodKey string) (payroll.ExportFile, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ExportFile{}, err
	}

	period, err := payroll.ParsePeriodKey(periodKey)
	if err != nil {
		return payroll.ExportFile{}, err
	}

	records, err := s.payrollRepo.ListByPeriod(ctx, companyID, period.Key())
	if err != nil {
		return payroll.ExportFile{}, fmt.Errorf("failed to list payroll records: %w", err)
	}
	agg, err := s.payrollRepo.AggregateByPeriod(ctx, companyID, period.Key())
	if err != nil {
		return payroll.ExportFile{}, fmt.Errorf("failed to aggregate payroll records: %w", err)
	}
	rows, err := s.exportRows(ctx, companyID, records)
	if err != nil {
		return payroll.ExportFile{}, err
	}

	var buf bytes.Buffer
	if err := export.WritePeriodRegister(&buf, period.Key(), rows, agg); err != nil {
		return payroll.ExportFile{}, fmt.Errorf("failed to render payroll register: %w", err)
	}

	return payroll.ExportFile{
		Filename:    fmt.Sprintf("payroll-register-%s.xlsx", period.Key()),
		ContentType: export.XLSXContentType,
		Content:     buf.Bytes(),
	}, nil
}

func (s *PayrollServiceImpl) GeneratePayslip(ctx context.Context, employeeID, periodKey string) (payroll.ExportFile, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ExportFile{}, err
	}

	period, err := payroll.ParsePeriodKey(periodKey)
	if err != nil {
		return payroll.ExportFile{}, err
	}

	record, err := s.payrollRepo.FindByEmployeePeriod(ctx, companyID, employeeID, period.Key())
	if err != nil {
		return payroll.ExportFile{}, err
	}
	rows, err := s.exportRows(ctx, companyID, []payroll.PayrollRecord{record})
	if err != nil {
		return payroll.ExportFile{}, err
	}

	var buf bytes.Buffer
	if err := export.WritePayslip(&buf, rows[0]); err != nil {
		return payroll.ExportFile{}, fmt.Errorf("failed to render payslip: %w", err)
	}

	return payroll.ExportFile{
		Filename:    fmt.Sprintf("payslip-%s-%s.pdf", employeeID, period.Key()),
		ContentType: export.PDFContentType,
		Content:     buf.Bytes(),
	}, nil
}

// exportRows joins records with registry names. Employees missing from the registry keep their id as name.
func (s *PayrollServiceImpl) exportRows(ctx context.Context, companyID string, records []payroll.PayrollRecord) ([]export.Row, error) {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.EmployeeID)
	}

	byID := make(map[string]employee.Employee)
	if len(ids) > 0 {
		employees, err := s.employeeRepo.ListForPayroll(ctx, companyID, employee.Filter{EmployeeIDs: ids, IncludeInactive: true})
		if err != nil {
			return nil, fmt.Errorf("failed to get employees: %w", err)
		}
		for _, e := range employees {
			byID[e.ID] = e
		}
	}

	rows := make([]export.Row, 0, len(records))
	for _, r := range records {
		row := export.Row{EmployeeName: r.EmployeeID, Record: r}
		if e, ok := byID[r.EmployeeID]; ok {
			row.EmployeeCode = e.EmployeeCode
			row.EmployeeName = e.FullName
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ========== HELPERS ==========

func mapToPolicyResponse(p payroll.TaxPolicy, isDefault bool) payroll.TaxPolicyResponse {
	return payroll.TaxPolicyResponse{
		CompanyID:                       p.CompanyID,
		PersonalIncomeTaxRate:           p.PersonalIncomeTaxRate,
		MilitaryTaxRate:                 p.MilitaryTaxRate,
		EmployerPensionContributionRate: p.EmployerPensionContributionRate,
		EmployeePensionContributionRate: p.EmployeePensionContributionRate,
		MinimumWage:                     p.MinimumWage,
		TaxFreeMinimum:                  p.TaxFreeMinimum,
		IsDefault:                       isDefault,
	}
}

func mapToRecordResponse(r payroll.PayrollRecord) payroll.PayrollRecordResponse {
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	return payroll.PayrollRecordResponse{
		ID:             r.ID,
		EmployeeID:     r.EmployeeID,
		Period:         r.Period,
		PeriodKey:      r.PeriodKey(),
		HoursWorked:    r.HoursWorked,
		HoursBreakdown: r.HoursBreakdown,
		Earnings:       r.Earnings,
		Deductions:     r.Deductions,
		Summary:        r.Summary,
		Basis:          r.Basis,
		Status:         string(r.Status),
		Warnings:       warnings,
		CalculatedAt:   r.CalculatedAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func mapToRecordResponses(records []payroll.PayrollRecord) []payroll.PayrollRecordResponse {
	result := make([]payroll.PayrollRecordResponse, 0, len(records))
	for _, r := range records {
		result = append(result, mapToRecordResponse(r))
	}
	return result
}
