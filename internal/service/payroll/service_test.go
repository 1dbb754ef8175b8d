package payroll

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/workcalendar"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu        sync.Mutex
	summaries []payroll.RunSummary
	err       error
}

func (p *recordingPublisher) PublishRunCompleted(ctx context.Context, summary payroll.RunSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
	return p.err
}

type serviceFixture struct {
	*runnerFixture
	publisher *recordingPublisher
	service   *PayrollServiceImpl
}

func newServiceFixture() *serviceFixture {
	f := newRunnerFixture()
	publisher := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cal := workcalendar.New()
	runner := NewPayrollRunner(f.payrollRepo, f.employeeRepo, f.timesheetRepo, cal, NewPayrollCalculator(), 2, logger)

	svc := NewPayrollService(
		f.payrollRepo,
		memory.NewTaxPolicyRepository(),
		f.employeeRepo,
		runner,
		cal,
		publisher,
		memory.Transactor{},
		payroll.DefaultTaxPolicy(),
		logger,
	)
	return &serviceFixture{runnerFixture: f, publisher: publisher, service: svc}
}

func authContext(t *testing.T, companyID string) context.Context {
	t.Helper()
	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)
	token, _, err := tokenAuth.Encode(map[string]interface{}{
		"user_id":    "user-1",
		"company_id": companyID,
	})
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func TestPayrollService_TaxPolicyDefaultsThenUpdate(t *testing.T) {
	f := newServiceFixture()
	ctx := authContext(t, testCompanyID)

	policy, err := f.service.GetTaxPolicy(ctx)
	require.NoError(t, err)
	assert.True(t, policy.IsDefault)
	assert.Equal(t, testCompanyID, policy.CompanyID)
	assert.True(t, decimal.RequireFromString("0.18").Equal(policy.PersonalIncomeTaxRate))

	rate := decimal.RequireFromString("0.2")
	updated, err := f.service.UpdateTaxPolicy(ctx, payroll.UpdateTaxPolicyRequest{PersonalIncomeTaxRate: &rate})
	require.NoError(t, err)
	assert.False(t, updated.IsDefault)
	assert.True(t, rate.Equal(updated.PersonalIncomeTaxRate))
	// untouched fields keep their previous values
	assert.True(t, decimal.RequireFromString("0.015").Equal(updated.MilitaryTaxRate))

	again, err := f.service.GetTaxPolicy(ctx)
	require.NoError(t, err)
	assert.False(t, again.IsDefault)
	assert.True(t, rate.Equal(again.PersonalIncomeTaxRate))

	// another tenant still sees the default
	other, err := f.service.GetTaxPolicy(authContext(t, "company-2"))
	require.NoError(t, err)
	assert.True(t, other.IsDefault)
}

func TestPayrollService_UpdateTaxPolicyRejectsInvalidRate(t *testing.T) {
	f := newServiceFixture()
	ctx := authContext(t, testCompanyID)

	bad := decimal.RequireFromString("1.5")
	_, err := f.service.UpdateTaxPolicy(ctx, payroll.UpdateTaxPolicyRequest{MilitaryTaxRate: &bad})

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has("militaryTaxRate"))

	policy, err := f.service.GetTaxPolicy(ctx)
	require.NoError(t, err)
	assert.True(t, policy.IsDefault)
}

func TestPayrollService_RequiresCompanyClaim(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.GetTaxPolicy(context.Background())
	assert.True(t, errors.Is(err, payroll.ErrCompanyIDRequired))

	_, err = f.service.RunPayroll(context.Background(), payroll.RunPayrollRequest{PeriodKey: "2024-09"})
	assert.True(t, errors.Is(err, payroll.ErrCompanyIDRequired))
	assert.Empty(t, f.publisher.summaries)
}

func TestPayrollService_RunUsesCompanyPolicyAndPublishes(t *testing.T) {
	f := newServiceFixture()
	ctx := authContext(t, testCompanyID)

	rate := decimal.RequireFromString("0.2")
	_, err := f.service.UpdateTaxPolicy(ctx, payroll.UpdateTaxPolicyRequest{PersonalIncomeTaxRate: &rate})
	require.NoError(t, err)

	summary, err := f.service.RunPayroll(ctx, payroll.RunPayrollRequest{PeriodKey: "2024-09"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.EmployeesCalculated)

	require.Len(t, f.publisher.summaries, 1)
	assert.Equal(t, summary.PeriodKey, f.publisher.summaries[0].PeriodKey)

	// taxable 5310, income tax 1062, military 80, pension 20
	record, err := f.service.FindPayrollRecord(ctx, "e1", "2024-09")
	require.NoError(t, err)
	assertMoney(t, 1062, record.Deductions.PersonalIncomeTax, "personalIncomeTax")
	assertMoney(t, 6838, record.Summary.NetPay, "netPay")
	assert.Equal(t, "2024-09", record.PeriodKey)
}

func TestPayrollService_RunRejectsInvalidRequest(t *testing.T) {
	f := newServiceFixture()
	ctx := authContext(t, testCompanyID)

	_, err := f.service.RunPayroll(ctx, payroll.RunPayrollRequest{PeriodKey: "2024-13"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has("periodKey"))

	_, err = f.service.RunPayroll(ctx, payroll.RunPayrollRequest{PeriodKey: "2024-09", Force: true})
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has("force"))

	assert.Empty(t, f.publisher.summaries)
}

func TestPayrollService_PublishFailureDoesNotFailRun(t *testing.T) {
	f := newServiceFixture()
	f.publisher.err = errors.New("broker down")
	ctx := authContext(t, testCompanyID)

	summary, err := f.service.RunPayroll(ctx, payroll.RunPayrollRequest{PeriodKey: "2024-09"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.EmployeesCalculated)
	assert.Len(t, f.publisher.summaries, 1)
}

func TestPayrollService_StatusTransitionsAndDelete(t *testing.T) {
	f := newServiceFixture()
	ctx := authContext(t, testCompanyID)

	_, err := f.service.RunPayroll(ctx, payroll.RunPayrollRequest{PeriodKey: "2024-09"})
	require.NoError(t, err)

	records, err := f.service.ListPayrollRecords(ctx, "2024-09")
	require.NoError(t, err)
	require.Len(t, records, 2)
	ids := []string{records[0].ID, records[1].ID}

	n, err := f.service.UpdateRecordStatus(ctx, payroll.UpdateRecordStatusRequest{RecordIDs: ids, Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.service.UpdateRecordStatus(ctx, payroll.UpdateRecordStatusRequest{RecordIDs: ids[:1], Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.service.UpdateRecordStatus(ctx, payroll.UpdateRecordStatusRequest{RecordIDs: ids[:1], Status: "calculated"})
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordLocked))

	err = f.service.DeletePayrollRecord(ctx, ids[0])
	assert.True(t, errors.Is(err, payroll.ErrCannotDeletePaidRecord))

	require.NoError(t, f.service.DeletePayrollRecord(ctx, ids[1]))
	_, err = f.service.GetPayrollRecord(ctx, ids[1])
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordNotFound))

	// records of another company are invisible
	_, err = f.service.GetPayrollRecord(authContext(t, "company-2"), ids[0])
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordNotFound))

	_, err = f.service.UpdateRecordStatus(ctx, payroll.UpdateRecordStatusRequest{RecordIDs: []string{"missing"}, Status: "approved"})
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordNotFound))
}

func TestPayrollService_AggregateAndExports(t *testing.T) {
	f := newServiceFixture()
	ctx := authContext(t, testCompanyID)

	_, err := f.service.RunPayroll(ctx, payroll.RunPayrollRequest{PeriodKey: "2024-09"})
	require.NoError(t, err)

	agg, err := f.service.GetPeriodAggregate(ctx, "2024-09")
	require.NoError(t, err)
	assert.Equal(t, 2, agg.RecordCount)
	assertMoney(t, 8000, agg.TotalGross, "totalGross")
	assertMoney(t, 6944, agg.TotalNet, "totalNet")

	register, err := f.service.ExportPeriodRegister(ctx, "2024-09")
	require.NoError(t, err)
	assert.Equal(t, "payroll-register-2024-09.xlsx", register.Filename)
	assert.True(t, bytes.HasPrefix(register.Content, []byte("PK")))

	slip, err := f.service.GeneratePayslip(ctx, "e1", "2024-09")
	require.NoError(t, err)
	assert.Equal(t, "payslip-e1-2024-09.pdf", slip.Filename)
	assert.True(t, bytes.HasPrefix(slip.Content, []byte("%PDF")))

	_, err = f.service.GeneratePayslip(ctx, "e3", "2024-09")
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordNotFound))
}

func TestPayrollService_GetStandardHours(t *testing.T) {
	f := newServiceFixture()

	resp, err := f.service.GetStandardHours(context.Background(), "2024-09")
	require.NoError(t, err)
	assert.Equal(t, 21, resp.WorkingDays)
	assert.Equal(t, 168, resp.StandardMonthlyHours)

	_, err = f.service.GetStandardHours(context.Background(), "2024/09")
	assert.True(t, errors.Is(err, payroll.ErrInvalidPeriod))
}

func TestPayrollService_StatusGuardHoldsWhenRecordIsPaidConcurrently(t *testing.T) {
	f := newServiceFixture()
	ctx := authContext(t, testCompanyID)

	_, err := f.service.RunPayroll(ctx, payroll.RunPayrollRequest{PeriodKey: "2024-09"})
	require.NoError(t, err)
	records, err := f.service.ListPayrollRecords(ctx, "2024-09")
	require.NoError(t, err)
	require.Len(t, records, 2)
	ids := []string{records[0].ID, records[1].ID}

	// another request pays the first record right after it is read
	repo := &fakePayrollRepository{
		PayrollRepository: f.payrollRepo,
		getFn: func(ctx context.Context, id, companyID string) (payroll.PayrollRecord, error) {
			rec, err := f.payrollRepo.GetByID(ctx, id, companyID)
			if err == nil && id == ids[0] {
				_, err := f.payrollRepo.UpdateStatus(ctx, companyID, []string{id}, payroll.PayrollStatusPaid)
				require.NoError(t, err)
			}
			return rec, err
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewPayrollService(repo, memory.NewTaxPolicyRepository(), f.employeeRepo, f.service.runner, workcalendar.New(), f.publisher, memory.Transactor{}, payroll.DefaultTaxPolicy(), logger)

	_, err = svc.UpdateRecordStatus(ctx, payroll.UpdateRecordStatusRequest{RecordIDs: ids, Status: "approved"})
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordLocked))

	paid, err := f.payrollRepo.GetByID(ctx, ids[0], testCompanyID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusPaid, paid.Status)
	other, err := f.payrollRepo.GetByID(ctx, ids[1], testCompanyID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusCalculated, other.Status)

	err = svc.DeletePayrollRecord(ctx, ids[0])
	assert.True(t, errors.Is(err, payroll.ErrCannotDeletePaidRecord))
}
