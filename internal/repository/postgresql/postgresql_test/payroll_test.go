package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to insert an employee row and return its id
func createTestEmployee(t *testing.T, ctx context.Context, setup *TestDatabaseSetup, companyID, code, status string, salary *int64) string {
	t.Helper()

	var base interface{}
	if salary != nil {
		base = decimal.NewFromInt(*salary)
	}

	var id string
	err := setup.DB.QueryRow(ctx, `
		INSERT INTO employees (company_id, employee_code, full_name, employment_status, base_salary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, companyID, code, "Employee "+code, status, base).Scan(&id)
	require.NoError(t, err)
	return id
}

func addTimesheetDay(t *testing.T, ctx context.Context, setup *TestDatabaseSetup, companyID, employeeID, date, code string, hours, overtime int64) {
	t.Helper()

	_, err := setup.DB.Exec(ctx, `
		INSERT INTO timesheet_days (company_id, employee_id, work_date, day_code, hours, overtime_hours)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, companyID, employeeID, date, code, decimal.NewFromInt(hours), decimal.NewFromInt(overtime))
	require.NoError(t, err)
}

func testRecord(companyID, employeeID string, gross, net int64) payroll.PayrollRecord {
	g := decimal.NewFromInt(gross)
	n := decimal.NewFromInt(net)
	return payroll.PayrollRecord{
		CompanyID:    companyID,
		EmployeeID:   employeeID,
		Period:       payroll.Period{Year: 2024, Month: 9},
		HoursWorked:  decimal.NewFromInt(168),
		Earnings:     payroll.Earnings{BasePay: g, GrossPay: g},
		Deductions:   payroll.Deductions{PersonalIncomeTax: g.Sub(n), TotalDeductions: g.Sub(n)},
		Summary:      payroll.PaySummary{NetPay: n, EmployerCost: g},
		Basis:        payroll.CalculationBasis{StandardMonthlyHours: 168, HourlyRate: decimal.RequireFromString("47.62")},
		Status:       payroll.PayrollStatusCalculated,
		Warnings:     []string{payroll.WarningPremiumHoursUnpaid},
		CalculatedAt: time.Now(),
	}
}

func TestPayrollRepository_UpsertPreservesIdentityAndStatus(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)

	companyID := uuid.NewString()
	salary := int64(8000)
	employeeID := createTestEmployee(t, ctx, setup, companyID, "E-001", "active", &salary)

	first, err := repo.Upsert(ctx, testRecord(companyID, employeeID, 8000, 6944), false)
	require.NoError(t, err)
	assert.True(t, validator.IsValidUUID(first.ID))
	assert.Equal(t, []string{payroll.WarningPremiumHoursUnpaid}, first.Warnings)

	n, err := repo.UpdateStatus(ctx, companyID, []string{first.ID}, payroll.PayrollStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Upsert(ctx, testRecord(companyID, employeeID, 4000, 3734), false)
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordLocked))

	second, err := repo.Upsert(ctx, testRecord(companyID, employeeID, 4000, 3734), true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.Equal(t, payroll.PayrollStatusApproved, second.Status)
	assert.True(t, decimal.NewFromInt(3734).Equal(second.Summary.NetPay))

	_, err = repo.Insert(ctx, testRecord(companyID, employeeID, 1, 1))
	assert.True(t, errors.Is(err, payroll.ErrDuplicatePayrollRecord))

	found, err := repo.FindByEmployeePeriod(ctx, companyID, employeeID, "2024-09")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = repo.GetByID(ctx, first.ID, uuid.NewString())
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordNotFound))

	_, err = repo.GetByID(ctx, "not-a-uuid", companyID)
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordNotFound))

	// only application-issued v7 ids are looked up
	_, err = repo.GetByID(ctx, "123e4567-e89b-42d3-a456-426614174000", companyID)
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordNotFound))
}

func TestPayrollRepository_AggregateByPeriod(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)

	companyID := uuid.NewString()
	salary := int64(8000)
	e1 := createTestEmployee(t, ctx, setup, companyID, "E-001", "active", &salary)
	e2 := createTestEmployee(t, ctx, setup, companyID, "E-002", "active", &salary)

	calculated, err := repo.Upsert(ctx, testRecord(companyID, e1, 8000, 6944), false)
	require.NoError(t, err)
	rec, err := repo.Upsert(ctx, testRecord(companyID, e2, 4000, 3734), false)
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, companyID, []string{rec.ID}, payroll.PayrollStatusPaid)
	require.NoError(t, err)

	agg, err := repo.AggregateByPeriod(ctx, companyID, "2024-09")
	require.NoError(t, err)
	assert.Equal(t, 2, agg.RecordCount)
	assert.Equal(t, 1, agg.CalculatedCount)
	assert.Equal(t, 1, agg.PaidCount)
	assert.True(t, decimal.NewFromInt(12000).Equal(agg.TotalGross))
	assert.True(t, decimal.NewFromInt(10678).Equal(agg.TotalNet))
	assert.True(t, agg.TotalGross.Equal(agg.TotalNet.Add(agg.TotalDeductions)))

	records, err := repo.ListByPeriod(ctx, companyID, "2024-09")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, repo.Delete(ctx, calculated.ID, companyID))
	err = repo.Delete(ctx, calculated.ID, companyID)
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordNotFound))
}

func TestPayrollRepository_PaidRecordGuards(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)
	transactor := postgresql.NewTransactor(setup.DB)

	companyID := uuid.NewString()
	salary := int64(8000)
	e1 := createTestEmployee(t, ctx, setup, companyID, "E-001", "active", &salary)
	e2 := createTestEmployee(t, ctx, setup, companyID, "E-002", "active", &salary)

	paid, err := repo.Upsert(ctx, testRecord(companyID, e1, 8000, 6944), false)
	require.NoError(t, err)
	pending, err := repo.Upsert(ctx, testRecord(companyID, e2, 4000, 3734), false)
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, companyID, []string{paid.ID}, payroll.PayrollStatusPaid)
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, testRecord(companyID, e1, 16000, 13000), false)
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordLocked))

	err = transactor.WithinTx(ctx, func(txCtx context.Context) error {
		_, err := repo.UpdateStatus(txCtx, companyID, []string{pending.ID, paid.ID}, payroll.PayrollStatusApproved)
		return err
	})
	assert.True(t, errors.Is(err, payroll.ErrPayrollRecordLocked))

	found, err := repo.GetByID(ctx, paid.ID, companyID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusPaid, found.Status)
	assert.True(t, decimal.NewFromInt(8000).Equal(found.Earnings.GrossPay))
	found, err = repo.GetByID(ctx, pending.ID, companyID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusCalculated, found.Status)

	err = repo.Delete(ctx, paid.ID, companyID)
	assert.True(t, errors.Is(err, payroll.ErrCannotDeletePaidRecord))
}

func TestEmployeeAndTimesheetRepositories(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	employees := postgresql.NewEmployeeRepository(setup.DB)
	timesheets := postgresql.NewTimesheetRepository(setup.DB)

	companyID := uuid.NewString()
	salary := int64(8000)
	active := createTestEmployee(t, ctx, setup, companyID, "E-001", "active", &salary)
	resigned := createTestEmployee(t, ctx, setup, companyID, "E-002", "resigned", &salary)
	unpaid := createTestEmployee(t, ctx, setup, companyID, "E-003", "active", nil)

	list, err := employees.ListForPayroll(ctx, companyID, employee.Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = employees.ListForPayroll(ctx, companyID, employee.Filter{IncludeInactive: true, EmployeeIDs: []string{resigned}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, resigned, list[0].ID)

	emp, err := employees.GetByID(ctx, unpaid, companyID)
	require.NoError(t, err)
	assert.False(t, emp.HasCompensation())

	_, err = employees.GetByID(ctx, unpaid, uuid.NewString())
	assert.True(t, errors.Is(err, employee.ErrEmployeeNotFound))

	addTimesheetDay(t, ctx, setup, companyID, active, "2024-09-02", "work", 8, 0)
	addTimesheetDay(t, ctx, setup, companyID, active, "2024-09-03", "overtime", 10, 2)
	addTimesheetDay(t, ctx, setup, companyID, active, "2024-09-04", "holiday", 4, 0)
	addTimesheetDay(t, ctx, setup, companyID, active, "2024-10-01", "work", 8, 0)

	hours, err := timesheets.GetMonthlyHours(ctx, companyID, 2024, 9, []string{active, unpaid})
	require.NoError(t, err)
	require.Contains(t, hours, active)
	assert.NotContains(t, hours, unpaid)
	assert.True(t, decimal.NewFromInt(22).Equal(hours[active].TotalHours))
	assert.True(t, decimal.NewFromInt(2).Equal(hours[active].OvertimeHours))
	assert.True(t, decimal.NewFromInt(4).Equal(hours[active].HolidayHours))
	assert.Equal(t, 1, hours[active].DaysByCode["work"])
}

func TestTaxPolicyRepository(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewTaxPolicyRepository(setup.DB)

	companyID := uuid.NewString()
	_, err := repo.Get(ctx, companyID)
	assert.True(t, errors.Is(err, payroll.ErrTaxPolicyNotFound))

	policy := payroll.DefaultTaxPolicy()
	policy.CompanyID = companyID
	saved, err := repo.Upsert(ctx, policy)
	require.NoError(t, err)
	assert.True(t, policy.PersonalIncomeTaxRate.Equal(saved.PersonalIncomeTaxRate))

	policy.MilitaryTaxRate = decimal.RequireFromString("0.02")
	updated, err := repo.Upsert(ctx, policy)
	require.NoError(t, err)
	assert.True(t, saved.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, decimal.RequireFromString("0.02").Equal(updated.MilitaryTaxRate))

	ids, err := repo.ListCompanyIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, companyID)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewTaxPolicyRepository(setup.DB)
	tx := postgresql.NewTransactor(setup.DB)

	companyID := uuid.NewString()
	policy := payroll.DefaultTaxPolicy()
	policy.CompanyID = companyID

	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(txCtx context.Context) error {
		if _, err := repo.Upsert(txCtx, policy); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	_, err = repo.Get(ctx, companyID)
	assert.True(t, errors.Is(err, payroll.ErrTaxPolicyNotFound))
}
