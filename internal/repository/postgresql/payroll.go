package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type payrollRepository struct {
	db *database.DB
}

// PayrollRepository adds the strict insert used by imports and tests.
type PayrollRepository interface {
	payroll.PayrollRepository
	Insert(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error)
}

func NewPayrollRepository(db *database.DB) PayrollRepository {
	return &payrollRepository{db: db}
}

const payrollRecordColumns = `
	id, company_id, employee_id, period_year, period_month,
	hours_worked, overtime_hours, night_hours, evening_hours, holiday_hours,
	base_pay, bonuses, allowances, gross_pay,
	employee_pension_contribution, personal_income_tax, military_tax, total_deductions,
	net_pay, employer_pension_contribution, employer_cost,
	standard_monthly_hours, hourly_rate, taxable_income,
	status, warnings, calculated_at, created_at, updated_at
`

const payrollRecordInsert = `
	INSERT INTO payroll_records (
		company_id, employee_id, period_year, period_month, period_key,
		hours_worked, overtime_hours, night_hours, evening_hours, holiday_hours,
		base_pay, bonuses, allowances, gross_pay,
		employee_pension_contribution, personal_income_tax, military_tax, total_deductions,
		net_pay, employer_pension_contribution, employer_cost,
		standard_monthly_hours, hourly_rate, taxable_income,
		status, warnings, calculated_at, id
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28
	)
`

func scanPayrollRecord(row pgx.Row) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	var warningsBytes []byte
	err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.Period.Year, &rec.Period.Month,
		&rec.HoursWorked, &rec.HoursBreakdown.Overtime, &rec.HoursBreakdown.Night, &rec.HoursBreakdown.Evening, &rec.HoursBreakdown.Holiday,
		&rec.Earnings.BasePay, &rec.Earnings.Bonuses, &rec.Earnings.Allowances, &rec.Earnings.GrossPay,
		&rec.Deductions.EmployeePensionContribution, &rec.Deductions.PersonalIncomeTax, &rec.Deductions.MilitaryTax, &rec.Deductions.TotalDeductions,
		&rec.Summary.NetPay, &rec.Summary.EmployerPensionContribution, &rec.Summary.EmployerCost,
		&rec.Basis.StandardMonthlyHours, &rec.Basis.HourlyRate, &rec.Basis.TaxableIncome,
		&rec.Status, &warningsBytes, &rec.CalculatedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	if len(warningsBytes) > 0 {
		if err := json.Unmarshal(warningsBytes, &rec.Warnings); err != nil {
			return payroll.PayrollRecord{}, fmt.Errorf("failed to decode warnings: %w", err)
		}
	}

	return rec, nil
}

func payrollRecordArgs(record payroll.PayrollRecord) ([]interface{}, error) {
	warnings := record.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode warnings: %w", err)
	}

	status := record.Status
	if status == "" {
		status = payroll.PayrollStatusCalculated
	}

	// Ids are UUIDv7 so they sort by creation and pass validator.IsValidUUID.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payroll record id: %w", err)
	}

	return []interface{}{
		record.CompanyID, record.EmployeeID, record.Period.Year, record.Period.Month, record.PeriodKey(),
		record.HoursWorked, record.HoursBreakdown.Overtime, record.HoursBreakdown.Night, record.HoursBreakdown.Evening, record.HoursBreakdown.Holiday,
		record.Earnings.BasePay, record.Earnings.Bonuses, record.Earnings.Allowances, record.Earnings.GrossPay,
		record.Deductions.EmployeePensionContribution, record.Deductions.PersonalIncomeTax, record.Deductions.MilitaryTax, record.Deductions.TotalDeductions,
		record.Summary.NetPay, record.Summary.EmployerPensionContribution, record.Summary.EmployerCost,
		record.Basis.StandardMonthlyHours, record.Basis.HourlyRate, record.Basis.TaxableIncome,
		status, warningsJSON, record.CalculatedAt, id.String(),
	}, nil
}

// ========== PAYROLL RECORDS ==========

func (r *payrollRepository) Insert(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	args, err := payrollRecordArgs(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	query := payrollRecordInsert + " RETURNING " + payrollRecordColumns

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return payroll.PayrollRecord{}, payroll.ErrDuplicatePayrollRecord
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to create payroll record: %w", err)
	}

	return rec, nil
}

// Upsert writes the record keyed by (company, employee, period). An existing row keeps its id, created_at and status.
// The conflict update only fires for a calculated row unless overrideLocked is set, so the status check
// and the write happen in one statement.
func (r *payrollRepository) Upsert(ctx context.Context, record payroll.PayrollRecord, overrideLocked bool) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	args, err := payrollRecordArgs(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	args = append(args, overrideLocked)

	query := payrollRecordInsert + `
		ON CONFLICT (company_id, employee_id, period_key) DO UPDATE SET
			hours_worked = EXCLUDED.hours_worked,
			overtime_hours = EXCLUDED.overtime_hours,
			night_hours = EXCLUDED.night_hours,
			evening_hours = EXCLUDED.evening_hours,
			holiday_hours = EXCLUDED.holiday_hours,
			base_pay = EXCLUDED.base_pay,
			bonuses = EXCLUDED.bonuses,
			allowances = EXCLUDED.allowances,
			gross_pay = EXCLUDED.gross_pay,
			employee_pension_contribution = EXCLUDED.employee_pension_contribution,
			personal_income_tax = EXCLUDED.personal_income_tax,
			military_tax = EXCLUDED.military_tax,
			total_deductions = EXCLUDED.total_deductions,
			net_pay = EXCLUDED.net_pay,
			employer_pension_contribution = EXCLUDED.employer_pension_contribution,
			employer_cost = EXCLUDED.employer_cost,
			standard_monthly_hours = EXCLUDED.standard_monthly_hours,
			hourly_rate = EXCLUDED.hourly_rate,
			taxable_income = EXCLUDED.taxable_income,
			warnings = EXCLUDED.warnings,
			calculated_at = EXCLUDED.calculated_at,
			updated_at = NOW()
		WHERE $29::boolean OR payroll_records.status = 'calculated'
		RETURNING ` + payrollRecordColumns

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, args...))
	if err != nil {
		// DO UPDATE ... WHERE returns no row when the existing record is approved or paid
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, fmt.Errorf("%w: employee %s period %s", payroll.ErrPayrollRecordLocked, record.EmployeeID, record.PeriodKey())
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to upsert payroll record: %w", err)
	}

	return rec, nil
}

func (r *payrollRepository) GetByID(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	if !validator.IsValidUUID(id) {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}

	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + `
		FROM payroll_records
		WHERE id = $1 AND company_id = $2
	`

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}

	return rec, nil
}

func (r *payrollRepository) FindByEmployeePeriod(ctx context.Context, companyID, employeeID, periodKey string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + `
		FROM payroll_records
		WHERE company_id = $1 AND employee_id::text = $2 AND period_key = $3
	`

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, companyID, employeeID, periodKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}

	return rec, nil
}

func (r *payrollRepository) ListByPeriod(ctx context.Context, companyID, periodKey string) ([]payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + `
		FROM payroll_records
		WHERE company_id = $1 AND period_key = $2
		ORDER BY employee_id
	`

	rows, err := q.Query(ctx, query, companyID, periodKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll records: %w", err)
	}
	defer rows.Close()

	records := []payroll.PayrollRecord{}
	for rows.Next() {
		rec, err := scanPayrollRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payroll records: %w", err)
	}

	return records, nil
}

// UpdateStatus moves the given records to status. Leaving paid is refused for the whole batch;
// callers run it inside Transactor.WithinTx so the row locks last until commit.
func (r *payrollRepository) UpdateStatus(ctx context.Context, companyID string, ids []string, status payroll.PayrollStatus) (int64, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validator.IsValidUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	q := GetQuerier(ctx, r.db)

	if status != payroll.PayrollStatusPaid {
		lockQuery := `
			SELECT id::text FROM payroll_records
			WHERE company_id = $1 AND id = ANY($2::uuid[])
			ORDER BY id
			FOR UPDATE
		`
		if _, err := q.Exec(ctx, lockQuery, companyID, valid); err != nil {
			return 0, fmt.Errorf("failed to lock payroll records: %w", err)
		}

		var paidID string
		err := q.QueryRow(ctx, `
			SELECT id::text FROM payroll_records
			WHERE company_id = $1 AND id = ANY($2::uuid[]) AND status = 'paid'
			LIMIT 1
		`, companyID, valid).Scan(&paidID)
		if err == nil {
			return 0, fmt.Errorf("%w: record %s", payroll.ErrPayrollRecordLocked, paidID)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("failed to check payroll status: %w", err)
		}
	}

	// the status predicate keeps paid rows out even without a surrounding transaction
	query := `
		UPDATE payroll_records
		SET status = $1, updated_at = NOW()
		WHERE company_id = $2 AND id = ANY($3::uuid[])
			AND ($1 = 'paid' OR status <> 'paid')
	`

	tag, err := q.Exec(ctx, query, status, companyID, valid)
	if err != nil {
		return 0, fmt.Errorf("failed to update payroll status: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *payrollRepository) Delete(ctx context.Context, id string, companyID string) error {
	if !validator.IsValidUUID(id) {
		return payroll.ErrPayrollRecordNotFound
	}

	q := GetQuerier(ctx, r.db)

	query := `DELETE FROM payroll_records WHERE id = $1 AND company_id = $2 AND status <> 'paid' RETURNING id`

	var deletedID string
	err := q.QueryRow(ctx, query, id, companyID).Scan(&deletedID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to delete payroll record: %w", err)
	}

	// nothing deleted: the record is missing or paid
	var status payroll.PayrollStatus
	err = q.QueryRow(ctx, `SELECT status FROM payroll_records WHERE id = $1 AND company_id = $2`, id, companyID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.ErrPayrollRecordNotFound
		}
		return fmt.Errorf("failed to delete payroll record: %w", err)
	}
	return payroll.ErrCannotDeletePaidRecord
}

// ========== AGGREGATIONS ==========

func (r *payrollRepository) AggregateByPeriod(ctx context.Context, companyID, periodKey string) (payroll.PeriodAggregate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(gross_pay), 0),
			COALESCE(SUM(total_deductions), 0),
			COALESCE(SUM(net_pay), 0),
			COALESCE(SUM(employer_pension_contribution), 0),
			COALESCE(SUM(employer_cost), 0),
			COALESCE(SUM(employee_pension_contribution), 0),
			COALESCE(SUM(personal_income_tax), 0),
			COALESCE(SUM(military_tax), 0),
			COUNT(*) FILTER (WHERE status = 'calculated'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'paid')
		FROM payroll_records
		WHERE company_id = $1 AND period_key = $2
	`

	agg := payroll.PeriodAggregate{PeriodKey: periodKey}
	err := q.QueryRow(ctx, query, companyID, periodKey).Scan(
		&agg.RecordCount, &agg.TotalGross, &agg.TotalDeductions, &agg.TotalNet,
		&agg.TotalEmployerPension, &agg.TotalEmployerCost,
		&agg.DeductionsByKind.EmployeePensionContribution, &agg.DeductionsByKind.PersonalIncomeTax, &agg.DeductionsByKind.MilitaryTax,
		&agg.CalculatedCount, &agg.ApprovedCount, &agg.PaidCount,
	)
	if err != nil {
		return payroll.PeriodAggregate{}, fmt.Errorf("failed to aggregate payroll records: %w", err)
	}

	return agg, nil
}
