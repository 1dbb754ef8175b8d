package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type taxPolicyRepository struct {
	db *database.DB
}

func NewTaxPolicyRepository(db *database.DB) payroll.TaxPolicyRepository {
	return &taxPolicyRepository{db: db}
}

func (r *taxPolicyRepository) Get(ctx context.Context, companyID string) (payroll.TaxPolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT company_id, personal_income_tax_rate, military_tax_rate,
			   employer_pension_contribution_rate, employee_pension_contribution_rate,
			   minimum_wage, tax_free_minimum, created_at, updated_at
		FROM tax_policies
		WHERE company_id = $1
	`

	var p payroll.TaxPolicy
	err := q.QueryRow(ctx, query, companyID).Scan(
		&p.CompanyID, &p.PersonalIncomeTaxRate, &p.MilitaryTaxRate,
		&p.EmployerPensionContributionRate, &p.EmployeePensionContributionRate,
		&p.MinimumWage, &p.TaxFreeMinimum, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.TaxPolicy{}, payroll.ErrTaxPolicyNotFound
		}
		return payroll.TaxPolicy{}, fmt.Errorf("failed to get tax policy: %w", err)
	}

	return p, nil
}

func (r *taxPolicyRepository) Upsert(ctx context.Context, policy payroll.TaxPolicy) (payroll.TaxPolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO tax_policies (
			company_id, personal_income_tax_rate, military_tax_rate,
			employer_pension_contribution_rate, employee_pension_contribution_rate,
			minimum_wage, tax_free_minimum
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (company_id) DO UPDATE SET
			personal_income_tax_rate = EXCLUDED.personal_income_tax_rate,
			military_tax_rate = EXCLUDED.military_tax_rate,
			employer_pension_contribution_rate = EXCLUDED.employer_pension_contribution_rate,
			employee_pension_contribution_rate = EXCLUDED.employee_pension_contribution_rate,
			minimum_wage = EXCLUDED.minimum_wage,
			tax_free_minimum = EXCLUDED.tax_free_minimum,
			updated_at = NOW()
		RETURNING company_id, personal_income_tax_rate, military_tax_rate,
			employer_pension_contribution_rate, employee_pension_contribution_rate,
			minimum_wage, tax_free_minimum, created_at, updated_at
	`

	var p payroll.TaxPolicy
	err := q.QueryRow(ctx, query,
		policy.CompanyID, policy.PersonalIncomeTaxRate, policy.MilitaryTaxRate,
		policy.EmployerPensionContributionRate, policy.EmployeePensionContributionRate,
		policy.MinimumWage, policy.TaxFreeMinimum,
	).Scan(
		&p.CompanyID, &p.PersonalIncomeTaxRate, &p.MilitaryTaxRate,
		&p.EmployerPensionContributionRate, &p.EmployeePensionContributionRate,
		&p.MinimumWage, &p.TaxFreeMinimum, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return payroll.TaxPolicy{}, fmt.Errorf("failed to upsert tax policy: %w", err)
	}

	return p, nil
}

// ListCompanyIDs returns every company with a saved policy or at least one employee.
func (r *taxPolicyRepository) ListCompanyIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT company_id::text FROM tax_policies
		UNION
		SELECT DISTINCT company_id::text FROM employees WHERE deleted_at IS NULL
		ORDER BY 1
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
