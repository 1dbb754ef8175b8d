package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type recordKey struct {
	companyID  string
	employeeID string
	periodKey  string
}

type payrollRepository struct {
	mu      sync.RWMutex
	records map[recordKey]payroll.PayrollRecord
	byID    map[string]recordKey
	now     func() time.Time
}

// PayrollRepository is the in-process payroll store. Insert is exposed for seeding.
type PayrollRepository interface {
	payroll.PayrollRepository
	Insert(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error)
}

func NewPayrollRepository() PayrollRepository {
	return &payrollRepository{
		records: make(map[recordKey]payroll.PayrollRecord),
		byID:    make(map[string]recordKey),
		now:     time.Now,
	}
}

func keyOf(r payroll.PayrollRecord) recordKey {
	return recordKey{companyID: r.CompanyID, employeeID: r.EmployeeID, periodKey: r.PeriodKey()}
}

// Insert stores a brand-new record and fails with ErrDuplicatePayrollRecord if the natural key is taken.
func (r *payrollRepository) Insert(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insertLocked(record)
}

func (r *payrollRepository) insertLocked(record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	key := keyOf(record)
	if _, exists := r.records[key]; exists {
		return payroll.PayrollRecord{}, fmt.Errorf("%w: employee %s period %s", payroll.ErrDuplicatePayrollRecord, record.EmployeeID, key.periodKey)
	}

	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return payroll.PayrollRecord{}, fmt.Errorf("failed to generate payroll record id: %w", err)
		}
		record.ID = id.String()
	}
	now := r.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = payroll.PayrollStatusCalculated
	}

	record = clone(record)
	r.records[key] = record
	r.byID[record.ID] = key
	return clone(record), nil
}

func (r *payrollRepository) Upsert(ctx context.Context, record payroll.PayrollRecord, overrideLocked bool) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyOf(record)
	existing, ok := r.records[key]
	if !ok {
		record.ID = ""
		record.CreatedAt = time.Time{}
		record.Status = payroll.PayrollStatusCalculated
		return r.insertLocked(record)
	}
	if existing.Status.Locked() && !overrideLocked {
		return payroll.PayrollRecord{}, fmt.Errorf("%w: record %s is %s", payroll.ErrPayrollRecordLocked, existing.ID, existing.Status)
	}

	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	record.Status = existing.Status
	record.UpdatedAt = r.now()

	record = clone(record)
	r.records[key] = record
	return clone(record), nil
}

func (r *payrollRepository) GetByID(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.byID[id]
	if !ok || key.companyID != companyID {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return clone(r.records[key]), nil
}

func (r *payrollRepository) FindByEmployeePeriod(ctx context.Context, companyID, employeeID, periodKey string) (payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[recordKey{companyID: companyID, employeeID: employeeID, periodKey: periodKey}]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return clone(rec), nil
}

func (r *payrollRepository) ListByPeriod(ctx context.Context, companyID, periodKey string) ([]payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []payroll.PayrollRecord
	for key, rec := range r.records {
		if key.companyID == companyID && key.periodKey == periodKey {
			result = append(result, clone(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeID < result[j].EmployeeID })
	return result, nil
}

func (r *payrollRepository) AggregateByPeriod(ctx context.Context, companyID, periodKey string) (payroll.PeriodAggregate, error) {
	records, err := r.ListByPeriod(ctx, companyID, periodKey)
	if err != nil {
		return payroll.PeriodAggregate{}, err
	}
	return Aggregate(periodKey, records), nil
}

// Aggregate sums a period's records field by field.
func Aggregate(periodKey string, records []payroll.PayrollRecord) payroll.PeriodAggregate {
	agg := payroll.PeriodAggregate{
		PeriodKey:            periodKey,
		TotalGross:           decimal.Zero,
		TotalDeductions:      decimal.Zero,
		TotalNet:             decimal.Zero,
		TotalEmployerPension: decimal.Zero,
		TotalEmployerCost:    decimal.Zero,
	}
	for _, rec := range records {
		agg.RecordCount++
		agg.TotalGross = agg.TotalGross.Add(rec.Earnings.GrossPay)
		agg.TotalDeductions = agg.TotalDeductions.Add(rec.Deductions.TotalDeductions)
		agg.TotalNet = agg.TotalNet.Add(rec.Summary.NetPay)
		agg.TotalEmployerPension = agg.TotalEmployerPension.Add(rec.Summary.EmployerPensionContribution)
		agg.TotalEmployerCost = agg.TotalEmployerCost.Add(rec.Summary.EmployerCost)
		agg.DeductionsByKind.EmployeePensionContribution = agg.DeductionsByKind.EmployeePensionContribution.Add(rec.Deductions.EmployeePensionContribution)
		agg.DeductionsByKind.PersonalIncomeTax = agg.DeductionsByKind.PersonalIncomeTax.Add(rec.Deductions.PersonalIncomeTax)
		agg.DeductionsByKind.MilitaryTax = agg.DeductionsByKind.MilitaryTax.Add(rec.Deductions.MilitaryTax)

		switch rec.Status {
		case payroll.PayrollStatusCalculated:
			agg.CalculatedCount++
		case payroll.PayrollStatusApproved:
			agg.ApprovedCount++
		case payroll.PayrollStatusPaid:
			agg.PaidCount++
		}
	}
	return agg
}

func (r *payrollRepository) UpdateStatus(ctx context.Context, companyID string, ids []string, status payroll.PayrollStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]recordKey, 0, len(ids))
	for _, id := range ids {
		key, ok := r.byID[id]
		if !ok || key.companyID != companyID {
			continue
		}
		if r.records[key].Status == payroll.PayrollStatusPaid && status != payroll.PayrollStatusPaid {
			return 0, fmt.Errorf("%w: record %s", payroll.ErrPayrollRecordLocked, id)
		}
		keys = append(keys, key)
	}

	var updated int64
	now := r.now()
	for _, key := range keys {
		rec := r.records[key]
		rec.Status = status
		rec.UpdatedAt = now
		r.records[key] = rec
		updated++
	}
	return updated, nil
}

func (r *payrollRepository) Delete(ctx context.Context, id string, companyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byID[id]
	if !ok || key.companyID != companyID {
		return payroll.ErrPayrollRecordNotFound
	}
	if r.records[key].Status == payroll.PayrollStatusPaid {
		return payroll.ErrCannotDeletePaidRecord
	}
	delete(r.records, key)
	delete(r.byID, id)
	return nil
}

func clone(r payroll.PayrollRecord) payroll.PayrollRecord {
	if r.Warnings != nil {
		r.Warnings = append([]string(nil), r.Warnings...)
	}
	return r
}
