package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
)

// EmployeeRepository is a read model seeded through Put.
type EmployeeRepository struct {
	mu        sync.RWMutex
	employees map[string]employee.Employee
}

func NewEmployeeRepository(employees ...employee.Employee) *EmployeeRepository {
	r := &EmployeeRepository{employees: make(map[string]employee.Employee)}
	r.Put(employees...)
	return r
}

func (r *EmployeeRepository) Put(employees ...employee.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range employees {
		r.employees[e.ID] = e
	}
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.employees[id]
	if !ok || e.CompanyID != companyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r *EmployeeRepository) ListForPayroll(ctx context.Context, companyID string, filter employee.Filter) ([]employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []employee.Employee
	for _, e := range r.employees {
		if e.CompanyID == companyID && filter.Matches(e) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListCompanyIDs returns every company that has at least one employee.
func (r *EmployeeRepository) ListCompanyIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, e := range r.employees {
		if _, ok := seen[e.CompanyID]; ok {
			continue
		}
		seen[e.CompanyID] = struct{}{}
		ids = append(ids, e.CompanyID)
	}
	sort.Strings(ids)
	return ids, nil
}
