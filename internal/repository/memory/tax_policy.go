package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
)

type taxPolicyRepository struct {
	mu       sync.RWMutex
	policies map[string]payroll.TaxPolicy
}

func NewTaxPolicyRepository() payroll.TaxPolicyRepository {
	return &taxPolicyRepository{policies: make(map[string]payroll.TaxPolicy)}
}

func (r *taxPolicyRepository) Get(ctx context.Context, companyID string) (payroll.TaxPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policy, ok := r.policies[companyID]
	if !ok {
		return payroll.TaxPolicy{}, payroll.ErrTaxPolicyNotFound
	}
	return policy, nil
}

func (r *taxPolicyRepository) Upsert(ctx context.Context, policy payroll.TaxPolicy) (payroll.TaxPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.policies[policy.CompanyID]; ok {
		policy.CreatedAt = existing.CreatedAt
	} else {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now
	r.policies[policy.CompanyID] = policy
	return policy, nil
}

func (r *taxPolicyRepository) ListCompanyIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
