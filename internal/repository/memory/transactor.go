package memory

import "context"

// Transactor runs fn directly. Each memory repository call is already atomic.
type Transactor struct{}

func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
