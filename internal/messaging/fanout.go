package messaging

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
)

type fanoutPublisher struct {
	publishers []payroll.EventPublisher
}

// Fanout delivers every event to each publisher in order. All publishers are attempted
// even if one fails; the returned error joins the failures.
func Fanout(publishers ...payroll.EventPublisher) payroll.EventPublisher {
	return &fanoutPublisher{publishers: publishers}
}

func (f *fanoutPublisher) PublishRunCompleted(ctx context.Context, summary payroll.RunSummary) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.PublishRunCompleted(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
