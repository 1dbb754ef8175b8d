package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
)

type countingPublisher struct {
	calls int
	err   error
}

func (p *countingPublisher) PublishRunCompleted(ctx context.Context, summary payroll.RunSummary) error {
	p.calls++
	return p.err
}

func TestFanout_AttemptsEveryPublisher(t *testing.T) {
	boom := errors.New("broker down")
	failing := &countingPublisher{err: boom}
	ok := &countingPublisher{}

	err := Fanout(failing, ok).PublishRunCompleted(context.Background(), payroll.RunSummary{CompanyID: "c1"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}

func TestFanout_Empty(t *testing.T) {
	assert.NoError(t, Fanout().PublishRunCompleted(context.Background(), payroll.RunSummary{}))
}
