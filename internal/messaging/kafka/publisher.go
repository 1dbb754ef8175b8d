package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	DefaultRunCompletedTopic = "payroll.run.completed"
	EventTypeRunCompleted    = "payroll.run.completed"
)

// RunCompletedEvent is the payload consumers receive after every batch run.
type RunCompletedEvent struct {
	EventType           string    `json:"eventType"`
	CompanyID           string    `json:"companyId"`
	PeriodKey           string    `json:"periodKey"`
	EmployeesConsidered int       `json:"employeesConsidered"`
	EmployeesCalculated int       `json:"employeesCalculated"`
	EmployeesSkipped    int       `json:"employeesSkipped"`
	EmployeesFailed     int       `json:"employeesFailed"`
	Cancelled           bool      `json:"cancelled"`
	StartedAt           time.Time `json:"startedAt"`
	FinishedAt          time.Time `json:"finishedAt"`
}

// MessageWriter is the subset of *kafkago.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type runEventPublisher struct {
	writer MessageWriter
	topic  string
}

func NewRunEventPublisher(writer MessageWriter, topic string) payroll.EventPublisher {
	if topic == "" {
		topic = DefaultRunCompletedTopic
	}
	return &runEventPublisher{writer: writer, topic: topic}
}

// NewWriter builds a writer for the given brokers. Topic is set per message.
func NewWriter(brokers []string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

func (p *runEventPublisher) PublishRunCompleted(ctx context.Context, summary payroll.RunSummary) error {
	event := RunCompletedEvent{
		EventType:           EventTypeRunCompleted,
		CompanyID:           summary.CompanyID,
		PeriodKey:           summary.PeriodKey,
		EmployeesConsidered: summary.EmployeesConsidered,
		EmployeesCalculated: summary.EmployeesCalculated,
		EmployeesSkipped:    summary.EmployeesSkipped,
		EmployeesFailed:     summary.EmployeesFailed,
		Cancelled:           summary.Cancelled,
		StartedAt:           summary.StartedAt,
		FinishedAt:          summary.FinishedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run completed event: %w", err)
	}

	msg := kafkago.Message{
		Topic: p.topic,
		Key:   []byte(summary.CompanyID + "|" + summary.PeriodKey),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventTypeRunCompleted)},
			{Key: "company_id", Value: []byte(summary.CompanyID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish run completed event: %w", err)
	}
	return nil
}

type noopPublisher struct{}

// NewNoopPublisher is used when no brokers are configured.
func NewNoopPublisher() payroll.EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishRunCompleted(context.Context, payroll.RunSummary) error {
	return nil
}
