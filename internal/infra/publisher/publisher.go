// Package publisher copies every outgoing executor message to a Kafka topic.
package publisher

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/domain/schema"
	"github.com/coachpo/executor/internal/executor"
	"github.com/coachpo/executor/internal/infra/session"
)

const (
	component = "publisher"

	// HeaderMsgType carries the FIX message type of the payload.
	HeaderMsgType = "msgType"
)

// MessageWriter is the subset of *kafka.Writer the publisher relies on.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Options configures the Kafka writer.
type Options struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	// OnError receives batches the writer failed to deliver. It runs on the
	// writer's goroutine.
	OnError func(error)
}

// Publisher is a report sink writing JSON encoded messages keyed by ClOrdID.
// Send only enqueues; delivery failures surface through Options.OnError.
type Publisher struct {
	writer  MessageWriter
	topic   string
	onError func(error)
}

var _ executor.ReportSink = (*Publisher)(nil)

// New builds a publisher backed by an asynchronous kafka.Writer.
func New(opts Options) (*Publisher, error) {
	brokers := make([]string, 0, len(opts.Brokers))
	for _, b := range opts.Brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	topic := strings.TrimSpace(opts.Topic)
	if len(brokers) == 0 || topic == "" {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("brokers and topic required"))
	}
	batch := opts.BatchTimeout
	if batch <= 0 {
		batch = 10 * time.Millisecond
	}
	p := &Publisher{topic: topic, onError: opts.OnError}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		BatchTimeout: batch,
		Completion:   p.complete,
	}
	return p, nil
}

// NewWithWriter wraps an existing writer. topic is informational.
func NewWithWriter(writer MessageWriter, topic string) *Publisher {
	return &Publisher{writer: writer, topic: topic, onError: nil}
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// Send publishes msg. Messages for the same ClOrdID share a partition.
func (p *Publisher) Send(ctx context.Context, msg schema.Outbound) error {
	value, err := session.EncodeOutbound(msg)
	if err != nil {
		return err
	}
	record := kafka.Message{
		Key:   []byte(messageKey(msg)),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderMsgType, Value: []byte(msg.MsgType())},
		},
	}
	if err := p.writer.WriteMessages(ctx, record); err != nil {
		return errs.New(component, errs.CodeUnavailable,
			errs.WithMessage("publish failed"),
			errs.WithField("topic", p.topic),
			errs.WithCause(err))
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func (p *Publisher) complete(msgs []kafka.Message, err error) {
	if err == nil || p.onError == nil {
		return
	}
	p.onError(errs.New(component, errs.CodeUnavailable,
		errs.WithMessage("publish failed"),
		errs.WithField("topic", p.topic),
		errs.WithField("messages", strconv.Itoa(len(msgs))),
		errs.WithCause(err)))
}

func messageKey(msg schema.Outbound) string {
	switch typed := msg.(type) {
	case *schema.ExecutionReport:
		return typed.ClOrdID
	case *schema.CancelReject:
		return typed.ClOrdID
	default:
		return ""
	}
}
