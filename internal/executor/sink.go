package executor

import (
	"context"
	"errors"
	"time"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/domain/schema"
)

// ReportSink accepts outgoing messages for a session. A returned error affects
// only the message being sent.
type ReportSink interface {
	Send(ctx context.Context, msg schema.Outbound) error
}

// SinkFunc adapts a function to ReportSink.
type SinkFunc func(ctx context.Context, msg schema.Outbound) error

func (f SinkFunc) Send(ctx context.Context, msg schema.Outbound) error { return f(ctx, msg) }

// ValidatingSink runs schema validation before forwarding to the wrapped sink.
type ValidatingSink struct {
	next ReportSink
}

// NewValidatingSink wraps next.
func NewValidatingSink(next ReportSink) *ValidatingSink {
	return &ValidatingSink{next: next}
}

func (s *ValidatingSink) Send(ctx context.Context, msg schema.Outbound) error {
	if msg == nil {
		return errs.New("sink", errs.CodeValidation, errs.WithMessage("nil message"))
	}
	if err := msg.Validate(); err != nil {
		return errs.New("sink", errs.CodeValidation,
			errs.WithMessage("outgoing message failed validation"),
			errs.WithField("msgType", string(msg.MsgType())),
			errs.WithCause(err))
	}
	return s.next.Send(ctx, msg)
}

// TeeSink forwards to a primary sink and copies every delivered message to
// secondary sinks. Only the primary sink's error is returned; copy failures are
// joined and handed to onCopyError when set.
type TeeSink struct {
	primary     ReportSink
	copies      []ReportSink
	onCopyError func(schema.Outbound, error)
	copyTimeout time.Duration
}

// NewTeeSink builds a tee. onCopyError may be nil.
func NewTeeSink(primary ReportSink, onCopyError func(schema.Outbound, error), copies ...ReportSink) *TeeSink {
	return &TeeSink{primary: primary, copies: copies, onCopyError: onCopyError}
}

// WithCopyTimeout bounds each copy send. Zero leaves copies bounded only by
// the caller's context.
func (s *TeeSink) WithCopyTimeout(d time.Duration) *TeeSink {
	s.copyTimeout = d
	return s
}

func (s *TeeSink) Send(ctx context.Context, msg schema.Outbound) error {
	if err := s.primary.Send(ctx, msg); err != nil {
		return err
	}
	var copyErrs []error
	for _, c := range s.copies {
		if c == nil {
			continue
		}
		if err := s.sendCopy(ctx, c, msg); err != nil {
			copyErrs = append(copyErrs, err)
		}
	}
	if len(copyErrs) > 0 && s.onCopyError != nil {
		s.onCopyError(msg, errors.Join(copyErrs...))
	}
	return nil
}

func (s *TeeSink) sendCopy(ctx context.Context, c ReportSink, msg schema.Outbound) error {
	if s.copyTimeout <= 0 {
		return c.Send(ctx, msg)
	}
	copyCtx, cancel := context.WithTimeout(ctx, s.copyTimeout)
	defer cancel()
	return c.Send(copyCtx, msg)
}
