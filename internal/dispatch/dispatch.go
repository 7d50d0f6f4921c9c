// Package dispatch routes decoded bus events onto the issue and payment
// handlers. Unknown event kinds are dropped, never failed; handler errors
// worth replaying go through the retry service.
package dispatch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gitcontest/xbridge/internal/bus"
	"github.com/gitcontest/xbridge/internal/errors"
)

// IssueHandlers is the issue-side surface the dispatcher routes to.
type IssueHandlers interface {
	HandleCreate(ctx context.Context, ev *bus.Event) error
	HandleUpdate(ctx context.Context, ev *bus.Event) error
	HandleClose(ctx context.Context, ev *bus.Event) error
	HandleAssign(ctx context.Context, ev *bus.Event) error
	HandleUnassign(ctx context.Context, ev *bus.Event) error
	HandleLabelUpdated(ctx context.Context, ev *bus.Event) error
	HandleRecreate(ctx context.Context, ev *bus.Event) error
	HandleComment(ctx context.Context, ev *bus.Event) error
}

// PaymentHandlers is the payment-side surface the dispatcher routes to.
type PaymentHandlers interface {
	HandleAdd(ctx context.Context, ev *bus.Event) error
	HandleUpdate(ctx context.Context, ev *bus.Event) error
	HandleDelete(ctx context.Context, ev *bus.Event) error
	HandleCheckUpdates(ctx context.Context, ev *bus.Event) error
}

// Rescheduler republishes an event for a later attempt.
type Rescheduler interface {
	Reschedule(ctx context.Context, ev *bus.Event) error
}

// Dispatcher demultiplexes envelopes onto the state machines.
type Dispatcher struct {
	issues   IssueHandlers
	payments PaymentHandlers
	retry    Rescheduler
	log      zerolog.Logger
}

// New creates a dispatcher.
func New(issues IssueHandlers, payments PaymentHandlers, retry Rescheduler, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		issues:   issues,
		payments: payments,
		retry:    retry,
		log:      log.With().Str("component", "dispatch").Logger(),
	}
}

// Handle processes one envelope. Malformed payloads and unknown kinds are
// logged and dropped; rescheduleable handler failures are republished via
// the retry service. Only fatal errors propagate to the consumer.
func (d *Dispatcher) Handle(ctx context.Context, env *bus.Envelope) error {
	ev, err := env.DecodeEvent()
	if err != nil {
		d.log.Warn().Err(err).Str("topic", env.Topic).Msg("dropping malformed event")
		return nil
	}

	err = d.route(ctx, ev)
	if err == nil {
		return nil
	}

	if errors.IsRescheduleable(err) {
		d.log.Warn().Err(err).Str("event", ev.Event).Msg("handler failed, rescheduling")
		return d.retry.Reschedule(ctx, ev)
	}
	if errors.Is(err, errors.KindFatal) {
		return err
	}
	d.log.Warn().Err(err).Str("event", ev.Event).Msg("handler failed terminally, dropping event")
	return nil
}

func (d *Dispatcher) route(ctx context.Context, ev *bus.Event) error {
	switch ev.Event {
	case bus.IssueCreated:
		return d.issues.HandleCreate(ctx, ev)
	case bus.IssueUpdated:
		return d.issues.HandleUpdate(ctx, ev)
	case bus.IssueClosed:
		return d.issues.HandleClose(ctx, ev)
	case bus.IssueAssigned:
		return d.issues.HandleAssign(ctx, ev)
	case bus.IssueUnassigned:
		return d.issues.HandleUnassign(ctx, ev)
	case bus.IssueLabelUpdated:
		return d.issues.HandleLabelUpdated(ctx, ev)
	case bus.IssueRecreated:
		return d.issues.HandleRecreate(ctx, ev)
	case bus.CommentCreated, bus.CommentUpdated:
		return d.issues.HandleComment(ctx, ev)
	case bus.CopilotPaymentAdd:
		return d.payments.HandleAdd(ctx, ev)
	case bus.CopilotPaymentUpdate:
		return d.payments.HandleUpdate(ctx, ev)
	case bus.CopilotPaymentDelete:
		return d.payments.HandleDelete(ctx, ev)
	case bus.CopilotPaymentCheckUpdates:
		return d.payments.HandleCheckUpdates(ctx, ev)
	default:
		d.log.Debug().Str("event", ev.Event).Msg("unknown event kind, dropping")
		return nil
	}
}
