// Package retry reschedules failed events by republishing them to the
// events topic with an incremented retry counter. The broker carries the
// at-least-once guarantee; this package only decides when a copy goes back
// on the wire and when to give up.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/gitcontest/xbridge/internal/bus"
	"github.com/gitcontest/xbridge/internal/config"
	"github.com/gitcontest/xbridge/internal/errors"
)

// Notifier is the slice of the notification service the retry path needs.
type Notifier interface {
	ExhaustedRetries(ctx context.Context, recipients []string, eventKind, identity string, retryCount int) error
}

// Service republishes rescheduleable events after a delay.
type Service struct {
	publisher  bus.Publisher
	topic      string
	cfg        config.RetryConfig
	notifier   Notifier
	recipients []string
	log        zerolog.Logger

	// afterFunc schedules the delayed republish; tests replace it to run
	// synchronously.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewService creates a retry service publishing to topic.
func NewService(publisher bus.Publisher, topic string, cfg config.RetryConfig,
	notifier Notifier, recipients []string, log zerolog.Logger) *Service {
	return &Service{
		publisher:  publisher,
		topic:      topic,
		cfg:        cfg,
		notifier:   notifier,
		recipients: recipients,
		log:        log.With().Str("component", "retry").Logger(),
		afterFunc:  time.AfterFunc,
	}
}

// Reschedule republishes a copy of the event after the backoff delay for
// its attempt number. At the ceiling the event is dropped and operators are
// notified instead. The inlined project is always stripped so handlers
// re-resolve it from the store on replay.
func (s *Service) Reschedule(ctx context.Context, ev *bus.Event) error {
	identity := eventIdentity(ev)

	if ev.RetryCount >= s.cfg.MaxCount {
		s.log.Warn().Str("event", ev.Event).Str("identity", identity).
			Int("retries", ev.RetryCount).Msg("retry ceiling reached, dropping event")
		if s.notifier == nil {
			return nil
		}
		if err := s.notifier.ExhaustedRetries(ctx, s.recipients, ev.Event, identity, ev.RetryCount); err != nil {
			s.log.Error().Err(err).Msg("exhausted-retries notification failed")
		}
		return nil
	}

	copied := *ev
	copied.RetryCount++
	copied.Project = nil

	env, err := bus.NewEnvelope(s.topic, &copied)
	if err != nil {
		return err
	}

	delay := s.Delay(copied.RetryCount)
	s.log.Info().Str("event", ev.Event).Str("identity", identity).
		Int("attempt", copied.RetryCount).Dur("delay", delay).Msg("rescheduling event")

	// The delivery has already been acked; the republish must not be tied
	// to the consumer's per-message context.
	pubCtx := context.WithoutCancel(ctx)
	s.afterFunc(delay, func() {
		publishCtx, cancel := context.WithTimeout(pubCtx, 30*time.Second)
		defer cancel()
		if err := s.publisher.Publish(publishCtx, s.topic, env); err != nil {
			s.log.Error().Err(err).Str("event", copied.Event).Msg("retry republish failed")
		}
	})
	return nil
}

// Delay returns the wait before the given attempt (1-based), derived from
// an exponential backoff seeded with the configured base interval.
func (s *Service) Delay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(s.cfg.IntervalSeconds) * time.Second
	b.RandomizationFactor = 0
	b.MaxInterval = b.InitialInterval * 8
	b.MaxElapsedTime = 0

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	if d == backoff.Stop {
		d = b.MaxInterval
	}
	return d
}

// RescheduleIfWorthIt reschedules only errors worth replaying; everything
// else is returned to the caller as terminal.
func (s *Service) RescheduleIfWorthIt(ctx context.Context, ev *bus.Event, err error) error {
	if err == nil {
		return nil
	}
	if !errors.IsRescheduleable(err) {
		return err
	}
	s.log.Warn().Err(err).Str("event", ev.Event).Msg("handler failed, rescheduling")
	return s.Reschedule(ctx, ev)
}

func eventIdentity(ev *bus.Event) string {
	if ev.Data.Repository != nil && ev.Data.Issue != nil {
		return fmt.Sprintf("%s %s#%d", ev.Provider, ev.Data.Repository.FullName, ev.Data.Issue.Number)
	}
	if ev.Data.Payment != nil {
		return fmt.Sprintf("payment %s", ev.Data.Payment.ID)
	}
	if ev.Data.Copilot != nil {
		return fmt.Sprintf("copilot %s", ev.Data.Copilot.Handle)
	}
	return "unknown"
}
