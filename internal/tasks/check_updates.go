// Package tasks provides background task runners for xbridge.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitcontest/xbridge/internal/bus"
	"github.com/gitcontest/xbridge/internal/db"
)

// SweepResult represents the result of one payment sweep pass.
type SweepResult struct {
	Copilots  int      `json:"copilots"`
	Published int      `json:"published"`
	Errors    int      `json:"errors"`
	Handles   []string `json:"handles,omitempty"`
}

// PaymentSweeper periodically synthesizes copilotPayment.checkUpdates events
// for every copilot that still has open payment rows. The events flow through
// the regular bus topic so the payment handler processes them exactly like
// externally produced ones.
type PaymentSweeper struct {
	payments  *db.PaymentRepo
	publisher bus.Publisher
	topic     string
	log       zerolog.Logger
}

// NewPaymentSweeper creates a new PaymentSweeper publishing to topic.
func NewPaymentSweeper(payments *db.PaymentRepo, publisher bus.Publisher, topic string, log zerolog.Logger) *PaymentSweeper {
	return &PaymentSweeper{
		payments:  payments,
		publisher: publisher,
		topic:     topic,
		log:       log.With().Str("component", "sweep").Logger(),
	}
}

// SweepOnce publishes one checkUpdates event per copilot with open rows.
func (s *PaymentSweeper) SweepOnce(ctx context.Context) (*SweepResult, error) {
	handles, err := s.payments.ListOpenCopilots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open copilots: %w", err)
	}

	result := &SweepResult{
		Copilots: len(handles),
		Handles:  handles,
	}

	for _, handle := range handles {
		ev := &bus.Event{
			Event: bus.CopilotPaymentCheckUpdates,
			Data: bus.EventData{
				Copilot: &bus.CopilotPayload{Handle: handle},
			},
		}
		env, err := bus.NewEnvelope(s.topic, ev)
		if err != nil {
			result.Errors++
			s.log.Error().Err(err).Str("handle", handle).Msg("failed to encode sweep event")
			continue
		}
		if err := s.publisher.Publish(ctx, s.topic, env); err != nil {
			result.Errors++
			s.log.Error().Err(err).Str("handle", handle).Msg("failed to publish sweep event")
			continue
		}
		result.Published++
	}

	return result, nil
}

// RunDaemon runs the payment sweep in a loop until the context is canceled.
// The first pass runs immediately on start.
func (s *PaymentSweeper) RunDaemon(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sweepAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *PaymentSweeper) sweepAndLog(ctx context.Context) {
	result, err := s.SweepOnce(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("payment sweep failed")
		return
	}
	if result.Copilots > 0 {
		s.log.Info().
			Int("copilots", result.Copilots).
			Int("published", result.Published).
			Int("errors", result.Errors).
			Msg("payment sweep complete")
	}
}
