// Package notification publishes operator email notifications over the bus.
// The bridge never sends mail itself; it emits sendgrid-templated payloads
// that a downstream mailer consumes.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gitcontest/xbridge/internal/bus"
	"github.com/gitcontest/xbridge/internal/config"
	"github.com/gitcontest/xbridge/internal/errors"
)

// notificationType is the only kind the bridge emits today.
const notificationType = "email"

// payloadVersion is the mailer contract version.
const payloadVersion = 1

// emailData is the templated subject/body pair.
type emailData struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// recipient is one addressee; the mailer keys recipients by user id, and
// for operator mail the email address doubles as the id.
type recipient struct {
	UserID string `json:"userId"`
}

// emailDetails is one notification entry as the mailer expects it.
type emailDetails struct {
	From               string      `json:"from"`
	Recipients         []recipient `json:"recipients"`
	CC                 []string    `json:"cc,omitempty"`
	Data               emailData   `json:"data"`
	SendgridTemplateID string      `json:"sendgridTemplateId"`
	Version            int         `json:"version"`
}

type notificationEntry struct {
	ServiceID string       `json:"serviceId"`
	Type      string       `json:"type"`
	Details   emailDetails `json:"details"`
}

type notificationPayload struct {
	Notifications []notificationEntry `json:"notifications"`
}

// Service publishes notifications on the notifications topic.
type Service struct {
	publisher bus.Publisher
	topic     string
	cfg       config.NotificationConfig
	log       zerolog.Logger
}

// NewService creates a notification service.
func NewService(publisher bus.Publisher, topic string, cfg config.NotificationConfig, log zerolog.Logger) *Service {
	return &Service{
		publisher: publisher,
		topic:     topic,
		cfg:       cfg,
		log:       log.With().Str("component", "notification").Logger(),
	}
}

// SendEmail publishes one templated email to the given recipients.
func (s *Service) SendEmail(ctx context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		s.log.Warn().Str("subject", subject).Msg("notification dropped, no recipients configured")
		return nil
	}

	to := make([]recipient, len(recipients))
	for i, r := range recipients {
		to[i] = recipient{UserID: r}
	}
	payload := notificationPayload{
		Notifications: []notificationEntry{{
			ServiceID: s.cfg.ServiceID,
			Type:      notificationType,
			Details: emailDetails{
				From:               s.cfg.SenderEmail,
				Recipients:         to,
				Data:               emailData{Subject: subject, Body: body},
				SendgridTemplateID: s.cfg.SendgridTemplateID,
				Version:            payloadVersion,
			},
		}},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.KindFatal, "marshal notification payload")
	}
	env := bus.NewRawEnvelope(s.topic, string(raw))
	if err := s.publisher.Publish(ctx, s.topic, env); err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "publish notification")
	}
	s.log.Info().Str("subject", subject).Int("recipients", len(recipients)).Msg("notification published")
	return nil
}

// ExhaustedRetries notifies operators that an event was dropped after the
// retry ceiling. The event kind and a short identity string give them
// enough to replay by hand.
func (s *Service) ExhaustedRetries(ctx context.Context, recipients []string, eventKind, identity string, retryCount int) error {
	subject := fmt.Sprintf("xbridge: event %s dropped after %d retries", eventKind, retryCount)
	body := fmt.Sprintf(
		"The event %s for %s failed %d times and was dropped. Inspect the processor logs and replay it manually if needed.",
		eventKind, identity, retryCount)
	return s.SendEmail(ctx, recipients, subject, body)
}
