package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitcontest/xbridge/internal/bus"
	"github.com/gitcontest/xbridge/internal/common"
	"github.com/gitcontest/xbridge/internal/db"
	"github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/models"
	"github.com/gitcontest/xbridge/internal/topcoder"
)

// PaymentService drives the copilot-payment↔challenge lifecycle. Multiple
// open rows for one (project, copilot) coalesce into a single challenge
// whose prize is the running sum.
type PaymentService struct {
	payments *db.PaymentRepo
	projects *db.ProjectRepo
	contest  ContestClient
	log      zerolog.Logger

	// now is a clock hook so tests can pin the challenge name date.
	now func() time.Time
}

// NewPaymentService wires a payment service.
func NewPaymentService(payments *db.PaymentRepo, projects *db.ProjectRepo,
	contest ContestClient, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		payments: payments,
		projects: projects,
		contest:  contest,
		log:      log.With().Str("component", "payments").Logger(),
		now:      time.Now,
	}
}

// challengeName builds the copilot challenge title for today.
func (s *PaymentService) challengeName(project *models.Project) string {
	return fmt.Sprintf("Copilot payment for %s %s", project.Title, common.LongDate(s.now()))
}

// rowFromEvent upserts the payment row the event describes and returns it.
// The admin tool owns the rows upstream; the bridge mirrors them locally so
// coalescing queries have something to scan.
func (s *PaymentService) rowFromEvent(ctx context.Context, ev *bus.Event) (*models.CopilotPayment, error) {
	p := ev.Data.Payment
	if p == nil {
		return nil, errors.Validation("payment event %s missing payment", ev.Event)
	}
	username := p.Username
	if username == "" && ev.Data.Copilot != nil {
		username = ev.Data.Copilot.Handle
	}
	if username == "" {
		return nil, errors.Validation("payment %s has no copilot username", p.ID)
	}

	row, err := s.payments.GetByID(ctx, p.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternalDependency, "look up payment row")
	}
	if row == nil {
		row = &models.CopilotPayment{
			ID:            p.ID,
			ProjectID:     p.Project,
			Username:      username,
			Amount:        p.Amount,
			Description:   p.Description,
			ChallengeUUID: p.ChallengeUUID,
		}
		if err := s.payments.Create(ctx, row); err != nil {
			return nil, errors.Wrap(err, errors.KindInternalDependency, "mirror payment row")
		}
		return row, nil
	}

	row.ProjectID = p.Project
	row.Username = username
	row.Amount = p.Amount
	row.Description = p.Description
	if p.ChallengeUUID != "" {
		row.ChallengeUUID = p.ChallengeUUID
	}
	if err := s.payments.Update(ctx, row); err != nil {
		return nil, errors.Wrap(err, errors.KindInternalDependency, "update payment row")
	}
	return row, nil
}

// HandleAdd processes copilotPayment.add.
func (s *PaymentService) HandleAdd(ctx context.Context, ev *bus.Event) error {
	row, err := s.rowFromEvent(ctx, ev)
	if err != nil {
		return err
	}
	project, err := s.projects.GetByID(ctx, row.ProjectID)
	if err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "look up project")
	}
	if project == nil {
		return errors.NotFound("no project %s for payment %s", row.ProjectID, row.ID)
	}

	siblings, err := s.payments.ListOpenByProjectUser(ctx, row.ProjectID, row.Username)
	if err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "list sibling payments")
	}

	// An existing challenge for this (project, copilot) is adopted, never
	// duplicated.
	for _, sib := range siblings {
		if sib.ID != row.ID && sib.ChallengeUUID != "" {
			row.ChallengeUUID = sib.ChallengeUUID
			row.Status = models.PaymentStatusCreationSuccessful
			if err := s.payments.Update(ctx, row); err != nil {
				return errors.Wrap(err, errors.KindInternalDependency, "adopt challenge onto payment")
			}
			s.log.Info().Str("payment", row.ID).Str("challenge", sib.ChallengeUUID).Msg("payment adopted existing challenge")
			return s.reshapeChallenge(ctx, sib.ChallengeUUID)
		}
	}

	// A sibling still creating its challenge wins the race; this event
	// comes back later and adopts the result.
	for _, sib := range siblings {
		if sib.ID != row.ID && sib.Status == models.PaymentStatusCreationPending {
			return errors.InternalDependency("challenge creation pending for copilot %s, reschedule", row.Username)
		}
	}

	row.Status = models.PaymentStatusCreationPending
	if err := s.payments.Update(ctx, row); err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "mark payment pending")
	}

	challengeID, err := s.createPaymentChallenge(ctx, project, row)
	if err != nil {
		row.Status = models.PaymentStatusCreationRetried
		if uerr := s.payments.Update(ctx, row); uerr != nil {
			s.log.Error().Err(uerr).Str("payment", row.ID).Msg("could not record retried status")
		}
		return err
	}

	row.ChallengeUUID = challengeID
	row.Status = models.PaymentStatusCreationSuccessful
	if err := s.payments.Update(ctx, row); err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "record created challenge")
	}
	s.log.Info().Str("payment", row.ID).Str("challenge", challengeID).Msg("copilot challenge created")
	return nil
}

// createPaymentChallenge creates, staffs and activates the copilot challenge.
func (s *PaymentService) createPaymentChallenge(ctx context.Context, project *models.Project, row *models.CopilotPayment) (string, error) {
	challengeID, err := s.contest.CreateChallenge(ctx, topcoder.NewChallenge{
		Name:         s.challengeName(project),
		ProjectID:    project.TCDirectID,
		Description:  row.Description,
		Prizes:       []int{row.Amount},
		PrizeSetType: topcoder.PrizeSetCopilot,
	})
	if err != nil {
		return "", err
	}
	if err := s.contest.CreateResource(ctx, challengeID, row.Username, topcoder.RoleCopilot); err != nil {
		return "", err
	}
	if err := s.contest.ActivateChallenge(ctx, challengeID); err != nil {
		return "", err
	}
	return challengeID, nil
}

// reshapeChallenge re-renders the challenge from the full open row set.
// An emptied set cancels the challenge (a logged no-op remotely).
func (s *PaymentService) reshapeChallenge(ctx context.Context, challengeUUID string) error {
	rows, err := s.payments.ListOpenByChallenge(ctx, challengeUUID)
	if err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "list challenge payments")
	}
	if len(rows) == 0 {
		return s.contest.CancelChallenge(ctx, challengeUUID)
	}

	total := 0
	var descriptions []string
	for _, r := range rows {
		total += r.Amount
		if r.Description != "" {
			descriptions = append(descriptions, r.Description)
		}
	}
	return s.contest.UpdateChallenge(ctx, challengeUUID, topcoder.ChallengeUpdate{
		Description:  strings.Join(descriptions, "\n"),
		Prizes:       []int{total},
		PrizeSetType: topcoder.PrizeSetCopilot,
	})
}

// HandleUpdate processes copilotPayment.update.
func (s *PaymentService) HandleUpdate(ctx context.Context, ev *bus.Event) error {
	row, err := s.rowFromEvent(ctx, ev)
	if err != nil {
		return err
	}
	if row.ChallengeUUID == "" {
		// Still pending creation; the add path will pick up the new values.
		return nil
	}
	return s.reshapeChallenge(ctx, row.ChallengeUUID)
}

// HandleDelete processes copilotPayment.delete.
func (s *PaymentService) HandleDelete(ctx context.Context, ev *bus.Event) error {
	p := ev.Data.Payment
	if p == nil {
		return errors.Validation("payment event %s missing payment", ev.Event)
	}
	row, err := s.payments.GetByID(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "look up payment row")
	}
	if row == nil {
		return nil
	}
	if err := s.payments.Delete(ctx, row.ID); err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "delete payment row")
	}
	if row.ChallengeUUID == "" {
		return nil
	}
	return s.reshapeChallenge(ctx, row.ChallengeUUID)
}

// HandleCheckUpdates processes copilotPayment.checkUpdates: sweep every
// challenge backing the user's open rows and close the rows of challenges
// that completed.
func (s *PaymentService) HandleCheckUpdates(ctx context.Context, ev *bus.Event) error {
	if ev.Data.Copilot == nil || ev.Data.Copilot.Handle == "" {
		return errors.Validation("checkUpdates event missing copilot handle")
	}
	handle := ev.Data.Copilot.Handle

	projects, err := s.projects.ListByUser(ctx, handle)
	if err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "list projects for %s", handle)
	}

	seen := map[string]bool{}
	for _, project := range projects {
		rows, err := s.payments.ListOpenByProject(ctx, project.ID)
		if err != nil {
			return errors.Wrap(err, errors.KindInternalDependency, "list open payments")
		}
		for _, row := range rows {
			if row.ChallengeUUID == "" || seen[row.ChallengeUUID] {
				continue
			}
			seen[row.ChallengeUUID] = true

			ch, err := s.contest.GetChallenge(ctx, row.ChallengeUUID)
			if err != nil {
				return err
			}
			if ch.Status != topcoder.StatusCompleted {
				continue
			}
			n, err := s.payments.CloseByChallenge(ctx, row.ChallengeUUID)
			if err != nil {
				return errors.Wrap(err, errors.KindInternalDependency, "close payments")
			}
			s.log.Info().Str("challenge", row.ChallengeUUID).Int64("rows", n).Msg("completed challenge closed payment rows")
		}
	}
	return nil
}
