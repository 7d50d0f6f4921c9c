package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitcontest/xbridge/internal/bus"
	"github.com/gitcontest/xbridge/internal/config"
	"github.com/gitcontest/xbridge/internal/db"
	"github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/guard"
	"github.com/gitcontest/xbridge/internal/models"
	"github.com/gitcontest/xbridge/internal/scm"
	"github.com/gitcontest/xbridge/internal/state"
	"github.com/gitcontest/xbridge/internal/topcoder"
)

// IssueService drives the ticket↔challenge lifecycle.
type IssueService struct {
	labels  config.LabelConfig
	issues  *db.IssueRepo
	pre     *Preprocessor
	contest ContestClient
	scm     scm.Registry
	users   UserDirectory
	guard   *guard.CreationGuard
	machine *state.Machine
	log     zerolog.Logger
}

// NewIssueService wires an issue service.
func NewIssueService(labels config.LabelConfig, issues *db.IssueRepo, pre *Preprocessor,
	contest ContestClient, clients scm.Registry, users UserDirectory,
	g *guard.CreationGuard, log zerolog.Logger) *IssueService {
	return &IssueService{
		labels:  labels,
		issues:  issues,
		pre:     pre,
		contest: contest,
		scm:     clients,
		users:   users,
		guard:   g,
		machine: state.NewMachine(),
		log:     log.With().Str("component", "issues").Logger(),
	}
}

// setStatus moves the stored record to a new status, enforcing the machine.
func (s *IssueService) setStatus(ctx context.Context, rec *models.Issue, to models.IssueStatus) error {
	if err := s.machine.CanTransition(rec.Status, to); err != nil {
		return err
	}
	rec.Status = to
	if err := s.issues.Update(ctx, rec); err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "persist status %s", to)
	}
	return nil
}

// ensureChallengeExists is the central subroutine: it returns the durable
// record for the ticket, optionally creating the challenge first. A pending
// record stalls the caller into a reschedule; a failed record is erased and
// treated as absent.
func (s *IssueService) ensureChallengeExists(ctx context.Context, ic *IssueContext, create bool) (*models.Issue, error) {
	rec, err := s.issues.GetByIdentity(ctx, ic.Event.Provider, ic.RepositoryID, ic.Number)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternalDependency, "look up issue record")
	}
	if rec != nil && state.BlocksCreation(rec.Status) {
		return nil, errors.InternalDependency("challenge creation pending for %s, reschedule", ic.Identity())
	}
	if rec != nil && state.Erasable(rec.Status) {
		if err := s.issues.Delete(ctx, rec.ID); err != nil {
			return nil, errors.Wrap(err, errors.KindInternalDependency, "erase failed record")
		}
		rec = nil
	}
	if rec == nil && create {
		if err := s.create(ctx, ic, false); err != nil {
			return nil, err
		}
		rec, err = s.issues.GetByIdentity(ctx, ic.Event.Provider, ic.RepositoryID, ic.Number)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindInternalDependency, "re-read issue record")
		}
	}
	return rec, nil
}

// create inserts the record and creates the remote challenge under the
// creation guard. The pending state never leaks: any failure after the
// insert deletes the record before the error propagates.
func (s *IssueService) create(ctx context.Context, ic *IssueContext, forceAssign bool) error {
	existing, err := s.issues.GetByIdentity(ctx, ic.Event.Provider, ic.RepositoryID, ic.Number)
	if err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "look up issue record")
	}
	if existing != nil {
		return errors.Validation("a challenge already exists for %s", ic.Identity())
	}
	if !ic.TCXReady {
		s.log.Debug().Str("issue", ic.Identity()).Msg("ticket has no tcx label, skipping creation")
		return nil
	}

	key := guard.Key(ic.Event.Provider, ic.RepositoryID, ic.Number)
	if err := s.guard.Acquire(key); err != nil {
		return err
	}
	defer s.guard.Release(key)

	rec := &models.Issue{
		Provider:     ic.Event.Provider,
		RepositoryID: ic.RepositoryID,
		Number:       ic.Number,
		Title:        ic.Title,
		Body:         ic.Body,
		Prizes:       ic.Prizes,
		Labels:       ic.Labels,
		Status:       models.StatusChallengeCreationPending,
	}
	if err := s.issues.Create(ctx, rec); err != nil {
		return err
	}

	challengeID, err := s.contest.CreateChallenge(ctx, topcoder.NewChallenge{
		Name:                 ic.Title,
		ProjectID:            ic.Project.TCDirectID,
		Description:          ic.Body,
		Prizes:               ic.Prizes,
		SubmissionGuidelines: fmt.Sprintf("%s/issues/%d", ic.RepoURL, ic.Number),
	})
	if err != nil {
		if delErr := s.issues.Delete(ctx, rec.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("issue", ic.Identity()).Msg("could not roll back pending record")
		}
		return err
	}

	rec.ChallengeID = challengeID
	if err := s.setStatus(ctx, rec, models.StatusChallengeCreationSuccessful); err != nil {
		if delErr := s.issues.Delete(ctx, rec.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("issue", ic.Identity()).Msg("could not roll back pending record")
		}
		return err
	}
	s.log.Info().Str("issue", ic.Identity()).Str("challenge", challengeID).Msg("challenge created")

	// The record is consistent from here on; comment failures are logged,
	// not retried, because a replay would reject the duplicate record.
	s.comment(ctx, ic, fmt.Sprintf("Contest %s has been created for this ticket.", s.contest.ChallengeURL(challengeID)))

	if (ic.Event.Provider == models.ProviderGitLab || forceAssign) && eventAssignee(ic.Event) != nil {
		return s.assign(ctx, ic, true)
	}
	return nil
}

// HandleCreate processes issue.created.
func (s *IssueService) HandleCreate(ctx context.Context, ev *bus.Event) error {
	ic, err := s.pre.Preprocess(ctx, ev)
	if ic == nil || err != nil {
		return err
	}
	return s.create(ctx, ic, false)
}

// HandleUpdate processes issue.updated.
func (s *IssueService) HandleUpdate(ctx context.Context, ev *bus.Event) error {
	ic, err := s.pre.Preprocess(ctx, ev)
	if ic == nil || err != nil {
		return err
	}
	rec, err := s.ensureChallengeExists(ctx, ic, true)
	if err != nil {
		return err
	}
	if rec == nil {
		if ic.TCXReady {
			return errors.InternalDependency("record still missing for %s, reschedule", ic.Identity())
		}
		return nil
	}
	if rec.SameContent(ic.Title, ic.Body, ic.Prizes) {
		return nil
	}

	if err := s.contest.UpdateChallenge(ctx, rec.ChallengeID, topcoder.ChallengeUpdate{
		Name:        ic.Title,
		Description: ic.Body,
		Prizes:      ic.Prizes,
	}); err != nil {
		return err
	}

	rec.Title = ic.Title
	rec.Body = ic.Body
	rec.Prizes = ic.Prizes
	rec.Labels = ic.Labels
	if err := s.issues.Update(ctx, rec); err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "persist updated issue")
	}
	s.log.Info().Str("issue", ic.Identity()).Msg("challenge updated")
	return nil
}

// HandleAssign processes issue.assigned.
func (s *IssueService) HandleAssign(ctx context.Context, ev *bus.Event) error {
	ic, err := s.pre.Preprocess(ctx, ev)
	if ic == nil || err != nil {
		return err
	}
	return s.assign(ctx, ic, false)
}

// eventAssignee returns the assignee the event concerns, preferring the
// dedicated field over the issue's assignee list.
func eventAssignee(ev *bus.Event) *bus.UserPayload {
	if ev.Data.Assignee != nil {
		return ev.Data.Assignee
	}
	if len(ev.Data.Issue.Assignees) > 0 {
		return &ev.Data.Issue.Assignees[0]
	}
	return nil
}

func (s *IssueService) assign(ctx context.Context, ic *IssueContext, force bool) error {
	assignee := eventAssignee(ic.Event)
	if assignee == nil {
		return nil
	}
	client, err := s.scm.For(ic.Event.Provider)
	if err != nil {
		return err
	}

	handle, err := s.users.HandleForSCMUser(ctx, ic.Event.Provider, assignee.ID)
	if errors.Is(err, errors.KindNotFound) {
		username, uerr := client.GetUsernameByID(ctx, assignee.ID)
		if uerr != nil {
			return uerr
		}
		s.comment(ctx, ic, fmt.Sprintf("@%s, to pick up tickets you must first sign up on the contest platform and register your account.", username))
		if uerr := client.Unassign(ctx, ic.RepoFullName, ic.Number, username); uerr != nil {
			return uerr
		}
		return nil
	}
	if err != nil {
		return err
	}

	rec, err := s.ensureChallengeExists(ctx, ic, true)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	if len(ic.Event.Data.Issue.Assignees) >= 2 {
		s.comment(ctx, ic, "Only a single assignee is supported per ticket.")
		return nil
	}
	if rec.Assignee == handle {
		return nil
	}
	if rec.Assignee != "" {
		// A differing stored assignee means an unassign event is on its
		// way; that handler re-dispatches the remaining assignee.
		return nil
	}

	if !hasLabel(ic.Labels, s.labels.OpenForPickup) && !force {
		return s.rejectAssignment(ctx, ic, client, rec, handle)
	}

	if err := s.contest.CreateResource(ctx, rec.ChallengeID, handle, topcoder.RoleSubmitter); err != nil {
		return err
	}
	now := time.Now()
	rec.Assignee = handle
	rec.AssignedAt = &now
	rec.Labels = swapLabel(ic.Labels, s.labels.OpenForPickup, s.labels.Assigned)
	if err := s.issues.Update(ctx, rec); err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "persist assignment")
	}
	if err := client.ReplaceLabels(ctx, ic.RepoFullName, ic.Number, rec.Labels); err != nil {
		return err
	}
	s.comment(ctx, ic, fmt.Sprintf("Contest %s has been assigned to %s.", s.contest.ChallengeURL(rec.ChallengeID), handle))
	s.log.Info().Str("issue", ic.Identity()).Str("handle", handle).Msg("ticket assigned")
	return nil
}

// rejectAssignment handles a pickup on a ticket that is not open for pickup.
// The ticket is always unassigned; the labels and comment depend on whether
// the record currently carries an assignee.
func (s *IssueService) rejectAssignment(ctx context.Context, ic *IssueContext, client scm.Client, rec *models.Issue, handle string) error {
	username, err := s.users.SCMUsernameForHandle(ctx, ic.Event.Provider, handle)
	if err != nil {
		return err
	}
	waitMsg := fmt.Sprintf("This ticket is not open for pickup yet. Wait for the %s label before assigning yourself.", s.labels.OpenForPickup)

	switch {
	case rec.Assignee == "":
		if err := client.AddLabels(ctx, ic.RepoFullName, ic.Number, []string{s.labels.NotReady}); err != nil {
			return err
		}
		s.comment(ctx, ic, waitMsg)
	case !hasLabel(ic.Labels, s.labels.NotReady):
		s.comment(ctx, ic, fmt.Sprintf("@%s was unassigned because the ticket is missing the %s label.", username, s.labels.OpenForPickup))
	default:
		s.comment(ctx, ic, waitMsg)
	}
	return client.Unassign(ctx, ic.RepoFullName, ic.Number, username)
}

// HandleUnassign processes issue.unassigned.
func (s *IssueService) HandleUnassign(ctx context.Context, ev *bus.Event) error {
	ic, err := s.pre.Preprocess(ctx, ev)
	if ic == nil || err != nil {
		return err
	}
	rec, err := s.ensureChallengeExists(ctx, ic, false)
	if err != nil || rec == nil {
		return err
	}
	client, err := s.scm.For(ic.Event.Provider)
	if err != nil {
		return err
	}

	if rec.Assignee != "" {
		if err := s.contest.DeleteResource(ctx, rec.ChallengeID, rec.Assignee, topcoder.RoleSubmitter); err != nil {
			return err
		}
		newLabels := swapLabel(ic.Labels, s.labels.Assigned, s.labels.OpenForPickup)
		if err := client.ReplaceLabels(ctx, ic.RepoFullName, ic.Number, newLabels); err != nil {
			return err
		}
		s.comment(ctx, ic, fmt.Sprintf("Contest %s has been unassigned from %s.", s.contest.ChallengeURL(rec.ChallengeID), rec.Assignee))
		rec.Labels = newLabels
	}

	rec.Assignee = ""
	rec.AssignedAt = nil
	if err := s.issues.Update(ctx, rec); err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "persist unassignment")
	}

	switch remaining := len(ic.Event.Data.Issue.Assignees); {
	case remaining == 1:
		// Re-dispatch the remaining assignee. The event's dedicated
		// assignee field still names the user who was just removed, and
		// the labels were swapped above, so both must be rewritten before
		// re-entering assign.
		ic.Event.Data.Assignee = &ic.Event.Data.Issue.Assignees[0]
		ic.Labels = rec.Labels
		return s.assign(ctx, ic, false)
	case remaining >= 2:
		s.comment(ctx, ic, "Only a single assignee is supported per ticket.")
	}
	return nil
}

// HandleClose processes issue.closed: the payment pipeline. Eligibility
// failures are silent acknowledgments, never errors. The PaymentSuccessful
// flag on the event is sticky: once the challenge is closed remotely, a
// replay re-enters only the label and bookkeeping step.
func (s *IssueService) HandleClose(ctx context.Context, ev *bus.Event) error {
	ic, err := s.pre.Preprocess(ctx, ev)
	if ic == nil || err != nil {
		return err
	}
	rec, err := s.ensureChallengeExists(ctx, ic, false)
	if err != nil {
		return err
	}
	if rec == nil {
		if ic.TCXReady {
			return errors.InternalDependency("no record for closed ticket %s, reschedule", ic.Identity())
		}
		return nil
	}
	if rec.Status == models.StatusChallengePaymentSuccessful {
		return nil
	}
	if ev.PaymentSuccessful {
		// The remote close already happened on a previous attempt; only the
		// label and bookkeeping step remains.
		return s.finishPayment(ctx, ic, rec)
	}
	if state.PaymentSettled(rec.Status) {
		return nil
	}

	if !hasLabel(ic.Labels, s.labels.FixAccepted) || hasLabel(ic.Labels, s.labels.Canceled) {
		s.comment(ctx, ic, fmt.Sprintf("This ticket was not processed for payment. If you would like to process it, reopen it, add the %s label and close it again.", s.labels.FixAccepted))
		return nil
	}
	if len(ic.Prizes) > 0 && ic.Prizes[0] == 0 {
		s.comment(ctx, ic, "This ticket carries no prize and was not processed for payment.")
		return nil
	}
	assignee := eventAssignee(ic.Event)
	if assignee == nil {
		return nil
	}
	if hasLabel(ic.Labels, s.labels.Paid) {
		return nil
	}

	ch, err := s.contest.GetChallenge(ctx, rec.ChallengeID)
	if err != nil {
		return err
	}
	if ch.Status == topcoder.StatusCompleted {
		return nil
	}

	if err := s.setStatus(ctx, rec, models.StatusChallengePaymentPending); err != nil {
		return err
	}
	if err := s.settlePayment(ctx, ic, rec, ch, assignee); err != nil {
		if ferr := s.setStatus(ctx, rec, models.StatusChallengePaymentFailed); ferr != nil {
			s.log.Error().Err(ferr).Str("issue", ic.Identity()).Msg("could not record payment failure")
		}
		return err
	}
	ev.PaymentSuccessful = true

	return s.finishPayment(ctx, ic, rec)
}

// settlePayment runs the remote side of the payment: billing, resources,
// activation and the winning close.
func (s *IssueService) settlePayment(ctx context.Context, ic *IssueContext, rec *models.Issue, ch *topcoder.Challenge, assignee *bus.UserPayload) error {
	client, err := s.scm.For(ic.Event.Provider)
	if err != nil {
		return err
	}

	winner, err := s.users.HandleForSCMUser(ctx, ic.Event.Provider, assignee.ID)
	if errors.Is(err, errors.KindNotFound) {
		username, uerr := client.GetUsernameByID(ctx, assignee.ID)
		if uerr == nil {
			if uerr := client.Unassign(ctx, ic.RepoFullName, ic.Number, username); uerr != nil {
				s.log.Error().Err(uerr).Str("issue", ic.Identity()).Msg("could not unassign unmapped winner")
			}
		}
		if rerr := client.Reopen(ctx, ic.RepoFullName, ic.Number); rerr != nil {
			s.log.Error().Err(rerr).Str("issue", ic.Identity()).Msg("could not reopen ticket")
		}
		return errors.NotFound("winner of %s has no contest mapping", ic.Identity())
	}
	if err != nil {
		return err
	}

	billing, err := s.contest.GetProjectBillingAccountID(ctx, ic.Project.TCDirectID)
	if err != nil {
		return err
	}
	if err := s.contest.UpdateChallenge(ctx, rec.ChallengeID, topcoder.ChallengeUpdate{
		BillingAccountID: &billing,
		Prizes:           ic.Prizes,
	}); err != nil {
		return err
	}

	resources, err := s.contest.GetResources(ctx, rec.ChallengeID)
	if err != nil {
		return err
	}
	copilotSet, submitterSet := false, false
	for _, r := range resources {
		if r.RoleID == topcoder.RoleCopilot {
			copilotSet = true
		}
		if r.RoleID == topcoder.RoleSubmitter && r.MemberHandle == winner {
			submitterSet = true
		}
	}

	copilot := ic.Project.Copilot
	wantsCopilot := ic.Event.CreateCopilotPayments || ic.Project.CreateCopilotPayments
	if copilot != "" && copilot != winner && wantsCopilot && !copilotSet {
		if err := s.contest.CreateResource(ctx, rec.ChallengeID, copilot, topcoder.RoleCopilot); err != nil {
			return err
		}
	}
	if !submitterSet {
		if err := s.contest.CreateResource(ctx, rec.ChallengeID, winner, topcoder.RoleSubmitter); err != nil {
			return err
		}
	}

	if ch.Status == topcoder.StatusDraft {
		if err := s.contest.ActivateChallenge(ctx, rec.ChallengeID); err != nil {
			return err
		}
	}

	memberID, err := s.contest.GetMemberID(ctx, winner)
	if err != nil {
		return err
	}
	if err := s.contest.CloseChallenge(ctx, rec.ChallengeID, memberID, winner); err != nil {
		return err
	}
	rec.Assignee = winner
	s.log.Info().Str("issue", ic.Identity()).Str("winner", winner).Msg("challenge closed with winner")
	return nil
}

// finishPayment records the settled payment and relabels the ticket.
func (s *IssueService) finishPayment(ctx context.Context, ic *IssueContext, rec *models.Issue) error {
	client, err := s.scm.For(ic.Event.Provider)
	if err != nil {
		return err
	}

	newLabels := stripPrefixed(ic.Labels, s.labels.Prefix)
	newLabels = append(newLabels, s.labels.FixAccepted, s.labels.Assigned, s.labels.Paid)
	if err := client.MarkPaid(ctx, ic.RepoFullName, ic.Number, s.contest.ChallengeURL(rec.ChallengeID), newLabels); err != nil {
		return err
	}

	rec.Labels = newLabels
	if err := s.setStatus(ctx, rec, models.StatusChallengePaymentSuccessful); err != nil {
		return err
	}
	s.log.Info().Str("issue", ic.Identity()).Msg("payment recorded")
	return nil
}

// HandleLabelUpdated processes issue.labelUpdated.
func (s *IssueService) HandleLabelUpdated(ctx context.Context, ev *bus.Event) error {
	ic, err := s.pre.Preprocess(ctx, ev)
	if ic == nil || err != nil {
		return err
	}
	rec, err := s.ensureChallengeExists(ctx, ic, true)
	if err != nil || rec == nil {
		return err
	}
	labels := ev.Data.Labels
	if labels == nil {
		labels = ic.Labels
	}
	rec.Labels = labels
	if err := s.issues.Update(ctx, rec); err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "persist labels")
	}
	return nil
}

// HandleRecreate processes issue.recreated: delete-then-recreate with a
// clean label slate.
func (s *IssueService) HandleRecreate(ctx context.Context, ev *bus.Event) error {
	ic, err := s.pre.Preprocess(ctx, ev)
	if ic == nil || err != nil {
		return err
	}
	client, err := s.scm.For(ic.Event.Provider)
	if err != nil {
		return err
	}

	rec, err := s.issues.GetByIdentity(ctx, ic.Event.Provider, ic.RepositoryID, ic.Number)
	if err != nil {
		return errors.Wrap(err, errors.KindInternalDependency, "look up issue record")
	}
	if rec != nil {
		if err := s.issues.Delete(ctx, rec.ID); err != nil {
			return errors.Wrap(err, errors.KindInternalDependency, "delete record for recreate")
		}
	}

	if assignee := eventAssignee(ev); assignee != nil {
		if username, uerr := client.GetUsernameByID(ctx, assignee.ID); uerr == nil {
			if uerr := client.Unassign(ctx, ic.RepoFullName, ic.Number, username); uerr != nil {
				return uerr
			}
		}
	}

	s.guard.Release(guard.Key(ic.Event.Provider, ic.RepositoryID, ic.Number))

	newLabels := append(stripPrefixed(ic.Labels, s.labels.Prefix), s.labels.OpenForPickup)
	if err := client.ReplaceLabels(ctx, ic.RepoFullName, ic.Number, newLabels); err != nil {
		return err
	}
	ic.Labels = newLabels
	ic.TCXReady = true

	return s.create(ctx, ic, true)
}

var (
	bidRe       = regexp.MustCompile(`^/bid\s+\$(\d+)\b`)
	acceptBidRe = regexp.MustCompile(`^/accept_bid\s+@([\w.-]+)\s+\$(\d+)\b`)
)

// HandleComment processes comment.created and comment.updated, reacting to
// the /bid and /accept_bid commands.
func (s *IssueService) HandleComment(ctx context.Context, ev *bus.Event) error {
	ic, err := s.pre.Preprocess(ctx, ev)
	if ic == nil || err != nil {
		return err
	}
	if ev.Data.Comment == nil {
		return nil
	}
	body := strings.TrimSpace(ev.Data.Comment.Body)

	if m := bidRe.FindStringSubmatch(body); m != nil {
		s.log.Info().Str("issue", ic.Identity()).Str("amount", m[1]).Msg("bid recorded")
		return nil
	}
	if strings.HasPrefix(body, "/accept_bid") {
		m := acceptBidRe.FindStringSubmatch(body)
		if m == nil {
			return errors.Validation("malformed /accept_bid command: %q", body)
		}
		client, err := s.scm.For(ic.Event.Provider)
		if err != nil {
			return err
		}
		newTitle := fmt.Sprintf("[$%s] %s", m[2], ic.Title)
		if err := client.UpdateTitle(ctx, ic.RepoFullName, ic.Number, newTitle); err != nil {
			return err
		}
		return client.Assign(ctx, ic.RepoFullName, ic.Number, m[1])
	}
	return nil
}

// comment posts a ticket comment, logging failures instead of surfacing
// them: a lost comment is not worth replaying an already-applied handler.
func (s *IssueService) comment(ctx context.Context, ic *IssueContext, body string) {
	client, err := s.scm.For(ic.Event.Provider)
	if err != nil {
		s.log.Error().Err(err).Str("issue", ic.Identity()).Msg("no client for comment")
		return
	}
	if err := client.CreateComment(ctx, ic.RepoFullName, ic.Number, body); err != nil {
		s.log.Error().Err(err).Str("issue", ic.Identity()).Msg("comment failed")
	}
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// swapLabel replaces from with to, deduplicating the result.
func swapLabel(labels []string, from, to string) []string {
	out := make([]string, 0, len(labels)+1)
	for _, l := range labels {
		if l != from && l != to {
			out = append(out, l)
		}
	}
	return append(out, to)
}

// stripPrefixed drops every label carrying the given prefix.
func stripPrefixed(labels []string, prefix string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if !strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}
