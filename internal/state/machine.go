// Package state implements the issue status machine for xbridge.
//
// Handlers never assign an issue status directly; they ask the machine
// whether the move is legal first. Illegal moves are invariant violations,
// not retryable conditions.
package state

import (
	"github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/models"
)

// TransitionRule defines a valid status transition.
type TransitionRule struct {
	From        models.IssueStatus
	To          models.IssueStatus
	Description string
}

// validTransitions defines all valid issue status transitions. The empty
// From status stands for "no record yet".
var validTransitions = []TransitionRule{
	{
		From:        "",
		To:          models.StatusChallengeCreationPending,
		Description: "Record inserted under the creation guard",
	},
	{
		From:        models.StatusChallengeCreationPending,
		To:          models.StatusChallengeCreationSuccessful,
		Description: "Remote challenge created",
	},
	{
		From:        models.StatusChallengeCreationPending,
		To:          models.StatusChallengeCreationFailed,
		Description: "Remote challenge creation failed terminally",
	},
	{
		From:        models.StatusChallengeCreationSuccessful,
		To:          models.StatusChallengePaymentPending,
		Description: "Close accepted for payment processing",
	},
	{
		From:        models.StatusChallengePaymentPending,
		To:          models.StatusChallengePaymentSuccessful,
		Description: "Challenge closed with a winner",
	},
	{
		From:        models.StatusChallengePaymentPending,
		To:          models.StatusChallengePaymentFailed,
		Description: "Payment pipeline failed, awaiting retry",
	},
	{
		From:        models.StatusChallengePaymentFailed,
		To:          models.StatusChallengePaymentPending,
		Description: "Payment retried after a transient failure",
	},
	{
		From:        models.StatusChallengePaymentFailed,
		To:          models.StatusChallengePaymentSuccessful,
		Description: "Sticky payment success re-entering the label step",
	},
}

// transitionRuleMap provides fast lookup of transition rules.
var transitionRuleMap map[string]*TransitionRule

func init() {
	transitionRuleMap = make(map[string]*TransitionRule)
	for i := range validTransitions {
		rule := &validTransitions[i]
		transitionRuleMap[makeTransitionKey(rule.From, rule.To)] = rule
	}
}

func makeTransitionKey(from, to models.IssueStatus) string {
	return string(from) + "->" + string(to)
}

// Machine provides status machine operations for issues.
type Machine struct{}

// NewMachine creates a new state machine instance.
func NewMachine() *Machine {
	return &Machine{}
}

// GetTransitionRule returns the rule for a transition, or nil if invalid.
func (m *Machine) GetTransitionRule(from, to models.IssueStatus) *TransitionRule {
	return transitionRuleMap[makeTransitionKey(from, to)]
}

// CanTransition checks whether an issue may move to the given status.
// It returns nil if the transition is allowed, or a Fatal error explaining
// why not. from is the current stored status ("" for a new record).
func (m *Machine) CanTransition(from, to models.IssueStatus) error {
	if from == to {
		return errors.Fatal("issue is already in status %s", to)
	}
	if m.GetTransitionRule(from, to) == nil {
		return errors.Fatal("transition from %q to %q is not allowed", from, to)
	}
	return nil
}

// ValidTransitions returns all valid transitions from the given status.
func (m *Machine) ValidTransitions(from models.IssueStatus) []TransitionRule {
	var out []TransitionRule
	for _, rule := range validTransitions {
		if rule.From == from {
			out = append(out, rule)
		}
	}
	return out
}

// BlocksCreation reports whether an existing record in this status must
// stall a concurrent ensureChallengeExists caller into a reschedule.
func BlocksCreation(status models.IssueStatus) bool {
	return status == models.StatusChallengeCreationPending
}

// Erasable reports whether an existing record in this status is stale and
// may be deleted before recreating the challenge.
func Erasable(status models.IssueStatus) bool {
	return status == models.StatusChallengeCreationFailed
}

// PaymentSettled reports whether a close event replay should short-circuit.
func PaymentSettled(status models.IssueStatus) bool {
	return status == models.StatusChallengePaymentSuccessful ||
		status == models.StatusChallengePaymentPending
}
