// Package bus provides the message bus wiring for xbridge: the double-encoded
// JSON envelope, the inbound event union, and the AMQP consumer/producer.
package bus

import (
	"github.com/gitcontest/xbridge/internal/models"
)

// Event kinds. The Event field of the inner payload is the discriminator;
// unknown kinds are dropped by the dispatcher, never failed.
const (
	IssueCreated      = "issue.created"
	IssueUpdated      = "issue.updated"
	IssueClosed       = "issue.closed"
	IssueRecreated    = "issue.recreated"
	IssueAssigned     = "issue.assigned"
	IssueUnassigned   = "issue.unassigned"
	IssueLabelUpdated = "issue.labelUpdated"

	CommentCreated = "comment.created"
	CommentUpdated = "comment.updated"

	CopilotPaymentAdd          = "copilotPayment.add"
	CopilotPaymentUpdate       = "copilotPayment.update"
	CopilotPaymentDelete       = "copilotPayment.delete"
	CopilotPaymentCheckUpdates = "copilotPayment.checkUpdates"
)

// Event is the inner bus payload after double-decoding.
type Event struct {
	Event    string          `json:"event"`
	Provider models.Provider `json:"provider,omitempty"`
	Data     EventData       `json:"data"`

	// Flags carried across retries.
	RetryCount            int  `json:"retryCount,omitempty"`
	PaymentSuccessful     bool `json:"paymentSuccessful,omitempty"`
	CreateCopilotPayments bool `json:"createCopilotPayments,omitempty"`

	// Project may be inlined by upstream tooling. The retry service strips
	// it before republishing; handlers always re-resolve from the store.
	Project *models.Project `json:"project,omitempty"`
}

// EventData carries the kind-specific payload fields.
type EventData struct {
	Issue      *IssuePayload      `json:"issue,omitempty"`
	Repository *RepositoryPayload `json:"repository,omitempty"`
	Comment    *CommentPayload    `json:"comment,omitempty"`
	Assignee   *UserPayload       `json:"assignee,omitempty"`
	Labels     []string           `json:"labels,omitempty"`
	Payment    *PaymentPayload    `json:"payment,omitempty"`
	Copilot    *CopilotPayload    `json:"copilot,omitempty"`
}

// IssuePayload mirrors the ticket as the provider reported it.
type IssuePayload struct {
	Number    int           `json:"number"`
	Title     string        `json:"title"`
	Body      string        `json:"body,omitempty"`
	Labels    []string      `json:"labels"`
	Assignees []UserPayload `json:"assignees,omitempty"`
	Owner     *UserPayload  `json:"owner,omitempty"`
}

// RepositoryPayload identifies the repository an issue event belongs to.
// ID is numeric for GitHub and may be an opaque string for GitLab.
type RepositoryPayload struct {
	ID       interface{} `json:"id"`
	Name     string      `json:"name,omitempty"`
	FullName string      `json:"full_name,omitempty"`
	RepoURL  string      `json:"repoUrl,omitempty"`
}

// UserPayload identifies a source-control user.
type UserPayload struct {
	ID int64 `json:"id"`
}

// CommentPayload carries a ticket comment.
type CommentPayload struct {
	ID   int64        `json:"id"`
	Body string       `json:"body"`
	User *UserPayload `json:"user,omitempty"`
}

// PaymentPayload mirrors a copilot payment row mutation from the admin tool.
type PaymentPayload struct {
	ID            string `json:"id"`
	Project       string `json:"project"`
	Amount        int    `json:"amount"`
	Description   string `json:"description"`
	ChallengeUUID string `json:"challengeUUID,omitempty"`
	Username      string `json:"username,omitempty"`
	Closed        bool   `json:"closed,omitempty"`
	Status        string `json:"status,omitempty"`
}

// CopilotPayload identifies the copilot a payment event concerns.
type CopilotPayload struct {
	Handle string   `json:"handle"`
	Roles  []string `json:"roles,omitempty"`
}

// IsIssueEvent reports whether the kind is handled by the issue machine.
func IsIssueEvent(kind string) bool {
	switch kind {
	case IssueCreated, IssueUpdated, IssueClosed, IssueRecreated,
		IssueAssigned, IssueUnassigned, IssueLabelUpdated,
		CommentCreated, CommentUpdated:
		return true
	}
	return false
}

// IsPaymentEvent reports whether the kind is handled by the payment machine.
func IsPaymentEvent(kind string) bool {
	switch kind {
	case CopilotPaymentAdd, CopilotPaymentUpdate,
		CopilotPaymentDelete, CopilotPaymentCheckUpdates:
		return true
	}
	return false
}
