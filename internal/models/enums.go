// Package models defines the domain models for xbridge.
package models

// Provider identifies the source-control platform an event came from.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
)

// IsValid returns true if the provider is supported.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderGitHub, ProviderGitLab:
		return true
	}
	return false
}

// IssueStatus represents where an issue↔challenge binding is in its lifecycle.
// The two pending states double as in-flight guards under at-least-once
// delivery: a concurrent handler that observes a pending status reschedules
// instead of repeating the remote call.
type IssueStatus string

const (
	StatusChallengeCreationPending    IssueStatus = "challenge_creation_pending"
	StatusChallengeCreationSuccessful IssueStatus = "challenge_creation_successful"
	StatusChallengeCreationFailed     IssueStatus = "challenge_creation_failed"
	StatusChallengePaymentPending     IssueStatus = "challenge_payment_pending"
	StatusChallengePaymentSuccessful  IssueStatus = "challenge_payment_successful"
	StatusChallengePaymentFailed      IssueStatus = "challenge_payment_failed"
)

// IsValid returns true if the status is a known issue status.
func (s IssueStatus) IsValid() bool {
	switch s {
	case StatusChallengeCreationPending, StatusChallengeCreationSuccessful,
		StatusChallengeCreationFailed, StatusChallengePaymentPending,
		StatusChallengePaymentSuccessful, StatusChallengePaymentFailed:
		return true
	}
	return false
}

// AllIssueStatuses returns every known issue status in lifecycle order.
func AllIssueStatuses() []IssueStatus {
	return []IssueStatus{
		StatusChallengeCreationPending,
		StatusChallengeCreationSuccessful,
		StatusChallengeCreationFailed,
		StatusChallengePaymentPending,
		StatusChallengePaymentSuccessful,
		StatusChallengePaymentFailed,
	}
}

// IsSuccessful returns true for statuses that guarantee a non-null challenge id.
func (s IssueStatus) IsSuccessful() bool {
	return s == StatusChallengeCreationSuccessful || s == StatusChallengePaymentSuccessful
}

// PaymentStatus represents the lifecycle of a copilot payment row.
type PaymentStatus string

const (
	PaymentStatusCreationPending    PaymentStatus = "challenge_creation_pending"
	PaymentStatusCreationSuccessful PaymentStatus = "challenge_creation_successful"
	PaymentStatusCreationRetried    PaymentStatus = "challenge_creation_retried"
	PaymentStatusCreationFailed     PaymentStatus = "challenge_creation_failed"
)

// IsValid returns true if the status is a known payment status.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusCreationPending, PaymentStatusCreationSuccessful,
		PaymentStatusCreationRetried, PaymentStatusCreationFailed:
		return true
	}
	return false
}
