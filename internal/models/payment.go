package models

import "time"

// CopilotPayment is a single payment row for a repository copilot.
// Multiple open rows for the same (project, username) coalesce into one
// challenge; they then share a ChallengeUUID.
type CopilotPayment struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project"`
	Username      string        `json:"username"`
	Amount        int           `json:"amount"`
	Description   string        `json:"description"`
	ChallengeUUID string        `json:"challengeUUID,omitempty"`
	Closed        bool          `json:"closed"`
	Status        PaymentStatus `json:"status,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// UserMapping links a source-control identity to a contest-platform handle.
type UserMapping struct {
	ID             string   `json:"id"`
	Provider       Provider `json:"provider"`
	SCMUserID      int64    `json:"scm_user_id"`
	SCMUsername    string   `json:"scm_username"`
	TopcoderHandle string   `json:"topcoder_handle"`
}
