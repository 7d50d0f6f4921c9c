package models

import (
	"time"
)

// Issue is the durable record of a ticket↔challenge binding.
// (Provider, RepositoryID, Number) is unique among active records.
type Issue struct {
	ID           string      `json:"id"`
	Provider     Provider    `json:"provider"`
	RepositoryID int64       `json:"repository_id"`
	Number       int         `json:"number"`
	Title        string      `json:"title"`
	Body         string      `json:"body,omitempty"`
	Prizes       []int       `json:"prizes"`
	Labels       []string    `json:"labels"`
	Assignee     string      `json:"assignee,omitempty"`
	AssignedAt   *time.Time  `json:"assigned_at,omitempty"`
	ChallengeID  string      `json:"challenge_id,omitempty"`
	Status       IssueStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// HasLabel reports whether the issue carries the given label.
// Label matching is case-sensitive by contract.
func (i *Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// SameContent reports whether title, body and prize vector are identical
// to the given values. Used to suppress no-op challenge updates.
func (i *Issue) SameContent(title, body string, prizes []int) bool {
	if i.Title != title || i.Body != body {
		return false
	}
	if len(i.Prizes) != len(prizes) {
		return false
	}
	for n, p := range i.Prizes {
		if p != prizes[n] {
			return false
		}
	}
	return true
}
