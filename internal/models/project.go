package models

import "time"

// Project maps a source-control repository onto a contest-platform project.
// Rows are owned by the admin tool; xbridge only reads them.
type Project struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	RepoURL               string    `json:"repoUrl"`
	TCDirectID            int       `json:"tcDirectId"`
	Copilot               string    `json:"copilot"`
	Owner                 string    `json:"owner"`
	CreateCopilotPayments bool      `json:"createCopilotPayments"`
	Tags                  []string  `json:"tags,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
