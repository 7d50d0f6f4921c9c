// Package topcoder provides a thin typed client for the contest platform
// v5 challenge API.
package topcoder

import "time"

// Challenge statuses as the remote API spells them.
const (
	StatusDraft     = "Draft"
	StatusActive    = "Active"
	StatusCompleted = "Completed"
	StatusCanceled  = "Canceled"
)

// Resource role ids.
const (
	RoleSubmitter = 1
	RoleCopilot   = 14
)

// Prize set types.
const (
	PrizeSetPlacement = "placement"
	PrizeSetCopilot   = "copilot"
)

// v5 task defaults. Every challenge the bridge creates is a pure v5 task.
const (
	defaultTypeID             = "ecd58c69-238f-43a4-a4bb-d172719b9f31"
	defaultTrackID            = "9b6fc876-f4d9-4ccb-9dfd-419247628825"
	defaultTimelineTemplateID = "53a307ce-b4b3-4d6f-b9a1-3741a58f77e6"
)

// Prize is a single USD prize inside a prize set.
type Prize struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// PrizeSet groups prizes; the bridge only ever sends one per challenge.
type PrizeSet struct {
	Type   string  `json:"type"`
	Prizes []Prize `json:"prizes"`
}

// Winner records a placement on challenge completion.
type Winner struct {
	UserID    int64  `json:"userId"`
	Handle    string `json:"handle"`
	Placement int    `json:"placement"`
}

// Legacy carries v5 compatibility flags.
type Legacy struct {
	PureV5Task bool `json:"pureV5Task"`
}

// NewChallenge is the core's view of a challenge to create. The client
// translates the flat prize vector into the v5 prizeSets shape.
type NewChallenge struct {
	Name                 string
	ProjectID            int
	Description          string
	Prizes               []int
	PrizeSetType         string // defaults to placement
	SubmissionGuidelines string
}

// ChallengeUpdate is a partial PATCH body. Nil fields are omitted.
type ChallengeUpdate struct {
	Status           string   `json:"status,omitempty"`
	Name             string   `json:"name,omitempty"`
	Description      string   `json:"description,omitempty"`
	BillingAccountID *int     `json:"billingAccountId,omitempty"`
	Winners          []Winner `json:"winners,omitempty"`

	// Prizes is translated to prizeSets; PrizeSetType defaults to placement.
	Prizes       []int  `json:"-"`
	PrizeSetType string `json:"-"`
}

// Challenge is the remote challenge as the bridge reads it back.
type Challenge struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	ProjectID int        `json:"projectId"`
	PrizeSets []PrizeSet `json:"prizeSets,omitempty"`
	Winners   []Winner   `json:"winners,omitempty"`
	Created   time.Time  `json:"created,omitempty"`
}

// Resource is a role assignment on a challenge.
type Resource struct {
	ID           string `json:"id,omitempty"`
	ChallengeID  string `json:"challengeId"`
	MemberHandle string `json:"memberHandle"`
	RoleID       int    `json:"roleId"`
}

// createChallengeRequest is the wire shape of POST /challenges.
type createChallengeRequest struct {
	TypeID               string     `json:"typeId"`
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	PrizeSets            []PrizeSet `json:"prizeSets"`
	TimelineTemplateID   string     `json:"timelineTemplateId"`
	ProjectID            int        `json:"projectId"`
	TrackID              string     `json:"trackId"`
	Legacy               Legacy     `json:"legacy"`
	StartDate            time.Time  `json:"startDate"`
	SubmissionGuidelines string     `json:"submissionGuidelines,omitempty"`
}

// prizeSets translates a flat prize vector to the v5 shape.
func prizeSets(setType string, prizes []int) []PrizeSet {
	if setType == "" {
		setType = PrizeSetPlacement
	}
	set := PrizeSet{Type: setType}
	for _, v := range prizes {
		set.Prizes = append(set.Prizes, Prize{Type: "USD", Value: v})
	}
	return []PrizeSet{set}
}
