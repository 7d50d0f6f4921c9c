package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/gitcontest/xbridge/internal/bus"
	"github.com/gitcontest/xbridge/internal/common"
	"github.com/gitcontest/xbridge/internal/db"
	"github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/models"
)

// IssueContext is the preprocessed view of an issue event every handler
// starts from: the registered project, the normalized ticket identity, the
// parsed prize vector and the rendered body.
type IssueContext struct {
	Event        *bus.Event
	Project      *models.Project
	RepositoryID int64
	RepoFullName string
	RepoURL      string
	Number       int
	Title        string // leading [...] stripped
	RawTitle     string
	Body         string // rendered markdown
	Prizes       []int
	Labels       []string
	TCXReady     bool
}

// Identity returns the guard key fields as a short log string.
func (ic *IssueContext) Identity() string {
	return string(ic.Event.Provider) + " " + ic.RepoFullName + "#" + strconv.Itoa(ic.Number)
}

var (
	prizeTokenRe   = regexp.MustCompile(`\$([0-9]+)`)
	leadingBlockRe = regexp.MustCompile(`^\[[^\]]*\]\s*`)
)

// ParsePrizes extracts the prize vector from a ticket title. A prize token
// only counts when a closing bracket follows it somewhere in the title, so
// "Pay $100 later" is not a paid ticket but "[$100] Fix bug" is.
func ParsePrizes(title string) []int {
	lastBracket := strings.LastIndex(title, "]")
	if lastBracket < 0 {
		return nil
	}
	var prizes []int
	for _, m := range prizeTokenRe.FindAllStringSubmatchIndex(title, -1) {
		if m[0] >= lastBracket {
			break
		}
		n, err := strconv.Atoi(title[m[2]:m[3]])
		if err != nil {
			continue
		}
		prizes = append(prizes, n)
	}
	return prizes
}

// StripPrizeBlock removes the leading [...] block from a title.
func StripPrizeBlock(title string) string {
	return leadingBlockRe.ReplaceAllString(title, "")
}

// repoURLFor builds the canonical browse URL for a repository when the
// event does not carry one.
func repoURLFor(provider models.Provider, fullName string) string {
	switch provider {
	case models.ProviderGitLab:
		return "https://gitlab.com/" + fullName
	default:
		return "https://github.com/" + fullName
	}
}

// Preprocessor resolves events into IssueContexts.
type Preprocessor struct {
	projects    *db.ProjectRepo
	labelPrefix string
}

// NewPreprocessor creates a preprocessor.
func NewPreprocessor(projects *db.ProjectRepo, labelPrefix string) *Preprocessor {
	return &Preprocessor{projects: projects, labelPrefix: labelPrefix}
}

// Preprocess validates an issue event and builds its context. A nil context
// with a nil error means the event is not a paid ticket and must be dropped
// silently. A missing project is a NotFound failure.
func (p *Preprocessor) Preprocess(ctx context.Context, ev *bus.Event) (*IssueContext, error) {
	if ev.Data.Issue == nil || ev.Data.Repository == nil {
		return nil, errors.Validation("issue event %s missing issue or repository", ev.Event)
	}

	repoURL := ev.Data.Repository.RepoURL
	if repoURL == "" {
		repoURL = repoURLFor(ev.Provider, ev.Data.Repository.FullName)
	}
	project, err := p.projects.GetByRepoURL(ctx, repoURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternalDependency, "look up project")
	}
	if project == nil {
		return nil, errors.NotFound("no project registered for %s", repoURL)
	}

	prizes := ParsePrizes(ev.Data.Issue.Title)
	if len(prizes) == 0 {
		return nil, nil
	}

	body, err := common.RenderMarkdown(ev.Data.Issue.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "render issue body")
	}

	labels := ev.Data.Issue.Labels
	tcxReady := false
	for _, l := range labels {
		if strings.HasPrefix(l, p.labelPrefix) {
			tcxReady = true
			break
		}
	}

	return &IssueContext{
		Event:        ev,
		Project:      project,
		RepositoryID: common.RepositoryID(ev.Data.Repository.ID),
		RepoFullName: ev.Data.Repository.FullName,
		RepoURL:      repoURL,
		Number:       ev.Data.Issue.Number,
		Title:        StripPrizeBlock(ev.Data.Issue.Title),
		RawTitle:     ev.Data.Issue.Title,
		Body:         body,
		Prizes:       prizes,
		Labels:       labels,
		TCXReady:     tcxReady,
	}, nil
}
