package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gitcontest/xbridge/internal/bus"
	"github.com/gitcontest/xbridge/internal/config"
	"github.com/gitcontest/xbridge/internal/db"
	"github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/guard"
	"github.com/gitcontest/xbridge/internal/models"
	"github.com/gitcontest/xbridge/internal/scm"
	"github.com/gitcontest/xbridge/internal/topcoder"
)

// fakeContest is an in-memory contest platform.
type fakeContest struct {
	mu         sync.Mutex
	nextID     int
	challenges map[string]*topcoder.Challenge
	resources  map[string][]topcoder.Resource
	creates    []topcoder.NewChallenge
	updates    []topcoder.ChallengeUpdate
	closes     []string
	memberIDs  map[string]int64
	billing    int

	failCreate error
	failClose  error
	failUpdate error
}

func newFakeContest() *fakeContest {
	return &fakeContest{
		challenges: map[string]*topcoder.Challenge{},
		resources:  map[string][]topcoder.Resource{},
		memberIDs:  map[string]int64{},
		billing:    80000062,
	}
}

func (f *fakeContest) CreateChallenge(_ context.Context, nc topcoder.NewChallenge) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.nextID++
	id := fmt.Sprintf("ch-%d", f.nextID)
	f.creates = append(f.creates, nc)
	f.challenges[id] = &topcoder.Challenge{ID: id, Name: nc.Name, Status: topcoder.StatusDraft}
	return id, nil
}

func (f *fakeContest) UpdateChallenge(_ context.Context, id string, u topcoder.ChallengeUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return f.failUpdate
	}
	ch, ok := f.challenges[id]
	if !ok {
		return errors.NotFound("challenge %s", id)
	}
	f.updates = append(f.updates, u)
	if u.Status != "" {
		ch.Status = u.Status
	}
	if u.Name != "" {
		ch.Name = u.Name
	}
	return nil
}

func (f *fakeContest) ActivateChallenge(ctx context.Context, id string) error {
	return f.UpdateChallenge(ctx, id, topcoder.ChallengeUpdate{Status: topcoder.StatusActive})
}

func (f *fakeContest) CloseChallenge(ctx context.Context, id string, winnerID int64, handle string) error {
	f.mu.Lock()
	if f.failClose != nil {
		f.mu.Unlock()
		return f.failClose
	}
	f.closes = append(f.closes, id)
	f.mu.Unlock()
	return f.UpdateChallenge(ctx, id, topcoder.ChallengeUpdate{
		Status:  topcoder.StatusCompleted,
		Winners: []topcoder.Winner{{UserID: winnerID, Handle: handle, Placement: 1}},
	})
}

func (f *fakeContest) CancelChallenge(_ context.Context, _ string) error { return nil }

func (f *fakeContest) GetChallenge(_ context.Context, id string) (*topcoder.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.challenges[id]
	if !ok {
		return nil, errors.NotFound("challenge %s", id)
	}
	copied := *ch
	return &copied, nil
}

func (f *fakeContest) CreateResource(_ context.Context, id, handle string, roleID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[id] = append(f.resources[id], topcoder.Resource{ChallengeID: id, MemberHandle: handle, RoleID: roleID})
	return nil
}

func (f *fakeContest) DeleteResource(_ context.Context, id, handle string, roleID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []topcoder.Resource
	for _, r := range f.resources[id] {
		if r.MemberHandle != handle || r.RoleID != roleID {
			kept = append(kept, r)
		}
	}
	f.resources[id] = kept
	return nil
}

func (f *fakeContest) GetResources(_ context.Context, id string) ([]topcoder.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]topcoder.Resource(nil), f.resources[id]...), nil
}

func (f *fakeContest) GetMemberID(_ context.Context, handle string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.memberIDs[handle]; ok {
		return id, nil
	}
	return 0, errors.NotFound("member %s", handle)
}

func (f *fakeContest) GetProjectBillingAccountID(_ context.Context, _ int) (int, error) {
	return f.billing, nil
}

func (f *fakeContest) ChallengeURL(id string) string {
	return "https://contest.example.com/challenges/" + id
}

// fakeSCM is an in-memory source-control side.
type fakeSCM struct {
	mu        sync.Mutex
	comments  []string
	labels    []string // current label set after the last mutation
	labelOps  int
	assigns   []string
	unassigns []string
	titles    []string
	reopens   int
	paid      []string // challenge URLs passed to MarkPaid
	usernames map[int64]string
}

func newFakeSCM() *fakeSCM {
	return &fakeSCM{usernames: map[int64]string{}}
}

func (f *fakeSCM) CreateComment(_ context.Context, _ string, _ int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, body)
	return nil
}

func (f *fakeSCM) AddLabels(_ context.Context, _ string, _ int, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = append(f.labels, labels...)
	f.labelOps++
	return nil
}

func (f *fakeSCM) RemoveLabel(_ context.Context, _ string, _ int, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []string
	for _, l := range f.labels {
		if l != label {
			kept = append(kept, l)
		}
	}
	f.labels = kept
	f.labelOps++
	return nil
}

func (f *fakeSCM) ReplaceLabels(_ context.Context, _ string, _ int, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = append([]string(nil), labels...)
	f.labelOps++
	return nil
}

func (f *fakeSCM) Assign(_ context.Context, _ string, _ int, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigns = append(f.assigns, username)
	return nil
}

func (f *fakeSCM) Unassign(_ context.Context, _ string, _ int, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unassigns = append(f.unassigns, username)
	return nil
}

func (f *fakeSCM) GetUsernameByID(_ context.Context, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.usernames[userID]; ok {
		return name, nil
	}
	return "", errors.NotFound("user %d", userID)
}

func (f *fakeSCM) GetUserIDByUsername(_ context.Context, username string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, name := range f.usernames {
		if name == username {
			return id, nil
		}
	}
	return 0, errors.NotFound("user %s", username)
}

func (f *fakeSCM) UpdateTitle(_ context.Context, _ string, _ int, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSCM) MarkPaid(ctx context.Context, repo string, number int, challengeURL string, labels []string) error {
	if err := f.ReplaceLabels(ctx, repo, number, labels); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paid = append(f.paid, challengeURL)
	return nil
}

func (f *fakeSCM) Reopen(_ context.Context, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reopens++
	return nil
}

// fakeDirectory maps scm user ids to handles in memory.
type fakeDirectory struct {
	handles map[int64]string // scm user id -> handle
	users   map[string]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{handles: map[int64]string{}, users: map[string]string{}}
}

func (d *fakeDirectory) add(scmUserID int64, scmUsername, handle string) {
	d.handles[scmUserID] = handle
	d.users[handle] = scmUsername
}

func (d *fakeDirectory) HandleForSCMUser(_ context.Context, _ models.Provider, scmUserID int64) (string, error) {
	if h, ok := d.handles[scmUserID]; ok {
		return h, nil
	}
	return "", errors.NotFound("no mapping for user %d", scmUserID)
}

func (d *fakeDirectory) SCMUsernameForHandle(_ context.Context, _ models.Provider, handle string) (string, error) {
	if u, ok := d.users[handle]; ok {
		return u, nil
	}
	return "", errors.NotFound("no mapping for handle %s", handle)
}

// fixture bundles everything an issue/payment service test needs.
type fixture struct {
	issues   *db.IssueRepo
	payments *db.PaymentRepo
	projects *db.ProjectRepo
	contest  *fakeContest
	scm      *fakeSCM
	dir      *fakeDirectory
	guard    *guard.CreationGuard
	svc      *IssueService
	pay      *PaymentService
	project  *models.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sqlDB := db.NewTestSqlDB(t)
	t.Cleanup(func() { sqlDB.Close() })

	f := &fixture{
		issues:   db.NewIssueRepo(sqlDB),
		payments: db.NewPaymentRepo(sqlDB),
		projects: db.NewProjectRepo(sqlDB),
		contest:  newFakeContest(),
		scm:      newFakeSCM(),
		dir:      newFakeDirectory(),
		guard:    guard.New(),
	}

	f.project = &models.Project{
		Title:      "Webapp",
		RepoURL:    "https://github.com/acme/webapp",
		TCDirectID: 7788,
		Copilot:    "cpilot",
		Owner:      "powner",
	}
	require.NoError(t, f.projects.Create(context.Background(), f.project))

	labels := config.DefaultConfig().Labels
	pre := NewPreprocessor(f.projects, labels.Prefix)
	registry := scm.Registry{
		models.ProviderGitHub: f.scm,
		models.ProviderGitLab: f.scm,
	}
	f.svc = NewIssueService(labels, f.issues, pre, f.contest, registry, f.dir, f.guard, zerolog.Nop())
	f.pay = NewPaymentService(f.payments, f.projects, f.contest, zerolog.Nop())
	return f
}

// issueEvent builds a github issue event against the fixture project.
func issueEvent(kind, title string, labels []string, assignees ...int64) *bus.Event {
	issue := &bus.IssuePayload{
		Number: 42,
		Title:  title,
		Body:   "some **details**",
		Labels: labels,
	}
	for _, id := range assignees {
		issue.Assignees = append(issue.Assignees, bus.UserPayload{ID: id})
	}
	return &bus.Event{
		Event:    kind,
		Provider: models.ProviderGitHub,
		Data: bus.EventData{
			Issue:      issue,
			Repository: &bus.RepositoryPayload{ID: float64(4242), Name: "webapp", FullName: "acme/webapp"},
		},
	}
}

func (f *fixture) storedIssue(t *testing.T) *models.Issue {
	t.Helper()
	rec, err := f.issues.GetByIdentity(context.Background(), models.ProviderGitHub, 4242, 42)
	require.NoError(t, err)
	return rec
}
