package bus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/models"
)

func wrap(t *testing.T, inner string) []byte {
	t.Helper()
	outer := map[string]interface{}{
		"topic":      "xbridge.issues",
		"originator": "gitevents",
		"timestamp":  "2024-04-03T10:00:00Z",
		"mime-type":  "application/json",
		"payload":    map[string]string{"value": inner},
	}
	raw, err := json.Marshal(outer)
	require.NoError(t, err)
	return raw
}

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope(wrap(t, `{"event":"issue.created"}`))
	require.NoError(t, err)
	assert.Equal(t, "xbridge.issues", env.Topic)
	assert.Equal(t, `{"event":"issue.created"}`, env.Payload.Value)
}

func TestParseEnvelopeRejects(t *testing.T) {
	_, err := ParseEnvelope([]byte("not json"))
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))

	_, err = ParseEnvelope([]byte(`{"topic":"t","mime-type":"text/plain","payload":{"value":"x"}}`))
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))

	_, err = ParseEnvelope([]byte(`{"topic":"t","mime-type":"application/json","payload":{}}`))
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
}

func TestDecodeIssueEvent(t *testing.T) {
	inner := `{
		"event": "issue.created",
		"provider": "github",
		"data": {
			"issue": {
				"number": 42,
				"title": "[$100] Fix bug",
				"body": "details",
				"labels": ["tcx_OpenForPickup"],
				"assignees": [{"id": 7}],
				"owner": {"id": 1}
			},
			"repository": {"id": 4242, "name": "webapp", "full_name": "acme/webapp"}
		}
	}`
	env, err := ParseEnvelope(wrap(t, inner))
	require.NoError(t, err)

	ev, err := env.DecodeEvent()
	require.NoError(t, err)
	assert.Equal(t, IssueCreated, ev.Event)
	assert.Equal(t, models.ProviderGitHub, ev.Provider)
	assert.Equal(t, 42, ev.Data.Issue.Number)
	assert.Equal(t, "[$100] Fix bug", ev.Data.Issue.Title)
	require.Len(t, ev.Data.Issue.Assignees, 1)
	assert.Equal(t, int64(7), ev.Data.Issue.Assignees[0].ID)
	assert.Equal(t, "acme/webapp", ev.Data.Repository.FullName)
}

func TestDecodeEventValidation(t *testing.T) {
	cases := []struct {
		name  string
		inner string
	}{
		{"missing kind", `{"provider":"github"}`},
		{"bad provider", `{"event":"issue.created","provider":"svn","data":{"issue":{"number":1},"repository":{"id":1}}}`},
		{"issue event without repository", `{"event":"issue.created","provider":"github","data":{"issue":{"number":1}}}`},
		{"payment event without payment", `{"event":"copilotPayment.add","data":{}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := ParseEnvelope(wrap(t, tc.inner))
			require.NoError(t, err)
			_, err = env.DecodeEvent()
			require.Error(t, err)
			assert.Equal(t, errors.KindValidation, errors.GetKind(err))
		})
	}
}

func TestDecodeCheckUpdatesWithoutPayment(t *testing.T) {
	env, err := ParseEnvelope(wrap(t, `{"event":"copilotPayment.checkUpdates","data":{"copilot":{"handle":"cpilot"}}}`))
	require.NoError(t, err)
	ev, err := env.DecodeEvent()
	require.NoError(t, err)
	assert.Equal(t, "cpilot", ev.Data.Copilot.Handle)
}

func TestNewEnvelopeRoundTrip(t *testing.T) {
	ev := &Event{
		Event:      IssueUpdated,
		Provider:   models.ProviderGitLab,
		RetryCount: 2,
		Data: EventData{
			Issue:      &IssuePayload{Number: 5, Title: "[$50] Tidy", Labels: []string{"tcx_Assigned"}},
			Repository: &RepositoryPayload{ID: "group/project", FullName: "group/project"},
		},
	}
	env, err := NewEnvelope("xbridge.issues", ev)
	require.NoError(t, err)
	assert.Equal(t, Originator, env.Originator)
	assert.Equal(t, MimeJSON, env.MimeType)

	raw, err := env.Marshal()
	require.NoError(t, err)
	parsed, err := ParseEnvelope(raw)
	require.NoError(t, err)
	got, err := parsed.DecodeEvent()
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "group/project", got.Data.Repository.ID)
}

func TestEventKindPredicates(t *testing.T) {
	assert.True(t, IsIssueEvent(IssueClosed))
	assert.True(t, IsIssueEvent(CommentUpdated))
	assert.False(t, IsIssueEvent(CopilotPaymentAdd))
	assert.True(t, IsPaymentEvent(CopilotPaymentCheckUpdates))
	assert.False(t, IsPaymentEvent("issue.created"))
	assert.False(t, IsIssueEvent("something.else"))
}
