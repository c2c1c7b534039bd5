package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	batypes "github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragagent/internal/history"
)

type fakeStatusClient struct {
	version string
	err     error
}

func (f fakeStatusClient) GetAgent(ctx context.Context, in *bedrockagent.GetAgentInput, _ ...func(*bedrockagent.Options)) (*bedrockagent.GetAgentOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockagent.GetAgentOutput{Agent: &batypes.Agent{AgentId: in.AgentId, AgentStatus: batypes.AgentStatusPrepared}}, nil
}

func (f fakeStatusClient) GetAgentAlias(ctx context.Context, in *bedrockagent.GetAgentAliasInput, _ ...func(*bedrockagent.Options)) (*bedrockagent.GetAgentAliasOutput, error) {
	return &bedrockagent.GetAgentAliasOutput{AgentAlias: &batypes.AgentAlias{
		AgentAliasId:         in.AgentAliasId,
		AgentAliasName:       aws.String("dev-alias"),
		AgentAliasStatus:     batypes.AgentAliasStatusPrepared,
		RoutingConfiguration: []batypes.AgentAliasRoutingConfigurationListItem{{AgentVersion: aws.String(f.version)}},
	}}, nil
}

type fakeLatest struct {
	rec *history.Record
	err error
}

func (f fakeLatest) Latest(ctx context.Context, agentID string) (*history.Record, error) {
	return f.rec, f.err
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name    string
		version string
		latest  fakeLatest
		inSync  bool
	}{
		{name: "no history", version: "4", inSync: true},
		{name: "alias on activated version", version: "4", latest: fakeLatest{rec: &history.Record{Outcome: history.OutcomeActivated, Version: "4"}}, inSync: true},
		{name: "alias moved elsewhere", version: "3", latest: fakeLatest{rec: &history.Record{Outcome: history.OutcomeActivated, Version: "4"}}},
		{name: "last rollout failed", version: "4", latest: fakeLatest{rec: &history.Record{Outcome: history.OutcomeFailed, Error: "boom"}}},
		{name: "history unreadable", version: "4", latest: fakeLatest{err: errors.New("denied")}, inSync: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStatusHandler(fakeStatusClient{version: tt.version}, tt.latest, "AGENT1", "ALIAS1")
			resp, err := h.Handle(context.Background())
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var body StatusResponse
			decodeBody(t, resp, &body)
			assert.Equal(t, tt.inSync, body.InSync)
			require.NotNil(t, body.Agent)
			assert.Equal(t, "PREPARED", body.Agent.AgentStatus)
			assert.Equal(t, []string{tt.version}, body.Agent.AliasVersions)
		})
	}
}

func TestStatus_RemoteFailure(t *testing.T) {
	h := NewStatusHandler(fakeStatusClient{err: errors.New("AccessDenied")}, nil, "AGENT1", "ALIAS1")
	resp, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestStatus_TypedNilHistory(t *testing.T) {
	var store *history.Store
	h := NewStatusHandler(fakeStatusClient{version: "4"}, store, "AGENT1", "ALIAS1")
	assert.Nil(t, h.history)

	resp, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
