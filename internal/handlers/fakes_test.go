package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"ragagent/internal/agent"
	"ragagent/internal/history"
	"ragagent/internal/ingest"
)

type fakeInvoker struct {
	reqs []agent.InvokeRequest
	res  *agent.InvocationResult
	err  error
}

func (f *fakeInvoker) Invoke(ctx context.Context, req agent.InvokeRequest) (*agent.InvocationResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type fakeActivator struct {
	overrides []agent.PromptOverrideConfig
	aliases   []string
	err       error
}

func (f *fakeActivator) ApplyAndActivate(ctx context.Context, o agent.PromptOverrideConfig, aliasName string) (*agent.AgentVersion, error) {
	f.overrides = append(f.overrides, o)
	f.aliases = append(f.aliases, aliasName)
	if f.err != nil {
		return nil, f.err
	}
	return &agent.AgentVersion{AgentID: "AGENT1", AliasID: "ALIAS1", AliasName: aliasName, Version: "4", PreparedVersion: "DRAFT", StatusChecks: 2}, nil
}

type fakeRecorder struct {
	records []history.Record
	err     error
}

func (f *fakeRecorder) Record(ctx context.Context, r history.Record) error {
	if f == nil {
		return nil
	}
	f.records = append(f.records, r)
	return f.err
}

type published struct {
	subject string
	payload any
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, payload any) error {
	if f == nil {
		return nil
	}
	f.msgs = append(f.msgs, published{subject, payload})
	return f.err
}

type fakeStarter struct {
	events []ingest.Event
	err    error
}

func (f *fakeStarter) Start(ctx context.Context, ev ingest.Event) (*ingest.JobSummary, error) {
	f.events = append(f.events, ev)
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.JobSummary{JobID: "JOB1", Status: "STARTING", Message: "Ingestion job with ID: JOB1 started"}, nil
}

type fakeProvisioner struct {
	reqs []agent.ProvisionRequest
	err  error
}

func (f *fakeProvisioner) Provision(ctx context.Context, req agent.ProvisionRequest) (*agent.ProvisionResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &agent.ProvisionResult{AgentID: "NEWAGENT", Status: "CREATING", KnowledgeBaseState: "ENABLED"}, nil
}

func decodeBody(t *testing.T, resp events.APIGatewayV2HTTPResponse, v any) {
	t.Helper()
	require.Equal(t, "application/json", resp.Headers["Content-Type"])
	require.NoError(t, json.Unmarshal([]byte(resp.Body), v))
}
