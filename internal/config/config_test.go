package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

type fakeSSM struct {
	values map[string]string
	names  []string
}

func (f *fakeSSM) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	name := aws.ToString(in.Name)
	f.names = append(f.names, name)
	v, ok := f.values[name]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Name: in.Name, Value: aws.String(v)}}, nil
}

func TestParseAliasRef(t *testing.T) {
	ref, err := ParseAliasRef("AGENT1|ALIAS1")
	require.NoError(t, err)
	assert.Equal(t, AliasRef{AgentID: "AGENT1", AliasID: "ALIAS1"}, ref)
	assert.Equal(t, "AGENT1|ALIAS1", ref.String())

	// only the first separator splits
	ref, err = ParseAliasRef("AGENT1|ALIAS|X")
	require.NoError(t, err)
	assert.Equal(t, "ALIAS|X", ref.AliasID)

	for _, bad := range []string{"", "AGENT1", "AGENT1|", "|ALIAS1", " | "} {
		_, err := ParseAliasRef(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(context.Background(), envOf(nil), nil)
	require.NoError(t, err)

	assert.Equal(t, "dev-alias", c.AliasName)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 5*time.Second, c.PollInterval)
	assert.Equal(t, 120, c.PollMaxAttempts)
	assert.False(t, c.RolloutOnInvoke)
	assert.Error(t, c.Require(EnvAgentAlias))
}

func TestLoad_Full(t *testing.T) {
	c, err := Load(context.Background(), envOf(map[string]string{
		EnvAgentAlias:      "AGENT1|ALIAS1",
		EnvDataSource:      "KB1|DS1",
		EnvModel:           "us.meta.llama3-1-8b-instruct-v1:0",
		EnvRoleARN:         "arn:aws:iam::123456789012:role/agent",
		EnvAgentName:       "rag-agent",
		EnvPollInterval:    "750ms",
		EnvPollMaxAttempts: "0",
		EnvRolloutOnInvoke: "true",
	}), nil)
	require.NoError(t, err)

	assert.Equal(t, AliasRef{AgentID: "AGENT1", AliasID: "ALIAS1"}, c.Alias)
	assert.Equal(t, DataSourceRef{KnowledgeBaseID: "KB1", DataSourceID: "DS1"}, c.DataSource)
	assert.Equal(t, "KB1", c.KnowledgeBaseID, "knowledge base falls back to the data source ref")
	assert.Equal(t, 750*time.Millisecond, c.Poll().Interval)
	assert.Equal(t, 0, c.Poll().MaxAttempts)
	assert.True(t, c.RolloutOnInvoke)
	assert.NoError(t, c.Require(EnvAgentAlias, EnvKnowledgeBase, EnvDataSource, EnvModel, EnvRoleARN, EnvAgentName))
}

func TestLoad_PollIntervalSeconds(t *testing.T) {
	c, err := Load(context.Background(), envOf(map[string]string{EnvPollInterval: "10"}), nil)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, c.PollInterval)
}

func TestLoad_FailsFast(t *testing.T) {
	tests := map[string]map[string]string{
		"malformed alias":       {EnvAgentAlias: "AGENT1"},
		"malformed data source": {EnvDataSource: "KB1|"},
		"bad interval":          {EnvPollInterval: "soon"},
		"bad attempts":          {EnvPollMaxAttempts: "many"},
		"negative attempts":     {EnvPollMaxAttempts: "-1"},
		"bad bool":              {EnvRolloutOnInvoke: "yes please"},
		"template not s3":       {EnvPromptTemplateURI: "https://example.com/t.json"},
		"ssm without client":    {EnvAgentAlias: "ssm:/rag/alias"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(context.Background(), envOf(env), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad_ResolvesSSMParameters(t *testing.T) {
	params := &fakeSSM{values: map[string]string{
		"/rag/alias": "AGENT9|ALIAS9",
		"/rag/role":  "arn:aws:iam::123456789012:role/from-ssm",
	}}
	c, err := Load(context.Background(), envOf(map[string]string{
		EnvAgentAlias: "ssm:/rag/alias",
		EnvRoleARN:    "ssm:/rag/role",
	}), params)
	require.NoError(t, err)

	assert.Equal(t, "AGENT9", c.Alias.AgentID)
	assert.Equal(t, "arn:aws:iam::123456789012:role/from-ssm", c.AgentRoleARN)
	assert.ElementsMatch(t, []string{"/rag/alias", "/rag/role"}, params.names)
}

func TestLoad_MissingSSMParameter(t *testing.T) {
	_, err := Load(context.Background(), envOf(map[string]string{EnvModel: "ssm:/rag/missing"}), &fakeSSM{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvModel)
}
