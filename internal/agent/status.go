package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
)

type StatusClient interface {
	GetAgent(ctx context.Context, params *bedrockagent.GetAgentInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetAgentOutput, error)
	GetAgentAlias(ctx context.Context, params *bedrockagent.GetAgentAliasInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetAgentAliasOutput, error)
}

type Status struct {
	AgentID        string     `json:"agentId"`
	AgentStatus    string     `json:"agentStatus"`
	PreparedAt     *time.Time `json:"preparedAt,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
	FailureReasons []string   `json:"failureReasons,omitempty"`
	AliasID        string     `json:"aliasId"`
	AliasName      string     `json:"aliasName"`
	AliasStatus    string     `json:"aliasStatus"`
	AliasVersions  []string   `json:"aliasVersions"`
}

// Describe reads the agent and alias as they are now, which is how callers
// detect a rollout that stopped between steps.
func Describe(ctx context.Context, c StatusClient, agentID, aliasID string) (*Status, error) {
	a, err := c.GetAgent(ctx, &bedrockagent.GetAgentInput{AgentId: aws.String(agentID)})
	if err != nil {
		return nil, Remote("GetAgent", err)
	}
	if a.Agent == nil {
		return nil, Remote("GetAgent", errEmpty("agent"))
	}
	al, err := c.GetAgentAlias(ctx, &bedrockagent.GetAgentAliasInput{
		AgentId:      aws.String(agentID),
		AgentAliasId: aws.String(aliasID),
	})
	if err != nil {
		return nil, Remote("GetAgentAlias", err)
	}
	if al.AgentAlias == nil {
		return nil, Remote("GetAgentAlias", errEmpty("agent alias"))
	}

	st := &Status{
		AgentID:        agentID,
		AgentStatus:    string(a.Agent.AgentStatus),
		PreparedAt:     a.Agent.PreparedAt,
		UpdatedAt:      a.Agent.UpdatedAt,
		FailureReasons: a.Agent.FailureReasons,
		AliasID:        aliasID,
		AliasName:      aws.ToString(al.AgentAlias.AgentAliasName),
		AliasStatus:    string(al.AgentAlias.AgentAliasStatus),
		AliasVersions:  []string{},
	}
	for _, r := range al.AgentAlias.RoutingConfiguration {
		st.AliasVersions = append(st.AliasVersions, aws.ToString(r.AgentVersion))
	}
	return st, nil
}

func errEmpty(what string) error {
	return fmt.Errorf("empty %s in response", what)
}
