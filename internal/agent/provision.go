package agent

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	batypes "github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/rs/zerolog/log"
)

type ProvisionClient interface {
	CreateAgent(ctx context.Context, params *bedrockagent.CreateAgentInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateAgentOutput, error)
	AssociateAgentKnowledgeBase(ctx context.Context, params *bedrockagent.AssociateAgentKnowledgeBaseInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.AssociateAgentKnowledgeBaseOutput, error)
}

type ProvisionRequest struct {
	AgentName       string
	FoundationModel string
	RoleARN         string
	Instruction     string
	Override        PromptOverrideConfig
	KnowledgeBaseID string
	// KnowledgeBaseDescription tells the agent when to consult the knowledge base.
	KnowledgeBaseDescription string
}

type ProvisionResult struct {
	AgentID            string `json:"agentId"`
	Status             string `json:"status"`
	KnowledgeBaseState string `json:"knowledgeBaseState"`
}

type Provisioner struct {
	client ProvisionClient
}

func NewProvisioner(client ProvisionClient) *Provisioner {
	return &Provisioner{client: client}
}

// Provision creates a new agent carrying the prompt override and associates
// the knowledge base with its draft version.
func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	if strings.TrimSpace(req.AgentName) == "" {
		return nil, &ValidationError{Field: "agentName", Message: "agent name is required"}
	}
	if strings.TrimSpace(req.KnowledgeBaseID) == "" {
		return nil, &ValidationError{Field: "knowledgeBaseId", Message: "knowledge base id is required"}
	}
	poc, err := req.Override.ToSDK()
	if err != nil {
		return nil, err
	}

	in := &bedrockagent.CreateAgentInput{
		AgentName:                   aws.String(req.AgentName),
		FoundationModel:             aws.String(req.FoundationModel),
		AgentResourceRoleArn:        aws.String(req.RoleARN),
		PromptOverrideConfiguration: poc,
	}
	if req.Instruction != "" {
		in.Instruction = aws.String(req.Instruction)
	}
	log.Info().Str("agent_name", req.AgentName).Str("model", req.FoundationModel).Msg("creating agent")
	created, err := p.client.CreateAgent(ctx, in)
	if err != nil {
		log.Error().Err(err).Msg("create agent failed")
		return nil, Remote("CreateAgent", err)
	}
	if created.Agent == nil {
		return nil, Remote("CreateAgent", errEmpty("agent"))
	}
	agentID := aws.ToString(created.Agent.AgentId)

	desc := req.KnowledgeBaseDescription
	if desc == "" {
		desc = "Primary knowledge base for the agent"
	}
	assoc, err := p.client.AssociateAgentKnowledgeBase(ctx, &bedrockagent.AssociateAgentKnowledgeBaseInput{
		AgentId:            aws.String(agentID),
		AgentVersion:       aws.String(DraftVersion),
		KnowledgeBaseId:    aws.String(req.KnowledgeBaseID),
		Description:        aws.String(desc),
		KnowledgeBaseState: batypes.KnowledgeBaseStateEnabled,
	})
	if err != nil {
		log.Error().Err(err).Str("agent_id", agentID).Msg("associate knowledge base failed")
		return nil, Remote("AssociateAgentKnowledgeBase", err)
	}

	res := &ProvisionResult{
		AgentID: agentID,
		Status:  string(created.Agent.AgentStatus),
	}
	if assoc.AgentKnowledgeBase != nil {
		res.KnowledgeBaseState = string(assoc.AgentKnowledgeBase.KnowledgeBaseState)
	}
	log.Info().Str("agent_id", agentID).Str("status", res.Status).Str("kb_state", res.KnowledgeBaseState).Msg("agent provisioned")
	return res, nil
}
