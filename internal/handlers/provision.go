package handlers

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"

	"ragagent/internal/agent"
)

type AgentProvisioner interface {
	Provision(ctx context.Context, req agent.ProvisionRequest) (*agent.ProvisionResult, error)
}

// ProvisionHandler creates a new agent. Request fields override the
// configured defaults.
type ProvisionHandler struct {
	provisioner AgentProvisioner
	templates   TemplateSource
	defaults    agent.ProvisionRequest
}

func NewProvisionHandler(p AgentProvisioner, templates TemplateSource, defaults agent.ProvisionRequest) *ProvisionHandler {
	return &ProvisionHandler{provisioner: p, templates: templates, defaults: defaults}
}

func (h *ProvisionHandler) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayV2HTTPResponse, error) {
	p, err := decodePayload(raw)
	if err != nil {
		return errorResponse(err), nil
	}
	req := h.defaults
	if v := p.str("agentName", "agent_name"); v != "" {
		req.AgentName = v
	}
	if v := p.str("instruction"); v != "" {
		req.Instruction = v
	}
	if v := p.str("knowledgeBaseId", "knowledge_base_id"); v != "" {
		req.KnowledgeBaseID = v
	}
	if v := p.str("knowledgeBaseDescription"); v != "" {
		req.KnowledgeBaseDescription = v
	}
	override, _, err := h.templates.Resolve(ctx, p.str("basePromptTemplate", "base_prompt_template"))
	if err != nil {
		return errorResponse(err), nil
	}
	req.Override = override

	res, err := h.provisioner.Provision(ctx, req)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonOK(res), nil
}
