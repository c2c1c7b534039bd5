package handlers

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"ragagent/internal/agent"
	"ragagent/internal/history"
)

type Activator interface {
	ApplyAndActivate(ctx context.Context, override agent.PromptOverrideConfig, aliasName string) (*agent.AgentVersion, error)
}

type Recorder interface {
	Record(ctx context.Context, r history.Record) error
}

type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type RolloutHandler struct {
	activator Activator
	templates TemplateSource
	history   Recorder
	notifier  Publisher

	agentID   string
	aliasID   string
	aliasName string
}

type RolloutDeps struct {
	Activator Activator
	Templates TemplateSource
	History   Recorder
	Notifier  Publisher
	AgentID   string
	AliasID   string
	AliasName string
}

func NewRolloutHandler(d RolloutDeps) *RolloutHandler {
	h := &RolloutHandler{
		activator: d.Activator,
		templates: d.Templates,
		agentID:   d.AgentID,
		aliasID:   d.AliasID,
		aliasName: d.AliasName,
	}
	if !isNil(d.History) {
		h.history = d.History
	}
	if !isNil(d.Notifier) {
		h.notifier = d.Notifier
	}
	return h
}

// Run resolves the prompt template, rolls it out and records the outcome.
// History and notification failures are logged and never fail the rollout.
func (h *RolloutHandler) Run(ctx context.Context, template, aliasName string) (*agent.AgentVersion, error) {
	if aliasName == "" {
		aliasName = h.aliasName
	}
	override, source, err := h.templates.Resolve(ctx, template)
	if err != nil {
		return nil, err
	}

	ver, err := h.activator.ApplyAndActivate(ctx, override, aliasName)
	rec := history.Record{
		AgentID:        h.agentID,
		AliasID:        h.aliasID,
		AliasName:      aliasName,
		TemplateSource: source,
	}
	subject := "Agent rollout complete"
	if err != nil {
		rec.Outcome = history.OutcomeFailed
		rec.Error = err.Error()
		subject = "Agent rollout failed"
	} else {
		rec.Outcome = history.OutcomeActivated
		rec.Version = ver.Version
		rec.PreparedVersion = ver.PreparedVersion
		rec.StatusChecks = ver.StatusChecks
	}
	if h.history != nil {
		if herr := h.history.Record(ctx, rec); herr != nil {
			log.Warn().Err(herr).Msg("couldn't record rollout")
		}
	}
	if h.notifier != nil {
		if nerr := h.notifier.Publish(ctx, subject, rec); nerr != nil {
			log.Warn().Err(nerr).Msg("couldn't publish rollout notification")
		}
	}
	return ver, err
}

type rolloutRequest struct {
	BasePromptTemplate string
	AliasName          string
}

func (h *RolloutHandler) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayV2HTTPResponse, error) {
	p, err := decodePayload(raw)
	if err != nil {
		return errorResponse(err), nil
	}
	req := rolloutRequest{
		BasePromptTemplate: p.str("basePromptTemplate", "base_prompt_template"),
		AliasName:          p.str("aliasName", "alias_name"),
	}
	ver, err := h.Run(ctx, req.BasePromptTemplate, req.AliasName)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonOK(ver), nil
}
