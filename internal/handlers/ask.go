package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"ragagent/internal/agent"
)

const missingPrompt = "Missing 'prompt' in the input."

type Invoker interface {
	Invoke(ctx context.Context, req agent.InvokeRequest) (*agent.InvocationResult, error)
}

type AskHandler struct {
	invoker Invoker
	// rollout is optional; when set, a request carrying basePromptTemplate
	// (or every request, with rolloutAlways) is rolled out before invoking.
	rollout       *RolloutHandler
	rolloutAlways bool
}

func NewAskHandler(inv Invoker, rollout *RolloutHandler, rolloutAlways bool) *AskHandler {
	return &AskHandler{invoker: inv, rollout: rollout, rolloutAlways: rolloutAlways}
}

type AskRequest struct {
	Prompt             string
	Instruction        string
	RetrievedContext   string
	AnomalyContext     string
	BasePromptTemplate string
}

func parseAskRequest(p payload) AskRequest {
	return AskRequest{
		Prompt:             p.str("prompt", "question"),
		Instruction:        p.str("instruction"),
		RetrievedContext:   p.str("RETRIEVED_CONTEXT", "retrieved_context"),
		AnomalyContext:     p.str("ANOMALY_CONTEXT", "anomaly_context"),
		BasePromptTemplate: p.str("basePromptTemplate", "base_prompt_template"),
	}
}

// variables are the prompt session attributes the orchestration template can
// reference by name.
func (r AskRequest) variables() map[string]string {
	return map[string]string{
		"instruction":       r.Instruction,
		"retrieved_context": r.RetrievedContext,
		"anomaly_context":   r.AnomalyContext,
	}
}

func (h *AskHandler) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayV2HTTPResponse, error) {
	p, err := decodePayload(raw)
	if err != nil {
		return errorResponse(err), nil
	}
	req := parseAskRequest(p)
	if req.Prompt == "" {
		return textResp(http.StatusBadRequest, missingPrompt), nil
	}

	if h.rollout != nil && (h.rolloutAlways || req.BasePromptTemplate != "") {
		ver, err := h.rollout.Run(ctx, req.BasePromptTemplate, "")
		if err != nil {
			return errorResponse(err), nil
		}
		log.Info().Str("version", ver.Version).Msg("rolled out prompt before invocation")
	}

	res, err := h.invoker.Invoke(ctx, agent.InvokeRequest{
		InputText: req.Prompt,
		Variables: req.variables(),
	})
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonOK(res), nil
}
