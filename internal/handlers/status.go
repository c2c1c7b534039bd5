package handlers

import (
	"context"
	"slices"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"ragagent/internal/agent"
	"ragagent/internal/history"
)

type LatestReader interface {
	Latest(ctx context.Context, agentID string) (*history.Record, error)
}

type StatusHandler struct {
	client  agent.StatusClient
	history LatestReader
	agentID string
	aliasID string
}

func NewStatusHandler(c agent.StatusClient, h LatestReader, agentID, aliasID string) *StatusHandler {
	sh := &StatusHandler{client: c, agentID: agentID, aliasID: aliasID}
	if !isNil(h) {
		sh.history = h
	}
	return sh
}

type StatusResponse struct {
	Agent       *agent.Status   `json:"agent"`
	LastRollout *history.Record `json:"lastRollout"`
	// InSync is false when the last recorded rollout failed or the alias no
	// longer routes to the version it activated.
	InSync bool `json:"inSync"`
}

func (h *StatusHandler) Handle(ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	st, err := agent.Describe(ctx, h.client, h.agentID, h.aliasID)
	if err != nil {
		return errorResponse(err), nil
	}
	resp := StatusResponse{Agent: st, InSync: true}
	if h.history != nil {
		rec, err := h.history.Latest(ctx, h.agentID)
		if err != nil {
			log.Warn().Err(err).Msg("couldn't read rollout history")
		}
		resp.LastRollout = rec
	}
	if r := resp.LastRollout; r != nil {
		resp.InSync = r.Outcome == history.OutcomeActivated && slices.Contains(st.AliasVersions, r.Version)
	}
	return jsonOK(resp), nil
}
