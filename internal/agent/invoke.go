package agent

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventStream is a single-pass response stream. *bedrockagentruntime.InvokeAgentEventStream
// satisfies it.
type EventStream interface {
	Events() <-chan brtypes.ResponseStream
	Close() error
	Err() error
}

type Streamer interface {
	InvokeAgentStream(ctx context.Context, params *bedrockagentruntime.InvokeAgentInput) (EventStream, error)
}

type InvokeAgentAPI interface {
	InvokeAgent(ctx context.Context, params *bedrockagentruntime.InvokeAgentInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeAgentOutput, error)
}

// RuntimeStreamer opens response streams through the agent runtime client.
type RuntimeStreamer struct {
	client InvokeAgentAPI
}

func NewRuntimeStreamer(client InvokeAgentAPI) *RuntimeStreamer {
	return &RuntimeStreamer{client: client}
}

func (r *RuntimeStreamer) InvokeAgentStream(ctx context.Context, params *bedrockagentruntime.InvokeAgentInput) (EventStream, error) {
	out, err := r.client.InvokeAgent(ctx, params)
	if err != nil {
		return nil, err
	}
	return out.GetStream(), nil
}

type InvokeRequest struct {
	InputText string
	// Variables are sent as prompt session attributes.
	Variables map[string]string
}

type InvocationResult struct {
	SessionID string     `json:"-"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Invoker runs single-turn conversations against one agent alias. Every call
// gets its own session.
type Invoker struct {
	streamer     Streamer
	agentID      string
	aliasID      string
	newSessionID func() string
}

func NewInvoker(streamer Streamer, agentID, aliasID string) *Invoker {
	return &Invoker{
		streamer:     streamer,
		agentID:      agentID,
		aliasID:      aliasID,
		newSessionID: uuid.NewString,
	}
}

// Invoke sends req.InputText in a fresh session and drains the response
// stream. On any stream fault the partial answer is dropped.
func (inv *Invoker) Invoke(ctx context.Context, req InvokeRequest) (*InvocationResult, error) {
	if strings.TrimSpace(req.InputText) == "" {
		return nil, &ValidationError{Field: "prompt", Message: "input text is empty"}
	}

	sessionID := inv.newSessionID()
	logger := log.With().Str("agent_id", inv.agentID).Str("alias_id", inv.aliasID).Str("session_id", sessionID).Logger()

	in := &bedrockagentruntime.InvokeAgentInput{
		AgentId:      aws.String(inv.agentID),
		AgentAliasId: aws.String(inv.aliasID),
		SessionId:    aws.String(sessionID),
		InputText:    aws.String(req.InputText),
		EnableTrace:  aws.Bool(true),
	}
	if len(req.Variables) > 0 {
		in.SessionState = &brtypes.SessionState{PromptSessionAttributes: req.Variables}
	}

	logger.Info().Msg("invoking agent")
	stream, err := inv.streamer.InvokeAgentStream(ctx, in)
	if err != nil {
		logger.Error().Err(err).Msg("couldn't invoke agent")
		return nil, Remote("InvokeAgent", err)
	}
	defer stream.Close()

	var answer strings.Builder
	citations := []Citation{}
	chunks := 0
	for raw := range stream.Events() {
		switch ev := DecodeEvent(raw).(type) {
		case ContentChunk:
			chunks++
			answer.WriteString(ev.Text)
		case KnowledgeBaseLookup:
			logger.Debug().Int("references", len(ev.Citations)).Msg("trace: knowledge base lookup")
			citations = append(citations, ev.Citations...)
		case OtherTrace:
			logger.Debug().Str("kind", ev.Kind).Msg("trace")
		}
	}
	if err := stream.Err(); err != nil {
		logger.Error().Err(err).Int("chunks", chunks).Msg("agent response stream failed")
		return nil, Remote("InvokeAgent", err)
	}

	logger.Info().Int("chunks", chunks).Int("citations", len(citations)).Msg("agent invocation complete")
	return &InvocationResult{
		SessionID: sessionID,
		Answer:    answer.String(),
		Citations: citations,
	}, nil
}
