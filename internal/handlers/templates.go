package handlers

import (
	"context"

	"github.com/rs/zerolog/log"

	"ragagent/internal/agent"
	"ragagent/internal/promptstore"
)

// Template sources recorded with each rollout.
const (
	SourcePayload = "payload"
	SourceDefault = "default"
)

// TemplateSource picks the prompt override for a rollout: a template in the
// request wins, then the configured S3 document, then the built-in default.
type TemplateSource struct {
	S3  promptstore.Getter
	URI string
}

func (ts TemplateSource) Resolve(ctx context.Context, fromPayload string) (agent.PromptOverrideConfig, string, error) {
	if fromPayload != "" {
		structured, flat, err := agent.ParseTemplateDocument([]byte(fromPayload))
		if err != nil {
			return agent.PromptOverrideConfig{}, "", err
		}
		t := promptstore.Template{Source: SourcePayload, Structured: structured, Flat: flat}
		return t.Override(), SourcePayload, nil
	}
	if ts.URI != "" && ts.S3 != nil {
		t, err := promptstore.Load(ctx, ts.S3, ts.URI)
		if err != nil {
			return agent.PromptOverrideConfig{}, "", err
		}
		return t.Override(), t.Source, nil
	}
	log.Debug().Msg("using built-in orchestration template")
	return agent.DefaultOverride(agent.DefaultOrchestrationTemplate()), SourceDefault, nil
}
