package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	batypes "github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/rs/zerolog/log"

	"ragagent/internal/poll"
)

// DraftVersion is the working version PrepareAgent reports for the agent.
const DraftVersion = "DRAFT"

// ControlPlane is the subset of the bedrockagent client the coordinator uses.
type ControlPlane interface {
	UpdateAgent(ctx context.Context, params *bedrockagent.UpdateAgentInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.UpdateAgentOutput, error)
	PrepareAgent(ctx context.Context, params *bedrockagent.PrepareAgentInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.PrepareAgentOutput, error)
	GetAgent(ctx context.Context, params *bedrockagent.GetAgentInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetAgentOutput, error)
	UpdateAgentAlias(ctx context.Context, params *bedrockagent.UpdateAgentAliasInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.UpdateAgentAliasOutput, error)
}

// AgentSettings are the externally supplied values sent with every agent
// update. Instruction is optional.
type AgentSettings struct {
	AgentID         string
	AliasID         string
	AgentName       string
	FoundationModel string
	RoleARN         string
	Instruction     string
}

// AgentVersion is the outcome of a rollout: the version the alias routes to.
type AgentVersion struct {
	AgentID         string    `json:"agentId"`
	AliasID         string    `json:"aliasId"`
	AliasName       string    `json:"aliasName"`
	Version         string    `json:"version"`
	PreparedVersion string    `json:"preparedVersion"`
	PreparedAt      time.Time `json:"preparedAt"`
	StatusChecks    int       `json:"statusChecks"`
}

// Coordinator applies a prompt override to an agent and moves an alias onto
// the resulting prepared version.
type Coordinator struct {
	cp       ControlPlane
	settings AgentSettings
	poll     poll.Options
}

func NewCoordinator(cp ControlPlane, settings AgentSettings, opts poll.Options) *Coordinator {
	return &Coordinator{cp: cp, settings: settings, poll: opts}
}

// ApplyAndActivate updates the agent with override, prepares it, waits for
// the PREPARED status and repoints aliasName at the new version. Steps are
// not retried or rolled back: a failure part way leaves the agent updated
// and the alias where it was.
func (c *Coordinator) ApplyAndActivate(ctx context.Context, override PromptOverrideConfig, aliasName string) (*AgentVersion, error) {
	poc, err := override.ToSDK()
	if err != nil {
		return nil, err
	}
	aliasName = strings.TrimSpace(aliasName)
	if aliasName == "" {
		return nil, &ValidationError{Field: "aliasName", Message: "alias name is required"}
	}

	s := c.settings
	logger := log.With().Str("agent_id", s.AgentID).Str("alias_id", s.AliasID).Logger()

	// (a) update
	in := &bedrockagent.UpdateAgentInput{
		AgentId:                     aws.String(s.AgentID),
		AgentName:                   aws.String(s.AgentName),
		FoundationModel:             aws.String(s.FoundationModel),
		AgentResourceRoleArn:        aws.String(s.RoleARN),
		PromptOverrideConfiguration: poc,
	}
	if s.Instruction != "" {
		in.Instruction = aws.String(s.Instruction)
	}
	logger.Info().Int("prompt_configurations", len(poc.PromptConfigurations)).Msg("updating agent with prompt override configuration")
	if _, err := c.cp.UpdateAgent(ctx, in); err != nil {
		logger.Error().Err(err).Msg("update agent failed")
		return nil, Remote("UpdateAgent", err)
	}

	// (b) prepare
	logger.Info().Msg("preparing agent version")
	prep, err := c.cp.PrepareAgent(ctx, &bedrockagent.PrepareAgentInput{AgentId: aws.String(s.AgentID)})
	if err != nil {
		logger.Error().Err(err).Msg("prepare agent failed")
		return nil, Remote("PrepareAgent", err)
	}
	prepared := aws.ToString(prep.AgentVersion)

	// (c) wait
	out := &AgentVersion{
		AgentID:         s.AgentID,
		AliasID:         s.AliasID,
		AliasName:       aliasName,
		PreparedVersion: prepared,
	}
	err = poll.Until(ctx, c.poll, func(ctx context.Context, attempt int) (bool, error) {
		out.StatusChecks = attempt
		got, err := c.cp.GetAgent(ctx, &bedrockagent.GetAgentInput{AgentId: aws.String(s.AgentID)})
		if err != nil {
			return false, Remote("GetAgent", err)
		}
		if got.Agent == nil {
			return false, Remote("GetAgent", errEmpty("agent"))
		}
		status := got.Agent.AgentStatus
		logger.Debug().Int("attempt", attempt).Str("status", string(status)).Msg("agent status")
		switch status {
		case batypes.AgentStatusPrepared:
			out.PreparedAt = aws.ToTime(got.Agent.PreparedAt)
			return true, nil
		case batypes.AgentStatusFailed:
			return false, Remote("GetAgent", fmt.Errorf("agent preparation failed: %s", strings.Join(got.Agent.FailureReasons, "; ")))
		default:
			return false, nil
		}
	})
	if err != nil {
		logger.Error().Err(err).Int("status_checks", out.StatusChecks).Msg("waiting for prepared agent failed")
		// Check errors are already remote; an exhausted budget or a
		// cancelled ctx is returned as is.
		return nil, err
	}

	// (d) realias
	aliasIn := &bedrockagent.UpdateAgentAliasInput{
		AgentId:        aws.String(s.AgentID),
		AgentAliasId:   aws.String(s.AliasID),
		AgentAliasName: aws.String(aliasName),
	}
	// Routing to DRAFT is not allowed; leaving routing unset makes the
	// service snapshot the draft into a new numbered version.
	if prepared != "" && prepared != DraftVersion {
		aliasIn.RoutingConfiguration = []batypes.AgentAliasRoutingConfigurationListItem{
			{AgentVersion: aws.String(prepared)},
		}
	}
	logger.Info().Str("alias_name", aliasName).Str("prepared_version", prepared).Msg("updating agent alias to new version")
	aliasOut, err := c.cp.UpdateAgentAlias(ctx, aliasIn)
	if err != nil {
		logger.Error().Err(err).Msg("update agent alias failed")
		return nil, Remote("UpdateAgentAlias", err)
	}

	out.Version = prepared
	if aliasOut.AgentAlias != nil {
		for _, r := range aliasOut.AgentAlias.RoutingConfiguration {
			if v := aws.ToString(r.AgentVersion); v != "" {
				out.Version = v
				break
			}
		}
	}
	logger.Info().Str("version", out.Version).Int("status_checks", out.StatusChecks).Msg("alias now routes to prepared version")
	return out, nil
}
