package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ragagent/internal/poll"
)

// Environment keys.
const (
	EnvAgentAlias        = "AGENT_ALIAS_ID"
	EnvKnowledgeBase     = "knowledge_base_id"
	EnvDataSource        = "data_source_id"
	EnvModel             = "MODEL_ID"
	EnvRoleARN           = "AGENT_ROLE_ARN"
	EnvAgentName         = "AGENT_NAME"
	EnvAliasName         = "AGENT_ALIAS_NAME"
	EnvInstruction       = "AGENT_INSTRUCTION"
	EnvPollInterval      = "ROLLOUT_POLL_INTERVAL"
	EnvPollMaxAttempts   = "ROLLOUT_MAX_ATTEMPTS"
	EnvRolloutOnInvoke   = "ROLLOUT_ON_INVOKE"
	EnvPromptTemplateURI = "PROMPT_TEMPLATE_S3_URI"
	EnvRolloutTable      = "ROLLOUT_TABLE"
	EnvNotifyTopic       = "NOTIFY_TOPIC_ARN"
	EnvLogLevel          = "LOG_LEVEL"
)

// AliasRef identifies an agent alias; encoded as "agentId|agentAliasId".
type AliasRef struct {
	AgentID string
	AliasID string
}

func (r AliasRef) String() string { return r.AgentID + "|" + r.AliasID }

// DataSourceRef identifies a knowledge base data source; encoded as
// "knowledgeBaseId|dataSourceId".
type DataSourceRef struct {
	KnowledgeBaseID string
	DataSourceID    string
}

func (r DataSourceRef) String() string { return r.KnowledgeBaseID + "|" + r.DataSourceID }

func ParseAliasRef(s string) (AliasRef, error) {
	a, b, err := splitRef(s)
	if err != nil {
		return AliasRef{}, err
	}
	return AliasRef{AgentID: a, AliasID: b}, nil
}

func ParseDataSourceRef(s string) (DataSourceRef, error) {
	a, b, err := splitRef(s)
	if err != nil {
		return DataSourceRef{}, err
	}
	return DataSourceRef{KnowledgeBaseID: a, DataSourceID: b}, nil
}

// splitRef splits on the first "|"; both halves must be non-empty.
func splitRef(s string) (string, string, error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), "|")
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if !ok || a == "" || b == "" {
		return "", "", fmt.Errorf("expected \"<id>|<subId>\", got %q", s)
	}
	return a, b, nil
}

// Config is resolved once per process and handed to constructors.
type Config struct {
	Alias           AliasRef
	KnowledgeBaseID string
	DataSource      DataSourceRef

	FoundationModel string
	AgentRoleARN    string
	AgentName       string
	AliasName       string
	Instruction     string

	PollInterval    time.Duration
	PollMaxAttempts int
	RolloutOnInvoke bool

	PromptTemplateURI string
	RolloutTable      string
	NotifyTopicARN    string
	LogLevel          string

	set map[string]bool
}

// Load reads every key through getenv, resolving "ssm:" values with params.
// Present but malformed values fail here rather than at first use.
func Load(ctx context.Context, getenv func(string) string, params ParameterClient) (*Config, error) {
	r := &resolver{ctx: ctx, getenv: getenv, params: params}
	c := &Config{
		FoundationModel:   r.str(EnvModel, ""),
		AgentRoleARN:      r.str(EnvRoleARN, ""),
		AgentName:         r.str(EnvAgentName, ""),
		AliasName:         r.str(EnvAliasName, "dev-alias"),
		Instruction:       r.str(EnvInstruction, ""),
		PromptTemplateURI: r.str(EnvPromptTemplateURI, ""),
		RolloutTable:      r.str(EnvRolloutTable, ""),
		NotifyTopicARN:    r.str(EnvNotifyTopic, ""),
		LogLevel:          r.str(EnvLogLevel, "info"),
		PollInterval:      r.duration(EnvPollInterval, 5*time.Second),
		PollMaxAttempts:   r.int(EnvPollMaxAttempts, 120),
		RolloutOnInvoke:   r.bool(EnvRolloutOnInvoke, false),
	}

	if v := r.str(EnvAgentAlias, ""); v != "" {
		ref, err := ParseAliasRef(v)
		if err != nil {
			r.fail(EnvAgentAlias, err)
		}
		c.Alias = ref
	}
	if v := r.str(EnvDataSource, ""); v != "" {
		ref, err := ParseDataSourceRef(v)
		if err != nil {
			r.fail(EnvDataSource, err)
		}
		c.DataSource = ref
	}
	c.KnowledgeBaseID = r.str(EnvKnowledgeBase, c.DataSource.KnowledgeBaseID)

	if c.PollMaxAttempts < 0 {
		r.fail(EnvPollMaxAttempts, fmt.Errorf("must be >= 0"))
	}
	if c.PromptTemplateURI != "" && !strings.HasPrefix(c.PromptTemplateURI, "s3://") {
		r.fail(EnvPromptTemplateURI, fmt.Errorf("must start with s3://"))
	}

	if r.err != nil {
		return nil, r.err
	}
	c.set = r.set
	if c.set == nil {
		c.set = map[string]bool{}
	}
	if c.KnowledgeBaseID != "" {
		c.set[EnvKnowledgeBase] = true
	}
	return c, nil
}

// Require reports the keys among keys that were not configured.
func (c *Config) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if !c.set[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) Poll() poll.Options {
	return poll.Options{Interval: c.PollInterval, MaxAttempts: c.PollMaxAttempts}
}

type resolver struct {
	ctx    context.Context
	getenv func(string) string
	params ParameterClient
	set    map[string]bool
	err    error
}

func (r *resolver) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("config %s: %w", key, err)
	}
}

func (r *resolver) str(key, fallback string) string {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	if name, ok := strings.CutPrefix(v, ssmPrefix); ok {
		resolved, err := resolveParameter(r.ctx, r.params, name)
		if err != nil {
			r.fail(key, err)
			return fallback
		}
		v = resolved
	}
	if r.set == nil {
		r.set = map[string]bool{}
	}
	r.set[key] = true
	return v
}

func (r *resolver) int(key string, fallback int) int {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return n
}

func (r *resolver) bool(key string, fallback bool) bool {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return b
}

// duration accepts Go durations ("750ms") or whole seconds ("5").
func (r *resolver) duration(key string, fallback time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.fail(key, fmt.Errorf("invalid duration %q", v))
		return fallback
	}
	return d
}
