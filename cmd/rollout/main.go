package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"ragagent/internal/agent"
	appcfg "ragagent/internal/config"
	"ragagent/internal/handlers"
	"ragagent/internal/history"
	"ragagent/internal/logging"
	"ragagent/internal/notify"
)

func main() {
	ctx := context.Background()
	logging.Setup(os.Getenv(appcfg.EnvLogLevel))

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load aws config")
	}
	c, err := appcfg.Load(ctx, os.Getenv, ssm.NewFromConfig(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(c.LogLevel)
	if err := c.Require(appcfg.EnvAgentAlias, appcfg.EnvModel, appcfg.EnvRoleARN, appcfg.EnvAgentName); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	coord := agent.NewCoordinator(bedrockagent.NewFromConfig(cfg), agent.AgentSettings{
		AgentID:         c.Alias.AgentID,
		AliasID:         c.Alias.AliasID,
		AgentName:       c.AgentName,
		FoundationModel: c.FoundationModel,
		RoleARN:         c.AgentRoleARN,
		Instruction:     c.Instruction,
	}, c.Poll())

	h := handlers.NewRolloutHandler(handlers.RolloutDeps{
		Activator: coord,
		Templates: handlers.TemplateSource{S3: s3.NewFromConfig(cfg), URI: c.PromptTemplateURI},
		History:   history.NewStore(dynamodb.NewFromConfig(cfg), c.RolloutTable),
		Notifier:  notify.New(sns.NewFromConfig(cfg), c.NotifyTopicARN),
		AgentID:   c.Alias.AgentID,
		AliasID:   c.Alias.AliasID,
		AliasName: c.AliasName,
	})
	lambda.Start(h.Handle)
}
