package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"ragagent/internal/agent"
	appcfg "ragagent/internal/config"
	"ragagent/internal/handlers"
	"ragagent/internal/logging"
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
	if err := c.Require(appcfg.EnvModel, appcfg.EnvRoleARN); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	h := handlers.NewProvisionHandler(
		agent.NewProvisioner(bedrockagent.NewFromConfig(cfg)),
		handlers.TemplateSource{S3: s3.NewFromConfig(cfg), URI: c.PromptTemplateURI},
		agent.ProvisionRequest{
			AgentName:       c.AgentName,
			FoundationModel: c.FoundationModel,
			RoleARN:         c.AgentRoleARN,
			Instruction:     c.Instruction,
			KnowledgeBaseID: c.KnowledgeBaseID,
		},
	)
	lambda.Start(h.Handle)
}
