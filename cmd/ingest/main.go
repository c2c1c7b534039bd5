package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	appcfg "ragagent/internal/config"
	"ragagent/internal/handlers"
	"ragagent/internal/ingest"
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
	if err := c.Require(appcfg.EnvKnowledgeBase, appcfg.EnvDataSource); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	trigger := ingest.NewTrigger(bedrockagent.NewFromConfig(cfg), c.KnowledgeBaseID, c.DataSource.DataSourceID)
	h := handlers.NewIngestHandler(trigger, notify.New(sns.NewFromConfig(cfg), c.NotifyTopicARN))
	lambda.Start(h.Handle)
}
