package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"ragagent/internal/ingest"
)

type IngestionStarter interface {
	Start(ctx context.Context, ev ingest.Event) (*ingest.JobSummary, error)
}

type IngestHandler struct {
	trigger  IngestionStarter
	notifier Publisher
}

func NewIngestHandler(t IngestionStarter, n Publisher) *IngestHandler {
	h := &IngestHandler{trigger: t}
	if !isNil(n) {
		h.notifier = n
	}
	return h
}

func (h *IngestHandler) Handle(ctx context.Context, ev ingest.Event) (events.APIGatewayV2HTTPResponse, error) {
	s, err := h.trigger.Start(ctx, ev)
	if err != nil {
		return errorResponse(err), nil
	}
	if h.notifier != nil {
		if nerr := h.notifier.Publish(ctx, "Knowledge base ingestion started", s); nerr != nil {
			log.Warn().Err(nerr).Msg("couldn't publish ingestion notification")
		}
	}
	return jsonOK(s), nil
}
