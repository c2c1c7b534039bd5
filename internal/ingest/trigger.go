package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/rs/zerolog/log"

	"ragagent/internal/agent"
)

type Client interface {
	StartIngestionJob(ctx context.Context, params *bedrockagent.StartIngestionJobInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.StartIngestionJobOutput, error)
}

// Event is an S3 upload notification. Time is set when the notification is
// delivered through EventBridge.
type Event struct {
	Time    string                 `json:"time,omitempty"`
	Records []events.S3EventRecord `json:"Records"`
}

type Upload struct {
	Bucket string
	Key    string
}

func (u Upload) URI() string {
	return fmt.Sprintf("s3://%s/%s", u.Bucket, u.Key)
}

// Uploads lists the uploaded objects with their keys URL-decoded.
func (e Event) Uploads() []Upload {
	out := make([]Upload, 0, len(e.Records))
	for _, r := range e.Records {
		key := r.S3.Object.Key
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		out = append(out, Upload{Bucket: r.S3.Bucket.Name, Key: key})
	}
	return out
}

func (e Event) timestamp() string {
	if t := strings.TrimSpace(e.Time); t != "" {
		return t
	}
	for _, r := range e.Records {
		if !r.EventTime.IsZero() {
			return r.EventTime.UTC().Format(time.RFC3339)
		}
	}
	return "no-time"
}

type JobSummary struct {
	JobID     string    `json:"ingestionJobId"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
	Message   string    `json:"result"`
}

// Trigger starts re-indexing of one fixed knowledge base data source.
type Trigger struct {
	client          Client
	knowledgeBaseID string
	dataSourceID    string
}

func NewTrigger(client Client, knowledgeBaseID, dataSourceID string) *Trigger {
	return &Trigger{client: client, knowledgeBaseID: knowledgeBaseID, dataSourceID: dataSourceID}
}

// Start fires exactly one ingestion job. The uploads in ev are only logged
// and described; they never select what gets indexed.
func (t *Trigger) Start(ctx context.Context, ev Event) (*JobSummary, error) {
	logger := log.With().Str("knowledge_base_id", t.knowledgeBaseID).Str("data_source_id", t.dataSourceID).Logger()
	for _, u := range ev.Uploads() {
		logger.Info().Str("object", u.URI()).Msg("new file uploaded")
	}

	out, err := t.client.StartIngestionJob(ctx, &bedrockagent.StartIngestionJobInput{
		KnowledgeBaseId: aws.String(t.knowledgeBaseID),
		DataSourceId:    aws.String(t.dataSourceID),
		Description:     aws.String("Triggered Ingestion - " + ev.timestamp()),
	})
	if err != nil {
		logger.Error().Err(err).Msg("start ingestion job failed")
		return nil, agent.Remote("StartIngestionJob", err)
	}
	if out.IngestionJob == nil {
		return nil, agent.Remote("StartIngestionJob", fmt.Errorf("empty ingestion job in response"))
	}

	job := out.IngestionJob
	s := &JobSummary{
		JobID:     aws.ToString(job.IngestionJobId),
		Status:    string(job.Status),
		StartedAt: aws.ToTime(job.StartedAt),
	}
	s.Message = fmt.Sprintf("Ingestion job with ID: %s started at %s with current status: %s",
		s.JobID, s.StartedAt.UTC().Format(time.RFC3339), s.Status)
	logger.Info().Str("ingestion_job_id", s.JobID).Str("status", s.Status).Msg(s.Message)
	return s, nil
}
