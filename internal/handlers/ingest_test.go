package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragagent/internal/agent"
	"ragagent/internal/ingest"
)

func TestIngest(t *testing.T) {
	st, pub := &fakeStarter{}, &fakePublisher{}
	ev := ingest.Event{Records: []events.S3EventRecord{{S3: events.S3Entity{
		Bucket: events.S3Bucket{Name: "docs"},
		Object: events.S3Object{Key: "manual.pdf"},
	}}}}

	resp, err := NewIngestHandler(st, pub).Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "JOB1", body["ingestionJobId"])
	assert.Equal(t, "Ingestion job with ID: JOB1 started", body["result"])
	require.Len(t, st.events, 1)
	require.Len(t, pub.msgs, 1)
}

func TestIngest_Failure(t *testing.T) {
	st := &fakeStarter{err: agent.Remote("StartIngestionJob", errors.New("ConflictException"))}
	pub := &fakePublisher{}

	resp, err := NewIngestHandler(st, pub).Handle(context.Background(), ingest.Event{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, pub.msgs)
}

func TestIngest_TypedNilNotifier(t *testing.T) {
	var pub *fakePublisher
	h := NewIngestHandler(&fakeStarter{}, pub)
	assert.Nil(t, h.notifier)

	resp, err := h.Handle(context.Background(), ingest.Event{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
