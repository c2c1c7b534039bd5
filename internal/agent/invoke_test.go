package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	smithyjson "github.com/aws/smithy-go/document/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	ch     chan brtypes.ResponseStream
	err    error
	closed bool
}

func newFakeStream(err error, events ...brtypes.ResponseStream) *fakeStream {
	ch := make(chan brtypes.ResponseStream, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return &fakeStream{ch: ch, err: err}
}

func (s *fakeStream) Events() <-chan brtypes.ResponseStream { return s.ch }
func (s *fakeStream) Close() error                          { s.closed = true; return nil }
func (s *fakeStream) Err() error                            { return s.err }

type fakeStreamer struct {
	stream  *fakeStream
	openErr error
	inputs  []*bedrockagentruntime.InvokeAgentInput
}

func (f *fakeStreamer) InvokeAgentStream(ctx context.Context, in *bedrockagentruntime.InvokeAgentInput) (EventStream, error) {
	f.inputs = append(f.inputs, in)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.stream, nil
}

func chunk(s string) brtypes.ResponseStream {
	return &brtypes.ResponseStreamMemberChunk{Value: brtypes.PayloadPart{Bytes: []byte(s)}}
}

func kbTrace(refs ...brtypes.RetrievedReference) brtypes.ResponseStream {
	return &brtypes.ResponseStreamMemberTrace{Value: brtypes.TracePart{
		Trace: &brtypes.TraceMemberOrchestrationTrace{
			Value: &brtypes.OrchestrationTraceMemberObservation{Value: brtypes.Observation{
				Type:                      brtypes.TypeKnowledgeBase,
				KnowledgeBaseLookupOutput: &brtypes.KnowledgeBaseLookupOutput{RetrievedReferences: refs},
			}},
		},
	}}
}

func ref(uri string) brtypes.RetrievedReference {
	r := brtypes.RetrievedReference{}
	if uri != "" {
		r.Location = &brtypes.RetrievalResultLocation{
			Type:       brtypes.RetrievalResultLocationTypeS3,
			S3Location: &brtypes.RetrievalResultS3Location{Uri: aws.String(uri)},
		}
	}
	return r
}

// wireDoc decodes like a document read off the wire: JSON numbers arrive as
// json.Number.
type wireDoc struct {
	v any
}

func (d wireDoc) UnmarshalSmithyDocument(out any) error {
	return smithyjson.NewDecoder().DecodeJSONInterface(d.v, out)
}

func rationaleTrace() brtypes.ResponseStream {
	return &brtypes.ResponseStreamMemberTrace{Value: brtypes.TracePart{
		Trace: &brtypes.TraceMemberOrchestrationTrace{
			Value: &brtypes.OrchestrationTraceMemberRationale{Value: brtypes.Rationale{Text: aws.String("thinking")}},
		},
	}}
}

func newTestInvoker(s Streamer) *Invoker {
	inv := NewInvoker(s, "AGENT1", "ALIAS1")
	n := 0
	inv.newSessionID = func() string {
		n++
		return []string{"s-1", "s-2", "s-3"}[n-1]
	}
	return inv
}

func TestInvoke_ConcatenatesChunksInOrder(t *testing.T) {
	fs := &fakeStreamer{stream: newFakeStream(nil,
		chunk("The pump "),
		rationaleTrace(),
		chunk("runs at "),
		&brtypes.ResponseStreamMemberReturnControl{},
		chunk("40 psi."),
	)}
	res, err := newTestInvoker(fs).Invoke(context.Background(), InvokeRequest{InputText: "pressure?"})
	require.NoError(t, err)

	assert.Equal(t, "The pump runs at 40 psi.", res.Answer)
	assert.Empty(t, res.Citations)
	assert.NotNil(t, res.Citations)
	assert.True(t, fs.stream.closed)
}

func TestInvoke_CollectsCitationsAcrossTraces(t *testing.T) {
	fs := &fakeStreamer{stream: newFakeStream(nil,
		kbTrace(ref("s3://docs/manual.pdf"), ref("")),
		chunk("answer"),
		kbTrace(ref("s3://docs/faq.pdf")),
	)}
	res, err := newTestInvoker(fs).Invoke(context.Background(), InvokeRequest{InputText: "q"})
	require.NoError(t, err)

	assert.Equal(t, []Citation{
		{Source: "s3://docs/manual.pdf", Page: PageNotAvailable},
		{Source: UnknownSource, Page: PageNotAvailable},
		{Source: "s3://docs/faq.pdf", Page: PageNotAvailable},
	}, res.Citations)
}

func TestPageFrom(t *testing.T) {
	tests := []struct {
		name string
		doc  wireDoc
		want string
	}{
		{name: "integer", doc: wireDoc{json.Number("3")}, want: "3"},
		{name: "float with zero fraction", doc: wireDoc{json.Number("12.0")}, want: "12"},
		{name: "string", doc: wireDoc{"iv"}, want: "iv"},
		{name: "empty string", doc: wireDoc{""}, want: PageNotAvailable},
		{name: "object", doc: wireDoc{map[string]any{"n": json.Number("1")}}, want: PageNotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageFrom(tt.doc))
		})
	}
}

func TestPageOf_MissingMetadata(t *testing.T) {
	assert.Equal(t, PageNotAvailable, pageOf(nil))
	assert.Equal(t, PageNotAvailable, pageOf(map[string]document.Interface{"other": nil}))
	assert.Equal(t, PageNotAvailable, pageOf(map[string]document.Interface{pageMetadataKey: nil}))
}

func TestInvoke_RequestShape(t *testing.T) {
	fs := &fakeStreamer{stream: newFakeStream(nil, chunk("ok"))}
	inv := newTestInvoker(fs)

	vars := map[string]string{"instruction": "be brief", "retrieved_context": "ctx"}
	res, err := inv.Invoke(context.Background(), InvokeRequest{InputText: "hello", Variables: vars})
	require.NoError(t, err)

	require.Len(t, fs.inputs, 1)
	in := fs.inputs[0]
	assert.Equal(t, "AGENT1", aws.ToString(in.AgentId))
	assert.Equal(t, "ALIAS1", aws.ToString(in.AgentAliasId))
	assert.Equal(t, "s-1", aws.ToString(in.SessionId))
	assert.Equal(t, "s-1", res.SessionID)
	assert.Equal(t, "hello", aws.ToString(in.InputText))
	assert.True(t, aws.ToBool(in.EnableTrace))
	require.NotNil(t, in.SessionState)
	assert.Equal(t, vars, in.SessionState.PromptSessionAttributes)
}

func TestInvoke_FreshSessionPerCall(t *testing.T) {
	fs := &fakeStreamer{}
	inv := NewInvoker(fs, "AGENT1", "ALIAS1")

	for i := 0; i < 2; i++ {
		fs.stream = newFakeStream(nil, chunk("x"))
		_, err := inv.Invoke(context.Background(), InvokeRequest{InputText: "q"})
		require.NoError(t, err)
	}
	require.Len(t, fs.inputs, 2)
	assert.NotEqual(t, aws.ToString(fs.inputs[0].SessionId), aws.ToString(fs.inputs[1].SessionId))
	assert.Nil(t, fs.inputs[0].SessionState)
}

func TestInvoke_EmptyInputRejectedBeforeRemoteCall(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		fs := &fakeStreamer{stream: newFakeStream(nil)}
		_, err := newTestInvoker(fs).Invoke(context.Background(), InvokeRequest{InputText: input})

		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "input %q", input)
		assert.Empty(t, fs.inputs)
	}
}

func TestInvoke_StreamFaultDiscardsPartialAnswer(t *testing.T) {
	fault := errors.New("throttled mid-stream")
	fs := &fakeStreamer{stream: newFakeStream(fault, chunk("partial "), kbTrace(ref("s3://a")))}

	res, err := newTestInvoker(fs).Invoke(context.Background(), InvokeRequest{InputText: "q"})
	assert.Nil(t, res)

	var re *RemoteServiceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "InvokeAgent", re.Op)
	assert.ErrorIs(t, err, fault)
	assert.True(t, fs.stream.closed)
}

func TestInvoke_OpenFault(t *testing.T) {
	fs := &fakeStreamer{openErr: errors.New("access denied")}
	_, err := newTestInvoker(fs).Invoke(context.Background(), InvokeRequest{InputText: "q"})

	var re *RemoteServiceError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, err.Error(), "access denied")
}

func TestDecodeEvent(t *testing.T) {
	assert.Equal(t, ContentChunk{Text: "hi"}, DecodeEvent(chunk("hi")))
	assert.Equal(t, OtherTrace{Kind: "orchestration"}, DecodeEvent(rationaleTrace()))
	assert.Nil(t, DecodeEvent(&brtypes.ResponseStreamMemberReturnControl{}))

	finish := &brtypes.ResponseStreamMemberTrace{Value: brtypes.TracePart{
		Trace: &brtypes.TraceMemberOrchestrationTrace{
			Value: &brtypes.OrchestrationTraceMemberObservation{Value: brtypes.Observation{Type: brtypes.TypeFinish}},
		},
	}}
	assert.Equal(t, OtherTrace{Kind: "observation:finish"}, DecodeEvent(finish))

	pre := &brtypes.ResponseStreamMemberTrace{Value: brtypes.TracePart{
		Trace: &brtypes.TraceMemberPreProcessingTrace{},
	}}
	assert.Equal(t, OtherTrace{Kind: "pre_processing"}, DecodeEvent(pre))
}
