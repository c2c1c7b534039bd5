package agent

import (
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	smithydocument "github.com/aws/smithy-go/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// Sentinels used when a retrieved reference lacks a location or page.
const (
	UnknownSource    = "Unknown source"
	PageNotAvailable = "N/A"

	pageMetadataKey = "x-amz-bedrock-kb-document-page-number"
)

type Citation struct {
	Source string `json:"source"`
	Page   string `json:"page"`
}

// Event is one decoded element of an agent response stream: ContentChunk,
// KnowledgeBaseLookup or OtherTrace.
type Event interface {
	isEvent()
}

// ContentChunk is answer text in arrival order.
type ContentChunk struct {
	Text string
}

// KnowledgeBaseLookup is an observation trace carrying retrieved references.
type KnowledgeBaseLookup struct {
	Citations []Citation
}

// OtherTrace is any trace that does not contribute citations.
type OtherTrace struct {
	Kind string
}

func (ContentChunk) isEvent()        {}
func (KnowledgeBaseLookup) isEvent() {}
func (OtherTrace) isEvent()          {}

// DecodeEvent maps a raw stream member onto Event. It returns nil for
// members that are neither chunks nor traces.
func DecodeEvent(raw brtypes.ResponseStream) Event {
	switch v := raw.(type) {
	case *brtypes.ResponseStreamMemberChunk:
		return ContentChunk{Text: string(v.Value.Bytes)}
	case *brtypes.ResponseStreamMemberTrace:
		return decodeTrace(v.Value.Trace)
	default:
		return nil
	}
}

func decodeTrace(t brtypes.Trace) Event {
	switch v := t.(type) {
	case *brtypes.TraceMemberOrchestrationTrace:
		obs, ok := v.Value.(*brtypes.OrchestrationTraceMemberObservation)
		if !ok {
			return OtherTrace{Kind: "orchestration"}
		}
		if obs.Value.Type != brtypes.TypeKnowledgeBase || obs.Value.KnowledgeBaseLookupOutput == nil {
			return OtherTrace{Kind: "observation:" + strings.ToLower(string(obs.Value.Type))}
		}
		refs := obs.Value.KnowledgeBaseLookupOutput.RetrievedReferences
		lookup := KnowledgeBaseLookup{Citations: make([]Citation, 0, len(refs))}
		for _, ref := range refs {
			lookup.Citations = append(lookup.Citations, citationOf(ref))
		}
		return lookup
	case *brtypes.TraceMemberPreProcessingTrace:
		return OtherTrace{Kind: "pre_processing"}
	case *brtypes.TraceMemberPostProcessingTrace:
		return OtherTrace{Kind: "post_processing"}
	case *brtypes.TraceMemberGuardrailTrace:
		return OtherTrace{Kind: "guardrail"}
	case *brtypes.TraceMemberFailureTrace:
		return OtherTrace{Kind: "failure"}
	default:
		return OtherTrace{Kind: "unknown"}
	}
}

func citationOf(ref brtypes.RetrievedReference) Citation {
	c := Citation{Source: UnknownSource, Page: pageOf(ref.Metadata)}
	if ref.Location != nil && ref.Location.S3Location != nil {
		if uri := aws.ToString(ref.Location.S3Location.Uri); uri != "" {
			c.Source = uri
		}
	}
	return c
}

func pageOf(meta map[string]document.Interface) string {
	d, ok := meta[pageMetadataKey]
	if !ok || d == nil {
		return PageNotAvailable
	}
	return pageFrom(d)
}

// pageFrom renders a page number document; numbers lose any trailing ".0".
func pageFrom(d smithydocument.Unmarshaler) string {
	var f float64
	if err := d.UnmarshalSmithyDocument(&f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	var s string
	if err := d.UnmarshalSmithyDocument(&s); err == nil && s != "" {
		return s
	}
	return PageNotAvailable
}
