package promptstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"ragagent/internal/agent"
)

// Larger documents are rejected; a prompt template is a few KB.
const maxTemplateBytes = 1 << 20

type Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Template is a loaded prompt document: exactly one of Structured and Flat
// is set.
type Template struct {
	Source     string
	Structured *agent.StructuredTemplate
	Flat       string
}

// Override puts the template on the default orchestration slot.
func (t *Template) Override() agent.PromptOverrideConfig {
	out := agent.DefaultOverride(t.Structured)
	if t.Structured == nil {
		out = out.WithBaseTemplate(t.Flat)
	}
	return out
}

// ParseURI splits "s3://bucket/key".
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs bucket and key: %q", uri)
	}
	return bucket, key, nil
}

func Load(ctx context.Context, s3c Getter, uri string) (*Template, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, &agent.ConfigurationError{Reason: err.Error()}
	}
	out, err := s3c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 GetObject %s: %w", uri, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(out.Body, maxTemplateBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	if len(raw) > maxTemplateBytes {
		return nil, &agent.ConfigurationError{Reason: fmt.Sprintf("template %s exceeds %d bytes", uri, maxTemplateBytes)}
	}

	structured, flat, err := agent.ParseTemplateDocument(raw)
	if err != nil {
		return nil, err
	}
	log.Info().Str("uri", uri).Int("bytes", len(raw)).Bool("structured", structured != nil).Msg("loaded prompt template")
	return &Template{Source: uri, Structured: structured, Flat: flat}, nil
}
