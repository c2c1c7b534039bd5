package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"
)

type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier sends rollout and ingestion outcomes to one SNS topic. With no
// topic configured it does nothing.
type Notifier struct {
	client   Publisher
	topicARN string
}

func New(client Publisher, topicARN string) *Notifier {
	return &Notifier{client: client, topicARN: strings.TrimSpace(topicARN)}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.client != nil && n.topicARN != ""
}

// Publish sends payload as a JSON message. SNS caps subjects at 100 bytes.
func (n *Notifier) Publish(ctx context.Context, subject string, payload any) error {
	if !n.Enabled() {
		return nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	subject = truncateSubject(subject)
	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(b)),
	})
	if err != nil {
		return fmt.Errorf("sns Publish: %w", err)
	}
	log.Debug().Str("message_id", aws.ToString(out.MessageId)).Str("subject", subject).Msg("notification published")
	return nil
}

const maxSubjectBytes = 100

// truncateSubject cuts s to the SNS limit without splitting a character.
func truncateSubject(s string) string {
	if len(s) <= maxSubjectBytes {
		return s
	}
	cut := maxSubjectBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
