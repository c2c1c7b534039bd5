package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Fixed width so SK sorts lexically in time order.
const skTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Outcome values stored on a record.
const (
	OutcomeActivated = "ACTIVATED"
	OutcomeFailed    = "FAILED"
)

// Record is one rollout attempt. A FAILED record carries the step error so a
// later status call can tell a half-applied rollout from a clean one.
type Record struct {
	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	AgentID         string `dynamodbav:"AgentId" json:"agentId"`
	AliasID         string `dynamodbav:"AliasId" json:"aliasId"`
	AliasName       string `dynamodbav:"AliasName" json:"aliasName"`
	Outcome         string `dynamodbav:"Outcome" json:"outcome"`
	Version         string `dynamodbav:"Version,omitempty" json:"version,omitempty"`
	PreparedVersion string `dynamodbav:"PreparedVersion,omitempty" json:"preparedVersion,omitempty"`
	TemplateSource  string `dynamodbav:"TemplateSource,omitempty" json:"templateSource,omitempty"`
	Error           string `dynamodbav:"Error,omitempty" json:"error,omitempty"`
	StatusChecks    int    `dynamodbav:"StatusChecks" json:"statusChecks"`
	CreatedAt       string `dynamodbav:"CreatedAt" json:"createdAt"`
}

func AgentPK(agentID string) string {
	return "AGENT#" + agentID
}

// Store keeps rollout records per agent. A Store with no table is a no-op.
type Store struct {
	client Client
	table  string
	now    func() time.Time
}

func NewStore(client Client, table string) *Store {
	return &Store{client: client, table: strings.TrimSpace(table), now: time.Now}
}

func (s *Store) Enabled() bool {
	return s != nil && s.client != nil && s.table != ""
}

func (s *Store) Record(ctx context.Context, r Record) error {
	if !s.Enabled() {
		return nil
	}
	if strings.TrimSpace(r.AgentID) == "" {
		return fmt.Errorf("history record: agent id is required")
	}
	now := s.now().UTC()
	r.PK = AgentPK(r.AgentID)
	r.SK = "ROLLOUT#" + now.Format(skTimeLayout)
	r.CreatedAt = now.Format(time.RFC3339)

	av, err := attributevalue.MarshalMap(r)
	if err != nil {
		return fmt.Errorf("history marshal: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("history PutItem: %w", err)
	}
	return nil
}

// Latest returns the newest record for agentID, or nil when there is none.
func (s *Store) Latest(ctx context.Context, agentID string) (*Record, error) {
	if !s.Enabled() {
		return nil, nil
	}
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :pref)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: AgentPK(agentID)},
			":pref": &types.AttributeValueMemberS{Value: "ROLLOUT#"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("history Query: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var r Record
	if err := attributevalue.UnmarshalMap(out.Items[0], &r); err != nil {
		return nil, fmt.Errorf("history unmarshal: %w", err)
	}
	return &r, nil
}
