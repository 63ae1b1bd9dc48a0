package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/aws"
)

// Store encapsulates the durable artifact table (write-once PDF records) and
// the append-only access audit table.
type Store struct {
	client     aws.DynamoDBAPI
	tableName  string
	auditTable string
	nowFunc    func() time.Time
}

// NewStore returns a configured Store.
func NewStore(client aws.DynamoDBAPI, tableName, auditTable string) *Store {
	return &Store{
		client:     client,
		tableName:  tableName,
		auditTable: auditTable,
		nowFunc:    time.Now,
	}
}

// Get retrieves an artifact by key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Artifact, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"artifact_key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var a Artifact
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal artifact: %w", err)
	}
	return &a, nil
}

// CreateIfNotExists records a freshly generated artifact. The conditional put
// keeps the row write-once: if another worker already published for the same
// key, (created=false, nil) is returned and the existing row stands.
func (s *Store) CreateIfNotExists(ctx context.Context, a Artifact) (bool, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.nowFunc()
	}
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return false, fmt.Errorf("marshal artifact: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(artifact_key)"),
	})
	if err != nil {
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			return false, nil
		}
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return false, nil
		}
		return false, fmt.Errorf("put artifact: %w", err)
	}
	return true, nil
}

// AppendAccess writes one audit row. Rows are never updated or deleted; the
// trail survives independently of the artifact's lifecycle.
func (s *Store) AppendAccess(ctx context.Context, rec AccessRecord) error {
	if rec.AuditID == "" {
		rec.AuditID = uuid.NewString()
	}
	if rec.AccessedAt.IsZero() {
		rec.AccessedAt = s.nowFunc()
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal access record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.auditTable,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put access record: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
