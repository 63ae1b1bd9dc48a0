package locks

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo emulates the document table closely enough to exercise the
// lock manager's conditional updates: upserting acquire, owner-checked
// release, and the expiry-filtered scan.
type mockDynamo struct {
	mu    sync.Mutex
	table map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{table: map[string]map[string]types.AttributeValue{}}
}

func numVal(av types.AttributeValue) int64 {
	n, _ := strconv.ParseInt(av.(*types.AttributeValueMemberN).Value, 10, 64)
	return n
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pk := params.Key["document_id"].(*types.AttributeValueMemberS).Value
	item, exists := m.table[pk]
	if !exists {
		item = map[string]types.AttributeValue{
			"document_id": &types.AttributeValueMemberS{Value: pk},
		}
	}

	if params.ConditionExpression != nil {
		cond := *params.ConditionExpression
		switch {
		case strings.Contains(cond, "attribute_not_exists(locked_by) OR locked_at < :cutoff"):
			_, held := item["locked_by"]
			if held {
				cutoff := numVal(params.ExpressionAttributeValues[":cutoff"])
				lockedAt := numVal(item["locked_at"])
				if lockedAt >= cutoff {
					return nil, &types.ConditionalCheckFailedException{}
				}
			}
		case strings.Contains(cond, "locked_by = :w AND locked_at = :la"):
			by, held := item["locked_by"].(*types.AttributeValueMemberS)
			if !held || by.Value != params.ExpressionAttributeValues[":w"].(*types.AttributeValueMemberS).Value {
				return nil, &types.ConditionalCheckFailedException{}
			}
			if numVal(item["locked_at"]) != numVal(params.ExpressionAttributeValues[":la"]) {
				return nil, &types.ConditionalCheckFailedException{}
			}
		case strings.Contains(cond, "locked_by = :w"):
			by, held := item["locked_by"].(*types.AttributeValueMemberS)
			if !held || by.Value != params.ExpressionAttributeValues[":w"].(*types.AttributeValueMemberS).Value {
				return nil, &types.ConditionalCheckFailedException{}
			}
		default:
			return nil, errors.New("unsupported condition: " + cond)
		}
	}

	expr := ""
	if params.UpdateExpression != nil {
		expr = *params.UpdateExpression
	}
	switch {
	case strings.HasPrefix(expr, "SET locked_by"):
		item["locked_by"] = params.ExpressionAttributeValues[":w"]
		item["locked_at"] = params.ExpressionAttributeValues[":now"]
	case strings.HasPrefix(expr, "REMOVE locked_by"):
		delete(item, "locked_by")
		delete(item, "locked_at")
	default:
		return nil, errors.New("unsupported update: " + expr)
	}

	m.table[pk] = item
	return &dyn.UpdateItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := params.Key["document_id"].(*types.AttributeValueMemberS).Value
	item, ok := m.table[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &dyn.ScanOutput{}
	cutoff := numVal(params.ExpressionAttributeValues[":cutoff"])
	for _, item := range m.table {
		if _, held := item["locked_by"]; !held {
			continue
		}
		if numVal(item["locked_at"]) < cutoff {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	return nil, errors.New("PutItem not supported by this mock")
}
