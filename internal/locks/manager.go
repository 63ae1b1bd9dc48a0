package locks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/aws"
)

// DefaultTimeout bounds how long a crashed holder can keep a document locked.
const DefaultTimeout = 300 * time.Second

// Manager provides per-document exclusive locks over the case-documents
// table. A lock is the pair (locked_by, locked_at) on the document row;
// absence of locked_by means unlocked. Expiry is evaluated lazily inside the
// acquire/cleanup condition expressions, never by a background timer, so the
// backing store's conditional update is the only concurrency control needed.
type Manager struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewManager returns a lock Manager over the given document table.
func NewManager(client aws.DynamoDBAPI, tableName string) *Manager {
	return &Manager{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Acquire attempts to take the document lock for workerID. It succeeds only
// if the document is unlocked or its existing lock has expired, decided by a
// single conditional update (no read-then-write window). Contention returns
// (false, nil): an expected outcome, not an error. The document row is
// created implicitly on first acquisition.
func (m *Manager) Acquire(ctx context.Context, documentID, workerID string, timeout time.Duration) (bool, error) {
	if documentID == "" || workerID == "" {
		return false, errors.New("acquire: document id and worker id are required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	now := m.nowFunc()
	cutoff := now.Add(-timeout)

	_, err := m.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &m.tableName,
		Key: map[string]types.AttributeValue{
			"document_id": &types.AttributeValueMemberS{Value: documentID},
		},
		UpdateExpression:    awsString("SET locked_by = :w, locked_at = :now"),
		ConditionExpression: awsString("attribute_not_exists(locked_by) OR locked_at < :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":w":      &types.AttributeValueMemberS{Value: workerID},
			":now":    &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff.Unix(), 10)},
		},
	})
	if err != nil {
		if isConditionalFailure(err) {
			return false, nil
		}
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return true, nil
}

// Release clears the lock if workerID holds it. Releasing an unlocked or
// foreign-locked document is a no-op for the caller, but it is logged: a
// caller that believed it owned the lock is a bug signal worth surfacing.
func (m *Manager) Release(ctx context.Context, documentID, workerID string) error {
	_, err := m.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &m.tableName,
		Key: map[string]types.AttributeValue{
			"document_id": &types.AttributeValueMemberS{Value: documentID},
		},
		UpdateExpression:    awsString("REMOVE locked_by, locked_at"),
		ConditionExpression: awsString("locked_by = :w"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":w": &types.AttributeValueMemberS{Value: workerID},
		},
	})
	if err != nil {
		if isConditionalFailure(err) {
			log.Printf("[locks] release no-op: document=%s worker=%s does not hold the lock", documentID, workerID)
			return nil
		}
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// IsLocked reports whether the document currently holds an unexpired lock.
// Read-only and best-effort: checking implies no lock.
func (m *Manager) IsLocked(ctx context.Context, documentID string, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	out, err := m.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &m.tableName,
		Key: map[string]types.AttributeValue{
			"document_id": &types.AttributeValueMemberS{Value: documentID},
		},
	})
	if err != nil {
		return false, fmt.Errorf("is locked: %w", err)
	}
	lockedAt, held := lockAttributes(out.Item)
	if !held {
		return false, nil
	}
	return m.nowFunc().Before(lockedAt.Add(timeout)), nil
}

// CleanupExpired force-releases every expired lock and returns records of
// what was released. Intended for an elevated-privilege caller only; the
// handler layer enforces that. Each release re-checks holder and timestamp
// so a lock re-acquired between scan and release is left alone.
func (m *Manager) CleanupExpired(ctx context.Context, timeout time.Duration) ([]LockRecord, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cutoff := m.nowFunc().Add(-timeout).Unix()

	var released []LockRecord
	var startKey map[string]types.AttributeValue
	for {
		out, err := m.client.Scan(ctx, &dyn.ScanInput{
			TableName:        &m.tableName,
			FilterExpression: awsString("attribute_exists(locked_by) AND locked_at < :cutoff"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff, 10)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return released, fmt.Errorf("scan expired locks: %w", err)
		}

		for _, item := range out.Items {
			rec, ok := recordFromItem(item)
			if !ok {
				continue
			}
			_, err := m.client.UpdateItem(ctx, &dyn.UpdateItemInput{
				TableName: &m.tableName,
				Key: map[string]types.AttributeValue{
					"document_id": &types.AttributeValueMemberS{Value: rec.DocumentID},
				},
				UpdateExpression:    awsString("REMOVE locked_by, locked_at"),
				ConditionExpression: awsString("locked_by = :w AND locked_at = :la"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":w":  &types.AttributeValueMemberS{Value: rec.LockedBy},
					":la": &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.LockedAtUnix, 10)},
				},
			})
			if err != nil {
				if isConditionalFailure(err) {
					// re-locked since the scan; not ours to release anymore
					continue
				}
				return released, fmt.Errorf("release expired lock %s: %w", rec.DocumentID, err)
			}
			released = append(released, rec)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return released, nil
}

func lockAttributes(item map[string]types.AttributeValue) (time.Time, bool) {
	by, ok := item["locked_by"].(*types.AttributeValueMemberS)
	if !ok || by.Value == "" {
		return time.Time{}, false
	}
	at, ok := item["locked_at"].(*types.AttributeValueMemberN)
	if !ok {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(at.Value, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

func recordFromItem(item map[string]types.AttributeValue) (LockRecord, bool) {
	id, ok := item["document_id"].(*types.AttributeValueMemberS)
	if !ok {
		return LockRecord{}, false
	}
	lockedAt, held := lockAttributes(item)
	if !held {
		return LockRecord{}, false
	}
	by := item["locked_by"].(*types.AttributeValueMemberS)
	return LockRecord{
		DocumentID:   id.Value,
		LockedBy:     by.Value,
		LockedAt:     lockedAt,
		LockedAtUnix: lockedAt.Unix(),
	}, true
}

func isConditionalFailure(err error) bool {
	var cc *types.ConditionalCheckFailedException
	if errors.As(err, &cc) {
		return true
	}
	var sc smithy.APIError
	return errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException"
}

func awsString(s string) *string { return &s }
