package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const DefaultExecutionsTableName = "order_executions"

type executionItem struct {
	ID             string `dynamodbav:"id"`
	IdempotencyKey string `dynamodbav:"idempotency_key"`
	OrderID        string `dynamodbav:"order_id"`
	OwnerID        string `dynamodbav:"owner_id"`
	State          string `dynamodbav:"state"`
	Attempt        int    `dynamodbav:"attempt"`
	PaymentStatus  string `dynamodbav:"payment_status,omitempty"`
	LastError      string `dynamodbav:"last_error,omitempty"`
	Payload        string `dynamodbav:"payload,omitempty"`
	History        string `dynamodbav:"history,omitempty"`
	StartedAt      string `dynamodbav:"started_at"`
	UpdatedAt      string `dynamodbav:"updated_at"`
	FinishedAt     string `dynamodbav:"finished_at,omitempty"`
	LeaseOwner     string `dynamodbav:"lease_owner,omitempty"`
	LeaseExpiresAt string `dynamodbav:"lease_expires_at,omitempty"`
	Version        int64  `dynamodbav:"version"`
}

// ExecutionDynamoRepository is the execution registry backed by DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//
// Creation is guarded by attribute_not_exists(id); updates by version equality.

type ExecutionDynamoRepository struct {
	ddb       DynamoDBAPI
	tableName string
}

var _ interfaces.IExecutionRepository = (*ExecutionDynamoRepository)(nil)

func NewExecutionDynamoRepository(ddb DynamoDBAPI, tableName string) *ExecutionDynamoRepository {
	if tableName == "" {
		tableName = DefaultExecutionsTableName
	}
	return &ExecutionDynamoRepository{ddb: ddb, tableName: tableName}
}

func (r *ExecutionDynamoRepository) CreateIfAbsent(ctx context.Context, e entities.Execution) (entities.Execution, bool, error) {
	it, err := toExecutionItem(e)
	if err != nil {
		return entities.Execution{}, false, err
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return entities.Execution{}, false, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			existing, err := r.GetByID(ctx, e.ID)
			return existing, false, err
		}
		return entities.Execution{}, false, err
	}
	return e, true, nil
}

func (r *ExecutionDynamoRepository) GetByID(ctx context.Context, id string) (entities.Execution, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Execution{}, err
	}
	if len(out.Item) == 0 {
		return entities.Execution{}, nil
	}

	var it executionItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Execution{}, err
	}
	return fromExecutionItem(it)
}

func (r *ExecutionDynamoRepository) Update(ctx context.Context, e entities.Execution) (entities.Execution, error) {
	expected := e.Version
	e.Version = expected + 1

	it, err := toExecutionItem(e)
	if err != nil {
		return entities.Execution{}, err
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return entities.Execution{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(#id) AND #version = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#id":      "id",
			"#version": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return entities.Execution{}, interfaces.ErrExecutionVersionConflict
		}
		return entities.Execution{}, err
	}
	return e, nil
}

func (r *ExecutionDynamoRepository) ListActive(ctx context.Context, limit int) ([]entities.Execution, error) {
	p := dynamodb.NewScanPaginator(r.ddb, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("NOT #state IN (:completed, :cancelled, :failed)"),
		ExpressionAttributeNames: map[string]string{
			"#state": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": &types.AttributeValueMemberS{Value: string(entities.ExecutionStateCompleted)},
			":cancelled": &types.AttributeValueMemberS{Value: string(entities.ExecutionStateCancelled)},
			":failed":    &types.AttributeValueMemberS{Value: string(entities.ExecutionStateFailed)},
		},
		ConsistentRead: aws.Bool(true),
	})

	items := make([]entities.Execution, 0)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range out.Items {
			var it executionItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, err
			}
			e, err := fromExecutionItem(it)
			if err != nil {
				return nil, err
			}
			items = append(items, e)
			if limit > 0 && len(items) >= limit {
				return items, nil
			}
		}
	}
	return items, nil
}

func toExecutionItem(e entities.Execution) (executionItem, error) {
	history, err := json.Marshal(e.History)
	if err != nil {
		return executionItem{}, err
	}
	return executionItem{
		ID:             e.ID,
		IdempotencyKey: e.IdempotencyKey,
		OrderID:        e.OrderID,
		OwnerID:        e.OwnerID,
		State:          string(e.State),
		Attempt:        e.Attempt,
		PaymentStatus:  e.PaymentStatus,
		LastError:      e.LastError,
		Payload:        string(e.Payload),
		History:        string(history),
		StartedAt:      formatTime(e.StartedAt),
		UpdatedAt:      formatTime(e.UpdatedAt),
		FinishedAt:     formatTime(e.FinishedAt),
		LeaseOwner:     e.LeaseOwner,
		LeaseExpiresAt: formatTime(e.LeaseExpiresAt),
		Version:        e.Version,
	}, nil
}

func fromExecutionItem(it executionItem) (entities.Execution, error) {
	var history []entities.StateTransition
	if it.History != "" {
		if err := json.Unmarshal([]byte(it.History), &history); err != nil {
			return entities.Execution{}, err
		}
	}
	var payload json.RawMessage
	if it.Payload != "" {
		payload = json.RawMessage(it.Payload)
	}
	return entities.Execution{
		ID:             it.ID,
		IdempotencyKey: it.IdempotencyKey,
		OrderID:        it.OrderID,
		OwnerID:        it.OwnerID,
		State:          entities.ExecutionState(it.State),
		Attempt:        it.Attempt,
		PaymentStatus:  it.PaymentStatus,
		LastError:      it.LastError,
		Payload:        payload,
		History:        history,
		StartedAt:      parseTime(it.StartedAt),
		UpdatedAt:      parseTime(it.UpdatedAt),
		FinishedAt:     parseTime(it.FinishedAt),
		LeaseOwner:     it.LeaseOwner,
		LeaseExpiresAt: parseTime(it.LeaseExpiresAt),
		Version:        it.Version,
	}, nil
}

// formatTime leaves zero times empty so omitempty drops them.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
