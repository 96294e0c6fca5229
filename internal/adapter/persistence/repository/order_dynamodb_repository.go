package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const DefaultOrderTableName = "ORDER"

type orderItem struct {
	OwnerID       string `dynamodbav:"user_id"`
	ID            string `dynamodbav:"id"`
	Status        string `dynamodbav:"status"`
	Amount        string `dynamodbav:"amount"`
	PaymentStatus string `dynamodbav:"payment_status,omitempty"`
	PaymentID     string `dynamodbav:"payment_id,omitempty"`
	Payload       string `dynamodbav:"payload,omitempty"`
	CreatedAt     string `dynamodbav:"created_at"`
	UpdatedAt     string `dynamodbav:"updated_at"`
}

// OrderDynamoRepository persists Order rows in DynamoDB.
//
// Table requirements:
//   - PK: user_id (string)
//   - SK: id (string)
//
// Every write past creation is conditional on the current status, so a stale or
// duplicate task invocation can never move a row backwards.

type OrderDynamoRepository struct {
	ddb       DynamoDBAPI
	tableName string
}

var _ interfaces.IOrderRepository = (*OrderDynamoRepository)(nil)

func NewOrderDynamoRepository(ddb DynamoDBAPI, tableName string) *OrderDynamoRepository {
	if tableName == "" {
		tableName = DefaultOrderTableName
	}
	return &OrderDynamoRepository{ddb: ddb, tableName: tableName}
}

func (r *OrderDynamoRepository) CreateIfAbsent(ctx context.Context, o entities.Order) (entities.Order, bool, error) {
	av, err := attributevalue.MarshalMap(toOrderItem(o))
	if err != nil {
		return entities.Order{}, false, err
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
			existing, err := r.GetByID(ctx, o.OwnerID, o.ID)
			return existing, false, err
		}
		return entities.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderDynamoRepository) GetByID(ctx context.Context, ownerID, orderID string) (entities.Order, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            orderKey(ownerID, orderID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Order{}, err
	}
	if len(out.Item) == 0 {
		return entities.Order{}, nil
	}

	var it orderItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Order{}, err
	}
	return fromOrderItem(it), nil
}

func (r *OrderDynamoRepository) TransitionStatus(ctx context.Context, ownerID, orderID string, from, next entities.OrderStatus) (entities.Order, error) {
	if !from.CanTransitionTo(next) {
		return entities.Order{}, nil
	}
	return r.update(ctx, ownerID, orderID, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #status = :next, #updated_at = :updated_at"
		cond := "#status = :from"
		vals := map[string]types.AttributeValue{
			":next":       &types.AttributeValueMemberS{Value: string(next)},
			":from":       &types.AttributeValueMemberS{Value: string(from)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#status":     "status",
			"#updated_at": "updated_at",
		}
		return expr, cond, vals, names
	})
}

func (r *OrderDynamoRepository) RecordPayment(ctx context.Context, ownerID, orderID string, result entities.PaymentResult) (entities.Order, error) {
	return r.update(ctx, ownerID, orderID, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #status = :next, #payment_status = :payment_status, #payment_id = :payment_id, #updated_at = :updated_at"
		cond := "#status = :from AND attribute_not_exists(#payment_status)"
		vals := map[string]types.AttributeValue{
			":next":           &types.AttributeValueMemberS{Value: string(entities.OrderStatusPaymentProcessed)},
			":from":           &types.AttributeValueMemberS{Value: string(entities.OrderStatusInitialized)},
			":payment_status": &types.AttributeValueMemberS{Value: result.Status},
			":payment_id":     &types.AttributeValueMemberS{Value: result.PaymentID},
			":updated_at":     &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#status":         "status",
			"#payment_status": "payment_status",
			"#payment_id":     "payment_id",
			"#updated_at":     "updated_at",
		}
		return expr, cond, vals, names
	})
}

func (r *OrderDynamoRepository) UpdatePayload(ctx context.Context, ownerID, orderID string, payload json.RawMessage) (entities.Order, error) {
	return r.update(ctx, ownerID, orderID, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #payload = :payload, #updated_at = :updated_at"
		cond := "NOT #status IN (:completed, :cancelled)"
		vals := map[string]types.AttributeValue{
			":payload":    &types.AttributeValueMemberS{Value: string(payload)},
			":completed":  &types.AttributeValueMemberS{Value: string(entities.OrderStatusCompleted)},
			":cancelled":  &types.AttributeValueMemberS{Value: string(entities.OrderStatusCancelled)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#payload":    "payload",
			"#status":     "status",
			"#updated_at": "updated_at",
		}
		return expr, cond, vals, names
	})
}

func (r *OrderDynamoRepository) Delete(ctx context.Context, ownerID, orderID string) (bool, error) {
	_, err := r.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 orderKey(ownerID, orderID),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// update runs a conditional UpdateItem. The row must exist and satisfy cond; when it
// does not, a zero-value Order is returned with a nil error.
func (r *OrderDynamoRepository) update(
	ctx context.Context,
	ownerID, orderID string,
	build func(now string) (updateExpr, condExpr string, values map[string]types.AttributeValue, names map[string]string),
) (entities.Order, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	updateExpr, condExpr, values, names := build(now)

	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       orderKey(ownerID, orderID),
		ConditionExpression:       aws.String("attribute_exists(#id) AND " + condExpr),
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeValues: values,
		ExpressionAttributeNames:  mergeNames(names, map[string]string{"#id": "id"}),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return entities.Order{}, nil
		}
		return entities.Order{}, err
	}
	if len(out.Attributes) == 0 {
		return entities.Order{}, nil
	}
	var it orderItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return entities.Order{}, err
	}
	return fromOrderItem(it), nil
}

func orderKey(ownerID, orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: ownerID},
		"id":      &types.AttributeValueMemberS{Value: orderID},
	}
}

func toOrderItem(o entities.Order) orderItem {
	return orderItem{
		OwnerID:       o.OwnerID,
		ID:            o.ID,
		Status:        string(o.Status),
		Amount:        floatToString(o.Amount),
		PaymentStatus: o.PaymentStatus,
		PaymentID:     o.PaymentID,
		Payload:       string(o.Payload),
		CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromOrderItem(it orderItem) entities.Order {
	createdAt, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	amount, _ := strconv.ParseFloat(it.Amount, 64)
	var payload json.RawMessage
	if it.Payload != "" {
		payload = json.RawMessage(it.Payload)
	}
	return entities.Order{
		ID:            it.ID,
		OwnerID:       it.OwnerID,
		Status:        entities.OrderStatus(it.Status),
		Amount:        amount,
		PaymentStatus: it.PaymentStatus,
		PaymentID:     it.PaymentID,
		Payload:       payload,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

func isConditionFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return errors.As(err, &cfe)
}
