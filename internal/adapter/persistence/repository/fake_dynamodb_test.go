package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is a single-table DynamoDB stand-in. It evaluates the expression
// forms the repositories issue: attribute_exists, attribute_not_exists,
// equality, NOT ... IN (...) joined by AND, and SET updates.
type fakeDynamo struct {
	mu       sync.Mutex
	keyAttrs []string
	items    map[string]map[string]types.AttributeValue
	pageSize int
	err      error
}

var _ DynamoDBAPI = (*fakeDynamo)(nil)

func newFakeDynamo(keyAttrs ...string) *fakeDynamo {
	return &fakeDynamo{keyAttrs: keyAttrs, items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) keyOf(item map[string]types.AttributeValue) string {
	parts := make([]string, 0, len(f.keyAttrs))
	for _, k := range f.keyAttrs {
		parts = append(parts, scalar(item[k]))
	}
	return strings.Join(parts, "|")
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: copyItem(f.items[f.keyOf(in.Key)])}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := f.keyOf(in.Item)
	if !matches(f.items[key], aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, conditionFailed()
	}
	f.items[key] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := f.keyOf(in.Key)
	current := f.items[key]
	if !matches(current, aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, conditionFailed()
	}

	next := copyItem(current)
	if next == nil {
		next = copyItem(in.Key)
	}
	for _, assignment := range strings.Split(strings.TrimPrefix(aws.ToString(in.UpdateExpression), "SET "), ",") {
		lhs, rhs, ok := strings.Cut(strings.TrimSpace(assignment), " = ")
		if !ok {
			return nil, fmt.Errorf("fake dynamodb: unsupported update %q", assignment)
		}
		next[in.ExpressionAttributeNames[lhs]] = in.ExpressionAttributeValues[rhs]
	}
	f.items[key] = next
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(next)}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := f.keyOf(in.Key)
	if !matches(f.items[key], aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, conditionFailed()
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Scan returns items in key order, pageSize at a time when set.
func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := f.keyOf(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}
	end := len(keys)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}

	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start:end] {
		item := f.items[k]
		if matches(item, aws.ToString(in.FilterExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
			out.Items = append(out.Items, copyItem(item))
		}
	}
	if end < len(keys) {
		last := make(map[string]types.AttributeValue, len(f.keyAttrs))
		for _, a := range f.keyAttrs {
			last[a] = f.items[keys[end-1]][a]
		}
		out.LastEvaluatedKey = last
	}
	return out, nil
}

func matches(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) bool {
	if expr == "" {
		return true
	}
	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists("):
			if _, ok := item[names[strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")")]]; ok {
				return false
			}
		case strings.HasPrefix(clause, "attribute_exists("):
			if _, ok := item[names[strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_exists("), ")")]]; !ok {
				return false
			}
		case strings.HasPrefix(clause, "NOT ") && strings.Contains(clause, " IN ("):
			lhs, list, _ := strings.Cut(strings.TrimPrefix(clause, "NOT "), " IN (")
			current, ok := item[names[lhs]]
			if !ok {
				continue
			}
			for _, v := range strings.Split(strings.TrimSuffix(list, ")"), ",") {
				if scalar(current) == scalar(values[strings.TrimSpace(v)]) {
					return false
				}
			}
		default:
			lhs, rhs, ok := strings.Cut(clause, " = ")
			if !ok {
				panic("fake dynamodb: unsupported condition " + clause)
			}
			current, exists := item[names[lhs]]
			if !exists || scalar(current) != scalar(values[rhs]) {
				return false
			}
		}
	}
	return true
}

func scalar(v types.AttributeValue) string {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + av.Value
	case *types.AttributeValueMemberN:
		return "N:" + av.Value
	case nil:
		return ""
	default:
		return fmt.Sprintf("%T", v)
	}
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}
