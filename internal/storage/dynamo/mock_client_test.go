package dynamo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockClient — маленькая in-memory таблица с поддержкой условий,
// которые использует OrderRepository.
type mockClient struct {
	mu       sync.Mutex
	table    map[string]map[string]types.AttributeValue
	pageSize int

	putCalls    int
	updateCalls int
	scanCalls   int

	// beforeUpdate вызывается внутри UpdateItem до проверки условия.
	beforeUpdate func(item map[string]types.AttributeValue)
	failWith     error
}

func newMockClient() *mockClient {
	return &mockClient{table: map[string]map[string]types.AttributeValue{}}
}

func keyOf(attrs map[string]types.AttributeValue) (string, error) {
	v, ok := attrs["id"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing id key")
	}
	return v.Value, nil
}

func (m *mockClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}

	k, err := keyOf(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == condInsert {
		if _, ok := m.table[k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[k] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	k, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (m *mockClient) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	k, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if m.beforeUpdate != nil {
		m.beforeUpdate(item)
		m.beforeUpdate = nil
	}

	status := params.ExpressionAttributeNames["#s"]
	current := params.ExpressionAttributeValues[":current"].(*types.AttributeValueMemberS).Value
	if item[status].(*types.AttributeValueMemberS).Value != current {
		return nil, &types.ConditionalCheckFailedException{}
	}

	updated := make(map[string]types.AttributeValue, len(item))
	for name, v := range item {
		updated[name] = v
	}
	updated[status] = params.ExpressionAttributeValues[":next"]
	m.table[k] = updated
	return &dynamodb.UpdateItemOutput{Attributes: updated}, nil
}

func (m *mockClient) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}

	keys := make([]string, 0, len(m.table))
	for k := range m.table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if params.ExclusiveStartKey != nil {
		last, err := keyOf(params.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		start = sort.SearchStrings(keys, last) + 1
	}

	end := len(keys)
	if m.pageSize > 0 && start+m.pageSize < end {
		end = start + m.pageSize
	}

	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, m.table[k])
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}

func (m *mockClient) DescribeTable(_ context.Context, params *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: params.TableName}}, nil
}
