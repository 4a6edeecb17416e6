package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const (
	condInsert = "attribute_not_exists(id)"
	condUpdate = "attribute_exists(id) AND #s = :current"
	exprUpdate = "SET #s = :next"

	// Сколько раз перечитываем заказ, если его статус поменяли между Get и UpdateItem.
	maxUpdateAttempts = 3
)

type itemRecord struct {
	ID          int      `dynamodbav:"id"`
	Name        string   `dynamodbav:"name"`
	Category    string   `dynamodbav:"category"`
	Ingredients []string `dynamodbav:"ingredients,omitempty"`
	Quantity    int      `dynamodbav:"quantity"`
	Sweetness   string   `dynamodbav:"sweetness,omitempty"`
}

type orderRecord struct {
	ID           string       `dynamodbav:"id"`
	CustomerName string       `dynamodbav:"customer_name"`
	Items        []itemRecord `dynamodbav:"items"`
	Notes        string       `dynamodbav:"notes,omitempty"`
	Status       string       `dynamodbav:"status"`
	CreatedAt    time.Time    `dynamodbav:"created_at"`
}

func toRecord(order domain.Order) orderRecord {
	items := make([]itemRecord, len(order.Items))
	for i, item := range order.Items {
		items[i] = itemRecord{
			ID:          item.ID,
			Name:        item.Name,
			Category:    string(item.Category),
			Ingredients: item.Ingredients,
			Quantity:    item.Quantity,
			Sweetness:   string(item.Sweetness),
		}
	}
	return orderRecord{
		ID:           order.ID,
		CustomerName: order.CustomerName,
		Items:        items,
		Notes:        order.Notes,
		Status:       string(order.Status),
		CreatedAt:    order.CreatedAt.UTC(),
	}
}

func (r orderRecord) toDomain() domain.Order {
	items := make([]domain.OrderItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = domain.OrderItem{
			ID:          item.ID,
			Name:        item.Name,
			Category:    domain.Category(item.Category),
			Ingredients: item.Ingredients,
			Quantity:    item.Quantity,
			Sweetness:   domain.Sweetness(item.Sweetness),
		}
	}
	return domain.Order{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		Items:        items,
		Notes:        r.Notes,
		Status:       domain.OrderStatus(r.Status),
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

// OrderRepository хранит заказы в таблице DynamoDB с ключом партиции id.
type OrderRepository struct {
	client Client
	table  string
}

// NewOrderRepository создаёт репозиторий поверх таблицы table.
func NewOrderRepository(client Client, table string) *OrderRepository {
	return &OrderRepository{client: client, table: table}
}

// Ping проверяет, что таблица существует и доступна.
func (r *OrderRepository) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("dynamodb repository is not initialized")
	}
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	return classify("describe table", err)
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	item, err := attributevalue.MarshalMap(toRecord(order))
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal order: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String(condInsert),
	})
	if err != nil {
		if isConditionFailed(err) {
			return domain.Order{}, domain.ErrOrderConflict
		}
		return domain.Order{}, classify("put order", err)
	}
	return toRecord(order).toDomain(), nil
}

// ListAll сканирует таблицу целиком. Для кофейни объём заказов невелик,
// порядок восстанавливается сортировкой.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:      aws.String(r.table),
		ConsistentRead: aws.Bool(true),
	})

	var orders []domain.Order
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("scan orders", err)
		}
		var records []orderRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &records); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, rec := range records {
			orders = append(orders, rec.toDomain())
		}
	}

	sort.Slice(orders, func(i, j int) bool {
		return domain.NewerFirst(orders[i], orders[j])
	})
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            orderKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Order{}, classify("get order", err)
	}
	if len(out.Item) == 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	var rec orderRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal order: %w", err)
	}
	return rec.toDomain(), nil
}

// UpdateStatus выполняет условную запись: статус меняется, только если
// он не изменился с момента чтения. Повтор текущего статуса ничего не пишет.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.Get(ctx, id)
		if err != nil {
			return domain.Order{}, err
		}
		if !current.Status.CanTransitionTo(status) {
			return domain.Order{}, domain.ErrInvalidStatusTransition
		}
		if current.Status == status {
			return current, nil
		}

		out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(r.table),
			Key:                 orderKey(id),
			UpdateExpression:    aws.String(exprUpdate),
			ConditionExpression: aws.String(condUpdate),
			ExpressionAttributeNames: map[string]string{
				"#s": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":current": &types.AttributeValueMemberS{Value: string(current.Status)},
				":next":    &types.AttributeValueMemberS{Value: string(status)},
			},
			ReturnValues: types.ReturnValueAllNew,
		})
		if err != nil {
			if isConditionFailed(err) {
				continue
			}
			return domain.Order{}, classify("update order status", err)
		}

		var rec orderRecord
		if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal order: %w", err)
		}
		return rec.toDomain(), nil
	}
	return domain.Order{}, fmt.Errorf("update order status %s: %w", id, domain.ErrOrderConflict)
}

func orderKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
