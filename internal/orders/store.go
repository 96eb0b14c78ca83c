package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/motbungchow/go-food-orderflow/internal/aws"
)

// GSI names on the orders table. Both use created_at_unix as the sort key.
const (
	userIndex       = "user_id-index"
	restaurantIndex = "restaurant_id-index"
)

// ErrNotFound indicates the order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrAlreadyExists indicates a conditional create hit an existing order id.
var ErrAlreadyExists = errors.New("order already exists")

// ErrStatusMismatch indicates a status-guarded update found the order in a
// state the transition does not apply to.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// Store encapsulates operations on the orders table. Every status transition
// goes through a conditional update; there is no in-process locking anywhere
// above this layer.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create persists a new order, guarded against order-id collisions across the
// shared COD/gateway ID space.
func (s *Store) Create(ctx context.Context, order Order) error {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.CreatedAtUnix = order.CreatedAt.Unix()
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns ErrNotFound if missing.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// ConfirmPayment transitions the order PENDING -> CONFIRMED and records the
// gateway payment id, guarded by the current status. The returned bool is
// true only when this call performed the transition: a repeat call against an
// already-CONFIRMED order is a no-op success with transitioned=false, which
// is what makes the verify and webhook reconciliation paths commutative.
func (s *Store) ConfirmPayment(ctx context.Context, orderID, paymentID string) (bool, error) {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, gateway_payment_id = :pid, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: StatusConfirmed},
			":pid":      &types.AttributeValueMemberS{Value: paymentID},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":expected": &types.AttributeValueMemberS{Value: StatusPending},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err == nil {
		return true, nil
	}
	var cc *types.ConditionalCheckFailedException
	if !errors.As(err, &cc) {
		return false, fmt.Errorf("update item: %w", err)
	}

	// Conditional failure: missing order, the other reconciliation path won
	// the race, or the order is FAILED. Re-read to tell them apart.
	o, getErr := s.Get(ctx, orderID)
	if getErr != nil {
		return false, getErr
	}
	if o.Status == StatusConfirmed {
		return false, nil
	}
	return false, ErrStatusMismatch
}

// MarkFailed transitions the order PENDING -> FAILED. A failure event landing
// after a successful capture is ignored: capture is authoritative, so a
// CONFIRMED order is a no-op success with transitioned=false. Redelivered
// failure events are likewise no-ops.
func (s *Store) MarkFailed(ctx context.Context, orderID string) (bool, error) {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: StatusFailed},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":expected": &types.AttributeValueMemberS{Value: StatusPending},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err == nil {
		return true, nil
	}
	var cc *types.ConditionalCheckFailedException
	if !errors.As(err, &cc) {
		return false, fmt.Errorf("update item: %w", err)
	}

	o, getErr := s.Get(ctx, orderID)
	if getErr != nil {
		return false, getErr
	}
	if o.Status == StatusConfirmed || o.Status == StatusFailed {
		return false, nil
	}
	return false, ErrStatusMismatch
}

// QueryByUser returns a user's orders newest-first, optionally filtered to a
// status set.
func (s *Store) QueryByUser(ctx context.Context, userID string, statuses []string) ([]Order, error) {
	return s.query(ctx, userIndex, "user_id", userID, statuses)
}

// QueryByRestaurant returns a restaurant's orders newest-first, optionally
// filtered to a status set.
func (s *Store) QueryByRestaurant(ctx context.Context, restaurantID string, statuses []string) ([]Order, error) {
	return s.query(ctx, restaurantIndex, "restaurant_id", restaurantID, statuses)
}

func (s *Store) query(ctx context.Context, index, keyAttr, keyValue string, statuses []string) ([]Order, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &index,
		KeyConditionExpression: awsString(fmt.Sprintf("%s = :key", keyAttr)),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: keyValue},
		},
		ScanIndexForward: awsBool(false), // newest first
	}

	if len(statuses) > 0 {
		clauses := make([]string, 0, len(statuses))
		input.ExpressionAttributeNames = map[string]string{"#s": "status"}
		for i, st := range statuses {
			ph := fmt.Sprintf(":s%d", i)
			clauses = append(clauses, "#s = "+ph)
			input.ExpressionAttributeValues[ph] = &types.AttributeValueMemberS{Value: st}
		}
		input.FilterExpression = awsString(strings.Join(clauses, " OR "))
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", index, err)
	}

	result := make([]Order, 0, len(out.Items))
	for _, item := range out.Items {
		var o Order
		if err := attributevalue.UnmarshalMap(item, &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		result = append(result, o)
	}
	return result, nil
}

// DeleteStalePending removes the user's PENDING orders created before cutoff
// and returns how many were deleted. Garbage collection of abandoned
// checkouts; never touches CONFIRMED orders.
func (s *Store) DeleteStalePending(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(userIndex),
		KeyConditionExpression: awsString("user_id = :key AND created_at_unix < :cutoff"),
		FilterExpression:       awsString("#s = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key":     &types.AttributeValueMemberS{Value: userID},
			":cutoff":  &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff.Unix(), 10)},
			":pending": &types.AttributeValueMemberS{Value: StatusPending},
		},
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("query stale pending: %w", err)
	}

	deleted := 0
	for _, item := range out.Items {
		idAttr, ok := item["order_id"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
			TableName: &s.tableName,
			Key: map[string]types.AttributeValue{
				"order_id": &types.AttributeValueMemberS{Value: idAttr.Value},
			},
		})
		if err != nil {
			return deleted, fmt.Errorf("delete stale order %s: %w", idAttr.Value, err)
		}
		deleted++
	}
	return deleted, nil
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
