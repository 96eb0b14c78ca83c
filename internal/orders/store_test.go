package orders

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a simple in-memory double for the orders table. It implements
// just the condition expressions the store actually uses.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue

	// when set, UpdateItem fails with this error unconditionally
	updateErr error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

func (m *mockDynamo) ensureTable(tbl string) {
	if _, ok := m.tables[tbl]; !ok {
		m.tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
}

func itemString(item map[string]types.AttributeValue, attr string) string {
	if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func itemNumber(item map[string]types.AttributeValue, attr string) int64 {
	if v, ok := item[attr].(*types.AttributeValueMemberN); ok {
		n, _ := strconv.ParseInt(v.Value, 10, 64)
		return n
	}
	return 0
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)
	pk := itemString(params.Item, "order_id")
	if pk == "" {
		return nil, errors.New("no primary key in put item")
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(order_id)" {
		if _, exists := m.tables[table][pk]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.tables[table][pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)
	pk := itemString(params.Key, "order_id")
	item, ok := m.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	table := *params.TableName
	m.ensureTable(table)
	pk := itemString(params.Key, "order_id")
	item, exists := m.tables[table][pk]
	if !exists {
		// conditional update against a missing item fails the condition
		return nil, &types.ConditionalCheckFailedException{}
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "#s = :expected" {
		expected := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS).Value
		if itemString(item, "status") != expected {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	// naive apply of the SET expressions the store uses
	if v, ok := params.ExpressionAttributeValues[":new"]; ok {
		item["status"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":pid"]; ok {
		item["gateway_payment_id"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":ua"]; ok {
		item["updated_at"] = v
	}
	m.tables[table][pk] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)
	pk := itemString(params.Key, "order_id")
	delete(m.tables[table], pk)
	return &dyn.DeleteItemOutput{}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)

	keyAttr := "user_id"
	if strings.HasPrefix(*params.KeyConditionExpression, "restaurant_id") {
		keyAttr = "restaurant_id"
	}
	keyValue := params.ExpressionAttributeValues[":key"].(*types.AttributeValueMemberS).Value

	var cutoff int64
	hasCutoff := false
	if v, ok := params.ExpressionAttributeValues[":cutoff"].(*types.AttributeValueMemberN); ok {
		cutoff, _ = strconv.ParseInt(v.Value, 10, 64)
		hasCutoff = true
	}

	var statuses []string
	for ph, v := range params.ExpressionAttributeValues {
		if ph == ":key" || ph == ":cutoff" {
			continue
		}
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			statuses = append(statuses, s.Value)
		}
	}

	var matched []map[string]types.AttributeValue
	for _, item := range m.tables[table] {
		if itemString(item, keyAttr) != keyValue {
			continue
		}
		if hasCutoff && itemNumber(item, "created_at_unix") >= cutoff {
			continue
		}
		if len(statuses) > 0 {
			found := false
			for _, st := range statuses {
				if itemString(item, "status") == st {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool {
		return itemNumber(matched[i], "created_at_unix") > itemNumber(matched[j], "created_at_unix")
	})
	return &dyn.QueryOutput{Items: matched}, nil
}

func mustCreate(t *testing.T, store *Store, order Order) {
	t.Helper()
	if err := store.Create(context.Background(), order); err != nil {
		t.Fatalf("create order %s: %v", order.OrderID, err)
	}
}

func pendingOrder(id, userID string, createdAt time.Time) Order {
	return Order{
		OrderID:        id,
		UserID:         userID,
		RestaurantID:   "rest-1",
		CustomerName:   "Test Customer",
		Location:       "somewhere",
		Items:          []OrderItem{{Name: "Burger", Qty: 1, Price: 150}},
		ItemsTotal:     150,
		TotalAmount:    150,
		PaymentMethod:  PaymentMethodOnline,
		Status:         StatusPending,
		GatewayOrderID: id,
		CreatedAt:      createdAt,
	}
}

func TestCreate_DuplicateOrderID(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")

	mustCreate(t, store, pendingOrder("order-1", "user-1", time.Now()))

	err := store.Create(context.Background(), pendingOrder("order-1", "user-1", time.Now()))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestConfirmPayment_TransitionThenIdempotent(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	mustCreate(t, store, pendingOrder("order-1", "user-1", time.Now()))

	transitioned, err := store.ConfirmPayment(context.Background(), "order-1", "pay-1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !transitioned {
		t.Fatal("expected first confirm to transition")
	}

	o, err := store.Get(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o.Status != StatusConfirmed || o.GatewayPaymentID != "pay-1" {
		t.Fatalf("unexpected order state: status=%s payment_id=%s", o.Status, o.GatewayPaymentID)
	}

	// repeat call: no further writes, still success
	transitioned, err = store.ConfirmPayment(context.Background(), "order-1", "pay-1")
	if err != nil {
		t.Fatalf("repeat confirm: %v", err)
	}
	if transitioned {
		t.Fatal("expected repeat confirm to be a no-op")
	}
}

func TestConfirmPayment_NotFound(t *testing.T) {
	store := NewStore(newMockDynamo(), "orders")

	_, err := store.ConfirmPayment(context.Background(), "no-such-order", "pay-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkFailed_DoesNotOverrideConfirmed(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	mustCreate(t, store, pendingOrder("order-1", "user-1", time.Now()))

	if _, err := store.ConfirmPayment(context.Background(), "order-1", "pay-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// late failure event: capture is authoritative
	transitioned, err := store.MarkFailed(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("mark failed after confirm should be a no-op, got %v", err)
	}
	if transitioned {
		t.Fatal("no-op failure must not report a transition")
	}

	o, _ := store.Get(context.Background(), "order-1")
	if o.Status != StatusConfirmed {
		t.Fatalf("expected CONFIRMED to survive failure event, got %s", o.Status)
	}
}

func TestMarkFailed_ThenConfirmRejected(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	mustCreate(t, store, pendingOrder("order-1", "user-1", time.Now()))

	if transitioned, err := store.MarkFailed(context.Background(), "order-1"); err != nil || !transitioned {
		t.Fatalf("mark failed: transitioned=%v err=%v", transitioned, err)
	}

	_, err := store.ConfirmPayment(context.Background(), "order-1", "pay-1")
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch confirming a FAILED order, got %v", err)
	}
}

func TestQueryByUser_FiltersAndOrdersNewestFirst(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	base := time.Now().Add(-time.Hour)

	oldConfirmed := pendingOrder("order-old", "user-1", base)
	mustCreate(t, store, oldConfirmed)
	if _, err := store.ConfirmPayment(context.Background(), "order-old", "pay-old"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	newConfirmed := pendingOrder("order-new", "user-1", base.Add(30*time.Minute))
	mustCreate(t, store, newConfirmed)
	if _, err := store.ConfirmPayment(context.Background(), "order-new", "pay-new"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	mustCreate(t, store, pendingOrder("order-pending", "user-1", base.Add(45*time.Minute)))
	mustCreate(t, store, pendingOrder("order-other-user", "user-2", base.Add(50*time.Minute)))

	got, err := store.QueryByUser(context.Background(), "user-1", []string{StatusConfirmed})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 confirmed orders, got %d", len(got))
	}
	if got[0].OrderID != "order-new" || got[1].OrderID != "order-old" {
		t.Fatalf("expected newest-first ordering, got %s then %s", got[0].OrderID, got[1].OrderID)
	}
}

func TestDeleteStalePending(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")
	now := time.Now()

	mustCreate(t, store, pendingOrder("order-stale", "user-1", now.Add(-20*time.Minute)))
	mustCreate(t, store, pendingOrder("order-fresh", "user-1", now.Add(-5*time.Minute)))

	oldConfirmed := pendingOrder("order-confirmed", "user-1", now.Add(-30*time.Minute))
	mustCreate(t, store, oldConfirmed)
	if _, err := store.ConfirmPayment(context.Background(), "order-confirmed", "pay-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	deleted, err := store.DeleteStalePending(context.Background(), "user-1", now.Add(-StaleWindow))
	if err != nil {
		t.Fatalf("delete stale: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	if _, err := store.Get(context.Background(), "order-stale"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stale order gone, got %v", err)
	}
	if _, err := store.Get(context.Background(), "order-fresh"); err != nil {
		t.Fatalf("expected fresh pending order to survive, got %v", err)
	}
	if _, err := store.Get(context.Background(), "order-confirmed"); err != nil {
		t.Fatalf("expected confirmed order to survive, got %v", err)
	}
}

// round-trip sanity for the attributevalue marshaling of nested items
func TestOrderMarshalRoundTrip(t *testing.T) {
	order := pendingOrder("order-1", "user-1", time.Now())
	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Order
	if err := attributevalue.UnmarshalMap(item, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.OrderID != order.OrderID || len(got.Items) != 1 || got.Items[0].Price != 150 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
