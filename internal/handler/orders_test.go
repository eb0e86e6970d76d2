package handler_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ruenthai-pos/api/internal/database"
	"github.com/ruenthai-pos/api/internal/enum"
	"github.com/ruenthai-pos/api/internal/handler"
	"github.com/ruenthai-pos/api/internal/service"
	"github.com/ruenthai-pos/api/internal/ws"
)

// --- Mocks ---

type mockOrderQueryStore struct {
	orders map[int64]database.Order
	items  map[int64][]database.OrderItem
}

func newMockOrderQueryStore() *mockOrderQueryStore {
	return &mockOrderQueryStore{
		orders: make(map[int64]database.Order),
		items:  make(map[int64][]database.OrderItem),
	}
}

func (m *mockOrderQueryStore) GetOrder(_ context.Context, id int64) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderQueryStore) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	var result []database.Order
	for i := int64(1); i <= int64(len(m.orders)); i++ {
		o, ok := m.orders[i]
		if !ok {
			continue
		}
		if arg.Status != "" && o.Status != arg.Status {
			continue
		}
		if arg.StartDate.Valid && o.CreatedAt.Before(arg.StartDate.Time) {
			continue
		}
		if arg.EndDate.Valid && !o.CreatedAt.Before(arg.EndDate.Time) {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func (m *mockOrderQueryStore) ListOrderItemsByOrder(_ context.Context, orderID int64) ([]database.OrderItem, error) {
	return m.items[orderID], nil
}

func (m *mockOrderQueryStore) ListOrdersBySession(_ context.Context, sessionID uuid.UUID) ([]database.Order, error) {
	var result []database.Order
	for i := int64(1); i <= int64(len(m.orders)); i++ {
		if o, ok := m.orders[i]; ok && o.SessionID == sessionID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *mockOrderQueryStore) UpdateOrderStatus(_ context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok || o.Status != arg.FromStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	if arg.Status == enum.OrderStatusCompleted {
		o.CompletedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}
	m.orders[arg.ID] = o
	return o, nil
}

func (m *mockOrderQueryStore) UpdateOrderItemStatus(_ context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error) {
	for i, it := range m.items[arg.OrderID] {
		if it.ID == arg.ID {
			it.Status = arg.Status
			m.items[arg.OrderID][i] = it
			return it, nil
		}
	}
	return database.OrderItem{}, pgx.ErrNoRows
}

type mockOrderCreator struct {
	createFn func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

func (m *mockOrderCreator) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	return m.createFn(ctx, req)
}

// mockBroadcaster records broadcast events for assertions.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (m *mockBroadcaster) Broadcast(eventType string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
}

func (m *mockBroadcaster) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

// --- Helpers ---

func setupOrderRouter(store *mockOrderQueryStore, creator *mockOrderCreator, hub *mockBroadcaster) *chi.Mux {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		loc = time.FixedZone("ICT", 7*3600)
	}
	h := handler.NewOrderHandler(store, creator, hub, loc)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func seedOrder(store *mockOrderQueryStore, id int64, status string, sessionID uuid.UUID) database.Order {
	o := database.Order{
		ID:          id,
		TableID:     1,
		SessionID:   sessionID,
		Status:      status,
		BillStatus:  enum.BillStatusUnbilled,
		TotalAmount: numericFromString("110.00"),
		CreatedAt:   time.Now().UTC(),
	}
	store.orders[id] = o
	return o
}

func numericFromString(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

// --- Create tests ---

func TestOrderCreate_Success(t *testing.T) {
	store := newMockOrderQueryStore()
	sessionID := uuid.New()
	creator := &mockOrderCreator{
		createFn: func(_ context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			if req.TableID != 1 || len(req.Items) != 1 {
				t.Errorf("unexpected request: %+v", req)
			}
			return &service.CreateOrderResult{
				Order: database.Order{
					ID: 1, TableID: 1, SessionID: sessionID,
					Status: enum.OrderStatusPending, BillStatus: enum.BillStatusUnbilled,
					TotalAmount: numericFromString("110.00"), CreatedAt: time.Now(),
				},
				Items: []database.OrderItem{
					{ID: 1, OrderID: 1, MenuItemID: 10, ItemName: "Pad Krapow", Quantity: 2,
						UnitPrice:  numericFromString("55.00"),
						TotalPrice: numericFromString("110.00"),
						Status:     enum.OrderItemStatusPending},
				},
			}, nil
		},
	}
	hub := &mockBroadcaster{}
	router := setupOrderRouter(store, creator, hub)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"table_id": 1,
		"items":    []map[string]interface{}{{"menu_item_id": 10, "quantity": 2}},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["total_amount"] != "110.00" {
		t.Errorf("total_amount: got %v, want 110.00", resp["total_amount"])
	}
	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item in response, got %v", resp["items"])
	}

	events := hub.eventTypes()
	if len(events) != 1 || events[0] != ws.EventOrderCreated {
		t.Errorf("expected order.created broadcast, got %v", events)
	}
}

func TestOrderCreate_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"empty items", service.ErrEmptyItems, http.StatusBadRequest},
		{"bad quantity", service.ErrInvalidQuantity, http.StatusBadRequest},
		{"option not allowed", service.ErrOptionNotAllowed, http.StatusBadRequest},
		{"table not found", service.ErrTableNotFound, http.StatusNotFound},
		{"menu item not found", service.ErrMenuItemNotFound, http.StatusNotFound},
		{"table not occupied", service.ErrTableNotOccupied, http.StatusConflict},
		{"item unavailable", service.ErrMenuItemUnavailable, http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			creator := &mockOrderCreator{
				createFn: func(context.Context, service.CreateOrderRequest) (*service.CreateOrderResult, error) {
					return nil, tc.err
				},
			}
			hub := &mockBroadcaster{}
			router := setupOrderRouter(newMockOrderQueryStore(), creator, hub)

			rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
				"table_id": 1,
				"items":    []map[string]interface{}{{"menu_item_id": 10, "quantity": 1}},
			})

			if rr.Code != tc.wantStatus {
				t.Errorf("status: got %d, want %d", rr.Code, tc.wantStatus)
			}
			if len(hub.eventTypes()) != 0 {
				t.Error("failed create must not broadcast")
			}
		})
	}
}

// --- Status transition tests ---

func TestOrderUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		from       string
		to         string
		wantStatus int
	}{
		{"pending to accepted", enum.OrderStatusPending, enum.OrderStatusAccepted, http.StatusOK},
		{"pending to rejected", enum.OrderStatusPending, enum.OrderStatusRejected, http.StatusOK},
		{"accepted to completed", enum.OrderStatusAccepted, enum.OrderStatusCompleted, http.StatusOK},
		{"accepted to rejected", enum.OrderStatusAccepted, enum.OrderStatusRejected, http.StatusOK},
		{"pending to completed skips accept", enum.OrderStatusPending, enum.OrderStatusCompleted, http.StatusConflict},
		{"completed is terminal", enum.OrderStatusCompleted, enum.OrderStatusAccepted, http.StatusConflict},
		{"rejected is absorbing", enum.OrderStatusRejected, enum.OrderStatusPending, http.StatusConflict},
		{"no self loop", enum.OrderStatusPending, enum.OrderStatusPending, http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMockOrderQueryStore()
			seedOrder(store, 1, tc.from, uuid.New())
			hub := &mockBroadcaster{}
			router := setupOrderRouter(store, &mockOrderCreator{}, hub)

			rr := doRequest(t, router, "PATCH", "/orders/1/status", map[string]string{"status": tc.to})

			if rr.Code != tc.wantStatus {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tc.wantStatus, rr.Body.String())
			}

			if tc.wantStatus == http.StatusOK {
				if store.orders[1].Status != tc.to {
					t.Errorf("order status: got %s, want %s", store.orders[1].Status, tc.to)
				}
				events := hub.eventTypes()
				if len(events) != 1 || events[0] != ws.EventOrderStatusChanged {
					t.Errorf("expected status change broadcast, got %v", events)
				}
			} else {
				if store.orders[1].Status != tc.from {
					t.Errorf("rejected transition must not change status")
				}
				if len(hub.eventTypes()) != 0 {
					t.Error("rejected transition must not broadcast")
				}
			}
		})
	}
}

func TestOrderUpdateStatus_CompletedStampsTimestamp(t *testing.T) {
	store := newMockOrderQueryStore()
	seedOrder(store, 1, enum.OrderStatusAccepted, uuid.New())
	router := setupOrderRouter(store, &mockOrderCreator{}, &mockBroadcaster{})

	rr := doRequest(t, router, "PATCH", "/orders/1/status", map[string]string{"status": enum.OrderStatusCompleted})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["completed_at"] == nil {
		t.Error("completed order must carry completed_at")
	}
}

func TestOrderUpdateStatus_NotFound(t *testing.T) {
	router := setupOrderRouter(newMockOrderQueryStore(), &mockOrderCreator{}, &mockBroadcaster{})

	rr := doRequest(t, router, "PATCH", "/orders/42/status", map[string]string{"status": enum.OrderStatusAccepted})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestOrderUpdateStatus_InvalidStatus(t *testing.T) {
	store := newMockOrderQueryStore()
	seedOrder(store, 1, enum.OrderStatusPending, uuid.New())
	router := setupOrderRouter(store, &mockOrderCreator{}, &mockBroadcaster{})

	rr := doRequest(t, router, "PATCH", "/orders/1/status", map[string]string{"status": "SHIPPED"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Item status tests ---

func TestOrderItemUpdateStatus(t *testing.T) {
	store := newMockOrderQueryStore()
	seedOrder(store, 1, enum.OrderStatusAccepted, uuid.New())
	store.items[1] = []database.OrderItem{
		{ID: 5, OrderID: 1, MenuItemID: 10, ItemName: "Pad Krapow", Quantity: 1,
			UnitPrice: numericFromString("55.00"), TotalPrice: numericFromString("55.00"),
			Status: enum.OrderItemStatusPending},
	}
	hub := &mockBroadcaster{}
	router := setupOrderRouter(store, &mockOrderCreator{}, hub)

	rr := doRequest(t, router, "PATCH", "/orders/1/items/5/status", map[string]string{
		"status": enum.OrderItemStatusPreparing,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	if store.items[1][0].Status != enum.OrderItemStatusPreparing {
		t.Errorf("item status: got %s, want PREPARING", store.items[1][0].Status)
	}
	events := hub.eventTypes()
	if len(events) != 1 || events[0] != ws.EventOrderItemStatusChanged {
		t.Errorf("expected item status broadcast, got %v", events)
	}
}

func TestOrderItemUpdateStatus_WrongOrder(t *testing.T) {
	store := newMockOrderQueryStore()
	seedOrder(store, 1, enum.OrderStatusAccepted, uuid.New())
	store.items[1] = []database.OrderItem{{ID: 5, OrderID: 1, Status: enum.OrderItemStatusPending}}
	router := setupOrderRouter(store, &mockOrderCreator{}, &mockBroadcaster{})

	rr := doRequest(t, router, "PATCH", "/orders/2/items/5/status", map[string]string{
		"status": enum.OrderItemStatusDone,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Read tests ---

func TestOrderGet_WithItems(t *testing.T) {
	store := newMockOrderQueryStore()
	seedOrder(store, 1, enum.OrderStatusPending, uuid.New())
	store.items[1] = []database.OrderItem{
		{ID: 1, OrderID: 1, MenuItemID: 10, ItemName: "Pad Krapow", Quantity: 2,
			UnitPrice: numericFromString("55.00"), TotalPrice: numericFromString("110.00"),
			Note:   pgtype.Text{String: "no chili", Valid: true},
			Status: enum.OrderItemStatusPending},
	}
	router := setupOrderRouter(store, &mockOrderCreator{}, &mockBroadcaster{})

	rr := doRequest(t, router, "GET", "/orders/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", resp["items"])
	}
	item := items[0].(map[string]interface{})
	if item["note"] != "no chili" {
		t.Errorf("note: got %v", item["note"])
	}
}

func TestOrderList_StatusFilter(t *testing.T) {
	store := newMockOrderQueryStore()
	seedOrder(store, 1, enum.OrderStatusPending, uuid.New())
	seedOrder(store, 2, enum.OrderStatusCompleted, uuid.New())
	seedOrder(store, 3, enum.OrderStatusPending, uuid.New())
	router := setupOrderRouter(store, &mockOrderCreator{}, &mockBroadcaster{})

	rr := doRequest(t, router, "GET", "/orders?status=PENDING", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if got := len(decodeListResponse(t, rr)); got != 2 {
		t.Errorf("got %d orders, want 2", got)
	}

	rr = doRequest(t, router, "GET", "/orders?status=SHIPPED", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid status filter: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderList_DateValidation(t *testing.T) {
	router := setupOrderRouter(newMockOrderQueryStore(), &mockOrderCreator{}, &mockBroadcaster{})

	rr := doRequest(t, router, "GET", "/orders?start_date=2026-03-10&end_date=2026-03-01", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("inverted range: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = doRequest(t, router, "GET", "/orders?start_date=10/03/2026", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed date: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderListBySession(t *testing.T) {
	store := newMockOrderQueryStore()
	sessionID := uuid.New()
	seedOrder(store, 1, enum.OrderStatusCompleted, sessionID)
	seedOrder(store, 2, enum.OrderStatusPending, sessionID)
	seedOrder(store, 3, enum.OrderStatusPending, uuid.New())
	router := setupOrderRouter(store, &mockOrderCreator{}, &mockBroadcaster{})

	rr := doRequest(t, router, "GET", "/sessions/"+sessionID.String()+"/orders", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if got := len(decodeListResponse(t, rr)); got != 2 {
		t.Errorf("got %d orders, want 2", got)
	}

	rr = doRequest(t, router, "GET", "/sessions/not-a-uuid/orders", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad session id: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
