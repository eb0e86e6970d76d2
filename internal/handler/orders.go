package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ruenthai-pos/api/internal/database"
	"github.com/ruenthai-pos/api/internal/enum"
	"github.com/ruenthai-pos/api/internal/service"
	"github.com/ruenthai-pos/api/internal/ws"
	"github.com/shopspring/decimal"
)

const (
	defaultOrderPageSize = 50
	maxOrderPageSize     = 200
)

// allowedTransitions defines the order status machine. REJECTED is absorbing;
// COMPLETED is terminal.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:  {enum.OrderStatusAccepted, enum.OrderStatusRejected},
	enum.OrderStatusAccepted: {enum.OrderStatusCompleted, enum.OrderStatusRejected},
}

// OrderQueryStore defines the database methods needed by order read and
// status endpoints. Satisfied by *database.Queries.
type OrderQueryStore interface {
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	ListOrdersBySession(ctx context.Context, sessionID uuid.UUID) ([]database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
}

// OrderCreator is the transactional creation path.
// Satisfied by *service.OrderService.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// Broadcaster pushes events to connected kitchen and floor screens.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	store   OrderQueryStore
	creator OrderCreator
	hub     Broadcaster
	loc     *time.Location
}

// NewOrderHandler creates a new OrderHandler. loc is the establishment's
// timezone, used to interpret date filters.
func NewOrderHandler(store OrderQueryStore, creator OrderCreator, hub Broadcaster, loc *time.Location) *OrderHandler {
	return &OrderHandler{store: store, creator: creator, hub: hub, loc: loc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Patch("/orders/{id}/items/{itemID}/status", h.UpdateItemStatus)
	r.Get("/sessions/{sid}/orders", h.ListBySession)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID int64                    `json:"table_id"`
	Items   []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID     int64  `json:"menu_item_id"`
	Quantity       int32  `json:"quantity"`
	SelectedOption string `json:"selected_option"`
	Note           string `json:"note"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ID             int64   `json:"id"`
	MenuItemID     int64   `json:"menu_item_id"`
	ItemName       string  `json:"item_name"`
	Quantity       int32   `json:"quantity"`
	UnitPrice      string  `json:"unit_price"`
	TotalPrice     string  `json:"total_price"`
	SelectedOption *string `json:"selected_option"`
	Note           *string `json:"note"`
	Status         string  `json:"status"`
}

type orderResponse struct {
	ID          int64               `json:"id"`
	TableID     int64               `json:"table_id"`
	SessionID   uuid.UUID           `json:"session_id"`
	Status      string              `json:"status"`
	BillStatus  string              `json:"bill_status"`
	TotalAmount string              `json:"total_amount"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at"`
	Items       []orderItemResponse `json:"items,omitempty"`
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:         it.ID,
		MenuItemID: it.MenuItemID,
		ItemName:   it.ItemName,
		Quantity:   it.Quantity,
		UnitPrice:  numericToString(it.UnitPrice),
		TotalPrice: numericToString(it.TotalPrice),
		Status:     it.Status,
	}
	if it.SelectedOption.Valid {
		resp.SelectedOption = &it.SelectedOption.String
	}
	if it.Note.Valid {
		resp.Note = &it.Note.String
	}
	return resp
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		TableID:     o.TableID,
		SessionID:   o.SessionID,
		Status:      o.Status,
		BillStatus:  o.BillStatus,
		TotalAmount: numericToString(o.TotalAmount),
		CreatedAt:   o.CreatedAt,
	}
	if o.CompletedAt.Valid {
		resp.CompletedAt = &o.CompletedAt.Time
	}
	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = toOrderItemResponse(it)
		}
	}
	return resp
}

// --- Handlers ---

// Create places a new order on a table's open session.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			MenuItemID:     it.MenuItemID,
			Quantity:       it.Quantity,
			SelectedOption: it.SelectedOption,
			Note:           it.Note,
		}
	}

	result, err := h.creator.CreateOrder(r.Context(), service.CreateOrderRequest{
		TableID: req.TableID,
		Items:   items,
	})
	if err != nil {
		status, msg := createOrderErrorStatus(err)
		if status == http.StatusInternalServerError {
			log.Printf("ERROR: create order: %v", err)
		}
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.hub.Broadcast(ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List returns orders filtered by ?status=, ?start_date=, ?end_date= with
// pagination. Dates are local calendar dates; end_date is inclusive.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListOrdersParams{Limit: defaultOrderPageSize}
	q := r.URL.Query()

	if status := q.Get("status"); status != "" {
		if !validOrderStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = status
	}

	if raw := q.Get("start_date"); raw != "" {
		start, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: start.UTC(), Valid: true}
	}
	if raw := q.Get("end_date"); raw != "" {
		end, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: end.AddDate(0, 0, 1).UTC(), Valid: true}
	}
	if params.StartDate.Valid && params.EndDate.Valid && params.StartDate.Time.After(params.EndDate.Time) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_date must not be after end_date"})
		return
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || limit <= 0 || limit > maxOrderPageSize {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		params.Limit = int32(limit)
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || offset < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return
		}
		params.Offset = int32(offset)
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single order with its items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// UpdateStatus applies one transition of the order status machine. The update
// is guarded on the status we read, so two staff racing on the same order get
// one winner and one conflict.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !validOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if !transitionAllowed(order.Status, req.Status) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "cannot transition from " + order.Status + " to " + req.Status,
		})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:         id,
		Status:     req.Status,
		FromStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone else moved the order between our read and write.
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed concurrently"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(updated, nil)
	h.hub.Broadcast(ws.EventOrderStatusChanged, resp)
	writeJSON(w, http.StatusOK, resp)
}

// UpdateItemStatus moves one line item through the kitchen flow.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	switch req.Status {
	case enum.OrderItemStatusPending, enum.OrderItemStatusPreparing, enum.OrderItemStatusDone:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	item, err := h.store.UpdateOrderItemStatus(r.Context(), database.UpdateOrderItemStatusParams{
		ID:      itemID,
		OrderID: orderID,
		Status:  req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order item not found"})
			return
		}
		log.Printf("ERROR: update order item status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderItemResponse(item)
	h.hub.Broadcast(ws.EventOrderItemStatusChanged, map[string]any{
		"order_id": orderID,
		"item":     resp,
	})
	writeJSON(w, http.StatusOK, resp)
}

// ListBySession returns every order placed during one table session, oldest
// first. The ordering page uses this for the running bill view.
func (h *OrderHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	orders, err := h.store.ListOrdersBySession(r.Context(), sessionID)
	if err != nil {
		log.Printf("ERROR: list session orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func createOrderErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrOptionNotAllowed):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrTableNotFound),
		errors.Is(err, service.ErrMenuItemNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrTableNotOccupied),
		errors.Is(err, service.ErrMenuItemUnavailable):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func validOrderStatus(status string) bool {
	switch status {
	case enum.OrderStatusPending, enum.OrderStatusAccepted,
		enum.OrderStatusCompleted, enum.OrderStatusRejected:
		return true
	}
	return false
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
