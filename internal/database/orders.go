package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (table_id, session_id, total_amount)
VALUES ($1, $2, $3)
RETURNING id, table_id, session_id, status, bill_status, total_amount, created_at, completed_at
`

type CreateOrderParams struct {
	TableID     int64
	SessionID   uuid.UUID
	TotalAmount pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, createOrder, arg.TableID, arg.SessionID, arg.TotalAmount).
		Scan(&o.ID, &o.TableID, &o.SessionID, &o.Status, &o.BillStatus,
			&o.TotalAmount, &o.CreatedAt, &o.CompletedAt)
	return o, err
}

const createOrderItem = `
INSERT INTO order_items
	(order_id, menu_item_id, item_name, quantity, unit_price, total_price, selected_option, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, order_id, menu_item_id, item_name, quantity, unit_price, total_price,
	selected_option, note, status
`

type CreateOrderItemParams struct {
	OrderID        int64
	MenuItemID     int64
	ItemName       string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	TotalPrice     pgtype.Numeric
	SelectedOption pgtype.Text
	Note           pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.ItemName, arg.Quantity,
		arg.UnitPrice, arg.TotalPrice, arg.SelectedOption, arg.Note).
		Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.ItemName, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.SelectedOption, &it.Note, &it.Status)
	return it, err
}

const getOrder = `
SELECT id, table_id, session_id, status, bill_status, total_amount, created_at, completed_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, getOrder, id).
		Scan(&o.ID, &o.TableID, &o.SessionID, &o.Status, &o.BillStatus,
			&o.TotalAmount, &o.CreatedAt, &o.CompletedAt)
	return o, err
}

const listOrders = `
SELECT id, table_id, session_id, status, bill_status, total_amount, created_at, completed_at
FROM orders
WHERE ($1::text = '' OR status = $1)
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5
`

type ListOrdersParams struct {
	Status    string
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.TableID, &o.SessionID, &o.Status, &o.BillStatus,
			&o.TotalAmount, &o.CreatedAt, &o.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const listOrderItemsByOrder = `
SELECT id, order_id, menu_item_id, item_name, quantity, unit_price, total_price,
	selected_option, note, status
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.ItemName, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.SelectedOption, &it.Note, &it.Status); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateOrderStatus applies a guarded status transition. The expected current
// status is part of the predicate, so a concurrent change surfaces as
// pgx.ErrNoRows instead of silently overwriting it. COMPLETED also stamps
// completed_at.
const updateOrderStatus = `
UPDATE orders
SET status = $2,
    completed_at = CASE WHEN $2 = 'COMPLETED' THEN now() ELSE completed_at END
WHERE id = $1 AND status = $3
RETURNING id, table_id, session_id, status, bill_status, total_amount, created_at, completed_at
`

type UpdateOrderStatusParams struct {
	ID         int64
	Status     string
	FromStatus string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.FromStatus).
		Scan(&o.ID, &o.TableID, &o.SessionID, &o.Status, &o.BillStatus,
			&o.TotalAmount, &o.CreatedAt, &o.CompletedAt)
	return o, err
}

const updateOrderItemStatus = `
UPDATE order_items
SET status = $3
WHERE id = $1 AND order_id = $2
RETURNING id, order_id, menu_item_id, item_name, quantity, unit_price, total_price,
	selected_option, note, status
`

type UpdateOrderItemStatusParams struct {
	ID      int64
	OrderID int64
	Status  string
}

func (q *Queries) UpdateOrderItemStatus(ctx context.Context, arg UpdateOrderItemStatusParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, updateOrderItemStatus, arg.ID, arg.OrderID, arg.Status).
		Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.ItemName, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.SelectedOption, &it.Note, &it.Status)
	return it, err
}

const listOrdersBySession = `
SELECT id, table_id, session_id, status, bill_status, total_amount, created_at, completed_at
FROM orders
WHERE session_id = $1
ORDER BY id
`

func (q *Queries) ListOrdersBySession(ctx context.Context, sessionID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.TableID, &o.SessionID, &o.Status, &o.BillStatus,
			&o.TotalAmount, &o.CreatedAt, &o.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
