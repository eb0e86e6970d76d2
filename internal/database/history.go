package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ListUnarchivedCompletedOrders selects the archival work set: completed
// orders with no history row yet. The same predicate re-checked inside the
// per-order transaction (via the order_history primary key) keeps two
// concurrent runs from double-copying.
const listUnarchivedCompletedOrders = `
SELECT o.id, o.table_id, o.session_id, o.status, o.bill_status, o.total_amount,
	o.created_at, o.completed_at
FROM orders o
WHERE o.status = 'COMPLETED'
  AND NOT EXISTS (SELECT 1 FROM order_history h WHERE h.order_id = o.id)
ORDER BY o.id
`

func (q *Queries) ListUnarchivedCompletedOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listUnarchivedCompletedOrders)
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

const insertOrderHistory = `
INSERT INTO order_history (order_id, table_id, session_id, status, total_amount, created_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertOrderHistoryParams struct {
	OrderID     int64
	TableID     int64
	SessionID   uuid.UUID
	Status      string
	TotalAmount pgtype.Numeric
	CreatedAt   time.Time
	CompletedAt pgtype.Timestamptz
}

func (q *Queries) InsertOrderHistory(ctx context.Context, arg InsertOrderHistoryParams) error {
	_, err := q.db.Exec(ctx, insertOrderHistory,
		arg.OrderID, arg.TableID, arg.SessionID, arg.Status,
		arg.TotalAmount, arg.CreatedAt, arg.CompletedAt)
	return err
}

const insertOrderHistoryItem = `
INSERT INTO order_history_items
	(order_id, menu_item_id, item_name, quantity, unit_price, total_price, selected_option, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type InsertOrderHistoryItemParams struct {
	OrderID        int64
	MenuItemID     int64
	ItemName       string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	TotalPrice     pgtype.Numeric
	SelectedOption pgtype.Text
	Note           pgtype.Text
}

func (q *Queries) InsertOrderHistoryItem(ctx context.Context, arg InsertOrderHistoryItemParams) error {
	_, err := q.db.Exec(ctx, insertOrderHistoryItem,
		arg.OrderID, arg.MenuItemID, arg.ItemName, arg.Quantity,
		arg.UnitPrice, arg.TotalPrice, arg.SelectedOption, arg.Note)
	return err
}

const countOrderHistory = `
SELECT COUNT(*) FROM order_history
`

func (q *Queries) CountOrderHistory(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrderHistory).Scan(&n)
	return n, err
}

const listUnsyncedOrderHistory = `
SELECT order_id, table_id, session_id, status, total_amount, created_at, completed_at,
	archived_at, ledger_synced
FROM order_history
WHERE NOT ledger_synced
ORDER BY order_id
LIMIT $1
`

func (q *Queries) ListUnsyncedOrderHistory(ctx context.Context, limit int32) ([]OrderHistory, error) {
	rows, err := q.db.Query(ctx, listUnsyncedOrderHistory, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderHistory
	for rows.Next() {
		var h OrderHistory
		if err := rows.Scan(&h.OrderID, &h.TableID, &h.SessionID, &h.Status, &h.TotalAmount,
			&h.CreatedAt, &h.CompletedAt, &h.ArchivedAt, &h.LedgerSynced); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

const listOrderHistoryItems = `
SELECT id, order_id, menu_item_id, item_name, quantity, unit_price, total_price,
	selected_option, note
FROM order_history_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderHistoryItems(ctx context.Context, orderID int64) ([]OrderHistoryItem, error) {
	rows, err := q.db.Query(ctx, listOrderHistoryItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderHistoryItem
	for rows.Next() {
		var it OrderHistoryItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.ItemName, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.SelectedOption, &it.Note); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

const markOrderHistorySynced = `
UPDATE order_history
SET ledger_synced = TRUE
WHERE order_id = $1
`

func (q *Queries) MarkOrderHistorySynced(ctx context.Context, orderID int64) error {
	_, err := q.db.Exec(ctx, markOrderHistorySynced, orderID)
	return err
}
