package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listTables = `
SELECT id, name, status, session_id, session_started_at, checkout_at
FROM dining_tables
ORDER BY id
`

func (q *Queries) ListTables(ctx context.Context) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiningTable
	for rows.Next() {
		var t DiningTable
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.SessionID,
			&t.SessionStartedAt, &t.CheckoutAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const getTable = `
SELECT id, name, status, session_id, session_started_at, checkout_at
FROM dining_tables
WHERE id = $1
`

func (q *Queries) GetTable(ctx context.Context, id int64) (DiningTable, error) {
	var t DiningTable
	err := q.db.QueryRow(ctx, getTable, id).
		Scan(&t.ID, &t.Name, &t.Status, &t.SessionID, &t.SessionStartedAt, &t.CheckoutAt)
	return t, err
}

const createTable = `
INSERT INTO dining_tables (name)
VALUES ($1)
RETURNING id, name, status, session_id, session_started_at, checkout_at
`

func (q *Queries) CreateTable(ctx context.Context, name string) (DiningTable, error) {
	var t DiningTable
	err := q.db.QueryRow(ctx, createTable, name).
		Scan(&t.ID, &t.Name, &t.Status, &t.SessionID, &t.SessionStartedAt, &t.CheckoutAt)
	return t, err
}

// OpenTableSession assigns a fresh session to an available table.
// Returns pgx.ErrNoRows if the table is missing or not AVAILABLE, so the
// occupy step is a single atomic statement.
const openTableSession = `
UPDATE dining_tables
SET status = 'OCCUPIED', session_id = $2, session_started_at = now(), checkout_at = NULL
WHERE id = $1 AND status = 'AVAILABLE'
RETURNING id, name, status, session_id, session_started_at, checkout_at
`

type OpenTableSessionParams struct {
	ID        int64
	SessionID uuid.UUID
}

func (q *Queries) OpenTableSession(ctx context.Context, arg OpenTableSessionParams) (DiningTable, error) {
	var t DiningTable
	err := q.db.QueryRow(ctx, openTableSession, arg.ID, arg.SessionID).
		Scan(&t.ID, &t.Name, &t.Status, &t.SessionID, &t.SessionStartedAt, &t.CheckoutAt)
	return t, err
}

const checkoutTable = `
UPDATE dining_tables
SET status = 'CHECKOUT', checkout_at = now()
WHERE id = $1 AND status = 'OCCUPIED'
RETURNING id, name, status, session_id, session_started_at, checkout_at
`

func (q *Queries) CheckoutTable(ctx context.Context, id int64) (DiningTable, error) {
	var t DiningTable
	err := q.db.QueryRow(ctx, checkoutTable, id).
		Scan(&t.ID, &t.Name, &t.Status, &t.SessionID, &t.SessionStartedAt, &t.CheckoutAt)
	return t, err
}

const clearTable = `
UPDATE dining_tables
SET status = 'AVAILABLE', session_id = NULL, session_started_at = NULL, checkout_at = NULL
WHERE id = $1 AND status <> 'AVAILABLE'
RETURNING id, name, status, session_id, session_started_at, checkout_at
`

func (q *Queries) ClearTable(ctx context.Context, id int64) (DiningTable, error) {
	var t DiningTable
	err := q.db.QueryRow(ctx, clearTable, id).
		Scan(&t.ID, &t.Name, &t.Status, &t.SessionID, &t.SessionStartedAt, &t.CheckoutAt)
	return t, err
}

// SumSessionTotal sums total_amount across the session's non-rejected
// orders; this is the amount the party owes at checkout.
const sumSessionTotal = `
SELECT COALESCE(SUM(total_amount), 0)
FROM orders
WHERE session_id = $1 AND status <> 'REJECTED'
`

func (q *Queries) SumSessionTotal(ctx context.Context, sessionID uuid.UUID) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumSessionTotal, sessionID).Scan(&n)
	return n, err
}

const markSessionBilled = `
UPDATE orders
SET bill_status = 'BILLED'
WHERE session_id = $1 AND status <> 'REJECTED'
`

func (q *Queries) MarkSessionBilled(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, markSessionBilled, sessionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
