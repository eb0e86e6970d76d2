package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Revenue figures count COMPLETED orders only; customer counts are distinct
// sessions with at least one non-REJECTED order. The policy lives in the SQL
// here and in service.SalesService; every reporting call site goes through
// these two statements, never a private variant.

const getRangeSales = `
SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
FROM orders
WHERE status = 'COMPLETED'
  AND created_at >= $1 AND created_at < $2
`

type GetRangeSalesParams struct {
	StartDate time.Time
	EndDate   time.Time
}

type GetRangeSalesRow struct {
	OrderCount int64
	TotalSales pgtype.Numeric
}

func (q *Queries) GetRangeSales(ctx context.Context, arg GetRangeSalesParams) (GetRangeSalesRow, error) {
	var row GetRangeSalesRow
	err := q.db.QueryRow(ctx, getRangeSales, arg.StartDate, arg.EndDate).
		Scan(&row.OrderCount, &row.TotalSales)
	return row, err
}

const getDistinctCustomers = `
SELECT COUNT(DISTINCT session_id)
FROM orders
WHERE status <> 'REJECTED'
  AND created_at >= $1 AND created_at < $2
`

type GetDistinctCustomersParams struct {
	StartDate time.Time
	EndDate   time.Time
}

func (q *Queries) GetDistinctCustomers(ctx context.Context, arg GetDistinctCustomersParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, getDistinctCustomers, arg.StartDate, arg.EndDate).Scan(&n)
	return n, err
}

// GetDailySales buckets completed orders by calendar day in the
// establishment's timezone, not UTC, so a late-evening order lands on the
// local date the staff expects.
const getDailySales = `
SELECT (created_at AT TIME ZONE $3)::date AS sale_date,
       COUNT(*) AS order_count,
       COALESCE(SUM(total_amount), 0) AS total_sales
FROM orders
WHERE status = 'COMPLETED'
  AND created_at >= $1 AND created_at < $2
GROUP BY sale_date
ORDER BY sale_date
`

type GetDailySalesParams struct {
	StartDate time.Time
	EndDate   time.Time
	Timezone  string
}

type GetDailySalesRow struct {
	SaleDate   pgtype.Date
	OrderCount int64
	TotalSales pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.StartDate, arg.EndDate, arg.Timezone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetDailySalesRow
	for rows.Next() {
		var row GetDailySalesRow
		if err := rows.Scan(&row.SaleDate, &row.OrderCount, &row.TotalSales); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
