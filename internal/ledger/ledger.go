// Package ledger exports archived orders to an external bookkeeping ledger.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one archived order as it appears in the ledger.
type Entry struct {
	OrderID     int64
	TableID     int64
	SessionID   string
	CompletedAt time.Time
	TotalAmount decimal.Decimal
	Items       string
}

// Ledger writes entries to the external ledger. UpsertOrder is keyed by
// order id and must be idempotent: exporting the same order twice leaves a
// single ledger row.
type Ledger interface {
	UpsertOrder(ctx context.Context, e Entry) error
}
