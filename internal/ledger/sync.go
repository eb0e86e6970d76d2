package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ruenthai-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// syncBatchSize bounds one sync run so a long backlog drains over several
// runs instead of one giant export.
const syncBatchSize = 50

// SyncStore defines the DB methods needed by ledger sync.
// Satisfied by *database.Queries.
type SyncStore interface {
	ListUnsyncedOrderHistory(ctx context.Context, limit int32) ([]database.OrderHistory, error)
	ListOrderHistoryItems(ctx context.Context, orderID int64) ([]database.OrderHistoryItem, error)
	MarkOrderHistorySynced(ctx context.Context, orderID int64) error
}

// SyncService pushes archived orders that have not been exported yet into the
// ledger and marks them synced. Marking happens only after a successful
// upsert, so a failed run retries the same rows next time; the upsert is
// keyed by order id, so a retry overwrites the row it already wrote.
type SyncService struct {
	store  SyncStore
	ledger Ledger
}

// NewSyncService creates a new SyncService.
func NewSyncService(store SyncStore, ledger Ledger) *SyncService {
	return &SyncService{store: store, ledger: ledger}
}

// Run exports one batch of unsynced history rows and returns how many were
// synced. An empty backlog is a successful no-op.
func (s *SyncService) Run(ctx context.Context) (int, error) {
	rows, err := s.store.ListUnsyncedOrderHistory(ctx, syncBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unsynced history: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	synced := 0
	for _, row := range rows {
		items, err := s.store.ListOrderHistoryItems(ctx, row.OrderID)
		if err != nil {
			return synced, fmt.Errorf("list history items for order %d: %w", row.OrderID, err)
		}
		e := Entry{
			OrderID:     row.OrderID,
			TableID:     row.TableID,
			SessionID:   row.SessionID.String(),
			CompletedAt: completedOrCreated(row),
			TotalAmount: numericDecimal(row.TotalAmount),
			Items:       summarizeItems(items),
		}

		if err := s.ledger.UpsertOrder(ctx, e); err != nil {
			return synced, fmt.Errorf("export order %d: %w", e.OrderID, err)
		}
		if err := s.store.MarkOrderHistorySynced(ctx, e.OrderID); err != nil {
			// The row was exported but stays flagged unsynced; the next run
			// upserts the same keyed row again, which is harmless.
			return synced, fmt.Errorf("mark order %d synced: %w", e.OrderID, err)
		}
		synced++
	}
	return synced, nil
}

func completedOrCreated(row database.OrderHistory) time.Time {
	if row.CompletedAt.Valid {
		return row.CompletedAt.Time
	}
	return row.CreatedAt
}

// summarizeItems renders "2x Pad Krapow (extra pearls), 1x Thai Milk Tea".
func summarizeItems(items []database.OrderHistoryItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		part := fmt.Sprintf("%dx %s", it.Quantity, it.ItemName)
		if it.SelectedOption.Valid && it.SelectedOption.String != "" {
			part += fmt.Sprintf(" (%s)", it.SelectedOption.String)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func numericDecimal(n pgtype.Numeric) decimal.Decimal {
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
