package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ruenthai-pos/api/internal/database"
)

// ArchiveStore defines the DB methods needed by archival.
// Satisfied by *database.Queries (and its WithTx variant).
type ArchiveStore interface {
	ListUnarchivedCompletedOrders(ctx context.Context) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	InsertOrderHistory(ctx context.Context, arg database.InsertOrderHistoryParams) error
	InsertOrderHistoryItem(ctx context.Context, arg database.InsertOrderHistoryItemParams) error
}

// NewArchiveStore creates an ArchiveStore from a DBTX (pool or tx).
type NewArchiveStore func(db database.DBTX) ArchiveStore

// ArchiveService copies completed orders into the history tables. Archival
// is additive: live rows are never deleted.
type ArchiveService struct {
	store    ArchiveStore
	pool     TxBeginner
	newStore NewArchiveStore
}

// NewArchiveService creates a new ArchiveService.
func NewArchiveService(store ArchiveStore, pool TxBeginner, newStore NewArchiveStore) *ArchiveService {
	return &ArchiveService{store: store, pool: pool, newStore: newStore}
}

// Run archives every completed order that has no history row yet and returns
// the archived order ids. Each order is copied in its own transaction: the
// history row and all of its item rows land together or not at all, while
// independent orders succeed or fail independently. Re-running after success
// is a no-op, and a concurrent run losing the insert race on the
// order_history primary key is treated as already-archived.
func (s *ArchiveService) Run(ctx context.Context) ([]int64, error) {
	orders, err := s.store.ListUnarchivedCompletedOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unarchived orders: %w", err)
	}

	archived := make([]int64, 0, len(orders))
	for _, order := range orders {
		if err := s.archiveOne(ctx, order); err != nil {
			if isDuplicateHistory(err) {
				// Another run archived it between our select and insert.
				continue
			}
			// One broken order must not block the rest of the batch.
			log.Printf("ERROR: archive order %d: %v", order.ID, err)
			continue
		}
		archived = append(archived, order.ID)
	}
	return archived, nil
}

// archiveOne copies a single order and its items inside one transaction.
func (s *ArchiveService) archiveOne(ctx context.Context, order database.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := store.InsertOrderHistory(ctx, database.InsertOrderHistoryParams{
		OrderID:     order.ID,
		TableID:     order.TableID,
		SessionID:   order.SessionID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
		CompletedAt: order.CompletedAt,
	}); err != nil {
		return fmt.Errorf("insert history order: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}

	for _, it := range items {
		if err := store.InsertOrderHistoryItem(ctx, database.InsertOrderHistoryItemParams{
			OrderID:        order.ID,
			MenuItemID:     it.MenuItemID,
			ItemName:       it.ItemName,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			TotalPrice:     it.TotalPrice,
			SelectedOption: it.SelectedOption,
			Note:           it.Note,
		}); err != nil {
			return fmt.Errorf("insert history item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isDuplicateHistory checks for a unique violation on the order_history
// primary key (pgconn error code 23505).
func isDuplicateHistory(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
