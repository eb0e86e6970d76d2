package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ruenthai-pos/api/internal/database"
	"github.com/ruenthai-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrTableNotFound       = errors.New("table not found")
	ErrTableNotOccupied    = errors.New("table has no open session")
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrOptionNotAllowed    = errors.New("item does not accept an option")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetTable(ctx context.Context, id int64) (database.DiningTable, error)
	GetMenuItem(ctx context.Context, id int64) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order. Prices are
// deliberately absent: unit prices are snapshotted from the menu server-side.
type CreateOrderRequest struct {
	TableID int64
	Items   []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single item in the order.
type CreateOrderItemRequest struct {
	MenuItemID     int64
	Quantity       int32
	SelectedOption string
	Note           string
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order creation.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// preparedItem holds the item insert parameters before the order id is known.
type preparedItem struct {
	params database.CreateOrderItemParams
}

// CreateOrder validates the request, snapshots menu prices, and inserts the
// order together with all of its items in one transaction. A reader never
// observes the order without its items.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Validate the table has an open session ---
	table, err := store.GetTable(ctx, req.TableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	if table.Status != enum.TableStatusOccupied || !table.SessionID.Valid {
		return nil, ErrTableNotOccupied
	}
	sessionID := uuid.UUID(table.SessionID.Bytes)

	// --- Process items: validate + snapshot prices ---
	total := decimal.Zero
	var items []preparedItem

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		menuItem, err := store.GetMenuItem(ctx, item.MenuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}
		if !menuItem.IsAvailable {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemUnavailable)
		}
		if item.SelectedOption != "" && menuItem.OptionType == enum.OptionTypeNone {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrOptionNotAllowed)
		}

		unitPrice := numericToDecimal(menuItem.Price)
		totalPrice := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		total = total.Add(totalPrice)

		selectedOption := pgtype.Text{}
		if item.SelectedOption != "" {
			selectedOption = pgtype.Text{String: item.SelectedOption, Valid: true}
		}
		note := pgtype.Text{}
		if item.Note != "" {
			note = pgtype.Text{String: item.Note, Valid: true}
		}

		items = append(items, preparedItem{
			params: database.CreateOrderItemParams{
				MenuItemID:     menuItem.ID,
				ItemName:       menuItem.Name,
				Quantity:       item.Quantity,
				UnitPrice:      decimalToNumeric(unitPrice),
				TotalPrice:     decimalToNumeric(totalPrice),
				SelectedOption: selectedOption,
				Note:           note,
			},
		})
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TableID:     table.ID,
		SessionID:   sessionID,
		TotalAmount: decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	var inserted []database.OrderItem
	for _, pi := range items {
		pi.params.OrderID = order.ID
		it, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		inserted = append(inserted, it)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: inserted}, nil
}

// --- Helpers ---

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
